package medias

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Probe resolves the playing time of a source.
type Probe func(src string) (time.Duration, error)

// Fixed returns a probe reporting d for every readable file.
func Fixed(d time.Duration) Probe {
	return func(src string) (time.Duration, error) {
		if _, err := os.Stat(src); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return d, nil
	}
}

// Header reads durations from RIFF/WAVE headers and falls back to fallback for other files.
func Header(fallback Probe) Probe {
	return func(src string) (time.Duration, error) {
		if !strings.EqualFold(filepath.Ext(src), ".wav") {
			if fallback == nil {
				return 0, fmt.Errorf("%w: no duration for %s", ErrUnavailable, src)
			}
			return fallback(src)
		}
		f, err := os.Open(src)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		defer f.Close()
		return wavDuration(f)
	}
}

func wavDuration(r io.Reader) (time.Duration, error) {
	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return 0, fmt.Errorf("%w: not a wave file", ErrUnavailable)
	}
	var byteRate uint32
	for {
		var header [8]byte
		if _, err := io.ReadFull(r, header[:]); err != nil {
			return 0, fmt.Errorf("%w: missing data chunk", ErrUnavailable)
		}
		size := binary.LittleEndian.Uint32(header[4:8])
		switch string(header[0:4]) {
		case "fmt ":
			chunk := make([]byte, size)
			if _, err := io.ReadFull(r, chunk); err != nil || size < 12 {
				return 0, fmt.Errorf("%w: bad fmt chunk", ErrUnavailable)
			}
			byteRate = binary.LittleEndian.Uint32(chunk[8:12])
		case "data":
			if byteRate == 0 {
				return 0, fmt.Errorf("%w: data before fmt", ErrUnavailable)
			}
			return time.Duration(float64(size) / float64(byteRate) * float64(time.Second)), nil
		default:
			if _, err := io.CopyN(io.Discard, r, int64(size+size%2)); err != nil {
				return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
			}
		}
	}
}
