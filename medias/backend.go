package medias

import (
	"errors"
)

var ErrUnavailable = errors.New("media unavailable")

// Handle is a playing stream. IsDone is polled once per tick and never blocks.
type Handle interface {
	IsDone() bool
	SetVolume(volume float64)
	Stop()
}

type Backend interface {
	Play(src string, volume float64, trigger bool) (Handle, error)
}
