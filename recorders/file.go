package recorders

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/reusee/trials/signals"
	"gopkg.in/yaml.v3"
)

type Format uint8

const (
	FormatJSON Format = iota
	FormatYAML
)

func ParseFormat(s string) (Format, error) {
	switch s {
	case "", "json":
		return FormatJSON, nil
	case "yaml":
		return FormatYAML, nil
	}
	return 0, fmt.Errorf("unknown log format %q", s)
}

func (f Format) String() string {
	if f == FormatYAML {
		return "yaml"
	}
	return "json"
}

// File writes one <group>.log per group under dir.
type File struct {
	dir    string
	format Format
	mu     sync.Mutex
	groups map[string]*groupFile
}

type groupFile struct {
	file   *os.File
	writer *bufio.Writer
	encode func(any) error
	close  func() error
}

var _ Sink = new(File)

func NewFile(dir string, format Format) (*File, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &File{
		dir:    dir,
		format: format,
		groups: make(map[string]*groupFile),
	}, nil
}

func GroupPath(dir, group string) string {
	return filepath.Join(dir, group+".log")
}

func (f *File) group(name string) (*groupFile, error) {
	if g, ok := f.groups[name]; ok {
		return g, nil
	}
	file, err := os.OpenFile(GroupPath(f.dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	g := &groupFile{
		file:   file,
		writer: bufio.NewWriter(file),
	}
	switch f.format {
	case FormatYAML:
		encoder := yaml.NewEncoder(g.writer)
		g.encode = encoder.Encode
		g.close = encoder.Close
	default:
		encoder := json.NewEncoder(g.writer)
		g.encode = encoder.Encode
		g.close = func() error { return nil }
	}
	f.groups[name] = g
	return g, nil
}

func (f *File) Record(record Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, err := f.group(record.Group)
	if err != nil {
		return err
	}
	return g.encode(toFileRecord(record))
}

func (f *File) Flush() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var errs []error
	for _, g := range f.groups {
		errs = append(errs, g.writer.Flush())
	}
	return errors.Join(errs...)
}

func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var errs []error
	for name, g := range f.groups {
		errs = append(errs, g.close(), g.writer.Flush(), g.file.Close())
		delete(f.groups, name)
	}
	return errors.Join(errs...)
}

// fileRecord keeps the value kind, since json and yaml would turn 1.0 into 1.
type fileRecord struct {
	Tick   uint64        `json:"tick" yaml:"tick"`
	Time   time.Duration `json:"time" yaml:"time"`
	Group  string        `json:"group" yaml:"group"`
	Name   string        `json:"name,omitempty" yaml:"name,omitempty"`
	Signal signals.ID    `json:"signal,omitempty" yaml:"signal,omitempty"`
	Kind   string        `json:"kind" yaml:"kind"`
	Value  any           `json:"value" yaml:"value"`
}

func toFileRecord(r Record) fileRecord {
	return fileRecord{
		Tick:   r.Tick,
		Time:   r.Time,
		Group:  r.Group,
		Name:   r.Name,
		Signal: r.Signal,
		Kind:   r.Value.Kind().String(),
		Value:  r.Value.Any(),
	}
}

func (f fileRecord) record() (Record, error) {
	value, err := typedValue(f.Kind, f.Value)
	if err != nil {
		return Record{}, err
	}
	return Record{
		Tick:   f.Tick,
		Time:   f.Time,
		Group:  f.Group,
		Name:   f.Name,
		Signal: f.Signal,
		Value:  value,
	}, nil
}

func typedValue(kind string, x any) (signals.Value, error) {
	v, err := signals.FromAny(x)
	if err != nil {
		return v, err
	}
	switch kind {
	case "float":
		f, ok := v.AsFloat()
		if !ok {
			return v, fmt.Errorf("expecting float, got %v", x)
		}
		return signals.Float(f), nil
	case "int":
		i, ok := v.AsInt()
		if !ok {
			return v, fmt.Errorf("expecting int, got %v", x)
		}
		return signals.Int(i), nil
	}
	return v, nil
}

// ReadFile decodes a group log written by File.
func ReadFile(path string, format Format) ([]Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	var decode func(any) error
	if format == FormatYAML {
		decode = yaml.NewDecoder(file).Decode
	} else {
		decoder := json.NewDecoder(file)
		decoder.UseNumber()
		decode = decoder.Decode
	}
	var ret []Record
	for {
		var f fileRecord
		if err := decode(&f); errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return nil, err
		}
		record, err := f.record()
		if err != nil {
			return nil, err
		}
		ret = append(ret, record)
	}
	return ret, nil
}
