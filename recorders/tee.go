package recorders

import "errors"

type tee []Sink

// Tee sends every record to all sinks.
func Tee(sinks ...Sink) Sink {
	return tee(sinks)
}

func (t tee) Record(record Record) error {
	var errs []error
	for _, sink := range t {
		errs = append(errs, sink.Record(record))
	}
	return errors.Join(errs...)
}

func (t tee) Flush() error {
	var errs []error
	for _, sink := range t {
		errs = append(errs, sink.Flush())
	}
	return errors.Join(errs...)
}

func (t tee) Close() error {
	var errs []error
	for _, sink := range t {
		errs = append(errs, sink.Close())
	}
	return errors.Join(errs...)
}
