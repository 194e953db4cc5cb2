package configs

import (
	"errors"
)

// Configurable is a value read from the config path it names.
type Configurable interface {
	ConfigPath() string
}

// Lookup reads the first value of T at T's own config path, or the zero value when no file sets it.
// A malformed config file panics.
func Lookup[T Configurable](loader Loader) T {
	var value T
	if err := loader.AssignFirst(value.ConfigPath(), &value); err != nil {
		if errors.Is(err, ErrValueNotFound) {
			return value
		}
		panic(err)
	}
	return value
}
