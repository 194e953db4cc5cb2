package interps

import (
	"fmt"

	"github.com/reusee/trials/signals"
)

// Interpreter evaluates user code against bus values. Calls are synchronous and hold no state between them.
type Interpreter interface {
	Evaluate(expr string, vars map[string]signals.Value) (signals.Value, error)
	// Execute runs a program and returns its convertible globals.
	Execute(name, program string, vars map[string]signals.Value) (map[string]signals.Value, error)
}

const DefaultName = "starlark"

// Interpreters maps names usable in descriptions to implementations.
type Interpreters map[string]Interpreter

func (i Interpreters) Get(name string) (Interpreter, error) {
	if name == "" {
		name = DefaultName
	}
	interp, ok := i[name]
	if !ok {
		return nil, fmt.Errorf("unknown interpreter %q", name)
	}
	return interp, nil
}
