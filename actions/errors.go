package actions

import (
	"errors"
	"fmt"
)

var (
	ErrDefinition     = errors.New("definition error")
	ErrRuntime        = errors.New("runtime error")
	ErrResource       = errors.New("resource error")
	ErrRecursionDepth = fmt.Errorf("%w: template recursion depth exceeded", ErrDefinition)
)

func Definitionf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrDefinition}, args...)...)
}

func Runtimef(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrRuntime}, args...)...)
}

func Resourcef(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrResource}, args...)...)
}

// NodeError locates an error at a node of the tree.
type NodeError struct {
	Path string
	Kind Kind
	Err  error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("%s (%s): %v", e.Path, e.Kind, e.Err)
}

func (e *NodeError) Unwrap() error {
	return e.Err
}
