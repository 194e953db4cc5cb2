package configs

import (
	"fmt"
	"os"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// Loader reads values from cue files, earlier files taking precedence.
type Loader struct {
	getRoots func() ([]root, error)
}

type root struct {
	value cue.Value
	path  string
}

// NewLoader validates every file against the closed schema, when given, on first use.
func NewLoader(filePaths []string, schemaSrc string) Loader {
	return Loader{
		getRoots: sync.OnceValues(func() ([]root, error) {
			// values unify only within one context
			ctx := cuecontext.New()

			var schema cue.Value
			if schemaSrc != "" {
				schema = ctx.CompileString("close({" + schemaSrc + "})")
				if err := schema.Err(); err != nil {
					return nil, fmt.Errorf("config schema: %w", err)
				}
			}

			roots := make([]root, 0, len(filePaths))
			for _, filePath := range filePaths {
				content, err := os.ReadFile(filePath)
				if err != nil {
					return nil, err
				}
				value := ctx.CompileBytes(content, cue.Filename(filePath))
				if err := value.Err(); err != nil {
					return nil, fmt.Errorf("config %s: %w", filePath, err)
				}
				if schema.Exists() {
					if err := schema.Unify(value).Validate(); err != nil {
						return nil, fmt.Errorf("config %s: %w", filePath, err)
					}
				}
				roots = append(roots, root{
					value: value,
					path:  filePath,
				})
			}
			return roots, nil
		}),
	}
}

// AssignFirst decodes the value at path from the first file defining it.
func (l Loader) AssignFirst(path string, target any) error {
	roots, err := l.getRoots()
	if err != nil {
		return err
	}

	cuePath := cue.ParsePath(path)
	for _, r := range roots {
		value := r.value.LookupPath(cuePath)
		if !value.Exists() {
			continue
		}
		if err := value.Decode(target); err != nil {
			return fmt.Errorf("config %s: %s: %w", r.path, path, err)
		}
		return nil
	}

	return fmt.Errorf("%s: %w", path, ErrValueNotFound)
}
