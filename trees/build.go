package trees

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/reusee/trials/actions"
	"github.com/reusee/trials/signals"
	"gopkg.in/yaml.v3"
)

const (
	DefaultMaxDepth = 16
	maxNesting      = 512
)

type Options struct {
	// Signals resolves declared names to ids.
	Signals map[string]signals.ID
	// External ids are written by the host and need no writer in the tree.
	External []signals.ID
	// MaxDepth bounds template expansion.
	MaxDepth int
	// Dir resolves relative template sources.
	Dir      string
	ReadFile func(string) ([]byte, error)
}

type Builder struct {
	options Options
	tree    *Tree
	depth   int
	nesting int
}

// Build constructs and validates a tree from a decoded description.
func Build(doc any, options Options) (*Tree, error) {
	if options.MaxDepth <= 0 {
		options.MaxDepth = DefaultMaxDepth
	}
	if options.ReadFile == nil {
		options.ReadFile = os.ReadFile
	}
	tree, err := newBuilder(options, 0).build(doc)
	if err != nil {
		return nil, err
	}
	tree.External = append(tree.External, options.External...)
	if err := tree.Validate(); err != nil {
		return nil, err
	}
	return tree, nil
}

func newBuilder(options Options, depth int) *Builder {
	return &Builder{
		options: options,
		tree:    New(),
		depth:   depth,
	}
}

func (b *Builder) build(doc any) (*Tree, error) {
	if _, err := b.node(NoNode, Normalize(doc), ""); err != nil {
		return nil, err
	}
	return b.tree, nil
}

// Normalize converts yaml-style map[any]any mappings to map[string]any.
func Normalize(doc any) any {
	switch doc := doc.(type) {
	case map[any]any:
		ret := make(map[string]any, len(doc))
		for k, v := range doc {
			ret[fmt.Sprint(k)] = Normalize(v)
		}
		return ret
	case map[string]any:
		ret := make(map[string]any, len(doc))
		for k, v := range doc {
			ret[k] = Normalize(v)
		}
		return ret
	case []any:
		ret := make([]any, len(doc))
		for i, v := range doc {
			ret[i] = Normalize(v)
		}
		return ret
	}
	return doc
}

func (b *Builder) node(parent NodeID, doc any, path string) (id NodeID, err error) {
	b.nesting++
	defer func() {
		b.nesting--
	}()
	if b.nesting > maxNesting {
		return NoNode, actions.Definitionf("%s: nesting too deep", path)
	}

	var name string
	var body any
	switch doc := doc.(type) {
	case string:
		name = doc
	case map[string]any:
		if len(doc) != 1 {
			return NoNode, actions.Definitionf("%s: constructor must have exactly one key, got %v", path, slices.Sorted(maps.Keys(doc)))
		}
		for k, v := range doc {
			name, body = k, v
		}
	default:
		return NoNode, actions.Definitionf("%s: malformed constructor %T", path, doc)
	}
	path = joinPath(path, name)

	defer func() {
		if err != nil {
			if _, ok := err.(*actions.NodeError); !ok {
				err = &actions.NodeError{
					Path: path,
					Kind: kindOf(name),
					Err:  err,
				}
			}
		}
	}()

	if name == "template" {
		return b.template(parent, body, path)
	}
	return b.constructor(parent, name, body, path)
}

func kindOf(name string) actions.Kind {
	switch name {
	case "horizontal", "vertical":
		return actions.KindStack
	}
	kind, _ := actions.ParseKind(name)
	return kind
}

func joinPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "/" + name
}

func (b *Builder) children(id NodeID, docs []any, path string) error {
	for i, doc := range docs {
		if _, err := b.node(id, doc, path+"/"+strconv.Itoa(i)); err != nil {
			return err
		}
	}
	return nil
}

func asList(v any, key string) ([]any, error) {
	if v == nil {
		return nil, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, actions.Definitionf("field %q: expecting list, got %T", key, v)
	}
	return list, nil
}

// inner builds a single required child.
func (b *Builder) inner(id NodeID, f fields, path string) error {
	doc, ok := f["inner"]
	if !ok || doc == nil {
		return actions.Definitionf("missing field %q", "inner")
	}
	_, err := b.node(id, doc, path)
	return err
}

func parseMode(f fields) (actions.Mode, error) {
	s, err := f.string("mode")
	if err != nil {
		return 0, err
	}
	switch s {
	case "", "all":
		return actions.ModeAll, nil
	case "any":
		return actions.ModeAny, nil
	}
	return 0, actions.Definitionf("bad mode %q", s)
}

func (b *Builder) template(parent NodeID, body any, path string) (NodeID, error) {
	if b.depth+1 > b.options.MaxDepth {
		return NoNode, fmt.Errorf("%w at %d", actions.ErrRecursionDepth, b.depth+1)
	}
	f, err := b.asFields(body)
	if err != nil {
		return NoNode, err
	}
	if err := f.check("src", "tree", "params"); err != nil {
		return NoNode, err
	}
	params, err := b.asFields(f["params"])
	if err != nil {
		return NoNode, err
	}

	var doc any
	src, err := f.string("src")
	if err != nil {
		return NoNode, err
	}
	switch {
	case src != "" && f.has("tree"):
		return NoNode, actions.Definitionf("template takes either src or tree")
	case src != "":
		if !filepath.IsAbs(src) && b.options.Dir != "" {
			src = filepath.Join(b.options.Dir, src)
		}
		content, err := b.options.ReadFile(src)
		if err != nil {
			return NoNode, actions.Definitionf("read template %s: %v", src, err)
		}
		if err := yaml.Unmarshal([]byte(substitute(string(content), params)), &doc); err != nil {
			return NoNode, actions.Definitionf("decode template %s: %v", src, err)
		}
	case f.has("tree"):
		doc = substituteDoc(f["tree"], params)
	default:
		return NoNode, actions.Definitionf("template needs src or tree")
	}

	sub, err := newBuilder(b.options, b.depth+1).build(doc)
	if err != nil {
		return NoNode, err
	}
	return b.tree.Graft(sub, parent, path), nil
}

// substituteDoc replaces ${param} inside strings. A string that is exactly one reference takes the raw value.
func substituteDoc(doc any, params map[string]any) any {
	switch doc := doc.(type) {
	case string:
		if strings.HasPrefix(doc, "${") && strings.HasSuffix(doc, "}") {
			if v, ok := params[doc[2:len(doc)-1]]; ok {
				return v
			}
		}
		return substitute(doc, params)
	case map[string]any:
		ret := make(map[string]any, len(doc))
		for k, v := range doc {
			ret[substitute(k, params)] = substituteDoc(v, params)
		}
		return ret
	case []any:
		ret := make([]any, len(doc))
		for i, v := range doc {
			ret[i] = substituteDoc(v, params)
		}
		return ret
	}
	return doc
}
