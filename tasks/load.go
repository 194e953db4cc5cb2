package tasks

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/reusee/trials/actions"
	"github.com/reusee/trials/signals"
	"github.com/reusee/trials/trees"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schema string

type rawTask struct {
	Name        string          `json:"name"`
	Version     json.RawMessage `json:"version"`
	Description string          `json:"description"`
	Config      json.RawMessage `json:"config"`
	Blocks      []rawBlock      `json:"blocks"`
}

type rawBlock struct {
	Name     string                `json:"name"`
	Config   json.RawMessage       `json:"config"`
	Signals  map[string]signals.ID `json:"signals"`
	External []json.RawMessage     `json:"external"`
	Carry    []json.RawMessage     `json:"carry"`
	Tree     json.RawMessage       `json:"tree"`
}

// Load reads a task description from a .cue, .json, .yaml or .yml file.
func Load(path string) (*Task, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var data []byte
	switch ext := filepath.Ext(path); ext {
	case ".cue", ".json":
		data, err = compileCue(content, path)
	case ".yaml", ".yml":
		data, err = fromYAML(content)
	default:
		err = fmt.Errorf("unknown description format %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	task, err := Parse(data, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return task, nil
}

func compileCue(content []byte, path string) ([]byte, error) {
	ctx := cuecontext.New()
	def := ctx.CompileString(schema).LookupPath(cue.ParsePath("#Task"))
	if err := def.Err(); err != nil {
		return nil, err
	}
	value := ctx.CompileBytes(content, cue.Filename(path))
	if err := value.Err(); err != nil {
		return nil, actions.Definitionf("%v", err)
	}
	value = def.Unify(value)
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return nil, actions.Definitionf("%v", err)
	}
	return value.MarshalJSON()
}

func fromYAML(content []byte) ([]byte, error) {
	var doc any
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return nil, actions.Definitionf("%v", err)
	}
	return json.Marshal(trees.Normalize(doc))
}

// Parse decodes a task from its json form.
func Parse(data []byte, dir string) (*Task, error) {
	var raw rawTask
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&raw); err != nil {
		return nil, actions.Definitionf("%v", err)
	}

	config, err := DefaultConfig().Fill(raw.Config)
	if err != nil {
		return nil, actions.Definitionf("%v", err)
	}
	task := &Task{
		Name:        raw.Name,
		Version:     version(raw.Version),
		Description: raw.Description,
		Config:      config,
		Dir:         dir,
	}

	for _, rb := range raw.Blocks {
		block := Block{
			Name:    rb.Name,
			Signals: rb.Signals,
		}
		if block.Config, err = config.Fill(rb.Config); err != nil {
			return nil, actions.Definitionf("block %s: %v", rb.Name, err)
		}
		if block.External, err = refs(rb.External, rb.Signals); err != nil {
			return nil, actions.Definitionf("block %s: external: %v", rb.Name, err)
		}
		if block.Carry, err = refs(rb.Carry, rb.Signals); err != nil {
			return nil, actions.Definitionf("block %s: carry: %v", rb.Name, err)
		}
		if len(rb.Tree) == 0 {
			return nil, actions.Definitionf("block %s has no tree", rb.Name)
		}
		treeDecoder := json.NewDecoder(bytes.NewReader(rb.Tree))
		treeDecoder.UseNumber()
		if err := treeDecoder.Decode(&block.Tree); err != nil {
			return nil, actions.Definitionf("block %s: %v", rb.Name, err)
		}
		task.Blocks = append(task.Blocks, block)
	}

	if err := task.validate(); err != nil {
		return nil, err
	}
	return task, nil
}

func version(data json.RawMessage) string {
	if len(data) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return s
	}
	return string(data)
}

func refs(raw []json.RawMessage, names map[string]signals.ID) ([]signals.ID, error) {
	var ret []signals.ID
	for _, data := range raw {
		var s string
		if err := json.Unmarshal(data, &s); err == nil {
			if n, err := strconv.ParseUint(s, 10, 16); err == nil {
				ret = append(ret, signals.ID(n))
				continue
			}
			id, ok := names[s]
			if !ok {
				return nil, fmt.Errorf("unresolved signal name %q", s)
			}
			ret = append(ret, id)
			continue
		}
		var n float64
		if err := json.Unmarshal(data, &n); err != nil {
			return nil, fmt.Errorf("bad signal reference %s", data)
		}
		if n < 0 || n > math.MaxUint16 || n != math.Trunc(n) {
			return nil, fmt.Errorf("bad signal reference %v", n)
		}
		ret = append(ret, signals.ID(n))
	}
	return ret, nil
}
