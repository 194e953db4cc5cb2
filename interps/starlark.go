package interps

import (
	"fmt"
	"maps"

	"github.com/reusee/starlarkutil"
	"github.com/reusee/trials/signals"
	"go.starlark.net/lib/math"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

const maxSteps = 1 << 20

type Starlark struct {
	predeclared starlark.StringDict
	options     *syntax.FileOptions
}

var _ Interpreter = new(Starlark)

func NewStarlark(logf func(string)) *Starlark {
	predeclared := starlark.StringDict{
		"math": math.Module,
	}
	if logf != nil {
		predeclared["log"] = starlarkutil.MakeFunc("log", logf)
	}
	return &Starlark{
		predeclared: predeclared,
		options: &syntax.FileOptions{
			Set:             true,
			While:           true,
			TopLevelControl: true,
			GlobalReassign:  true,
		},
	}
}

func (s *Starlark) env(vars map[string]signals.Value) starlark.StringDict {
	env := maps.Clone(s.predeclared)
	for name, value := range vars {
		env[name] = toStarlark(value)
	}
	return env
}

func (s *Starlark) thread(name string) *starlark.Thread {
	thread := &starlark.Thread{
		Name: name,
	}
	thread.SetMaxExecutionSteps(maxSteps)
	return thread
}

func (s *Starlark) Evaluate(expr string, vars map[string]signals.Value) (signals.Value, error) {
	ret, err := starlark.EvalOptions(s.options, s.thread("eval"), "expr", expr, s.env(vars))
	if err != nil {
		return signals.Value{}, err
	}
	return fromStarlark(ret)
}

func (s *Starlark) Execute(name, program string, vars map[string]signals.Value) (map[string]signals.Value, error) {
	globals, err := starlark.ExecFileOptions(s.options, s.thread(name), name, program, s.env(vars))
	if err != nil {
		return nil, err
	}
	ret := make(map[string]signals.Value, len(globals))
	for k, v := range globals {
		value, err := fromStarlark(v)
		if err != nil {
			// functions and containers stay private to the program
			continue
		}
		ret[k] = value
	}
	return ret, nil
}

func toStarlark(v signals.Value) starlark.Value {
	switch v.Kind() {
	case signals.KindBool:
		b, _ := v.AsBool()
		return starlark.Bool(b)
	case signals.KindInt:
		i, _ := v.AsInt()
		return starlark.MakeInt64(i)
	case signals.KindFloat:
		f, _ := v.AsFloat()
		return starlark.Float(f)
	case signals.KindText:
		s, _ := v.AsText()
		return starlark.String(s)
	}
	return starlark.None
}

func fromStarlark(v starlark.Value) (signals.Value, error) {
	switch v := v.(type) {
	case starlark.NoneType:
		return signals.Null(), nil
	case starlark.Bool:
		return signals.Bool(bool(v)), nil
	case starlark.Int:
		i, ok := v.Int64()
		if !ok {
			return signals.Value{}, fmt.Errorf("integer out of range: %v", v)
		}
		return signals.Int(i), nil
	case starlark.Float:
		return signals.Float(float64(v)), nil
	case starlark.String:
		return signals.Text(string(v)), nil
	}
	return signals.Value{}, fmt.Errorf("unsupported result type: %s", v.Type())
}
