package engine

import (
	"maps"

	"github.com/reusee/trials/actions"
	"github.com/reusee/trials/interps"
	"github.com/reusee/trials/recorders"
	"github.com/reusee/trials/signals"
	"github.com/reusee/trials/trees"
)

// resultName is the global a program stores its result in.
const resultName = "result"

const selfName = "self"

// watch tracks which bound inputs were written since the last look.
type watch struct {
	in     map[signals.ID]string
	update []signals.ID
	seen   map[signals.ID]uint64
}

func newWatch(bus *signals.Bus, in map[signals.ID]string, update []signals.ID) *watch {
	w := &watch{
		in:     in,
		update: update,
		seen:   make(map[signals.ID]uint64),
	}
	for id := range in {
		w.seen[id] = bus.Seq(id)
	}
	for _, id := range update {
		w.seen[id] = bus.Seq(id)
	}
	return w
}

// poll reports whether a mapped input changed and whether an update input was written.
func (w *watch) poll(bus *signals.Bus) (changed, updated bool) {
	for id := range w.in {
		if seq := bus.Seq(id); seq != w.seen[id] {
			w.seen[id] = seq
			changed = true
		}
	}
	for _, id := range w.update {
		if seq := bus.Seq(id); seq != w.seen[id] {
			w.seen[id] = seq
			updated = true
		}
	}
	return
}

// bind copies mapped inputs into vars. Unwritten inputs are null.
func (w *watch) bind(bus *signals.Bus, vars map[string]signals.Value) {
	for id, name := range w.in {
		value, ok := bus.Read(id)
		if !ok {
			value = signals.Null()
		}
		vars[name] = value
	}
}

type functionRun struct {
	interp  interps.Interpreter
	vars    map[string]signals.Value
	watch   *watch
	started bool
}

func (e *Engine) startFunction(config actions.Function) (*functionRun, error) {
	name := config.Interpreter
	if name == "" {
		name = e.options.Interpreter
	}
	interp, err := e.options.Interpreters.Get(name)
	if err != nil {
		return nil, actions.Resourcef("%v", err)
	}
	run := &functionRun{
		interp: interp,
		vars:   maps.Clone(config.Vars),
		watch:  newWatch(e.bus, config.In, config.Update),
	}
	if run.vars == nil {
		run.vars = make(map[string]signals.Value)
	}
	if _, ok := run.vars[selfName]; !ok {
		run.vars[selfName] = signals.Null()
	}
	run.watch.bind(e.bus, run.vars)

	switch {
	case config.InitExpr != "":
		value, err := interp.Evaluate(config.InitExpr, run.vars)
		if err != nil {
			return nil, actions.Runtimef("init: %v", err)
		}
		run.vars[selfName] = value
	case config.InitProgram != "":
		globals, err := interp.Execute(config.Name+".init", config.InitProgram, run.vars)
		if err != nil {
			return nil, actions.Runtimef("init: %v", err)
		}
		result, ok := globals[resultName]
		delete(globals, resultName)
		maps.Copy(run.vars, globals)
		if ok {
			run.vars[selfName] = result
		}
	}
	return run, nil
}

func (run *functionRun) call(config actions.Function) (signals.Value, error) {
	if config.Expr != "" {
		return run.interp.Evaluate(config.Expr, run.vars)
	}
	globals, err := run.interp.Execute(config.Name, config.Program, run.vars)
	if err != nil {
		return signals.Value{}, err
	}
	if result, ok := globals[resultName]; ok {
		return result, nil
	}
	return signals.Null(), nil
}

func (e *Engine) stepFunction(id trees.NodeID, config actions.Function, run *functionRun) {
	fire := false
	if !run.started {
		run.started = true
		fire = config.OnStart
	}
	changed, updated := run.watch.poll(e.bus)
	if changed && config.OnChange || updated {
		fire = true
	}
	if !fire {
		return
	}
	run.watch.bind(e.bus, run.vars)
	value, err := run.call(config)
	if err != nil {
		e.fail(id, actions.Runtimef("%v", err))
		return
	}
	run.vars[selfName] = value
	if config.Out != signals.None {
		e.write(id, config.Out, value)
	}
	if config.Name != "" {
		e.record(recorders.GroupFunction, config.Name, config.Out, value)
	}
	if config.Once {
		e.finish(id, e.now)
	}
}
