package engine

import (
	"maps"

	"github.com/reusee/trials/actions"
	"github.com/reusee/trials/recorders"
	"github.com/reusee/trials/signals"
	"github.com/reusee/trials/subprocs"
	"github.com/reusee/trials/trees"
)

type processRun struct {
	proc    *subprocs.Process
	vars    map[string]signals.Value
	watch   *watch
	started bool
	// a request is out and its response not yet consumed
	pending bool
	// a trigger arrived while pending
	deferred bool
}

func (e *Engine) startProcess(config actions.Process) (*processRun, error) {
	proc, err := subprocs.Start(e.options.Context, config.Src, config.Args, config.Response)
	if err != nil {
		return nil, err
	}
	vars := maps.Clone(config.Vars)
	if vars == nil {
		vars = make(map[string]signals.Value)
	}
	return &processRun{
		proc:  proc,
		vars:  vars,
		watch: newWatch(e.bus, config.In, config.Update),
	}, nil
}

func (e *Engine) stepProcess(id trees.NodeID, config actions.Process, run *processRun) {
	if response, ok := run.next(config); ok {
		if e.emit(id, config, response); !e.alive(id) {
			return
		}
	}
	if config.Passive {
		return
	}

	fire := false
	if !run.started {
		run.started = true
		fire = config.OnStart
	}
	changed, updated := run.watch.poll(e.bus)
	if changed && config.OnChange || updated {
		fire = true
	}
	if config.Blocking && run.pending {
		if fire {
			run.deferred = true
		}
		return
	}
	if !fire && !run.deferred {
		return
	}
	run.deferred = false
	run.watch.bind(e.bus, run.vars)
	if err := run.proc.Send(run.vars); err != nil {
		e.fail(id, actions.Runtimef("send to %s: %v", config.Src, err))
		return
	}
	run.pending = true
}

// next takes at most one response from the mailbox. The mailbox is polled even with
// nothing pending, so a child exiting between requests ends the leaf.
func (run *processRun) next(config actions.Process) (subprocs.Response, bool) {
	response, ok := run.proc.Poll()
	if !ok {
		return response, false
	}
	if config.DropEarly {
		for !response.End {
			later, ok := run.proc.Poll()
			if !ok {
				break
			}
			response = later
		}
	}
	if config.Blocking && !config.Passive && !run.pending && !response.End && response.Err == nil {
		response = subprocs.Response{Err: actions.Runtimef("response without request")}
	}
	run.pending = false
	return response, true
}

func (e *Engine) emit(id trees.NodeID, config actions.Process, response subprocs.Response) {
	if response.Err != nil {
		e.fail(id, actions.Runtimef("%s: %v", config.Src, response.Err))
		return
	}
	if response.End {
		e.finish(id, e.now)
		return
	}
	if config.Out != signals.None {
		e.write(id, config.Out, response.Value)
	}
	if config.Name != "" {
		e.record(recorders.GroupProcess, config.Name, config.Out, response.Value)
	}
	if config.Once {
		e.finish(id, e.now)
	}
}
