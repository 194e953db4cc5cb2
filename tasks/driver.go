package tasks

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"github.com/reusee/trials/actions"
	"github.com/reusee/trials/procs"
	"github.com/reusee/trials/signals"
)

// Session is the state threaded through the blocks of one task run.
type Session struct {
	Context context.Context
	Runner  *Runner
	Task    *Task
	// Carry holds the latest value of every signal seen by earlier blocks.
	Carry   signals.Snapshot
	Results []*Result
	stopped bool
}

type blockProc struct {
	block *Block
}

var _ procs.Proc[*Session] = blockProc{}

func (b blockProc) Run(session *Session) (procs.Proc[*Session], error) {
	if session.stopped {
		return nil, nil
	}
	result, err := session.Runner.RunBlock(session.Context, session.Task, b.block, session.Carry)
	if err != nil {
		if !errors.Is(err, actions.ErrDefinition) && !errors.Is(err, actions.ErrResource) {
			return nil, err
		}
		// reported, the task goes on
		result.Err = err
	}
	session.Results = append(session.Results, result)
	maps.Copy(session.Carry, result.Snapshot)
	if result.Interrupted {
		session.stopped = true
	}
	return nil, nil
}

// RunTask runs the named blocks in order, or every block when names is empty.
// An interrupted block ends the run.
func (r *Runner) RunTask(ctx context.Context, task *Task, names ...string) ([]*Result, error) {
	r.defaults()
	var list procs.Procs[*Session]
	if len(names) == 0 {
		for i := range task.Blocks {
			list = append(list, blockProc{block: &task.Blocks[i]})
		}
	}
	for _, name := range names {
		block, ok := task.Block(name)
		if !ok {
			return nil, fmt.Errorf("no block named %q in %s", name, task.Name)
		}
		list = append(list, blockProc{block: block})
	}

	if r.NewSpan != nil {
		ctx, _ = r.NewSpan(ctx, "task "+task.Name)
	}
	session := &Session{
		Context: ctx,
		Runner:  r,
		Task:    task,
		Carry:   make(signals.Snapshot),
	}
	list = append(list, procs.Func[*Session](summary))
	if err := procs.Run(session, procs.Proc[*Session](list)); err != nil {
		return session.Results, err
	}
	return session.Results, nil
}

func summary(session *Session) (procs.Proc[*Session], error) {
	failed := 0
	for _, result := range session.Results {
		if result.Err != nil {
			failed++
		}
	}
	session.Runner.Logger.InfoContext(session.Context, "task run",
		"task", session.Task.Name,
		"blocks", len(session.Results),
		"failed", failed,
		"stopped", session.stopped,
	)
	return nil, nil
}
