package engine

import (
	"errors"
	"time"

	"github.com/reusee/trials/actions"
	"github.com/reusee/trials/recorders"
	"github.com/reusee/trials/signals"
	"github.com/reusee/trials/timings"
	"github.com/reusee/trials/trees"
)

func (e *Engine) activate(id trees.NodeID, nominal time.Time) {
	node := e.tree.Node(id)
	n := &e.nodes[id]
	*n = nodeState{
		state:     Active,
		activated: e.now,
		nominal:   nominal,
		branch:    -1,
	}
	e.reportDrift(node, nominal)

	switch config := node.Config.(type) {

	case actions.Seq:
		if len(node.Children) > 0 {
			e.activate(node.Children[0], nominal)
		}

	case actions.Par, actions.Stack:
		for _, child := range node.Children {
			e.activate(child, nominal)
		}

	case actions.Repeat, actions.Timeout:
		e.activate(node.Children[0], nominal)

	case actions.Until:
		n.mark = e.bus.Seq(config.Event)
		e.activate(node.Children[0], nominal)

	case actions.Switch:
		// the branch is fixed here and never re-read
		value, ok := e.bus.Read(config.Control)
		var cond bool
		switch {
		case ok:
			cond = value.Truthy()
		case config.HasDefault:
			cond = config.Default
		default:
			n.startErr = actions.Runtimef("control signal %d has no value", config.Control)
			return
		}
		pos := config.IfFalse
		if cond {
			pos = config.IfTrue
		}
		if pos >= 0 {
			n.branch = pos
			e.activate(node.Children[pos], nominal)
		}

	case actions.Delayed, actions.Wait, actions.Nil, actions.Merge:

	default:
		e.startLeaf(id, node)
	}
}

func (e *Engine) reportDrift(node *trees.Node, nominal time.Time) {
	if e.options.Policy != timings.RespectBoundaries {
		return
	}
	switch node.Kind() {
	case actions.KindWait, actions.KindTimeout, actions.KindDelayed, actions.KindClock:
	default:
		return
	}
	drift := timings.Drift(nominal, e.now)
	if drift == 0 {
		return
	}
	e.record(recorders.GroupDrift, node.Path, signals.None, signals.Float(drift.Seconds()))
	if drift > timings.Period(e.options.Rate) {
		e.logger.Warn("drift", "node", node.Path, "drift", drift)
	}
}

// step advances an active node once per tick.
func (e *Engine) step(id trees.NodeID) {
	n := &e.nodes[id]
	if e.err != nil || n.state != Active || n.stepped == e.tick+1 {
		return
	}
	n.stepped = e.tick + 1
	if n.startErr != nil {
		e.fail(id, n.startErr)
		return
	}
	node := e.tree.Node(id)

	switch config := node.Config.(type) {

	case actions.Seq:
		e.stepSeq(id, node)

	case actions.Par:
		e.stepPar(id, node, config.Mode, config.Primary)

	case actions.Stack:
		e.stepPar(id, node, config.Mode, config.Primary)

	case actions.Repeat:
		inner := node.Children[0]
		e.step(inner)
		if !e.alive(id) || e.nodes[inner].state != Done {
			return
		}
		n.iter++
		end := e.nodes[inner].nominalEnd
		if config.Iters > 0 && n.iter >= config.Iters {
			e.finish(id, end)
			return
		}
		e.reset(inner)
		e.activate(inner, e.options.Policy.Start(e.now, end))
		// first stepped on the next tick
		e.nodes[inner].stepped = e.tick + 1

	case actions.Until:
		inner := node.Children[0]
		if e.untilFired(n, config) {
			e.finish(id, e.now)
			return
		}
		e.step(inner)
		if !e.alive(id) {
			return
		}
		if e.nodes[inner].state == Done {
			e.finish(id, e.nodes[inner].nominalEnd)
		} else if e.untilFired(n, config) {
			e.finish(id, e.now)
		}

	case actions.Switch:
		if n.branch < 0 {
			e.finish(id, n.nominal)
			return
		}
		branch := node.Children[n.branch]
		e.step(branch)
		if e.alive(id) && e.nodes[branch].state == Done {
			e.finish(id, e.nodes[branch].nominalEnd)
		}

	case actions.Timeout:
		deadline := n.nominal.Add(config.Duration)
		if !e.now.Before(deadline) {
			e.finish(id, deadline)
			return
		}
		e.step(node.Children[0])

	case actions.Delayed:
		inner := node.Children[0]
		if !n.armed {
			deadline := n.nominal.Add(config.Duration)
			if e.now.Before(deadline) {
				return
			}
			n.armed = true
			e.activate(inner, e.options.Policy.Start(e.now, deadline))
		}
		e.step(inner)
		if e.alive(id) && e.nodes[inner].state == Done {
			e.finish(id, e.nodes[inner].nominalEnd)
		}

	case actions.Wait:
		end := n.nominal.Add(config.Duration)
		if !e.now.Before(end) {
			e.finish(id, end)
		}

	case actions.Nil:
		e.finish(id, n.nominal)

	case actions.Merge:
		e.route(id, config)
		e.finish(id, n.nominal)
		n.lingering = true

	default:
		e.stepLeaf(id, node)
	}
}

func (e *Engine) alive(id trees.NodeID) bool {
	return e.err == nil && e.nodes[id].state == Active
}

func (e *Engine) stepSeq(id trees.NodeID, node *trees.Node) {
	n := &e.nodes[id]
	if len(node.Children) == 0 {
		e.finish(id, n.nominal)
		return
	}
	for _, child := range node.Children[:n.cursor] {
		e.linger(child)
	}
	for {
		child := node.Children[n.cursor]
		e.step(child)
		if !e.alive(id) || e.nodes[child].state != Done {
			return
		}
		end := e.nodes[child].nominalEnd
		n.cursor++
		if n.cursor == len(node.Children) {
			e.finish(id, end)
			return
		}
		e.activate(node.Children[n.cursor], e.options.Policy.Start(e.now, end))
	}
}

func (e *Engine) stepPar(id trees.NodeID, node *trees.Node, mode actions.Mode, primary int) {
	n := &e.nodes[id]
	for _, child := range node.Children {
		if e.nodes[child].lingering {
			e.linger(child)
		} else {
			e.step(child)
		}
		if !e.alive(id) {
			return
		}
	}
	if primary == 0 {
		e.finish(id, n.nominal)
		return
	}
	var end time.Time
	done := 0
	for _, child := range node.Children[:primary] {
		c := &e.nodes[child]
		if c.state != Done {
			continue
		}
		done++
		if c.nominalEnd.After(end) {
			end = c.nominalEnd
		}
		if mode == actions.ModeAny {
			e.finish(id, c.nominalEnd)
			return
		}
	}
	if done == primary {
		e.finish(id, end)
	}
}

func (e *Engine) untilFired(n *nodeState, config actions.Until) bool {
	if config.Event != signals.None {
		// any write counts, whatever the value
		if seq := e.bus.Seq(config.Event); seq > n.mark {
			n.mark = seq
			return true
		}
	}
	if config.Condition != signals.None {
		if value, ok := e.bus.Read(config.Condition); ok && value.Truthy() {
			return true
		}
	}
	return false
}

// finish completes a node and cancels the children still running under it.
func (e *Engine) finish(id trees.NodeID, end time.Time) {
	n := &e.nodes[id]
	if n.state != Active {
		return
	}
	n.state = Done
	n.nominalEnd = end
	for _, child := range e.tree.Node(id).Children {
		e.cancel(child)
	}
	e.release(id)
}

func (e *Engine) cancel(id trees.NodeID) {
	n := &e.nodes[id]
	n.lingering = false
	if n.state != Active {
		return
	}
	for _, child := range e.tree.Node(id).Children {
		e.cancel(child)
	}
	n.state = Done
	n.cancelled = true
	n.nominalEnd = e.now
	e.release(id)
}

// reset returns a finished subtree to Pending for another run.
func (e *Engine) reset(id trees.NodeID) {
	e.tree.Walk(id, func(sub trees.NodeID) bool {
		e.nodes[sub] = nodeState{}
		return true
	})
}

func (e *Engine) fail(id trees.NodeID, err error) {
	node := e.tree.Node(id)
	nodeErr := &actions.NodeError{
		Path: node.Path,
		Kind: node.Kind(),
		Err:  err,
	}
	e.record(recorders.GroupError, node.Path, signals.None, signals.Text(err.Error()))
	e.logger.Warn("action error", "node", node.Path, "error", err)
	if out := errorSignal(node.Config); out != signals.None {
		e.write(id, out, signals.Text(err.Error()))
	}
	if e.options.OnResourceError == ResourceEscalate && isResource(err) {
		e.escalate(id, nodeErr)
		return
	}
	e.nodes[id].err = nodeErr
	e.finish(id, e.now)
}

func errorSignal(config actions.Config) signals.ID {
	switch config := config.(type) {
	case actions.Audio:
		return config.OutError
	case actions.Video:
		return config.OutError
	case actions.Function:
		return config.OutError
	case actions.Process:
		return config.OutError
	}
	return signals.None
}

func isResource(err error) bool {
	return errors.Is(err, actions.ErrResource)
}
