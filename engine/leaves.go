package engine

import (
	"slices"

	"github.com/reusee/trials/actions"
	"github.com/reusee/trials/recorders"
	"github.com/reusee/trials/signals"
	"github.com/reusee/trials/trees"
)

func (e *Engine) startLeaf(id trees.NodeID, node *trees.Node) {
	n := &e.nodes[id]
	switch config := node.Config.(type) {

	case actions.Function:
		run, err := e.startFunction(config)
		if err != nil {
			n.startErr = err
			return
		}
		n.leaf = run

	case actions.Process:
		run, err := e.startProcess(config)
		if err != nil {
			n.startErr = err
			return
		}
		n.leaf = run

	case actions.Audio:
		e.startMedia(n, config.Media)

	case actions.Video:
		e.startMedia(n, config.Media)

	case actions.Event:
		e.record(recorders.GroupEvent, config.Name, signals.None, signals.Text("start"))

	case actions.Logger:
		e.loggers = append(e.loggers, id)

	case actions.Reaction:
		n.leaf = new(reactionRun)
		e.record(config.Group, "event", signals.None, signals.Text("start"))

	}
}

func (e *Engine) stepLeaf(id trees.NodeID, node *trees.Node) {
	n := &e.nodes[id]
	switch config := node.Config.(type) {

	case actions.Instruction:
		if !config.Persistent && e.proceed {
			e.proceed = false
			e.finish(id, e.now)
		}

	case actions.Counter:
		if e.clicks == 0 {
			return
		}
		n.count += int64(e.clicks)
		e.clicks = 0
		e.record(recorders.GroupCounter, node.Path, signals.None, signals.Int(n.count))
		if n.count >= int64(config.Count) {
			e.finish(id, e.now)
		}

	case actions.KeyLogger:
		for _, key := range e.input.Keys {
			e.record(config.Group, "key", config.Out, signals.Text(key))
			if config.Out != signals.None {
				e.write(id, config.Out, signals.Text(key))
			}
		}

	case actions.Clock:
		k := int64(e.now.Sub(n.nominal) / config.Step)
		if k >= n.count {
			n.count = k + 1
			if config.Out != signals.None {
				e.write(id, config.Out, signals.Int(k))
			}
		}

	case actions.Reaction:
		e.stepReaction(id, config, n.leaf.(*reactionRun))

	case actions.Function:
		e.stepFunction(id, config, n.leaf.(*functionRun))

	case actions.Process:
		e.stepProcess(id, config, n.leaf.(*processRun))

	case actions.Audio:
		e.stepMedia(id, config.Media, n.leaf.(*mediaRun))

	case actions.Video:
		e.stepMedia(id, config.Media, n.leaf.(*mediaRun))

	}
	// fixation, image, reaction, timer, event, logger run until cancelled
}

// release frees what a node holds. It runs once, when the node leaves Active.
func (e *Engine) release(id trees.NodeID) {
	n := &e.nodes[id]
	node := e.tree.Node(id)
	switch config := node.Config.(type) {

	case actions.Timer:
		elapsed := e.now.Sub(n.activated)
		e.record(recorders.GroupTimer, config.Name, signals.None, signals.Float(elapsed.Seconds()))

	case actions.Event:
		e.record(recorders.GroupEvent, config.Name, signals.None, signals.Text("stop"))

	case actions.Reaction:
		if run, ok := n.leaf.(*reactionRun); ok {
			e.stopReaction(id, config, run)
		}

	case actions.Logger:
		e.loggers = slices.DeleteFunc(e.loggers, func(l trees.NodeID) bool {
			return l == id
		})

	}
	switch leaf := n.leaf.(type) {
	case *processRun:
		leaf.proc.Kill()
	case *mediaRun:
		leaf.handle.Stop()
	}
	n.leaf = nil
}
