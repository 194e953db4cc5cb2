package trees

import "github.com/reusee/trials/actions"

// Infinite reports whether the node at id never completes on its own.
func (t *Tree) Infinite(id NodeID) bool {
	node := &t.Nodes[id]
	children := node.Children
	switch config := node.Config.(type) {

	case actions.Seq:
		if len(children) == 0 {
			return false
		}
		return t.Infinite(children[len(children)-1])

	case actions.Par:
		return t.primaryInfinite(children[:config.Primary], config.Mode)

	case actions.Stack:
		return t.primaryInfinite(children[:config.Primary], config.Mode)

	case actions.Repeat:
		if config.Iters == 0 {
			return true
		}
		return len(children) > 0 && t.Infinite(children[0])

	case actions.Switch:
		inf := func(pos int) bool {
			return pos >= 0 && t.Infinite(children[pos])
		}
		return inf(config.IfTrue) && inf(config.IfFalse)

	case actions.Delayed:
		return len(children) > 0 && t.Infinite(children[0])

	case actions.Until, actions.Timeout, actions.Wait, actions.Merge, actions.Nil,
		actions.Counter:
		return false

	case actions.Instruction:
		return config.Persistent

	case actions.Audio:
		return config.Looping

	case actions.Video:
		return config.Looping

	case actions.Function:
		return !config.Once

	case actions.Process:
		return !config.Once

	case actions.Fixation, actions.Image, actions.KeyLogger, actions.Clock,
		actions.Timer, actions.Event, actions.Logger, actions.Reaction:
		return true

	}
	return false
}

func (t *Tree) primaryInfinite(primary []NodeID, mode actions.Mode) bool {
	if len(primary) == 0 {
		return false
	}
	for _, child := range primary {
		inf := t.Infinite(child)
		if mode == actions.ModeAll && inf {
			return true
		}
		if mode == actions.ModeAny && !inf {
			return false
		}
	}
	return mode == actions.ModeAny
}
