package trees

import (
	"errors"
	"slices"

	"github.com/reusee/trials/actions"
	"github.com/reusee/trials/signals"
)

// Validate checks tree-wide constraints. All failures are joined.
func (t *Tree) Validate() error {
	if t.Root == NoNode {
		return actions.Definitionf("empty tree")
	}
	var errs []error
	fail := func(id NodeID, err error) {
		errs = append(errs, &actions.NodeError{
			Path: t.Nodes[id].Path,
			Kind: t.Nodes[id].Kind(),
			Err:  err,
		})
	}

	// unreachable children
	for _, id := range t.PreOrder() {
		node := &t.Nodes[id]
		if node.Kind() != actions.KindSeq {
			continue
		}
		for i, child := range node.Children[:max(len(node.Children)-1, 0)] {
			if t.Infinite(child) {
				fail(node.Children[i+1], actions.Definitionf("unreachable action after infinite %s", t.Nodes[child].Kind()))
				break
			}
		}
	}

	// every input needs a writer that can run before the reader
	order := make(map[NodeID]int, len(t.Nodes))
	for i, id := range t.PreOrder() {
		order[id] = i
	}
	writers := t.Writers()
	for _, reader := range t.PreOrder() {
		for _, in := range t.Nodes[reader].Config.Inputs() {
			if slices.Contains(t.External, in) {
				continue
			}
			if !slices.ContainsFunc(writers[in], func(writer NodeID) bool {
				return t.upstream(writer, reader, order)
			}) {
				fail(reader, actions.Definitionf("signal %d has no writer upstream", in))
			}
		}
	}

	return errors.Join(errs...)
}

func (t *Tree) upstream(writer, reader NodeID, order map[NodeID]int) bool {
	if writer == reader {
		return false
	}
	if order[writer] < order[reader] {
		return true
	}
	common := t.Common(writer, reader)
	if common == NoNode {
		return false
	}
	if t.Nodes[common].Kind().IsConcurrent() {
		return true
	}
	// a later sibling under a repeat wrote the value in the previous iteration
	for n := common; n != NoNode; n = t.Nodes[n].Parent {
		if t.Nodes[n].Kind() == actions.KindRepeat {
			return true
		}
	}
	return false
}

// Declares reports whether id is an input of some node or an output of some node.
func (t *Tree) Declares(id signals.ID) bool {
	for _, node := range t.Nodes {
		if slices.Contains(node.Config.Inputs(), id) || slices.Contains(node.Config.Outputs(), id) {
			return true
		}
	}
	return false
}
