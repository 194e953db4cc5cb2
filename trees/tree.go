package trees

import (
	"github.com/reusee/trials/actions"
	"github.com/reusee/trials/signals"
)

// NodeID indexes Tree.Nodes.
type NodeID int32

const NoNode NodeID = -1

type Node struct {
	Config   actions.Config
	Parent   NodeID
	Children []NodeID
	Path     string
}

func (n *Node) Kind() actions.Kind {
	return n.Config.Kind()
}

// Tree is an arena of nodes. A parent owns its children and every node has one parent.
type Tree struct {
	Nodes    []Node
	Root     NodeID
	External []signals.ID
}

func New() *Tree {
	return &Tree{
		Root: NoNode,
	}
}

func (t *Tree) Node(id NodeID) *Node {
	return &t.Nodes[id]
}

func (t *Tree) Len() int {
	return len(t.Nodes)
}

func (t *Tree) Add(parent NodeID, config actions.Config, path string) NodeID {
	id := NodeID(len(t.Nodes))
	t.Nodes = append(t.Nodes, Node{
		Config: config,
		Parent: parent,
		Path:   path,
	})
	if parent == NoNode {
		if t.Root == NoNode {
			t.Root = id
		}
	} else {
		t.Nodes[parent].Children = append(t.Nodes[parent].Children, id)
	}
	return id
}

// Graft appends every node of sub, shifting its indices, and attaches its root under parent.
func (t *Tree) Graft(sub *Tree, parent NodeID, prefix string) NodeID {
	if sub.Root == NoNode {
		return NoNode
	}
	offset := NodeID(len(t.Nodes))
	for _, node := range sub.Nodes {
		children := make([]NodeID, len(node.Children))
		for i, child := range node.Children {
			children[i] = child + offset
		}
		if node.Parent != NoNode {
			node.Parent += offset
		}
		node.Children = children
		if prefix != "" {
			node.Path = prefix + "/" + node.Path
		}
		t.Nodes = append(t.Nodes, node)
	}
	root := sub.Root + offset
	t.Nodes[root].Parent = parent
	if parent == NoNode {
		if t.Root == NoNode {
			t.Root = root
		}
	} else {
		t.Nodes[parent].Children = append(t.Nodes[parent].Children, root)
	}
	t.External = append(t.External, sub.External...)
	return root
}

// Walk visits the subtree at id in pre-order. Returning false skips the children of a node.
func (t *Tree) Walk(id NodeID, fn func(NodeID) bool) {
	if id == NoNode {
		return
	}
	if !fn(id) {
		return
	}
	for _, child := range t.Nodes[id].Children {
		t.Walk(child, fn)
	}
}

func (t *Tree) PreOrder() []NodeID {
	ret := make([]NodeID, 0, len(t.Nodes))
	t.Walk(t.Root, func(id NodeID) bool {
		ret = append(ret, id)
		return true
	})
	return ret
}

// Ancestors returns id's ancestors from its parent up to the root.
func (t *Tree) Ancestors(id NodeID) []NodeID {
	var ret []NodeID
	for p := t.Nodes[id].Parent; p != NoNode; p = t.Nodes[p].Parent {
		ret = append(ret, p)
	}
	return ret
}

// Common returns the lowest common ancestor of a and b, which may be either of them.
func (t *Tree) Common(a, b NodeID) NodeID {
	seen := make(map[NodeID]bool)
	for n := a; n != NoNode; n = t.Nodes[n].Parent {
		seen[n] = true
	}
	for n := b; n != NoNode; n = t.Nodes[n].Parent {
		if seen[n] {
			return n
		}
	}
	return NoNode
}

// Writers maps each signal id to the nodes that declare it as an output.
func (t *Tree) Writers() map[signals.ID][]NodeID {
	ret := make(map[signals.ID][]NodeID)
	for _, id := range t.PreOrder() {
		for _, out := range t.Nodes[id].Config.Outputs() {
			ret[out] = append(ret[out], id)
		}
	}
	return ret
}
