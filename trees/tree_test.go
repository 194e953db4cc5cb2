package trees

import (
	"testing"
	"time"

	"github.com/reusee/trials/actions"
	"github.com/reusee/trials/signals"
)

func TestGraft(t *testing.T) {
	tree := New()
	root := tree.Add(NoNode, actions.Seq{}, "seq")
	tree.Add(root, actions.Nil{}, "seq/0/nil")

	sub := New()
	par := sub.Add(NoNode, actions.Par{Primary: 2}, "par")
	sub.Add(par, actions.Fixation{}, "par/0/fixation")
	sub.Add(par, actions.Wait{}, "par/1/wait")

	grafted := tree.Graft(sub, root, "seq/1")
	if grafted != 2 {
		t.Fatalf("got %v", grafted)
	}
	if len(tree.Node(root).Children) != 2 || tree.Node(root).Children[1] != grafted {
		t.Fatal()
	}
	node := tree.Node(grafted)
	if node.Parent != root || node.Children[0] != 3 || node.Children[1] != 4 {
		t.Fatalf("got %+v", node)
	}
	if tree.Node(4).Parent != grafted || tree.Node(4).Path != "seq/1/par/1/wait" {
		t.Fatalf("got %+v", tree.Node(4))
	}
	// the source arena is untouched
	if sub.Node(par).Children[0] != 1 {
		t.Fatal()
	}
}

func TestCommonAncestor(t *testing.T) {
	tree := New()
	root := tree.Add(NoNode, actions.Par{Primary: 2}, "par")
	a := tree.Add(root, actions.Seq{}, "a")
	a1 := tree.Add(a, actions.Nil{}, "a1")
	b := tree.Add(root, actions.Nil{}, "b")
	if tree.Common(a1, b) != root {
		t.Fatal()
	}
	if tree.Common(a1, a) != a {
		t.Fatal()
	}
	if got := tree.Ancestors(a1); len(got) != 2 || got[0] != a || got[1] != root {
		t.Fatalf("got %v", got)
	}
	if got := tree.PreOrder(); len(got) != 4 || got[2] != a1 {
		t.Fatalf("got %v", got)
	}
}

func TestInfinite(t *testing.T) {
	tree := New()
	root := tree.Add(NoNode, actions.Par{Mode: actions.ModeAny, Primary: 2}, "par")
	tree.Add(root, actions.Fixation{}, "fixation")
	tree.Add(root, actions.Wait{}, "wait")
	if tree.Infinite(root) {
		t.Fatal()
	}
	tree.Nodes[root].Config = actions.Par{Mode: actions.ModeAll, Primary: 2}
	if !tree.Infinite(root) {
		t.Fatal()
	}
	tree.Nodes[root].Config = actions.Par{Mode: actions.ModeAll, Primary: 0}
	if tree.Infinite(root) {
		t.Fatal()
	}
}

func TestDeclares(t *testing.T) {
	tree := New()
	root := tree.Add(NoNode, actions.Until{Event: 2}, "until")
	tree.Add(root, actions.Clock{Step: time.Second, Out: 1}, "until/clock")
	for id, want := range map[signals.ID]bool{1: true, 2: true, 3: false} {
		if got := tree.Declares(id); got != want {
			t.Fatalf("%d: got %v", id, got)
		}
	}
}
