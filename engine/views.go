package engine

import (
	"strings"

	"github.com/reusee/trials/actions"
	"github.com/reusee/trials/signals"
	"github.com/reusee/trials/trees"
)

// Rect is a region in unit coordinates of the block area.
type Rect struct {
	X, Y, W, H float64
}

// View is an active visual leaf and where to draw it.
type View struct {
	Node   trees.NodeID
	Path   string
	Kind   actions.Kind
	Rect   Rect
	Header string
	Text   string
	Src    string
}

// Views lists the visual leaves active after the last tick, in traversal order.
func (e *Engine) Views() []View {
	if !e.started {
		return nil
	}
	var views []View
	e.views(e.tree.Root, Rect{W: 1, H: 1}, &views)
	return views
}

func (e *Engine) views(id trees.NodeID, rect Rect, views *[]View) {
	if e.nodes[id].state != Active {
		return
	}
	node := e.tree.Node(id)
	view := View{
		Node: id,
		Path: node.Path,
		Kind: node.Kind(),
		Rect: rect,
	}
	switch config := node.Config.(type) {

	case actions.Stack:
		offset := 0.0
		for i, child := range node.Children {
			share := 1 / float64(len(node.Children))
			if i < len(config.Proportions) {
				share = config.Proportions[i]
			}
			sub := rect
			if config.Direction == actions.Vertical {
				sub.Y = rect.Y + offset*rect.H
				sub.H = share * rect.H
			} else {
				sub.X = rect.X + offset*rect.W
				sub.W = share * rect.W
			}
			offset += share
			e.views(child, sub, views)
		}
		return

	case actions.Instruction:
		view.Header = config.Header
		view.Text = e.expand(config.Text, config.In)
		*views = append(*views, view)

	case actions.Fixation:
		*views = append(*views, view)

	case actions.Image:
		view.Src = config.Src
		if config.Width > 0 {
			view.Rect.W = config.Width * rect.W
		}
		if config.Height > 0 {
			view.Rect.H = config.Height * rect.H
		}
		*views = append(*views, view)

	case actions.Video:
		view.Src = config.Src
		*views = append(*views, view)

	}
	for _, child := range node.Children {
		e.views(child, rect, views)
	}
}

// expand replaces {name} with the current value of the input mapped to name.
func (e *Engine) expand(text string, in map[signals.ID]string) string {
	if len(in) == 0 {
		return text
	}
	pairs := make([]string, 0, len(in)*2)
	for id, name := range in {
		repr := ""
		if value, ok := e.bus.Read(id); ok {
			if s, ok := value.AsText(); ok {
				repr = s
			} else {
				repr = value.String()
			}
		}
		pairs = append(pairs, "{"+name+"}", repr)
	}
	return strings.NewReplacer(pairs...).Replace(text)
}
