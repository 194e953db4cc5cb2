package trees

import (
	"slices"

	"github.com/reusee/trials/actions"
	"github.com/reusee/trials/signals"
)

func (b *Builder) constructor(parent NodeID, name string, body any, path string) (NodeID, error) {
	switch name {

	case "seq":
		docs, err := b.childList(body)
		if err != nil {
			return NoNode, err
		}
		id := b.tree.Add(parent, actions.Seq{}, path)
		return id, b.children(id, docs, path)

	case "par":
		primary, secondary, mode, err := b.parBody(body)
		if err != nil {
			return NoNode, err
		}
		id := b.tree.Add(parent, actions.Par{
			Mode:    mode,
			Primary: len(primary),
		}, path)
		return id, b.children(id, append(primary, secondary...), path)

	case "stack", "horizontal", "vertical":
		return b.stack(parent, name, body, path)

	case "repeat":
		f, isFields := body.(map[string]any)
		if !isFields || !fields(f).has("inner") {
			// bare inner, repeated forever
			id := b.tree.Add(parent, actions.Repeat{}, path)
			_, err := b.node(id, body, path)
			return id, err
		}
		if err := fields(f).check("inner", "iters"); err != nil {
			return NoNode, err
		}
		iters, err := fields(f).int("iters", 0)
		if err != nil {
			return NoNode, err
		}
		if iters < 0 {
			return NoNode, actions.Definitionf("negative iters %d", iters)
		}
		id := b.tree.Add(parent, actions.Repeat{Iters: iters}, path)
		return id, b.inner(id, fields(f), path)

	case "until":
		f, err := b.asFields(body)
		if err != nil {
			return NoNode, err
		}
		if err := f.check("inner", "in_event", "in_condition"); err != nil {
			return NoNode, err
		}
		var config actions.Until
		if config.Event, err = b.signalField(f, "in_event"); err != nil {
			return NoNode, err
		}
		if config.Condition, err = b.signalField(f, "in_condition"); err != nil {
			return NoNode, err
		}
		if config.Event == signals.None && config.Condition == signals.None {
			return NoNode, actions.Definitionf("until needs in_event or in_condition")
		}
		id := b.tree.Add(parent, config, path)
		return id, b.inner(id, f, path)

	case "switch":
		return b.switchNode(parent, body, path)

	case "timeout", "delayed":
		f, err := b.asFields(body)
		if err != nil {
			return NoNode, err
		}
		if err := f.check("duration", "inner"); err != nil {
			return NoNode, err
		}
		d, err := f.duration("duration")
		if err != nil {
			return NoNode, err
		}
		var config actions.Config = actions.Timeout{Duration: d}
		if name == "delayed" {
			config = actions.Delayed{Duration: d}
		}
		id := b.tree.Add(parent, config, path)
		return id, b.inner(id, f, path)

	case "wait":
		v := body
		if f, ok := body.(map[string]any); ok {
			if err := fields(f).check("duration"); err != nil {
				return NoNode, err
			}
			v = f["duration"]
		}
		if v == nil {
			return NoNode, actions.Definitionf("missing field %q", "duration")
		}
		d, err := parseDuration(v)
		if err != nil {
			return NoNode, err
		}
		return b.tree.Add(parent, actions.Wait{Duration: d}, path), nil

	case "nil":
		if body != nil {
			return NoNode, actions.Definitionf("nil takes no fields")
		}
		return b.tree.Add(parent, actions.Nil{}, path), nil

	case "merge":
		f, err := b.asFields(body)
		if err != nil {
			return NoNode, err
		}
		if err := f.check("in_many", "out_one", "combine"); err != nil {
			return NoNode, err
		}
		var config actions.Merge
		if config.In, err = b.signalList(f, "in_many"); err != nil {
			return NoNode, err
		}
		if config.Out, err = b.signalField(f, "out_one"); err != nil {
			return NoNode, err
		}
		combine, err := f.string("combine")
		if err != nil {
			return NoNode, err
		}
		if combine != "" {
			var ok bool
			if config.Combine, ok = actions.ParseCombine(combine); !ok {
				return NoNode, actions.Definitionf("bad combine %q", combine)
			}
		}
		switch {
		case len(config.In) == 0:
			return NoNode, actions.Definitionf("merge needs at least one input")
		case config.Out == signals.None:
			return NoNode, actions.Definitionf("merge needs out_one")
		case slices.Contains(config.In, config.Out):
			return NoNode, actions.Definitionf("merge output %d is also an input", config.Out)
		}
		return b.tree.Add(parent, config, path), nil

	}

	config, err := b.leaf(name, body)
	if err != nil {
		return NoNode, err
	}
	return b.tree.Add(parent, config, path), nil
}

func (b *Builder) childList(body any) ([]any, error) {
	if f, ok := body.(map[string]any); ok {
		if err := fields(f).check("children"); err != nil {
			return nil, err
		}
		return asList(f["children"], "children")
	}
	return asList(body, "children")
}

func (b *Builder) parBody(body any) (primary, secondary []any, mode actions.Mode, err error) {
	f, ok := body.(map[string]any)
	if !ok {
		primary, err = asList(body, "primary")
		return
	}
	if err = fields(f).check("primary", "secondary", "mode"); err != nil {
		return
	}
	if primary, err = asList(f["primary"], "primary"); err != nil {
		return
	}
	if secondary, err = asList(f["secondary"], "secondary"); err != nil {
		return
	}
	mode, err = parseMode(fields(f))
	return
}

func (b *Builder) stack(parent NodeID, name string, body any, path string) (NodeID, error) {
	config := actions.Stack{}
	if name == "vertical" {
		config.Direction = actions.Vertical
	}
	var primary, secondary []any
	var err error
	if f, ok := body.(map[string]any); ok {
		if err := fields(f).check("children", "secondary", "direction", "proportions", "mode"); err != nil {
			return NoNode, err
		}
		if primary, err = asList(f["children"], "children"); err != nil {
			return NoNode, err
		}
		if secondary, err = asList(f["secondary"], "secondary"); err != nil {
			return NoNode, err
		}
		if config.Mode, err = parseMode(fields(f)); err != nil {
			return NoNode, err
		}
		direction, err := fields(f).string("direction")
		if err != nil {
			return NoNode, err
		}
		switch direction {
		case "":
		case "horizontal":
			config.Direction = actions.Horizontal
		case "vertical":
			config.Direction = actions.Vertical
		default:
			return NoNode, actions.Definitionf("bad direction %q", direction)
		}
		props, err := asList(f["proportions"], "proportions")
		if err != nil {
			return NoNode, err
		}
		for _, p := range props {
			n, ok := toFloat(p)
			if !ok || n <= 0 {
				return NoNode, actions.Definitionf("bad proportion %v", p)
			}
			config.Proportions = append(config.Proportions, n)
		}
	} else if primary, err = asList(body, "children"); err != nil {
		return NoNode, err
	}

	if len(config.Proportions) == 0 {
		for range primary {
			config.Proportions = append(config.Proportions, 1)
		}
	} else if len(config.Proportions) != len(primary) {
		return NoNode, actions.Definitionf("%d proportions for %d children", len(config.Proportions), len(primary))
	}
	var sum float64
	for _, p := range config.Proportions {
		sum += p
	}
	for i := range config.Proportions {
		config.Proportions[i] /= sum
	}

	config.Primary = len(primary)
	id := b.tree.Add(parent, config, path)
	return id, b.children(id, append(primary, secondary...), path)
}

func (b *Builder) switchNode(parent NodeID, body any, path string) (NodeID, error) {
	f, err := b.asFields(body)
	if err != nil {
		return NoNode, err
	}
	if err := f.check("in_control", "if_true", "if_false", "default"); err != nil {
		return NoNode, err
	}
	config := actions.Switch{
		IfTrue:  -1,
		IfFalse: -1,
	}
	if config.Control, err = b.signalField(f, "in_control"); err != nil {
		return NoNode, err
	}
	if config.Control == signals.None {
		return NoNode, actions.Definitionf("switch needs in_control")
	}
	if f.has("default") {
		config.HasDefault = true
		if config.Default, err = f.bool("default", false); err != nil {
			return NoNode, err
		}
	}
	var branches []any
	if doc := f["if_true"]; doc != nil {
		config.IfTrue = len(branches)
		branches = append(branches, doc)
	}
	if doc := f["if_false"]; doc != nil {
		config.IfFalse = len(branches)
		branches = append(branches, doc)
	}
	if len(branches) == 0 {
		return NoNode, actions.Definitionf("switch needs if_true or if_false")
	}
	id := b.tree.Add(parent, config, path)
	return id, b.children(id, branches, path)
}
