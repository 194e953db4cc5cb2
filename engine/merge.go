package engine

import (
	"github.com/reusee/trials/actions"
	"github.com/reusee/trials/signals"
	"github.com/reusee/trials/trees"
)

// linger routes a finished merge while its parent is still running.
func (e *Engine) linger(id trees.NodeID) {
	n := &e.nodes[id]
	if !n.lingering {
		return
	}
	e.route(id, e.tree.Node(id).Config.(actions.Merge))
}

func (e *Engine) route(id trees.NodeID, config actions.Merge) {
	n := &e.nodes[id]
	if n.routed == e.tick+1 {
		return
	}
	n.routed = e.tick + 1

	// mark holds the highest input sequence already combined
	changed := false
	var present []signals.Value
	var latest signals.Value
	var latestSeq uint64
	for _, in := range config.In {
		value, ok := e.bus.Read(in)
		if !ok {
			continue
		}
		seq := e.bus.Seq(in)
		if seq > n.mark {
			changed = true
		}
		if seq > latestSeq {
			latestSeq = seq
			latest = value
		}
		present = append(present, value)
	}
	if !changed {
		return
	}
	n.mark = latestSeq
	e.write(id, config.Out, combine(config.Combine, latest, present))
}

func combine(mode actions.Combine, latest signals.Value, values []signals.Value) signals.Value {
	switch mode {

	case actions.CombineAll:
		for _, v := range values {
			if !v.Truthy() {
				return signals.Bool(false)
			}
		}
		return signals.Bool(true)

	case actions.CombineAny:
		for _, v := range values {
			if v.Truthy() {
				return signals.Bool(true)
			}
		}
		return signals.Bool(false)

	case actions.CombineSum, actions.CombineMin, actions.CombineMax:
		return fold(mode, values)

	}
	return latest
}

// fold combines numeric values, staying integral while every input is an int.
func fold(mode actions.Combine, values []signals.Value) signals.Value {
	var ints []int64
	var floats []float64
	integral := true
	for _, v := range values {
		f, ok := v.AsFloat()
		if !ok {
			continue
		}
		floats = append(floats, f)
		if v.Kind() == signals.KindInt {
			i, _ := v.AsInt()
			ints = append(ints, i)
		} else {
			integral = false
		}
	}
	if len(floats) == 0 {
		return signals.Null()
	}
	if integral {
		ret := ints[0]
		for _, i := range ints[1:] {
			switch mode {
			case actions.CombineSum:
				ret += i
			case actions.CombineMin:
				ret = min(ret, i)
			case actions.CombineMax:
				ret = max(ret, i)
			}
		}
		return signals.Int(ret)
	}
	ret := floats[0]
	for _, f := range floats[1:] {
		switch mode {
		case actions.CombineSum:
			ret += f
		case actions.CombineMin:
			ret = min(ret, f)
		case actions.CombineMax:
			ret = max(ret, f)
		}
	}
	return signals.Float(ret)
}
