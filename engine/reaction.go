package engine

import (
	"slices"
	"time"

	"github.com/reusee/trials/actions"
	"github.com/reusee/trials/signals"
	"github.com/reusee/trials/trees"
)

type reactionRun struct {
	// index of the next open target
	next    int
	presses int
	rts     []time.Duration
}

func (e *Engine) stepReaction(id trees.NodeID, config actions.Reaction, run *reactionRun) {
	if !pressed(config.Keys, e.input.Keys) {
		return
	}
	at := e.now.Sub(e.nodes[id].activated)
	run.presses++
	rt, ok := run.score(config, at)
	if !ok {
		e.record(config.Group, "incorrect", signals.None, signals.Float(at.Seconds()))
		return
	}
	e.record(config.Group, "correct", signals.None, signals.Float(rt.Seconds()))
	if config.OutRT != signals.None {
		e.write(id, config.OutRT, signals.Float(rt.Seconds()))
	}
}

// score matches a press at offset at against the open targets, closing missed ones.
func (run *reactionRun) score(config actions.Reaction, at time.Duration) (time.Duration, bool) {
	for run.next < len(config.Times) {
		target := config.Times[run.next]
		if at < target {
			return 0, false
		}
		run.next++
		if at <= target+config.Tolerance {
			rt := at - target
			run.rts = append(run.rts, rt)
			return rt, true
		}
	}
	return 0, false
}

func (e *Engine) stopReaction(id trees.NodeID, config actions.Reaction, run *reactionRun) {
	accuracy := ratio(len(run.rts), run.presses)
	recall := ratio(len(run.rts), len(config.Times))
	var mean float64
	if len(run.rts) > 0 {
		var sum time.Duration
		for _, rt := range run.rts {
			sum += rt
		}
		mean = sum.Seconds() / float64(len(run.rts))
	}
	e.record(config.Group, "event", signals.None, signals.Text("stop"))
	for _, stat := range []struct {
		name  string
		out   signals.ID
		value float64
	}{
		{"accuracy", config.OutAccuracy, accuracy},
		{"mean_rt", config.OutMeanRT, mean},
		{"recall", config.OutRecall, recall},
	} {
		e.record(config.Group, stat.name, stat.out, signals.Float(stat.value))
		if stat.out != signals.None {
			e.write(id, stat.out, signals.Float(stat.value))
		}
	}
}

func pressed(keys, got []string) bool {
	if len(got) == 0 {
		return false
	}
	if len(keys) == 0 {
		return true
	}
	return slices.ContainsFunc(got, func(key string) bool {
		return slices.Contains(keys, key)
	})
}

// ratio is zero when nothing was counted.
func ratio(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}
