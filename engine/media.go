package engine

import (
	"github.com/reusee/trials/actions"
	"github.com/reusee/trials/medias"
	"github.com/reusee/trials/trees"
)

type mediaRun struct {
	handle medias.Handle
	volume float64
	mark   uint64
}

func (e *Engine) startMedia(n *nodeState, config actions.Media) {
	if e.options.Media == nil {
		n.startErr = actions.Resourcef("no media backend for %s", config.Src)
		return
	}
	run := &mediaRun{
		volume: config.Volume,
	}
	if config.InVolume != 0 {
		if value, ok := e.bus.Read(config.InVolume); ok {
			if v, ok := value.AsFloat(); ok {
				run.volume = v
			}
		}
		run.mark = e.bus.Seq(config.InVolume)
	}
	handle, err := e.play(config, run.volume)
	if err != nil {
		n.startErr = err
		return
	}
	run.handle = handle
	n.leaf = run
}

func (e *Engine) play(config actions.Media, volume float64) (medias.Handle, error) {
	handle, err := e.options.Media.Play(
		config.Src,
		volume*e.options.BaseVolume,
		config.Trigger && e.options.UseTrigger,
	)
	if err != nil {
		return nil, actions.Resourcef("play %s: %v", config.Src, err)
	}
	return handle, nil
}

func (e *Engine) stepMedia(id trees.NodeID, config actions.Media, run *mediaRun) {
	if config.InVolume != 0 {
		if seq := e.bus.Seq(config.InVolume); seq != run.mark {
			run.mark = seq
			value, _ := e.bus.Read(config.InVolume)
			if v, ok := value.AsFloat(); ok {
				run.volume = v
				run.handle.SetVolume(v * e.options.BaseVolume)
			}
		}
	}
	if !run.handle.IsDone() {
		return
	}
	if !config.Looping {
		e.finish(id, e.now)
		return
	}
	handle, err := e.play(config, run.volume)
	if err != nil {
		e.fail(id, err)
		return
	}
	run.handle = handle
}
