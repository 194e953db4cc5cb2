package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/reusee/trials/actions"
	"github.com/reusee/trials/engine"
	"github.com/reusee/trials/interps"
	"github.com/reusee/trials/logs"
	"github.com/reusee/trials/medias"
	"github.com/reusee/trials/presenters"
	"github.com/reusee/trials/recorders"
	"github.com/reusee/trials/signals"
	"github.com/reusee/trials/timings"
	"github.com/reusee/trials/trees"
)

// Status is what an observer sees after each tick.
type Status struct {
	Task    string           `json:"task"`
	Block   string           `json:"block"`
	Run     string           `json:"run"`
	Tick    uint64           `json:"tick"`
	Elapsed time.Duration    `json:"elapsed"`
	Done    bool             `json:"done"`
	Signals signals.Snapshot `json:"signals"`
	Views   []engine.View    `json:"views"`
}

type Observer interface {
	Observe(Status)
}

type Runner struct {
	Logger       *slog.Logger
	NewSpan      logs.NewSpan
	Clock        timings.Clock
	NewPacer     func(rate float64) timings.Pacer
	Interpreters interps.Interpreters
	// Probe resolves media durations for the default backend.
	Probe medias.Probe
	// Media replaces the default clock-timed backend.
	Media     medias.Backend
	Input     InputSource
	Presenter presenters.Presenter
	Observer  Observer
	// Output is the root of record files. Records stay in memory when empty.
	Output string
	// Database is an optional sqlite file collecting the records of every run.
	Database string
	Subject  string
	// Prefetch bounds concurrent media probes.
	Prefetch int
}

type Result struct {
	Block       string
	Run         string
	Dir         string
	Ticks       uint64
	Elapsed     time.Duration
	Interrupted bool
	Err         error
	Snapshot    signals.Snapshot
	// Records is set when no Output is configured.
	Records *recorders.Memory
}

func (r *Runner) defaults() {
	if r.Logger == nil {
		r.Logger = slog.New(slog.DiscardHandler)
	}
	if r.Clock == nil {
		r.Clock = timings.WallClock{}
	}
	if r.NewPacer == nil {
		r.NewPacer = timings.NewTickerPacer
	}
	if r.Interpreters == nil {
		logger := r.Logger
		r.Interpreters = interps.Interpreters{
			interps.DefaultName: interps.NewStarlark(func(s string) {
				logger.Info("interpreter log", "message", s)
			}),
		}
	}
	if r.Probe == nil {
		r.Probe = medias.Header(nil)
	}
	if r.Prefetch <= 0 {
		r.Prefetch = 4
	}
	if r.Subject == "" {
		r.Subject = "anon-" + uuid.NewString()
	}
}

// RunBlock runs one block to completion, interruption or crash.
// A block that fails to build returns an error wrapping actions.ErrDefinition.
func (r *Runner) RunBlock(ctx context.Context, task *Task, block *Block, carry signals.Snapshot) (*Result, error) {
	r.defaults()
	result := &Result{
		Block: block.Name,
		Run:   ulid.Make().String(),
	}
	logger := r.Logger.With("block", block.Name, "run", result.Run)
	if r.NewSpan != nil {
		ctx, _ = r.NewSpan(ctx, "block "+block.Name)
	}

	tree, err := task.Build(block)
	if err != nil {
		logger.ErrorContext(ctx, "build block", "error", err)
		return result, logs.WrapSpan(ctx, err)
	}
	config := block.Config

	media := r.Media
	if media == nil {
		probe := func(src string) (time.Duration, error) {
			return r.Probe(resolve(task.Dir, src))
		}
		timed := medias.NewTimed(r.Clock, probe)
		durations, err := medias.Prefetch(ctx, probe, mediaSources(tree), r.Prefetch)
		if err != nil {
			if config.OnResourceError == engine.ResourceEscalate {
				return result, actions.Resourcef("prefetch: %v", err)
			}
			logger.WarnContext(ctx, "prefetch", "error", err)
		}
		timed.Preload(durations)
		media = timed
	}

	sink, err := r.sink(task, block, result)
	if err != nil {
		return result, err
	}

	bus := signals.NewBus(signals.Strict(config.StrictSignals))
	restored := make(signals.Snapshot)
	for _, id := range block.Carry {
		if !tree.Declares(id) {
			logger.WarnContext(ctx, "carried signal not used by tree", "signal", id)
		}
		if value, ok := carry[id]; ok {
			restored[id] = value
		}
	}
	bus.Restore(restored)

	eng, err := engine.New(tree, engine.Options{
		Clock:           r.Clock,
		Policy:          config.TimePrecision,
		Interpreters:    r.Interpreters,
		Interpreter:     config.Interpreter,
		Media:           media,
		Sink:            sink,
		Logger:          logger,
		Strict:          config.StrictSignals,
		OnResourceError: config.OnResourceError,
		UseTrigger:      config.UseTrigger,
		BaseVolume:      config.BaseVolume,
		Bus:             bus,
		Subscribe:       subscriptions(block),
		Context:         ctx,
		Rate:            config.TickRate,
	})
	if err != nil {
		_ = sink.Close()
		return result, err
	}

	pacer := r.NewPacer(config.TickRate)
	var guard abortGuard
	for {
		if err := pacer.Wait(ctx); err != nil {
			eng.Interrupt("cancelled")
			result.Interrupted = true
			break
		}
		var input engine.Input
		var aborts int
		if r.Input != nil {
			input, aborts = r.Input.Poll()
		}
		if guard.hit(r.Clock.Now(), aborts) {
			eng.Interrupt("abort")
			result.Interrupted = true
			break
		}
		done, err := eng.Tick(input)
		views := eng.Views()
		if r.Presenter != nil {
			r.Presenter.Present(eng.Ticks()-1, views)
		}
		if r.Observer != nil {
			r.Observer.Observe(Status{
				Task:    task.Name,
				Block:   block.Name,
				Run:     result.Run,
				Tick:    eng.Ticks() - 1,
				Elapsed: eng.Elapsed(),
				Done:    done,
				Signals: bus.Snapshot(),
				Views:   views,
			})
		}
		if done {
			result.Err = err
			break
		}
	}
	pacer.Stop()
	eng.Close()

	result.Ticks = eng.Ticks()
	result.Elapsed = eng.Elapsed()
	result.Snapshot = bus.Snapshot()
	if err := sink.Close(); err != nil {
		result.Err = errors.Join(result.Err, err)
	}
	logger.InfoContext(ctx, "block run",
		"ticks", result.Ticks,
		"elapsed", result.Elapsed,
		"interrupted", result.Interrupted,
		"error", result.Err,
	)
	return result, nil
}

func (r *Runner) sink(task *Task, block *Block, result *Result) (recorders.Sink, error) {
	var sinks []recorders.Sink
	if r.Output != "" {
		result.Dir = filepath.Join(
			r.Output,
			r.Subject,
			r.Clock.Now().Format(time.DateOnly),
			block.Name,
			result.Run,
		)
		file, err := recorders.NewFile(result.Dir, block.Config.LogFormat)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, file)
	} else {
		result.Records = recorders.NewMemory()
		sinks = append(sinks, result.Records)
	}
	if r.Database != "" {
		db, err := recorders.NewSQLite(r.Database, task.Name+"/"+result.Run)
		if err != nil {
			for _, s := range sinks {
				_ = s.Close()
			}
			return nil, fmt.Errorf("open record database: %w", err)
		}
		sinks = append(sinks, db)
	}
	return recorders.NewAsync(recorders.Tee(sinks...)), nil
}

// subscriptions are the declared signals, recorded on every write.
func subscriptions(block *Block) []signals.ID {
	var ids []signals.ID
	for _, id := range block.Signals {
		ids = append(ids, id)
	}
	ids = append(ids, block.External...)
	slices.Sort(ids)
	return slices.Compact(ids)
}

func mediaSources(tree *trees.Tree) []string {
	var srcs []string
	for _, id := range tree.PreOrder() {
		switch config := tree.Node(id).Config.(type) {
		case actions.Audio:
			srcs = append(srcs, config.Src)
		case actions.Video:
			srcs = append(srcs, config.Src)
		}
	}
	return srcs
}

func resolve(dir, src string) string {
	if filepath.IsAbs(src) || dir == "" {
		return src
	}
	return filepath.Join(dir, src)
}
