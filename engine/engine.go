package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/petermattis/goid"
	"github.com/reusee/trials/actions"
	"github.com/reusee/trials/interps"
	"github.com/reusee/trials/medias"
	"github.com/reusee/trials/recorders"
	"github.com/reusee/trials/signals"
	"github.com/reusee/trials/timings"
	"github.com/reusee/trials/trees"
)

var ErrWrongGoroutine = errors.New("tick from a goroutine other than the engine owner")

type State uint8

const (
	Pending State = iota
	Active
	Done
)

func (s State) String() string {
	switch s {
	case Active:
		return "active"
	case Done:
		return "done"
	}
	return "pending"
}

// Input is what the host observed since the previous tick.
type Input struct {
	Keys    []string
	Clicks  int
	Proceed bool
	Signals map[signals.ID]signals.Value
}

type ResourcePolicy uint8

const (
	// ResourceDone treats a failed resource as a normal completion.
	ResourceDone ResourcePolicy = iota
	// ResourceEscalate ends the block with the error.
	ResourceEscalate
)

func ParseResourcePolicy(s string) (ResourcePolicy, error) {
	switch s {
	case "", "done":
		return ResourceDone, nil
	case "escalate":
		return ResourceEscalate, nil
	}
	return 0, fmt.Errorf("unknown resource error policy %q", s)
}

type Options struct {
	Clock        timings.Clock
	Policy       timings.Policy
	Interpreters interps.Interpreters
	// Interpreter names the interpreter of functions that name none.
	Interpreter     string
	Media           medias.Backend
	Sink            recorders.Sink
	Logger          *slog.Logger
	Strict          bool
	OnResourceError ResourcePolicy
	UseTrigger      bool
	BaseVolume      float64
	// Bus carries state over from a previous block. A fresh bus is used when nil.
	Bus *signals.Bus
	// Subscribe records every write of these ids to the signals group.
	Subscribe []signals.ID
	// Context bounds child processes.
	Context context.Context
	// Rate is the tick rate in Hz, used to judge drift.
	Rate float64
}

type nodeState struct {
	state      State
	stepped    uint64
	routed     uint64
	activated  time.Time
	nominal    time.Time
	nominalEnd time.Time
	err        error
	cancelled  bool
	lingering  bool

	cursor   int
	iter     int
	branch   int
	armed    bool
	mark     uint64
	count    int64
	startErr error

	leaf any
}

// Engine runs one tree on one bus. It is driven by a single goroutine calling Tick.
type Engine struct {
	tree    *trees.Tree
	options Options
	bus     *signals.Bus
	nodes   []nodeState
	logger  *slog.Logger

	owner    int64
	tick     uint64
	started  bool
	finished bool
	start    time.Time
	now      time.Time
	input    Input
	proceed  bool
	clicks   int
	err      error
	loggers  []trees.NodeID
}

func New(tree *trees.Tree, options Options) (*Engine, error) {
	if tree == nil || tree.Root == trees.NoNode {
		return nil, actions.Definitionf("empty tree")
	}
	if options.Clock == nil {
		options.Clock = timings.WallClock{}
	}
	if options.Sink == nil {
		options.Sink = recorders.NewMemory()
	}
	if options.Logger == nil {
		options.Logger = slog.New(slog.DiscardHandler)
	}
	if options.Interpreters == nil {
		options.Interpreters = interps.Interpreters{
			interps.DefaultName: interps.NewStarlark(nil),
		}
	}
	if options.BaseVolume == 0 {
		options.BaseVolume = 1
	}
	if options.Rate <= 0 {
		options.Rate = timings.DefaultRate
	}
	if options.Context == nil {
		options.Context = context.Background()
	}
	bus := options.Bus
	if bus == nil {
		bus = signals.NewBus(signals.Strict(options.Strict))
	}
	return &Engine{
		tree:    tree,
		options: options,
		bus:     bus,
		nodes:   make([]nodeState, tree.Len()),
		logger:  options.Logger,
	}, nil
}

func (e *Engine) Bus() *signals.Bus {
	return e.bus
}

func (e *Engine) Tree() *trees.Tree {
	return e.tree
}

// Ticks returns how many ticks ran.
func (e *Engine) Ticks() uint64 {
	return e.tick
}

func (e *Engine) Finished() bool {
	return e.finished
}

func (e *Engine) Err() error {
	return e.err
}

func (e *Engine) State(id trees.NodeID) State {
	return e.nodes[id].state
}

// NodeErr returns the error a node completed with.
func (e *Engine) NodeErr(id trees.NodeID) error {
	return e.nodes[id].err
}

func (e *Engine) Elapsed() time.Duration {
	if !e.started {
		return 0
	}
	return e.now.Sub(e.start)
}

// Tick advances the whole active tree by one step and reports whether the root is done.
func (e *Engine) Tick(input Input) (bool, error) {
	gid := goid.Get()
	if e.owner == 0 {
		e.owner = gid
	} else if gid != e.owner {
		return false, ErrWrongGoroutine
	}
	if e.finished {
		return true, e.err
	}

	e.now = e.options.Clock.Now()
	if !e.started {
		e.started = true
		e.start = e.now
	}
	e.bus.Begin(e.tick)
	for _, id := range slices.Sorted(maps.Keys(input.Signals)) {
		e.bus.Write(id, input.Signals[id], signals.External)
	}
	e.input = input
	e.proceed = input.Proceed
	e.clicks = input.Clicks

	root := e.tree.Root
	if e.tick == 0 {
		e.record(recorders.GroupMain, "start", signals.None, signals.Null())
		e.logger.Info("block start", "nodes", e.tree.Len())
		e.activate(root, e.now)
	}
	e.step(root)
	e.endTick()

	if e.nodes[root].state == Done && !e.finished {
		e.finished = true
		if e.err == nil {
			e.record(recorders.GroupMain, "finish", signals.None, signals.Null())
			e.logger.Info("block finish",
				"ticks", e.tick+1,
				"elapsed", e.now.Sub(e.start),
			)
		}
		e.flush()
	}
	e.tick++
	return e.finished, e.err
}

// Interrupt ends the block early, tearing down every active node.
func (e *Engine) Interrupt(reason string) {
	if e.finished {
		return
	}
	e.cancel(e.tree.Root)
	e.finished = true
	e.record(recorders.GroupMain, "interrupt", signals.None, signals.Text(reason))
	e.logger.Warn("block interrupt", "reason", reason)
	e.flush()
}

// flush pushes queued records out. Only called when the block ends, never per tick.
func (e *Engine) flush() {
	if err := e.options.Sink.Flush(); err != nil {
		e.logger.Warn("flush records", "error", err)
	}
}

// Close releases every resource still held.
func (e *Engine) Close() {
	if e.started {
		e.cancel(e.tree.Root)
	}
}

func (e *Engine) escalate(id trees.NodeID, err error) {
	if e.err != nil {
		return
	}
	e.err = err
	e.record(recorders.GroupMain, "crash", signals.None, signals.Text(err.Error()))
	e.logger.Error("block crash", "node", e.tree.Node(id).Path, "error", err)
	e.cancel(e.tree.Root)
}

func (e *Engine) record(group, name string, id signals.ID, value signals.Value) {
	var elapsed time.Duration
	if e.started {
		elapsed = e.now.Sub(e.start)
	}
	if err := e.options.Sink.Record(recorders.Record{
		Tick:   e.tick,
		Time:   elapsed,
		Group:  group,
		Name:   name,
		Signal: id,
		Value:  value,
	}); err != nil {
		e.logger.Warn("record", "group", group, "error", err)
	}
}

// write puts a value on the bus on behalf of a node.
func (e *Engine) write(id trees.NodeID, signal signals.ID, value signals.Value) {
	e.bus.Write(signal, value, signals.Writer(id))
}

func (e *Engine) endTick() {
	journal := e.bus.Journal()
	for _, w := range journal {
		if slices.Contains(e.options.Subscribe, w.ID) {
			e.record(recorders.GroupSignals, "", w.ID, w.Value)
		}
	}
	for _, id := range e.loggers {
		config := e.tree.Node(id).Config.(actions.Logger)
		for _, w := range journal {
			if name, ok := config.In[w.ID]; ok {
				e.record(config.Group, name, w.ID, w.Value)
			}
		}
	}
	for _, c := range e.bus.Conflicts() {
		e.record(recorders.GroupConflict, e.writerName(c.First)+" "+e.writerName(c.Second), c.ID, signals.Null())
		e.logger.Warn("signal conflict",
			"signal", c.ID,
			"first", e.writerName(c.First),
			"second", e.writerName(c.Second),
		)
	}
}

func (e *Engine) writerName(w signals.Writer) string {
	if w < 0 || int(w) >= e.tree.Len() {
		return "external"
	}
	return e.tree.Node(trees.NodeID(w)).Path
}
