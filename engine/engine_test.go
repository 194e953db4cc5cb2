package engine

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/reusee/trials/actions"
	"github.com/reusee/trials/medias"
	"github.com/reusee/trials/recorders"
	"github.com/reusee/trials/signals"
	"github.com/reusee/trials/timings"
	"github.com/reusee/trials/trees"
	"github.com/stretchr/testify/assert"
	"gopkg.in/yaml.v3"
)

type harness struct {
	t      *testing.T
	clock  *timings.ManualClock
	sink   *recorders.Memory
	engine *Engine
	period time.Duration
}

func run(t *testing.T, src string, treeOptions trees.Options, options Options) *harness {
	t.Helper()
	var doc any
	if err := yaml.Unmarshal([]byte(src), &doc); err != nil {
		t.Fatal(err)
	}
	tree, err := trees.Build(doc, treeOptions)
	if err != nil {
		t.Fatal(err)
	}
	h := &harness{
		t:      t,
		clock:  timings.NewManualClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)),
		sink:   recorders.NewMemory(),
		period: timings.Period(timings.DefaultRate),
	}
	if options.Clock == nil {
		options.Clock = h.clock
	}
	if options.Sink == nil {
		options.Sink = h.sink
	}
	h.engine, err = New(tree, options)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(h.engine.Close)
	return h
}

// tick runs one tick at the current clock time, then advances the clock by one period.
func (h *harness) tick(input Input) bool {
	h.t.Helper()
	done, err := h.engine.Tick(input)
	if err != nil {
		h.t.Fatal(err)
	}
	h.clock.Advance(h.period)
	return done
}

// until ticks with empty input and returns the index of the tick the root finished in.
func (h *harness) until(limit int) int {
	h.t.Helper()
	for i := 0; i < limit; i++ {
		if h.tick(Input{}) {
			return i
		}
	}
	h.t.Fatalf("not done after %d ticks", limit)
	return -1
}

func (h *harness) value(id signals.ID) signals.Value {
	h.t.Helper()
	v, ok := h.engine.Bus().Read(id)
	if !ok {
		h.t.Fatalf("signal %d has no value", id)
	}
	return v
}

func TestSeqWaitTimeout(t *testing.T) {
	src := `
seq:
  - wait: 0.5
  - timeout:
      duration: 0.5
      inner: fixation
`
	for _, policy := range []timings.Policy{timings.RespectBoundaries, timings.RespectIntervals} {
		h := run(t, src, trees.Options{}, Options{Policy: policy})
		done := h.until(100)
		assert.Equal(t, 60, done, policy)
		assert.GreaterOrEqual(t, h.engine.Elapsed(), time.Second-h.period)
		drift := h.sink.Group(recorders.GroupDrift)
		if policy == timings.RespectBoundaries {
			assert.Len(t, drift, 1)
			assert.Equal(t, "seq/1/timeout", drift[0].Name)
		} else {
			assert.Empty(t, drift)
		}
	}
}

func TestLagDoesNotCompound(t *testing.T) {
	src := `
seq:
  - wait: 0.1
  - wait: 0.1
  - wait: 0.1
`
	for policy, expected := range map[timings.Policy]int{
		timings.RespectBoundaries: 2,
		timings.RespectIntervals:  3,
	} {
		h := run(t, src, trees.Options{}, Options{Policy: policy})
		h.period = 250 * time.Millisecond
		assert.Equal(t, expected, h.until(10), policy)
	}
}

func TestParModes(t *testing.T) {
	for mode, expected := range map[string]int{
		"all": 12,
		"any": 6,
	} {
		h := run(t, `
par:
  mode: `+mode+`
  primary:
    - wait: 0.1
    - wait: 0.2
  secondary:
    - clock:
        step: 0.01
        out_tic: 1
`, trees.Options{}, Options{})
		assert.Equal(t, expected, h.until(100), mode)
	}
}

func TestCancelledNodesStaySilent(t *testing.T) {
	h := run(t, `
seq:
  - par:
      mode: any
      primary:
        - wait: 0.1
      secondary:
        - clock:
            step: 0.01
            out_tic: 1
  - wait: 0.5
`, trees.Options{}, Options{})
	h.until(100)
	last, ok := h.engine.Bus().LastTick(1)
	if !ok {
		t.Fatal()
	}
	if last != 6 {
		t.Fatalf("got %v", last)
	}
	clock := h.engine.Tree().Node(h.engine.Tree().Root).Children[0]
	clock = h.engine.Tree().Node(clock).Children[1]
	if h.engine.State(clock) != Done || !h.engine.nodes[clock].cancelled {
		t.Fatal()
	}
}

func TestTimeoutExact(t *testing.T) {
	h := run(t, `
timeout:
  duration: 0.1
  inner: fixation
`, trees.Options{}, Options{})
	if done := h.until(100); done != 6 {
		t.Fatalf("got %v", done)
	}

	// a zero timeout cancels its inner before it runs
	h = run(t, `
timeout:
  duration: 0
  inner:
    counter: 1
`, trees.Options{}, Options{})
	if !h.tick(Input{Clicks: 1}) {
		t.Fatal()
	}
	if len(h.sink.Group(recorders.GroupCounter)) != 0 {
		t.Fatal()
	}
}

func TestSameTickVisibility(t *testing.T) {
	h := run(t, `
seq:
  - function:
      expr: "1"
      once: true
      out_result: a
  - function:
      expr: "x + 1"
      in_mapping:
        a: x
      once: true
      out_result: b
`, trees.Options{
		Signals: map[string]signals.ID{"a": 1, "b": 2},
	}, Options{})
	if !h.tick(Input{}) {
		t.Fatal()
	}
	if v := h.value(2); !v.Equal(signals.Int(2)) {
		t.Fatalf("got %v", v)
	}
	if tick, _ := h.engine.Bus().LastTick(2); tick != 0 {
		t.Fatalf("got %v", tick)
	}
}

func TestReaderBeforeWriterSeesPreviousTick(t *testing.T) {
	h := run(t, `
par:
  - function:
      expr: "x"
      in_mapping:
        t: x
      out_result: echo
  - clock:
      step: 0.01
      out_tic: t
`, trees.Options{
		Signals: map[string]signals.ID{"t": 1, "echo": 2},
	}, Options{})
	h.tick(Input{})
	if v := h.value(2); !v.IsNull() {
		t.Fatalf("got %v", v)
	}
	for i := 0; i < 5; i++ {
		h.tick(Input{})
		tic := h.value(1)
		echo := h.value(2)
		ti, _ := tic.AsInt()
		ei, _ := echo.AsInt()
		if ei >= ti {
			t.Fatalf("got %v %v", echo, tic)
		}
	}
}

func TestReadIdempotent(t *testing.T) {
	h := run(t, `
par:
  - wait: 1
  - instruction:
      text: "{v}"
      in_mapping:
        1: v
`, trees.Options{External: []signals.ID{1}}, Options{})
	h.tick(Input{Signals: map[signals.ID]signals.Value{1: signals.Text("hello")}})
	first := h.engine.Views()
	second := h.engine.Views()
	assert.Equal(t, first, second)
	assert.Len(t, first, 1)
	assert.Equal(t, "hello", first[0].Text)
}

func TestClockFunctionMonotonic(t *testing.T) {
	h := run(t, `
timeout:
  duration: 0.5
  inner:
    par:
      - clock:
          step: 0.01
          out_tic: t
      - function:
          expr: "t * 10"
          in_mapping:
            t: t
          out_result: y
`, trees.Options{
		Signals: map[string]signals.ID{"t": 1, "y": 2},
	}, Options{
		Subscribe: []signals.ID{2},
	})
	h.until(100)
	records := h.sink.Group(recorders.GroupSignals)
	assert.NotEmpty(t, records)
	var last int64 = -1
	for _, r := range records {
		assert.Equal(t, signals.ID(2), r.Signal)
		v, ok := r.Value.AsInt()
		assert.True(t, ok)
		assert.Greater(t, v, last)
		last = v
	}
}

func TestMergeCombination(t *testing.T) {
	h := run(t, `
par:
  primary:
    - wait: 1
  secondary:
    - merge:
        in_many: [1, 2]
        out_one: 3
    - merge:
        in_many: [1, 2]
        out_one: 4
        combine: sum
`, trees.Options{External: []signals.ID{1, 2}}, Options{
		Subscribe: []signals.ID{3, 4},
	})
	h.tick(Input{Signals: map[signals.ID]signals.Value{
		1: signals.Int(3),
		2: signals.Int(4),
	}})
	assert.Equal(t, signals.Int(4), h.value(3))
	assert.Equal(t, signals.Int(7), h.value(4))

	h.tick(Input{Signals: map[signals.ID]signals.Value{
		1: signals.Int(5),
	}})
	assert.Equal(t, signals.Int(5), h.value(3))
	assert.Equal(t, signals.Int(9), h.value(4))

	h.tick(Input{})
	last, _ := h.engine.Bus().LastTick(3)
	assert.Equal(t, uint64(1), last)

	records := h.sink.Group(recorders.GroupSignals)
	assert.Len(t, records, 4)
	assert.Equal(t, uint64(1), records[3].Tick)
	assert.Equal(t, signals.Int(9), records[3].Value)
}

func TestLoggerLeaf(t *testing.T) {
	h := run(t, `
par:
  primary:
    - wait: 0.1
  secondary:
    - logger:
        group: response
        in_mapping:
          1: answer
`, trees.Options{External: []signals.ID{1}}, Options{})
	h.tick(Input{})
	h.tick(Input{Signals: map[signals.ID]signals.Value{1: signals.Text("left")}})
	h.until(100)
	records := h.sink.Group("response")
	if len(records) != 1 {
		t.Fatalf("got %v", records)
	}
	if records[0].Name != "answer" || records[0].Tick != 1 {
		t.Fatalf("got %+v", records[0])
	}
}

func TestKeyLogger(t *testing.T) {
	h := run(t, `
par:
  primary:
    - counter: 1
  secondary:
    - key_logger:
        out_key: 1
`, trees.Options{}, Options{})
	h.tick(Input{Keys: []string{"f", "j"}})
	if v := h.value(1); !v.Equal(signals.Text("j")) {
		t.Fatalf("got %v", v)
	}
	if n := len(h.sink.Group("keypress")); n != 2 {
		t.Fatalf("got %v", n)
	}
	if !h.tick(Input{Clicks: 1}) {
		t.Fatal()
	}
}

func TestProceedConsumedOnce(t *testing.T) {
	h := run(t, `
seq:
  - instruction:
      text: first
  - instruction:
      text: second
`, trees.Options{}, Options{})
	if h.tick(Input{Proceed: true}) {
		t.Fatal()
	}
	views := h.engine.Views()
	if len(views) != 1 || views[0].Text != "second" {
		t.Fatalf("got %v", views)
	}
	if !h.tick(Input{Proceed: true}) {
		t.Fatal()
	}
}

func TestRepeatStepsNextTick(t *testing.T) {
	h := run(t, `
repeat:
  inner: nil
  iters: 3
`, trees.Options{}, Options{})
	if done := h.until(10); done != 2 {
		t.Fatalf("got %v", done)
	}
}

func TestUntilEvent(t *testing.T) {
	h := run(t, `
until:
  inner: fixation
  in_event: 1
`, trees.Options{External: []signals.ID{1}}, Options{})
	if h.tick(Input{}) || h.tick(Input{}) {
		t.Fatal()
	}
	// any write ends it, false included
	if !h.tick(Input{Signals: map[signals.ID]signals.Value{1: signals.Bool(false)}}) {
		t.Fatal()
	}
}

func TestSwitchDefault(t *testing.T) {
	src := `
switch:
  in_control: 1
  default: true
  if_true:
    wait: 0.1
  if_false: nil
`
	h := run(t, src, trees.Options{External: []signals.ID{1}}, Options{})
	if done := h.until(100); done != 6 {
		t.Fatalf("got %v", done)
	}

	h = run(t, src, trees.Options{External: []signals.ID{1}}, Options{})
	if !h.tick(Input{Signals: map[signals.ID]signals.Value{1: signals.Bool(false)}}) {
		t.Fatal()
	}
}

func TestSwitchMissingControl(t *testing.T) {
	h := run(t, `
switch:
  in_control: 1
  if_true: nil
`, trees.Options{External: []signals.ID{1}}, Options{})
	if !h.tick(Input{}) {
		t.Fatal()
	}
	err := h.engine.NodeErr(h.engine.Tree().Root)
	if !errors.Is(err, actions.ErrRuntime) {
		t.Fatalf("got %v", err)
	}
}

func TestResourceErrorPolicy(t *testing.T) {
	src := `
seq:
  - audio:
      src: tone.wav
      out_error: 1
  - nil
`
	h := run(t, src, trees.Options{}, Options{})
	if !h.tick(Input{}) {
		t.Fatal()
	}
	if _, ok := h.value(1).AsText(); !ok {
		t.Fatal()
	}
	if len(h.sink.Group(recorders.GroupError)) != 1 {
		t.Fatal()
	}

	h = run(t, src, trees.Options{}, Options{OnResourceError: ResourceEscalate})
	done, err := h.engine.Tick(Input{})
	if !done || !errors.Is(err, actions.ErrResource) {
		t.Fatalf("got %v %v", done, err)
	}
	main := h.sink.Group(recorders.GroupMain)
	if len(main) != 2 || main[1].Name != "crash" {
		t.Fatalf("got %v", main)
	}
}

func TestAudioLeaf(t *testing.T) {
	clock := timings.NewManualClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	backend := medias.NewTimed(clock, nil)
	backend.Preload(map[string]time.Duration{
		"tone.wav": 100 * time.Millisecond,
	})
	var triggered []string
	backend.OnTrigger = func(src string) {
		triggered = append(triggered, src)
	}
	h := run(t, `
audio:
  src: tone.wav
  trigger: true
`, trees.Options{}, Options{
		Clock:      clock,
		Media:      backend,
		UseTrigger: true,
	})
	h.clock = clock
	if done := h.until(100); done != 6 {
		t.Fatalf("got %v", done)
	}
	if len(triggered) != 1 {
		t.Fatalf("got %v", triggered)
	}
}

func TestStackViews(t *testing.T) {
	h := run(t, `
vertical:
  children:
    - fixation
    - image:
        src: face.png
  proportions: [1, 3]
`, trees.Options{}, Options{})
	h.tick(Input{})
	views := h.engine.Views()
	assert.Len(t, views, 2)
	assert.Equal(t, Rect{W: 1, H: 0.25}, views[0].Rect)
	assert.Equal(t, Rect{Y: 0.25, W: 1, H: 0.75}, views[1].Rect)
	assert.Equal(t, "face.png", views[1].Src)
}

func TestWrongGoroutine(t *testing.T) {
	h := run(t, "wait: 1", trees.Options{}, Options{})
	h.tick(Input{})
	errCh := make(chan error)
	go func() {
		_, err := h.engine.Tick(Input{})
		errCh <- err
	}()
	if err := <-errCh; !errors.Is(err, ErrWrongGoroutine) {
		t.Fatalf("got %v", err)
	}
}

func TestInterrupt(t *testing.T) {
	h := run(t, "fixation", trees.Options{}, Options{})
	h.tick(Input{})
	h.engine.Interrupt("abort")
	if !h.engine.Finished() {
		t.Fatal()
	}
	main := h.sink.Group(recorders.GroupMain)
	if len(main) != 2 || main[1].Name != "interrupt" {
		t.Fatalf("got %v", main)
	}
	if h.engine.State(h.engine.Tree().Root) != Done {
		t.Fatal()
	}
}

func TestTimerAndEvent(t *testing.T) {
	h := run(t, `
par:
  primary:
    - wait: 0.1
  secondary:
    - timer: rt
    - event: fix
`, trees.Options{}, Options{})
	h.until(100)
	timers := h.sink.Group(recorders.GroupTimer)
	if len(timers) != 1 {
		t.Fatalf("got %v", timers)
	}
	if v, _ := timers[0].Value.AsFloat(); v < 0.1 {
		t.Fatalf("got %v", v)
	}
	events := h.sink.Group(recorders.GroupEvent)
	if len(events) != 2 {
		t.Fatalf("got %v", events)
	}
}

type flushCounter struct {
	*recorders.Memory
	flushes int
}

func (f *flushCounter) Flush() error {
	f.flushes++
	return f.Memory.Flush()
}

func TestFlushOnlyAtEnd(t *testing.T) {
	sink := &flushCounter{Memory: recorders.NewMemory()}
	h := run(t, "wait: 0.1", trees.Options{}, Options{Sink: sink})
	for range 3 {
		h.tick(Input{})
	}
	if sink.flushes != 0 {
		t.Fatalf("got %v", sink.flushes)
	}
	h.until(100)
	if sink.flushes != 1 {
		t.Fatalf("got %v", sink.flushes)
	}

	sink = &flushCounter{Memory: recorders.NewMemory()}
	h = run(t, "fixation", trees.Options{}, Options{Sink: sink})
	h.tick(Input{})
	h.engine.Interrupt("abort")
	if sink.flushes != 1 {
		t.Fatalf("got %v", sink.flushes)
	}
}

func TestClockFunctionSelf(t *testing.T) {
	h := run(t, `
timeout:
  duration: 0.2
  inner:
    par:
      - clock:
          step: 0.05
          out_tic: 1
      - function:
          expr: "self + 1"
          vars:
            self: 0
          in_update: [1]
          out_result: 2
          persistent: true
`, trees.Options{}, Options{
		Subscribe: []signals.ID{1, 2},
	})
	h.until(100)
	assert.Empty(t, h.sink.Group(recorders.GroupError))
	var tics, results []int64
	for _, r := range h.sink.Group(recorders.GroupSignals) {
		v, ok := r.Value.AsInt()
		assert.True(t, ok)
		if r.Signal == 1 {
			tics = append(tics, v)
		} else {
			results = append(results, v)
		}
	}
	assert.Equal(t, []int64{0, 1, 2, 3}, tics)
	assert.Equal(t, []int64{1, 2, 3, 4}, results)
}

func TestMergeThreeInputs(t *testing.T) {
	h := run(t, `
par:
  primary:
    - wait: 1
  secondary:
    - merge:
        in_many: [1, 2, 3]
        out_one: 4
    - merge:
        in_many: [1, 2, 3]
        out_one: 5
        combine: sum
`, trees.Options{External: []signals.ID{1, 2, 3}}, Options{
		Subscribe: []signals.ID{4, 5},
	})
	h.tick(Input{})
	_, ok := h.engine.Bus().Read(4)
	assert.False(t, ok)

	h.tick(Input{Signals: map[signals.ID]signals.Value{
		1: signals.Int(5),
		2: signals.Int(7),
	}})
	assert.Equal(t, signals.Int(7), h.value(4))
	assert.Equal(t, signals.Int(12), h.value(5))

	h.tick(Input{Signals: map[signals.ID]signals.Value{
		3: signals.Int(9),
	}})
	assert.Equal(t, signals.Int(9), h.value(4))
	assert.Equal(t, signals.Int(21), h.value(5))

	records := h.sink.Group(recorders.GroupSignals)
	assert.Len(t, records, 4)
	for i, tick := range []uint64{1, 1, 2, 2} {
		assert.Equal(t, tick, records[i].Tick)
	}
}

func TestSubscriptionSeesEveryWrite(t *testing.T) {
	h := run(t, `
par:
  primary:
    - wait: 1
  secondary:
    - function:
        expr: "x * 10"
        in_mapping:
          x: a
        out_result: c
`, trees.Options{
		Signals:  map[string]signals.ID{"a": 1, "b": 2, "c": 3, "d": 4},
		External: []signals.ID{1, 2, 4},
	}, Options{
		Subscribe: []signals.ID{1, 2, 3},
	})
	type write struct {
		tick  uint64
		id    signals.ID
		value signals.Value
	}
	var expected []write
	for i := range 6 {
		tick := uint64(i)
		in := map[signals.ID]signals.Value{
			1: signals.Int(int64(i)),
			4: signals.Int(-1),
		}
		expected = append(expected, write{tick, 1, signals.Int(int64(i))})
		if i%2 == 0 {
			in[2] = signals.Int(int64(i * 2))
			expected = append(expected, write{tick, 2, signals.Int(int64(i * 2))})
		}
		expected = append(expected, write{tick, 3, signals.Int(int64(i * 10))})
		h.tick(Input{Signals: in})
	}
	var got []write
	for _, r := range h.sink.Group(recorders.GroupSignals) {
		got = append(got, write{r.Tick, r.Signal, r.Value})
	}
	assert.Equal(t, expected, got)
}

func TestSeqTickSum(t *testing.T) {
	children := []string{
		"{wait: 0.1}",
		"nil",
		"{wait: 0.25}",
		"{timeout: {duration: 0.05, inner: fixation}}",
		"{repeat: {inner: nil, iters: 3}}",
	}
	options := Options{Policy: timings.RespectIntervals}
	sum := 0
	for _, child := range children {
		sum += run(t, child, trees.Options{}, options).until(1000)
	}
	seq := run(t, "seq: ["+strings.Join(children, ", ")+"]", trees.Options{}, options).until(1000)
	if seq != sum {
		t.Fatalf("got %v, children sum to %v", seq, sum)
	}
}

func TestRestoredSignalNoConflict(t *testing.T) {
	bus := signals.NewBus(signals.Strict(true))
	bus.Restore(signals.Snapshot{1: signals.Int(0)})
	h := run(t, `
function:
  expr: "1"
  once: true
  out_result: 1
`, trees.Options{}, Options{Bus: bus, Strict: true})
	h.until(10)
	assert.Equal(t, signals.Int(1), h.value(1))
	assert.Empty(t, h.sink.Group(recorders.GroupConflict))
}

func TestReaction(t *testing.T) {
	h := run(t, `
par:
  primary:
    - wait: 1
  secondary:
    - reaction:
        times: [0.2, 0.5]
        keys: [space]
        tol: 0.2
        out_rt: 1
        out_accuracy: 2
        out_mean_rt: 3
        out_recall: 4
`, trees.Options{}, Options{})
	press := Input{Keys: []string{"space"}}
	// tick i runs at i/60 s
	for i := 0; i < 70; i++ {
		var input Input
		switch i {
		case 6, 18:
			// before the first target, then 0.1 s after it
			input = press
		case 24:
			input = Input{Keys: []string{"x"}}
		case 45:
			// past the second window
			input = press
		}
		if h.tick(input) {
			break
		}
	}
	if !h.engine.Finished() {
		t.Fatal()
	}
	rt, _ := h.value(1).AsFloat()
	assert.InDelta(t, 0.1, rt, 0.001)
	accuracy, _ := h.value(2).AsFloat()
	assert.InDelta(t, 1.0/3, accuracy, 0.001)
	mean, _ := h.value(3).AsFloat()
	assert.InDelta(t, 0.1, mean, 0.001)
	recall, _ := h.value(4).AsFloat()
	assert.InDelta(t, 0.5, recall, 0.001)

	var names []string
	for _, r := range h.sink.Group("reaction") {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{
		"event", "incorrect", "correct", "incorrect",
		"event", "accuracy", "mean_rt", "recall",
	}, names)
}
