package actions

import (
	"maps"
	"slices"
	"time"

	"github.com/reusee/trials/signals"
)

// Config is the immutable per-kind part of a node. Children live in the tree.
type Config interface {
	Kind() Kind
	Inputs() []signals.ID
	Outputs() []signals.ID
}

type Mode uint8

const (
	ModeAll Mode = iota
	ModeAny
)

func (m Mode) String() string {
	if m == ModeAny {
		return "any"
	}
	return "all"
}

type noSignals struct{}

func (noSignals) Inputs() []signals.ID  { return nil }
func (noSignals) Outputs() []signals.ID { return nil }

type Seq struct {
	noSignals
}

func (Seq) Kind() Kind { return KindSeq }

// Par runs all children. The first Primary children decide completion.
type Par struct {
	noSignals
	Mode    Mode
	Primary int
}

func (Par) Kind() Kind { return KindPar }

type Direction uint8

const (
	Horizontal Direction = iota
	Vertical
)

func (d Direction) String() string {
	if d == Vertical {
		return "vertical"
	}
	return "horizontal"
}

type Stack struct {
	noSignals
	Mode        Mode
	Primary     int
	Direction   Direction
	Proportions []float64
}

func (Stack) Kind() Kind { return KindStack }

// Repeat with Iters zero repeats forever.
type Repeat struct {
	noSignals
	Iters int
}

func (Repeat) Kind() Kind { return KindRepeat }

type Until struct {
	Event     signals.ID
	Condition signals.ID
}

func (Until) Kind() Kind { return KindUntil }

func (u Until) Inputs() []signals.ID {
	return nonZero(u.Event, u.Condition)
}

func (Until) Outputs() []signals.ID { return nil }

// Switch picks a child by position. Negative positions are absent branches.
type Switch struct {
	Control    signals.ID
	IfTrue     int
	IfFalse    int
	HasDefault bool
	Default    bool
}

func (Switch) Kind() Kind { return KindSwitch }

func (s Switch) Inputs() []signals.ID { return nonZero(s.Control) }

func (Switch) Outputs() []signals.ID { return nil }

type Timeout struct {
	noSignals
	Duration time.Duration
}

func (Timeout) Kind() Kind { return KindTimeout }

type Delayed struct {
	noSignals
	Duration time.Duration
}

func (Delayed) Kind() Kind { return KindDelayed }

type Wait struct {
	noSignals
	Duration time.Duration
}

func (Wait) Kind() Kind { return KindWait }

type Nil struct {
	noSignals
}

func (Nil) Kind() Kind { return KindNil }

type Combine uint8

const (
	CombineLatest Combine = iota
	CombineSum
	CombineMin
	CombineMax
	CombineAll
	CombineAny
)

var combineNames = []string{"latest", "sum", "min", "max", "all", "any"}

func (c Combine) String() string {
	if int(c) < len(combineNames) {
		return combineNames[c]
	}
	return "invalid"
}

func ParseCombine(name string) (Combine, bool) {
	i := slices.Index(combineNames, name)
	return Combine(i), i >= 0
}

type Merge struct {
	In      []signals.ID
	Out     signals.ID
	Combine Combine
}

func (Merge) Kind() Kind { return KindMerge }

func (m Merge) Inputs() []signals.ID { return m.In }

func (m Merge) Outputs() []signals.ID { return nonZero(m.Out) }

// Instruction shows text until proceed. Text may reference mapped inputs as {name}.
type Instruction struct {
	Header     string
	Text       string
	In         map[signals.ID]string
	Persistent bool
}

func (Instruction) Kind() Kind { return KindInstruction }

func (i Instruction) Inputs() []signals.ID { return sortedKeys(i.In) }

func (Instruction) Outputs() []signals.ID { return nil }

type Fixation struct {
	noSignals
}

func (Fixation) Kind() Kind { return KindFixation }

type Image struct {
	noSignals
	Src    string
	Width  float64
	Height float64
}

func (Image) Kind() Kind { return KindImage }

// Media is shared by audio and video.
type Media struct {
	Src      string
	Volume   float64
	InVolume signals.ID
	Looping  bool
	Trigger  bool
	OutError signals.ID
}

func (m Media) Inputs() []signals.ID { return nonZero(m.InVolume) }

func (m Media) Outputs() []signals.ID { return nonZero(m.OutError) }

type Audio struct {
	Media
}

func (Audio) Kind() Kind { return KindAudio }

type Video struct {
	Media
}

func (Video) Kind() Kind { return KindVideo }

type Counter struct {
	noSignals
	Count int
}

func (Counter) Kind() Kind { return KindCounter }

type KeyLogger struct {
	Group string
	Out   signals.ID
}

func (KeyLogger) Kind() Kind { return KindKeyLogger }

func (KeyLogger) Inputs() []signals.ID { return nil }

func (k KeyLogger) Outputs() []signals.ID { return nonZero(k.Out) }

const DefaultTolerance = 2 * time.Second

// Reaction scores key presses against target offsets from activation.
// A press within Tolerance after a target hits it; earlier presses miss.
type Reaction struct {
	Group string
	// sorted
	Times       []time.Duration
	Keys        []string
	Tolerance   time.Duration
	OutRT       signals.ID
	OutAccuracy signals.ID
	OutMeanRT   signals.ID
	OutRecall   signals.ID
}

func (Reaction) Kind() Kind { return KindReaction }

func (Reaction) Inputs() []signals.ID { return nil }

func (r Reaction) Outputs() []signals.ID {
	return nonZero(r.OutRT, r.OutAccuracy, r.OutMeanRT, r.OutRecall)
}

// Function evaluates Expr, or runs Program and takes its result global, on each trigger.
type Function struct {
	Name        string
	Expr        string
	Program     string
	InitExpr    string
	InitProgram string
	Vars        map[string]signals.Value
	Interpreter string
	OnStart     bool
	OnChange    bool
	Once        bool
	In          map[signals.ID]string
	Update      []signals.ID
	Out         signals.ID
	OutError    signals.ID
}

func (Function) Kind() Kind { return KindFunction }

func (f Function) Inputs() []signals.ID {
	return append(sortedKeys(f.In), f.Update...)
}

func (f Function) Outputs() []signals.ID { return nonZero(f.Out, f.OutError) }

type ResponseType uint8

const (
	ResponseValue ResponseType = iota
	ResponseRaw
	ResponseRawAll
)

var responseTypeNames = []string{"value", "raw", "raw_all"}

func (r ResponseType) String() string {
	if int(r) < len(responseTypeNames) {
		return responseTypeNames[r]
	}
	return "invalid"
}

func ParseResponseType(name string) (ResponseType, bool) {
	i := slices.Index(responseTypeNames, name)
	return ResponseType(i), i >= 0
}

type Process struct {
	Name      string
	Src       string
	Args      []string
	Passive   bool
	Response  ResponseType
	Vars      map[string]signals.Value
	OnStart   bool
	OnChange  bool
	Once      bool
	Blocking  bool
	DropEarly bool
	In        map[signals.ID]string
	Update    []signals.ID
	Out       signals.ID
	OutError  signals.ID
}

func (Process) Kind() Kind { return KindProcess }

func (p Process) Inputs() []signals.ID {
	return append(sortedKeys(p.In), p.Update...)
}

func (p Process) Outputs() []signals.ID { return nonZero(p.Out, p.OutError) }

const MinClockStep = 10 * time.Millisecond

type Clock struct {
	Step time.Duration
	Out  signals.ID
}

func (Clock) Kind() Kind { return KindClock }

func (Clock) Inputs() []signals.ID { return nil }

func (c Clock) Outputs() []signals.ID { return nonZero(c.Out) }

type Timer struct {
	noSignals
	Name string
}

func (Timer) Kind() Kind { return KindTimer }

type Event struct {
	noSignals
	Name string
}

func (Event) Kind() Kind { return KindEvent }

type Logger struct {
	Group string
	In    map[signals.ID]string
}

func (Logger) Kind() Kind { return KindLogger }

func (l Logger) Inputs() []signals.ID { return sortedKeys(l.In) }

func (Logger) Outputs() []signals.ID { return nil }

func nonZero(ids ...signals.ID) []signals.ID {
	var ret []signals.ID
	for _, id := range ids {
		if id != signals.None {
			ret = append(ret, id)
		}
	}
	return ret
}

func sortedKeys(m map[signals.ID]string) []signals.ID {
	return slices.Sorted(maps.Keys(m))
}
