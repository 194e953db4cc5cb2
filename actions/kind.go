package actions

type Kind uint8

const (
	KindInvalid Kind = iota

	// containers
	KindSeq
	KindPar
	KindRepeat
	KindUntil
	KindSwitch
	KindTimeout
	KindDelayed
	KindStack

	// routing and timing
	KindWait
	KindMerge
	KindNil

	// leaves
	KindInstruction
	KindFixation
	KindImage
	KindAudio
	KindVideo
	KindCounter
	KindKeyLogger
	KindFunction
	KindProcess
	KindClock
	KindTimer
	KindEvent
	KindLogger
	KindReaction
)

var kindNames = map[Kind]string{
	KindSeq:         "seq",
	KindPar:         "par",
	KindRepeat:      "repeat",
	KindUntil:       "until",
	KindSwitch:      "switch",
	KindTimeout:     "timeout",
	KindDelayed:     "delayed",
	KindStack:       "stack",
	KindWait:        "wait",
	KindMerge:       "merge",
	KindNil:         "nil",
	KindInstruction: "instruction",
	KindFixation:    "fixation",
	KindImage:       "image",
	KindAudio:       "audio",
	KindVideo:       "video",
	KindCounter:     "counter",
	KindKeyLogger:   "key_logger",
	KindFunction:    "function",
	KindProcess:     "process",
	KindClock:       "clock",
	KindTimer:       "timer",
	KindEvent:       "event",
	KindLogger:      "logger",
	KindReaction:    "reaction",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "invalid"
}

func ParseKind(name string) (Kind, bool) {
	for kind, n := range kindNames {
		if n == name {
			return kind, true
		}
	}
	return KindInvalid, false
}

// IsContainer reports whether nodes of the kind own children.
func (k Kind) IsContainer() bool {
	switch k {
	case KindSeq, KindPar, KindRepeat, KindUntil, KindSwitch,
		KindTimeout, KindDelayed, KindStack:
		return true
	}
	return false
}

// IsConcurrent reports whether children of the kind run side by side.
func (k Kind) IsConcurrent() bool {
	switch k {
	case KindPar, KindStack, KindUntil:
		return true
	}
	return false
}
