package signals

import "strconv"

// ID names a bus slot. Zero means unbound.
type ID uint16

const None ID = 0

func (id ID) String() string {
	return strconv.Itoa(int(id))
}

// Writer identifies who wrote a value, usually a tree node index.
type Writer int32

const External Writer = -1
