package debugs

import (
	"fmt"

	"github.com/reusee/trials/signals"
)

// SignalGlobals names snapshot values by their declared names, or s<id> when undeclared.
func SignalGlobals(snapshot signals.Snapshot, names map[string]signals.ID) map[string]any {
	byID := make(map[signals.ID]string, len(names))
	for name, id := range names {
		byID[id] = name
	}
	ret := make(map[string]any, len(snapshot))
	for id, value := range snapshot {
		name, ok := byID[id]
		if !ok {
			name = fmt.Sprintf("s%d", id)
		}
		ret[name] = value
	}
	return ret
}
