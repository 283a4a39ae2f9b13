package syncqueue

import "github.com/PratikDhanave/intake-edge/internal/signal"

// State is the queue state a signal reaction depends on.
type State struct {
	Online  bool
	Pending int
	Syncing bool
}

// Reaction is what the queue does in response to a signal.
type Reaction int

const (
	ReactNone Reaction = iota
	ReactSync
)

// React decides the queue's response to ev given st. st is the state after
// the signal has been applied.
func React(ev signal.Event, st State) Reaction {
	if ev.Name != signal.Connectivity || !ev.Value {
		return ReactNone
	}
	if !st.Online || st.Pending == 0 || st.Syncing {
		return ReactNone
	}
	return ReactSync
}
