package view

// State is the lifecycle of a controller's mirrored state.
type State int

const (
	// Uninitialized means Mount has not been called.
	Uninitialized State = iota
	// Loading means hydration from the store is in progress.
	Loading
	// Ready means local state mirrors the store; re-entered on refresh.
	Ready
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	default:
		return "unknown"
	}
}
