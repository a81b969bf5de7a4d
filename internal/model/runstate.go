package model

// RunState tracks the watcher lifecycle. Progress events are only sent in
// StateRunning; Start is legal from StateInit and StateStopped; Stop is
// legal only from StateRunning.
type RunState int32

const (
	// StateInit is the state of a watcher that has never been started.
	StateInit RunState = iota
	// StateBooting covers topic submission and the initial status sweep.
	StateBooting
	// StateRunning means the polling cycle is active.
	StateRunning
	// StateStopping means Stop was called and teardown is in progress.
	StateStopping
	// StateStopped means the watcher is fully torn down and restartable.
	StateStopped
)

// String returns the state name for logging.
func (s RunState) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateBooting:
		return "booting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// CanStart reports whether Start may be invoked from this state.
func (s RunState) CanStart() bool {
	return s == StateInit || s == StateStopped
}

// CanStop reports whether Stop may be invoked from this state.
func (s RunState) CanStop() bool {
	return s == StateRunning
}
