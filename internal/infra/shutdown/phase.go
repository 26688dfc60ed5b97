package shutdown

// Phase is the orchestrator state machine position
type Phase int32

const (
	// PhaseRunning is the initial phase
	PhaseRunning Phase = iota

	// PhaseShuttingDown is entered by the first accepted trigger
	PhaseShuttingDown

	// PhaseTerminated is entered right before the process exits
	PhaseTerminated
)

func (p Phase) String() string {
	switch p {
	case PhaseRunning:
		return "running"
	case PhaseShuttingDown:
		return "shutting-down"
	case PhaseTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}
