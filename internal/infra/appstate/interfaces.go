package appstate

import "time"

// statusGetter is an internal interface for getting the application status
type statusGetter interface {
	GetState() State
	GetUptime() time.Duration
	GetStartTime() time.Time
	GetStoppingTime() *time.Time
}

// phaser reports the orchestrator phase alongside the state
type phaser interface {
	PhaseName() string
}
