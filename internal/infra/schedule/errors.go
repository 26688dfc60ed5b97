package schedule

import "errors"

// ErrEmptySpec is returned when a scheduler is created without a cron spec
var ErrEmptySpec = errors.New("empty restart schedule")
