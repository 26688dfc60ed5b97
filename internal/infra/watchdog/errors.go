package watchdog

import "errors"

// ErrInvalidThreshold is returned for zero, negative or over 100% thresholds
var ErrInvalidThreshold = errors.New("invalid memory threshold")
