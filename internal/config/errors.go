package config

import "errors"

// ErrInvalidValue is returned for an env value outside its allowed set or range
var ErrInvalidValue = errors.New("invalid config value")
