package config

import "errors"

// ErrInvalidConfig marks the configuration error class from §7: fatal
// before any network I/O.
var ErrInvalidConfig = errors.New("invalid configuration")
