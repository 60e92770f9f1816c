package importer

import "errors"

// ErrUnsupportedUpdateMode is returned when the caller requests
// update-mode=update, a declared non-goal.
var ErrUnsupportedUpdateMode = errors.New("unsupported update mode")
