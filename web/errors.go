package web

import "errors"

// ErrAskerRequired is returned when a handler is created without an Asker.
var ErrAskerRequired = errors.New("asker required")
