package catalog

import "errors"

// ErrNotFound is returned by lookups for records that do not exist.
var ErrNotFound = errors.New("record not found")
