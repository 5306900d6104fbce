package core

import "errors"

// ErrNotFound is returned by stores and clients when a requested record does not exist.
var ErrNotFound = errors.New("not found")
