package store

import "github.com/jthaw/cdrack/internal/errors"

// Sentinel errors. Each matches errors.Is against the domain sentinel of its code.
var (
	ErrNotFound    = errors.NotFound("resource not found")
	ErrEmptyKey    = errors.Internal("entity key is empty")
	ErrStoreClosed = errors.Internal("store is closed")
)
