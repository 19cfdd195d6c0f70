package badger

import "errors"

var (
	// ErrBackendRequired is returned when a nil backend is passed to a constructor.
	ErrBackendRequired = errors.New("badger backend required")
)
