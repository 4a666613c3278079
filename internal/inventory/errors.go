package inventory

import "errors"

var (
	// ErrClosed is returned when writing to a closed Inventory.
	ErrClosed = errors.New("inventory is closed")

	// ErrEmptyName is returned when reserving an output for an empty name.
	ErrEmptyName = errors.New("empty layer name")
)
