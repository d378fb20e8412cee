package assets

import (
	"errors"
	"fmt"
)

// Core asset errors
var (
	// Lookup errors

	ErrInvalidHandle  = errors.New("asset handle is invalid; requested asset does not exist")
	ErrAssetBlocked   = errors.New("requested asset's rw-lock is blocked")
	ErrWrongAssetType = errors.New("specified asset type is wrong")

	// Registry errors

	ErrUnregisteredType = errors.New("asset type is not registered")
)

// TypeError reports a downcast failure: the asset stored behind a handle
// does not have the concrete type the caller requested. It carries the
// requested type's name for diagnostics.
type TypeError struct {
	AssetType string
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("specified asset type is wrong: %q", e.AssetType)
}

// Unwrap makes the error match ErrWrongAssetType under errors.Is.
func (e *TypeError) Unwrap() error {
	return ErrWrongAssetType
}
