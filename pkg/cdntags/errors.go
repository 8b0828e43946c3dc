package cdntags

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingAssetMapping is matched by every MissingAssetError.
	ErrMissingAssetMapping = errors.New("missing CDN asset mapping")
	// ErrInvalidRaisePolicy is returned when a raise_on_missing value is neither a boolean nor a list of environments.
	ErrInvalidRaisePolicy = errors.New("raise_on_missing must be a boolean or a list of environments")
	// ErrUnknownKind is returned for an asset kind other than Script or Stylesheet.
	ErrUnknownKind = errors.New("unknown asset kind")
)

// MissingAssetError reports an asset requested in a CDN environment that has
// no URL in the mapping consulted for its kind.
type MissingAssetError struct {
	Asset string
	Kind  Kind
}

func (e *MissingAssetError) Error() string {
	return fmt.Sprintf("cdntags: no %s CDN URL configured for asset %q", e.Kind, e.Asset)
}

// Is reports whether target is ErrMissingAssetMapping.
func (e *MissingAssetError) Is(target error) bool {
	return target == ErrMissingAssetMapping
}
