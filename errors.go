package crossprefs

import "errors"

var (
	// ErrFileNotFound is returned by loaders when an optional source file does not exist.
	// It is not fatal; callers continue with the remaining sources.
	ErrFileNotFound = errors.New("preference file not found")

	// ErrUnknownFormat is returned when a source file format cannot be determined.
	ErrUnknownFormat = errors.New("unable to determine preference file format")

	// ErrInvalidNamespace is returned for empty, duplicate or malformed namespace ids.
	ErrInvalidNamespace = errors.New("invalid namespace")

	// ErrInvalidToolchain is returned when a registry cannot be built from its definitions.
	ErrInvalidToolchain = errors.New("invalid toolchain definition")

	// ErrInvalidLayers is returned when a resolver gets fewer than two stores.
	ErrInvalidLayers = errors.New("resolver needs a common and a current store")

	ErrNilRegistry = errors.New("toolchain registry is nil")
	ErrNilProbe    = errors.New("discovery probe is nil")
	ErrNilTree     = errors.New("preference tree is nil")

	// ErrOverrideParse wraps malformed command-line overrides.
	ErrOverrideParse = errors.New("failed to parse preference override")
)
