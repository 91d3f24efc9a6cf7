package core

import "errors"

var (
	// ErrModelNotFound is returned when classification is requested and no trained model exists
	ErrModelNotFound = errors.New("trained model not found")
	// ErrDatasetFormat is returned for missing columns, bad labels or a class without examples
	ErrDatasetFormat = errors.New("invalid dataset format")
	// ErrSerialization is returned when a persisted model is corrupt or incompatible
	ErrSerialization = errors.New("model serialization error")
	// ErrInvalidInput marks malformed input text. The normalizer absorbs it, so it is
	// only ever logged.
	ErrInvalidInput = errors.New("invalid input text")
)
