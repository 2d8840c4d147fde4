package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidLeg          = errors.New("invalid leg payload")
	ErrCorrelationConflict = errors.New("correlation conflict")
	ErrCorrelationAnomaly  = errors.New("correlation anomaly")
	ErrStorageUnavailable  = errors.New("storage unavailable")
	ErrStorageRejected     = errors.New("storage rejected the write")
)
