package compliance

import "errors"

// ErrInvalidInput is returned for structurally valid calls with unusable
// values: non-positive FTP, an empty planned-step list, or an empty stream.
var ErrInvalidInput = errors.New("invalid input")

// ErrMalformedPlan is returned when a planned step fails structural
// validation (non-positive duration, interval without work/recovery sub-steps).
var ErrMalformedPlan = errors.New("malformed plan")

// ErrInsufficientData is returned when a sequence is too short to align.
var ErrInsufficientData = errors.New("insufficient data")

// ErrStreamTooLarge is returned when the actual stream exceeds the safety
// bound, before any alignment work is attempted.
var ErrStreamTooLarge = errors.New("stream too large")
