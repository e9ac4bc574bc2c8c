package analysis

import "errors"

var (
	// ErrInsufficientData is returned when fewer than two usable prices are available
	ErrInsufficientData = errors.New("insufficient data")

	// ErrInvalidBase is returned when an instrument's first price is zero, negative or not finite
	ErrInvalidBase = errors.New("invalid normalization base")

	// ErrNoObservations is returned when an instrument has no value anywhere in the table
	ErrNoObservations = errors.New("no observations")

	// ErrNonFiniteMetric is returned when a metric overflows to infinity or NaN
	ErrNonFiniteMetric = errors.New("non-finite metric")
)
