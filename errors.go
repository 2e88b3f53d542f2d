package gridsearch

import (
	"errors"
	"fmt"
)

//////
// Sentinel errors.
//////

var (
	// ErrOutOfRange indicates a grid index outside [0, width) x [0, height).
	ErrOutOfRange = errors.New("gridsearch: index out of range")

	// ErrState indicates an operation invalid in the current state, such as
	// extending a grid with a point that lies inside it or reading a measure
	// before a search has run.
	ErrState = errors.New("gridsearch: invalid state")

	// ErrDegenerateBatch indicates a batch whose points were all cached
	// already, so there was nothing left to compute.
	ErrDegenerateBatch = fmt.Errorf("%w: batch has no pending points", ErrState)

	// ErrUnsupportedPropertyType indicates a target property whose kind
	// cannot receive a numeric grid value.
	ErrUnsupportedPropertyType = errors.New("gridsearch: unsupported property type")

	// ErrInvalidArgument indicates a property path that does not designate
	// the target it is applied to.
	ErrInvalidArgument = errors.New("gridsearch: invalid argument")

	// ErrInvalidGrid indicates grid bounds that do not form a valid lattice.
	ErrInvalidGrid = errors.New("gridsearch: invalid grid")

	// ErrInvalidConfig indicates a configuration rejected before searching.
	ErrInvalidConfig = errors.New("gridsearch: invalid configuration")

	// ErrEvaluation wraps a failure of the evaluation of one grid point.
	ErrEvaluation = errors.New("gridsearch: evaluation failed")
)
