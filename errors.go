package mipcore

import (
	"errors"
	"fmt"

	"github.com/optimalize/mipcore/model"
)

var (
	// ErrNoModel is returned when Run is called before a model was loaded.
	ErrNoModel = errors.New("mipcore: no model loaded")

	// ErrAlreadyRunning is returned when Run is invoked on a solver that
	// has not finished a previous Run call.
	ErrAlreadyRunning = errors.New("mipcore: solver already running")
)

// ErrInvalidVarType indicates that a column with an unreformulated variable
// type (semi-continuous or semi-integer) reached the root orchestrator. This
// is an upstream contract violation, not a numeric edge case, and aborts the
// run.
type ErrInvalidVarType struct {
	Col     int
	VarType model.VarType
}

func (e *ErrInvalidVarType) Error() string {
	return fmt.Sprintf("mipcore: column %d has unreformulated variable type %s", e.Col, e.VarType)
}

// ErrMissingCollaborator indicates that a required collaborator was not
// supplied to New.
type ErrMissingCollaborator struct {
	Name string
}

func (e *ErrMissingCollaborator) Error() string {
	return fmt.Sprintf("mipcore: missing required collaborator %q", e.Name)
}

// ErrDimensionMismatch indicates a model slice or solution vector whose
// length does not match the stated dimension.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
	cause    error
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("mipcore: dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func (e *ErrDimensionMismatch) Unwrap() error { return e.cause }
