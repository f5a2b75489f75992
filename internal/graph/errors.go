package graph

import (
	"errors"
	"fmt"
)

// Sentinel error classes. Every error returned by this package and by the
// engine matches exactly one of them under errors.Is.
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidStructure = errors.New("invalid structure")
	ErrValidation       = errors.New("validation failed")
	ErrStorage          = errors.New("storage failure")
)

// NotFoundError reports an id absent from the current snapshot.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

func (e NotFoundError) Is(target error) bool { return target == ErrNotFound }

// StructureError reports a mutation that would break the forest,
// such as reparenting an item under its own descendant.
type StructureError struct {
	Op     string
	ID     string
	Reason string
}

func (e StructureError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Op, e.ID, e.Reason)
}

func (e StructureError) Is(target error) bool { return target == ErrInvalidStructure }

// ValidationError reports caller input that is rejected before storage.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e ValidationError) Is(target error) bool { return target == ErrValidation }

// StorageError wraps a failed storage call. The snapshot was not advanced;
// the whole logical mutation may be retried.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }
