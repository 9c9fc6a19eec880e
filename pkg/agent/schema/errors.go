package schema

import (
	"errors"
	"fmt"
)

// ClassificationError means a stage could not produce a valid structured
// decision. It is fatal for the turn.
type ClassificationError struct {
	Stage string
	Raw   string
	Err   error
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("%s: could not classify: %v", e.Stage, e.Err)
}

func (e *ClassificationError) Unwrap() error { return e.Err }

// LookupError means a referenced ingredient, product or table does not exist.
// The turn recovers by asking the user to clarify.
type LookupError struct {
	Entity string
	Name   string
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.Name)
}

// PersistenceError means the turn's memory could not be written.
type PersistenceError struct {
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist session %s: %v", e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func IsClassification(err error) bool {
	var target *ClassificationError
	return errors.As(err, &target)
}

func IsLookup(err error) bool {
	var target *LookupError
	return errors.As(err, &target)
}

func IsPersistence(err error) bool {
	var target *PersistenceError
	return errors.As(err, &target)
}
