// Package wot implements the in-process Thing model: Thing, Interaction
// (Property, Action, Event) and Form, plus Thing Description (de)serialization.
package wot

import "errors"

// Sentinel errors for the kinds in spec §7. Callers compare with errors.Is;
// protocol servers translate these into the wire error code enum.
var (
	// ErrInvalidID is returned when a Thing id is not a syntactically valid IRI with a scheme (I1).
	ErrInvalidID = errors.New("invalid-id")

	// ErrDuplicateName is returned when adding an Interaction whose name
	// collides with an existing one under slug equivalence (I2).
	ErrDuplicateName = errors.New("duplicate-name")

	// ErrDuplicateForm is returned when adding a Form whose (href, mediaType)
	// pair collides with an existing Form on the same Interaction (I3).
	ErrDuplicateForm = errors.New("duplicate-form")

	// ErrNotFound is returned for operations against an unknown interaction name.
	ErrNotFound = errors.New("not-found")

	// ErrNotWritable is returned when an external caller writes a non-writable property (I4).
	ErrNotWritable = errors.New("not-writable")

	// ErrNotObservable is returned when subscribing to a non-observable property (I5).
	ErrNotObservable = errors.New("not-observable")

	// ErrNoHandler is returned invoking an action with no bound handler.
	ErrNoHandler = errors.New("no-handler")

	// ErrNoForm is returned when a client cannot find a usable Form for an operation.
	ErrNoForm = errors.New("no-form")
)
