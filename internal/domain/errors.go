package domain

import "errors"

var (
	// ErrValidation is returned when an add request is rejected before any backend call.
	ErrValidation = errors.New("invalid bookmark")

	// ErrNotFound is returned when the bookmark does not exist for the user.
	ErrNotFound = errors.New("bookmark not found")

	// ErrDeletePending is returned when a delete of the same id is still in flight.
	ErrDeletePending = errors.New("delete already in progress")

	// ErrUnauthenticated is returned when no user is resolved for the session.
	ErrUnauthenticated = errors.New("not authenticated")

	// ErrBackend wraps failures reported by the data collaborator.
	ErrBackend = errors.New("backend request failed")

	// ErrViewClosed is returned when a view could not reload and was unmounted.
	// The client has to mount a new view.
	ErrViewClosed = errors.New("view closed after failed reload, mount again")

	// ErrInvalidChange is returned for change payloads that fail boundary validation.
	ErrInvalidChange = errors.New("invalid change payload")
)
