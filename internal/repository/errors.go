package repository

import "errors"

var (
	// ErrNotFound is returned when a row does not exist in the tenant's
	// partition.
	ErrNotFound = errors.New("record not found")

	// ErrAlreadyAssigned is returned when the atomic assignment
	// check-and-set finds the request already bound to a staff member.
	ErrAlreadyAssigned = errors.New("request already assigned")

	// ErrStaleStatus is returned when an optimistic status precondition
	// no longer holds. The caller's view of the request is out of date
	// and nothing was written.
	ErrStaleStatus = errors.New("request status changed concurrently")
)
