package domain

import "time"

// Comment is an immutable thread entry on a service request. Entries are
// never edited or deleted once stored.
type Comment struct {
	ID        string
	TenantID  string
	RequestID string
	Author    Author
	Body      string

	// Internal entries are staff-only audit notes, never surfaced to
	// the customer.
	Internal bool

	// Optional status labels when the comment accompanies a transition.
	StatusChangedFrom RequestStatus
	StatusChangedTo   RequestStatus

	CreatedAt time.Time
}
