package events

import (
	"time"

	"github.com/waterworks/servicedesk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventRequestCreated       EventType = "request_created"
	EventRequestStatusChanged EventType = "request_status_changed"
	EventRequestAssigned      EventType = "request_assigned"
	EventRequestCommentAdded  EventType = "request_comment_added"
	EventRequestRated         EventType = "request_rated"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Type       domain.SubjectType `json:"type"`
	CustomerID *string            `json:"customer_id,omitempty"`
	StaffID    *string            `json:"staff_id,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID            string      `json:"id"`
	Type          EventType   `json:"type"`
	TenantID      string      `json:"tenant_id"`
	RequestID     string      `json:"request_id"`
	RequestNumber string      `json:"request_number"`
	Actor         Actor       `json:"actor"`
	Timestamp     time.Time   `json:"timestamp"`
	Payload       interface{} `json:"payload"`
}

// RequestCreatedPayload payload.
type RequestCreatedPayload struct {
	CustomerID    string           `json:"customer_id"`
	IssueType     domain.IssueType `json:"issue_type"`
	Urgency       domain.Urgency   `json:"urgency"`
	PriorityScore int              `json:"priority_score"`
	Title         string           `json:"title"`
}

// RequestStatusChangedPayload payload.
type RequestStatusChangedPayload struct {
	OldStatus domain.RequestStatus `json:"old_status"`
	NewStatus domain.RequestStatus `json:"new_status"`
	Notes     string               `json:"notes,omitempty"`
}

// RequestAssignedPayload payload.
type RequestAssignedPayload struct {
	AssigneeStaffID string `json:"assignee_staff_id"`
}

// RequestCommentAddedPayload payload.
type RequestCommentAddedPayload struct {
	CommentID   string            `json:"comment_id"`
	AuthorKind  domain.AuthorKind `json:"author_kind"`
	AuthorID    string            `json:"author_id,omitempty"`
	Internal    bool              `json:"internal"`
	BodyPreview string            `json:"body_preview"`
}

// RequestRatedPayload payload.
type RequestRatedPayload struct {
	Rating   int    `json:"rating"`
	Feedback string `json:"feedback,omitempty"`
}
