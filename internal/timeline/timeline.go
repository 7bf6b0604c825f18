// Package timeline reconstructs a causally ordered view of everything
// that happened to a service request. It is a pure read-time projection:
// nothing is persisted and every call recomputes from scratch.
package timeline

import (
	"fmt"
	"sort"
	"time"

	"github.com/waterworks/servicedesk/internal/domain"
)

// EventKind labels a synthetic timeline event.
type EventKind string

const (
	EventCreated      EventKind = "created"
	EventAcknowledged EventKind = "acknowledged"
	EventAssigned     EventKind = "assigned"
	EventComment      EventKind = "comment"
	EventResolved     EventKind = "resolved"
	EventClosed       EventKind = "closed"
)

// Event is one entry in the reconstructed timeline.
type Event struct {
	Kind        EventKind
	Title       string
	Description string
	Timestamp   time.Time
	ActorName   string
	ActorType   domain.AuthorKind
}

// Names supplies display names for the actors referenced by a request and
// its thread. Missing staff entries fall back to "Support Team".
type Names struct {
	Customer string
	Staff    map[string]string
}

func (n Names) staffName(id *string) string {
	if id != nil {
		if name, ok := n.Staff[*id]; ok && name != "" {
			return name
		}
	}
	return "Support Team"
}

func (n Names) authorName(author domain.Author) string {
	switch author.Kind {
	case domain.AuthorCustomer:
		if n.Customer != "" {
			return n.Customer
		}
		return "Customer"
	case domain.AuthorStaff:
		id := author.ID
		return n.staffName(&id)
	}
	return "System"
}

// Build merges lifecycle milestones and non-internal comments into one
// ascending sequence. Internal comments never appear.
func Build(req *domain.ServiceRequest, comments []domain.Comment, names Names) []Event {
	events := make([]Event, 0, 5+len(comments))

	events = append(events, Event{
		Kind:        EventCreated,
		Title:       "Request Created",
		Description: fmt.Sprintf("Service request %s was created", req.RequestNumber),
		Timestamp:   req.CreatedAt,
		ActorName:   names.authorName(domain.CustomerAuthor(req.CustomerID)),
		ActorType:   domain.AuthorCustomer,
	})

	if req.AcknowledgedAt != nil {
		events = append(events, Event{
			Kind:        EventAcknowledged,
			Title:       "Request Acknowledged",
			Description: "Your request has been received and acknowledged",
			Timestamp:   *req.AcknowledgedAt,
			ActorName:   "Support Team",
			ActorType:   domain.AuthorStaff,
		})
	}

	if req.AssignedAt != nil && req.AssignedTo != nil {
		name := names.staffName(req.AssignedTo)
		events = append(events, Event{
			Kind:        EventAssigned,
			Title:       "Request Assigned",
			Description: fmt.Sprintf("Request assigned to %s", name),
			Timestamp:   *req.AssignedAt,
			ActorName:   name,
			ActorType:   domain.AuthorStaff,
		})
	}

	if req.ResolvedAt != nil {
		events = append(events, Event{
			Kind:        EventResolved,
			Title:       "Request Resolved",
			Description: "Your request has been resolved",
			Timestamp:   *req.ResolvedAt,
			ActorName:   names.staffName(req.AssignedTo),
			ActorType:   domain.AuthorStaff,
		})
	}

	if req.ClosedAt != nil {
		events = append(events, Event{
			Kind:        EventClosed,
			Title:       "Request Closed",
			Description: "Request has been closed",
			Timestamp:   *req.ClosedAt,
			ActorName:   "System",
			ActorType:   domain.AuthorSystem,
		})
	}

	for _, comment := range comments {
		if comment.Internal {
			continue
		}
		name := names.authorName(comment.Author)
		events = append(events, Event{
			Kind:        EventComment,
			Title:       fmt.Sprintf("Comment from %s", name),
			Description: preview(comment.Body, 100),
			Timestamp:   comment.CreatedAt,
			ActorName:   name,
			ActorType:   comment.Author.Kind,
		})
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.Before(events[j].Timestamp)
	})
	return events
}

func preview(body string, max int) string {
	runes := []rune(body)
	if len(runes) <= max {
		return body
	}
	return string(runes[:max]) + "..."
}
