// Package lifecycle owns the service request status state machine. A
// Machine validates and applies transitions in memory; persistence with an
// optimistic status precondition is the caller's responsibility.
package lifecycle

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/waterworks/servicedesk/internal/domain"
	apperrors "github.com/waterworks/servicedesk/pkg/util"
)

// Policy tunes the guards that the reference behavior leaves open.
type Policy struct {
	// StrictResolutionPath requires assignment before resolve and a
	// resolved status before close. When false (the default), resolve
	// and close are legal from any non-terminal state.
	StrictResolutionPath bool
}

// Machine applies status transitions to service requests.
type Machine struct {
	policy Policy
	now    func() time.Time
}

// New builds a machine. A nil clock defaults to time.Now.
func New(policy Policy, clock func() time.Time) *Machine {
	if clock == nil {
		clock = time.Now
	}
	return &Machine{policy: policy, now: clock}
}

var transitions = map[domain.RequestStatus][]domain.RequestStatus{
	domain.StatusOpen:         {domain.StatusAcknowledged, domain.StatusAssigned, domain.StatusCancelled},
	domain.StatusAcknowledged: {domain.StatusAssigned, domain.StatusInProgress, domain.StatusCancelled},
	domain.StatusAssigned:     {domain.StatusInProgress, domain.StatusCancelled},
	domain.StatusInProgress:   {domain.StatusOnHold, domain.StatusResolved, domain.StatusCancelled},
	domain.StatusOnHold:       {domain.StatusInProgress, domain.StatusCancelled},
	domain.StatusResolved:     {domain.StatusClosed, domain.StatusCancelled},
	domain.StatusClosed:       {},
	domain.StatusCancelled:    {},
}

// CanTransition reports whether the edge exists in the strict graph.
func CanTransition(from, to domain.RequestStatus) bool {
	for _, candidate := range transitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// Acknowledge marks an open request as received. It stamps the actual
// response time used for response-SLA compliance.
func (m *Machine) Acknowledge(req *domain.ServiceRequest) error {
	if req.Status != domain.StatusOpen {
		return apperrors.NewInvalidTransition(string(req.Status), string(domain.StatusAcknowledged))
	}
	now := m.now()
	req.Status = domain.StatusAcknowledged
	req.AcknowledgedAt = &now
	req.ActualResponseAt = &now
	req.UpdatedAt = now
	return nil
}

// Assign binds the request to a staff member. The already-assigned guard
// lives in the assignment manager; this transition only validates status.
func (m *Machine) Assign(req *domain.ServiceRequest, staffID string) error {
	if req.Status.IsTerminal() || req.Status == domain.StatusResolved {
		return apperrors.NewInvalidTransition(string(req.Status), string(domain.StatusAssigned))
	}
	now := m.now()
	req.AssignedTo = &staffID
	req.AssignedAt = &now
	req.Status = domain.StatusAssigned
	req.UpdatedAt = now
	return nil
}

// Start moves an assigned or acknowledged request into active work.
func (m *Machine) Start(req *domain.ServiceRequest) error {
	if !CanTransition(req.Status, domain.StatusInProgress) {
		return apperrors.NewInvalidTransition(string(req.Status), string(domain.StatusInProgress))
	}
	req.Status = domain.StatusInProgress
	req.UpdatedAt = m.now()
	return nil
}

// Hold pauses in-flight work.
func (m *Machine) Hold(req *domain.ServiceRequest) error {
	if req.Status != domain.StatusInProgress {
		return apperrors.NewInvalidTransition(string(req.Status), string(domain.StatusOnHold))
	}
	req.Status = domain.StatusOnHold
	req.UpdatedAt = m.now()
	return nil
}

// Resume returns a held request to active work.
func (m *Machine) Resume(req *domain.ServiceRequest) error {
	if req.Status != domain.StatusOnHold {
		return apperrors.NewInvalidTransition(string(req.Status), string(domain.StatusInProgress))
	}
	req.Status = domain.StatusInProgress
	req.UpdatedAt = m.now()
	return nil
}

// Resolve records the outcome. Under the permissive policy any
// non-terminal request may be resolved directly; the strict policy
// requires the request to have been assigned first.
func (m *Machine) Resolve(req *domain.ServiceRequest, notes string, category domain.ResolutionCategory, workOrderNumber string) error {
	if req.Status.IsTerminal() || req.Status == domain.StatusResolved {
		return apperrors.NewInvalidTransition(string(req.Status), string(domain.StatusResolved))
	}
	if m.policy.StrictResolutionPath && req.AssignedTo == nil {
		return apperrors.NewInvalidTransition(string(req.Status), string(domain.StatusResolved))
	}
	if !category.Valid() {
		return apperrors.NewValidationError("invalid resolution category",
			map[string]any{"resolution_category": "unknown value"})
	}
	now := m.now()
	req.Status = domain.StatusResolved
	req.ResolvedAt = &now
	if notes = strings.TrimSpace(notes); notes != "" {
		req.ResolutionNotes = notes
	}
	if category != "" {
		req.ResolutionCategory = category
	}
	if workOrderNumber = strings.TrimSpace(workOrderNumber); workOrderNumber != "" {
		req.CreatedWorkOrder = true
		req.WorkOrderNumber = workOrderNumber
	}
	req.UpdatedAt = now
	return nil
}

// Close finishes a request. The permissive policy mirrors the reference
// behavior and allows closing from any non-terminal state.
func (m *Machine) Close(req *domain.ServiceRequest) error {
	if req.Status.IsTerminal() {
		return apperrors.NewInvalidTransition(string(req.Status), string(domain.StatusClosed))
	}
	if m.policy.StrictResolutionPath && req.Status != domain.StatusResolved {
		return apperrors.NewInvalidTransition(string(req.Status), string(domain.StatusClosed))
	}
	now := m.now()
	req.Status = domain.StatusClosed
	req.ClosedAt = &now
	req.UpdatedAt = now
	return nil
}

// Cancel aborts a request from any non-terminal state.
func (m *Machine) Cancel(req *domain.ServiceRequest) error {
	if req.Status.IsTerminal() {
		return apperrors.NewInvalidTransition(string(req.Status), string(domain.StatusCancelled))
	}
	req.Status = domain.StatusCancelled
	req.UpdatedAt = m.now()
	return nil
}

// Rate attaches a customer satisfaction rating. Only resolved or closed
// requests may be rated, and only once.
func (m *Machine) Rate(req *domain.ServiceRequest, rating int, feedback string) error {
	if rating < 1 || rating > 5 {
		return apperrors.NewValidationError("rating must be between 1 and 5",
			map[string]any{"rating": "out of range"})
	}
	if req.Status != domain.StatusResolved && req.Status != domain.StatusClosed {
		return apperrors.NewValidationError("can only rate resolved or closed requests",
			map[string]any{"status": string(req.Status)})
	}
	if req.CustomerRating != nil {
		return apperrors.NewValidationError("request has already been rated",
			map[string]any{"rating": "already recorded"})
	}
	feedback = strings.TrimSpace(feedback)
	if utf8.RuneCountInString(feedback) > 1000 {
		return apperrors.NewValidationError("feedback must be less than 1000 characters",
			map[string]any{"feedback": "too long"})
	}
	req.CustomerRating = &rating
	req.CustomerFeedback = feedback
	req.UpdatedAt = m.now()
	return nil
}
