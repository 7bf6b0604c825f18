package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/waterworks/servicedesk/internal/domain"
	"github.com/waterworks/servicedesk/internal/events"
	"github.com/waterworks/servicedesk/internal/lifecycle"
	"github.com/waterworks/servicedesk/internal/repository"
	apperrors "github.com/waterworks/servicedesk/pkg/util"
)

// AssignmentService handles request assignment. The unassigned guard is a
// database check-and-set, so concurrent assigns resolve to exactly one
// winner regardless of process count.
type AssignmentService struct {
	requests   repository.RequestRepository
	staff      repository.StaffRepository
	machine    *lifecycle.Machine
	dispatcher events.Dispatcher
}

// AssignmentDependencies bundles collaborators.
type AssignmentDependencies struct {
	RequestRepo repository.RequestRepository
	StaffRepo   repository.StaffRepository
	Machine     *lifecycle.Machine
	Dispatcher  events.Dispatcher
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	return &AssignmentService{
		requests:   deps.RequestRepo,
		staff:      deps.StaffRepo,
		machine:    deps.Machine,
		dispatcher: deps.Dispatcher,
	}
}

// SelfAssign lets a staff member claim an unassigned request.
func (s *AssignmentService) SelfAssign(ctx context.Context, tenantID string, staff *domain.Staff, requestID string) (*domain.ServiceRequest, error) {
	if staff == nil {
		return nil, apperrors.NewUnauthorized("staff required")
	}
	if !staff.Active {
		return nil, apperrors.NewForbidden("staff inactive")
	}
	return s.assign(ctx, tenantID, requestID, staff.ID, staffActor(staff.ID))
}

// AssignToStaff assigns a request to the given staff member. Only
// supervisors and admins may assign to others.
func (s *AssignmentService) AssignToStaff(ctx context.Context, tenantID string, actor *domain.Staff, requestID, assigneeID string) (*domain.ServiceRequest, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("staff required")
	}
	if actor.ID != assigneeID && !actor.CanAssign() {
		return nil, apperrors.NewForbidden("insufficient role for assignment")
	}

	assignee, err := s.staff.GetByID(ctx, tenantID, assigneeID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("staff", map[string]any{"staff_id": assigneeID})
		}
		return nil, apperrors.MapError(err)
	}
	if !assignee.Active {
		return nil, apperrors.NewConflict("assignee inactive", map[string]any{"staff_id": assigneeID})
	}
	return s.assign(ctx, tenantID, requestID, assignee.ID, staffActor(actor.ID))
}

func (s *AssignmentService) assign(ctx context.Context, tenantID, requestID, assigneeID string, actor events.Actor) (*domain.ServiceRequest, error) {
	req, err := s.requests.GetByID(ctx, tenantID, requestID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("service request", map[string]any{"request_id": requestID})
		}
		return nil, apperrors.MapError(err)
	}
	if req.AssignedTo != nil {
		return nil, apperrors.NewAlreadyAssigned(requestID)
	}
	if err := s.machine.Assign(req, assigneeID); err != nil {
		return nil, err
	}
	if err := s.requests.AssignIfUnassigned(ctx, req); err != nil {
		if errors.Is(err, repository.ErrAlreadyAssigned) {
			return nil, apperrors.NewAlreadyAssigned(requestID)
		}
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("service request", map[string]any{"request_id": requestID})
		}
		return nil, apperrors.MapError(err)
	}

	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			ID:            uuid.NewString(),
			Type:          events.EventRequestAssigned,
			TenantID:      req.TenantID,
			RequestID:     req.ID,
			RequestNumber: req.RequestNumber,
			Actor:         actor,
			Timestamp:     time.Now(),
			Payload: events.RequestAssignedPayload{
				AssigneeStaffID: assigneeID,
			},
		})
	}
	return req, nil
}
