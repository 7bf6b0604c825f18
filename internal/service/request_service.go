package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/waterworks/servicedesk/internal/domain"
	"github.com/waterworks/servicedesk/internal/events"
	"github.com/waterworks/servicedesk/internal/lifecycle"
	"github.com/waterworks/servicedesk/internal/repository"
	"github.com/waterworks/servicedesk/internal/timeline"
	"github.com/waterworks/servicedesk/internal/validation"
	apperrors "github.com/waterworks/servicedesk/pkg/util"
)

// RequestService coordinates service request workflows.
type RequestService struct {
	requests   repository.RequestRepository
	comments   repository.CommentRepository
	photos     repository.PhotoRepository
	customers  repository.CustomerRepository
	staff      repository.StaffRepository
	assets     repository.AssetRepository
	validator  *validation.Validator
	machine    *lifecycle.Machine
	dispatcher events.Dispatcher
}

// RequestDependencies bundles collaborators for the request service.
type RequestDependencies struct {
	RequestRepo  repository.RequestRepository
	CommentRepo  repository.CommentRepository
	PhotoRepo    repository.PhotoRepository
	CustomerRepo repository.CustomerRepository
	StaffRepo    repository.StaffRepository
	AssetRepo    repository.AssetRepository
	Validator    *validation.Validator
	Machine      *lifecycle.Machine
	Dispatcher   events.Dispatcher
}

// CustomerListFilter describes customer-facing listing filters.
type CustomerListFilter struct {
	Statuses    []domain.RequestStatus
	IssueTypes  []domain.IssueType
	Urgencies   []domain.Urgency
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// StaffListFilter describes staff listing filters.
type StaffListFilter struct {
	CustomerID  *string
	AssignedTo  *string
	Statuses    []domain.RequestStatus
	IssueTypes  []domain.IssueType
	Urgencies   []domain.Urgency
	SearchTerm  *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// ResolveInput captures the resolution outcome.
type ResolveInput struct {
	Notes           string
	Category        domain.ResolutionCategory
	WorkOrderNumber string
}

// RequestDetail bundles a request with its visible thread.
type RequestDetail struct {
	Request  *domain.ServiceRequest
	Comments []domain.Comment
	Photos   []domain.Photo
}

// NewRequestService constructs the service.
func NewRequestService(deps RequestDependencies) *RequestService {
	return &RequestService{
		requests:   deps.RequestRepo,
		comments:   deps.CommentRepo,
		photos:     deps.PhotoRepo,
		customers:  deps.CustomerRepo,
		staff:      deps.StaffRepo,
		assets:     deps.AssetRepo,
		validator:  deps.Validator,
		machine:    deps.Machine,
		dispatcher: deps.Dispatcher,
	}
}

// CreateRequest validates intake and opens a new service request.
func (s *RequestService) CreateRequest(ctx context.Context, tenantID, customerID string, input validation.CreateRequestInput) (*domain.ServiceRequest, error) {
	if input.AssetID != nil && strings.TrimSpace(*input.AssetID) != "" {
		if _, err := s.assets.GetByID(ctx, tenantID, *input.AssetID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, apperrors.NewValidationError("service request validation failed",
					map[string]any{"asset_id": "unknown asset"})
			}
			return nil, apperrors.MapError(err)
		}
	}

	req, err := s.validator.ValidateCreate(tenantID, customerID, input)
	if err != nil {
		return nil, err
	}
	if err := s.requests.Create(ctx, req); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publishEvent(ctx, events.Event{
		Type:          events.EventRequestCreated,
		TenantID:      req.TenantID,
		RequestID:     req.ID,
		RequestNumber: req.RequestNumber,
		Actor:         customerActor(customerID),
		Payload: events.RequestCreatedPayload{
			CustomerID:    req.CustomerID,
			IssueType:     req.IssueType,
			Urgency:       req.Urgency,
			PriorityScore: req.PriorityScore,
			Title:         req.Title,
		},
	})
	return req, nil
}

// ListCustomerRequests returns paginated requests for a customer.
func (s *RequestService) ListCustomerRequests(ctx context.Context, tenantID, customerID string, filter CustomerListFilter) ([]domain.ServiceRequest, error) {
	repoFilter := repository.RequestFilter{
		CustomerID:  &customerID,
		Statuses:    filter.Statuses,
		IssueTypes:  filter.IssueTypes,
		Urgencies:   filter.Urgencies,
		CreatedFrom: filter.CreatedFrom,
		CreatedTo:   filter.CreatedTo,
		Limit:       filter.Limit,
		Offset:      filter.Offset,
	}
	requests, err := s.requests.ListWithFilter(ctx, tenantID, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return requests, nil
}

// ListStaffRequests returns requests matching the staff filter.
func (s *RequestService) ListStaffRequests(ctx context.Context, tenantID string, filter StaffListFilter) ([]domain.ServiceRequest, error) {
	repoFilter := repository.RequestFilter{
		CustomerID:  filter.CustomerID,
		AssignedTo:  filter.AssignedTo,
		Statuses:    filter.Statuses,
		IssueTypes:  filter.IssueTypes,
		Urgencies:   filter.Urgencies,
		SearchTerm:  filter.SearchTerm,
		CreatedFrom: filter.CreatedFrom,
		CreatedTo:   filter.CreatedTo,
		Limit:       filter.Limit,
		Offset:      filter.Offset,
	}
	requests, err := s.requests.ListWithFilter(ctx, tenantID, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return requests, nil
}

// GetRequestForCustomer fetches a request ensuring ownership. Internal
// notes are never included.
func (s *RequestService) GetRequestForCustomer(ctx context.Context, tenantID, customerID, requestID string) (*RequestDetail, error) {
	req, err := s.getRequest(ctx, tenantID, requestID)
	if err != nil {
		return nil, err
	}
	if req.CustomerID != customerID {
		return nil, apperrors.NewForbidden("access denied")
	}
	return s.detail(ctx, req, false)
}

// GetRequestForStaff fetches a request with the full thread.
func (s *RequestService) GetRequestForStaff(ctx context.Context, tenantID, requestID string) (*RequestDetail, error) {
	req, err := s.getRequest(ctx, tenantID, requestID)
	if err != nil {
		return nil, err
	}
	return s.detail(ctx, req, true)
}

// Acknowledge marks an open request as received by the utility.
func (s *RequestService) Acknowledge(ctx context.Context, tenantID string, staff *domain.Staff, requestID string) (*domain.ServiceRequest, error) {
	if staff == nil {
		return nil, apperrors.NewUnauthorized("staff required")
	}
	return s.transition(ctx, tenantID, requestID, staffActor(staff.ID), "", s.machine.Acknowledge)
}

// StartWork moves a request into active work.
func (s *RequestService) StartWork(ctx context.Context, tenantID string, staff *domain.Staff, requestID string) (*domain.ServiceRequest, error) {
	if staff == nil {
		return nil, apperrors.NewUnauthorized("staff required")
	}
	return s.transition(ctx, tenantID, requestID, staffActor(staff.ID), "", s.machine.Start)
}

// Hold pauses in-flight work, recording the reason on the thread.
func (s *RequestService) Hold(ctx context.Context, tenantID string, staff *domain.Staff, requestID, reason string) (*domain.ServiceRequest, error) {
	if staff == nil {
		return nil, apperrors.NewUnauthorized("staff required")
	}
	return s.transition(ctx, tenantID, requestID, staffActor(staff.ID), reason, s.machine.Hold)
}

// Resume returns a held request to active work.
func (s *RequestService) Resume(ctx context.Context, tenantID string, staff *domain.Staff, requestID string) (*domain.ServiceRequest, error) {
	if staff == nil {
		return nil, apperrors.NewUnauthorized("staff required")
	}
	return s.transition(ctx, tenantID, requestID, staffActor(staff.ID), "", s.machine.Resume)
}

// Resolve records the outcome of the work.
func (s *RequestService) Resolve(ctx context.Context, tenantID string, staff *domain.Staff, requestID string, input ResolveInput) (*domain.ServiceRequest, error) {
	if staff == nil {
		return nil, apperrors.NewUnauthorized("staff required")
	}
	return s.transition(ctx, tenantID, requestID, staffActor(staff.ID), "", func(req *domain.ServiceRequest) error {
		return s.machine.Resolve(req, input.Notes, input.Category, input.WorkOrderNumber)
	})
}

// Close finishes a request.
func (s *RequestService) Close(ctx context.Context, tenantID string, staff *domain.Staff, requestID string) (*domain.ServiceRequest, error) {
	if staff == nil {
		return nil, apperrors.NewUnauthorized("staff required")
	}
	return s.transition(ctx, tenantID, requestID, staffActor(staff.ID), "", s.machine.Close)
}

// CancelAsCustomer lets a customer withdraw their own request.
func (s *RequestService) CancelAsCustomer(ctx context.Context, tenantID, customerID, requestID string) (*domain.ServiceRequest, error) {
	req, err := s.getRequest(ctx, tenantID, requestID)
	if err != nil {
		return nil, err
	}
	if req.CustomerID != customerID {
		return nil, apperrors.NewForbidden("access denied")
	}
	return s.transition(ctx, tenantID, requestID, customerActor(customerID), "", s.machine.Cancel)
}

// CancelAsStaff aborts a request on behalf of the utility.
func (s *RequestService) CancelAsStaff(ctx context.Context, tenantID string, staff *domain.Staff, requestID, reason string) (*domain.ServiceRequest, error) {
	if staff == nil {
		return nil, apperrors.NewUnauthorized("staff required")
	}
	return s.transition(ctx, tenantID, requestID, staffActor(staff.ID), reason, s.machine.Cancel)
}

// Rate records the customer's satisfaction rating, once.
func (s *RequestService) Rate(ctx context.Context, tenantID, customerID, requestID string, rating int, feedback string) (*domain.ServiceRequest, error) {
	req, err := s.getRequest(ctx, tenantID, requestID)
	if err != nil {
		return nil, err
	}
	if req.CustomerID != customerID {
		return nil, apperrors.NewForbidden("access denied")
	}
	if err := s.machine.Rate(req, rating, feedback); err != nil {
		return nil, err
	}
	if err := s.requests.SaveRating(ctx, req); err != nil {
		if errors.Is(err, repository.ErrStaleStatus) {
			return nil, apperrors.NewConflict("request can no longer be rated",
				map[string]any{"request_id": requestID})
		}
		return nil, apperrors.MapError(err)
	}
	s.publishEvent(ctx, events.Event{
		Type:          events.EventRequestRated,
		TenantID:      req.TenantID,
		RequestID:     req.ID,
		RequestNumber: req.RequestNumber,
		Actor:         customerActor(customerID),
		Payload: events.RequestRatedPayload{
			Rating:   rating,
			Feedback: req.CustomerFeedback,
		},
	})
	return req, nil
}

// TimelineForCustomer rebuilds the customer-visible activity feed.
func (s *RequestService) TimelineForCustomer(ctx context.Context, tenantID, customerID, requestID string) ([]timeline.Event, error) {
	req, err := s.getRequest(ctx, tenantID, requestID)
	if err != nil {
		return nil, err
	}
	if req.CustomerID != customerID {
		return nil, apperrors.NewForbidden("access denied")
	}
	return s.buildTimeline(ctx, req)
}

// TimelineForStaff rebuilds the activity feed for staff. Internal notes
// remain excluded; they belong to the thread view, not the timeline.
func (s *RequestService) TimelineForStaff(ctx context.Context, tenantID, requestID string) ([]timeline.Event, error) {
	req, err := s.getRequest(ctx, tenantID, requestID)
	if err != nil {
		return nil, err
	}
	return s.buildTimeline(ctx, req)
}

func (s *RequestService) getRequest(ctx context.Context, tenantID, requestID string) (*domain.ServiceRequest, error) {
	req, err := s.requests.GetByID(ctx, tenantID, requestID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("service request", map[string]any{"request_id": requestID})
		}
		return nil, apperrors.MapError(err)
	}
	return req, nil
}

func (s *RequestService) detail(ctx context.Context, req *domain.ServiceRequest, includeInternal bool) (*RequestDetail, error) {
	comments, err := s.comments.ListByRequest(ctx, req.TenantID, req.ID, includeInternal)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	photos, err := s.photos.ListByRequest(ctx, req.TenantID, req.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return &RequestDetail{Request: req, Comments: comments, Photos: photos}, nil
}

// transition fetches, mutates in memory and persists with an optimistic
// precondition on the pre-mutation status. A losing race surfaces as a
// conflict; the stored request is untouched.
func (s *RequestService) transition(ctx context.Context, tenantID, requestID string, actor events.Actor, note string, mutate func(*domain.ServiceRequest) error) (*domain.ServiceRequest, error) {
	req, err := s.getRequest(ctx, tenantID, requestID)
	if err != nil {
		return nil, err
	}
	oldStatus := req.Status
	if err := mutate(req); err != nil {
		return nil, err
	}
	if err := s.requests.UpdateStatus(ctx, req, []domain.RequestStatus{oldStatus}); err != nil {
		if errors.Is(err, repository.ErrStaleStatus) {
			return nil, apperrors.NewConflict("request was modified concurrently",
				map[string]any{"request_id": requestID})
		}
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("service request", map[string]any{"request_id": requestID})
		}
		return nil, apperrors.MapError(err)
	}

	if note = strings.TrimSpace(note); note != "" {
		comment := &domain.Comment{
			ID:                uuid.NewString(),
			TenantID:          req.TenantID,
			RequestID:         req.ID,
			Author:            authorFromActor(actor),
			Body:              note,
			StatusChangedFrom: oldStatus,
			StatusChangedTo:   req.Status,
			CreatedAt:         req.UpdatedAt,
		}
		if err := s.comments.Create(ctx, comment); err != nil {
			return nil, apperrors.MapError(err)
		}
	}

	s.publishEvent(ctx, events.Event{
		Type:          events.EventRequestStatusChanged,
		TenantID:      req.TenantID,
		RequestID:     req.ID,
		RequestNumber: req.RequestNumber,
		Actor:         actor,
		Payload: events.RequestStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: req.Status,
			Notes:     note,
		},
	})
	return req, nil
}

func (s *RequestService) buildTimeline(ctx context.Context, req *domain.ServiceRequest) ([]timeline.Event, error) {
	comments, err := s.comments.ListByRequest(ctx, req.TenantID, req.ID, false)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	names := timeline.Names{Staff: map[string]string{}}
	if customer, err := s.customers.GetByID(ctx, req.TenantID, req.CustomerID); err == nil {
		names.Customer = customer.FullName()
	}

	staffIDs := map[string]bool{}
	if req.AssignedTo != nil {
		staffIDs[*req.AssignedTo] = true
	}
	for _, comment := range comments {
		if comment.Author.IsStaff() {
			staffIDs[comment.Author.ID] = true
		}
	}
	for id := range staffIDs {
		if member, err := s.staff.GetByID(ctx, req.TenantID, id); err == nil {
			names.Staff[id] = member.Name
		}
	}

	return timeline.Build(req, comments, names), nil
}

func (s *RequestService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func customerActor(customerID string) events.Actor {
	return events.Actor{Type: domain.SubjectTypeCustomer, CustomerID: &customerID}
}

func staffActor(staffID string) events.Actor {
	return events.Actor{Type: domain.SubjectTypeStaff, StaffID: &staffID}
}

func authorFromActor(actor events.Actor) domain.Author {
	switch {
	case actor.Type == domain.SubjectTypeCustomer && actor.CustomerID != nil:
		return domain.CustomerAuthor(*actor.CustomerID)
	case actor.Type == domain.SubjectTypeStaff && actor.StaffID != nil:
		return domain.StaffAuthor(*actor.StaffID)
	}
	return domain.SystemAuthor()
}
