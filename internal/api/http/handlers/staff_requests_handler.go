package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/waterworks/servicedesk/internal/api/dto"
	"github.com/waterworks/servicedesk/internal/auth"
	"github.com/waterworks/servicedesk/internal/domain"
	"github.com/waterworks/servicedesk/internal/service"
	apperrors "github.com/waterworks/servicedesk/pkg/util"
)

// StaffRequestsHandler manages staff-side service request endpoints.
type StaffRequestsHandler struct {
	requests    *service.RequestService
	assignments *service.AssignmentService
	thread      *service.ThreadService
	stats       *service.StatsService
}

// NewStaffRequestsHandler constructs the handler.
func NewStaffRequestsHandler(requests *service.RequestService, assignments *service.AssignmentService, thread *service.ThreadService, stats *service.StatsService) *StaffRequestsHandler {
	return &StaffRequestsHandler{requests: requests, assignments: assignments, thread: thread, stats: stats}
}

// ListRequests GET /staff/requests.
func (h *StaffRequestsHandler) ListRequests(c *fiber.Ctx) error {
	principal, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	filter := parseStaffQuery(c)
	requests, err := h.requests.ListStaffRequests(c.UserContext(), principal.TenantID, filter)
	if err != nil {
		return err
	}
	now := time.Now()
	items := make([]dto.RequestSummary, 0, len(requests))
	for i := range requests {
		items = append(items, requestSummary(&requests[i], now))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetRequest GET /staff/requests/:id.
func (h *StaffRequestsHandler) GetRequest(c *fiber.Ctx) error {
	principal, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	detail, err := h.requests.GetRequestForStaff(c.UserContext(), principal.TenantID, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": requestDetail(detail, time.Now())})
}

// Acknowledge POST /staff/requests/:id/acknowledge.
func (h *StaffRequestsHandler) Acknowledge(c *fiber.Ctx) error {
	return h.simpleTransition(c, h.requests.Acknowledge)
}

// StartWork POST /staff/requests/:id/start.
func (h *StaffRequestsHandler) StartWork(c *fiber.Ctx) error {
	return h.simpleTransition(c, h.requests.StartWork)
}

// Resume POST /staff/requests/:id/resume.
func (h *StaffRequestsHandler) Resume(c *fiber.Ctx) error {
	return h.simpleTransition(c, h.requests.Resume)
}

// Close POST /staff/requests/:id/close.
func (h *StaffRequestsHandler) Close(c *fiber.Ctx) error {
	return h.simpleTransition(c, h.requests.Close)
}

// Hold POST /staff/requests/:id/hold.
func (h *StaffRequestsHandler) Hold(c *fiber.Ctx) error {
	principal, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.HoldRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	updated, err := h.requests.Hold(c.UserContext(), principal.TenantID, principal.Staff, c.Params("id"), req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": requestSummary(updated, time.Now())})
}

// Resolve POST /staff/requests/:id/resolve.
func (h *StaffRequestsHandler) Resolve(c *fiber.Ctx) error {
	principal, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.ResolveRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	updated, err := h.requests.Resolve(c.UserContext(), principal.TenantID, principal.Staff, c.Params("id"), service.ResolveInput{
		Notes:           req.Notes,
		Category:        req.Category,
		WorkOrderNumber: req.WorkOrderNumber,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": requestSummary(updated, time.Now())})
}

// Cancel POST /staff/requests/:id/cancel.
func (h *StaffRequestsHandler) Cancel(c *fiber.Ctx) error {
	principal, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CancelRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	updated, err := h.requests.CancelAsStaff(c.UserContext(), principal.TenantID, principal.Staff, c.Params("id"), req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": requestSummary(updated, time.Now())})
}

// Assign POST /staff/requests/:id/assign. With no staff_id in the body
// the caller claims the request for themselves.
func (h *StaffRequestsHandler) Assign(c *fiber.Ctx) error {
	principal, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.AssignRequest
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	var updated *domain.ServiceRequest
	if strings.TrimSpace(req.StaffID) == "" || req.StaffID == principal.Staff.ID {
		updated, err = h.assignments.SelfAssign(c.UserContext(), principal.TenantID, principal.Staff, c.Params("id"))
	} else {
		updated, err = h.assignments.AssignToStaff(c.UserContext(), principal.TenantID, principal.Staff, c.Params("id"), req.StaffID)
	}
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": requestSummary(updated, time.Now())})
}

// AddComment POST /staff/requests/:id/comments.
func (h *StaffRequestsHandler) AddComment(c *fiber.Ctx) error {
	principal, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CreateCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	comment, err := h.thread.AddComment(c.UserContext(), principal.TenantID,
		domain.StaffAuthor(principal.Staff.ID), c.Params("id"),
		service.CommentInput{Body: req.Body, Internal: req.Internal})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": commentResponse(comment)})
}

// ListComments GET /staff/requests/:id/comments.
func (h *StaffRequestsHandler) ListComments(c *fiber.Ctx) error {
	principal, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	comments, err := h.thread.ListComments(c.UserContext(), principal.TenantID,
		domain.StaffAuthor(principal.Staff.ID), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": commentResponses(comments)})
}

// UploadPhoto POST /staff/requests/:id/photos.
func (h *StaffRequestsHandler) UploadPhoto(c *fiber.Ctx) error {
	principal, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	input, err := parsePhotoUpload(c)
	if err != nil {
		return err
	}
	photo, err := h.thread.UploadPhoto(c.UserContext(), principal.TenantID,
		domain.StaffAuthor(principal.Staff.ID), c.Params("id"), input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": photoResponse(photo)})
}

// GetTimeline GET /staff/requests/:id/timeline.
func (h *StaffRequestsHandler) GetTimeline(c *fiber.Ctx) error {
	principal, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	events, err := h.requests.TimelineForStaff(c.UserContext(), principal.TenantID, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": timelineResponses(events)})
}

// GetStats GET /staff/requests/stats.
func (h *StaffRequestsHandler) GetStats(c *fiber.Ctx) error {
	principal, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	summary, err := h.stats.TenantSummary(c.UserContext(), principal.TenantID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": summary})
}

func (h *StaffRequestsHandler) simpleTransition(c *fiber.Ctx, op func(ctx context.Context, tenantID string, staff *domain.Staff, requestID string) (*domain.ServiceRequest, error)) error {
	principal, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	updated, err := op(c.UserContext(), principal.TenantID, principal.Staff, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": requestSummary(updated, time.Now())})
}

func staffPrincipal(c *fiber.Ctx) (*auth.Principal, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Staff == nil {
		return nil, apperrors.NewUnauthorized("staff required")
	}
	return principal, nil
}

func parseStaffQuery(c *fiber.Ctx) service.StaffListFilter {
	filter := service.StaffListFilter{}
	if customerID := c.Query("customer_id"); customerID != "" {
		filter.CustomerID = &customerID
	}
	if assignedTo := c.Query("assigned_to"); assignedTo != "" {
		filter.AssignedTo = &assignedTo
	}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.RequestStatus(strings.TrimSpace(part)))
		}
	}
	if issueStr := c.Query("issue_type"); issueStr != "" {
		for _, part := range strings.Split(issueStr, ",") {
			filter.IssueTypes = append(filter.IssueTypes, domain.IssueType(strings.TrimSpace(part)))
		}
	}
	if urgencyStr := c.Query("urgency"); urgencyStr != "" {
		for _, part := range strings.Split(urgencyStr, ",") {
			filter.Urgencies = append(filter.Urgencies, domain.Urgency(strings.TrimSpace(part)))
		}
	}
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		filter.SearchTerm = &search
	}
	filter.CreatedFrom = parseTime(c.Query("created_from"))
	filter.CreatedTo = parseTime(c.Query("created_to"))
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}
