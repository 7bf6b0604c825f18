package handlers

import (
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/waterworks/servicedesk/internal/api/dto"
	"github.com/waterworks/servicedesk/internal/auth"
	"github.com/waterworks/servicedesk/internal/domain"
	"github.com/waterworks/servicedesk/internal/service"
	"github.com/waterworks/servicedesk/internal/timeline"
	"github.com/waterworks/servicedesk/internal/validation"
	apperrors "github.com/waterworks/servicedesk/pkg/util"
)

// RequestsHandler manages customer-facing service request endpoints.
type RequestsHandler struct {
	requests *service.RequestService
	thread   *service.ThreadService
	stats    *service.StatsService
}

// NewRequestsHandler constructs the handler.
func NewRequestsHandler(requests *service.RequestService, thread *service.ThreadService, stats *service.StatsService) *RequestsHandler {
	return &RequestsHandler{requests: requests, thread: thread, stats: stats}
}

// CreateRequest POST /requests.
func (h *RequestsHandler) CreateRequest(c *fiber.Ctx) error {
	principal, err := customerPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CreateServiceRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	input := validation.CreateRequestInput{
		IssueType:   req.IssueType,
		Title:       req.Title,
		Description: req.Description,
		Urgency:     req.Urgency,
		Location:    req.Location,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		AssetID:     req.AssetID,
	}
	created, err := h.requests.CreateRequest(c.UserContext(), principal.TenantID, principal.Customer.ID, input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": requestSummary(created, time.Now())})
}

// ListRequests GET /requests.
func (h *RequestsHandler) ListRequests(c *fiber.Ctx) error {
	principal, err := customerPrincipal(c)
	if err != nil {
		return err
	}
	filter := parseCustomerQuery(c)
	requests, err := h.requests.ListCustomerRequests(c.UserContext(), principal.TenantID, principal.Customer.ID, filter)
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

// GetRequest GET /requests/:id.
func (h *RequestsHandler) GetRequest(c *fiber.Ctx) error {
	principal, err := customerPrincipal(c)
	if err != nil {
		return err
	}
	detail, err := h.requests.GetRequestForCustomer(c.UserContext(), principal.TenantID, principal.Customer.ID, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": requestDetail(detail, time.Now())})
}

// CancelRequest POST /requests/:id/cancel.
func (h *RequestsHandler) CancelRequest(c *fiber.Ctx) error {
	principal, err := customerPrincipal(c)
	if err != nil {
		return err
	}
	req, err := h.requests.CancelAsCustomer(c.UserContext(), principal.TenantID, principal.Customer.ID, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": requestSummary(req, time.Now())})
}

// RateRequest POST /requests/:id/rating.
func (h *RequestsHandler) RateRequest(c *fiber.Ctx) error {
	principal, err := customerPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.RateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	rated, err := h.requests.Rate(c.UserContext(), principal.TenantID, principal.Customer.ID, c.Params("id"), req.Rating, req.Feedback)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": requestSummary(rated, time.Now())})
}

// AddComment POST /requests/:id/comments.
func (h *RequestsHandler) AddComment(c *fiber.Ctx) error {
	principal, err := customerPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CreateCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	comment, err := h.thread.AddComment(c.UserContext(), principal.TenantID,
		domain.CustomerAuthor(principal.Customer.ID), c.Params("id"),
		service.CommentInput{Body: req.Body})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": commentResponse(comment)})
}

// ListComments GET /requests/:id/comments.
func (h *RequestsHandler) ListComments(c *fiber.Ctx) error {
	principal, err := customerPrincipal(c)
	if err != nil {
		return err
	}
	comments, err := h.thread.ListComments(c.UserContext(), principal.TenantID,
		domain.CustomerAuthor(principal.Customer.ID), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": commentResponses(comments)})
}

// UploadPhoto POST /requests/:id/photos.
func (h *RequestsHandler) UploadPhoto(c *fiber.Ctx) error {
	principal, err := customerPrincipal(c)
	if err != nil {
		return err
	}
	input, err := parsePhotoUpload(c)
	if err != nil {
		return err
	}
	photo, err := h.thread.UploadPhoto(c.UserContext(), principal.TenantID,
		domain.CustomerAuthor(principal.Customer.ID), c.Params("id"), input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": photoResponse(photo)})
}

// ListPhotos GET /requests/:id/photos.
func (h *RequestsHandler) ListPhotos(c *fiber.Ctx) error {
	principal, err := customerPrincipal(c)
	if err != nil {
		return err
	}
	photos, err := h.thread.ListPhotos(c.UserContext(), principal.TenantID,
		domain.CustomerAuthor(principal.Customer.ID), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": photoResponses(photos)})
}

// GetPhoto GET /photos/:photoId serves the stored image bytes.
func (h *RequestsHandler) GetPhoto(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var author domain.Author
	switch {
	case principal.Customer != nil:
		author = domain.CustomerAuthor(principal.Customer.ID)
	case principal.Staff != nil:
		author = domain.StaffAuthor(principal.Staff.ID)
	default:
		return apperrors.NewUnauthorized("authentication required")
	}
	data, mimeType, err := h.thread.PhotoData(c.UserContext(), principal.TenantID, author, c.Params("photoId"))
	if err != nil {
		return err
	}
	c.Set("Content-Type", mimeType)
	return c.Send(data)
}

// GetTimeline GET /requests/:id/timeline.
func (h *RequestsHandler) GetTimeline(c *fiber.Ctx) error {
	principal, err := customerPrincipal(c)
	if err != nil {
		return err
	}
	events, err := h.requests.TimelineForCustomer(c.UserContext(), principal.TenantID, principal.Customer.ID, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": timelineResponses(events)})
}

// GetStats GET /requests/stats.
func (h *RequestsHandler) GetStats(c *fiber.Ctx) error {
	principal, err := customerPrincipal(c)
	if err != nil {
		return err
	}
	summary, err := h.stats.CustomerSummary(c.UserContext(), principal.TenantID, principal.Customer.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": summary})
}

func customerPrincipal(c *fiber.Ctx) (*auth.Principal, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Customer == nil {
		return nil, apperrors.NewUnauthorized("customer required")
	}
	return principal, nil
}

func parseCustomerQuery(c *fiber.Ctx) service.CustomerListFilter {
	filter := service.CustomerListFilter{}
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
	filter.CreatedFrom = parseTime(c.Query("created_from"))
	filter.CreatedTo = parseTime(c.Query("created_to"))
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func parsePhotoUpload(c *fiber.Ctx) (service.PhotoInput, error) {
	fileHeader, err := c.FormFile("photo")
	if err != nil {
		return service.PhotoInput{}, apperrors.NewValidationError("photo file required",
			map[string]any{"photo": "multipart field missing"})
	}
	file, err := fileHeader.Open()
	if err != nil {
		return service.PhotoInput{}, apperrors.NewValidationError("photo could not be read", nil)
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return service.PhotoInput{}, apperrors.NewValidationError("photo could not be read", nil)
	}

	input := service.PhotoInput{
		Data:    data,
		Caption: c.FormValue("caption"),
	}
	if lat := parseFloat(c.FormValue("latitude")); lat != nil {
		input.Latitude = lat
	}
	if lon := parseFloat(c.FormValue("longitude")); lon != nil {
		input.Longitude = lon
	}
	return input, nil
}

func parseTime(val string) *time.Time {
	if val == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil
	}
	return &t
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func parseFloat(val string) *float64 {
	if val == "" {
		return nil
	}
	parsed, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return nil
	}
	return &parsed
}

func requestSummary(req *domain.ServiceRequest, now time.Time) dto.RequestSummary {
	return dto.RequestSummary{
		ID:                 req.ID,
		RequestNumber:      req.RequestNumber,
		IssueType:          req.IssueType,
		Title:              req.Title,
		Urgency:            req.Urgency,
		Status:             req.Status,
		PriorityScore:      req.PriorityScore,
		AssignedTo:         req.AssignedTo,
		IsOverdue:          req.IsOverdue(now),
		DaysOpen:           req.DaysOpen(now),
		CreatedAt:          req.CreatedAt,
		UpdatedAt:          req.UpdatedAt,
		TargetResponseAt:   req.TargetResponseAt,
		TargetResolutionAt: req.TargetResolutionAt,
	}
}

func requestDetail(detail *service.RequestDetail, now time.Time) dto.RequestDetailResponse {
	req := detail.Request
	resp := dto.RequestDetailResponse{
		ID:                 req.ID,
		RequestNumber:      req.RequestNumber,
		CustomerID:         req.CustomerID,
		AssignedTo:         req.AssignedTo,
		IssueType:          req.IssueType,
		Title:              req.Title,
		Description:        req.Description,
		Urgency:            req.Urgency,
		Location:           req.ReportedLocation,
		AssetID:            req.RelatedAssetID,
		Status:             req.Status,
		PriorityScore:      req.PriorityScore,
		ResolutionNotes:    req.ResolutionNotes,
		ResolutionCategory: req.ResolutionCategory,
		CustomerRating:     req.CustomerRating,
		CustomerFeedback:   req.CustomerFeedback,
		CreatedWorkOrder:   req.CreatedWorkOrder,
		WorkOrderNumber:    req.WorkOrderNumber,
		IsOverdue:          req.IsOverdue(now),
		DaysOpen:           req.DaysOpen(now),
		CanBeRated:         req.CanBeRated(),
		CreatedAt:          req.CreatedAt,
		UpdatedAt:          req.UpdatedAt,
		AcknowledgedAt:     req.AcknowledgedAt,
		AssignedAt:         req.AssignedAt,
		ResolvedAt:         req.ResolvedAt,
		ClosedAt:           req.ClosedAt,
		TargetResponseAt:   req.TargetResponseAt,
		TargetResolutionAt: req.TargetResolutionAt,
		ActualResponseAt:   req.ActualResponseAt,
		Comments:           commentResponses(detail.Comments),
		Photos:             photoResponses(detail.Photos),
	}
	if req.Coordinates != nil {
		resp.Coordinates = &dto.GeoPointResponse{
			Latitude:  req.Coordinates.Latitude,
			Longitude: req.Coordinates.Longitude,
		}
	}
	return resp
}

func commentResponse(comment *domain.Comment) dto.CommentResponse {
	return dto.CommentResponse{
		ID:                comment.ID,
		AuthorKind:        comment.Author.Kind,
		AuthorID:          comment.Author.ID,
		Body:              comment.Body,
		Internal:          comment.Internal,
		StatusChangedFrom: comment.StatusChangedFrom,
		StatusChangedTo:   comment.StatusChangedTo,
		CreatedAt:         comment.CreatedAt,
	}
}

func commentResponses(comments []domain.Comment) []dto.CommentResponse {
	items := make([]dto.CommentResponse, 0, len(comments))
	for i := range comments {
		items = append(items, commentResponse(&comments[i]))
	}
	return items
}

func photoResponse(photo *domain.Photo) dto.PhotoResponse {
	resp := dto.PhotoResponse{
		ID:         photo.ID,
		Caption:    photo.Caption,
		MimeType:   photo.MimeType,
		SizeBytes:  photo.SizeBytes,
		Width:      photo.Width,
		Height:     photo.Height,
		UploadedBy: photo.UploadedBy.Kind,
		UploadedAt: photo.UploadedAt,
		URL:        "/api/v1/photos/" + photo.ID,
	}
	if photo.CapturedAt != nil {
		resp.CapturedAt = &dto.GeoPointResponse{
			Latitude:  photo.CapturedAt.Latitude,
			Longitude: photo.CapturedAt.Longitude,
		}
	}
	return resp
}

func photoResponses(photos []domain.Photo) []dto.PhotoResponse {
	items := make([]dto.PhotoResponse, 0, len(photos))
	for i := range photos {
		items = append(items, photoResponse(&photos[i]))
	}
	return items
}

func timelineResponses(events []timeline.Event) []dto.TimelineEventResponse {
	items := make([]dto.TimelineEventResponse, 0, len(events))
	for _, event := range events {
		items = append(items, dto.TimelineEventResponse{
			Kind:        string(event.Kind),
			Title:       event.Title,
			Description: event.Description,
			Timestamp:   event.Timestamp,
			ActorName:   event.ActorName,
			ActorType:   string(event.ActorType),
		})
	}
	return items
}
