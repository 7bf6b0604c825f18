package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/google/uuid"
	_ "golang.org/x/image/webp"

	"github.com/waterworks/servicedesk/internal/domain"
	"github.com/waterworks/servicedesk/internal/events"
	"github.com/waterworks/servicedesk/internal/repository"
	apperrors "github.com/waterworks/servicedesk/pkg/util"
)

// ThreadPolicy tunes comment and photo admission.
type ThreadPolicy struct {
	// AllowCommentsOnTerminal permits customer-visible comments after a
	// request reaches a terminal status. Staff internal notes are always
	// accepted for audit purposes.
	AllowCommentsOnTerminal bool
	MaxPhotoBytes           int64
}

// ThreadService manages the comment and photo thread on a request.
type ThreadService struct {
	requests   repository.RequestRepository
	comments   repository.CommentRepository
	photos     repository.PhotoRepository
	policy     ThreadPolicy
	dispatcher events.Dispatcher
}

// ThreadDependencies bundles collaborators.
type ThreadDependencies struct {
	RequestRepo repository.RequestRepository
	CommentRepo repository.CommentRepository
	PhotoRepo   repository.PhotoRepository
	Policy      ThreadPolicy
	Dispatcher  events.Dispatcher
}

// CommentInput is the raw comment payload.
type CommentInput struct {
	Body     string
	Internal bool
}

// PhotoInput is the raw photo upload payload.
type PhotoInput struct {
	Data      []byte
	Caption   string
	Latitude  *float64
	Longitude *float64
}

var allowedPhotoTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// NewThreadService constructs the service.
func NewThreadService(deps ThreadDependencies) *ThreadService {
	if deps.Policy.MaxPhotoBytes <= 0 {
		deps.Policy.MaxPhotoBytes = 10 * 1024 * 1024
	}
	return &ThreadService{
		requests:   deps.RequestRepo,
		comments:   deps.CommentRepo,
		photos:     deps.PhotoRepo,
		policy:     deps.Policy,
		dispatcher: deps.Dispatcher,
	}
}

// AddComment appends an entry to the thread. Thread entries are immutable;
// there is no edit or delete path.
func (s *ThreadService) AddComment(ctx context.Context, tenantID string, author domain.Author, requestID string, input CommentInput) (*domain.Comment, error) {
	req, err := s.loadRequest(ctx, tenantID, requestID)
	if err != nil {
		return nil, err
	}
	if author.IsCustomer() {
		if req.CustomerID != author.ID {
			return nil, apperrors.NewForbidden("access denied")
		}
		if input.Internal {
			return nil, apperrors.NewForbidden("customers cannot post internal notes")
		}
	}

	body := strings.TrimSpace(input.Body)
	if utf8.RuneCountInString(body) < 3 {
		return nil, apperrors.NewValidationError("comment is too short",
			map[string]any{"body": "must be at least 3 characters long"})
	}
	if utf8.RuneCountInString(body) > 1000 {
		return nil, apperrors.NewValidationError("comment is too long",
			map[string]any{"body": "must be less than 1000 characters"})
	}

	if req.Status.IsTerminal() && !s.policy.AllowCommentsOnTerminal {
		internalStaffNote := author.IsStaff() && input.Internal
		if !internalStaffNote {
			return nil, apperrors.NewConflict("request is closed to new comments",
				map[string]any{"status": string(req.Status)})
		}
	}

	comment := &domain.Comment{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		RequestID: req.ID,
		Author:    author,
		Body:      body,
		Internal:  input.Internal,
		CreatedAt: time.Now(),
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, apperrors.MapError(err)
	}

	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			ID:            uuid.NewString(),
			Type:          events.EventRequestCommentAdded,
			TenantID:      tenantID,
			RequestID:     req.ID,
			RequestNumber: req.RequestNumber,
			Actor:         actorFromAuthor(author),
			Timestamp:     comment.CreatedAt,
			Payload: events.RequestCommentAddedPayload{
				CommentID:   comment.ID,
				AuthorKind:  author.Kind,
				AuthorID:    author.ID,
				Internal:    comment.Internal,
				BodyPreview: bodyPreview(comment.Body, 120),
			},
		})
	}
	return comment, nil
}

// ListComments returns the thread, hiding internal notes from customers.
func (s *ThreadService) ListComments(ctx context.Context, tenantID string, author domain.Author, requestID string) ([]domain.Comment, error) {
	req, err := s.loadRequest(ctx, tenantID, requestID)
	if err != nil {
		return nil, err
	}
	includeInternal := author.IsStaff()
	if author.IsCustomer() && req.CustomerID != author.ID {
		return nil, apperrors.NewForbidden("access denied")
	}
	comments, err := s.comments.ListByRequest(ctx, tenantID, req.ID, includeInternal)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return comments, nil
}

// UploadPhoto validates and stores evidentiary imagery.
func (s *ThreadService) UploadPhoto(ctx context.Context, tenantID string, author domain.Author, requestID string, input PhotoInput) (*domain.Photo, error) {
	req, err := s.loadRequest(ctx, tenantID, requestID)
	if err != nil {
		return nil, err
	}
	if author.IsCustomer() && req.CustomerID != author.ID {
		return nil, apperrors.NewForbidden("access denied")
	}

	if len(input.Data) == 0 {
		return nil, apperrors.NewValidationError("photo payload is empty",
			map[string]any{"photo": "no data received"})
	}
	if int64(len(input.Data)) > s.policy.MaxPhotoBytes {
		return nil, apperrors.NewValidationError("photo is too large",
			map[string]any{"photo": "exceeds the maximum allowed size"})
	}

	mimeType := http.DetectContentType(input.Data)
	if !allowedPhotoTypes[mimeType] {
		return nil, apperrors.NewValidationError("unsupported photo format",
			map[string]any{"photo": "must be a JPEG, PNG, GIF or WebP image"})
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(input.Data))
	if err != nil {
		return nil, apperrors.NewValidationError("photo could not be decoded",
			map[string]any{"photo": "corrupt or truncated image data"})
	}

	caption := strings.TrimSpace(input.Caption)
	if utf8.RuneCountInString(caption) > 200 {
		return nil, apperrors.NewValidationError("caption is too long",
			map[string]any{"caption": "must be less than 200 characters"})
	}

	var captured *domain.GeoPoint
	if input.Latitude != nil && input.Longitude != nil {
		captured = &domain.GeoPoint{Latitude: *input.Latitude, Longitude: *input.Longitude}
	}

	photo := &domain.Photo{
		ID:         uuid.NewString(),
		TenantID:   tenantID,
		RequestID:  req.ID,
		StorageKey: uuid.NewString(),
		Caption:    caption,
		MimeType:   mimeType,
		SizeBytes:  int64(len(input.Data)),
		Width:      cfg.Width,
		Height:     cfg.Height,
		CapturedAt: captured,
		UploadedBy: author,
		UploadedAt: time.Now(),
	}
	if err := s.photos.Create(ctx, photo, input.Data); err != nil {
		return nil, apperrors.MapError(err)
	}
	return photo, nil
}

// ListPhotos returns photo metadata for a request.
func (s *ThreadService) ListPhotos(ctx context.Context, tenantID string, author domain.Author, requestID string) ([]domain.Photo, error) {
	req, err := s.loadRequest(ctx, tenantID, requestID)
	if err != nil {
		return nil, err
	}
	if author.IsCustomer() && req.CustomerID != author.ID {
		return nil, apperrors.NewForbidden("access denied")
	}
	photos, err := s.photos.ListByRequest(ctx, tenantID, req.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return photos, nil
}

// PhotoData returns the raw bytes for serving a stored photo. Customers
// may only fetch photos attached to their own requests.
func (s *ThreadService) PhotoData(ctx context.Context, tenantID string, author domain.Author, photoID string) ([]byte, string, error) {
	photo, data, err := s.photos.GetData(ctx, tenantID, photoID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", apperrors.NewNotFound("photo", map[string]any{"photo_id": photoID})
		}
		return nil, "", apperrors.MapError(err)
	}
	if author.IsCustomer() {
		req, err := s.loadRequest(ctx, tenantID, photo.RequestID)
		if err != nil {
			return nil, "", err
		}
		if req.CustomerID != author.ID {
			return nil, "", apperrors.NewForbidden("access denied")
		}
	}
	return data, photo.MimeType, nil
}

func (s *ThreadService) loadRequest(ctx context.Context, tenantID, requestID string) (*domain.ServiceRequest, error) {
	req, err := s.requests.GetByID(ctx, tenantID, requestID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("service request", map[string]any{"request_id": requestID})
		}
		return nil, apperrors.MapError(err)
	}
	return req, nil
}

func actorFromAuthor(author domain.Author) events.Actor {
	switch author.Kind {
	case domain.AuthorCustomer:
		return customerActor(author.ID)
	case domain.AuthorStaff:
		return staffActor(author.ID)
	}
	return events.Actor{Type: domain.SubjectTypeStaff}
}

func bodyPreview(body string, max int) string {
	runes := []rune(body)
	if len(runes) <= max {
		return body
	}
	return string(runes[:max]) + "..."
}
