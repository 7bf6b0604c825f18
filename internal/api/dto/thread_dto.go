package dto

import (
	"time"

	"github.com/waterworks/servicedesk/internal/domain"
)

// CreateCommentRequest payload.
type CreateCommentRequest struct {
	Body     string `json:"body"`
	Internal bool   `json:"internal"`
}

// CommentResponse represents a thread entry.
type CommentResponse struct {
	ID                string               `json:"id"`
	AuthorKind        domain.AuthorKind    `json:"author_kind"`
	AuthorID          string               `json:"author_id,omitempty"`
	Body              string               `json:"body"`
	Internal          bool                 `json:"internal"`
	StatusChangedFrom domain.RequestStatus `json:"status_changed_from,omitempty"`
	StatusChangedTo   domain.RequestStatus `json:"status_changed_to,omitempty"`
	CreatedAt         time.Time            `json:"created_at"`
}

// PhotoResponse metadata.
type PhotoResponse struct {
	ID         string            `json:"id"`
	Caption    string            `json:"caption,omitempty"`
	MimeType   string            `json:"mime_type"`
	SizeBytes  int64             `json:"size_bytes"`
	Width      int               `json:"width"`
	Height     int               `json:"height"`
	CapturedAt *GeoPointResponse `json:"captured_at,omitempty"`
	UploadedBy domain.AuthorKind `json:"uploaded_by"`
	UploadedAt time.Time         `json:"uploaded_at"`
	URL        string            `json:"url,omitempty"`
}

// UploadPhotoRequest carries optional metadata alongside the multipart
// file field.
type UploadPhotoRequest struct {
	Caption   string   `json:"caption"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}
