package domain

import "time"

// Photo is evidentiary imagery attached to a service request. Metadata is
// immutable once stored.
type Photo struct {
	ID        string
	TenantID  string
	RequestID string

	StorageKey string
	Caption    string
	MimeType   string
	SizeBytes  int64
	Width      int
	Height     int

	// Location where the photo was captured, if known.
	CapturedAt *GeoPoint

	UploadedBy Author
	UploadedAt time.Time
}
