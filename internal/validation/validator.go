// Package validation admits service request intake. A validator checks the
// raw input, then hands a fully-populated draft (including the derived
// priority score and SLA targets) back to the caller for persistence.
package validation

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/waterworks/servicedesk/internal/domain"
	"github.com/waterworks/servicedesk/internal/sla"
	apperrors "github.com/waterworks/servicedesk/pkg/util"
)

// RegionBounds limits reported coordinates to the utility's operating
// region. Defaults approximate Kenya.
type RegionBounds struct {
	MinLatitude  float64
	MaxLatitude  float64
	MinLongitude float64
	MaxLongitude float64
}

// DefaultRegionBounds matches the reference deployment.
func DefaultRegionBounds() RegionBounds {
	return RegionBounds{MinLatitude: -5, MaxLatitude: 5, MinLongitude: 33, MaxLongitude: 42}
}

// CreateRequestInput is the raw intake payload.
type CreateRequestInput struct {
	IssueType   domain.IssueType
	Title       string
	Description string
	Urgency     domain.Urgency
	Location    string
	Latitude    *float64
	Longitude   *float64
	AssetID     *string
}

// Validator checks intake fields before a request is admitted.
type Validator struct {
	bounds RegionBounds
	now    func() time.Time
}

// New builds a validator. A nil clock defaults to time.Now.
func New(bounds RegionBounds, clock func() time.Time) *Validator {
	if clock == nil {
		clock = time.Now
	}
	return &Validator{bounds: bounds, now: clock}
}

// ValidateCreate checks the input and returns a draft request with the
// derived priority and SLA targets stamped. On failure it returns a
// ValidationError with per-field messages and nothing else happens.
func (v *Validator) ValidateCreate(tenantID, customerID string, input CreateRequestInput) (*domain.ServiceRequest, error) {
	fields := map[string]any{}

	if !input.IssueType.Valid() {
		fields["issue_type"] = "must be a valid issue type"
	}

	title := strings.TrimSpace(input.Title)
	if utf8.RuneCountInString(title) < 5 {
		fields["title"] = "must be at least 5 characters long"
	}
	if utf8.RuneCountInString(title) > 200 {
		fields["title"] = "must be less than 200 characters"
	}

	description := strings.TrimSpace(input.Description)
	if utf8.RuneCountInString(description) < 10 {
		fields["description"] = "must be at least 10 characters long"
	}

	urgency := input.Urgency
	if urgency == "" {
		urgency = domain.UrgencyStandard
	} else if !urgency.Valid() {
		fields["urgency"] = "must be a valid urgency level"
	}

	location := strings.TrimSpace(input.Location)
	if utf8.RuneCountInString(location) < 5 {
		fields["location"] = "please provide a more detailed location description"
	}

	coords, coordErrs := v.validateCoordinates(input.Latitude, input.Longitude)
	for field, msg := range coordErrs {
		fields[field] = msg
	}

	if len(fields) > 0 {
		return nil, apperrors.NewValidationError("service request validation failed", fields)
	}

	now := v.now()
	req := &domain.ServiceRequest{
		ID:               uuid.NewString(),
		TenantID:         tenantID,
		CustomerID:       customerID,
		IssueType:        input.IssueType,
		Title:            title,
		Description:      description,
		Urgency:          urgency,
		ReportedLocation: location,
		Coordinates:      coords,
		RelatedAssetID:   input.AssetID,
		Status:           domain.StatusOpen,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	sla.Apply(req)
	return req, nil
}

func (v *Validator) validateCoordinates(lat, lon *float64) (*domain.GeoPoint, map[string]string) {
	if lat == nil && lon == nil {
		return nil, nil
	}
	errs := map[string]string{}
	if lat == nil || lon == nil {
		errs["coordinates"] = "latitude and longitude must both be provided"
		return nil, errs
	}
	if *lat < v.bounds.MinLatitude || *lat > v.bounds.MaxLatitude {
		errs["latitude"] = "outside the utility's operating region"
	}
	if *lon < v.bounds.MinLongitude || *lon > v.bounds.MaxLongitude {
		errs["longitude"] = "outside the utility's operating region"
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return &domain.GeoPoint{Latitude: *lat, Longitude: *lon}, nil
}
