package validation

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waterworks/servicedesk/internal/domain"
	apperrors "github.com/waterworks/servicedesk/pkg/util"
)

func fixedClock() time.Time {
	return time.Date(2025, 5, 20, 14, 30, 0, 0, time.UTC)
}

func validInput() CreateRequestInput {
	return CreateRequestInput{
		IssueType:   domain.IssueNoWater,
		Title:       "No water since morning",
		Description: "The whole street has had no supply since 6am.",
		Urgency:     domain.UrgencyEmergency,
		Location:    "Plot 14, Riverside Drive",
	}
}

func TestValidateCreate_BuildsDraftWithDerivedFields(t *testing.T) {
	v := New(DefaultRegionBounds(), fixedClock)

	req, err := v.ValidateCreate("tenant-1", "cust-9", validInput())
	require.NoError(t, err)

	assert.NotEmpty(t, req.ID)
	assert.Equal(t, "tenant-1", req.TenantID)
	assert.Equal(t, "cust-9", req.CustomerID)
	assert.Equal(t, domain.StatusOpen, req.Status)
	assert.Equal(t, 130, req.PriorityScore)
	assert.Equal(t, fixedClock().Add(time.Hour), req.TargetResponseAt)
	assert.Equal(t, fixedClock().Add(4*time.Hour), req.TargetResolutionAt)
	assert.Equal(t, fixedClock(), req.CreatedAt)
}

func TestValidateCreate_TrimsFreeText(t *testing.T) {
	v := New(DefaultRegionBounds(), fixedClock)
	input := validInput()
	input.Title = "  Burst pipe on main road  "
	input.Location = "  Corner of 5th and Main  "

	req, err := v.ValidateCreate("tenant-1", "cust-9", input)
	require.NoError(t, err)
	assert.Equal(t, "Burst pipe on main road", req.Title)
	assert.Equal(t, "Corner of 5th and Main", req.ReportedLocation)
}

func TestValidateCreate_UrgencyDefaultsToStandard(t *testing.T) {
	v := New(DefaultRegionBounds(), fixedClock)
	input := validInput()
	input.Urgency = ""

	req, err := v.ValidateCreate("tenant-1", "cust-9", input)
	require.NoError(t, err)
	assert.Equal(t, domain.UrgencyStandard, req.Urgency)
	assert.Equal(t, 80, req.PriorityScore) // standard 50 + no_water 30
}

func TestValidateCreate_FieldErrors(t *testing.T) {
	v := New(DefaultRegionBounds(), fixedClock)

	cases := []struct {
		name   string
		mutate func(*CreateRequestInput)
		field  string
	}{
		{"short title", func(in *CreateRequestInput) { in.Title = "Hm  " }, "title"},
		{"short description", func(in *CreateRequestInput) { in.Description = "too short" }, "description"},
		{"short location", func(in *CreateRequestInput) { in.Location = "abc" }, "location"},
		{"bad issue type", func(in *CreateRequestInput) { in.IssueType = "volcano" }, "issue_type"},
		{"bad urgency", func(in *CreateRequestInput) { in.Urgency = "mild" }, "urgency"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := validInput()
			tc.mutate(&input)

			req, err := v.ValidateCreate("tenant-1", "cust-9", input)
			require.Error(t, err)
			assert.Nil(t, req)

			domainErr := apperrors.ToDomainError(err)
			assert.Equal(t, "VALIDATION_FAILED", domainErr.Code)
			assert.Contains(t, domainErr.Details, tc.field)
		})
	}
}

func TestValidateCreate_LengthBoundsCountCharacters(t *testing.T) {
	v := New(DefaultRegionBounds(), fixedClock)

	// Five characters, more than five bytes.
	input := validInput()
	input.Title = "Majíó"
	req, err := v.ValidateCreate("tenant-1", "cust-9", input)
	require.NoError(t, err)
	assert.Equal(t, "Majíó", req.Title)

	// 200 characters at two bytes each stays within the limit.
	input = validInput()
	input.Title = strings.Repeat("é", 200)
	_, err = v.ValidateCreate("tenant-1", "cust-9", input)
	require.NoError(t, err)

	input = validInput()
	input.Title = strings.Repeat("é", 201)
	_, err = v.ValidateCreate("tenant-1", "cust-9", input)
	require.Error(t, err)
	assert.Contains(t, apperrors.ToDomainError(err).Details, "title")
}

func TestValidateCreate_CoordinatePairRequired(t *testing.T) {
	v := New(DefaultRegionBounds(), fixedClock)
	lat := -1.28
	input := validInput()
	input.Latitude = &lat

	_, err := v.ValidateCreate("tenant-1", "cust-9", input)
	require.Error(t, err)
	assert.Contains(t, apperrors.ToDomainError(err).Details, "coordinates")
}

func TestValidateCreate_CoordinatesInsideRegion(t *testing.T) {
	v := New(DefaultRegionBounds(), fixedClock)
	lat, lon := -1.28, 36.82
	input := validInput()
	input.Latitude = &lat
	input.Longitude = &lon

	req, err := v.ValidateCreate("tenant-1", "cust-9", input)
	require.NoError(t, err)
	require.NotNil(t, req.Coordinates)
	assert.Equal(t, lat, req.Coordinates.Latitude)
	assert.Equal(t, lon, req.Coordinates.Longitude)
}

func TestValidateCreate_CoordinatesOutsideRegion(t *testing.T) {
	v := New(DefaultRegionBounds(), fixedClock)

	lat, lon := 51.5, 36.82 // latitude out of bounds
	input := validInput()
	input.Latitude = &lat
	input.Longitude = &lon
	_, err := v.ValidateCreate("tenant-1", "cust-9", input)
	require.Error(t, err)
	assert.Contains(t, apperrors.ToDomainError(err).Details, "latitude")

	lat, lon = -1.28, 0.1 // longitude out of bounds
	input = validInput()
	input.Latitude = &lat
	input.Longitude = &lon
	_, err = v.ValidateCreate("tenant-1", "cust-9", input)
	require.Error(t, err)
	assert.Contains(t, apperrors.ToDomainError(err).Details, "longitude")
}

func TestValidateCreate_ConfigurableBounds(t *testing.T) {
	bounds := RegionBounds{MinLatitude: 50, MaxLatitude: 55, MinLongitude: -1, MaxLongitude: 2}
	v := New(bounds, fixedClock)

	lat, lon := 51.5, 0.12
	input := validInput()
	input.Latitude = &lat
	input.Longitude = &lon

	req, err := v.ValidateCreate("tenant-1", "cust-9", input)
	require.NoError(t, err)
	require.NotNil(t, req.Coordinates)
}
