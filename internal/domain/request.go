package domain

import "time"

// RequestStatus enumerates lifecycle states for service requests.
type RequestStatus string

const (
	StatusOpen         RequestStatus = "open"
	StatusAcknowledged RequestStatus = "acknowledged"
	StatusAssigned     RequestStatus = "assigned"
	StatusInProgress   RequestStatus = "in_progress"
	StatusOnHold       RequestStatus = "on_hold"
	StatusResolved     RequestStatus = "resolved"
	StatusClosed       RequestStatus = "closed"
	StatusCancelled    RequestStatus = "cancelled"
)

// IsTerminal reports whether the status permits no further transitions.
func (s RequestStatus) IsTerminal() bool {
	return s == StatusClosed || s == StatusCancelled
}

// IssueType enumerates reportable issue categories.
type IssueType string

const (
	IssueNoWater           IssueType = "no_water"
	IssueLowPressure       IssueType = "low_pressure"
	IssuePipeBurst         IssueType = "pipe_burst"
	IssueWaterQuality      IssueType = "water_quality"
	IssueMeterProblem      IssueType = "meter_problem"
	IssueBillingInquiry    IssueType = "billing_inquiry"
	IssueConnectionRequest IssueType = "connection_request"
	IssueDisconnection     IssueType = "disconnection"
	IssueOther             IssueType = "other"
)

// IssueTypes lists every valid issue category.
var IssueTypes = []IssueType{
	IssueNoWater,
	IssueLowPressure,
	IssuePipeBurst,
	IssueWaterQuality,
	IssueMeterProblem,
	IssueBillingInquiry,
	IssueConnectionRequest,
	IssueDisconnection,
	IssueOther,
}

// Valid reports whether the issue type is a known category.
func (t IssueType) Valid() bool {
	for _, candidate := range IssueTypes {
		if t == candidate {
			return true
		}
	}
	return false
}

// Urgency enumerates SLA urgency levels.
type Urgency string

const (
	UrgencyEmergency Urgency = "emergency"
	UrgencyHigh      Urgency = "high"
	UrgencyStandard  Urgency = "standard"
	UrgencyLow       Urgency = "low"
)

// Urgencies lists every valid urgency level.
var Urgencies = []Urgency{UrgencyEmergency, UrgencyHigh, UrgencyStandard, UrgencyLow}

// Valid reports whether the urgency is a known level.
func (u Urgency) Valid() bool {
	for _, candidate := range Urgencies {
		if u == candidate {
			return true
		}
	}
	return false
}

// ResolutionCategory classifies how a request was resolved.
type ResolutionCategory string

const (
	ResolvedField     ResolutionCategory = "resolved_field"
	ResolvedPhone     ResolutionCategory = "resolved_phone"
	ResolvedOffice    ResolutionCategory = "resolved_office"
	ResolvedDuplicate ResolutionCategory = "duplicate"
	ResolvedInvalid   ResolutionCategory = "invalid"
	ResolvedReferred  ResolutionCategory = "referred"
)

// Valid reports whether the resolution category is known. The empty
// category is accepted because notes alone may close out a request.
func (c ResolutionCategory) Valid() bool {
	switch c {
	case "", ResolvedField, ResolvedPhone, ResolvedOffice, ResolvedDuplicate, ResolvedInvalid, ResolvedReferred:
		return true
	}
	return false
}

// GeoPoint is a WGS84 coordinate pair.
type GeoPoint struct {
	Latitude  float64
	Longitude float64
}

// ServiceRequest is the aggregate for customer-reported issues.
//
// PriorityScore, TargetResponseAt and TargetResolutionAt are derived once
// at creation from (issue type, urgency) and are never recomputed.
type ServiceRequest struct {
	ID            string
	TenantID      string
	RequestNumber string
	CustomerID    string
	AssignedTo    *string

	IssueType   IssueType
	Title       string
	Description string
	Urgency     Urgency

	ReportedLocation string
	Coordinates      *GeoPoint

	RelatedAssetID *string

	Status        RequestStatus
	PriorityScore int

	ResolutionNotes    string
	ResolutionCategory ResolutionCategory

	CustomerRating   *int
	CustomerFeedback string

	CreatedWorkOrder bool
	WorkOrderNumber  string

	CreatedAt      time.Time
	UpdatedAt      time.Time
	AssignedAt     *time.Time
	AcknowledgedAt *time.Time
	ResolvedAt     *time.Time
	ClosedAt       *time.Time

	TargetResponseAt   time.Time
	TargetResolutionAt time.Time
	ActualResponseAt   *time.Time
}

// IsOverdue reports whether the request is past its resolution target
// while still active.
func (r *ServiceRequest) IsOverdue(now time.Time) bool {
	switch r.Status {
	case StatusResolved, StatusClosed, StatusCancelled:
		return false
	}
	return now.After(r.TargetResolutionAt)
}

// DaysOpen counts whole days the request has been (or was) open.
func (r *ServiceRequest) DaysOpen(now time.Time) int {
	end := now
	if r.ClosedAt != nil {
		end = *r.ClosedAt
	}
	return int(end.Sub(r.CreatedAt).Hours() / 24)
}

// CanBeRated reports whether the customer may still attach a rating.
func (r *ServiceRequest) CanBeRated() bool {
	return (r.Status == StatusResolved || r.Status == StatusClosed) && r.CustomerRating == nil
}
