package dto

import (
	"time"

	"github.com/waterworks/servicedesk/internal/domain"
)

// CreateServiceRequest payload.
type CreateServiceRequest struct {
	IssueType   domain.IssueType `json:"issue_type"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Urgency     domain.Urgency   `json:"urgency"`
	Location    string           `json:"location"`
	Latitude    *float64         `json:"latitude"`
	Longitude   *float64         `json:"longitude"`
	AssetID     *string          `json:"asset_id"`
}

// GeoPointResponse is a coordinate pair.
type GeoPointResponse struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// RequestSummary response.
type RequestSummary struct {
	ID                 string               `json:"id"`
	RequestNumber      string               `json:"request_number"`
	IssueType          domain.IssueType     `json:"issue_type"`
	Title              string               `json:"title"`
	Urgency            domain.Urgency       `json:"urgency"`
	Status             domain.RequestStatus `json:"status"`
	PriorityScore      int                  `json:"priority_score"`
	AssignedTo         *string              `json:"assigned_to"`
	IsOverdue          bool                 `json:"is_overdue"`
	DaysOpen           int                  `json:"days_open"`
	CreatedAt          time.Time            `json:"created_at"`
	UpdatedAt          time.Time            `json:"updated_at"`
	TargetResponseAt   time.Time            `json:"target_response_at"`
	TargetResolutionAt time.Time            `json:"target_resolution_at"`
}

// RequestDetailResponse provides full request info.
type RequestDetailResponse struct {
	ID                 string                    `json:"id"`
	RequestNumber      string                    `json:"request_number"`
	CustomerID         string                    `json:"customer_id"`
	AssignedTo         *string                   `json:"assigned_to"`
	IssueType          domain.IssueType          `json:"issue_type"`
	Title              string                    `json:"title"`
	Description        string                    `json:"description"`
	Urgency            domain.Urgency            `json:"urgency"`
	Location           string                    `json:"location"`
	Coordinates        *GeoPointResponse         `json:"coordinates"`
	AssetID            *string                   `json:"asset_id"`
	Status             domain.RequestStatus      `json:"status"`
	PriorityScore      int                       `json:"priority_score"`
	ResolutionNotes    string                    `json:"resolution_notes,omitempty"`
	ResolutionCategory domain.ResolutionCategory `json:"resolution_category,omitempty"`
	CustomerRating     *int                      `json:"customer_rating"`
	CustomerFeedback   string                    `json:"customer_feedback,omitempty"`
	CreatedWorkOrder   bool                      `json:"created_work_order"`
	WorkOrderNumber    string                    `json:"work_order_number,omitempty"`
	IsOverdue          bool                      `json:"is_overdue"`
	DaysOpen           int                       `json:"days_open"`
	CanBeRated         bool                      `json:"can_be_rated"`
	CreatedAt          time.Time                 `json:"created_at"`
	UpdatedAt          time.Time                 `json:"updated_at"`
	AcknowledgedAt     *time.Time                `json:"acknowledged_at"`
	AssignedAt         *time.Time                `json:"assigned_at"`
	ResolvedAt         *time.Time                `json:"resolved_at"`
	ClosedAt           *time.Time                `json:"closed_at"`
	TargetResponseAt   time.Time                 `json:"target_response_at"`
	TargetResolutionAt time.Time                 `json:"target_resolution_at"`
	ActualResponseAt   *time.Time                `json:"actual_response_at"`
	Comments           []CommentResponse         `json:"comments"`
	Photos             []PhotoResponse           `json:"photos"`
}

// ResolveRequest payload.
type ResolveRequest struct {
	Notes           string                    `json:"notes"`
	Category        domain.ResolutionCategory `json:"category"`
	WorkOrderNumber string                    `json:"work_order_number"`
}

// HoldRequest payload.
type HoldRequest struct {
	Reason string `json:"reason"`
}

// CancelRequest payload.
type CancelRequest struct {
	Reason string `json:"reason"`
}

// AssignRequest payload.
type AssignRequest struct {
	StaffID string `json:"staff_id"`
}

// RateRequest payload.
type RateRequest struct {
	Rating   int    `json:"rating"`
	Feedback string `json:"feedback"`
}

// TimelineEventResponse is one reconstructed activity entry.
type TimelineEventResponse struct {
	Kind        string    `json:"kind"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	ActorName   string    `json:"actor_name"`
	ActorType   string    `json:"actor_type"`
}
