// Package sla derives priority scores and service-level targets for
// service requests. Every function is pure: callers compute the values
// once at request creation and persist them, they are never recalculated.
package sla

import (
	"time"

	"github.com/waterworks/servicedesk/internal/domain"
)

var urgencyWeights = map[domain.Urgency]int{
	domain.UrgencyEmergency: 100,
	domain.UrgencyHigh:      75,
	domain.UrgencyStandard:  50,
	domain.UrgencyLow:       25,
}

var issueWeights = map[domain.IssueType]int{
	domain.IssueNoWater:           30,
	domain.IssuePipeBurst:         25,
	domain.IssueLowPressure:       20,
	domain.IssueWaterQuality:      20,
	domain.IssueMeterProblem:      15,
	domain.IssueConnectionRequest: 15,
	domain.IssueBillingInquiry:    10,
	domain.IssueDisconnection:     10,
	domain.IssueOther:             10,
}

var responseOffsets = map[domain.Urgency]time.Duration{
	domain.UrgencyEmergency: time.Hour,
	domain.UrgencyHigh:      4 * time.Hour,
	domain.UrgencyStandard:  24 * time.Hour,
	domain.UrgencyLow:       72 * time.Hour,
}

var resolutionOffsets = map[domain.Urgency]time.Duration{
	domain.UrgencyEmergency: 4 * time.Hour,
	domain.UrgencyHigh:      24 * time.Hour,
	domain.UrgencyStandard:  3 * 24 * time.Hour,
	domain.UrgencyLow:       7 * 24 * time.Hour,
}

// Score computes the integer priority ranking for a request. Unknown
// values fall back to the standard/other weights.
func Score(issueType domain.IssueType, urgency domain.Urgency) int {
	urgencyScore, ok := urgencyWeights[urgency]
	if !ok {
		urgencyScore = urgencyWeights[domain.UrgencyStandard]
	}
	issueScore, ok := issueWeights[issueType]
	if !ok {
		issueScore = issueWeights[domain.IssueOther]
	}
	return urgencyScore + issueScore
}

// ResponseTarget returns the deadline for first staff response.
func ResponseTarget(createdAt time.Time, urgency domain.Urgency) time.Time {
	offset, ok := responseOffsets[urgency]
	if !ok {
		offset = responseOffsets[domain.UrgencyStandard]
	}
	return createdAt.Add(offset)
}

// ResolutionTarget returns the deadline for full resolution.
func ResolutionTarget(createdAt time.Time, urgency domain.Urgency) time.Time {
	offset, ok := resolutionOffsets[urgency]
	if !ok {
		offset = resolutionOffsets[domain.UrgencyStandard]
	}
	return createdAt.Add(offset)
}

// Apply stamps the derived fields onto a draft request.
func Apply(req *domain.ServiceRequest) {
	req.PriorityScore = Score(req.IssueType, req.Urgency)
	req.TargetResponseAt = ResponseTarget(req.CreatedAt, req.Urgency)
	req.TargetResolutionAt = ResolutionTarget(req.CreatedAt, req.Urgency)
}
