package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waterworks/servicedesk/internal/domain"
)

var now = time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)

func request(status domain.RequestStatus, issue domain.IssueType, updated time.Time) domain.ServiceRequest {
	return domain.ServiceRequest{Status: status, IssueType: issue, UpdatedAt: updated}
}

func TestCompute_EmptySetReturnsZeros(t *testing.T) {
	summary := Compute(nil, now)

	assert.Equal(t, 0, summary.TotalRequests)
	assert.Equal(t, 0, summary.OpenRequests)
	assert.Equal(t, 0, summary.ResolvedRequests)
	assert.Equal(t, 0, summary.RecentActivity)
	assert.Empty(t, summary.IssueBreakdown)
	assert.Nil(t, summary.AverageRating)
}

func TestCompute_Counts(t *testing.T) {
	recent := now.Add(-24 * time.Hour)
	stale := now.Add(-45 * 24 * time.Hour)

	requests := []domain.ServiceRequest{
		request(domain.StatusOpen, domain.IssueNoWater, recent),
		request(domain.StatusAcknowledged, domain.IssueNoWater, recent),
		request(domain.StatusAssigned, domain.IssueLowPressure, stale),
		request(domain.StatusInProgress, domain.IssuePipeBurst, recent),
		request(domain.StatusOnHold, domain.IssuePipeBurst, stale),
		request(domain.StatusResolved, domain.IssueNoWater, recent),
		request(domain.StatusClosed, domain.IssueMeterProblem, stale),
		request(domain.StatusCancelled, domain.IssueOther, stale),
	}

	summary := Compute(requests, now)

	assert.Equal(t, 8, summary.TotalRequests)
	// on_hold is not part of the open set, mirroring the dashboard counts.
	assert.Equal(t, 4, summary.OpenRequests)
	assert.Equal(t, 2, summary.ResolvedRequests)
	assert.Equal(t, 4, summary.RecentActivity)
}

func TestCompute_IssueBreakdownSorted(t *testing.T) {
	requests := []domain.ServiceRequest{
		request(domain.StatusOpen, domain.IssueLowPressure, now),
		request(domain.StatusOpen, domain.IssueNoWater, now),
		request(domain.StatusOpen, domain.IssueNoWater, now),
		request(domain.StatusOpen, domain.IssueNoWater, now),
		request(domain.StatusOpen, domain.IssuePipeBurst, now),
		request(domain.StatusOpen, domain.IssuePipeBurst, now),
	}

	summary := Compute(requests, now)

	require.Len(t, summary.IssueBreakdown, 3)
	assert.Equal(t, IssueCount{domain.IssueNoWater, 3}, summary.IssueBreakdown[0])
	assert.Equal(t, IssueCount{domain.IssuePipeBurst, 2}, summary.IssueBreakdown[1])
	assert.Equal(t, IssueCount{domain.IssueLowPressure, 1}, summary.IssueBreakdown[2])
}

func TestCompute_AverageRating(t *testing.T) {
	four, five := 4, 5
	requests := []domain.ServiceRequest{
		{Status: domain.StatusClosed, IssueType: domain.IssueOther, UpdatedAt: now, CustomerRating: &four},
		{Status: domain.StatusClosed, IssueType: domain.IssueOther, UpdatedAt: now, CustomerRating: &five},
		{Status: domain.StatusOpen, IssueType: domain.IssueOther, UpdatedAt: now},
	}

	summary := Compute(requests, now)

	require.NotNil(t, summary.AverageRating)
	assert.InDelta(t, 4.5, *summary.AverageRating, 0.0001)
}

func TestCompute_RecentWindowBoundary(t *testing.T) {
	exactly := now.Add(-30 * 24 * time.Hour)
	justOutside := exactly.Add(-time.Second)

	summary := Compute([]domain.ServiceRequest{
		request(domain.StatusOpen, domain.IssueOther, exactly),
		request(domain.StatusOpen, domain.IssueOther, justOutside),
	}, now)

	assert.Equal(t, 1, summary.RecentActivity)
}
