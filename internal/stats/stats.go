// Package stats derives request counts and rates. Computation is pure and
// read-only; an empty request set yields zero values, not an error.
package stats

import (
	"sort"
	"time"

	"github.com/waterworks/servicedesk/internal/domain"
)

// IssueCount is one row of the per-issue-type breakdown.
type IssueCount struct {
	IssueType domain.IssueType `json:"issue_type"`
	Count     int              `json:"count"`
}

// Summary aggregates a request set, scoped to one customer or a whole
// tenant depending on what the caller passes in.
type Summary struct {
	TotalRequests    int          `json:"total_requests"`
	OpenRequests     int          `json:"open_requests"`
	ResolvedRequests int          `json:"resolved_requests"`
	RecentActivity   int          `json:"recent_activity"`
	IssueBreakdown   []IssueCount `json:"issue_type_breakdown"`
	AverageRating    *float64     `json:"average_rating"`
}

// Requests updated within this trailing window count as recent activity.
const recentWindow = 30 * 24 * time.Hour

var openStatuses = map[domain.RequestStatus]bool{
	domain.StatusOpen:         true,
	domain.StatusAcknowledged: true,
	domain.StatusAssigned:     true,
	domain.StatusInProgress:   true,
}

// Compute aggregates the given request set as of now.
func Compute(requests []domain.ServiceRequest, now time.Time) Summary {
	summary := Summary{
		TotalRequests:  len(requests),
		IssueBreakdown: []IssueCount{},
	}

	counts := map[domain.IssueType]int{}
	recentCutoff := now.Add(-recentWindow)
	ratingSum, ratingCount := 0, 0

	for i := range requests {
		req := &requests[i]
		if openStatuses[req.Status] {
			summary.OpenRequests++
		}
		if req.Status == domain.StatusResolved || req.Status == domain.StatusClosed {
			summary.ResolvedRequests++
		}
		if !req.UpdatedAt.Before(recentCutoff) {
			summary.RecentActivity++
		}
		counts[req.IssueType]++
		if req.CustomerRating != nil {
			ratingSum += *req.CustomerRating
			ratingCount++
		}
	}

	for issueType, count := range counts {
		summary.IssueBreakdown = append(summary.IssueBreakdown, IssueCount{IssueType: issueType, Count: count})
	}
	sort.Slice(summary.IssueBreakdown, func(i, j int) bool {
		if summary.IssueBreakdown[i].Count != summary.IssueBreakdown[j].Count {
			return summary.IssueBreakdown[i].Count > summary.IssueBreakdown[j].Count
		}
		return summary.IssueBreakdown[i].IssueType < summary.IssueBreakdown[j].IssueType
	})

	if ratingCount > 0 {
		avg := float64(ratingSum) / float64(ratingCount)
		summary.AverageRating = &avg
	}
	return summary
}
