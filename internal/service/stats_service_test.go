package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waterworks/servicedesk/internal/domain"
	"github.com/waterworks/servicedesk/internal/lifecycle"
	"github.com/waterworks/servicedesk/internal/validation"
)

func TestCustomerSummaryWithoutCache(t *testing.T) {
	env := newTestEnv(t, lifecycle.Policy{})
	tech := env.staffMember(t, "staff-1")
	statsSvc := NewStatsService(StatsDependencies{RequestRepo: env.requests})

	env.createRequest(t, burstPipeInput())

	leak := env.createRequest(t, validation.CreateRequestInput{
		IssueType:   domain.IssuePipeBurst,
		Title:       "Leak at the junction box",
		Description: "Water pooling around the meter since Monday.",
		Urgency:     domain.UrgencyHigh,
		Location:    "Kilimani, Rose Avenue",
	})
	_, err := env.service.Resolve(context.Background(), testTenant, tech, leak.ID, ResolveInput{Category: domain.ResolvedField})
	require.NoError(t, err)
	_, err = env.service.Rate(context.Background(), testTenant, testCustomer, leak.ID, 4, "quick fix")
	require.NoError(t, err)

	summary, err := statsSvc.CustomerSummary(context.Background(), testTenant, testCustomer)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.TotalRequests)
	assert.Equal(t, 1, summary.OpenRequests)
	assert.Equal(t, 1, summary.ResolvedRequests)
	assert.Equal(t, 2, summary.RecentActivity)
	require.NotNil(t, summary.AverageRating)
	assert.InDelta(t, 4.0, *summary.AverageRating, 1e-9)
}

func TestTenantSummarySpansCustomers(t *testing.T) {
	env := newTestEnv(t, lifecycle.Policy{})
	statsSvc := NewStatsService(StatsDependencies{RequestRepo: env.requests})

	env.customers.Put(&domain.Customer{
		ID: "cust-2", TenantID: testTenant,
		Email: "brian@example.com", FirstName: "Brian", LastName: "Otieno",
	})

	env.createRequest(t, burstPipeInput())
	_, err := env.service.CreateRequest(context.Background(), testTenant, "cust-2", validation.CreateRequestInput{
		IssueType:   domain.IssueBillingInquiry,
		Title:       "Bill doubled this month",
		Description: "My usage has not changed but the bill has doubled.",
		Urgency:     domain.UrgencyLow,
		Location:    "South B, Mariakani Estate",
	})
	require.NoError(t, err)

	summary, err := statsSvc.TenantSummary(context.Background(), testTenant)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.TotalRequests)
	assert.Nil(t, summary.AverageRating)

	perCustomer, err := statsSvc.CustomerSummary(context.Background(), testTenant, "cust-2")
	require.NoError(t, err)
	assert.Equal(t, 1, perCustomer.TotalRequests)
}

func TestSummaryExcludesOnHoldFromOpenCount(t *testing.T) {
	env := newTestEnv(t, lifecycle.Policy{})
	tech := env.staffMember(t, "staff-1")
	statsSvc := NewStatsService(StatsDependencies{
		RequestRepo: env.requests,
		Clock:       func() time.Time { return time.Now() },
	})

	req := env.createRequest(t, burstPipeInput())
	_, err := env.service.Acknowledge(context.Background(), testTenant, tech, req.ID)
	require.NoError(t, err)
	_, err = env.assignments.SelfAssign(context.Background(), testTenant, tech, req.ID)
	require.NoError(t, err)
	_, err = env.service.StartWork(context.Background(), testTenant, tech, req.ID)
	require.NoError(t, err)
	_, err = env.service.Hold(context.Background(), testTenant, tech, req.ID, "waiting on a spare pump part")
	require.NoError(t, err)

	summary, err := statsSvc.CustomerSummary(context.Background(), testTenant, testCustomer)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TotalRequests)
	assert.Equal(t, 0, summary.OpenRequests)
	assert.Equal(t, 0, summary.ResolvedRequests)
}
