package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waterworks/servicedesk/internal/domain"
	"github.com/waterworks/servicedesk/internal/events"
	"github.com/waterworks/servicedesk/internal/lifecycle"
	"github.com/waterworks/servicedesk/internal/repository"
	"github.com/waterworks/servicedesk/internal/validation"
	apperrors "github.com/waterworks/servicedesk/pkg/util"
)

const (
	testTenant   = "nairobi-west"
	testCustomer = "cust-1"
)

type testEnv struct {
	requests    *repository.MemoryRequestRepository
	comments    *repository.MemoryCommentRepository
	photos      *repository.MemoryPhotoRepository
	customers   *repository.MemoryCustomerRepository
	staff       *repository.MemoryStaffRepository
	assets      *repository.MemoryAssetRepository
	service     *RequestService
	assignments *AssignmentService
	published   []events.Event
	mu          sync.Mutex
}

func newTestEnv(t *testing.T, policy lifecycle.Policy) *testEnv {
	t.Helper()

	env := &testEnv{
		requests:  repository.NewMemoryRequestRepository(),
		comments:  repository.NewMemoryCommentRepository(),
		photos:    repository.NewMemoryPhotoRepository(),
		customers: repository.NewMemoryCustomerRepository(),
		staff:     repository.NewMemoryStaffRepository(),
		assets:    repository.NewMemoryAssetRepository(),
	}
	env.customers.Put(&domain.Customer{
		ID: testCustomer, TenantID: testTenant,
		Email: "amina@example.com", FirstName: "Amina", LastName: "Odhiambo",
	})
	env.staff.Put(&domain.Staff{
		ID: "staff-1", TenantID: testTenant,
		Email: "tech@example.com", Name: "Joseph Mwangi",
		Role: domain.RoleFieldTech, Active: true,
	})

	dispatcher := events.NewInMemoryDispatcher(nil)
	for _, eventType := range []events.EventType{
		events.EventRequestCreated, events.EventRequestStatusChanged,
		events.EventRequestAssigned, events.EventRequestCommentAdded,
		events.EventRequestRated,
	} {
		dispatcher.Subscribe(eventType, func(_ context.Context, event events.Event) error {
			env.mu.Lock()
			env.published = append(env.published, event)
			env.mu.Unlock()
			return nil
		})
	}

	machine := lifecycle.New(policy, nil)
	env.service = NewRequestService(RequestDependencies{
		RequestRepo:  env.requests,
		CommentRepo:  env.comments,
		PhotoRepo:    env.photos,
		CustomerRepo: env.customers,
		StaffRepo:    env.staff,
		AssetRepo:    env.assets,
		Validator:    validation.New(validation.DefaultRegionBounds(), nil),
		Machine:      machine,
		Dispatcher:   dispatcher,
	})
	env.assignments = NewAssignmentService(AssignmentDependencies{
		RequestRepo: env.requests,
		StaffRepo:   env.staff,
		Machine:     machine,
		Dispatcher:  dispatcher,
	})
	return env
}

func (env *testEnv) publishedEvents() []events.Event {
	env.mu.Lock()
	defer env.mu.Unlock()
	return append([]events.Event{}, env.published...)
}

func (env *testEnv) waitForEvent(t *testing.T, eventType events.EventType) events.Event {
	t.Helper()
	var match events.Event
	require.Eventually(t, func() bool {
		for _, event := range env.publishedEvents() {
			if event.Type == eventType {
				match = event
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)
	return match
}

func (env *testEnv) staffMember(t *testing.T, id string) *domain.Staff {
	t.Helper()
	member, err := env.staff.GetByID(context.Background(), testTenant, id)
	require.NoError(t, err)
	return member
}

func (env *testEnv) createRequest(t *testing.T, input validation.CreateRequestInput) *domain.ServiceRequest {
	t.Helper()
	req, err := env.service.CreateRequest(context.Background(), testTenant, testCustomer, input)
	require.NoError(t, err)
	return req
}

func burstPipeInput() validation.CreateRequestInput {
	return validation.CreateRequestInput{
		IssueType:   domain.IssueNoWater,
		Title:       "No water since yesterday morning",
		Description: "The entire street has had no supply for over a day.",
		Urgency:     domain.UrgencyEmergency,
		Location:    "Kileleshwa, Mandera Road, house 14",
	}
}

func TestCreateRequestDerivesPriorityAndTargets(t *testing.T) {
	env := newTestEnv(t, lifecycle.Policy{})

	req := env.createRequest(t, burstPipeInput())

	assert.Equal(t, 130, req.PriorityScore)
	assert.Equal(t, domain.StatusOpen, req.Status)
	assert.Equal(t, req.CreatedAt.Add(time.Hour), req.TargetResponseAt)
	assert.Equal(t, req.CreatedAt.Add(4*time.Hour), req.TargetResolutionAt)
	assert.Regexp(t, `^SR-\d{4}-\d{5}$`, req.RequestNumber)

	created := env.waitForEvent(t, events.EventRequestCreated)
	assert.Equal(t, req.ID, created.RequestID)
}

func TestCreateRequestRejectsUnknownAsset(t *testing.T) {
	env := newTestEnv(t, lifecycle.Policy{})

	input := burstPipeInput()
	assetID := "asset-404"
	input.AssetID = &assetID

	_, err := env.service.CreateRequest(context.Background(), testTenant, testCustomer, input)
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)
}

func TestCreateRequestSequencesAreUniqueUnderConcurrency(t *testing.T) {
	env := newTestEnv(t, lifecycle.Policy{})

	const workers = 20
	numbers := make(chan string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req, err := env.service.CreateRequest(context.Background(), testTenant, testCustomer, burstPipeInput())
			if err == nil {
				numbers <- req.RequestNumber
			}
		}()
	}
	wg.Wait()
	close(numbers)

	seen := map[string]bool{}
	for number := range numbers {
		assert.False(t, seen[number], "duplicate request number %s", number)
		seen[number] = true
	}
	assert.Len(t, seen, workers)
}

func TestAcknowledgeStampsResponseTime(t *testing.T) {
	env := newTestEnv(t, lifecycle.Policy{})
	req := env.createRequest(t, burstPipeInput())
	tech := env.staffMember(t, "staff-1")

	updated, err := env.service.Acknowledge(context.Background(), testTenant, tech, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAcknowledged, updated.Status)
	require.NotNil(t, updated.AcknowledgedAt)
	require.NotNil(t, updated.ActualResponseAt)

	stored, err := env.requests.GetByID(context.Background(), testTenant, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAcknowledged, stored.Status)
}

func TestIllegalTransitionLeavesRequestUnchanged(t *testing.T) {
	env := newTestEnv(t, lifecycle.Policy{})
	req := env.createRequest(t, burstPipeInput())
	tech := env.staffMember(t, "staff-1")

	_, err := env.service.Acknowledge(context.Background(), testTenant, tech, req.ID)
	require.NoError(t, err)

	// Second acknowledge must fail: the request is no longer open.
	_, err = env.service.Acknowledge(context.Background(), testTenant, tech, req.ID)
	require.Error(t, err)
	assert.Equal(t, "INVALID_TRANSITION", apperrors.ToDomainError(err).Code)

	stored, err := env.requests.GetByID(context.Background(), testTenant, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAcknowledged, stored.Status)
}

func TestResolveFromOpenUnderPermissivePolicy(t *testing.T) {
	env := newTestEnv(t, lifecycle.Policy{})
	req := env.createRequest(t, burstPipeInput())
	tech := env.staffMember(t, "staff-1")

	updated, err := env.service.Resolve(context.Background(), testTenant, tech, req.ID, ResolveInput{
		Notes:           "Valve reopened at the street junction.",
		Category:        domain.ResolvedField,
		WorkOrderNumber: "WO-7781",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusResolved, updated.Status)
	assert.True(t, updated.CreatedWorkOrder)
	assert.Equal(t, "WO-7781", updated.WorkOrderNumber)
	require.NotNil(t, updated.ResolvedAt)
}

func TestResolveRequiresAssignmentUnderStrictPolicy(t *testing.T) {
	env := newTestEnv(t, lifecycle.Policy{StrictResolutionPath: true})
	req := env.createRequest(t, burstPipeInput())
	tech := env.staffMember(t, "staff-1")

	_, err := env.service.Resolve(context.Background(), testTenant, tech, req.ID, ResolveInput{Category: domain.ResolvedField})
	require.Error(t, err)
	assert.Equal(t, "INVALID_TRANSITION", apperrors.ToDomainError(err).Code)
}

func TestRateGuards(t *testing.T) {
	env := newTestEnv(t, lifecycle.Policy{})
	req := env.createRequest(t, burstPipeInput())
	tech := env.staffMember(t, "staff-1")

	_, err := env.service.Rate(context.Background(), testTenant, testCustomer, req.ID, 4, "quick fix")
	require.Error(t, err, "rating an open request must fail")

	_, err = env.service.Resolve(context.Background(), testTenant, tech, req.ID, ResolveInput{Category: domain.ResolvedField})
	require.NoError(t, err)

	_, err = env.service.Rate(context.Background(), testTenant, testCustomer, req.ID, 6, "")
	require.Error(t, err, "rating above 5 must fail")

	rated, err := env.service.Rate(context.Background(), testTenant, testCustomer, req.ID, 5, "thank you")
	require.NoError(t, err)
	require.NotNil(t, rated.CustomerRating)
	assert.Equal(t, 5, *rated.CustomerRating)

	_, err = env.service.Rate(context.Background(), testTenant, testCustomer, req.ID, 3, "")
	require.Error(t, err, "second rating must fail")
}

func TestRateRejectsForeignCustomer(t *testing.T) {
	env := newTestEnv(t, lifecycle.Policy{})
	req := env.createRequest(t, burstPipeInput())

	_, err := env.service.Rate(context.Background(), testTenant, "cust-other", req.ID, 4, "")
	require.Error(t, err)
	assert.Equal(t, "FORBIDDEN", apperrors.ToDomainError(err).Code)
}

func TestCustomerDetailExcludesInternalComments(t *testing.T) {
	env := newTestEnv(t, lifecycle.Policy{})
	req := env.createRequest(t, burstPipeInput())

	require.NoError(t, env.comments.Create(context.Background(), &domain.Comment{
		ID: "c1", TenantID: testTenant, RequestID: req.ID,
		Author: domain.StaffAuthor("staff-1"), Body: "Crew dispatched.",
		CreatedAt: time.Now(),
	}))
	require.NoError(t, env.comments.Create(context.Background(), &domain.Comment{
		ID: "c2", TenantID: testTenant, RequestID: req.ID,
		Author: domain.StaffAuthor("staff-1"), Body: "Customer has a billing dispute.",
		Internal:  true,
		CreatedAt: time.Now(),
	}))

	detail, err := env.service.GetRequestForCustomer(context.Background(), testTenant, testCustomer, req.ID)
	require.NoError(t, err)
	require.Len(t, detail.Comments, 1)
	assert.Equal(t, "c1", detail.Comments[0].ID)

	staffDetail, err := env.service.GetRequestForStaff(context.Background(), testTenant, req.ID)
	require.NoError(t, err)
	assert.Len(t, staffDetail.Comments, 2)
}

func TestTimelineCoversLifecycle(t *testing.T) {
	env := newTestEnv(t, lifecycle.Policy{})
	req := env.createRequest(t, burstPipeInput())
	tech := env.staffMember(t, "staff-1")

	_, err := env.service.Acknowledge(context.Background(), testTenant, tech, req.ID)
	require.NoError(t, err)
	_, err = env.assignments.SelfAssign(context.Background(), testTenant, tech, req.ID)
	require.NoError(t, err)
	_, err = env.service.StartWork(context.Background(), testTenant, tech, req.ID)
	require.NoError(t, err)
	_, err = env.service.Resolve(context.Background(), testTenant, tech, req.ID, ResolveInput{Category: domain.ResolvedField})
	require.NoError(t, err)

	timelineEvents, err := env.service.TimelineForCustomer(context.Background(), testTenant, testCustomer, req.ID)
	require.NoError(t, err)

	kinds := make([]string, 0, len(timelineEvents))
	for _, event := range timelineEvents {
		kinds = append(kinds, string(event.Kind))
	}
	assert.Equal(t, []string{"created", "acknowledged", "assigned", "resolved"}, kinds)

	for i := 1; i < len(timelineEvents); i++ {
		assert.False(t, timelineEvents[i].Timestamp.Before(timelineEvents[i-1].Timestamp))
	}
}

func TestHoldRecordsReasonOnThread(t *testing.T) {
	env := newTestEnv(t, lifecycle.Policy{})
	req := env.createRequest(t, burstPipeInput())
	tech := env.staffMember(t, "staff-1")

	_, err := env.assignments.SelfAssign(context.Background(), testTenant, tech, req.ID)
	require.NoError(t, err)
	_, err = env.service.StartWork(context.Background(), testTenant, tech, req.ID)
	require.NoError(t, err)
	_, err = env.service.Hold(context.Background(), testTenant, tech, req.ID, "Waiting for replacement pipe delivery")
	require.NoError(t, err)

	comments, err := env.comments.ListByRequest(context.Background(), testTenant, req.ID, true)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "Waiting for replacement pipe delivery", comments[0].Body)
	assert.Equal(t, domain.StatusInProgress, comments[0].StatusChangedFrom)
	assert.Equal(t, domain.StatusOnHold, comments[0].StatusChangedTo)
}

func TestListCustomerRequestsFilters(t *testing.T) {
	env := newTestEnv(t, lifecycle.Policy{})

	env.createRequest(t, burstPipeInput())
	low := burstPipeInput()
	low.IssueType = domain.IssueBillingInquiry
	low.Urgency = domain.UrgencyLow
	env.createRequest(t, low)

	all, err := env.service.ListCustomerRequests(context.Background(), testTenant, testCustomer, CustomerListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	emergencies, err := env.service.ListCustomerRequests(context.Background(), testTenant, testCustomer, CustomerListFilter{
		Urgencies: []domain.Urgency{domain.UrgencyEmergency},
	})
	require.NoError(t, err)
	require.Len(t, emergencies, 1)
	assert.Equal(t, domain.IssueNoWater, emergencies[0].IssueType)
}

func TestRequestNumbersResetPerTenant(t *testing.T) {
	env := newTestEnv(t, lifecycle.Policy{})

	first := env.createRequest(t, burstPipeInput())

	otherTenant := "mombasa-coast"
	env.customers.Put(&domain.Customer{ID: testCustomer, TenantID: otherTenant, Email: "amina@example.com"})
	other, err := env.service.CreateRequest(context.Background(), otherTenant, testCustomer, burstPipeInput())
	require.NoError(t, err)

	year := time.Now().Year()
	assert.Equal(t, fmt.Sprintf("SR-%d-00001", year), first.RequestNumber)
	assert.Equal(t, fmt.Sprintf("SR-%d-00001", year), other.RequestNumber)
}
