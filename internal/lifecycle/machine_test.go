package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waterworks/servicedesk/internal/domain"
	apperrors "github.com/waterworks/servicedesk/pkg/util"
)

var testClock = func() time.Time {
	return time.Date(2025, 4, 2, 10, 0, 0, 0, time.UTC)
}

func newRequest(status domain.RequestStatus) *domain.ServiceRequest {
	return &domain.ServiceRequest{
		ID:        "req-1",
		Status:    status,
		CreatedAt: time.Date(2025, 4, 1, 8, 0, 0, 0, time.UTC),
	}
}

func assertInvalidTransition(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	domainErr := apperrors.ToDomainError(err)
	assert.Equal(t, "INVALID_TRANSITION", domainErr.Code)
}

func TestAcknowledge_FromOpen(t *testing.T) {
	m := New(Policy{}, testClock)
	req := newRequest(domain.StatusOpen)

	require.NoError(t, m.Acknowledge(req))

	assert.Equal(t, domain.StatusAcknowledged, req.Status)
	require.NotNil(t, req.AcknowledgedAt)
	require.NotNil(t, req.ActualResponseAt)
	assert.Equal(t, *req.AcknowledgedAt, *req.ActualResponseAt)
	assert.Equal(t, testClock(), req.UpdatedAt)
}

func TestAcknowledge_RejectedPastOpen(t *testing.T) {
	m := New(Policy{}, testClock)
	for _, status := range []domain.RequestStatus{
		domain.StatusAcknowledged, domain.StatusAssigned, domain.StatusInProgress,
		domain.StatusResolved, domain.StatusClosed, domain.StatusCancelled,
	} {
		req := newRequest(status)
		assertInvalidTransition(t, m.Acknowledge(req))
		assert.Equal(t, status, req.Status, "status must be unchanged")
		assert.Nil(t, req.AcknowledgedAt)
	}
}

func TestAssign_StampsAndMovesStatus(t *testing.T) {
	m := New(Policy{}, testClock)
	req := newRequest(domain.StatusAcknowledged)

	require.NoError(t, m.Assign(req, "staff-7"))

	assert.Equal(t, domain.StatusAssigned, req.Status)
	require.NotNil(t, req.AssignedTo)
	assert.Equal(t, "staff-7", *req.AssignedTo)
	require.NotNil(t, req.AssignedAt)
}

func TestAssign_RejectedOnTerminalAndResolved(t *testing.T) {
	m := New(Policy{}, testClock)
	for _, status := range []domain.RequestStatus{domain.StatusResolved, domain.StatusClosed, domain.StatusCancelled} {
		req := newRequest(status)
		assertInvalidTransition(t, m.Assign(req, "staff-7"))
		assert.Nil(t, req.AssignedTo)
	}
}

func TestHoldResume_Cycle(t *testing.T) {
	m := New(Policy{}, testClock)
	req := newRequest(domain.StatusInProgress)

	require.NoError(t, m.Hold(req))
	assert.Equal(t, domain.StatusOnHold, req.Status)

	require.NoError(t, m.Resume(req))
	assert.Equal(t, domain.StatusInProgress, req.Status)
}

func TestHold_OnlyFromInProgress(t *testing.T) {
	m := New(Policy{}, testClock)
	req := newRequest(domain.StatusOpen)
	assertInvalidTransition(t, m.Hold(req))
}

func TestResolve_PermissiveFromAnyNonTerminal(t *testing.T) {
	m := New(Policy{}, testClock)
	for _, status := range []domain.RequestStatus{
		domain.StatusOpen, domain.StatusAcknowledged, domain.StatusAssigned,
		domain.StatusInProgress, domain.StatusOnHold,
	} {
		req := newRequest(status)
		require.NoError(t, m.Resolve(req, "flushed main line", domain.ResolvedField, ""))
		assert.Equal(t, domain.StatusResolved, req.Status)
		require.NotNil(t, req.ResolvedAt)
		assert.Equal(t, "flushed main line", req.ResolutionNotes)
		assert.Equal(t, domain.ResolvedField, req.ResolutionCategory)
	}
}

func TestResolve_StrictRequiresAssignment(t *testing.T) {
	m := New(Policy{StrictResolutionPath: true}, testClock)

	req := newRequest(domain.StatusAcknowledged)
	assertInvalidTransition(t, m.Resolve(req, "notes here", "", ""))

	staffID := "staff-3"
	req = newRequest(domain.StatusInProgress)
	req.AssignedTo = &staffID
	require.NoError(t, m.Resolve(req, "notes here", "", ""))
}

func TestResolve_WorkOrderLinkage(t *testing.T) {
	m := New(Policy{}, testClock)
	req := newRequest(domain.StatusInProgress)

	require.NoError(t, m.Resolve(req, "replaced meter", domain.ResolvedField, "WO-2025-0042"))

	assert.True(t, req.CreatedWorkOrder)
	assert.Equal(t, "WO-2025-0042", req.WorkOrderNumber)
}

func TestResolve_RejectsUnknownCategory(t *testing.T) {
	m := New(Policy{}, testClock)
	req := newRequest(domain.StatusInProgress)

	err := m.Resolve(req, "notes", domain.ResolutionCategory("nope"), "")
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)
	assert.Equal(t, domain.StatusInProgress, req.Status)
}

func TestClose_PermissiveAndStrict(t *testing.T) {
	permissive := New(Policy{}, testClock)
	req := newRequest(domain.StatusOpen)
	require.NoError(t, permissive.Close(req))
	assert.Equal(t, domain.StatusClosed, req.Status)
	require.NotNil(t, req.ClosedAt)

	strict := New(Policy{StrictResolutionPath: true}, testClock)
	req = newRequest(domain.StatusInProgress)
	assertInvalidTransition(t, strict.Close(req))
	assert.Nil(t, req.ClosedAt)

	req = newRequest(domain.StatusResolved)
	require.NoError(t, strict.Close(req))
}

func TestClose_TerminalStatesRejected(t *testing.T) {
	m := New(Policy{}, testClock)
	for _, status := range []domain.RequestStatus{domain.StatusClosed, domain.StatusCancelled} {
		req := newRequest(status)
		assertInvalidTransition(t, m.Close(req))
	}
}

func TestCancel_FromAnyNonTerminal(t *testing.T) {
	m := New(Policy{}, testClock)
	for _, status := range []domain.RequestStatus{
		domain.StatusOpen, domain.StatusAcknowledged, domain.StatusAssigned,
		domain.StatusInProgress, domain.StatusOnHold, domain.StatusResolved,
	} {
		req := newRequest(status)
		require.NoError(t, m.Cancel(req))
		assert.Equal(t, domain.StatusCancelled, req.Status)
	}

	req := newRequest(domain.StatusClosed)
	assertInvalidTransition(t, m.Cancel(req))
}

func TestRate_OnlyResolvedOrClosed(t *testing.T) {
	m := New(Policy{}, testClock)

	req := newRequest(domain.StatusInProgress)
	err := m.Rate(req, 4, "good work")
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)
	assert.Nil(t, req.CustomerRating)

	req = newRequest(domain.StatusResolved)
	require.NoError(t, m.Rate(req, 4, "good work"))
	require.NotNil(t, req.CustomerRating)
	assert.Equal(t, 4, *req.CustomerRating)
	assert.Equal(t, "good work", req.CustomerFeedback)
}

func TestRate_OutOfRange(t *testing.T) {
	m := New(Policy{}, testClock)
	req := newRequest(domain.StatusResolved)

	for _, rating := range []int{0, 6, -1} {
		err := m.Rate(req, rating, "")
		require.Error(t, err)
		assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)
		assert.Nil(t, req.CustomerRating)
	}
}

func TestRate_SecondRatingRejected(t *testing.T) {
	m := New(Policy{}, testClock)
	req := newRequest(domain.StatusClosed)

	require.NoError(t, m.Rate(req, 5, ""))
	err := m.Rate(req, 3, "changed my mind")
	require.Error(t, err)
	assert.Equal(t, 5, *req.CustomerRating)
}

func TestCanTransition_Graph(t *testing.T) {
	assert.True(t, CanTransition(domain.StatusOpen, domain.StatusAcknowledged))
	assert.True(t, CanTransition(domain.StatusInProgress, domain.StatusOnHold))
	assert.True(t, CanTransition(domain.StatusOnHold, domain.StatusInProgress))
	assert.True(t, CanTransition(domain.StatusResolved, domain.StatusClosed))
	assert.False(t, CanTransition(domain.StatusOpen, domain.StatusClosed))
	assert.False(t, CanTransition(domain.StatusClosed, domain.StatusOpen))
	assert.False(t, CanTransition(domain.StatusCancelled, domain.StatusInProgress))
}
