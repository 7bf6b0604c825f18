package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waterworks/servicedesk/internal/domain"
	"github.com/waterworks/servicedesk/internal/lifecycle"
	apperrors "github.com/waterworks/servicedesk/pkg/util"
)

func TestSelfAssignStampsAssignment(t *testing.T) {
	env := newTestEnv(t, lifecycle.Policy{})
	req := env.createRequest(t, burstPipeInput())
	tech := env.staffMember(t, "staff-1")

	assigned, err := env.assignments.SelfAssign(context.Background(), testTenant, tech, req.ID)
	require.NoError(t, err)
	require.NotNil(t, assigned.AssignedTo)
	assert.Equal(t, tech.ID, *assigned.AssignedTo)
	assert.Equal(t, domain.StatusAssigned, assigned.Status)
	require.NotNil(t, assigned.AssignedAt)
}

func TestConcurrentAssignHasExactlyOneWinner(t *testing.T) {
	env := newTestEnv(t, lifecycle.Policy{})
	req := env.createRequest(t, burstPipeInput())

	env.staff.Put(&domain.Staff{
		ID: "staff-2", TenantID: testTenant,
		Email: "tech2@example.com", Name: "Grace Wanjiru",
		Role: domain.RoleFieldTech, Active: true,
	})

	techA := env.staffMember(t, "staff-1")
	techB := env.staffMember(t, "staff-2")

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for _, member := range []*domain.Staff{techA, techB} {
		wg.Add(1)
		go func(m *domain.Staff) {
			defer wg.Done()
			_, err := env.assignments.SelfAssign(context.Background(), testTenant, m, req.ID)
			results <- err
		}(member)
	}
	wg.Wait()
	close(results)

	var wins, losses int
	for err := range results {
		if err == nil {
			wins++
			continue
		}
		losses++
		assert.Equal(t, "ALREADY_ASSIGNED", apperrors.ToDomainError(err).Code)
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, losses)

	stored, err := env.requests.GetByID(context.Background(), testTenant, req.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.AssignedTo)
	assert.Contains(t, []string{"staff-1", "staff-2"}, *stored.AssignedTo)
}

func TestAssignToOthersRequiresSupervisorRole(t *testing.T) {
	env := newTestEnv(t, lifecycle.Policy{})
	req := env.createRequest(t, burstPipeInput())

	env.staff.Put(&domain.Staff{
		ID: "staff-2", TenantID: testTenant,
		Email: "tech2@example.com", Name: "Grace Wanjiru",
		Role: domain.RoleFieldTech, Active: true,
	})
	env.staff.Put(&domain.Staff{
		ID: "super-1", TenantID: testTenant,
		Email: "super@example.com", Name: "Peter Kamau",
		Role: domain.RoleSupervisor, Active: true,
	})

	tech := env.staffMember(t, "staff-1")
	_, err := env.assignments.AssignToStaff(context.Background(), testTenant, tech, req.ID, "staff-2")
	require.Error(t, err)
	assert.Equal(t, "FORBIDDEN", apperrors.ToDomainError(err).Code)

	supervisor := env.staffMember(t, "super-1")
	assigned, err := env.assignments.AssignToStaff(context.Background(), testTenant, supervisor, req.ID, "staff-2")
	require.NoError(t, err)
	require.NotNil(t, assigned.AssignedTo)
	assert.Equal(t, "staff-2", *assigned.AssignedTo)
}

func TestAssignRejectsInactiveAssignee(t *testing.T) {
	env := newTestEnv(t, lifecycle.Policy{})
	req := env.createRequest(t, burstPipeInput())

	env.staff.Put(&domain.Staff{
		ID: "staff-gone", TenantID: testTenant,
		Email: "gone@example.com", Name: "Former Tech",
		Role: domain.RoleFieldTech, Active: false,
	})
	env.staff.Put(&domain.Staff{
		ID: "super-1", TenantID: testTenant,
		Email: "super@example.com", Name: "Peter Kamau",
		Role: domain.RoleSupervisor, Active: true,
	})

	supervisor := env.staffMember(t, "super-1")
	_, err := env.assignments.AssignToStaff(context.Background(), testTenant, supervisor, req.ID, "staff-gone")
	require.Error(t, err)
	assert.Equal(t, "CONFLICT", apperrors.ToDomainError(err).Code)
}

func TestAssignRejectsResolvedRequest(t *testing.T) {
	env := newTestEnv(t, lifecycle.Policy{})
	req := env.createRequest(t, burstPipeInput())
	tech := env.staffMember(t, "staff-1")

	_, err := env.service.Resolve(context.Background(), testTenant, tech, req.ID, ResolveInput{Category: domain.ResolvedPhone})
	require.NoError(t, err)

	_, err = env.assignments.SelfAssign(context.Background(), testTenant, tech, req.ID)
	require.Error(t, err)
	assert.Equal(t, "INVALID_TRANSITION", apperrors.ToDomainError(err).Code)
}
