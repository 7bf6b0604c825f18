package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/waterworks/servicedesk/internal/config"
	"github.com/waterworks/servicedesk/internal/domain"
	"github.com/waterworks/servicedesk/internal/events"
	"github.com/waterworks/servicedesk/internal/repository"
)

type capturedNotification struct {
	Event      string
	Recipients []string
	Template   string
	Data       map[string]any
}

type captureSink struct {
	mu   sync.Mutex
	sent []capturedNotification
}

func (c *captureSink) Send(_ context.Context, eventName string, recipients []string, template string, data map[string]any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, capturedNotification{
		Event:      eventName,
		Recipients: append([]string{}, recipients...),
		Template:   template,
		Data:       data,
	})
	return true
}

func (c *captureSink) all() []capturedNotification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]capturedNotification{}, c.sent...)
}

func (c *captureSink) waitForTemplate(t *testing.T, template string) capturedNotification {
	t.Helper()
	var match capturedNotification
	require.Eventually(t, func() bool {
		for _, notification := range c.all() {
			if notification.Template == template {
				match = notification
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)
	return match
}

func newNotificationFixture(t *testing.T) (*NotificationService, *captureSink, events.Dispatcher) {
	t.Helper()

	customers := repository.NewMemoryCustomerRepository(&domain.Customer{
		ID: testCustomer, TenantID: testTenant, Email: "amina@example.com",
	})
	staff := repository.NewMemoryStaffRepository()
	staff.Put(&domain.Staff{
		ID: "staff-1", TenantID: testTenant, Email: "tech@example.com",
		Role: domain.RoleFieldTech, Active: true,
	})
	staff.Put(&domain.Staff{
		ID: "super-1", TenantID: testTenant, Email: "ops-lead@example.com",
		Role: domain.RoleSupervisor, Active: true,
	})

	dispatcher := events.NewInMemoryDispatcher(nil)
	notifications := NewNotificationService(dispatcher, customers, staff, zap.NewNop(), config.NotificationConfig{
		EmailFrom: "noreply@example.com",
	})
	sink := &captureSink{}
	notifications.sinks = []Notifier{sink}
	notifications.RegisterHandlers()
	return notifications, sink, dispatcher
}

func TestRequestCreatedNotifiesCustomerAndSupervisors(t *testing.T) {
	_, sink, dispatcher := newNotificationFixture(t)

	err := dispatcher.Publish(context.Background(), events.Event{
		Type:          events.EventRequestCreated,
		TenantID:      testTenant,
		RequestID:     "req-1",
		RequestNumber: "SR-2026-00001",
		Payload: events.RequestCreatedPayload{
			CustomerID:    testCustomer,
			IssueType:     domain.IssueNoWater,
			Urgency:       domain.UrgencyEmergency,
			PriorityScore: 130,
			Title:         "No water since yesterday morning",
		},
	})
	require.NoError(t, err)

	notification := sink.waitForTemplate(t, "request_created")
	assert.Equal(t, "request_created", notification.Event)
	assert.ElementsMatch(t, []string{"amina@example.com", "ops-lead@example.com"}, notification.Recipients)
	assert.Equal(t, "SR-2026-00001", notification.Data["request_number"])
	assert.Equal(t, 130, notification.Data["priority_score"])
}

func TestRequestAssignedNotifiesAssignee(t *testing.T) {
	_, sink, dispatcher := newNotificationFixture(t)

	err := dispatcher.Publish(context.Background(), events.Event{
		Type:          events.EventRequestAssigned,
		TenantID:      testTenant,
		RequestID:     "req-1",
		RequestNumber: "SR-2026-00001",
		Payload:       events.RequestAssignedPayload{AssigneeStaffID: "staff-1"},
	})
	require.NoError(t, err)

	notification := sink.waitForTemplate(t, "request_assigned")
	assert.Equal(t, []string{"tech@example.com"}, notification.Recipients)
	assert.Equal(t, "staff-1", notification.Data["assignee_staff_id"])
}

func TestInternalCommentsAreNotNotified(t *testing.T) {
	_, sink, dispatcher := newNotificationFixture(t)

	err := dispatcher.Publish(context.Background(), events.Event{
		Type:          events.EventRequestCommentAdded,
		TenantID:      testTenant,
		RequestID:     "req-1",
		RequestNumber: "SR-2026-00001",
		Payload: events.RequestCommentAddedPayload{
			CommentID:   "c-1",
			AuthorKind:  domain.AuthorStaff,
			Internal:    true,
			BodyPreview: "check the booster pump",
		},
	})
	require.NoError(t, err)

	err = dispatcher.Publish(context.Background(), events.Event{
		Type:          events.EventRequestCommentAdded,
		TenantID:      testTenant,
		RequestID:     "req-1",
		RequestNumber: "SR-2026-00001",
		Payload: events.RequestCommentAddedPayload{
			CommentID:   "c-2",
			AuthorKind:  domain.AuthorStaff,
			Internal:    false,
			BodyPreview: "a crew is on the way",
		},
	})
	require.NoError(t, err)

	notification := sink.waitForTemplate(t, "request_comment_added")
	assert.Equal(t, "a crew is on the way", notification.Data["body_preview"])
	for _, sent := range sink.all() {
		assert.NotEqual(t, "check the booster pump", sent.Data["body_preview"])
	}
}

func TestStatusChangeRoutedThroughSinks(t *testing.T) {
	_, sink, dispatcher := newNotificationFixture(t)

	err := dispatcher.Publish(context.Background(), events.Event{
		Type:          events.EventRequestStatusChanged,
		TenantID:      testTenant,
		RequestID:     "req-1",
		RequestNumber: "SR-2026-00001",
		Payload: events.RequestStatusChangedPayload{
			OldStatus: domain.StatusOpen,
			NewStatus: domain.StatusAcknowledged,
		},
	})
	require.NoError(t, err)

	notification := sink.waitForTemplate(t, "request_status_changed")
	assert.Equal(t, string(domain.StatusOpen), notification.Data["old_status"])
	assert.Equal(t, string(domain.StatusAcknowledged), notification.Data["new_status"])
}
