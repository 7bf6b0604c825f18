package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/waterworks/servicedesk/internal/config"
	"github.com/waterworks/servicedesk/internal/domain"
	"github.com/waterworks/servicedesk/internal/events"
	"github.com/waterworks/servicedesk/internal/repository"
)

// NotificationService turns domain events into notifications and routes
// them through the configured sinks. Delivery is best effort: failures
// are logged and never surface to the operation that triggered them.
type NotificationService struct {
	dispatcher events.Dispatcher
	customers  repository.CustomerRepository
	staff      repository.StaffRepository
	logger     *zap.Logger
	sinks      []Notifier
}

// NewNotificationService creates the service. A log sink is always
// installed; a webhook sink is added when a webhook URL is configured.
func NewNotificationService(dispatcher events.Dispatcher, customers repository.CustomerRepository, staff repository.StaffRepository, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	sinks := []Notifier{NewLogNotifier(logger, cfg.EmailFrom)}
	if strings.TrimSpace(cfg.WebhookURL) != "" {
		sinks = append(sinks, NewWebhookNotifier(cfg.WebhookURL, cfg.SendTimeout(), logger))
	}
	return &NotificationService{
		dispatcher: dispatcher,
		customers:  customers,
		staff:      staff,
		logger:     logger,
		sinks:      sinks,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventRequestCreated, n.handleRequestCreated)
	n.dispatcher.Subscribe(events.EventRequestStatusChanged, n.handleRequestStatusChanged)
	n.dispatcher.Subscribe(events.EventRequestAssigned, n.handleRequestAssigned)
	n.dispatcher.Subscribe(events.EventRequestCommentAdded, n.handleRequestCommentAdded)
	n.dispatcher.Subscribe(events.EventRequestRated, n.handleRequestRated)
}

func (n *NotificationService) handleRequestCreated(ctx context.Context, event events.Event) error {
	var recipients []string
	data := n.baseData(event)
	if payload, ok := event.Payload.(events.RequestCreatedPayload); ok {
		recipients = appendRecipient(recipients, n.customerEmail(ctx, event.TenantID, payload.CustomerID))
		recipients = append(recipients, n.supervisorEmails(ctx, event.TenantID)...)
		data["issue_type"] = string(payload.IssueType)
		data["urgency"] = string(payload.Urgency)
		data["priority_score"] = payload.PriorityScore
		data["title"] = payload.Title
	}
	n.deliver(ctx, event, recipients, "request_created", data)
	return nil
}

func (n *NotificationService) handleRequestStatusChanged(ctx context.Context, event events.Event) error {
	data := n.baseData(event)
	if payload, ok := event.Payload.(events.RequestStatusChangedPayload); ok {
		data["old_status"] = string(payload.OldStatus)
		data["new_status"] = string(payload.NewStatus)
		if payload.Notes != "" {
			data["notes"] = payload.Notes
		}
	}
	n.deliver(ctx, event, nil, "request_status_changed", data)
	return nil
}

func (n *NotificationService) handleRequestAssigned(ctx context.Context, event events.Event) error {
	var recipients []string
	data := n.baseData(event)
	if payload, ok := event.Payload.(events.RequestAssignedPayload); ok {
		recipients = appendRecipient(recipients, n.staffEmail(ctx, event.TenantID, payload.AssigneeStaffID))
		data["assignee_staff_id"] = payload.AssigneeStaffID
	}
	n.deliver(ctx, event, recipients, "request_assigned", data)
	return nil
}

func (n *NotificationService) handleRequestCommentAdded(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.RequestCommentAddedPayload)
	if !ok || payload.Internal {
		return nil
	}
	data := n.baseData(event)
	data["author_kind"] = string(payload.AuthorKind)
	data["body_preview"] = payload.BodyPreview
	// The payload does not carry the customer id; sinks resolve the
	// counterparty from the request number.
	n.deliver(ctx, event, nil, "request_comment_added", data)
	return nil
}

func (n *NotificationService) handleRequestRated(ctx context.Context, event events.Event) error {
	data := n.baseData(event)
	if payload, ok := event.Payload.(events.RequestRatedPayload); ok {
		data["rating"] = payload.Rating
		if payload.Feedback != "" {
			data["feedback"] = payload.Feedback
		}
	}
	n.deliver(ctx, event, n.supervisorEmails(ctx, event.TenantID), "request_rated", data)
	return nil
}

func (n *NotificationService) deliver(ctx context.Context, event events.Event, recipients []string, template string, data map[string]any) {
	for _, sink := range n.sinks {
		if !sink.Send(ctx, string(event.Type), recipients, template, data) {
			n.logger.Warn("notification sink failed",
				zap.String("event", string(event.Type)),
				zap.String("template", template),
				zap.String("request_number", event.RequestNumber))
		}
	}
}

func (n *NotificationService) baseData(event events.Event) map[string]any {
	return map[string]any{
		"request_id":     event.RequestID,
		"request_number": event.RequestNumber,
		"tenant_id":      event.TenantID,
	}
}

func (n *NotificationService) supervisorEmails(ctx context.Context, tenantID string) []string {
	members, err := n.staff.ListActiveByRoles(ctx, tenantID, []domain.StaffRole{domain.RoleAdmin, domain.RoleSupervisor})
	if err != nil {
		n.logger.Warn("supervisor lookup failed", zap.Error(err))
		return nil
	}
	var emails []string
	for _, member := range members {
		emails = appendRecipient(emails, member.Email)
	}
	return emails
}

func (n *NotificationService) customerEmail(ctx context.Context, tenantID, customerID string) string {
	customer, err := n.customers.GetByID(ctx, tenantID, customerID)
	if err != nil {
		n.logger.Warn("customer lookup failed", zap.String("customer_id", customerID), zap.Error(err))
		return ""
	}
	return customer.Email
}

func (n *NotificationService) staffEmail(ctx context.Context, tenantID, staffID string) string {
	member, err := n.staff.GetByID(ctx, tenantID, staffID)
	if err != nil {
		n.logger.Warn("staff lookup failed", zap.String("staff_id", staffID), zap.Error(err))
		return ""
	}
	return member.Email
}

func appendRecipient(recipients []string, email string) []string {
	if strings.TrimSpace(email) == "" {
		return recipients
	}
	return append(recipients, email)
}
