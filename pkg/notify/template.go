// Package notify formats, persists, and routes operator notifications.
// Notifications are immutable once emitted; only the read_by set grows.
package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/YashMmodi-7504/National-Logistics-Control-Tower-sub000/pkg/lifecycle"
)

// Severity grades a notification.
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityUrgent   Severity = "URGENT"
	SeverityCritical Severity = "CRITICAL"
)

// Notification is an immutable message to a set of roles. ReadBy is the only
// field that changes after emission, and only by set-insert.
type Notification struct {
	ID           string           `json:"id"`
	Timestamp    time.Time        `json:"timestamp"`
	ShipmentID   string           `json:"shipment_id"`
	TemplateName string           `json:"template_name"`
	Message      string           `json:"message"`
	Severity     Severity         `json:"severity"`
	Recipients   []lifecycle.Role `json:"recipients"`
	Metadata     map[string]any   `json:"metadata,omitempty"`
	ReadBy       []lifecycle.Role `json:"read_by"`
}

// Template declares a notification shape. Placeholders in MessageTemplate use
// {key} syntax and are filled from the emission context.
type Template struct {
	MessageTemplate string
	Severity        Severity
	RecipientRoles  []lifecycle.Role
}

// Render substitutes context values into the message template. Unknown
// placeholders are left visible so a template bug is obvious in the output.
func (t Template) Render(ctx map[string]string) string {
	msg := t.MessageTemplate
	for k, v := range ctx {
		msg = strings.ReplaceAll(msg, "{"+k+"}", v)
	}
	return msg
}

// Well-known template names.
const (
	TmplShipmentCreated     = "SHIPMENT_CREATED"
	TmplManagerApproved     = "MANAGER_APPROVED"
	TmplManagerOnHold       = "MANAGER_ON_HOLD"
	TmplHoldForReview       = "HOLD_FOR_REVIEW"
	TmplOverrideApplied     = "OVERRIDE_APPLIED"
	TmplInTransit           = "IN_TRANSIT"
	TmplReceiverAckToSender = "RECEIVER_ACK_TO_SENDER"
	TmplReceiverAckDelayed  = "RECEIVER_ACK_DELAYED"
	TmplOutForDelivery      = "OUT_FOR_DELIVERY"
	TmplDeliveryFailed      = "DELIVERY_FAILED"
	TmplDelivered           = "DELIVERED"
	TmplCancelled           = "CANCELLED"
	TmplCorridorAlert       = "CORRIDOR_ALERT"
)

// Registry maps template names to templates.
type Registry struct {
	templates map[string]Template
}

// NewRegistry returns a registry preloaded with the standard templates.
func NewRegistry() *Registry {
	return &Registry{templates: map[string]Template{
		TmplShipmentCreated: {
			MessageTemplate: "Shipment {shipment_id} created: {source} to {destination}.",
			Severity:        SeverityInfo,
			RecipientRoles:  []lifecycle.Role{lifecycle.RoleSenderManager},
		},
		TmplManagerApproved: {
			MessageTemplate: "Shipment {shipment_id} approved by manager.",
			Severity:        SeverityInfo,
			RecipientRoles:  []lifecycle.Role{lifecycle.RoleSender, lifecycle.RoleSenderSupervisor},
		},
		TmplManagerOnHold: {
			MessageTemplate: "Shipment {shipment_id} placed on hold by manager.",
			Severity:        SeverityWarning,
			RecipientRoles:  []lifecycle.Role{lifecycle.RoleSender},
		},
		TmplHoldForReview: {
			MessageTemplate: "Shipment {shipment_id} flagged for review.",
			Severity:        SeverityWarning,
			RecipientRoles:  []lifecycle.Role{lifecycle.RoleSenderManager, lifecycle.RoleSenderSupervisor, lifecycle.RoleCOO},
		},
		TmplOverrideApplied: {
			MessageTemplate: "Executive override applied to shipment {shipment_id}.",
			Severity:        SeverityUrgent,
			RecipientRoles:  []lifecycle.Role{lifecycle.RoleSenderManager, lifecycle.RoleCOO},
		},
		TmplInTransit: {
			MessageTemplate: "Shipment {shipment_id} departed on corridor {corridor}.",
			Severity:        SeverityInfo,
			RecipientRoles:  []lifecycle.Role{lifecycle.RoleReceiverManager, lifecycle.RoleWarehouseManager},
		},
		TmplReceiverAckToSender: {
			MessageTemplate: "Receiver acknowledged shipment {shipment_id}.",
			Severity:        SeverityInfo,
			RecipientRoles:  []lifecycle.Role{lifecycle.RoleSender, lifecycle.RoleSenderManager},
		},
		TmplReceiverAckDelayed: {
			MessageTemplate: "Shipment {shipment_id} acknowledged late: {hours_elapsed}h elapsed against SLA.",
			Severity:        SeverityUrgent,
			RecipientRoles:  []lifecycle.Role{lifecycle.RoleSenderManager, lifecycle.RoleCOO},
		},
		TmplOutForDelivery: {
			MessageTemplate: "Shipment {shipment_id} out for delivery.",
			Severity:        SeverityInfo,
			RecipientRoles:  []lifecycle.Role{lifecycle.RoleReceiverManager},
		},
		TmplDeliveryFailed: {
			MessageTemplate: "Delivery failed for shipment {shipment_id}: {reason}.",
			Severity:        SeverityUrgent,
			RecipientRoles:  []lifecycle.Role{lifecycle.RoleWarehouseManager, lifecycle.RoleSenderManager},
		},
		TmplDelivered: {
			MessageTemplate: "Shipment {shipment_id} delivered.",
			Severity:        SeverityInfo,
			RecipientRoles:  []lifecycle.Role{lifecycle.RoleSender, lifecycle.RoleSenderManager},
		},
		TmplCancelled: {
			MessageTemplate: "Shipment {shipment_id} cancelled.",
			Severity:        SeverityWarning,
			RecipientRoles:  []lifecycle.Role{lifecycle.RoleSender, lifecycle.RoleSenderManager, lifecycle.RoleReceiverManager},
		},
		TmplCorridorAlert: {
			MessageTemplate: "Corridor {corridor} breach risk {fused}: {reason}.",
			Severity:        SeverityCritical,
			RecipientRoles:  []lifecycle.Role{lifecycle.RoleCOO, lifecycle.RoleSenderSupervisor},
		},
	}}
}

// Register adds or replaces a template.
func (r *Registry) Register(name string, t Template) {
	r.templates[name] = t
}

// Lookup returns the template for name.
func (r *Registry) Lookup(name string) (Template, error) {
	t, ok := r.templates[name]
	if !ok {
		return Template{}, fmt.Errorf("unknown notification template %q", name)
	}
	return t, nil
}
