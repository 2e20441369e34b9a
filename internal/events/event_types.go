package events

import (
	"time"

	"github.com/spec-kit/order-dashboard/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventOrderCreated       EventType = "order_created"
	EventOrderAssigned      EventType = "order_assigned"
	EventOrderTaskToggled   EventType = "order_task_toggled"
	EventOrderCompleted     EventType = "order_completed"
	EventOrderDeleted       EventType = "order_deleted"
	EventDepartmentsChanged EventType = "departments_changed"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	OrderID   string      `json:"order_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// OrderCreatedPayload payload.
type OrderCreatedPayload struct {
	Title      string               `json:"title"`
	Type       string               `json:"order_type"`
	Priority   domain.OrderPriority `json:"priority"`
	AssignedTo string               `json:"assigned_to,omitempty"`
}

// OrderAssignedPayload payload.
type OrderAssignedPayload struct {
	AssignedTo string             `json:"assigned_to"`
	OldStatus  domain.OrderStatus `json:"old_status"`
}

// OrderTaskToggledPayload payload.
type OrderTaskToggledPayload struct {
	TaskID    string             `json:"task_id"`
	Completed bool               `json:"completed"`
	NewStatus domain.OrderStatus `json:"new_status"`
}

// OrderCompletedPayload payload.
type OrderCompletedPayload struct {
	CompletedAt time.Time `json:"completed_at"`
	AssignedTo  string    `json:"assigned_to,omitempty"`
}

// OrderDeletedPayload payload.
type OrderDeletedPayload struct {
	Status domain.OrderStatus `json:"status"`
}
