package domain

import "time"

// OrderStatus enumerates lifecycle states for orders.
type OrderStatus string

const (
	OrderStatusUnassigned OrderStatus = "unassigned"
	OrderStatusInProgress OrderStatus = "in-progress"
	OrderStatusCompleted  OrderStatus = "completed"
)

// OrderPriority enumerates urgency levels.
type OrderPriority string

const (
	OrderPriorityLow    OrderPriority = "low"
	OrderPriorityMedium OrderPriority = "medium"
	OrderPriorityHigh   OrderPriority = "high"
)

// OrderDetails holds customer-facing fields attached to an order.
type OrderDetails struct {
	CustomerName  string `json:"customer_name"`
	TicketNumber  string `json:"ticket_number"`
	InvoiceNumber string `json:"invoice_number,omitempty"`
	Note          string `json:"note,omitempty"`
}

// Task is a single checklist item belonging to an order.
type Task struct {
	ID          string     `json:"id"`
	Label       string     `json:"label"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Order is the aggregate for tracked work items. AssignedTo is empty when
// the order is unassigned.
type Order struct {
	ID          string
	Title       string
	Type        string
	Status      OrderStatus
	Priority    OrderPriority
	AssignedTo  string
	Details     OrderDetails
	Tasks       []Task
	CreatedAt   time.Time
	CompletedAt *time.Time
}

// AllTasksCompleted reports whether every task on the order is done. An
// order with no tasks counts as not fully completed so that freshly created
// orders do not jump straight to completed.
func (o *Order) AllTasksCompleted() bool {
	if len(o.Tasks) == 0 {
		return false
	}
	for _, task := range o.Tasks {
		if !task.Completed {
			return false
		}
	}
	return true
}

// TaskByID returns a pointer into the order's task slice, or nil.
func (o *Order) TaskByID(taskID string) *Task {
	for i := range o.Tasks {
		if o.Tasks[i].ID == taskID {
			return &o.Tasks[i]
		}
	}
	return nil
}

// Clone returns a deep copy of the order. The lifecycle engine hands clones
// to callers so cached state is never aliased.
func (o *Order) Clone() Order {
	dup := *o
	if o.CompletedAt != nil {
		ts := *o.CompletedAt
		dup.CompletedAt = &ts
	}
	dup.Tasks = make([]Task, len(o.Tasks))
	for i, task := range o.Tasks {
		dup.Tasks[i] = task
		if task.CompletedAt != nil {
			ts := *task.CompletedAt
			dup.Tasks[i].CompletedAt = &ts
		}
	}
	return dup
}
