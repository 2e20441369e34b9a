package dto

import "time"

// CreateOrderRequest is the payload for POST /orders.
type CreateOrderRequest struct {
	Title         string   `json:"title"`
	Type          string   `json:"type"`
	Priority      string   `json:"priority"`
	AssignedTo    string   `json:"assigned_to"`
	CustomerName  string   `json:"customer_name"`
	TicketNumber  string   `json:"ticket_number"`
	InvoiceNumber string   `json:"invoice_number"`
	Note          string   `json:"note"`
	Tasks         []string `json:"tasks"`
}

// AssignOrderRequest is the payload for POST /orders/:id/assign.
type AssignOrderRequest struct {
	Agent string `json:"agent"`
}

// UpdateDetailsRequest carries a partial details update; omitted fields
// stay untouched.
type UpdateDetailsRequest struct {
	CustomerName  *string `json:"customer_name"`
	TicketNumber  *string `json:"ticket_number"`
	InvoiceNumber *string `json:"invoice_number"`
	Note          *string `json:"note"`
}

// TaskResponse is one checklist item.
type TaskResponse struct {
	ID          string     `json:"id"`
	Label       string     `json:"label"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// OrderResponse is the full order representation.
type OrderResponse struct {
	ID            string         `json:"id"`
	Title         string         `json:"title"`
	Type          string         `json:"type"`
	Status        string         `json:"status"`
	Priority      string         `json:"priority"`
	AssignedTo    string         `json:"assigned_to,omitempty"`
	CustomerName  string         `json:"customer_name"`
	TicketNumber  string         `json:"ticket_number"`
	InvoiceNumber string         `json:"invoice_number,omitempty"`
	Note          string         `json:"note,omitempty"`
	Tasks         []TaskResponse `json:"tasks"`
	CreatedAt     time.Time      `json:"created_at"`
	CompletedAt   *time.Time     `json:"completed_at,omitempty"`
}

// ColumnResponse is one lane of the projected board.
type ColumnResponse struct {
	Title  string          `json:"title"`
	Status string          `json:"status"`
	Count  int             `json:"count"`
	Orders []OrderResponse `json:"orders"`
}

// BoardResponse is the projected kanban view plus the degraded flag.
type BoardResponse struct {
	Columns  []ColumnResponse `json:"columns"`
	Degraded bool             `json:"degraded"`
}
