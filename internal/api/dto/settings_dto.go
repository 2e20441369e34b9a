package dto

// CreateDepartmentRequest is the payload for POST /departments.
type CreateDepartmentRequest struct {
	Name string `json:"name"`
}

// RenameDepartmentRequest is the payload for PUT /departments/:name.
type RenameDepartmentRequest struct {
	Name string `json:"name"`
}

// CreateAgentRequest is the payload for POST /agents.
type CreateAgentRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Extension  string `json:"extension"`
	Department string `json:"department"`
}

// CreateCategoryRequest is the payload for POST /categories.
type CreateCategoryRequest struct {
	Name string `json:"name"`
}

// AgentResponse is one agent with its derived counters.
type AgentResponse struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Extension       string `json:"extension"`
	CompletedOrders int    `json:"completed_orders"`
	TotalOrders     int    `json:"total_orders"`
}

// DepartmentResponse is one department with its roster.
type DepartmentResponse struct {
	Name   string          `json:"name"`
	Agents []AgentResponse `json:"agents"`
}

// StatsResponse is the dashboard stats snapshot.
type StatsResponse struct {
	TotalOrders     int `json:"total_orders"`
	CompletedOrders int `json:"completed_orders"`
	PendingOrders   int `json:"pending_orders"`
}
