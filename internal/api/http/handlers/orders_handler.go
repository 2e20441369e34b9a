package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/order-dashboard/internal/api/dto"
	"github.com/spec-kit/order-dashboard/internal/domain"
	"github.com/spec-kit/order-dashboard/internal/gateway"
	"github.com/spec-kit/order-dashboard/internal/projection"
	"github.com/spec-kit/order-dashboard/internal/service"
	apperrors "github.com/spec-kit/order-dashboard/pkg/util/errorutil"
)

// OrdersHandler exposes order lifecycle and board endpoints.
type OrdersHandler struct {
	orders *service.OrderService
	gw     *gateway.Gateway
}

// NewOrdersHandler constructs handler.
func NewOrdersHandler(orders *service.OrderService, gw *gateway.Gateway) *OrdersHandler {
	return &OrdersHandler{orders: orders, gw: gw}
}

// CreateOrder POST /orders.
func (h *OrdersHandler) CreateOrder(c *fiber.Ctx) error {
	var req dto.CreateOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	input := service.OrderCreateInput{
		Title:      req.Title,
		Type:       req.Type,
		Priority:   domain.OrderPriority(req.Priority),
		AssignedTo: req.AssignedTo,
		Details: domain.OrderDetails{
			CustomerName:  req.CustomerName,
			TicketNumber:  req.TicketNumber,
			InvoiceNumber: req.InvoiceNumber,
			Note:          req.Note,
		},
		TaskLabels: req.Tasks,
	}
	order, err := h.orders.Create(c.UserContext(), input)
	if err != nil && !apperrors.IsRetryable(err) {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"data":     orderResponse(order),
		"degraded": err != nil,
	})
}

// ListOrders GET /orders.
func (h *OrdersHandler) ListOrders(c *fiber.Ctx) error {
	orders, err := h.orders.List(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.OrderResponse, 0, len(orders))
	for i := range orders {
		items = append(items, orderResponse(&orders[i]))
	}
	return c.JSON(fiber.Map{"data": items, "degraded": h.gw.Degraded()})
}

// GetBoard GET /orders/board renders the filtered, sorted, bucketed view.
func (h *OrdersHandler) GetBoard(c *fiber.Ctx) error {
	orders, err := h.orders.List(c.UserContext())
	if err != nil {
		return err
	}

	state := parseViewState(c)
	columns := projection.Project(orders, state)

	resp := dto.BoardResponse{Degraded: h.gw.Degraded()}
	for _, column := range columns {
		col := dto.ColumnResponse{
			Title:  column.Title,
			Status: string(column.Status),
			Count:  len(column.Orders),
			Orders: make([]dto.OrderResponse, 0, len(column.Orders)),
		}
		for i := range column.Orders {
			col.Orders = append(col.Orders, orderResponse(&column.Orders[i]))
		}
		resp.Columns = append(resp.Columns, col)
	}
	return c.JSON(fiber.Map{"data": resp})
}

// GetOrder GET /orders/:id.
func (h *OrdersHandler) GetOrder(c *fiber.Ctx) error {
	order, err := h.orders.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": orderResponse(order)})
}

// AssignOrder POST /orders/:id/assign.
func (h *OrdersHandler) AssignOrder(c *fiber.Ctx) error {
	var req dto.AssignOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	order, err := h.orders.Assign(c.UserContext(), c.Params("id"), req.Agent)
	if err != nil && !apperrors.IsRetryable(err) {
		return err
	}
	return c.JSON(fiber.Map{"data": orderResponse(order), "degraded": err != nil})
}

// ToggleTask POST /orders/:id/tasks/:taskId/toggle.
func (h *OrdersHandler) ToggleTask(c *fiber.Ctx) error {
	order, err := h.orders.ToggleTask(c.UserContext(), c.Params("id"), c.Params("taskId"))
	if err != nil && !apperrors.IsRetryable(err) {
		return err
	}
	return c.JSON(fiber.Map{"data": orderResponse(order), "degraded": err != nil})
}

// UpdateDetails PATCH /orders/:id/details.
func (h *OrdersHandler) UpdateDetails(c *fiber.Ctx) error {
	var req dto.UpdateDetailsRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	patch := service.DetailsPatch{
		CustomerName:  req.CustomerName,
		TicketNumber:  req.TicketNumber,
		InvoiceNumber: req.InvoiceNumber,
		Note:          req.Note,
	}
	order, err := h.orders.UpdateDetails(c.UserContext(), c.Params("id"), patch)
	if err != nil && !apperrors.IsRetryable(err) {
		return err
	}
	return c.JSON(fiber.Map{"data": orderResponse(order), "degraded": err != nil})
}

// DeleteOrder DELETE /orders/:id.
func (h *OrdersHandler) DeleteOrder(c *fiber.Ctx) error {
	err := h.orders.Delete(c.UserContext(), c.Params("id"))
	if err != nil && !apperrors.IsRetryable(err) {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"deleted": true}, "degraded": err != nil})
}

func parseViewState(c *fiber.Ctx) projection.State {
	state := projection.DefaultState()

	if term := c.Query("search"); term != "" {
		state.Search.Term = term
	}
	switch projection.SearchField(c.Query("search_field")) {
	case projection.SearchByAgent:
		state.Search.Field = projection.SearchByAgent
	case projection.SearchByTicket:
		state.Search.Field = projection.SearchByTicket
	case projection.SearchByCustomer:
		state.Search.Field = projection.SearchByCustomer
	}

	state.Filters.CustomerName = c.Query("customer_name")
	state.Filters.AssignedTo = c.Query("assigned_to")
	state.Filters.Status.Unassigned = c.QueryBool("unassigned", true)
	state.Filters.Status.InProgress = c.QueryBool("in_progress", true)
	state.Filters.Status.Completed = c.QueryBool("completed", true)

	if raw := c.Query("priority"); raw != "" {
		state.Filters.Priority = state.Filters.Priority[:0]
		for _, part := range strings.Split(raw, ",") {
			switch domain.OrderPriority(strings.TrimSpace(part)) {
			case domain.OrderPriorityLow:
				state.Filters.Priority = append(state.Filters.Priority, domain.OrderPriorityLow)
			case domain.OrderPriorityMedium:
				state.Filters.Priority = append(state.Filters.Priority, domain.OrderPriorityMedium)
			case domain.OrderPriorityHigh:
				state.Filters.Priority = append(state.Filters.Priority, domain.OrderPriorityHigh)
			}
		}
	}

	switch projection.SortOption(c.Query("sort_by")) {
	case projection.SortByAgent:
		state.SortBy = projection.SortByAgent
	case projection.SortByDate:
		state.SortBy = projection.SortByDate
	case projection.SortByTime:
		state.SortBy = projection.SortByTime
	case projection.SortByTicket:
		state.SortBy = projection.SortByTicket
	}
	if c.Query("sort_direction") == string(projection.SortDesc) {
		state.SortDirection = projection.SortDesc
	}

	state.ShowCompleted = c.QueryBool("show_completed", false)
	return state
}

func orderResponse(order *domain.Order) dto.OrderResponse {
	resp := dto.OrderResponse{
		ID:            order.ID,
		Title:         order.Title,
		Type:          order.Type,
		Status:        string(order.Status),
		Priority:      string(order.Priority),
		AssignedTo:    order.AssignedTo,
		CustomerName:  order.Details.CustomerName,
		TicketNumber:  order.Details.TicketNumber,
		InvoiceNumber: order.Details.InvoiceNumber,
		Note:          order.Details.Note,
		Tasks:         make([]dto.TaskResponse, 0, len(order.Tasks)),
		CreatedAt:     order.CreatedAt,
		CompletedAt:   order.CompletedAt,
	}
	for _, task := range order.Tasks {
		resp.Tasks = append(resp.Tasks, dto.TaskResponse{
			ID:          task.ID,
			Label:       task.Label,
			Completed:   task.Completed,
			CompletedAt: task.CompletedAt,
		})
	}
	return resp
}
