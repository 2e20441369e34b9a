package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/order-dashboard/internal/api/dto"
	"github.com/spec-kit/order-dashboard/internal/domain"
	"github.com/spec-kit/order-dashboard/internal/service"
	apperrors "github.com/spec-kit/order-dashboard/pkg/util/errorutil"
)

// SettingsHandler exposes department, agent and category CRUD.
type SettingsHandler struct {
	departments *service.DepartmentService
	categories  *service.CategoryService
}

// NewSettingsHandler constructs handler.
func NewSettingsHandler(departments *service.DepartmentService, categories *service.CategoryService) *SettingsHandler {
	return &SettingsHandler{departments: departments, categories: categories}
}

// ListDepartments GET /departments.
func (h *SettingsHandler) ListDepartments(c *fiber.Ctx) error {
	depts, err := h.departments.List(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.DepartmentResponse, 0, len(depts))
	for i := range depts {
		items = append(items, departmentResponse(&depts[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// CreateDepartment POST /departments.
func (h *SettingsHandler) CreateDepartment(c *fiber.Ctx) error {
	var req dto.CreateDepartmentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	dept, err := h.departments.Create(c.UserContext(), req.Name)
	if err != nil && !apperrors.IsRetryable(err) {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"data":     departmentResponse(dept),
		"degraded": err != nil,
	})
}

// RenameDepartment PUT /departments/:name.
func (h *SettingsHandler) RenameDepartment(c *fiber.Ctx) error {
	var req dto.RenameDepartmentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	err := h.departments.Rename(c.UserContext(), c.Params("name"), req.Name)
	if err != nil && !apperrors.IsRetryable(err) {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"renamed": true}, "degraded": err != nil})
}

// DeleteDepartment DELETE /departments/:name.
func (h *SettingsHandler) DeleteDepartment(c *fiber.Ctx) error {
	err := h.departments.Delete(c.UserContext(), c.Params("name"))
	if err != nil && !apperrors.IsRetryable(err) {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"deleted": true}, "degraded": err != nil})
}

// CreateAgent POST /agents.
func (h *SettingsHandler) CreateAgent(c *fiber.Ctx) error {
	var req dto.CreateAgentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	agent, err := h.departments.AddAgent(c.UserContext(), service.AgentInput{
		Name:       req.Name,
		Email:      req.Email,
		Extension:  req.Extension,
		Department: req.Department,
	})
	if err != nil && !apperrors.IsRetryable(err) {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"data":     agentResponse(agent),
		"degraded": err != nil,
	})
}

// DeleteAgent DELETE /agents/:name.
func (h *SettingsHandler) DeleteAgent(c *fiber.Ctx) error {
	err := h.departments.DeleteAgent(c.UserContext(), c.Params("name"))
	if err != nil && !apperrors.IsRetryable(err) {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"deleted": true}, "degraded": err != nil})
}

// ListCategories GET /categories.
func (h *SettingsHandler) ListCategories(c *fiber.Ctx) error {
	cats, err := h.categories.List(c.UserContext())
	if err != nil {
		return err
	}
	names := make([]string, 0, len(cats))
	for _, cat := range cats {
		names = append(names, cat.Name)
	}
	return c.JSON(fiber.Map{"data": names})
}

// CreateCategory POST /categories.
func (h *SettingsHandler) CreateCategory(c *fiber.Ctx) error {
	var req dto.CreateCategoryRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	category, err := h.categories.Create(c.UserContext(), req.Name)
	if err != nil && !apperrors.IsRetryable(err) {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"data":     fiber.Map{"name": category.Name},
		"degraded": err != nil,
	})
}

// DeleteCategory DELETE /categories/:name.
func (h *SettingsHandler) DeleteCategory(c *fiber.Ctx) error {
	err := h.categories.Delete(c.UserContext(), c.Params("name"))
	if err != nil && !apperrors.IsRetryable(err) {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"deleted": true}, "degraded": err != nil})
}

func departmentResponse(dept *domain.Department) dto.DepartmentResponse {
	resp := dto.DepartmentResponse{
		Name:   dept.Name,
		Agents: make([]dto.AgentResponse, 0, len(dept.Agents)),
	}
	for i := range dept.Agents {
		resp.Agents = append(resp.Agents, agentResponse(&dept.Agents[i]))
	}
	return resp
}

func agentResponse(agent *domain.Agent) dto.AgentResponse {
	return dto.AgentResponse{
		Name:            agent.Name,
		Email:           agent.Email,
		Extension:       agent.Extension,
		CompletedOrders: agent.CompletedOrders,
		TotalOrders:     agent.TotalOrders,
	}
}
