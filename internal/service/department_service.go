package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/order-dashboard/internal/domain"
	"github.com/spec-kit/order-dashboard/internal/events"
	"github.com/spec-kit/order-dashboard/internal/repository"
	apperrors "github.com/spec-kit/order-dashboard/pkg/util/errorutil"
)

// DepartmentStore is the slice of the persistence gateway the settings
// services depend on.
type DepartmentStore interface {
	ListDepartments(ctx context.Context) ([]domain.Department, error)
	GetDepartment(ctx context.Context, name string) (*domain.Department, error)
	SaveDepartment(ctx context.Context, dept *domain.Department) error
	RenameDepartment(ctx context.Context, oldName, newName string) error
	DeleteDepartment(ctx context.Context, name string) error
	DeleteAgent(ctx context.Context, name string) error
}

// DepartmentService manages departments and agents behind the settings
// screens. Deleting a department removes its agents explicitly; orders
// assigned to those agents keep their assignee string (the dangling
// reference is the documented policy, not cleaned up silently).
type DepartmentService struct {
	store      DepartmentStore
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// AgentInput describes agent creation payload.
type AgentInput struct {
	Name       string
	Email      string
	Extension  string
	Department string
}

// NewDepartmentService constructs the service.
func NewDepartmentService(store DepartmentStore, dispatcher events.Dispatcher, logger *zap.Logger) *DepartmentService {
	return &DepartmentService{store: store, dispatcher: dispatcher, logger: logger}
}

// List returns all departments with their agent rosters.
func (s *DepartmentService) List(ctx context.Context) ([]domain.Department, error) {
	depts, err := s.store.ListDepartments(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return depts, nil
}

// Create adds an empty department.
func (s *DepartmentService) Create(ctx context.Context, name string) (*domain.Department, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.NewValidationError("department name required", nil)
	}
	if _, err := s.store.GetDepartment(ctx, name); err == nil {
		return nil, apperrors.NewConflict("department already exists", map[string]any{"name": name})
	} else if !errors.Is(err, repository.ErrNotFound) && !apperrors.IsNotFound(err) {
		return nil, apperrors.MapError(err)
	}

	dept := &domain.Department{Name: name, Agents: []domain.Agent{}}
	err := s.store.SaveDepartment(ctx, dept)
	if err != nil && !apperrors.IsRetryable(err) {
		return nil, apperrors.MapError(err)
	}
	if err != nil {
		s.logger.Warn("department write degraded to local store", zap.String("name", name))
	}
	s.publishChanged(ctx)
	return dept, err
}

// Rename changes a department's name, migrating its agents so none are
// orphaned.
func (s *DepartmentService) Rename(ctx context.Context, oldName, newName string) error {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return apperrors.NewValidationError("department name required", nil)
	}
	if newName == oldName {
		return nil
	}
	err := s.store.RenameDepartment(ctx, oldName, newName)
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound("department", map[string]any{"name": oldName})
	}
	if err != nil && !apperrors.IsRetryable(err) {
		return apperrors.MapError(err)
	}
	s.publishChanged(ctx)
	return err
}

// Delete removes a department and its agents. Agent removal is explicit,
// never an implicit cascade side effect.
func (s *DepartmentService) Delete(ctx context.Context, name string) error {
	err := s.store.DeleteDepartment(ctx, name)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil && !apperrors.IsRetryable(err) {
		return apperrors.MapError(err)
	}
	s.publishChanged(ctx)
	return err
}

// AddAgent creates an agent inside a department. Name, email and
// department are required and rejected before any persistence call.
func (s *DepartmentService) AddAgent(ctx context.Context, input AgentInput) (*domain.Agent, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.TrimSpace(input.Email)
	input.Department = strings.TrimSpace(input.Department)
	if input.Name == "" || input.Email == "" || input.Department == "" {
		return nil, apperrors.NewValidationError("name, email, department required", nil)
	}

	dept, err := s.store.GetDepartment(ctx, input.Department)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("department", map[string]any{"name": input.Department})
		}
		return nil, apperrors.MapError(err)
	}
	if dept.AgentByName(input.Name) != nil {
		return nil, apperrors.NewConflict("agent already exists", map[string]any{"name": input.Name})
	}

	agent := domain.Agent{
		Name:      input.Name,
		Email:     input.Email,
		Extension: input.Extension,
	}
	dept.Agents = append(dept.Agents, agent)
	saveErr := s.store.SaveDepartment(ctx, dept)
	if saveErr != nil && !apperrors.IsRetryable(saveErr) {
		return nil, apperrors.MapError(saveErr)
	}
	s.publishChanged(ctx)
	return &agent, saveErr
}

// DeleteAgent removes an agent by name from whichever department holds it.
func (s *DepartmentService) DeleteAgent(ctx context.Context, name string) error {
	err := s.store.DeleteAgent(ctx, name)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil && !apperrors.IsRetryable(err) {
		return apperrors.MapError(err)
	}
	s.publishChanged(ctx)
	return err
}

func (s *DepartmentService) publishChanged(ctx context.Context) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventDepartmentsChanged,
		Timestamp: time.Now(),
	})
}
