package service

import (
	"context"
	"errors"
	"strings"

	"github.com/spec-kit/order-dashboard/internal/domain"
	"github.com/spec-kit/order-dashboard/internal/repository"
	apperrors "github.com/spec-kit/order-dashboard/pkg/util/errorutil"
)

// CategoryStore is the gateway slice for the order type catalog.
type CategoryStore interface {
	ListCategories(ctx context.Context) ([]domain.Category, error)
	CreateCategory(ctx context.Context, category *domain.Category) error
	DeleteCategory(ctx context.Context, name string) error
}

// CategoryService manages the order type catalog behind settings.
type CategoryService struct {
	store CategoryStore
}

// NewCategoryService constructs the service.
func NewCategoryService(store CategoryStore) *CategoryService {
	return &CategoryService{store: store}
}

// List returns all categories.
func (s *CategoryService) List(ctx context.Context) ([]domain.Category, error) {
	cats, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return cats, nil
}

// Create adds a category.
func (s *CategoryService) Create(ctx context.Context, name string) (*domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.NewValidationError("category name required", nil)
	}
	category := &domain.Category{Name: name}
	err := s.store.CreateCategory(ctx, category)
	if err != nil && !apperrors.IsRetryable(err) {
		return nil, apperrors.MapError(err)
	}
	return category, err
}

// Delete removes a category; unknown names are a no-op.
func (s *CategoryService) Delete(ctx context.Context, name string) error {
	err := s.store.DeleteCategory(ctx, name)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil && !apperrors.IsRetryable(err) {
		return apperrors.MapError(err)
	}
	return err
}
