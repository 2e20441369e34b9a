package repository

import (
	"context"
	"errors"

	"github.com/spec-kit/order-dashboard/internal/domain"
)

// ErrNotFound is returned by all repository implementations when a record
// does not exist, regardless of backing store.
var ErrNotFound = errors.New("record not found")

// OrderRepository encapsulates order persistence. Both the remote Postgres
// store and the local SQLite fallback implement it with identical semantics.
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	Update(ctx context.Context, order *domain.Order) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	List(ctx context.Context) ([]domain.Order, error)
}

// DepartmentRepository manages departments and their agents. Save upserts a
// department together with its agent roster; Rename migrates agents to the
// new name; Delete removes agents explicitly before the department.
type DepartmentRepository interface {
	Save(ctx context.Context, dept *domain.Department) error
	Rename(ctx context.Context, oldName, newName string) error
	Delete(ctx context.Context, name string) error
	DeleteAgent(ctx context.Context, name string) error
	GetByName(ctx context.Context, name string) (*domain.Department, error)
	List(ctx context.Context) ([]domain.Department, error)
}

// CategoryRepository manages the order type catalog.
type CategoryRepository interface {
	Create(ctx context.Context, category *domain.Category) error
	Delete(ctx context.Context, name string) error
	List(ctx context.Context) ([]domain.Category, error)
}
