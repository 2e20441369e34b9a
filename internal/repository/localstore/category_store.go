package localstore

import (
	"context"
	"database/sql"

	"github.com/spec-kit/order-dashboard/internal/domain"
	"github.com/spec-kit/order-dashboard/internal/repository"
)

type categoryStore struct {
	db *sql.DB
}

// NewCategoryStore builds the fallback category repository.
func NewCategoryStore(db *sql.DB) repository.CategoryRepository {
	return &categoryStore{db: db}
}

func (s *categoryStore) Create(ctx context.Context, category *domain.Category) error {
	_, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO categories (name) VALUES (?)`, category.Name)
	return err
}

func (s *categoryStore) Delete(ctx context.Context, name string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE name=?`, name)
	if err != nil {
		return err
	}
	return requireRows(result)
}

func (s *categoryStore) List(ctx context.Context) ([]domain.Category, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM categories ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Category
	for rows.Next() {
		var category domain.Category
		if err := rows.Scan(&category.Name); err != nil {
			return nil, err
		}
		result = append(result, category)
	}
	return result, rows.Err()
}
