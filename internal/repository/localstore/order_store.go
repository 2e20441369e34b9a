// Package localstore provides SQLite-backed implementations of the
// repository interfaces. The gateway uses them as the local fallback when
// the remote store is unreachable, and keeps them mirrored on successful
// remote writes so fallback reads stay consistent.
package localstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spec-kit/order-dashboard/internal/domain"
	"github.com/spec-kit/order-dashboard/internal/repository"
)

type orderStore struct {
	db *sql.DB
}

// NewOrderStore builds the fallback order repository.
func NewOrderStore(db *sql.DB) repository.OrderRepository {
	return &orderStore{db: db}
}

func (s *orderStore) Create(ctx context.Context, order *domain.Order) error {
	details, tasks, err := encodeOrderBlobs(order)
	if err != nil {
		return err
	}
	const query = `
        INSERT OR REPLACE INTO orders (id, title, type, status, priority, assigned_to, details, tasks, created_at, completed_at)
        VALUES (?,?,?,?,?,?,?,?,?,?)`
	_, err = s.db.ExecContext(ctx, query,
		order.ID,
		order.Title,
		order.Type,
		string(order.Status),
		string(order.Priority),
		order.AssignedTo,
		details,
		tasks,
		order.CreatedAt,
		nullableTime(order.CompletedAt),
	)
	return err
}

func (s *orderStore) Update(ctx context.Context, order *domain.Order) error {
	details, tasks, err := encodeOrderBlobs(order)
	if err != nil {
		return err
	}
	const query = `
        UPDATE orders SET title=?, type=?, status=?, priority=?, assigned_to=?,
            details=?, tasks=?, completed_at=?
        WHERE id=?`
	result, err := s.db.ExecContext(ctx, query,
		order.Title,
		order.Type,
		string(order.Status),
		string(order.Priority),
		order.AssignedTo,
		details,
		tasks,
		nullableTime(order.CompletedAt),
		order.ID,
	)
	if err != nil {
		return err
	}
	return requireRows(result)
}

func (s *orderStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM orders WHERE id=?`, id)
	if err != nil {
		return err
	}
	return requireRows(result)
}

func (s *orderStore) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	const query = `
        SELECT id, title, type, status, priority, assigned_to, details, tasks, created_at, completed_at
        FROM orders WHERE id=?`
	order, err := scanOrderRow(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return order, nil
}

func (s *orderStore) List(ctx context.Context) ([]domain.Order, error) {
	const query = `
        SELECT id, title, type, status, priority, assigned_to, details, tasks, created_at, completed_at
        FROM orders ORDER BY created_at ASC`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Order
	for rows.Next() {
		order, err := scanOrderRow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *order)
	}
	return result, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrderRow(row rowScanner) (*domain.Order, error) {
	var (
		order       domain.Order
		details     string
		tasks       string
		completedAt sql.NullTime
	)
	if err := row.Scan(
		&order.ID,
		&order.Title,
		&order.Type,
		&order.Status,
		&order.Priority,
		&order.AssignedTo,
		&details,
		&tasks,
		&order.CreatedAt,
		&completedAt,
	); err != nil {
		return nil, err
	}
	if completedAt.Valid {
		ts := completedAt.Time
		order.CompletedAt = &ts
	}
	if err := json.Unmarshal([]byte(details), &order.Details); err != nil {
		return nil, fmt.Errorf("decode order details: %w", err)
	}
	if err := json.Unmarshal([]byte(tasks), &order.Tasks); err != nil {
		return nil, fmt.Errorf("decode order tasks: %w", err)
	}
	return &order, nil
}

func encodeOrderBlobs(order *domain.Order) (string, string, error) {
	details, err := json.Marshal(order.Details)
	if err != nil {
		return "", "", fmt.Errorf("encode order details: %w", err)
	}
	tasks := order.Tasks
	if tasks == nil {
		tasks = []domain.Task{}
	}
	encoded, err := json.Marshal(tasks)
	if err != nil {
		return "", "", fmt.Errorf("encode order tasks: %w", err)
	}
	return string(details), string(encoded), nil
}

func nullableTime(ts *time.Time) any {
	if ts == nil {
		return nil
	}
	return *ts
}

func requireRows(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return repository.ErrNotFound
	}
	return nil
}
