package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/order-dashboard/internal/domain"
)

type orderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository instantiates the Postgres-backed order repository.
func NewOrderRepository(pool *pgxpool.Pool) OrderRepository {
	return &orderRepository{pool: pool}
}

func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	details, tasks, err := marshalOrderBlobs(order)
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO orders (id, title, type, status, priority, assigned_to, details, tasks, created_at, completed_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`
	_, err = r.pool.Exec(ctx, query,
		order.ID,
		order.Title,
		order.Type,
		order.Status,
		order.Priority,
		order.AssignedTo,
		details,
		tasks,
		order.CreatedAt,
		order.CompletedAt,
	)
	return err
}

func (r *orderRepository) Update(ctx context.Context, order *domain.Order) error {
	details, tasks, err := marshalOrderBlobs(order)
	if err != nil {
		return err
	}
	const query = `
        UPDATE orders SET title=$1, type=$2, status=$3, priority=$4, assigned_to=$5,
            details=$6, tasks=$7, completed_at=$8
        WHERE id=$9`
	cmd, err := r.pool.Exec(ctx, query,
		order.Title,
		order.Type,
		order.Status,
		order.Priority,
		order.AssignedTo,
		details,
		tasks,
		order.CompletedAt,
		order.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *orderRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM orders WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *orderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	const query = `
        SELECT id, title, type, status, priority, assigned_to, details, tasks, created_at, completed_at
        FROM orders WHERE id=$1`
	row := r.pool.QueryRow(ctx, query, id)
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return order, nil
}

func (r *orderRepository) List(ctx context.Context) ([]domain.Order, error) {
	const query = `
        SELECT id, title, type, status, priority, assigned_to, details, tasks, created_at, completed_at
        FROM orders ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
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

func scanOrder(row rowScanner) (*domain.Order, error) {
	var (
		order   domain.Order
		details []byte
		tasks   []byte
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
		&order.CompletedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(details, &order.Details); err != nil {
		return nil, fmt.Errorf("decode order details: %w", err)
	}
	if err := json.Unmarshal(tasks, &order.Tasks); err != nil {
		return nil, fmt.Errorf("decode order tasks: %w", err)
	}
	return &order, nil
}

func marshalOrderBlobs(order *domain.Order) ([]byte, []byte, error) {
	details, err := json.Marshal(order.Details)
	if err != nil {
		return nil, nil, fmt.Errorf("encode order details: %w", err)
	}
	tasks := order.Tasks
	if tasks == nil {
		tasks = []domain.Task{}
	}
	encoded, err := json.Marshal(tasks)
	if err != nil {
		return nil, nil, fmt.Errorf("encode order tasks: %w", err)
	}
	return details, encoded, nil
}
