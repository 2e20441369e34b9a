package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/order-dashboard/internal/domain"
)

type departmentRepository struct {
	pool *pgxpool.Pool
}

// NewDepartmentRepository builds the Postgres-backed department repository.
func NewDepartmentRepository(pool *pgxpool.Pool) DepartmentRepository {
	return &departmentRepository{pool: pool}
}

func (r *departmentRepository) Save(ctx context.Context, dept *domain.Department) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const deptQuery = `
        INSERT INTO departments (name) VALUES ($1)
        ON CONFLICT (name) DO NOTHING`
	if _, err := tx.Exec(ctx, deptQuery, dept.Name); err != nil {
		return err
	}

	const agentQuery = `
        INSERT INTO agents (name, department_name, email, extension, completed_orders, total_orders)
        VALUES ($1,$2,$3,$4,$5,$6)
        ON CONFLICT (name) DO UPDATE SET
            department_name=EXCLUDED.department_name,
            email=EXCLUDED.email,
            extension=EXCLUDED.extension,
            completed_orders=EXCLUDED.completed_orders,
            total_orders=EXCLUDED.total_orders`
	for _, agent := range dept.Agents {
		if _, err := tx.Exec(ctx, agentQuery,
			agent.Name,
			dept.Name,
			agent.Email,
			agent.Extension,
			agent.CompletedOrders,
			agent.TotalOrders,
		); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *departmentRepository) Rename(ctx context.Context, oldName, newName string) error {
	// agents.department_name follows via ON UPDATE CASCADE
	cmd, err := r.pool.Exec(ctx, `UPDATE departments SET name=$1 WHERE name=$2`, newName, oldName)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *departmentRepository) Delete(ctx context.Context, name string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	// agents removed explicitly, not left to cascade semantics
	if _, err := tx.Exec(ctx, `DELETE FROM agents WHERE department_name=$1`, name); err != nil {
		return err
	}
	cmd, err := tx.Exec(ctx, `DELETE FROM departments WHERE name=$1`, name)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}

	return tx.Commit(ctx)
}

func (r *departmentRepository) DeleteAgent(ctx context.Context, name string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM agents WHERE name=$1`, name)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *departmentRepository) GetByName(ctx context.Context, name string) (*domain.Department, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM departments WHERE name=$1)`, name).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrNotFound
	}

	dept := &domain.Department{Name: name, Agents: []domain.Agent{}}
	rows, err := r.pool.Query(ctx, `
        SELECT name, email, extension, completed_orders, total_orders
        FROM agents WHERE department_name=$1 ORDER BY name ASC`, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var agent domain.Agent
		if err := rows.Scan(&agent.Name, &agent.Email, &agent.Extension, &agent.CompletedOrders, &agent.TotalOrders); err != nil {
			return nil, err
		}
		dept.Agents = append(dept.Agents, agent)
	}
	return dept, rows.Err()
}

func (r *departmentRepository) List(ctx context.Context) ([]domain.Department, error) {
	deptRows, err := r.pool.Query(ctx, `SELECT name FROM departments ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer deptRows.Close()

	var result []domain.Department
	for deptRows.Next() {
		var dept domain.Department
		if err := deptRows.Scan(&dept.Name); err != nil {
			return nil, err
		}
		dept.Agents = []domain.Agent{}
		result = append(result, dept)
	}
	if err := deptRows.Err(); err != nil {
		return nil, err
	}

	agentRows, err := r.pool.Query(ctx, `
        SELECT name, department_name, email, extension, completed_orders, total_orders
        FROM agents ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer agentRows.Close()

	byName := make(map[string]int, len(result))
	for i, dept := range result {
		byName[dept.Name] = i
	}
	for agentRows.Next() {
		var (
			agent    domain.Agent
			deptName string
		)
		if err := agentRows.Scan(&agent.Name, &deptName, &agent.Email, &agent.Extension, &agent.CompletedOrders, &agent.TotalOrders); err != nil {
			return nil, err
		}
		if i, ok := byName[deptName]; ok {
			result[i].Agents = append(result[i].Agents, agent)
		}
	}
	return result, agentRows.Err()
}
