package localstore

import (
	"context"
	"database/sql"

	"github.com/spec-kit/order-dashboard/internal/domain"
	"github.com/spec-kit/order-dashboard/internal/repository"
)

type departmentStore struct {
	db *sql.DB
}

// NewDepartmentStore builds the fallback department repository.
func NewDepartmentStore(db *sql.DB) repository.DepartmentRepository {
	return &departmentStore{db: db}
}

func (s *departmentStore) Save(ctx context.Context, dept *domain.Department) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO departments (name) VALUES (?)`, dept.Name); err != nil {
		return err
	}

	const agentQuery = `
        INSERT OR REPLACE INTO agents (name, department_name, email, extension, completed_orders, total_orders)
        VALUES (?,?,?,?,?,?)`
	for _, agent := range dept.Agents {
		if _, err := tx.ExecContext(ctx, agentQuery,
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

	return tx.Commit()
}

func (s *departmentStore) Rename(ctx context.Context, oldName, newName string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	result, err := tx.ExecContext(ctx, `UPDATE departments SET name=? WHERE name=?`, newName, oldName)
	if err != nil {
		return err
	}
	if err := requireRows(result); err != nil {
		return err
	}
	// migrate agents so none are orphaned by the rename
	if _, err := tx.ExecContext(ctx, `UPDATE agents SET department_name=? WHERE department_name=?`, newName, oldName); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *departmentStore) Delete(ctx context.Context, name string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM agents WHERE department_name=?`, name); err != nil {
		return err
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM departments WHERE name=?`, name)
	if err != nil {
		return err
	}
	if err := requireRows(result); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *departmentStore) DeleteAgent(ctx context.Context, name string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM agents WHERE name=?`, name)
	if err != nil {
		return err
	}
	return requireRows(result)
}

func (s *departmentStore) GetByName(ctx context.Context, name string) (*domain.Department, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM departments WHERE name=?`, name).Scan(&exists)
	if err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, repository.ErrNotFound
	}

	dept := &domain.Department{Name: name, Agents: []domain.Agent{}}
	rows, err := s.db.QueryContext(ctx, `
        SELECT name, email, extension, completed_orders, total_orders
        FROM agents WHERE department_name=? ORDER BY name ASC`, name)
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

func (s *departmentStore) List(ctx context.Context) ([]domain.Department, error) {
	deptRows, err := s.db.QueryContext(ctx, `SELECT name FROM departments ORDER BY name ASC`)
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

	agentRows, err := s.db.QueryContext(ctx, `
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
