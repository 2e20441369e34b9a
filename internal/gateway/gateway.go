// Package gateway implements the persistence boundary of the dashboard:
// remote-first CRUD against Postgres with a SQLite fallback, an idempotent
// coalesced initializer, and push-invalidate change subscriptions.
package gateway

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/spec-kit/order-dashboard/internal/domain"
	"github.com/spec-kit/order-dashboard/internal/observability"
	"github.com/spec-kit/order-dashboard/internal/repository"
	apperrors "github.com/spec-kit/order-dashboard/pkg/util/errorutil"
)

// Table names accepted by Subscribe.
const (
	TableOrders      = "orders"
	TableDepartments = "departments"
)

const (
	seedDepartment = "Management"
	seedAgent      = "Admin"
)

// Dependencies bundles the gateway's collaborators. Remote repositories may
// be nil, in which case the local store acts as the primary.
type Dependencies struct {
	RemoteOrders      repository.OrderRepository
	RemoteDepartments repository.DepartmentRepository
	RemoteCategories  repository.CategoryRepository
	LocalOrders       repository.OrderRepository
	LocalDepartments  repository.DepartmentRepository
	LocalCategories   repository.CategoryRepository
	Pool              *pgxpool.Pool
	Logger            *zap.Logger
	Metrics           *observability.Metrics
}

// Gateway mediates between the remote store and the local fallback. Reads
// degrade silently to the fallback; writes that cannot reach the remote are
// still committed locally and surface a retryable CONNECTION_FAILED error.
type Gateway struct {
	remoteOrders repository.OrderRepository
	remoteDepts  repository.DepartmentRepository
	remoteCats   repository.CategoryRepository
	localOrders  repository.OrderRepository
	localDepts   repository.DepartmentRepository
	localCats    repository.CategoryRepository

	pool    *pgxpool.Pool
	logger  *zap.Logger
	metrics *observability.Metrics

	degraded atomic.Bool

	initMu       sync.Mutex
	initDone     bool
	initErr      error
	initInFlight chan struct{}

	lifecycleCtx    context.Context
	lifecycleCancel context.CancelFunc
	wg              sync.WaitGroup
}

// New constructs a gateway. Call Initialize before use and Dispose on
// shutdown.
func New(deps Dependencies) *Gateway {
	ctx, cancel := context.WithCancel(context.Background())
	return &Gateway{
		remoteOrders:    deps.RemoteOrders,
		remoteDepts:     deps.RemoteDepartments,
		remoteCats:      deps.RemoteCategories,
		localOrders:     deps.LocalOrders,
		localDepts:      deps.LocalDepartments,
		localCats:       deps.LocalCategories,
		pool:            deps.Pool,
		logger:          deps.Logger,
		metrics:         deps.Metrics,
		lifecycleCtx:    ctx,
		lifecycleCancel: cancel,
	}
}

// Degraded reports whether the most recent remote operation fell back to
// the local store.
func (g *Gateway) Degraded() bool {
	return g.degraded.Load()
}

// Initialize seeds default records and warms the local mirror. It is
// idempotent: concurrent callers coalesce into a single in-flight attempt
// and share its result. A failed attempt does not latch, so a later call
// retries.
func (g *Gateway) Initialize(ctx context.Context) error {
	g.initMu.Lock()
	if g.initDone {
		g.initMu.Unlock()
		return nil
	}
	if g.initInFlight != nil {
		ch := g.initInFlight
		g.initMu.Unlock()
		select {
		case <-ch:
			g.initMu.Lock()
			err := g.initErr
			g.initMu.Unlock()
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	ch := make(chan struct{})
	g.initInFlight = ch
	g.initMu.Unlock()

	err := g.initialize(ctx)

	g.initMu.Lock()
	g.initErr = err
	g.initDone = err == nil
	g.initInFlight = nil
	close(ch)
	g.initMu.Unlock()
	return err
}

func (g *Gateway) initialize(ctx context.Context) error {
	depts, err := g.ListDepartments(ctx)
	if err != nil {
		return err
	}
	if len(depts) == 0 {
		seed := &domain.Department{
			Name: seedDepartment,
			Agents: []domain.Agent{{
				Name:      seedAgent,
				Email:     "admin@example.com",
				Extension: "100",
			}},
		}
		if err := g.SaveDepartment(ctx, seed); err != nil && !apperrors.IsRetryable(err) {
			return err
		}
	}

	// warm the fallback so a later outage serves current data
	if g.remoteOrders != nil {
		if orders, err := g.remoteOrders.List(ctx); err == nil {
			for i := range orders {
				g.mirrorOrder(ctx, &orders[i])
			}
		}
	}
	if g.remoteDepts != nil {
		if remote, err := g.remoteDepts.List(ctx); err == nil {
			for i := range remote {
				if err := g.localDepts.Save(ctx, &remote[i]); err != nil {
					g.logger.Warn("mirror department to fallback", zap.Error(err))
				}
			}
		}
	}

	g.logger.Info("gateway initialized", zap.Bool("degraded", g.Degraded()))
	return nil
}

// Dispose cancels all change subscriptions and waits for their delivery
// goroutines to finish.
func (g *Gateway) Dispose() {
	g.lifecycleCancel()
	g.wg.Wait()
}

// CreateOrder persists a new order, remote first.
func (g *Gateway) CreateOrder(ctx context.Context, order *domain.Order) error {
	if g.remoteOrders != nil {
		err := g.remoteOrders.Create(ctx, order)
		if err == nil {
			g.degraded.Store(false)
			g.mirrorOrder(ctx, order)
			return nil
		}
		if errors.Is(err, repository.ErrNotFound) {
			return err
		}
		g.noteFallback(TableOrders, "create", err)
		if localErr := g.localOrders.Create(ctx, order); localErr != nil {
			return apperrors.NewInternalError(localErr)
		}
		return apperrors.NewConnectionError("remote store unavailable; order saved locally", err)
	}
	return g.localOrders.Create(ctx, order)
}

// UpdateOrder persists changes to an existing order, remote first.
func (g *Gateway) UpdateOrder(ctx context.Context, order *domain.Order) error {
	if g.remoteOrders != nil {
		err := g.remoteOrders.Update(ctx, order)
		if err == nil {
			g.degraded.Store(false)
			g.mirrorOrder(ctx, order)
			return nil
		}
		if errors.Is(err, repository.ErrNotFound) {
			return err
		}
		g.noteFallback(TableOrders, "update", err)
		if localErr := g.upsertLocalOrder(ctx, order); localErr != nil {
			return apperrors.NewInternalError(localErr)
		}
		return apperrors.NewConnectionError("remote store unavailable; order updated locally", err)
	}
	return g.localOrders.Update(ctx, order)
}

// RemoveOrder deletes an order by id, remote first.
func (g *Gateway) RemoveOrder(ctx context.Context, id string) error {
	if g.remoteOrders != nil {
		err := g.remoteOrders.Delete(ctx, id)
		if err == nil {
			g.degraded.Store(false)
			if localErr := g.localOrders.Delete(ctx, id); localErr != nil && !errors.Is(localErr, repository.ErrNotFound) {
				g.logger.Warn("remove order from fallback", zap.Error(localErr))
			}
			return nil
		}
		if errors.Is(err, repository.ErrNotFound) {
			return err
		}
		g.noteFallback(TableOrders, "delete", err)
		if localErr := g.localOrders.Delete(ctx, id); localErr != nil && !errors.Is(localErr, repository.ErrNotFound) {
			return apperrors.NewInternalError(localErr)
		}
		return apperrors.NewConnectionError("remote store unavailable; order removed locally", err)
	}
	return g.localOrders.Delete(ctx, id)
}

// ListOrders returns all orders. Remote failures degrade silently to the
// fallback store.
func (g *Gateway) ListOrders(ctx context.Context) ([]domain.Order, error) {
	if g.remoteOrders != nil {
		orders, err := g.remoteOrders.List(ctx)
		if err == nil {
			g.degraded.Store(false)
			return orders, nil
		}
		g.noteFallback(TableOrders, "list", err)
	}
	return g.localOrders.List(ctx)
}

// GetOrder fetches one order by id with the same fallback semantics.
func (g *Gateway) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	if g.remoteOrders != nil {
		order, err := g.remoteOrders.GetByID(ctx, id)
		if err == nil {
			g.degraded.Store(false)
			return order, nil
		}
		if errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		g.noteFallback(TableOrders, "get", err)
	}
	return g.localOrders.GetByID(ctx, id)
}

// ListDepartments returns all departments with their agents.
func (g *Gateway) ListDepartments(ctx context.Context) ([]domain.Department, error) {
	if g.remoteDepts != nil {
		depts, err := g.remoteDepts.List(ctx)
		if err == nil {
			g.degraded.Store(false)
			return depts, nil
		}
		g.noteFallback(TableDepartments, "list", err)
	}
	return g.localDepts.List(ctx)
}

// GetDepartment fetches one department by name.
func (g *Gateway) GetDepartment(ctx context.Context, name string) (*domain.Department, error) {
	if g.remoteDepts != nil {
		dept, err := g.remoteDepts.GetByName(ctx, name)
		if err == nil {
			g.degraded.Store(false)
			return dept, nil
		}
		if errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		g.noteFallback(TableDepartments, "get", err)
	}
	return g.localDepts.GetByName(ctx, name)
}

// SaveDepartment upserts a department and its agent roster.
func (g *Gateway) SaveDepartment(ctx context.Context, dept *domain.Department) error {
	return g.writeDepartments(ctx, "save", func(repo repository.DepartmentRepository) error {
		return repo.Save(ctx, dept)
	})
}

// RenameDepartment renames a department, migrating its agents.
func (g *Gateway) RenameDepartment(ctx context.Context, oldName, newName string) error {
	return g.writeDepartments(ctx, "rename", func(repo repository.DepartmentRepository) error {
		return repo.Rename(ctx, oldName, newName)
	})
}

// DeleteDepartment removes a department and, explicitly, its agents.
func (g *Gateway) DeleteDepartment(ctx context.Context, name string) error {
	return g.writeDepartments(ctx, "delete", func(repo repository.DepartmentRepository) error {
		return repo.Delete(ctx, name)
	})
}

// DeleteAgent removes a single agent from whichever department holds it.
func (g *Gateway) DeleteAgent(ctx context.Context, name string) error {
	return g.writeDepartments(ctx, "delete_agent", func(repo repository.DepartmentRepository) error {
		return repo.DeleteAgent(ctx, name)
	})
}

// ListCategories returns the order type catalog.
func (g *Gateway) ListCategories(ctx context.Context) ([]domain.Category, error) {
	if g.remoteCats != nil {
		cats, err := g.remoteCats.List(ctx)
		if err == nil {
			g.degraded.Store(false)
			return cats, nil
		}
		g.noteFallback("categories", "list", err)
	}
	return g.localCats.List(ctx)
}

// CreateCategory adds a category.
func (g *Gateway) CreateCategory(ctx context.Context, category *domain.Category) error {
	if g.remoteCats != nil {
		err := g.remoteCats.Create(ctx, category)
		if err == nil {
			g.degraded.Store(false)
			if localErr := g.localCats.Create(ctx, category); localErr != nil {
				g.logger.Warn("mirror category to fallback", zap.Error(localErr))
			}
			return nil
		}
		g.noteFallback("categories", "create", err)
		if localErr := g.localCats.Create(ctx, category); localErr != nil {
			return apperrors.NewInternalError(localErr)
		}
		return apperrors.NewConnectionError("remote store unavailable; category saved locally", err)
	}
	return g.localCats.Create(ctx, category)
}

// DeleteCategory removes a category.
func (g *Gateway) DeleteCategory(ctx context.Context, name string) error {
	if g.remoteCats != nil {
		err := g.remoteCats.Delete(ctx, name)
		if err == nil {
			g.degraded.Store(false)
			if localErr := g.localCats.Delete(ctx, name); localErr != nil && !errors.Is(localErr, repository.ErrNotFound) {
				g.logger.Warn("delete category from fallback", zap.Error(localErr))
			}
			return nil
		}
		if errors.Is(err, repository.ErrNotFound) {
			return err
		}
		g.noteFallback("categories", "delete", err)
		if localErr := g.localCats.Delete(ctx, name); localErr != nil && !errors.Is(localErr, repository.ErrNotFound) {
			return apperrors.NewInternalError(localErr)
		}
		return apperrors.NewConnectionError("remote store unavailable; category removed locally", err)
	}
	return g.localCats.Delete(ctx, name)
}

// Stats derives dashboard stats from the current order set. Always a fresh
// computation; callers may cache it but must allow it to be overwritten.
func (g *Gateway) Stats(ctx context.Context) (domain.DashboardStats, error) {
	orders, err := g.ListOrders(ctx)
	if err != nil {
		return domain.DashboardStats{}, err
	}
	return domain.ComputeStats(orders), nil
}

func (g *Gateway) writeDepartments(ctx context.Context, op string, fn func(repository.DepartmentRepository) error) error {
	if g.remoteDepts != nil {
		err := fn(g.remoteDepts)
		if err == nil {
			g.degraded.Store(false)
			if localErr := fn(g.localDepts); localErr != nil && !errors.Is(localErr, repository.ErrNotFound) {
				g.logger.Warn("mirror department write to fallback",
					zap.String("op", op), zap.Error(localErr))
			}
			return nil
		}
		if errors.Is(err, repository.ErrNotFound) {
			return err
		}
		g.noteFallback(TableDepartments, op, err)
		if localErr := fn(g.localDepts); localErr != nil && !errors.Is(localErr, repository.ErrNotFound) {
			return apperrors.NewInternalError(localErr)
		}
		return apperrors.NewConnectionError("remote store unavailable; change saved locally", err)
	}
	return fn(g.localDepts)
}

// mirrorOrder keeps the fallback copy in step after a successful remote
// write. Mirror failures are logged, never surfaced.
func (g *Gateway) mirrorOrder(ctx context.Context, order *domain.Order) {
	if err := g.upsertLocalOrder(ctx, order); err != nil {
		g.logger.Warn("mirror order to fallback", zap.String("order_id", order.ID), zap.Error(err))
	}
}

func (g *Gateway) upsertLocalOrder(ctx context.Context, order *domain.Order) error {
	err := g.localOrders.Update(ctx, order)
	if errors.Is(err, repository.ErrNotFound) {
		return g.localOrders.Create(ctx, order)
	}
	return err
}

func (g *Gateway) noteFallback(table, op string, err error) {
	g.degraded.Store(true)
	g.metrics.RecordFallback(table, op)
	g.logger.Warn("remote store failure; using local fallback",
		zap.String("table", table),
		zap.String("op", op),
		zap.Error(err),
	)
}
