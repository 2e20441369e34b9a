package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/order-dashboard/internal/domain"
	apperrors "github.com/spec-kit/order-dashboard/pkg/util/errorutil"
)

const statsCacheKey = "dashboard:stats"

// StatsStore is the gateway slice the aggregator reads from.
type StatsStore interface {
	ListOrders(ctx context.Context) ([]domain.Order, error)
	ListDepartments(ctx context.Context) ([]domain.Department, error)
	SaveDepartment(ctx context.Context, dept *domain.Department) error
}

// StatsService derives dashboard stats from the order set. The Redis copy
// is strictly a cache: every recomputation overwrites it, and a stale or
// missing cache entry only costs a recompute.
type StatsService struct {
	store  StatsStore
	cache  *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewStatsService constructs the service. cache may be nil, disabling the
// Redis layer entirely.
func NewStatsService(store StatsStore, cache *redis.Client, ttl time.Duration, logger *zap.Logger) *StatsService {
	return &StatsService{store: store, cache: cache, ttl: ttl, logger: logger}
}

// Compute derives stats from an order slice without touching any store.
func (s *StatsService) Compute(orders []domain.Order) domain.DashboardStats {
	return domain.ComputeStats(orders)
}

// Current returns dashboard stats, serving the cached copy when present
// and recomputing (then overwriting the cache) otherwise.
func (s *StatsService) Current(ctx context.Context) (domain.DashboardStats, error) {
	if s.cache != nil {
		raw, err := s.cache.Get(ctx, statsCacheKey).Bytes()
		if err == nil {
			var stats domain.DashboardStats
			if jsonErr := json.Unmarshal(raw, &stats); jsonErr == nil {
				return stats, nil
			}
			// unreadable cache entry falls through to recompute
		}
	}
	return s.Refresh(ctx)
}

// Refresh recomputes stats from the order set and overwrites the cache.
func (s *StatsService) Refresh(ctx context.Context) (domain.DashboardStats, error) {
	orders, err := s.store.ListOrders(ctx)
	if err != nil {
		return domain.DashboardStats{}, apperrors.MapError(err)
	}
	stats := domain.ComputeStats(orders)

	if s.cache != nil {
		raw, err := json.Marshal(stats)
		if err == nil {
			if err := s.cache.Set(ctx, statsCacheKey, raw, s.ttl).Err(); err != nil {
				s.logger.Warn("write stats cache", zap.Error(err))
			}
		}
	}
	return stats, nil
}

// RecomputeAgentCounters rebuilds every agent's completed/total counters
// from the order set and persists them, overwriting whatever was stored.
// Counters are caches; this is the only way they are ever corrected.
func (s *StatsService) RecomputeAgentCounters(ctx context.Context) error {
	orders, err := s.store.ListOrders(ctx)
	if err != nil {
		return apperrors.MapError(err)
	}
	depts, err := s.store.ListDepartments(ctx)
	if err != nil {
		return apperrors.MapError(err)
	}

	completed := make(map[string]int)
	total := make(map[string]int)
	for _, order := range orders {
		if order.AssignedTo == "" {
			continue
		}
		total[order.AssignedTo]++
		if order.Status == domain.OrderStatusCompleted {
			completed[order.AssignedTo]++
		}
	}

	for i := range depts {
		dept := &depts[i]
		changed := false
		for j := range dept.Agents {
			agent := &dept.Agents[j]
			if agent.CompletedOrders != completed[agent.Name] || agent.TotalOrders != total[agent.Name] {
				agent.CompletedOrders = completed[agent.Name]
				agent.TotalOrders = total[agent.Name]
				changed = true
			}
		}
		if !changed {
			continue
		}
		if err := s.store.SaveDepartment(ctx, dept); err != nil && !apperrors.IsRetryable(err) {
			return apperrors.MapError(err)
		}
	}
	return nil
}
