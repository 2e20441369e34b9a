package service

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/spec-kit/order-dashboard/internal/domain"
)

type fakeStatsStore struct {
	orders []domain.Order
	depts  []domain.Department
	saved  []domain.Department
}

func (f *fakeStatsStore) ListOrders(context.Context) ([]domain.Order, error) {
	return f.orders, nil
}

func (f *fakeStatsStore) ListDepartments(context.Context) ([]domain.Department, error) {
	result := make([]domain.Department, len(f.depts))
	for i, dept := range f.depts {
		result[i] = dept
		result[i].Agents = append([]domain.Agent{}, dept.Agents...)
	}
	return result, nil
}

func (f *fakeStatsStore) SaveDepartment(_ context.Context, dept *domain.Department) error {
	stored := *dept
	stored.Agents = append([]domain.Agent{}, dept.Agents...)
	f.saved = append(f.saved, stored)
	return nil
}

func statsOrders() []domain.Order {
	return []domain.Order{
		{ID: "o1", Status: domain.OrderStatusUnassigned},
		{ID: "o2", Status: domain.OrderStatusInProgress, AssignedTo: "Admin"},
		{ID: "o3", Status: domain.OrderStatusCompleted, AssignedTo: "Admin"},
		{ID: "o4", Status: domain.OrderStatusCompleted, AssignedTo: "Dana"},
	}
}

func TestComputeStatsIdentity(t *testing.T) {
	tests := []struct {
		name   string
		orders []domain.Order
		want   domain.DashboardStats
	}{
		{"empty", nil, domain.DashboardStats{}},
		{"mixed", statsOrders(), domain.DashboardStats{TotalOrders: 4, CompletedOrders: 2, PendingOrders: 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := domain.ComputeStats(tt.orders)
			if got != tt.want {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
			if got.TotalOrders != got.CompletedOrders+got.PendingOrders {
				t.Fatalf("identity broken: %+v", got)
			}
		})
	}
}

func TestStatsCurrentWithoutCache(t *testing.T) {
	store := &fakeStatsStore{orders: statsOrders()}
	svc := NewStatsService(store, nil, 0, zap.NewNop())

	stats, err := svc.Current(context.Background())
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	want := domain.DashboardStats{TotalOrders: 4, CompletedOrders: 2, PendingOrders: 2}
	if stats != want {
		t.Fatalf("got %+v, want %+v", stats, want)
	}
}

func TestRecomputeAgentCounters(t *testing.T) {
	store := &fakeStatsStore{
		orders: statsOrders(),
		depts: []domain.Department{{
			Name: "Support",
			Agents: []domain.Agent{
				{Name: "Admin", CompletedOrders: 9, TotalOrders: 9},
				{Name: "Dana"},
				{Name: "Idle"},
			},
		}},
	}
	svc := NewStatsService(store, nil, 0, zap.NewNop())

	if err := svc.RecomputeAgentCounters(context.Background()); err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if len(store.saved) != 1 {
		t.Fatalf("saved %d departments", len(store.saved))
	}

	byName := map[string]domain.Agent{}
	for _, agent := range store.saved[0].Agents {
		byName[agent.Name] = agent
	}
	if a := byName["Admin"]; a.CompletedOrders != 1 || a.TotalOrders != 2 {
		t.Fatalf("Admin counters %+v", a)
	}
	if a := byName["Dana"]; a.CompletedOrders != 1 || a.TotalOrders != 1 {
		t.Fatalf("Dana counters %+v", a)
	}
	if a := byName["Idle"]; a.CompletedOrders != 0 || a.TotalOrders != 0 {
		t.Fatalf("Idle counters %+v", a)
	}
}

func TestRecomputeAgentCountersSkipsUnchanged(t *testing.T) {
	store := &fakeStatsStore{
		orders: statsOrders(),
		depts: []domain.Department{{
			Name: "Support",
			Agents: []domain.Agent{
				{Name: "Admin", CompletedOrders: 1, TotalOrders: 2},
				{Name: "Dana", CompletedOrders: 1, TotalOrders: 1},
			},
		}},
	}
	svc := NewStatsService(store, nil, 0, zap.NewNop())

	if err := svc.RecomputeAgentCounters(context.Background()); err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if len(store.saved) != 0 {
		t.Fatalf("unchanged department rewritten %d times", len(store.saved))
	}
}
