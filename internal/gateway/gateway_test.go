package gateway

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/spec-kit/order-dashboard/internal/domain"
	"github.com/spec-kit/order-dashboard/internal/observability"
	"github.com/spec-kit/order-dashboard/internal/repository"
	apperrors "github.com/spec-kit/order-dashboard/pkg/util/errorutil"
)

// memOrderRepo is an in-memory OrderRepository. Setting fail makes every
// operation return that error, simulating a remote outage.
type memOrderRepo struct {
	mu     sync.Mutex
	orders map[string]domain.Order
	fail   error
}

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{orders: make(map[string]domain.Order)}
}

func (r *memOrderRepo) Create(_ context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	r.orders[order.ID] = order.Clone()
	return nil
}

func (r *memOrderRepo) Update(_ context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	if _, ok := r.orders[order.ID]; !ok {
		return repository.ErrNotFound
	}
	r.orders[order.ID] = order.Clone()
	return nil
}

func (r *memOrderRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	if _, ok := r.orders[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.orders, id)
	return nil
}

func (r *memOrderRepo) GetByID(_ context.Context, id string) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return nil, r.fail
	}
	order, ok := r.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := order.Clone()
	return &clone, nil
}

func (r *memOrderRepo) List(_ context.Context) ([]domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return nil, r.fail
	}
	result := make([]domain.Order, 0, len(r.orders))
	for _, order := range r.orders {
		result = append(result, order.Clone())
	}
	return result, nil
}

type memDeptRepo struct {
	mu    sync.Mutex
	depts map[string]domain.Department
	fail  error
	saves int
}

func newMemDeptRepo() *memDeptRepo {
	return &memDeptRepo{depts: make(map[string]domain.Department)}
}

func (r *memDeptRepo) Save(_ context.Context, dept *domain.Department) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	r.saves++
	stored := *dept
	stored.Agents = append([]domain.Agent{}, dept.Agents...)
	r.depts[dept.Name] = stored
	return nil
}

func (r *memDeptRepo) Rename(_ context.Context, oldName, newName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	dept, ok := r.depts[oldName]
	if !ok {
		return repository.ErrNotFound
	}
	delete(r.depts, oldName)
	dept.Name = newName
	r.depts[newName] = dept
	return nil
}

func (r *memDeptRepo) Delete(_ context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	if _, ok := r.depts[name]; !ok {
		return repository.ErrNotFound
	}
	delete(r.depts, name)
	return nil
}

func (r *memDeptRepo) DeleteAgent(_ context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	for deptName, dept := range r.depts {
		for i, agent := range dept.Agents {
			if agent.Name == name {
				dept.Agents = append(dept.Agents[:i], dept.Agents[i+1:]...)
				r.depts[deptName] = dept
				return nil
			}
		}
	}
	return repository.ErrNotFound
}

func (r *memDeptRepo) GetByName(_ context.Context, name string) (*domain.Department, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return nil, r.fail
	}
	dept, ok := r.depts[name]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := dept
	clone.Agents = append([]domain.Agent{}, dept.Agents...)
	return &clone, nil
}

func (r *memDeptRepo) List(_ context.Context) ([]domain.Department, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return nil, r.fail
	}
	result := make([]domain.Department, 0, len(r.depts))
	for _, dept := range r.depts {
		result = append(result, dept)
	}
	return result, nil
}

type memCatRepo struct {
	mu   sync.Mutex
	cats map[string]struct{}
	fail error
}

func newMemCatRepo() *memCatRepo {
	return &memCatRepo{cats: make(map[string]struct{})}
}

func (r *memCatRepo) Create(_ context.Context, category *domain.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	r.cats[category.Name] = struct{}{}
	return nil
}

func (r *memCatRepo) Delete(_ context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	if _, ok := r.cats[name]; !ok {
		return repository.ErrNotFound
	}
	delete(r.cats, name)
	return nil
}

func (r *memCatRepo) List(_ context.Context) ([]domain.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return nil, r.fail
	}
	result := make([]domain.Category, 0, len(r.cats))
	for name := range r.cats {
		result = append(result, domain.Category{Name: name})
	}
	return result, nil
}

type testFixture struct {
	gw          *Gateway
	remote      *memOrderRepo
	remoteDepts *memDeptRepo
	remoteCats  *memCatRepo
	local       *memOrderRepo
	localDepts  *memDeptRepo
	localCats   *memCatRepo
	metrics     *observability.Metrics
}

func newFixture(withRemote bool) *testFixture {
	f := &testFixture{
		local:      newMemOrderRepo(),
		localDepts: newMemDeptRepo(),
		localCats:  newMemCatRepo(),
		metrics:    observability.NewMetrics(),
	}
	deps := Dependencies{
		LocalOrders:      f.local,
		LocalDepartments: f.localDepts,
		LocalCategories:  f.localCats,
		Logger:           zap.NewNop(),
		Metrics:          f.metrics,
	}
	if withRemote {
		f.remote = newMemOrderRepo()
		f.remoteDepts = newMemDeptRepo()
		f.remoteCats = newMemCatRepo()
		deps.RemoteOrders = f.remote
		deps.RemoteDepartments = f.remoteDepts
		deps.RemoteCategories = f.remoteCats
	}
	f.gw = New(deps)
	return f
}

func testOrder(id string) *domain.Order {
	return &domain.Order{
		ID:      id,
		Title:   "order " + id,
		Status:  domain.OrderStatusUnassigned,
		Details: domain.OrderDetails{CustomerName: "Acme"},
	}
}

func TestLocalOnlyMode(t *testing.T) {
	f := newFixture(false)
	ctx := context.Background()

	if err := f.gw.CreateOrder(ctx, testOrder("o1")); err != nil {
		t.Fatalf("create: %v", err)
	}
	order, err := f.gw.GetOrder(ctx, "o1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if order.Title != "order o1" {
		t.Fatalf("got %+v", order)
	}
	if f.gw.Degraded() {
		t.Fatal("local-only mode is not degraded")
	}
}

func TestRemoteSuccessMirrorsToFallback(t *testing.T) {
	f := newFixture(true)
	ctx := context.Background()

	if err := f.gw.CreateOrder(ctx, testOrder("o1")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.local.GetByID(ctx, "o1"); err != nil {
		t.Fatalf("fallback not mirrored: %v", err)
	}

	order := testOrder("o1")
	order.AssignedTo = "Admin"
	if err := f.gw.UpdateOrder(ctx, order); err != nil {
		t.Fatalf("update: %v", err)
	}
	mirrored, err := f.local.GetByID(ctx, "o1")
	if err != nil || mirrored.AssignedTo != "Admin" {
		t.Fatalf("mirror stale: %+v %v", mirrored, err)
	}

	if err := f.gw.RemoveOrder(ctx, "o1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := f.local.GetByID(ctx, "o1"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("fallback copy not removed: %v", err)
	}
}

func TestWriteOutageCommitsLocallyAndReportsRetryable(t *testing.T) {
	f := newFixture(true)
	ctx := context.Background()

	f.remote.fail = errors.New("connection refused")
	err := f.gw.CreateOrder(ctx, testOrder("o1"))
	if !apperrors.IsRetryable(err) {
		t.Fatalf("got %v, want retryable", err)
	}
	if _, localErr := f.local.GetByID(ctx, "o1"); localErr != nil {
		t.Fatalf("write not committed locally: %v", localErr)
	}
	if !f.gw.Degraded() {
		t.Fatal("gateway should be degraded")
	}
	if f.metrics.FallbackCount(TableOrders, "create") != 1 {
		t.Fatal("fallback not counted")
	}
}

func TestReadOutageFallsBackSilently(t *testing.T) {
	f := newFixture(true)
	ctx := context.Background()

	if err := f.gw.CreateOrder(ctx, testOrder("o1")); err != nil {
		t.Fatalf("create: %v", err)
	}

	f.remote.fail = errors.New("connection refused")
	orders, err := f.gw.ListOrders(ctx)
	if err != nil {
		t.Fatalf("list during outage: %v", err)
	}
	if len(orders) != 1 || orders[0].ID != "o1" {
		t.Fatalf("fallback data wrong: %v", orders)
	}
	if !f.gw.Degraded() {
		t.Fatal("gateway should be degraded")
	}

	// remote recovery clears the degraded flag on the next success
	f.remote.fail = nil
	if _, err := f.gw.ListOrders(ctx); err != nil {
		t.Fatalf("list after recovery: %v", err)
	}
	if f.gw.Degraded() {
		t.Fatal("degraded flag not cleared")
	}
}

func TestGetOrderNotFoundPassesThrough(t *testing.T) {
	f := newFixture(true)
	if _, err := f.gw.GetOrder(context.Background(), "missing"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("got %v", err)
	}
}

func TestRemoveOrderUnknownIDPassesThrough(t *testing.T) {
	f := newFixture(true)
	if err := f.gw.RemoveOrder(context.Background(), "missing"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("got %v", err)
	}
}

func TestUpdateOrderOutageUpsertsIntoFallback(t *testing.T) {
	f := newFixture(true)
	ctx := context.Background()

	// order exists remotely but the fallback has never seen it
	if err := f.remote.Create(ctx, testOrder("o1")); err != nil {
		t.Fatalf("seed remote: %v", err)
	}

	f.remote.fail = errors.New("connection refused")
	order := testOrder("o1")
	order.AssignedTo = "Admin"
	err := f.gw.UpdateOrder(ctx, order)
	if !apperrors.IsRetryable(err) {
		t.Fatalf("got %v, want retryable", err)
	}
	local, localErr := f.local.GetByID(ctx, "o1")
	if localErr != nil || local.AssignedTo != "Admin" {
		t.Fatalf("fallback upsert failed: %+v %v", local, localErr)
	}
}

func TestInitializeSeedsDefaults(t *testing.T) {
	f := newFixture(true)
	ctx := context.Background()

	if err := f.gw.Initialize(ctx); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	dept, err := f.remoteDepts.GetByName(ctx, "Management")
	if err != nil {
		t.Fatalf("seed department missing: %v", err)
	}
	if dept.AgentByName("Admin") == nil {
		t.Fatalf("seed agent missing: %+v", dept.Agents)
	}
}

func TestInitializeSkipsSeedWhenDepartmentsExist(t *testing.T) {
	f := newFixture(true)
	ctx := context.Background()

	if err := f.remoteDepts.Save(ctx, &domain.Department{Name: "Support"}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	f.remoteDepts.saves = 0

	if err := f.gw.Initialize(ctx); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if _, err := f.remoteDepts.GetByName(ctx, "Management"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatal("default department seeded over existing data")
	}
}

func TestInitializeIsIdempotent(t *testing.T) {
	f := newFixture(true)
	ctx := context.Background()

	if err := f.gw.Initialize(ctx); err != nil {
		t.Fatalf("first: %v", err)
	}
	saves := f.remoteDepts.saves
	if err := f.gw.Initialize(ctx); err != nil {
		t.Fatalf("second: %v", err)
	}
	if f.remoteDepts.saves != saves {
		t.Fatal("second initialize repeated work")
	}
}

func TestInitializeCoalescesConcurrentCallers(t *testing.T) {
	f := newFixture(true)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = f.gw.Initialize(ctx)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("caller %d: %v", i, err)
		}
	}
	dept, err := f.remoteDepts.GetByName(ctx, "Management")
	if err != nil {
		t.Fatalf("seed missing: %v", err)
	}
	if len(dept.Agents) != 1 {
		t.Fatalf("seed applied more than once: %+v", dept.Agents)
	}
}

func TestInitializeRetriesAfterFailure(t *testing.T) {
	f := newFixture(false)
	ctx := context.Background()

	f.localDepts.fail = errors.New("disk error")
	if err := f.gw.Initialize(ctx); err == nil {
		t.Fatal("expected failure")
	}

	f.localDepts.fail = nil
	if err := f.gw.Initialize(ctx); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if _, err := f.localDepts.GetByName(ctx, "Management"); err != nil {
		t.Fatalf("seed missing after retry: %v", err)
	}
}

func TestInitializeWarmsFallbackFromRemote(t *testing.T) {
	f := newFixture(true)
	ctx := context.Background()

	if err := f.remote.Create(ctx, testOrder("o1")); err != nil {
		t.Fatalf("seed remote: %v", err)
	}
	if err := f.remoteDepts.Save(ctx, &domain.Department{Name: "Support"}); err != nil {
		t.Fatalf("seed remote dept: %v", err)
	}

	if err := f.gw.Initialize(ctx); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if _, err := f.local.GetByID(ctx, "o1"); err != nil {
		t.Fatalf("order not mirrored: %v", err)
	}
	if _, err := f.localDepts.GetByName(ctx, "Support"); err != nil {
		t.Fatalf("department not mirrored: %v", err)
	}
}

func TestDepartmentWriteOutage(t *testing.T) {
	f := newFixture(true)
	ctx := context.Background()

	f.remoteDepts.fail = errors.New("connection refused")
	err := f.gw.SaveDepartment(ctx, &domain.Department{Name: "Support"})
	if !apperrors.IsRetryable(err) {
		t.Fatalf("got %v, want retryable", err)
	}
	if _, localErr := f.localDepts.GetByName(ctx, "Support"); localErr != nil {
		t.Fatalf("write not committed locally: %v", localErr)
	}
}

func TestCategoryRoundTrip(t *testing.T) {
	f := newFixture(true)
	ctx := context.Background()

	if err := f.gw.CreateCategory(ctx, &domain.Category{Name: "Hardware"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.localCats.List(ctx); err != nil {
		t.Fatalf("list local: %v", err)
	}
	cats, err := f.gw.ListCategories(ctx)
	if err != nil || len(cats) != 1 {
		t.Fatalf("list: %v %v", cats, err)
	}

	if err := f.gw.DeleteCategory(ctx, "Hardware"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := f.gw.DeleteCategory(ctx, "Hardware"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("got %v", err)
	}
}

func TestStatsDerivedFromOrders(t *testing.T) {
	f := newFixture(false)
	ctx := context.Background()

	done := testOrder("o1")
	done.Status = domain.OrderStatusCompleted
	if err := f.gw.CreateOrder(ctx, done); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := f.gw.CreateOrder(ctx, testOrder("o2")); err != nil {
		t.Fatalf("create: %v", err)
	}

	stats, err := f.gw.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	want := domain.DashboardStats{TotalOrders: 2, CompletedOrders: 1, PendingOrders: 1}
	if stats != want {
		t.Fatalf("got %+v, want %+v", stats, want)
	}
}

func TestSubscribeUnknownTable(t *testing.T) {
	f := newFixture(false)
	if _, err := f.gw.Subscribe("agents", func() {}); err == nil {
		t.Fatal("unknown table accepted")
	}
}

func TestSubscribeWithoutRemoteIsInert(t *testing.T) {
	f := newFixture(false)
	cancel, err := f.gw.SubscribeOrders(func([]domain.Order) {})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	cancel()
	f.gw.Dispose()
}
