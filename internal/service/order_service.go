package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/order-dashboard/internal/domain"
	"github.com/spec-kit/order-dashboard/internal/events"
	"github.com/spec-kit/order-dashboard/internal/repository"
	apperrors "github.com/spec-kit/order-dashboard/pkg/util/errorutil"
)

// OrderStore is the slice of the persistence gateway the lifecycle engine
// depends on.
type OrderStore interface {
	CreateOrder(ctx context.Context, order *domain.Order) error
	UpdateOrder(ctx context.Context, order *domain.Order) error
	RemoveOrder(ctx context.Context, id string) error
	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	ListOrders(ctx context.Context) ([]domain.Order, error)
}

// OrderService drives the order lifecycle state machine. It keeps an
// in-memory view of the order set that mutations update optimistically
// before the gateway write resolves, serializes writes per order id, and
// reconciles the view against subscription refetches.
type OrderService struct {
	store      OrderStore
	dispatcher events.Dispatcher
	logger     *zap.Logger

	mu         sync.Mutex
	cache      map[string]domain.Order
	pending    map[string]int
	writeLocks map[string]*sync.Mutex
}

// OrderDependencies bundles collaborators for the order service.
type OrderDependencies struct {
	Store      OrderStore
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// OrderCreateInput describes order creation payload. TaskLabels seed the
// checklist; an empty AssignedTo creates the order unassigned.
type OrderCreateInput struct {
	Title      string
	Type       string
	Priority   domain.OrderPriority
	AssignedTo string
	Details    domain.OrderDetails
	TaskLabels []string
}

// DetailsPatch carries a partial details update; nil fields are untouched.
type DetailsPatch struct {
	CustomerName  *string
	TicketNumber  *string
	InvoiceNumber *string
	Note          *string
}

// NewOrderService constructs the service.
func NewOrderService(deps OrderDependencies) *OrderService {
	return &OrderService{
		store:      deps.Store,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		cache:      make(map[string]domain.Order),
		pending:    make(map[string]int),
		writeLocks: make(map[string]*sync.Mutex),
	}
}

// Create validates and persists a new order. Orders start unassigned; an
// assignee in the input starts them in-progress directly.
func (s *OrderService) Create(ctx context.Context, input OrderCreateInput) (*domain.Order, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title required", nil)
	}
	if strings.TrimSpace(input.Details.CustomerName) == "" {
		return nil, apperrors.NewValidationError("customer name required", nil)
	}

	order := &domain.Order{
		ID:         "order-" + uuid.NewString(),
		Title:      title,
		Type:       input.Type,
		Status:     domain.OrderStatusUnassigned,
		Priority:   input.Priority,
		AssignedTo: strings.TrimSpace(input.AssignedTo),
		Details:    input.Details,
		CreatedAt:  time.Now(),
	}
	if order.Priority == "" {
		order.Priority = domain.OrderPriorityMedium
	}
	if order.AssignedTo != "" {
		order.Status = domain.OrderStatusInProgress
	}
	for _, label := range input.TaskLabels {
		label = strings.TrimSpace(label)
		if label == "" {
			continue
		}
		order.Tasks = append(order.Tasks, domain.Task{ID: uuid.NewString(), Label: label})
	}

	unlock := s.lockOrder(order.ID)
	defer unlock()

	s.cachePut(*order, true)
	err := s.store.CreateOrder(ctx, order)
	s.pendingDone(order.ID)
	if err != nil && !apperrors.IsRetryable(err) {
		s.cacheDelete(order.ID)
		return nil, apperrors.MapError(err)
	}
	s.cachePut(*order, false)

	s.publish(ctx, events.Event{
		Type:    events.EventOrderCreated,
		OrderID: order.ID,
		Payload: events.OrderCreatedPayload{
			Title:      order.Title,
			Type:       order.Type,
			Priority:   order.Priority,
			AssignedTo: order.AssignedTo,
		},
	})
	result := order.Clone()
	return &result, err
}

// Assign moves an unassigned or in-progress order to in-progress under the
// given agent. A completed order is never implicitly reopened; assigning it
// is a conflict.
func (s *OrderService) Assign(ctx context.Context, orderID, agentName string) (*domain.Order, error) {
	agentName = strings.TrimSpace(agentName)
	if agentName == "" {
		return nil, apperrors.NewValidationError("agent name required", nil)
	}

	unlock := s.lockOrder(orderID)
	defer unlock()

	order, err := s.snapshot(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status == domain.OrderStatusCompleted {
		return nil, apperrors.NewConflict("completed order cannot be reassigned", map[string]any{"order_id": orderID})
	}

	prev := order.Clone()
	oldStatus := order.Status
	order.AssignedTo = agentName
	order.Status = domain.OrderStatusInProgress

	evt := events.Event{
		Type:    events.EventOrderAssigned,
		OrderID: order.ID,
		Payload: events.OrderAssignedPayload{AssignedTo: agentName, OldStatus: oldStatus},
	}
	return s.commit(ctx, order, &prev, evt)
}

// ToggleTask flips a task's completion flag, stamping or clearing its
// timestamp, then rederives order status. Completing the last open task
// completes the order; unchecking a task on a completed order reverts it
// to in-progress (or unassigned when no agent is set) and clears the
// order's completion timestamp.
func (s *OrderService) ToggleTask(ctx context.Context, orderID, taskID string) (*domain.Order, error) {
	unlock := s.lockOrder(orderID)
	defer unlock()

	order, err := s.snapshot(ctx, orderID)
	if err != nil {
		return nil, err
	}
	task := order.TaskByID(taskID)
	if task == nil {
		return nil, apperrors.NewNotFound("task", map[string]any{"order_id": orderID, "task_id": taskID})
	}

	prev := order.Clone()
	now := time.Now()
	task.Completed = !task.Completed
	if task.Completed {
		ts := now
		task.CompletedAt = &ts
	} else {
		task.CompletedAt = nil
	}

	completedNow := s.reconcileStatus(order, now)

	evts := []events.Event{{
		Type:    events.EventOrderTaskToggled,
		OrderID: order.ID,
		Payload: events.OrderTaskToggledPayload{
			TaskID:    taskID,
			Completed: task.Completed,
			NewStatus: order.Status,
		},
	}}
	if completedNow {
		evts = append(evts, events.Event{
			Type:    events.EventOrderCompleted,
			OrderID: order.ID,
			Payload: events.OrderCompletedPayload{CompletedAt: now, AssignedTo: order.AssignedTo},
		})
	}
	return s.commit(ctx, order, &prev, evts...)
}

// UpdateDetails merges a partial details patch. No status side effects.
func (s *OrderService) UpdateDetails(ctx context.Context, orderID string, patch DetailsPatch) (*domain.Order, error) {
	unlock := s.lockOrder(orderID)
	defer unlock()

	order, err := s.snapshot(ctx, orderID)
	if err != nil {
		return nil, err
	}
	prev := order.Clone()
	if patch.CustomerName != nil {
		order.Details.CustomerName = *patch.CustomerName
	}
	if patch.TicketNumber != nil {
		order.Details.TicketNumber = *patch.TicketNumber
	}
	if patch.InvoiceNumber != nil {
		order.Details.InvoiceNumber = *patch.InvoiceNumber
	}
	if patch.Note != nil {
		order.Details.Note = *patch.Note
	}
	return s.commit(ctx, order, &prev)
}

// Delete removes an order. Deleting an unknown id is a no-op; agent
// counters are not decremented (they are caches recomputed on demand).
func (s *OrderService) Delete(ctx context.Context, orderID string) error {
	unlock := s.lockOrder(orderID)
	defer unlock()

	status := domain.OrderStatus("")
	s.mu.Lock()
	if cached, ok := s.cache[orderID]; ok {
		status = cached.Status
	}
	s.mu.Unlock()

	err := s.store.RemoveOrder(ctx, orderID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil && !apperrors.IsRetryable(err) {
		return apperrors.MapError(err)
	}
	s.cacheDelete(orderID)
	s.publish(ctx, events.Event{
		Type:    events.EventOrderDeleted,
		OrderID: orderID,
		Payload: events.OrderDeletedPayload{Status: status},
	})
	return err
}

// Get returns a single order.
func (s *OrderService) Get(ctx context.Context, orderID string) (*domain.Order, error) {
	unlock := s.lockOrder(orderID)
	defer unlock()
	return s.snapshot(ctx, orderID)
}

// List fetches the order set from the gateway and refreshes the cached
// view, keeping optimistic copies for orders with in-flight writes.
func (s *OrderService) List(ctx context.Context) ([]domain.Order, error) {
	orders, err := s.store.ListOrders(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	s.Reconcile(orders)
	return orders, nil
}

// Reconcile applies a freshly fetched authoritative collection to the
// cached view. The refetch wins for every order id it contains except ids
// with a pending optimistic write, which keep their local copy until the
// write resolves.
func (s *OrderService) Reconcile(orders []domain.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[string]domain.Order, len(orders))
	for _, order := range orders {
		if s.pending[order.ID] > 0 {
			if cached, ok := s.cache[order.ID]; ok {
				next[order.ID] = cached
				continue
			}
		}
		next[order.ID] = order.Clone()
	}
	// keep optimistic creations the refetch has not seen yet
	for id, cached := range s.cache {
		if s.pending[id] > 0 {
			if _, ok := next[id]; !ok {
				next[id] = cached
			}
		}
	}
	s.cache = next
}

// Cached returns the current in-memory view without touching the gateway.
func (s *OrderService) Cached() []domain.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]domain.Order, 0, len(s.cache))
	for _, order := range s.cache {
		result = append(result, order.Clone())
	}
	return result
}

// reconcileStatus rederives order status from task completion. Returns
// true when the order transitioned into completed.
func (s *OrderService) reconcileStatus(order *domain.Order, now time.Time) bool {
	if order.AllTasksCompleted() {
		if order.Status != domain.OrderStatusCompleted {
			order.Status = domain.OrderStatusCompleted
			ts := now
			order.CompletedAt = &ts
			return true
		}
		return false
	}
	if order.Status == domain.OrderStatusCompleted {
		if order.AssignedTo != "" {
			order.Status = domain.OrderStatusInProgress
		} else {
			order.Status = domain.OrderStatusUnassigned
		}
		order.CompletedAt = nil
	}
	return false
}

// commit applies the mutation optimistically, writes through the gateway,
// then reconciles: authoritative success replaces the optimistic copy, a
// retryable failure keeps it (the local fallback holds the write), and any
// other failure rolls the cache back to the previous state.
func (s *OrderService) commit(ctx context.Context, order *domain.Order, prev *domain.Order, evts ...events.Event) (*domain.Order, error) {
	s.cachePut(*order, true)
	err := s.store.UpdateOrder(ctx, order)
	s.pendingDone(order.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.cacheDelete(order.ID)
			return nil, apperrors.NewNotFound("order", map[string]any{"order_id": order.ID})
		}
		if !apperrors.IsRetryable(err) {
			s.cachePut(*prev, false)
			return nil, apperrors.MapError(err)
		}
		s.logger.Warn("order write degraded to local store", zap.String("order_id", order.ID))
	}
	s.cachePut(*order, false)
	for _, evt := range evts {
		s.publish(ctx, evt)
	}
	result := order.Clone()
	return &result, err
}

func (s *OrderService) snapshot(ctx context.Context, orderID string) (*domain.Order, error) {
	s.mu.Lock()
	if cached, ok := s.cache[orderID]; ok {
		s.mu.Unlock()
		order := cached.Clone()
		return &order, nil
	}
	s.mu.Unlock()

	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("order", map[string]any{"order_id": orderID})
		}
		return nil, apperrors.MapError(err)
	}
	s.cachePut(*order, false)
	result := order.Clone()
	return &result, nil
}

// lockOrder serializes writes per order id: at most one in-flight write per
// order, later callers queue on the same mutex.
func (s *OrderService) lockOrder(orderID string) func() {
	s.mu.Lock()
	lock, ok := s.writeLocks[orderID]
	if !ok {
		lock = &sync.Mutex{}
		s.writeLocks[orderID] = lock
	}
	s.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

func (s *OrderService) cachePut(order domain.Order, markPending bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache[order.ID] = order.Clone()
	if markPending {
		s.pending[order.ID]++
	}
}

func (s *OrderService) pendingDone(orderID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending[orderID] > 1 {
		s.pending[orderID]--
	} else {
		delete(s.pending, orderID)
	}
}

func (s *OrderService) cacheDelete(orderID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cache, orderID)
	delete(s.pending, orderID)
}

func (s *OrderService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
