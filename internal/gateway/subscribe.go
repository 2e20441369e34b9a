package gateway

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/order-dashboard/internal/domain"
)

// channel names installed by the notify triggers in migrations
const (
	ordersChannel      = "orders_changed"
	departmentsChannel = "departments_changed"
)

// SubscribeOrders registers a push-invalidate subscription on the orders
// table: every remote change triggers a full refetch delivered to callback.
// Delivery is at-least-once and carries the whole collection, never a diff.
// The returned cancel function stops delivery; it is safe to call more than
// once.
func (g *Gateway) SubscribeOrders(callback func([]domain.Order)) (func(), error) {
	return g.listen(ordersChannel, func(ctx context.Context) {
		orders, err := g.ListOrders(ctx)
		if err != nil {
			g.logger.Warn("refetch orders after change signal", zap.Error(err))
			return
		}
		callback(orders)
	})
}

// SubscribeDepartments registers a push-invalidate subscription on the
// departments table with the same contract as SubscribeOrders.
func (g *Gateway) SubscribeDepartments(callback func([]domain.Department)) (func(), error) {
	return g.listen(departmentsChannel, func(ctx context.Context) {
		depts, err := g.ListDepartments(ctx)
		if err != nil {
			g.logger.Warn("refetch departments after change signal", zap.Error(err))
			return
		}
		callback(depts)
	})
}

// Subscribe is the invalidation-only subscription form: it registers a
// change listener by table name and fires the callback with no payload,
// for callers that only need to drop a cache or schedule their own
// refetch. SubscribeOrders and SubscribeDepartments are the full form
// and deliver the freshly refetched collection with every change.
func (g *Gateway) Subscribe(table string, callback func()) (func(), error) {
	switch table {
	case TableOrders:
		return g.listen(ordersChannel, func(context.Context) { callback() })
	case TableDepartments:
		return g.listen(departmentsChannel, func(context.Context) { callback() })
	default:
		return nil, fmt.Errorf("unknown table %q", table)
	}
}

func (g *Gateway) listen(channel string, deliver func(context.Context)) (func(), error) {
	if g.pool == nil {
		g.logger.Warn("remote store disabled; change subscription inactive", zap.String("channel", channel))
		return func() {}, nil
	}

	ctx, cancel := context.WithCancel(g.lifecycleCtx)
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		for {
			if err := g.listenOnce(ctx, channel, deliver); err != nil {
				if ctx.Err() != nil {
					return
				}
				g.logger.Warn("change listener lost connection; retrying",
					zap.String("channel", channel), zap.Error(err))
				select {
				case <-time.After(2 * time.Second):
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return cancel, nil
}

func (g *Gateway) listenOnce(ctx context.Context, channel string, deliver func(context.Context)) error {
	conn, err := g.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+channel); err != nil {
		return err
	}

	for {
		if _, err := conn.Conn().WaitForNotification(ctx); err != nil {
			return err
		}
		deliver(ctx)
	}
}
