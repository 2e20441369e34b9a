package domain

// DashboardStats summarizes the order set. It is always derivable from the
// orders themselves; any persisted copy is a cache that a fresh computation
// may overwrite.
type DashboardStats struct {
	TotalOrders     int `json:"total_orders"`
	CompletedOrders int `json:"completed_orders"`
	PendingOrders   int `json:"pending_orders"`
}

// ComputeStats derives dashboard counts from an order set. Pending covers
// every non-completed status, so Total == Completed + Pending always holds.
func ComputeStats(orders []Order) DashboardStats {
	stats := DashboardStats{TotalOrders: len(orders)}
	for _, order := range orders {
		if order.Status == OrderStatusCompleted {
			stats.CompletedOrders++
		} else {
			stats.PendingOrders++
		}
	}
	return stats
}
