// Package projection computes the kanban view of the order set. Everything
// here is a pure function of (orders, view state): it never mutates the
// orders it is given and never touches persistence.
package projection

import (
	"sort"
	"strings"

	"github.com/spec-kit/order-dashboard/internal/domain"
)

// SortOption selects the comparator.
type SortOption string

const (
	SortByAgent  SortOption = "agent"
	SortByDate   SortOption = "date"
	SortByTime   SortOption = "time"
	SortByTicket SortOption = "ticket"
)

// SortDirection flips the comparator's sign.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// SearchField selects which order field the search term runs against.
type SearchField string

const (
	SearchByCustomer SearchField = "customer"
	SearchByAgent    SearchField = "agent"
	SearchByTicket   SearchField = "ticket"
)

// Search is the search box state.
type Search struct {
	Term  string
	Field SearchField
}

// StatusFilter holds the per-status visibility toggles.
type StatusFilter struct {
	Unassigned bool
	InProgress bool
	Completed  bool
}

// Filters is the filter panel state. An empty CustomerName or AssignedTo
// disables that predicate; Priority is a membership set.
type Filters struct {
	CustomerName string
	AssignedTo   string
	Status       StatusFilter
	Priority     []domain.OrderPriority
}

// State is the full view state driving a projection.
type State struct {
	Search        Search
	Filters       Filters
	SortBy        SortOption
	SortDirection SortDirection
	ShowCompleted bool
}

// DefaultState mirrors a freshly opened dashboard: everything visible,
// sorted by ticket number ascending, completed column hidden.
func DefaultState() State {
	return State{
		Search: Search{Field: SearchByCustomer},
		Filters: Filters{
			Status:   StatusFilter{Unassigned: true, InProgress: true, Completed: true},
			Priority: []domain.OrderPriority{domain.OrderPriorityLow, domain.OrderPriorityMedium, domain.OrderPriorityHigh},
		},
		SortBy:        SortByTicket,
		SortDirection: SortAsc,
	}
}

// Column is one kanban lane of the projected view.
type Column struct {
	Title  string
	Status domain.OrderStatus
	Orders []domain.Order
}

// Project filters, sorts and buckets the order set. The Unassigned column
// is omitted entirely when it would be empty; the Completed column appears
// only while ShowCompleted is on, regardless of whether it is empty.
func Project(orders []domain.Order, state State) []Column {
	visible := Apply(orders, state)

	unassigned := ordersWithStatus(visible, domain.OrderStatusUnassigned)
	inProgress := ordersWithStatus(visible, domain.OrderStatusInProgress)

	var columns []Column
	if len(unassigned) > 0 {
		columns = append(columns, Column{Title: "Unassigned", Status: domain.OrderStatusUnassigned, Orders: unassigned})
	}
	columns = append(columns, Column{Title: "In Progress", Status: domain.OrderStatusInProgress, Orders: inProgress})
	if state.ShowCompleted {
		columns = append(columns, Column{
			Title:  "Completed",
			Status: domain.OrderStatusCompleted,
			Orders: ordersWithStatus(visible, domain.OrderStatusCompleted),
		})
	}
	return columns
}

// Apply returns the filtered, sorted order slice without bucketing. The
// input slice is left untouched.
func Apply(orders []domain.Order, state State) []domain.Order {
	filtered := make([]domain.Order, 0, len(orders))
	for _, order := range orders {
		if Matches(&order, state) {
			filtered = append(filtered, order)
		}
	}

	compare := comparator(state.SortBy)
	sort.SliceStable(filtered, func(i, j int) bool {
		c := compare(&filtered[i], &filtered[j])
		if state.SortDirection == SortDesc {
			c = -c
		}
		return c < 0
	})
	return filtered
}

// Matches evaluates every filter predicate; all must hold for the order to
// remain visible.
func Matches(order *domain.Order, state State) bool {
	if term := state.Search.Term; term != "" {
		switch state.Search.Field {
		case SearchByCustomer:
			if !containsFold(order.Details.CustomerName, term) {
				return false
			}
		case SearchByAgent:
			// searching by agent hides unassigned orders
			if order.AssignedTo == "" || !containsFold(order.AssignedTo, term) {
				return false
			}
		case SearchByTicket:
			// ticket numbers match case-sensitively
			if !strings.Contains(order.Details.TicketNumber, term) {
				return false
			}
		}
	}

	if state.Filters.CustomerName != "" && !containsFold(order.Details.CustomerName, state.Filters.CustomerName) {
		return false
	}
	if state.Filters.AssignedTo != "" && order.AssignedTo != state.Filters.AssignedTo {
		return false
	}

	switch order.Status {
	case domain.OrderStatusUnassigned:
		if !state.Filters.Status.Unassigned {
			return false
		}
	case domain.OrderStatusInProgress:
		if !state.Filters.Status.InProgress {
			return false
		}
	case domain.OrderStatusCompleted:
		if !state.Filters.Status.Completed {
			return false
		}
	}

	inSet := false
	for _, priority := range state.Filters.Priority {
		if order.Priority == priority {
			inSet = true
			break
		}
	}
	return inSet
}

// comparator returns the base comparison for the sort option. The date and
// time comparators are newest-first in ascending direction, a quirk the
// dashboard has always had; "time" compares only the hour of day.
func comparator(by SortOption) func(a, b *domain.Order) int {
	switch by {
	case SortByAgent:
		return func(a, b *domain.Order) int {
			return strings.Compare(a.AssignedTo, b.AssignedTo)
		}
	case SortByDate:
		return func(a, b *domain.Order) int {
			return b.CreatedAt.Compare(a.CreatedAt)
		}
	case SortByTime:
		return func(a, b *domain.Order) int {
			return b.CreatedAt.Hour() - a.CreatedAt.Hour()
		}
	default: // ticket
		return func(a, b *domain.Order) int {
			return strings.Compare(a.Details.TicketNumber, b.Details.TicketNumber)
		}
	}
}

func ordersWithStatus(orders []domain.Order, status domain.OrderStatus) []domain.Order {
	var result []domain.Order
	for _, order := range orders {
		if order.Status == status {
			result = append(result, order)
		}
	}
	return result
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
