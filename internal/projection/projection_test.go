package projection

import (
	"testing"
	"time"

	"github.com/spec-kit/order-dashboard/internal/domain"
)

func makeOrder(id, ticket, customer, agent string, status domain.OrderStatus, priority domain.OrderPriority, createdAt time.Time) domain.Order {
	return domain.Order{
		ID:         id,
		Title:      "order " + id,
		Status:     status,
		Priority:   priority,
		AssignedTo: agent,
		Details:    domain.OrderDetails{CustomerName: customer, TicketNumber: ticket},
		CreatedAt:  createdAt,
	}
}

func boardFixture() []domain.Order {
	base := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	return []domain.Order{
		makeOrder("o1", "T3", "Alice Smith", "", domain.OrderStatusUnassigned, domain.OrderPriorityHigh, base),
		makeOrder("o2", "T1", "Bob Jones", "Admin", domain.OrderStatusInProgress, domain.OrderPriorityMedium, base.Add(2*time.Hour)),
		makeOrder("o3", "T2", "alice cooper", "Dana", domain.OrderStatusCompleted, domain.OrderPriorityLow, base.Add(5*time.Hour)),
	}
}

func ids(orders []domain.Order) []string {
	out := make([]string, len(orders))
	for i, o := range orders {
		out[i] = o.ID
	}
	return out
}

func equalIDs(got []domain.Order, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i, o := range got {
		if o.ID != want[i] {
			return false
		}
	}
	return true
}

func TestMatchesSearchFields(t *testing.T) {
	orders := boardFixture()

	tests := []struct {
		name  string
		field SearchField
		term  string
		want  []string
	}{
		{"customer case-insensitive", SearchByCustomer, "ALICE", []string{"o3", "o1"}},
		{"agent excludes unassigned", SearchByAgent, "a", []string{"o2", "o3"}},
		{"ticket case-sensitive hit", SearchByTicket, "T1", []string{"o2"}},
		{"ticket case-sensitive miss", SearchByTicket, "t1", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := DefaultState()
			state.Search = Search{Term: tt.term, Field: tt.field}
			got := Apply(orders, state)
			if !equalIDs(got, tt.want) {
				t.Fatalf("got %v, want %v", ids(got), tt.want)
			}
		})
	}
}

func TestMatchesFilters(t *testing.T) {
	orders := boardFixture()

	t.Run("assigned to is exact", func(t *testing.T) {
		state := DefaultState()
		state.Filters.AssignedTo = "Admin"
		got := Apply(orders, state)
		if !equalIDs(got, []string{"o2"}) {
			t.Fatalf("got %v", ids(got))
		}
	})

	t.Run("status toggle hides matching orders", func(t *testing.T) {
		state := DefaultState()
		state.Filters.Status.Completed = false
		got := Apply(orders, state)
		for _, o := range got {
			if o.Status == domain.OrderStatusCompleted {
				t.Fatalf("completed order %s should be filtered out", o.ID)
			}
		}
	})

	t.Run("priority membership", func(t *testing.T) {
		state := DefaultState()
		state.Filters.Priority = []domain.OrderPriority{domain.OrderPriorityHigh}
		got := Apply(orders, state)
		if !equalIDs(got, []string{"o1"}) {
			t.Fatalf("got %v", ids(got))
		}
	})

	t.Run("empty priority set hides everything", func(t *testing.T) {
		state := DefaultState()
		state.Filters.Priority = nil
		if got := Apply(orders, state); len(got) != 0 {
			t.Fatalf("got %v, want empty", ids(got))
		}
	})
}

func TestSortTicket(t *testing.T) {
	orders := boardFixture()

	state := DefaultState()
	got := Apply(orders, state)
	if !equalIDs(got, []string{"o2", "o3", "o1"}) {
		t.Fatalf("asc: got %v", ids(got))
	}

	state.SortDirection = SortDesc
	got = Apply(orders, state)
	if !equalIDs(got, []string{"o1", "o3", "o2"}) {
		t.Fatalf("desc: got %v", ids(got))
	}
}

func TestSortDateNewestFirstAscending(t *testing.T) {
	orders := boardFixture()

	state := DefaultState()
	state.SortBy = SortByDate
	got := Apply(orders, state)
	if !equalIDs(got, []string{"o3", "o2", "o1"}) {
		t.Fatalf("got %v", ids(got))
	}
}

func TestSortTimeComparesHourOnly(t *testing.T) {
	base := time.Date(2024, 3, 10, 14, 0, 0, 0, time.UTC)
	orders := []domain.Order{
		// same hour on different days ties, so stable sort keeps input order
		makeOrder("a", "T1", "C", "", domain.OrderStatusUnassigned, domain.OrderPriorityMedium, base),
		makeOrder("b", "T2", "C", "", domain.OrderStatusUnassigned, domain.OrderPriorityMedium, base.AddDate(0, 0, 3)),
		makeOrder("c", "T3", "C", "", domain.OrderStatusUnassigned, domain.OrderPriorityMedium, base.Add(-2*time.Hour)),
	}

	state := DefaultState()
	state.SortBy = SortByTime
	got := Apply(orders, state)
	if !equalIDs(got, []string{"a", "b", "c"}) {
		t.Fatalf("got %v", ids(got))
	}
}

func TestSortAgentTreatsUnassignedAsEmpty(t *testing.T) {
	orders := boardFixture()

	state := DefaultState()
	state.SortBy = SortByAgent
	got := Apply(orders, state)
	if !equalIDs(got, []string{"o1", "o2", "o3"}) {
		t.Fatalf("got %v", ids(got))
	}
}

func TestProjectColumns(t *testing.T) {
	orders := boardFixture()

	t.Run("completed hidden by default", func(t *testing.T) {
		columns := Project(orders, DefaultState())
		if len(columns) != 2 {
			t.Fatalf("got %d columns", len(columns))
		}
		if columns[0].Title != "Unassigned" || columns[1].Title != "In Progress" {
			t.Fatalf("unexpected columns %q %q", columns[0].Title, columns[1].Title)
		}
	})

	t.Run("show completed adds the column even when empty", func(t *testing.T) {
		state := DefaultState()
		state.ShowCompleted = true
		state.Filters.Status.Completed = false
		columns := Project(orders, state)
		last := columns[len(columns)-1]
		if last.Title != "Completed" || len(last.Orders) != 0 {
			t.Fatalf("got %q with %d orders", last.Title, len(last.Orders))
		}
	})

	t.Run("unassigned column omitted when empty", func(t *testing.T) {
		state := DefaultState()
		state.Filters.Status.Unassigned = false
		columns := Project(orders, state)
		if len(columns) != 1 || columns[0].Title != "In Progress" {
			t.Fatalf("got %d columns, first %q", len(columns), columns[0].Title)
		}
	})

	t.Run("in progress column always present", func(t *testing.T) {
		columns := Project(nil, DefaultState())
		if len(columns) != 1 || columns[0].Title != "In Progress" {
			t.Fatalf("got %d columns", len(columns))
		}
	})
}

func TestApplyLeavesInputUntouched(t *testing.T) {
	orders := boardFixture()
	original := ids(orders)

	state := DefaultState()
	state.SortBy = SortByDate
	_ = Apply(orders, state)

	if !equalIDs(orders, original) {
		t.Fatalf("input reordered: %v", ids(orders))
	}
}

func TestExpandStateToggle(t *testing.T) {
	expand := NewExpandState()
	if expand.Expanded("o1") {
		t.Fatal("new state should start collapsed")
	}
	expand.Toggle("o1")
	if !expand.Expanded("o1") {
		t.Fatal("toggle should expand")
	}
	expand.Toggle("o1")
	if expand.Expanded("o1") {
		t.Fatal("second toggle should collapse")
	}
}
