package projection

// ExpandState tracks which order cards have their checklist open. It is
// plain view state owned by a single dashboard session.
type ExpandState map[string]struct{}

// NewExpandState returns an empty expand set.
func NewExpandState() ExpandState {
	return make(ExpandState)
}

// Toggle flips the expanded flag for an order card.
func (e ExpandState) Toggle(orderID string) {
	if _, ok := e[orderID]; ok {
		delete(e, orderID)
	} else {
		e[orderID] = struct{}{}
	}
}

// Expanded reports whether an order card's checklist is open.
func (e ExpandState) Expanded(orderID string) bool {
	_, ok := e[orderID]
	return ok
}
