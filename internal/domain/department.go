package domain

// Agent models a support agent. CompletedOrders and TotalOrders are derived
// counters: caches recomputable from the order set, never authoritative.
type Agent struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Extension       string `json:"extension"`
	CompletedOrders int    `json:"completed_orders"`
	TotalOrders     int    `json:"total_orders"`
}

// Department is a named grouping of agents. Name acts as the primary key;
// an agent belongs to exactly one department at a time.
type Department struct {
	Name   string  `json:"name"`
	Agents []Agent `json:"agents"`
}

// AgentByName returns a pointer into the department's agent slice, or nil.
func (d *Department) AgentByName(name string) *Agent {
	for i := range d.Agents {
		if d.Agents[i].Name == name {
			return &d.Agents[i]
		}
	}
	return nil
}

// Category is a named order type managed through settings.
type Category struct {
	Name string `json:"name"`
}
