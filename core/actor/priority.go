package actor

import "fmt"

// Priority orders envelopes in the mailbox. Higher tiers are extracted first;
// submission order breaks ties within a tier.
type Priority uint8

const (
	// PriorityLow is for work that may wait behind everything else.
	PriorityLow Priority = iota
	// PriorityMedium is the tier assigned when a message declares nothing.
	PriorityMedium
	// PriorityHigh overtakes queued low and medium envelopes.
	PriorityHigh
	// PriorityShutdown is the top tier, meant for terminal messages such as
	// [Stop] so that a stop request overtakes all regular traffic.
	PriorityShutdown
)

// DefaultPriority applies to messages that neither implement [Prioritized]
// nor have a tier bound in a dispatch table.
const DefaultPriority = PriorityMedium

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityMedium:
		return "medium"
	case PriorityHigh:
		return "high"
	case PriorityShutdown:
		return "shutdown"
	default:
		return fmt.Sprintf("priority(%d)", uint8(p))
	}
}

// Prioritized is implemented by messages that declare their own tier.
type Prioritized interface {
	Priority() Priority
}

// PriorityOf returns the tier msg declares via [Prioritized], or
// DefaultPriority when it declares none.
func PriorityOf(msg any) Priority {
	if p, ok := msg.(Prioritized); ok {
		return p.Priority()
	}
	return DefaultPriority
}
