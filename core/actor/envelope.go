package actor

// Envelope pairs a submitted message with the priority and sequence number
// stamped on it when it entered the actor. Envelopes are not reused.
type Envelope struct {
	// Seq is unique per actor and strictly increasing in arrival order.
	Seq uint64
	// Priority decides mailbox placement ahead of Seq.
	Priority Priority
	// Msg is the caller's payload, opaque to the scheduling core.
	Msg any
}

// less reports whether e must be extracted before other: higher tier first,
// lower sequence first within a tier. Seq is unique, so the order is strict
// and extraction deterministic.
func (e Envelope) less(other Envelope) bool {
	if e.Priority != other.Priority {
		return e.Priority > other.Priority
	}
	return e.Seq < other.Seq
}
