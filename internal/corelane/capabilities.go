package corelane

// ExecutionSemantics is the totally ordered lattice a Lane declares for how
// it treats an accepted job once execution begins. Composition (sharded
// lanes) takes the weakest of its shards, so the zero value must sort as
// the strongest.
type ExecutionSemantics int

const (
	// SemanticsGuaranteed: every accepted job runs to completion, even
	// across shutdown. The strongest point in the lattice.
	SemanticsGuaranteed ExecutionSemantics = iota
	// SemanticsBestEffort: a job may be abandoned without notice under
	// extreme conditions. No runtime in this module declares it; Meet
	// returns it for an empty set of capabilities.
	SemanticsBestEffort
	// SemanticsAbandonOnExecutionTimeout: a job's worker is abandoned
	// (not cancelled) once it exceeds its execution timeout; the caller
	// still receives a timeout error exactly once. The weakest point.
	SemanticsAbandonOnExecutionTimeout
)

func (s ExecutionSemantics) String() string {
	switch s {
	case SemanticsGuaranteed:
		return "guaranteed"
	case SemanticsBestEffort:
		return "bestEffort"
	case SemanticsAbandonOnExecutionTimeout:
		return "abandonOnExecutionTimeout"
	default:
		return "unknown"
	}
}

// Weaker reports whether s is weaker than (sorts after) other in the
// semantics lattice.
func (s ExecutionSemantics) Weaker(other ExecutionSemantics) bool {
	return s > other
}

// Capabilities is a Lane's truthful, self-declared contract. Consumers are
// entitled to rely on it — e.g. refusing SemanticsAbandonOnExecutionTimeout
// for state-mutating operations.
type Capabilities struct {
	// ExecutesOnDedicatedThreads is true iff blocking syscalls run on
	// threads that do not contend with the caller's scheduler.
	ExecutesOnDedicatedThreads bool
	// Semantics is this Lane's point in the execution-semantics lattice.
	Semantics ExecutionSemantics
}

// Meet returns the weakest-wins combination of a set of Capabilities, used
// by the Sharded Lane to declare its own capability honestly.
func Meet(caps ...Capabilities) Capabilities {
	if len(caps) == 0 {
		return Capabilities{ExecutesOnDedicatedThreads: false, Semantics: SemanticsBestEffort}
	}
	out := caps[0]
	for _, c := range caps[1:] {
		if !c.ExecutesOnDedicatedThreads {
			out.ExecutesOnDedicatedThreads = false
		}
		if c.Semantics.Weaker(out.Semantics) {
			out.Semantics = c.Semantics
		}
	}
	return out
}
