package circuitbreaker

// State of a breaker. String values double as the `state` label of the
// exported breaker gauge.
type State int

const (
	// StateClosed - storage reads pass through
	StateClosed State = iota

	// StateOpen - evaluations fail fast with ErrOpen and answer unavailable
	StateOpen

	// StateHalfOpen - cooldown elapsed, the next evaluation is the trial read
	StateHalfOpen
)

// States in export order
var States = []State{StateClosed, StateOpen, StateHalfOpen}

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}
