package circuitbreaker

import (
	"time"

	"github.com/sony/gobreaker"
)

// State is the circuit breaker state.
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

func fromGobreaker(s gobreaker.State) State {
	switch s {
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	case gobreaker.StateOpen:
		return StateOpen
	default:
		return StateClosed
	}
}

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// MarshalText renders the state by name in JSON output.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// StateChange describes a single breaker transition.
type StateChange struct {
	Name string
	From State
	To   State
	At   time.Time
}

// Stats is a point-in-time snapshot of a breaker.
// Counters cover the period since the breaker was created or last closed.
type Stats struct {
	Name      string    `json:"name"`
	State     State     `json:"state"`
	Successes uint64    `json:"successes"`
	Failures  uint64    `json:"failures"`
	Timeouts  uint64    `json:"timeouts"`
	Fallbacks uint64    `json:"fallbacks"`
	Rejects   uint64    `json:"rejects"`
	LastUsed  time.Time `json:"last_used"`
}
