package client

import "time"

// Phase is the point in a modifying command where settling happens.
type Phase int

const (
	// BeforeResponse runs after the request is written, before reading.
	BeforeResponse Phase = iota
	// AfterResponse runs after a successful response, before returning.
	AfterResponse
)

func (p Phase) String() string {
	if p == AfterResponse {
		return "after"
	}
	return "before"
}

// Settler gives the peer time to apply a state-modifying command.
// It is only called for commands classified as modifying.
type Settler interface {
	Settle(phase Phase, command string)
}

// FixedSettle sleeps for Delay in both phases.
type FixedSettle struct {
	Delay time.Duration
}

func (s FixedSettle) Settle(Phase, string) {
	time.Sleep(s.Delay)
}

// NoSettle never waits.
type NoSettle struct{}

func (NoSettle) Settle(Phase, string) {}
