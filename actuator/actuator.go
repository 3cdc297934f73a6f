// Package actuator implements the output devices of the rig behind one
// per-cycle interface, so a scheduler can drive a heterogeneous set of them
// uniformly.
package actuator

import "context"

// Action selects what an actuator does on a cycle. Codes an actuator does not
// know are ignored.
type Action int

const (
	// ActionNone does nothing.
	ActionNone Action = 0
	// ActionPrimary produces the actuator's primary effect: extend a probe,
	// play a tone.
	ActionPrimary Action = 1
)

// State is the logical position of a probe.
type State int

const (
	Retracted State = iota
	Extended
)

func (s State) String() string {
	switch s {
	case Retracted:
		return "RETRACTED"
	case Extended:
		return "EXTENDED"
	default:
		return "INVALID STATE"
	}
}

// Actuator is an output device driven once per scheduling cycle.
type Actuator interface {
	// Advance performs the behavior mapped to action. It may block while a
	// motion sequence completes.
	Advance(ctx context.Context, action Action)
	// OnPeriodEnd is called once at the end of every stimulus period.
	OnPeriodEnd(ctx context.Context)
	// Identify returns the kind of actuator, for diagnostics only.
	Identify() string
}

// Stater is implemented by actuators with a logical position.
type Stater interface {
	State() State
}

// dispatch runs the handler registered for action, if any.
func dispatch(ctx context.Context, table map[Action]func(context.Context), action Action) {
	if handler, ok := table[action]; ok {
		handler(ctx)
	}
}

func noop(context.Context) {}
