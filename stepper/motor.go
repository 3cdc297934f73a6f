package stepper

import (
	"context"
	"time"

	"github.com/ardufsm/rigd/machine"
	"github.com/ardufsm/rigd/phase"
	"github.com/go-errors/errors"
	"github.com/juju/clock"
)

// check Motor compliance to its interface during compile time
var _ Stepper = (*Motor)(nil)

var ErrInvalidSpeed = errors.New("speed must be a positive number of revolutions per minute")

type MotorConfig struct {
	Pins     Pins
	Clock    clock.Clock
	Topology phase.Topology
	// Leads are the pins wired to the windings, in table order.
	Leads              []int
	StepsPerRevolution int
	// Speed in revolutions per minute.
	Speed int
}

// Motor drives a motor whose windings are wired directly to GPIO pins.
type Motor struct {
	pins               Pins
	clock              clock.Clock
	topology           phase.Topology
	leads              []int
	stepsPerRevolution int
	stepDelay          time.Duration
	stepNumber         int
	direction          Direction
	lastStep           time.Time
}

func NewMotor(config *MotorConfig) (*Motor, error) {
	if !config.Topology.Valid() {
		return nil, errors.Errorf("unsupported winding topology %d", int(config.Topology))
	}

	if len(config.Leads) != config.Topology.Leads() {
		return nil, errors.Errorf("%v motor needs %d leads, got %d",
			config.Topology, config.Topology.Leads(), len(config.Leads))
	}

	if config.StepsPerRevolution <= 0 {
		return nil, errors.New("steps per revolution must be positive")
	}

	m := &Motor{
		pins:               config.Pins,
		clock:              config.Clock,
		topology:           config.Topology,
		leads:              append([]int(nil), config.Leads...),
		stepsPerRevolution: config.StepsPerRevolution,
	}

	if m.clock == nil {
		m.clock = clock.WallClock
	}

	if err := m.SetSpeed(config.Speed); err != nil {
		return nil, err
	}

	for _, lead := range m.leads {
		if err := m.pins.SetPinMode(lead, machine.Output); err != nil {
			return nil, errors.Errorf("could not configure lead %v: %v", lead, err)
		}
	}

	return m, nil
}

// SetSpeed sets the speed in revolutions per minute. A non-positive speed is
// rejected and the previous speed is kept.
func (m *Motor) SetSpeed(rpm int) error {
	if rpm <= 0 {
		return ErrInvalidSpeed
	}

	m.stepDelay = time.Duration(60*1000*1000/m.stepsPerRevolution/rpm) * time.Microsecond

	return nil
}

// Delay returns the time between two steps at the configured speed.
func (m *Motor) Delay() time.Duration {
	return m.stepDelay
}

// Position returns the current step number within one revolution.
func (m *Motor) Position() int {
	return m.stepNumber
}

// Step moves the motor count steps in dir, keeping at least Delay between
// two steps. It blocks until all steps are taken or ctx is done.
func (m *Motor) Step(ctx context.Context, count int, dir Direction) error {
	m.direction = dir

	for left := count; left > 0; {
		now := m.clock.Now()

		// move only if the appropriate delay has passed
		if elapsed := now.Sub(m.lastStep); elapsed < m.stepDelay {
			if err := WaitUntil(ctx, m.clock, m.lastStep.Add(m.stepDelay)); err != nil {
				return err
			}
			continue
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		m.lastStep = now

		if m.direction == Forward {
			m.stepNumber++
			if m.stepNumber == m.stepsPerRevolution {
				m.stepNumber = 0
			}
		} else {
			if m.stepNumber == 0 {
				m.stepNumber = m.stepsPerRevolution
			}
			m.stepNumber--
		}

		left--

		if err := m.apply(m.stepNumber % m.topology.CycleLength()); err != nil {
			return err
		}
	}

	return nil
}

func (m *Motor) apply(step int) error {
	for i, level := range phase.Pattern(m.topology, step) {
		if err := m.pins.WriteDigital(m.leads[i], level); err != nil {
			return errors.Errorf("could not write lead %v: %v", m.leads[i], err)
		}
	}

	return nil
}

func (m *Motor) SetDirection(dir Direction) error {
	m.direction = dir
	return nil
}

func (m *Motor) StepOnce(ctx context.Context) error {
	return m.Step(ctx, 1, m.direction)
}
