package stepper

import (
	"context"
	"time"

	"github.com/ardufsm/rigd/machine"
	"github.com/go-errors/errors"
	"github.com/juju/clock"
	"periph.io/x/periph/conn/gpio"
)

// check Driver compliance to its interface during compile time
var _ Stepper = (*Driver)(nil)

type DriverConfig struct {
	Pins    Pins
	Clock   clock.Clock
	StepPin int
	DirPin  int
	// HalfDelay is the half period of a full step. Each microstep pulse is
	// high and low for HalfDelay / Microstep.
	HalfDelay time.Duration
	Microstep int
}

// Driver pulses the STEP input of a stepper motor driver.
type Driver struct {
	pins     Pins
	clock    clock.Clock
	stepPin  int
	dirPin   int
	interval time.Duration
}

func NewDriver(config *DriverConfig) (*Driver, error) {
	if config.Microstep <= 0 {
		return nil, errors.New("microstep divisor must be positive")
	}

	if config.HalfDelay < 0 {
		return nil, errors.New("half delay must not be negative")
	}

	d := &Driver{
		pins:     config.Pins,
		clock:    config.Clock,
		stepPin:  config.StepPin,
		dirPin:   config.DirPin,
		interval: (config.HalfDelay / time.Duration(config.Microstep)).Truncate(time.Microsecond),
	}

	if d.clock == nil {
		d.clock = clock.WallClock
	}

	for _, pin := range []int{d.stepPin, d.dirPin} {
		if err := d.pins.SetPinMode(pin, machine.Output); err != nil {
			return nil, errors.Errorf("could not configure pin %v: %v", pin, err)
		}
	}

	return d, nil
}

// PulsePeriod returns the period of the square wave on the step pin.
func (d *Driver) PulsePeriod() time.Duration {
	return 2 * d.interval
}

// SetDirection sets the direction pin, high for forward.
func (d *Driver) SetDirection(dir Direction) error {
	level := gpio.High
	if dir == Reverse {
		level = gpio.Low
	}

	if err := d.pins.WriteDigital(d.dirPin, level); err != nil {
		return errors.Errorf("could not set direction: %v", err)
	}

	return nil
}

// Pulse issues one symmetric pulse on the step pin.
func (d *Driver) Pulse(ctx context.Context) error {
	if err := d.pins.WriteDigital(d.stepPin, gpio.High); err != nil {
		return errors.Errorf("could not raise step pin: %v", err)
	}

	if err := Wait(ctx, d.clock, d.interval); err != nil {
		_ = d.pins.WriteDigital(d.stepPin, gpio.Low)
		return err
	}

	if err := d.pins.WriteDigital(d.stepPin, gpio.Low); err != nil {
		return errors.Errorf("could not lower step pin: %v", err)
	}

	return Wait(ctx, d.clock, d.interval)
}

func (d *Driver) StepOnce(ctx context.Context) error {
	return d.Pulse(ctx)
}
