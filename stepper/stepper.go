package stepper

import (
	"context"

	"github.com/ardufsm/rigd/machine"
	"periph.io/x/periph/conn/gpio"
)

// Direction of rotation.
type Direction int

const (
	Forward Direction = iota
	Reverse
)

func (d Direction) String() string {
	switch d {
	case Forward:
		return "FORWARD"
	case Reverse:
		return "REVERSE"
	default:
		return "INVALID DIRECTION"
	}
}

// Pins is the part of the machine a stepper needs.
type Pins interface {
	SetPinMode(pin int, mode machine.PinMode) error
	WriteDigital(pin int, level gpio.Level) error
}

// Stepper moves a motor one step at a time in a previously set direction.
type Stepper interface {
	SetDirection(dir Direction) error
	StepOnce(ctx context.Context) error
}
