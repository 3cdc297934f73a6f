package machine

import (
	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/physic"
)

// PinMode is the direction a pin is configured for.
type PinMode int

const (
	Input PinMode = iota
	Output
)

func (m PinMode) String() string {
	switch m {
	case Input:
		return "INPUT"
	case Output:
		return "OUTPUT"
	default:
		return "INVALID PIN MODE"
	}
}

// Machine is the digital and analog I/O of the rig. Pins are addressed by
// their board number. All calls are synchronous.
type Machine interface {
	Start() error
	Stop() error
	SetPinMode(pin int, mode PinMode) error
	WriteDigital(pin int, level gpio.Level) error
	ReadAnalog(pin int) (int, error)
	StartTone(pin int, f physic.Frequency) error
	StopTone(pin int) error
}
