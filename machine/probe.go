package machine

import (
	"sync"

	"periph.io/x/periph/conn/gpio"
)

// ProbeConfig describes a simulated STEP/DIR driven probe whose position
// sensor reads Free until the probe has advanced ContactPulses pulses, and
// Contact from then on.
type ProbeConfig struct {
	StepPin       int
	DirPin        int
	SensorPin     int
	ContactPulses int
	Free          int
	Contact       int
}

// Probe tracks the simulated position of a probe on a MockMachine.
type Probe struct {
	mu       sync.Mutex
	machine  *MockMachine
	cfg      ProbeConfig
	position int
}

// SimulateProbe attaches a probe simulation to the machine. A pulse with the
// direction pin high moves the probe forward, low moves it back.
func (m *MockMachine) SimulateProbe(cfg ProbeConfig) *Probe {
	p := &Probe{
		machine: m,
		cfg:     cfg,
	}

	p.update()

	last := gpio.Low
	m.OnWrite(func(pin int, level gpio.Level) {
		if pin != cfg.StepPin {
			return
		}

		rising := level == gpio.High && last == gpio.Low
		last = level
		if !rising {
			return
		}

		p.mu.Lock()
		if m.Level(cfg.DirPin) == gpio.High {
			p.position++
		} else if p.position > 0 {
			p.position--
		}
		p.mu.Unlock()

		p.update()
	})

	return p
}

// Position returns the number of net forward pulses.
func (p *Probe) Position() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.position
}

func (p *Probe) update() {
	p.mu.Lock()
	reading := p.cfg.Free
	if p.position >= p.cfg.ContactPulses {
		reading = p.cfg.Contact
	}
	p.mu.Unlock()

	p.machine.SetAnalog(p.cfg.SensorPin, reading)
}
