package actuator

import (
	"context"
	"testing"
	"time"

	"github.com/ardufsm/rigd/machine"
	"github.com/ardufsm/rigd/phase"
	"github.com/ardufsm/rigd/rigtest"
	"github.com/ardufsm/rigd/stepper"
	qt "github.com/frankban/quicktest"
	"github.com/go-errors/errors"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"periph.io/x/periph/conn/gpio"
)

const (
	stepPin   = 6
	dirPin    = 7
	sensorPin = 0
	threshold = 500
)

var epoch = time.Date(2016, 6, 7, 12, 0, 0, 0, time.UTC)

type stepperFixture struct {
	actuator *Stepper
	machine  *machine.MockMachine
	clock    *rigtest.Clock
	hook     *test.Hook
}

func newStepperFixture(c *qt.C, tweak func(*StepperConfig)) *stepperFixture {
	clk := rigtest.NewClock(epoch)
	m := machine.NewMockMachine(&machine.MockMachineConfig{Clock: clk})

	driver, err := stepper.NewDriver(&stepper.DriverConfig{
		Pins:      m,
		Clock:     clk,
		StepPin:   stepPin,
		DirPin:    dirPin,
		HalfDelay: 1000 * time.Microsecond,
		Microstep: 4,
	})
	c.Assert(err, qt.IsNil)

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	config := &StepperConfig{
		Stepper:         driver,
		Sensor:          m,
		Clock:           clk,
		SensorPin:       sensorPin,
		SensorThreshold: threshold,
		Microstep:       4,
		RetractAngle:    180,
		Logger:          logger.WithField("system", "test"),
	}
	if tweak != nil {
		tweak(config)
	}

	s, err := NewStepper(config)
	c.Assert(err, qt.IsNil)

	return &stepperFixture{actuator: s, machine: m, clock: clk, hook: hook}
}

func (f *stepperFixture) messages() []string {
	var msgs []string
	for _, e := range f.hook.AllEntries() {
		msgs = append(msgs, e.Message)
	}
	return msgs
}

func TestRetractSteps(t *testing.T) {
	c := qt.New(t)

	c.Assert(RetractSteps(180, 200, 4), qt.Equals, 400)
	c.Assert(RetractSteps(90, 200, 1), qt.Equals, 50)
	c.Assert(RetractSteps(100, 200, 2), qt.Equals, 110)
	c.Assert(RetractSteps(1, 200, 16), qt.Equals, 0)
	c.Assert(RetractSteps(180, 48, 1), qt.Equals, 24)
	c.Assert(RetractSteps(90, 48, 2), qt.Equals, 24)

	f := newStepperFixture(c, nil)
	c.Assert(f.actuator.RetractSteps(), qt.Equals, 400)
}

func TestNewStepperRejectsBadConfig(t *testing.T) {
	c := qt.New(t)
	m := machine.NewMockMachine(&machine.MockMachineConfig{})
	driver, err := stepper.NewDriver(&stepper.DriverConfig{Pins: m, Microstep: 1})
	c.Assert(err, qt.IsNil)

	_, err = NewStepper(&StepperConfig{Stepper: driver, Sensor: m})
	c.Assert(err, qt.ErrorMatches, "microstep divisor must be positive")

	_, err = NewStepper(&StepperConfig{Sensor: m, Microstep: 1})
	c.Assert(err, qt.IsNotNil)

	_, err = NewStepper(&StepperConfig{Stepper: driver, Sensor: m, Microstep: 1, RetractAngle: -10})
	c.Assert(err, qt.IsNotNil)

	_, err = NewStepper(&StepperConfig{Stepper: driver, Sensor: m, Microstep: 1, StepsPerRotation: -48})
	c.Assert(err, qt.ErrorMatches, "invalid steps per rotation -48")
}

func TestExtendWithSensorAlreadyBelowThreshold(t *testing.T) {
	c := qt.New(t)

	f := newStepperFixture(c, nil)
	f.machine.SetAnalog(sensorPin, threshold)

	c.Assert(f.actuator.State(), qt.Equals, Retracted)

	f.actuator.Advance(context.Background(), ActionPrimary)

	c.Assert(f.actuator.State(), qt.Equals, Extended)
	c.Assert(f.machine.Pulses(stepPin), qt.HasLen, 0)
	c.Assert(f.messages(), qt.Contains, "stepper extended")
}

func TestExtendUntilSensorContact(t *testing.T) {
	c := qt.New(t)

	f := newStepperFixture(c, nil)
	probe := f.machine.SimulateProbe(machine.ProbeConfig{
		StepPin:       stepPin,
		DirPin:        dirPin,
		SensorPin:     sensorPin,
		ContactPulses: 37,
		Free:          900,
		Contact:       120,
	})

	f.actuator.Advance(context.Background(), ActionPrimary)

	c.Assert(f.actuator.State(), qt.Equals, Extended)
	c.Assert(probe.Position(), qt.Equals, 37)

	pulses := f.machine.Pulses(stepPin)
	c.Assert(pulses, qt.HasLen, 37)

	// one pulse period plus the settle time between pulses
	for i := 1; i < len(pulses); i++ {
		c.Assert(pulses[i].Sub(pulses[i-1]), qt.Equals, 500*time.Microsecond+time.Millisecond)
	}
}

func TestExtendWhenExtendedIsIgnored(t *testing.T) {
	c := qt.New(t)

	f := newStepperFixture(c, nil)
	f.machine.SetAnalog(sensorPin, 0)
	f.actuator.Advance(context.Background(), ActionPrimary)
	c.Assert(f.actuator.State(), qt.Equals, Extended)

	f.machine.ResetWrites()
	f.machine.SetAnalog(sensorPin, 1000)
	f.actuator.Advance(context.Background(), ActionPrimary)

	c.Assert(f.actuator.State(), qt.Equals, Extended)
	c.Assert(f.machine.Writes(), qt.HasLen, 0)
}

func TestRetractIgnoresSensor(t *testing.T) {
	c := qt.New(t)

	f := newStepperFixture(c, nil)
	f.machine.SetAnalog(sensorPin, 0)
	f.actuator.Advance(context.Background(), ActionPrimary)
	f.machine.ResetWrites()

	// still reads contact, retract is open loop
	f.actuator.OnPeriodEnd(context.Background())

	c.Assert(f.actuator.State(), qt.Equals, Retracted)
	c.Assert(f.machine.Pulses(stepPin), qt.HasLen, 400)
	c.Assert(f.machine.Level(dirPin), qt.IsFalse)
	c.Assert(f.messages(), qt.Contains, "stepper retracted")
}

func TestPeriodEndWhenRetractedIsIgnored(t *testing.T) {
	c := qt.New(t)

	f := newStepperFixture(c, nil)
	f.actuator.OnPeriodEnd(context.Background())

	c.Assert(f.actuator.State(), qt.Equals, Retracted)
	c.Assert(f.machine.Writes(), qt.HasLen, 0)
}

func TestStepperUnknownAction(t *testing.T) {
	c := qt.New(t)

	f := newStepperFixture(c, nil)
	f.machine.SetAnalog(sensorPin, 0)

	f.actuator.Advance(context.Background(), Action(99))
	f.actuator.Advance(context.Background(), ActionNone)

	c.Assert(f.actuator.State(), qt.Equals, Retracted)
	c.Assert(f.machine.Writes(), qt.HasLen, 0)
}

func TestBoundedExtendGivesUp(t *testing.T) {
	c := qt.New(t)

	f := newStepperFixture(c, func(config *StepperConfig) {
		config.MaxExtendSteps = 10
	})
	f.machine.SetAnalog(sensorPin, 1023)

	f.actuator.Advance(context.Background(), ActionPrimary)

	c.Assert(f.actuator.State(), qt.Equals, Retracted)
	c.Assert(f.machine.Pulses(stepPin), qt.HasLen, 10)
	c.Assert(f.hook.LastEntry().Level, qt.Equals, logrus.WarnLevel)
}

func TestExtendCancelled(t *testing.T) {
	c := qt.New(t)

	f := newStepperFixture(c, nil)
	f.machine.SetAnalog(sensorPin, 1023)

	ctx, cancel := context.WithCancel(context.Background())
	pulses := 0
	f.machine.OnWrite(func(pin int, _ gpio.Level) {
		if pin == stepPin {
			pulses++
			if pulses == 6 {
				cancel()
			}
		}
	})

	f.actuator.Advance(ctx, ActionPrimary)

	c.Assert(f.actuator.State(), qt.Equals, Retracted)
	c.Assert(f.hook.LastEntry().Level, qt.Equals, logrus.ErrorLevel)
}

type failingSensor struct{}

func (failingSensor) ReadAnalog(pin int) (int, error) {
	return 0, errors.New("adc unplugged")
}

func TestExtendSensorFailure(t *testing.T) {
	c := qt.New(t)

	f := newStepperFixture(c, func(config *StepperConfig) {
		config.Sensor = failingSensor{}
	})

	f.actuator.Advance(context.Background(), ActionPrimary)

	c.Assert(f.actuator.State(), qt.Equals, Retracted)
	c.Assert(f.machine.Pulses(stepPin), qt.HasLen, 0)
}

// readings returns a fixed sequence of sensor values, repeating the last.
type readings struct {
	values []int
	reads  int
}

func (r *readings) ReadAnalog(pin int) (int, error) {
	i := r.reads
	if i >= len(r.values) {
		i = len(r.values) - 1
	}
	r.reads++
	return r.values[i], nil
}

func TestPhaseMotorProbe(t *testing.T) {
	c := qt.New(t)

	clk := rigtest.NewClock(epoch)
	m := machine.NewMockMachine(&machine.MockMachineConfig{Clock: clk})
	leads := []int{8, 9, 10, 11}

	motor, err := stepper.NewMotor(&stepper.MotorConfig{
		Pins:               m,
		Clock:              clk,
		Topology:           phase.FourPhase,
		Leads:              leads,
		StepsPerRevolution: 200,
		Speed:              60,
	})
	c.Assert(err, qt.IsNil)

	s, err := NewStepper(&StepperConfig{
		Stepper:         motor,
		Sensor:          &readings{values: []int{800, 800, 800, 300}},
		Clock:           clk,
		SensorThreshold: threshold,
		Microstep:       1,
		RetractAngle:    90,
	})
	c.Assert(err, qt.IsNil)

	s.Advance(context.Background(), ActionPrimary)
	c.Assert(s.State(), qt.Equals, Extended)
	c.Assert(motor.Position(), qt.Equals, 3)

	s.OnPeriodEnd(context.Background())
	c.Assert(s.State(), qt.Equals, Retracted)
	c.Assert(motor.Position(), qt.Equals, (3-50+200)%200)
}

func TestPhaseMotorRetractsByItsOwnRotation(t *testing.T) {
	c := qt.New(t)

	clk := rigtest.NewClock(epoch)
	m := machine.NewMockMachine(&machine.MockMachineConfig{Clock: clk})

	motor, err := stepper.NewMotor(&stepper.MotorConfig{
		Pins:               m,
		Clock:              clk,
		Topology:           phase.FourPhase,
		Leads:              []int{8, 9, 10, 11},
		StepsPerRevolution: 48,
		Speed:              60,
	})
	c.Assert(err, qt.IsNil)

	s, err := NewStepper(&StepperConfig{
		Stepper:          motor,
		Sensor:           &readings{values: []int{800, 800, 300}},
		Clock:            clk,
		SensorThreshold:  threshold,
		Microstep:        1,
		RetractAngle:     180,
		StepsPerRotation: 48,
	})
	c.Assert(err, qt.IsNil)
	c.Assert(s.RetractSteps(), qt.Equals, 24)

	s.Advance(context.Background(), ActionPrimary)
	c.Assert(s.State(), qt.Equals, Extended)
	c.Assert(motor.Position(), qt.Equals, 2)

	s.OnPeriodEnd(context.Background())
	c.Assert(s.State(), qt.Equals, Retracted)
	c.Assert(motor.Position(), qt.Equals, (2-24+48)%48)
}
