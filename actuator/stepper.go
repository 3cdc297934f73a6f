package actuator

import (
	"context"
	"math"
	"time"

	"github.com/ardufsm/rigd/stepper"
	"github.com/go-errors/errors"
	"github.com/juju/clock"
)

// check Stepper compliance to its interface during compile time
var _ Actuator = (*Stepper)(nil)
var _ Stater = (*Stepper)(nil)

const (
	StepperKind = "stepper"

	defaultSettle = time.Millisecond
)

// Sensor reads the probe position sensor.
type Sensor interface {
	ReadAnalog(pin int) (int, error)
}

type StepperConfig struct {
	Stepper stepper.Stepper
	Sensor  Sensor
	Clock   clock.Clock
	// SensorPin is read while extending. The probe is extended once the
	// reading is at or below SensorThreshold.
	SensorPin       int
	SensorThreshold int
	// Microstep is the microstep divisor of the driver, 1 for full steps.
	Microstep int
	// RetractAngle is the rotation in degrees used to retract the probe.
	RetractAngle int
	// StepsPerRotation is the number of full steps of the motor, 200 if zero.
	StepsPerRotation int
	// Settle is the pause after every step, 1ms if zero.
	Settle time.Duration
	// MaxExtendSteps bounds the extend sequence when positive. By default the
	// sequence waits for the sensor indefinitely.
	MaxExtendSteps int
	Logger         Logger
}

// Stepper is a motorized probe extended until its sensor reports contact
// and retracted by a fixed rotation.
type Stepper struct {
	log            Logger
	motor          stepper.Stepper
	sensor         Sensor
	clock          clock.Clock
	sensorPin      int
	threshold      int
	settle         time.Duration
	maxExtendSteps int
	retractSteps   int
	state          State
	actions        map[Action]func(context.Context)
}

// RetractSteps returns the number of microsteps for a rotation of angle
// degrees on a motor with stepsPerRotation full steps.
func RetractSteps(angle int, stepsPerRotation int, microstep int) int {
	return int(math.Floor(float64(angle)/360.0*float64(stepsPerRotation))) * microstep
}

func NewStepper(config *StepperConfig) (*Stepper, error) {
	if config.Stepper == nil {
		return nil, errors.New("stepper needs a motor")
	}

	if config.Sensor == nil {
		return nil, errors.New("stepper needs a sensor")
	}

	if config.Microstep <= 0 {
		return nil, errors.New("microstep divisor must be positive")
	}

	if config.RetractAngle < 0 {
		return nil, errors.Errorf("invalid retract angle %v", config.RetractAngle)
	}

	stepsPerRotation := config.StepsPerRotation
	if stepsPerRotation == 0 {
		stepsPerRotation = stepper.FullStepsPerRotation
	} else if stepsPerRotation < 0 {
		return nil, errors.Errorf("invalid steps per rotation %v", stepsPerRotation)
	}

	s := &Stepper{
		motor:          config.Stepper,
		sensor:         config.Sensor,
		clock:          config.Clock,
		sensorPin:      config.SensorPin,
		threshold:      config.SensorThreshold,
		settle:         config.Settle,
		maxExtendSteps: config.MaxExtendSteps,
		retractSteps:   RetractSteps(config.RetractAngle, stepsPerRotation, config.Microstep),
		state:          Retracted,
	}

	if config.Logger != nil {
		s.log = config.Logger
	} else {
		s.log = noopLogger{}
	}

	if s.clock == nil {
		s.clock = clock.WallClock
	}

	if s.settle == 0 {
		s.settle = defaultSettle
	}

	s.actions = map[Action]func(context.Context){
		ActionNone:    noop,
		ActionPrimary: s.extend,
	}

	return s, nil
}

func (s *Stepper) Advance(ctx context.Context, action Action) {
	dispatch(ctx, s.actions, action)
}

func (s *Stepper) OnPeriodEnd(ctx context.Context) {
	s.retract(ctx)
}

func (s *Stepper) Identify() string {
	return StepperKind
}

func (s *Stepper) State() State {
	return s.state
}

// RetractSteps returns the number of steps of every retract sequence.
func (s *Stepper) RetractSteps() int {
	return s.retractSteps
}

func (s *Stepper) extend(ctx context.Context) {
	if s.state != Retracted {
		return
	}

	if err := s.motor.SetDirection(stepper.Forward); err != nil {
		s.log.Errorf("Could not extend stepper: %v", err)
		return
	}

	steps := 0
	for {
		reading, err := s.sensor.ReadAnalog(s.sensorPin)
		if err != nil {
			s.log.Errorf("Could not read sensor on pin %v: %v", s.sensorPin, err)
			return
		}

		if reading <= s.threshold {
			break
		}

		if s.maxExtendSteps > 0 && steps >= s.maxExtendSteps {
			s.log.Warnf("Sensor on pin %v still reads %v after %v steps, giving up extending",
				s.sensorPin, reading, steps)
			return
		}

		if err := s.step(ctx); err != nil {
			s.log.Errorf("Stopped extending stepper after %v steps: %v", steps, err)
			return
		}

		steps++
	}

	s.log.Infof("stepper extended")
	s.log.Debugf("Extended after %v steps", steps)
	s.state = Extended
}

func (s *Stepper) retract(ctx context.Context) {
	if s.state != Extended {
		return
	}

	if err := s.motor.SetDirection(stepper.Reverse); err != nil {
		s.log.Errorf("Could not retract stepper: %v", err)
		return
	}

	for i := 0; i < s.retractSteps; i++ {
		if err := s.step(ctx); err != nil {
			s.log.Errorf("Stopped retracting stepper after %v of %v steps: %v", i, s.retractSteps, err)
			return
		}
	}

	s.log.Infof("stepper retracted")
	s.state = Retracted
}

func (s *Stepper) step(ctx context.Context) error {
	if err := s.motor.StepOnce(ctx); err != nil {
		return err
	}

	return stepper.Wait(ctx, s.clock, s.settle)
}
