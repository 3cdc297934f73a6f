package main

import (
	"time"

	"github.com/ardufsm/rigd/actuator"
	"github.com/ardufsm/rigd/machine"
	"github.com/ardufsm/rigd/phase"
	"github.com/ardufsm/rigd/rig"
	"github.com/ardufsm/rigd/rigdb"
	"github.com/ardufsm/rigd/stepper"
	"github.com/go-errors/errors"
	"github.com/juju/clock"
	log "github.com/sirupsen/logrus"
	"periph.io/x/periph/conn/physic"
)

// registerDevices creates the actuators of the profile and registers them
// in profile order. With a mock machine, STEP/DIR probes get a simulated
// position sensor.
func registerDevices(r *rig.Rig, profile *rigdb.Profile, m machine.Machine, clk clock.Clock, mock *mockConfig) error {
	if err := profile.Validate(); err != nil {
		return errors.Errorf("invalid profile: %v", err)
	}

	for _, d := range profile.Devices {
		logger := log.WithField("system", "actuator").WithField("device", d.Name)

		a, err := newActuator(d, m, clk, logger)
		if err != nil {
			return errors.Errorf("could not create %v: %v", d.Name, err)
		}

		if mm, ok := m.(*machine.MockMachine); ok && mock != nil && d.Stepper != nil && d.Stepper.Drive == rigdb.DriveDriver {
			mm.SimulateProbe(machine.ProbeConfig{
				StepPin:       d.Stepper.StepPin,
				DirPin:        d.Stepper.DirPin,
				SensorPin:     d.Stepper.SensorPin,
				ContactPulses: mock.ContactPulses,
				Free:          mock.Free,
				Contact:       mock.Contact,
			})
		}

		r.Register(d.Name, a)
	}

	return nil
}

func newActuator(d rigdb.Device, m machine.Machine, clk clock.Clock, logger *log.Entry) (actuator.Actuator, error) {
	switch d.Kind {
	case rigdb.KindStepper:
		motor, err := newMotor(d.Stepper, m, clk)
		if err != nil {
			return nil, err
		}

		config := &actuator.StepperConfig{
			Stepper:         motor,
			Sensor:          m,
			Clock:           clk,
			SensorPin:       d.Stepper.SensorPin,
			SensorThreshold: d.Stepper.SensorThreshold,
			Microstep:       d.Stepper.Microstep,
			RetractAngle:    d.Stepper.RetractAngle,
			MaxExtendSteps:  d.Stepper.MaxExtendSteps,
			Logger:          logger,
		}

		if d.Stepper.Drive == rigdb.DrivePhase {
			config.StepsPerRotation = d.Stepper.StepsPerRevolution
		}

		return actuator.NewStepper(config)
	case rigdb.KindSpeaker:
		return actuator.NewSpeaker(&actuator.SpeakerConfig{
			Output:       m,
			Pin:          d.Speaker.Pin,
			MinFrequency: physic.Frequency(d.Speaker.MinFrequency) * physic.Hertz,
			MaxFrequency: physic.Frequency(d.Speaker.MaxFrequency) * physic.Hertz,
			Logger:       logger,
		})
	case rigdb.KindDummyStepper:
		return actuator.NewDummyStepper(logger), nil
	case rigdb.KindDummySpeaker:
		return actuator.NewDummySpeaker(logger), nil
	default:
		return nil, errors.Errorf("unknown kind %q", d.Kind)
	}
}

func newMotor(s *rigdb.StepperSettings, m machine.Machine, clk clock.Clock) (stepper.Stepper, error) {
	switch s.Drive {
	case rigdb.DriveDriver:
		return stepper.NewDriver(&stepper.DriverConfig{
			Pins:      m,
			Clock:     clk,
			StepPin:   s.StepPin,
			DirPin:    s.DirPin,
			HalfDelay: time.Duration(s.HalfDelayMicros) * time.Microsecond,
			Microstep: s.Microstep,
		})
	case rigdb.DrivePhase:
		return stepper.NewMotor(&stepper.MotorConfig{
			Pins:               m,
			Clock:              clk,
			Topology:           phase.Topology(s.Phases),
			Leads:              s.Leads,
			StepsPerRevolution: s.StepsPerRevolution,
			Speed:              s.Speed,
		})
	default:
		return nil, errors.Errorf("unknown drive %q", s.Drive)
	}
}
