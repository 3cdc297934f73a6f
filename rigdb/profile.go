package rigdb

import (
	"github.com/go-errors/errors"
)

// Device kinds of a profile.
const (
	KindStepper      = "stepper"
	KindSpeaker      = "speaker"
	KindDummyStepper = "dummy-stepper"
	KindDummySpeaker = "dummy-speaker"
)

// Stepper drives.
const (
	DriveDriver = "driver"
	DrivePhase  = "phase"
)

// Profile is the set of devices of the rig, in scheduling order.
type Profile struct {
	Devices []Device `json:"devices"`
}

type Device struct {
	Name    string           `json:"name"`
	Kind    string           `json:"kind"`
	Stepper *StepperSettings `json:"stepper,omitempty"`
	Speaker *SpeakerSettings `json:"speaker,omitempty"`
}

type StepperSettings struct {
	// Drive is DriveDriver for a STEP/DIR driver or DrivePhase for windings
	// wired to the pins directly.
	Drive   string `json:"drive"`
	StepPin int    `json:"stepPin,omitempty"`
	DirPin  int    `json:"dirPin,omitempty"`
	// Leads and Phases are used by the phase drive.
	Leads              []int `json:"leads,omitempty"`
	Phases             int   `json:"phases,omitempty"`
	StepsPerRevolution int   `json:"stepsPerRevolution,omitempty"`
	Speed              int   `json:"speed,omitempty"`

	SensorPin       int `json:"sensorPin"`
	SensorThreshold int `json:"sensorThreshold"`
	HalfDelayMicros int `json:"halfDelayMicros"`
	Microstep       int `json:"microstep"`
	RetractAngle    int `json:"retractAngle"`
	MaxExtendSteps  int `json:"maxExtendSteps,omitempty"`
}

type SpeakerSettings struct {
	Pin          int `json:"pin"`
	MinFrequency int `json:"minFrequency,omitempty"`
	MaxFrequency int `json:"maxFrequency,omitempty"`
}

// Validate reports the first configuration error of the profile.
func (p *Profile) Validate() error {
	names := make(map[string]bool)

	for i, d := range p.Devices {
		if d.Name == "" {
			return errors.Errorf("device %v has no name", i)
		}

		if names[d.Name] {
			return errors.Errorf("duplicate device name %q", d.Name)
		}
		names[d.Name] = true

		switch d.Kind {
		case KindStepper:
			if err := d.Stepper.validate(); err != nil {
				return errors.Errorf("device %q: %v", d.Name, err)
			}
		case KindSpeaker:
			if d.Speaker == nil {
				return errors.Errorf("device %q: missing speaker settings", d.Name)
			}
		case KindDummyStepper, KindDummySpeaker:
		default:
			return errors.Errorf("device %q: unknown kind %q", d.Name, d.Kind)
		}
	}

	return nil
}

func (s *StepperSettings) validate() error {
	if s == nil {
		return errors.New("missing stepper settings")
	}

	if s.Microstep <= 0 {
		return errors.New("microstep must be positive")
	}

	switch s.Drive {
	case DriveDriver:
	case DrivePhase:
		if s.Speed <= 0 {
			return errors.New("speed must be positive")
		}
		if s.StepsPerRevolution <= 0 {
			return errors.New("steps per revolution must be positive")
		}
		if len(s.Leads) != s.Phases {
			return errors.Errorf("%v phases need %v leads, got %v", s.Phases, s.Phases, len(s.Leads))
		}
	default:
		return errors.Errorf("unknown drive %q", s.Drive)
	}

	return nil
}

// GetProfile returns the stored profile or nil if none was stored.
func (db *DB) GetProfile() (*Profile, error) {
	profile := &Profile{}

	found, err := db.getJSON(settingsBucket, profileKey, profile)
	if err != nil {
		return nil, errors.Errorf("could not read profile: %v", err)
	}

	if !found {
		return nil, nil
	}

	return profile, nil
}

func (db *DB) SetProfile(profile *Profile) error {
	if err := profile.Validate(); err != nil {
		return err
	}

	if err := db.setJSON(settingsBucket, profileKey, profile); err != nil {
		return errors.Errorf("could not save profile: %v", err)
	}

	return nil
}
