package actuator

import (
	"context"
	"math/rand"
	"time"

	"github.com/ardufsm/rigd/machine"
	"github.com/go-errors/errors"
	"periph.io/x/periph/conn/physic"
)

// check Speaker compliance to its interface during compile time
var _ Actuator = (*Speaker)(nil)

const (
	SpeakerKind = "speaker"

	defaultMinFrequency = 10000 * physic.Hertz
	defaultMaxFrequency = 20000 * physic.Hertz
)

// ToneOutput is the part of the machine a speaker needs.
type ToneOutput interface {
	SetPinMode(pin int, mode machine.PinMode) error
	StartTone(pin int, f physic.Frequency) error
	StopTone(pin int) error
}

type SpeakerConfig struct {
	Output ToneOutput
	Pin    int
	// Tones are drawn uniformly from [MinFrequency, MaxFrequency), 10-20kHz
	// by default.
	MinFrequency physic.Frequency
	MaxFrequency physic.Frequency
	Rand         *rand.Rand
	Logger       Logger
}

// Speaker plays a tone of random frequency until the period ends.
type Speaker struct {
	log     Logger
	output  ToneOutput
	pin     int
	min     physic.Frequency
	max     physic.Frequency
	rand    *rand.Rand
	actions map[Action]func(context.Context)
}

func NewSpeaker(config *SpeakerConfig) (*Speaker, error) {
	s := &Speaker{
		output: config.Output,
		pin:    config.Pin,
		min:    config.MinFrequency,
		max:    config.MaxFrequency,
		rand:   config.Rand,
	}

	if config.Logger != nil {
		s.log = config.Logger
	} else {
		s.log = noopLogger{}
	}

	if s.min == 0 && s.max == 0 {
		s.min, s.max = defaultMinFrequency, defaultMaxFrequency
	}

	if s.min <= 0 || s.max-s.min < physic.Hertz {
		return nil, errors.Errorf("invalid tone range %v to %v", s.min, s.max)
	}

	if s.rand == nil {
		s.rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	if err := s.output.SetPinMode(s.pin, machine.Output); err != nil {
		return nil, errors.Errorf("could not configure speaker pin %v: %v", s.pin, err)
	}

	s.actions = map[Action]func(context.Context){
		ActionNone:    noop,
		ActionPrimary: s.play,
	}

	return s, nil
}

func (s *Speaker) Advance(ctx context.Context, action Action) {
	dispatch(ctx, s.actions, action)
}

func (s *Speaker) OnPeriodEnd(ctx context.Context) {
	if err := s.output.StopTone(s.pin); err != nil {
		s.log.Errorf("Could not stop tone on pin %v: %v", s.pin, err)
	}
}

func (s *Speaker) Identify() string {
	return SpeakerKind
}

func (s *Speaker) play(ctx context.Context) {
	hz := int64((s.max - s.min) / physic.Hertz)
	f := s.min + physic.Frequency(s.rand.Int63n(hz))*physic.Hertz

	if err := s.output.StartTone(s.pin, f); err != nil {
		s.log.Errorf("Could not play tone on pin %v: %v", s.pin, err)
		return
	}

	s.log.Debugf("Playing %v on pin %v", f, s.pin)
}
