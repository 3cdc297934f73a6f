package actuator

import "context"

var _ Actuator = (*DummyStepper)(nil)
var _ Stater = (*DummyStepper)(nil)
var _ Actuator = (*DummySpeaker)(nil)

const (
	DummyStepperKind = "dummy-stepper"
	DummySpeakerKind = "dummy-speaker"
)

// DummyStepper keeps the state of a probe without moving anything. It is
// used to test protocols without hardware.
type DummyStepper struct {
	log     Logger
	state   State
	actions map[Action]func(context.Context)
}

func NewDummyStepper(logger Logger) *DummyStepper {
	d := &DummyStepper{
		log:   logger,
		state: Retracted,
	}

	if d.log == nil {
		d.log = noopLogger{}
	}

	d.actions = map[Action]func(context.Context){
		ActionNone: noop,
		ActionPrimary: func(context.Context) {
			if d.state == Retracted {
				d.state = Extended
			}
			d.log.Infof("I extended a stepper!")
		},
	}

	return d
}

func (d *DummyStepper) Advance(ctx context.Context, action Action) {
	dispatch(ctx, d.actions, action)
}

func (d *DummyStepper) OnPeriodEnd(ctx context.Context) {
	d.state = Retracted
}

func (d *DummyStepper) Identify() string {
	return DummyStepperKind
}

func (d *DummyStepper) State() State {
	return d.state
}

// DummySpeaker logs instead of playing tones.
type DummySpeaker struct {
	log     Logger
	actions map[Action]func(context.Context)
}

func NewDummySpeaker(logger Logger) *DummySpeaker {
	d := &DummySpeaker{log: logger}

	if d.log == nil {
		d.log = noopLogger{}
	}

	d.actions = map[Action]func(context.Context){
		ActionNone: noop,
		ActionPrimary: func(context.Context) {
			d.log.Infof("I'm playing a tone!")
		},
	}

	return d
}

func (d *DummySpeaker) Advance(ctx context.Context, action Action) {
	dispatch(ctx, d.actions, action)
}

func (d *DummySpeaker) OnPeriodEnd(ctx context.Context) {}

func (d *DummySpeaker) Identify() string {
	return DummySpeakerKind
}
