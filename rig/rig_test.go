package rig

import (
	"context"
	"testing"
	"time"

	"github.com/ardufsm/rigd/actuator"
	"github.com/ardufsm/rigd/rigtest"
	qt "github.com/frankban/quicktest"
)

var epoch = time.Date(2019, 3, 1, 12, 0, 0, 0, time.UTC)

type recorder struct {
	kind    string
	actions []actuator.Action
	periods int
	lastCtx context.Context
}

func (r *recorder) Advance(ctx context.Context, action actuator.Action) {
	r.actions = append(r.actions, action)
	r.lastCtx = ctx
}

func (r *recorder) OnPeriodEnd(ctx context.Context) {
	r.periods++
}

func (r *recorder) Identify() string {
	return r.kind
}

func newTestRig() (*Rig, *rigtest.Clock) {
	clk := rigtest.NewClock(epoch)

	return NewRig(&Config{Clock: clk}), clk
}

func TestRegisterAssignsSequentialIds(t *testing.T) {
	c := qt.New(t)
	r, _ := newTestRig()

	a := r.Register("left", &recorder{kind: "a"})
	b := r.Register("right", actuator.NewDummyStepper(nil))

	c.Assert(a.ID, qt.Equals, 0)
	c.Assert(b.ID, qt.Equals, 1)
	c.Assert(r.Devices(), qt.DeepEquals, []DeviceStatus{
		{ID: 0, Name: "left", Kind: "a"},
		{ID: 1, Name: "right", Kind: actuator.DummyStepperKind, State: "RETRACTED"},
	})
}

func TestTickFillsMissingActions(t *testing.T) {
	c := qt.New(t)
	r, _ := newTestRig()

	first := &recorder{kind: "first"}
	second := &recorder{kind: "second"}
	r.Register("first", first)
	r.Register("second", second)

	c.Assert(r.Tick([]actuator.Action{actuator.ActionPrimary}), qt.IsNil)
	c.Assert(r.Tick(nil), qt.IsNil)

	c.Assert(first.actions, qt.DeepEquals, []actuator.Action{actuator.ActionPrimary, actuator.ActionNone})
	c.Assert(second.actions, qt.DeepEquals, []actuator.Action{actuator.ActionNone, actuator.ActionNone})
}

func TestTickRejectsExcessActions(t *testing.T) {
	c := qt.New(t)
	r, _ := newTestRig()

	rec := &recorder{}
	r.Register("only", rec)

	err := r.Tick([]actuator.Action{1, 1})
	c.Assert(err, qt.Equals, ErrTooManyActions)
	c.Assert(rec.actions, qt.HasLen, 0)
}

func TestTrigger(t *testing.T) {
	c := qt.New(t)
	r, _ := newTestRig()

	first := &recorder{}
	second := &recorder{}
	r.Register("first", first)
	r.Register("second", second)

	c.Assert(r.Trigger(1, actuator.ActionPrimary), qt.IsNil)
	c.Assert(first.actions, qt.HasLen, 0)
	c.Assert(second.actions, qt.DeepEquals, []actuator.Action{actuator.ActionPrimary})

	c.Assert(r.Trigger(2, actuator.ActionPrimary), qt.Equals, ErrUnknownDevice)
	c.Assert(r.Trigger(-1, actuator.ActionPrimary), qt.Equals, ErrUnknownDevice)
}

func TestEndPeriodReachesEveryDeviceOnce(t *testing.T) {
	c := qt.New(t)
	r, _ := newTestRig()

	recs := []*recorder{{}, {}, {}}
	for _, rec := range recs {
		r.Register("rec", rec)
	}

	r.EndPeriod()

	for i, rec := range recs {
		c.Assert(rec.periods, qt.Equals, 1, qt.Commentf("device %v", i))
	}
}

func TestEventsOnStateChange(t *testing.T) {
	c := qt.New(t)
	r, clk := newTestRig()

	r.Register("probe", actuator.NewDummyStepper(nil))
	r.Register("speaker", actuator.NewDummySpeaker(nil))

	client := r.SubscribeEvents()
	defer client.Cancel()

	c.Assert(r.Tick([]actuator.Action{1, 1}), qt.IsNil)

	event := <-client.Events
	c.Assert(event.Device.Name, qt.Equals, "probe")
	c.Assert(event.Device.State, qt.Equals, "EXTENDED")
	c.Assert(event.Time, qt.Equals, clk.Now())

	// already extended, no event
	c.Assert(r.Tick([]actuator.Action{1, 1}), qt.IsNil)
	c.Assert(client.Events, qt.HasLen, 0)

	r.EndPeriod()

	event = <-client.Events
	c.Assert(event.Device.State, qt.Equals, "RETRACTED")
}

func TestCanceledClientReceivesNothing(t *testing.T) {
	c := qt.New(t)
	r, _ := newTestRig()

	r.Register("probe", actuator.NewDummyStepper(nil))

	client := r.SubscribeEvents()
	client.Cancel()
	client.Cancel()

	c.Assert(r.Trigger(0, actuator.ActionPrimary), qt.IsNil)

	_, ok := <-client.Events
	c.Assert(ok, qt.IsFalse)
}

func TestRunPeriod(t *testing.T) {
	c := qt.New(t)
	r, clk := newTestRig()

	rec := &recorder{}
	r.Register("rec", rec)

	err := r.RunPeriod(Period{
		Duration: 10 * time.Millisecond,
		Interval: time.Millisecond,
		Actions:  []actuator.Action{actuator.ActionPrimary},
	})
	c.Assert(err, qt.IsNil)

	c.Assert(rec.actions, qt.HasLen, 10)
	c.Assert(rec.periods, qt.Equals, 1)
	c.Assert(clk.Now(), qt.Equals, epoch.Add(10*time.Millisecond))
}

func TestRunPeriodRejectsBadTiming(t *testing.T) {
	c := qt.New(t)
	r, _ := newTestRig()

	c.Assert(r.RunPeriod(Period{Interval: time.Millisecond}), qt.ErrorMatches, "invalid period duration 0s")
	c.Assert(r.RunPeriod(Period{Duration: time.Second}), qt.ErrorMatches, "invalid period interval 0s")
}

func TestShutdownEndsPeriodAndCancels(t *testing.T) {
	c := qt.New(t)
	r, _ := newTestRig()

	rec := &recorder{}
	r.Register("rec", rec)
	c.Assert(r.Tick(nil), qt.IsNil)

	client := r.SubscribeEvents()

	done := make(chan error)
	go func() {
		done <- r.Run("")
	}()

	r.Shutdown()

	c.Assert(<-done, qt.IsNil)
	c.Assert(rec.periods, qt.Equals, 1)
	c.Assert(rec.lastCtx.Err(), qt.Equals, context.Canceled)

	_, ok := <-client.Events
	c.Assert(ok, qt.IsFalse)
}

func TestShutdownTwice(t *testing.T) {
	c := qt.New(t)
	r, _ := newTestRig()

	rec := &recorder{}
	r.Register("rec", rec)

	r.Shutdown()
	r.Shutdown()

	c.Assert(rec.periods, qt.Equals, 1)
	c.Assert(r.Run(""), qt.IsNil)
}
