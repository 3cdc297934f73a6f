// Package rig owns the set of actuators of the experiment rig and drives
// them through cycles and stimulus periods.
package rig

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/ardufsm/rigd/actuator"
	"github.com/ardufsm/rigd/rigdb"
	"github.com/ardufsm/rigd/riglog"
	"github.com/go-errors/errors"
	"github.com/juju/clock"
)

var (
	ErrUnknownDevice  = errors.New("unknown device")
	ErrTooManyActions = errors.New("more actions than devices")
)

// Device is an actuator registered with the rig.
type Device struct {
	ID       int
	Name     string
	Actuator actuator.Actuator
}

// DeviceStatus describes a device for diagnostics.
type DeviceStatus struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Kind  string `json:"kind"`
	State string `json:"state,omitempty"`
}

type Rig struct {
	log    Logger
	db     *rigdb.DB
	api    Api
	rigLog *riglog.RigLog
	clock  clock.Clock

	// mtx serializes all calls into actuators
	mtx     sync.Mutex
	devices []*Device

	// periodMtx keeps periods from interleaving
	periodMtx sync.Mutex

	ctx          context.Context
	cancel       context.CancelFunc
	done         chan struct{}
	shutdownOnce sync.Once

	apiListeners []net.Listener

	eventClients      map[uint32]*EventClient
	eventClientMtx    sync.Mutex
	nextEventClientID uint32
}

func NewRig(config *Config) *Rig {
	ctx, cancel := context.WithCancel(context.Background())

	r := &Rig{
		db:           config.DB,
		api:          config.Api,
		rigLog:       config.RigLog,
		clock:        config.Clock,
		ctx:          ctx,
		cancel:       cancel,
		done:         make(chan struct{}),
		eventClients: make(map[uint32]*EventClient),
	}

	if config.Logger != nil {
		r.log = config.Logger
	} else {
		r.log = noopLogger{}
	}

	if r.clock == nil {
		r.clock = clock.WallClock
	}

	if r.api != nil {
		r.api.SetRig(r)
	}

	return r
}

// Register adds an actuator. Devices are driven in registration order and
// numbered from 0.
func (r *Rig) Register(name string, a actuator.Actuator) *Device {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	device := &Device{
		ID:       len(r.devices),
		Name:     name,
		Actuator: a,
	}

	r.devices = append(r.devices, device)

	r.log.Infof("Registered %v %q as device %v", a.Identify(), name, device.ID)

	return device
}

func (r *Rig) Devices() []DeviceStatus {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	statuses := make([]DeviceStatus, len(r.devices))
	for i, d := range r.devices {
		statuses[i] = status(d)
	}

	return statuses
}

func status(d *Device) DeviceStatus {
	s := DeviceStatus{
		ID:   d.ID,
		Name: d.Name,
		Kind: d.Actuator.Identify(),
	}

	if stater, ok := d.Actuator.(actuator.Stater); ok {
		s.State = stater.State().String()
	}

	return s
}

// Tick advances every device once. Device i receives actions[i], devices
// without an entry receive actuator.ActionNone.
func (r *Rig) Tick(actions []actuator.Action) error {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	if len(actions) > len(r.devices) {
		return ErrTooManyActions
	}

	for i, d := range r.devices {
		action := actuator.ActionNone
		if i < len(actions) {
			action = actions[i]
		}

		r.advance(d, action)
	}

	return nil
}

// Trigger advances a single device.
func (r *Rig) Trigger(id int, action actuator.Action) error {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	if id < 0 || id >= len(r.devices) {
		return ErrUnknownDevice
	}

	r.advance(r.devices[id], action)

	return nil
}

// EndPeriod ends the stimulus period on every device exactly once.
func (r *Rig) EndPeriod() {
	r.endPeriod(r.ctx)
}

func (r *Rig) endPeriod(ctx context.Context) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	for _, d := range r.devices {
		before := status(d)
		d.Actuator.OnPeriodEnd(ctx)
		r.maybePublish(d, before)
	}

	r.log.Debugf("Ended period")
}

func (r *Rig) advance(d *Device, action actuator.Action) {
	before := status(d)
	d.Actuator.Advance(r.ctx, action)
	r.maybePublish(d, before)
}

func (r *Rig) maybePublish(d *Device, before DeviceStatus) {
	after := status(d)
	if after.State == before.State {
		return
	}

	r.publish(&Event{
		Device: after,
		Time:   r.clock.Now(),
	})
}

// Period is a stimulus period: the rig ticks with the same actions every
// Interval until Duration has passed, then ends the period.
type Period struct {
	Duration time.Duration
	Interval time.Duration
	Actions  []actuator.Action
}

func (r *Rig) RunPeriod(p Period) error {
	if p.Duration <= 0 {
		return errors.Errorf("invalid period duration %v", p.Duration)
	}

	if p.Interval <= 0 {
		return errors.Errorf("invalid period interval %v", p.Interval)
	}

	r.periodMtx.Lock()
	defer r.periodMtx.Unlock()

	end := r.clock.Now().Add(p.Duration)

	r.log.Infof("Starting period of %v", p.Duration)

	for r.clock.Now().Before(end) {
		if err := r.Tick(p.Actions); err != nil {
			return err
		}

		if r.ctx.Err() != nil {
			break
		}

		select {
		case <-r.ctx.Done():
		case <-r.clock.After(p.Interval):
		}
	}

	r.EndPeriod()

	return nil
}

// Run serves the API and blocks until the rig is shut down.
func (r *Rig) Run(listen string) error {
	if r.api != nil && listen != "" {
		lis, err := net.Listen("tcp", listen)
		if err != nil {
			return errors.Errorf("api unable to listen on %v: %v", listen, err)
		}

		r.apiListeners = append(r.apiListeners, lis)

		go func() {
			r.log.Infof("Serving api on %v", lis.Addr())

			err := r.api.Serve(lis)
			if err != nil {
				r.log.Errorf("Could not serve api: %v", err)
			}
		}()
	}

	<-r.done

	return nil
}

// Shutdown stops in-flight motion, ends the period so probes retract and
// makes Run return. Calls after the first do nothing.
func (r *Rig) Shutdown() {
	r.shutdownOnce.Do(r.shutdown)
}

func (r *Rig) shutdown() {
	for _, lis := range r.apiListeners {
		err := lis.Close()
		if err != nil {
			r.log.Errorf("Could not close listener: %v", err)
		}
	}

	r.cancel()

	r.endPeriod(context.Background())

	r.eventClientMtx.Lock()
	for _, client := range r.eventClients {
		client.close()
	}
	r.eventClients = make(map[uint32]*EventClient)
	r.eventClientMtx.Unlock()

	close(r.done)
}

func (r *Rig) DB() *rigdb.DB {
	return r.db
}

func (r *Rig) RigLog() *riglog.RigLog {
	return r.rigLog
}
