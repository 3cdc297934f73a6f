package rig

import (
	"sync"
	"time"
)

// Event reports a device that changed its state.
type Event struct {
	Device DeviceStatus `json:"device"`
	Time   time.Time    `json:"time"`
}

type EventClient struct {
	Events    chan *Event
	Id        uint32
	closeOnce sync.Once
	rig       *Rig
}

// SubscribeEvents returns a client receiving all future events. Events are
// dropped for clients that do not keep up.
func (r *Rig) SubscribeEvents() *EventClient {
	client := &EventClient{
		Events: make(chan *Event, 16),
		rig:    r,
	}

	r.eventClientMtx.Lock()
	client.Id = r.nextEventClientID
	r.nextEventClientID++
	r.eventClients[client.Id] = client
	r.eventClientMtx.Unlock()

	return client
}

func (r *Rig) publish(event *Event) {
	r.eventClientMtx.Lock()
	defer r.eventClientMtx.Unlock()

	for _, client := range r.eventClients {
		select {
		case client.Events <- event:
		default:
			r.log.Warnf("Dropped event for slow client %v", client.Id)
		}
	}
}

func (c *EventClient) Cancel() {
	c.rig.eventClientMtx.Lock()
	delete(c.rig.eventClients, c.Id)
	c.rig.eventClientMtx.Unlock()

	c.close()
}

func (c *EventClient) close() {
	c.closeOnce.Do(func() {
		close(c.Events)
	})
}
