package machine

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-errors/errors"
	"github.com/gorilla/mux"
	"github.com/juju/clock"
	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/physic"
)

// compile time check for protocol compatibility
var _ Machine = (*MockMachine)(nil)

// Write is a single digital write seen by the mock machine.
type Write struct {
	Pin   int        `json:"pin"`
	Level gpio.Level `json:"level"`
	At    time.Time  `json:"at"`
}

type MockMachineConfig struct {
	// Listen enables an HTTP server for inspecting pins and setting sensor
	// readings when non-empty.
	Listen string
	Clock  clock.Clock
	Logger Logger
}

// MockMachine keeps pins in memory and records every digital write.
type MockMachine struct {
	log      Logger
	clock    clock.Clock
	listen   string
	listener net.Listener
	router   *mux.Router

	mu     sync.Mutex
	modes  map[int]PinMode
	levels map[int]gpio.Level
	analog map[int]int
	tones  map[int]physic.Frequency
	writes []Write
	hooks  []func(pin int, level gpio.Level)
}

func NewMockMachine(config *MockMachineConfig) *MockMachine {
	m := &MockMachine{
		listen: config.Listen,
		clock:  config.Clock,
		modes:  make(map[int]PinMode),
		levels: make(map[int]gpio.Level),
		analog: make(map[int]int),
		tones:  make(map[int]physic.Frequency),
		router: mux.NewRouter(),
	}

	if config.Logger != nil {
		m.log = config.Logger
	} else {
		m.log = noopLogger{}
	}

	if m.clock == nil {
		m.clock = clock.WallClock
	}

	m.router.Handle("/pins", m.handleGetPins()).Methods(http.MethodGet)
	m.router.Handle("/pins/{pin}/analog", m.handlePutAnalog()).Methods(http.MethodPut)

	return m
}

func (m *MockMachine) Start() error {
	if m.listen == "" {
		return nil
	}

	lis, err := net.Listen("tcp", m.listen)
	if err != nil {
		return errors.Errorf("could not listen on %v: %v", m.listen, err)
	}

	m.listener = lis

	go func() {
		m.log.Infof("Serving mock machine on %v", lis.Addr())

		err := http.Serve(lis, m.router)
		if err != nil {
			m.log.Debugf("Mock machine server stopped: %v", err)
		}
	}()

	return nil
}

func (m *MockMachine) Stop() error {
	if m.listener != nil {
		return m.listener.Close()
	}

	return nil
}

func (m *MockMachine) SetPinMode(pin int, mode PinMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.modes[pin] = mode
	if mode == Output {
		m.levels[pin] = gpio.Low
	}

	return nil
}

func (m *MockMachine) WriteDigital(pin int, level gpio.Level) error {
	m.mu.Lock()
	m.levels[pin] = level
	delete(m.tones, pin)
	m.writes = append(m.writes, Write{Pin: pin, Level: level, At: m.clock.Now()})
	hooks := m.hooks
	m.mu.Unlock()

	for _, hook := range hooks {
		hook(pin, level)
	}

	return nil
}

func (m *MockMachine) ReadAnalog(pin int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.analog[pin], nil
}

func (m *MockMachine) StartTone(pin int, f physic.Frequency) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.tones[pin] = f

	return nil
}

func (m *MockMachine) StopTone(pin int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.tones, pin)
	m.levels[pin] = gpio.Low

	return nil
}

// SetAnalog sets the value subsequent analog reads of pin return.
func (m *MockMachine) SetAnalog(pin int, value int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.analog[pin] = value
}

// OnWrite registers a hook called after every digital write.
func (m *MockMachine) OnWrite(hook func(pin int, level gpio.Level)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.hooks = append(m.hooks, hook)
}

func (m *MockMachine) Mode(pin int) (PinMode, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	mode, ok := m.modes[pin]
	return mode, ok
}

func (m *MockMachine) Level(pin int) gpio.Level {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.levels[pin]
}

// Tone returns the frequency currently played on pin, or 0.
func (m *MockMachine) Tone(pin int) physic.Frequency {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.tones[pin]
}

// Writes returns a copy of the write history.
func (m *MockMachine) Writes() []Write {
	m.mu.Lock()
	defer m.mu.Unlock()

	writes := make([]Write, len(m.writes))
	copy(writes, m.writes)

	return writes
}

// Pulses returns the times of all low to high transitions written to pin.
func (m *MockMachine) Pulses(pin int) []time.Time {
	var pulses []time.Time

	last := gpio.Low
	for _, w := range m.Writes() {
		if w.Pin != pin {
			continue
		}
		if w.Level == gpio.High && last == gpio.Low {
			pulses = append(pulses, w.At)
		}
		last = w.Level
	}

	return pulses
}

func (m *MockMachine) ResetWrites() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.writes = nil
}

type pinResponse struct {
	Pin    int    `json:"pin"`
	Mode   string `json:"mode,omitempty"`
	Level  bool   `json:"level"`
	Analog int    `json:"analog"`
	Tone   string `json:"tone,omitempty"`
}

func (m *MockMachine) handleGetPins() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		seen := make(map[int]*pinResponse)
		get := func(pin int) *pinResponse {
			if p, ok := seen[pin]; ok {
				return p
			}
			p := &pinResponse{Pin: pin}
			seen[pin] = p
			return p
		}
		for pin, mode := range m.modes {
			get(pin).Mode = mode.String()
		}
		for pin, level := range m.levels {
			get(pin).Level = bool(level)
		}
		for pin, v := range m.analog {
			get(pin).Analog = v
		}
		for pin, f := range m.tones {
			get(pin).Tone = f.String()
		}
		m.mu.Unlock()

		res := make([]*pinResponse, 0, len(seen))
		for _, p := range seen {
			res = append(res, p)
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(res); err != nil {
			m.log.Errorf("Could not respond with JSON: %v", err)
		}
	}
}

type putAnalogRequest struct {
	Value int `json:"value"`
}

func (m *MockMachine) handlePutAnalog() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pin, err := strconv.Atoi(mux.Vars(r)["pin"])
		if err != nil {
			http.Error(w, "invalid pin", http.StatusBadRequest)
			return
		}

		req := putAnalogRequest{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		m.SetAnalog(pin, req.Value)
		m.log.Infof("Set analog pin %v to %v", pin, req.Value)

		w.WriteHeader(http.StatusNoContent)
	}
}
