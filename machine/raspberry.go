package machine

import (
	"strconv"
	"sync"

	"github.com/go-errors/errors"
	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/gpio/gpioreg"
	"periph.io/x/periph/conn/i2c"
	"periph.io/x/periph/conn/i2c/i2creg"
	"periph.io/x/periph/conn/physic"
	"periph.io/x/periph/experimental/devices/ads1x15"
	"periph.io/x/periph/host"
)

// compile time check for protocol compatibility
var _ Machine = (*RaspberryMachine)(nil)

// ADCConfig describes an ADS1115 converter on the I2C bus serving the analog
// pins 0-3 through its single-ended channels.
type ADCConfig struct {
	Bus        string
	Address    uint16
	MaxVoltage physic.ElectricPotential
}

type RaspberryMachineConfig struct {
	ADC    *ADCConfig
	Logger Logger
}

// RaspberryMachine drives the rig from the GPIO header of a Raspberry Pi.
type RaspberryMachine struct {
	log     Logger
	adcCfg  *ADCConfig
	mu      sync.Mutex
	pins    map[int]gpio.PinIO
	sensors map[int]ads1x15.PinADC
	bus     i2c.BusCloser
}

var adcChannels = []ads1x15.Channel{
	ads1x15.Channel0,
	ads1x15.Channel1,
	ads1x15.Channel2,
	ads1x15.Channel3,
}

func NewRaspberryMachine(config *RaspberryMachineConfig) *RaspberryMachine {
	m := &RaspberryMachine{
		adcCfg:  config.ADC,
		pins:    make(map[int]gpio.PinIO),
		sensors: make(map[int]ads1x15.PinADC),
	}

	if config.Logger != nil {
		m.log = config.Logger
	} else {
		m.log = noopLogger{}
	}

	return m
}

func (m *RaspberryMachine) Start() error {
	if _, err := host.Init(); err != nil {
		return errors.Errorf("could not initialize periph host: %v", err)
	}

	if m.adcCfg == nil {
		m.log.Infof("No ADC configured, analog reads will fail")
		return nil
	}

	bus, err := i2creg.Open(m.adcCfg.Bus)
	if err != nil {
		return errors.Errorf("could not open i2c bus %q: %v", m.adcCfg.Bus, err)
	}

	m.bus = bus

	adc, err := ads1x15.NewADS1115(bus, &ads1x15.Opts{I2cAddress: m.adcCfg.Address})
	if err != nil {
		_ = bus.Close()
		return errors.Errorf("could not open ADS1115 at %#x: %v", m.adcCfg.Address, err)
	}

	for pin, ch := range adcChannels {
		p, err := adc.PinForChannel(ch, m.adcCfg.MaxVoltage, 100*physic.Hertz, ads1x15.BestQuality)
		if err != nil {
			_ = bus.Close()
			return errors.Errorf("could not open ADC channel for analog pin %v: %v", pin, err)
		}

		m.sensors[pin] = p
	}

	m.log.Infof("Opened ADS1115 at %#x on bus %q", m.adcCfg.Address, m.adcCfg.Bus)

	return nil
}

func (m *RaspberryMachine) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for n, p := range m.pins {
		if err := p.Out(gpio.Low); err != nil {
			m.log.Warnf("Could not pull pin %v low: %v", n, err)
		}
	}

	for n, s := range m.sensors {
		if err := s.Halt(); err != nil {
			m.log.Warnf("Could not halt analog pin %v: %v", n, err)
		}
	}

	if m.bus != nil {
		if err := m.bus.Close(); err != nil {
			return errors.Errorf("could not close i2c bus: %v", err)
		}
	}

	return nil
}

func (m *RaspberryMachine) pin(n int) (gpio.PinIO, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p, ok := m.pins[n]; ok {
		return p, nil
	}

	p := gpioreg.ByName(strconv.Itoa(n))
	if p == nil {
		return nil, errors.Errorf("no gpio pin %v", n)
	}

	m.pins[n] = p

	return p, nil
}

func (m *RaspberryMachine) SetPinMode(n int, mode PinMode) error {
	p, err := m.pin(n)
	if err != nil {
		return err
	}

	switch mode {
	case Output:
		err = p.Out(gpio.Low)
	case Input:
		err = p.In(gpio.PullNoChange, gpio.NoEdge)
	default:
		return errors.Errorf("unsupported pin mode %v", mode)
	}

	if err != nil {
		return errors.Errorf("could not set pin %v to %v: %v", n, mode, err)
	}

	return nil
}

func (m *RaspberryMachine) WriteDigital(n int, level gpio.Level) error {
	p, err := m.pin(n)
	if err != nil {
		return err
	}

	if err := p.Out(level); err != nil {
		return errors.Errorf("could not write pin %v: %v", n, err)
	}

	return nil
}

func (m *RaspberryMachine) ReadAnalog(n int) (int, error) {
	s, ok := m.sensors[n]
	if !ok {
		return 0, errors.Errorf("no analog pin %v", n)
	}

	sample, err := s.Read()
	if err != nil {
		return 0, errors.Errorf("could not read analog pin %v: %v", n, err)
	}

	return int(sample.Raw), nil
}

func (m *RaspberryMachine) StartTone(n int, f physic.Frequency) error {
	p, err := m.pin(n)
	if err != nil {
		return err
	}

	if err := p.PWM(gpio.DutyHalf, f); err != nil {
		return errors.Errorf("could not start tone of %v on pin %v: %v", f, n, err)
	}

	return nil
}

// StopTone silences the pin. Setting a level stops any running PWM.
func (m *RaspberryMachine) StopTone(n int) error {
	return m.WriteDigital(n, gpio.Low)
}
