package main

import (
	"os"
	"path/filepath"

	"github.com/ardufsm/rigd/rigdb"
	"github.com/jessevdk/go-flags"
)

const (
	defaultDataDir    = "data"
	defaultConfigFile = "rigd.conf"
	defaultListen     = "localhost:9090"
)

type raspberryConfig struct {
	ADCBus           string `long:"adcbus" description:"I2C bus of the ADS1115, empty for the first bus"`
	ADCAddress       uint16 `long:"adcaddress" description:"I2C address of the ADS1115"`
	ADCMaxMillivolts int    `long:"adcmaxmillivolts" description:"Voltage mapped to the highest sensor reading"`
}

type mockConfig struct {
	Listen        string `long:"listen" description:"Serve the mock pins over HTTP on this address"`
	ContactPulses int    `long:"contactpulses" description:"Forward pulses until a simulated probe touches"`
	Free          int    `long:"free" description:"Simulated sensor reading of a free probe"`
	Contact       int    `long:"contact" description:"Simulated sensor reading of a probe in contact"`
}

type consoleConfig struct {
	Port       string `long:"port" description:"Serial port to read commands from, - for stdin"`
	Baud       int    `long:"baud" description:"Baud rate of the serial port"`
	IntervalMs int    `long:"intervalms" description:"Milliseconds between ticks of a period"`
}

type stepperConfig struct {
	Disabled        bool `long:"disabled" description:"Do not register the default stepper"`
	StepPin         int  `long:"steppin" description:"STEP pin of the driver"`
	DirPin          int  `long:"dirpin" description:"DIR pin of the driver"`
	SensorPin       int  `long:"sensorpin" description:"Analog pin of the position sensor"`
	SensorThreshold int  `long:"sensorthreshold" description:"Sensor reading at or below which the probe is in contact"`
	HalfDelayMicros int  `long:"halfdelaymicros" description:"Half period of a full step in microseconds"`
	Microstep       int  `long:"microstep" description:"Microstep divisor of the driver"`
	RetractAngle    int  `long:"retractangle" description:"Degrees to rotate back on retraction"`
	MaxExtendSteps  int  `long:"maxextendsteps" description:"Give up extending after this many steps, 0 for never"`
}

type speakerConfig struct {
	Disabled     bool `long:"disabled" description:"Do not register the default speaker"`
	Pin          int  `long:"pin" description:"PWM pin of the speaker"`
	MinFrequency int  `long:"minfrequency" description:"Lowest tone in Hz"`
	MaxFrequency int  `long:"maxfrequency" description:"Highest tone in Hz"`
}

type config struct {
	ShowVersion bool   `short:"v" long:"version" description:"Display version information and exit"`
	Debug       bool   `long:"debug" description:"Start the daemon in debug mode"`
	DataDir     string `long:"datadir" description:"The directory to store rigd's data within"`
	ConfigFile  string `long:"configfile" description:"Path to an INI configuration file"`
	Machine     string `long:"machine" description:"The hardware backend" choice:"raspberry" choice:"mock"`
	Listen      string `long:"listen" description:"Address of the HTTP API, empty to disable"`
	Dummy       bool   `long:"dummy" description:"Use dummy devices in the default profile"`

	Raspberry *raspberryConfig `group:"Raspberry" namespace:"raspberry"`
	Mock      *mockConfig      `group:"Mock" namespace:"mock"`
	Console   *consoleConfig   `group:"Console" namespace:"console"`
	Stepper   *stepperConfig   `group:"Stepper" namespace:"stepper"`
	Speaker   *speakerConfig   `group:"Speaker" namespace:"speaker"`
}

func defaultConfig() *config {
	return &config{
		DataDir:    defaultDataDir,
		ConfigFile: filepath.Join(defaultDataDir, defaultConfigFile),
		Machine:    "mock",
		Listen:     defaultListen,
		Raspberry: &raspberryConfig{
			ADCAddress:       0x48,
			ADCMaxMillivolts: 5000,
		},
		Mock: &mockConfig{
			ContactPulses: 400,
			Free:          1023,
			Contact:       0,
		},
		Console: &consoleConfig{
			Baud:       9600,
			IntervalMs: 10,
		},
		Stepper: &stepperConfig{
			StepPin:         20,
			DirPin:          21,
			SensorPin:       0,
			SensorThreshold: 500,
			HalfDelayMicros: 1000,
			Microstep:       4,
			RetractAngle:    180,
		},
		Speaker: &speakerConfig{
			Pin:          18,
			MinFrequency: 10000,
			MaxFrequency: 20000,
		},
	}
}

// loadConfig reads the command line, then the config file, and finally the
// command line again so flags override the file.
func loadConfig() (*config, error) {
	cfg := defaultConfig()

	parser := flags.NewParser(cfg, flags.Default)

	if _, err := parser.Parse(); err != nil {
		return nil, err
	}

	err := flags.NewIniParser(parser).ParseFile(cfg.ConfigFile)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	if _, err := parser.Parse(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// defaultProfile is used when no profile is stored.
func (c *config) defaultProfile() *rigdb.Profile {
	profile := &rigdb.Profile{}

	if !c.Stepper.Disabled {
		d := rigdb.Device{
			Name: "probe",
			Kind: rigdb.KindStepper,
			Stepper: &rigdb.StepperSettings{
				Drive:           rigdb.DriveDriver,
				StepPin:         c.Stepper.StepPin,
				DirPin:          c.Stepper.DirPin,
				SensorPin:       c.Stepper.SensorPin,
				SensorThreshold: c.Stepper.SensorThreshold,
				HalfDelayMicros: c.Stepper.HalfDelayMicros,
				Microstep:       c.Stepper.Microstep,
				RetractAngle:    c.Stepper.RetractAngle,
				MaxExtendSteps:  c.Stepper.MaxExtendSteps,
			},
		}

		if c.Dummy {
			d.Kind, d.Stepper = rigdb.KindDummyStepper, nil
		}

		profile.Devices = append(profile.Devices, d)
	}

	if !c.Speaker.Disabled {
		d := rigdb.Device{
			Name: "speaker",
			Kind: rigdb.KindSpeaker,
			Speaker: &rigdb.SpeakerSettings{
				Pin:          c.Speaker.Pin,
				MinFrequency: c.Speaker.MinFrequency,
				MaxFrequency: c.Speaker.MaxFrequency,
			},
		}

		if c.Dummy {
			d.Kind, d.Speaker = rigdb.KindDummySpeaker, nil
		}

		profile.Devices = append(profile.Devices, d)
	}

	return profile
}
