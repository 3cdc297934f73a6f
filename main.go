package main

import (
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ardufsm/rigd/api"
	"github.com/ardufsm/rigd/console"
	"github.com/ardufsm/rigd/machine"
	"github.com/ardufsm/rigd/rig"
	"github.com/ardufsm/rigd/rigdb"
	"github.com/ardufsm/rigd/riglog"
	"github.com/jessevdk/go-flags"
	"github.com/juju/clock"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.bug.st/serial"
	"periph.io/x/periph/conn/physic"
)

var (
	// commit stores the current commit hash of this build. This should be set using -ldflags during compilation.
	Commit string
	// version stores the version string of this build. This should be set using -ldflags during compilation.
	Version string
	// date stores the date of this build. This should be set using -ldflags during compilation.
	Date string
)

// rigdMain is the true entry point for rigd. This is required since defers
// created in the top-level scope of a main method aren't executed if os.Exit() is called.
func rigdMain() error {
	rigLog := riglog.New()

	log.SetOutput(os.Stdout)
	log.SetLevel(log.InfoLevel)
	log.AddHook(rigLog)

	// Load CLI configuration and defaults
	cfg, err := loadConfig()
	if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
		return nil
	} else if err != nil {
		return errors.Errorf("Failed parsing arguments: %v", err)
	}

	// Set logger into debug mode if called with --debug
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
		log.Info("Setting debug mode.")
	}

	log.Debug("Loaded config.")

	// Print version of the daemon
	log.Infof("Version %s (commit %s)", Version, Commit)
	log.Infof("Built on %s", Date)

	// Stop here if only version was requested
	if cfg.ShowVersion {
		return nil
	}

	// rig.db persistently stores the device profile
	rigDB, err := rigdb.Open(cfg.DataDir)
	if err != nil {
		return errors.Errorf("Could not open rig.db: %v", err)
	}

	log.Infof("Opened rig.db")

	defer func() {
		err := rigDB.Close()
		if err != nil {
			log.Errorf("Could not close rig.db: %v", err)
		} else {
			log.Info("Closed rig.db.")
		}
	}()

	// The hardware controller
	var m machine.Machine

	switch cfg.Machine {
	case "raspberry":
		m = machine.NewRaspberryMachine(&machine.RaspberryMachineConfig{
			ADC: &machine.ADCConfig{
				Bus:        cfg.Raspberry.ADCBus,
				Address:    cfg.Raspberry.ADCAddress,
				MaxVoltage: physic.ElectricPotential(cfg.Raspberry.ADCMaxMillivolts) * physic.MilliVolt,
			},
			Logger: log.WithField("system", "machine"),
		})

		log.Infof("Created Raspberry Pi machine with ADC at %#x.", cfg.Raspberry.ADCAddress)
	case "mock":
		m = machine.NewMockMachine(&machine.MockMachineConfig{
			Listen: cfg.Mock.Listen,
			Logger: log.WithField("system", "machine"),
		})

		log.Info("Created a mock machine.")
	default:
		return errors.Errorf("Unknown machine type %v", cfg.Machine)
	}

	if err := m.Start(); err != nil {
		return errors.Errorf("Could not start machine: %v", err)
	}

	defer func() {
		err := m.Stop()
		if err != nil {
			log.Errorf("Could not properly stop machine: %v", err)
		} else {
			log.Infof("Stopped machine.")
		}
	}()

	profile, err := rigDB.GetProfile()
	if err != nil {
		return errors.Errorf("Could not read profile: %v", err)
	}

	if profile == nil {
		profile = cfg.defaultProfile()

		log.Infof("Using default profile.")
	} else {
		log.Infof("Using stored profile.")
	}

	api := api.New(&api.Config{
		Log: log.WithField("system", "api"),
	})

	log.Infof("Created API")

	// central controller for all devices of the rig
	r := rig.NewRig(&rig.Config{
		DB:     rigDB,
		Api:    api,
		RigLog: rigLog,
		Clock:  clock.WallClock,
		Logger: log.WithField("system", "rig"),
	})

	err = registerDevices(r, profile, m, clock.WallClock, cfg.Mock)
	if err != nil {
		return errors.Errorf("Could not register devices: %v", err)
	}

	log.Infof("Created rig with %v devices.", len(profile.Devices))

	if cfg.Console.Port != "" {
		port, err := openConsolePort(cfg.Console)
		if err != nil {
			return errors.Errorf("Could not open console: %v", err)
		}

		defer func() {
			err := port.Close()
			if err != nil {
				log.Errorf("Could not close console: %v", err)
			}
		}()

		con := console.New(&console.Config{
			Reader:   port,
			Writer:   port,
			Rig:      r,
			Interval: time.Duration(cfg.Console.IntervalMs) * time.Millisecond,
			Logger:   log.WithField("system", "console"),
		})

		go func() {
			log.Infof("Reading commands from %v", cfg.Console.Port)

			err := con.Run()
			if err != nil {
				log.Errorf("Console stopped: %v", err)
			}
		}()
	}

	// Handle interrupt signals correctly
	go func() {
		signals := make(chan os.Signal, 1)
		signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
		sig := <-signals
		log.Info(sig)
		log.Info("Received an interrupt, stopping rig...")
		r.Shutdown()
	}()

	// blocks until the rig is shut down
	err = r.Run(cfg.Listen)
	if err != nil {
		return errors.Errorf("Failed running rig: %v", err)
	}

	// finish with no error
	return nil
}

type stdio struct {
	io.Reader
	io.Writer
}

func (stdio) Close() error {
	return nil
}

func openConsolePort(cfg *consoleConfig) (io.ReadWriteCloser, error) {
	if cfg.Port == "-" {
		return stdio{Reader: os.Stdin, Writer: os.Stdout}, nil
	}

	port, err := serial.Open(cfg.Port, &serial.Mode{
		BaudRate: cfg.Baud,
	})
	if err != nil {
		return nil, err
	}

	return port, nil
}

func main() {
	// Call the "real" main in a nested manner so the defers will properly
	// be executed in the case of a graceful shutdown.
	if err := rigdMain(); err != nil {
		log.WithError(err).Println("Failed running rigd.")
		os.Exit(1)
	}
}
