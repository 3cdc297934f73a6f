// Package console drives the rig from newline-terminated text commands,
// typically read from a serial port.
package console

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/ardufsm/rigd/actuator"
	"github.com/ardufsm/rigd/rig"
	"github.com/go-errors/errors"
)

const defaultInterval = 10 * time.Millisecond

type Config struct {
	Reader io.Reader
	Writer io.Writer
	Rig    *rig.Rig
	// Interval between ticks of a PERIOD command.
	Interval time.Duration
	Logger   Logger
}

type Console struct {
	reader   io.Reader
	writer   io.Writer
	rig      *rig.Rig
	interval time.Duration
	log      Logger
	commands map[string]func(args []string) error
}

func New(config *Config) *Console {
	c := &Console{
		reader:   config.Reader,
		writer:   config.Writer,
		rig:      config.Rig,
		interval: config.Interval,
	}

	if config.Logger != nil {
		c.log = config.Logger
	} else {
		c.log = noopLogger{}
	}

	if c.interval <= 0 {
		c.interval = defaultInterval
	}

	c.commands = map[string]func(args []string) error{
		"PING":    c.ping,
		"STATUS":  c.status,
		"TICK":    c.tick,
		"TRIGGER": c.trigger,
		"END":     c.end,
		"PERIOD":  c.period,
	}

	return c
}

// Run executes commands until the reader is exhausted.
func (c *Console) Run() error {
	scanner := bufio.NewScanner(c.reader)

	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		name := strings.ToUpper(fields[0])

		command, ok := c.commands[name]
		if !ok {
			c.log.Warnf("Unknown command %q", fields[0])
			c.reply("ERR unknown command %v", fields[0])
			continue
		}

		c.log.Debugf("Running %v", strings.Join(fields, " "))

		if err := command(fields[1:]); err != nil {
			c.reply("ERR %v", err)
			continue
		}

		c.reply("OK")
	}

	if err := scanner.Err(); err != nil {
		return errors.Errorf("could not read commands: %v", err)
	}

	return nil
}

func (c *Console) reply(format string, args ...interface{}) {
	_, err := fmt.Fprintf(c.writer, format+"\n", args...)
	if err != nil {
		c.log.Errorf("Could not reply: %v", err)
	}
}

func (c *Console) ping(args []string) error {
	for _, d := range c.rig.Devices() {
		c.reply("%v %v", d.ID, d.Kind)
	}

	return nil
}

func (c *Console) status(args []string) error {
	for _, d := range c.rig.Devices() {
		state := d.State
		if state == "" {
			state = "-"
		}

		c.reply("%v %v %v %v", d.ID, d.Name, d.Kind, state)
	}

	return nil
}

func (c *Console) tick(args []string) error {
	actions, err := parseActions(args)
	if err != nil {
		return err
	}

	return c.rig.Tick(actions)
}

func (c *Console) trigger(args []string) error {
	if len(args) != 2 {
		return errors.New("usage: TRIGGER id action")
	}

	id, err := strconv.Atoi(args[0])
	if err != nil {
		return errors.Errorf("invalid device id %v", args[0])
	}

	actions, err := parseActions(args[1:])
	if err != nil {
		return err
	}

	return c.rig.Trigger(id, actions[0])
}

func (c *Console) end(args []string) error {
	c.rig.EndPeriod()

	return nil
}

func (c *Console) period(args []string) error {
	if len(args) < 1 {
		return errors.New("usage: PERIOD ms action...")
	}

	ms, err := strconv.Atoi(args[0])
	if err != nil || ms <= 0 {
		return errors.Errorf("invalid duration %v", args[0])
	}

	actions, err := parseActions(args[1:])
	if err != nil {
		return err
	}

	return c.rig.RunPeriod(rig.Period{
		Duration: time.Duration(ms) * time.Millisecond,
		Interval: c.interval,
		Actions:  actions,
	})
}

func parseActions(args []string) ([]actuator.Action, error) {
	actions := make([]actuator.Action, len(args))

	for i, arg := range args {
		n, err := strconv.Atoi(arg)
		if err != nil {
			return nil, errors.Errorf("invalid action %v", arg)
		}

		actions[i] = actuator.Action(n)
	}

	return actions, nil
}
