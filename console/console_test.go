package console

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/ardufsm/rigd/actuator"
	"github.com/ardufsm/rigd/rig"
	"github.com/ardufsm/rigd/rigtest"
	qt "github.com/frankban/quicktest"
)

func run(c *qt.C, input string) (string, *rig.Rig) {
	r := rig.NewRig(&rig.Config{
		Clock: rigtest.NewClock(time.Date(2019, 3, 1, 0, 0, 0, 0, time.UTC)),
	})
	r.Register("probe", actuator.NewDummyStepper(nil))
	r.Register("speaker", actuator.NewDummySpeaker(nil))

	out := &bytes.Buffer{}

	con := New(&Config{
		Reader: strings.NewReader(input),
		Writer: out,
		Rig:    r,
	})

	c.Assert(con.Run(), qt.IsNil)

	return out.String(), r
}

func TestPing(t *testing.T) {
	c := qt.New(t)

	out, _ := run(c, "PING\n")
	c.Assert(out, qt.Equals, "0 dummy-stepper\n1 dummy-speaker\nOK\n")
}

func TestTickAndStatus(t *testing.T) {
	c := qt.New(t)

	out, r := run(c, "tick 1 1\n\nSTATUS\n")
	c.Assert(out, qt.Equals, "OK\n0 probe dummy-stepper EXTENDED\n1 speaker dummy-speaker -\nOK\n")
	c.Assert(r.Devices()[0].State, qt.Equals, "EXTENDED")
}

func TestTriggerAndEnd(t *testing.T) {
	c := qt.New(t)

	out, r := run(c, "TRIGGER 0 1\nEND\n")
	c.Assert(out, qt.Equals, "OK\nOK\n")
	c.Assert(r.Devices()[0].State, qt.Equals, "RETRACTED")
}

func TestPeriod(t *testing.T) {
	c := qt.New(t)

	out, r := run(c, "PERIOD 100 1\n")
	c.Assert(out, qt.Equals, "OK\n")
	c.Assert(r.Devices()[0].State, qt.Equals, "RETRACTED")
}

func TestErrors(t *testing.T) {
	c := qt.New(t)

	tests := []struct {
		input string
		reply string
	}{
		{"JUMP", "ERR unknown command JUMP"},
		{"TICK 1 1 1", "ERR more actions than devices"},
		{"TICK x", "ERR invalid action x"},
		{"TRIGGER 9 1", "ERR unknown device"},
		{"TRIGGER 0", "ERR usage: TRIGGER id action"},
		{"PERIOD", "ERR usage: PERIOD ms action..."},
		{"PERIOD 0 1", "ERR invalid duration 0"},
	}

	for _, tt := range tests {
		out, _ := run(c, tt.input+"\n")
		c.Assert(out, qt.Equals, tt.reply+"\n", qt.Commentf("%s", tt.input))
	}
}
