// Package phase holds the winding excitation tables for 2-, 4- and 5-phase
// stepper motors driven directly from GPIO leads.
package phase

import (
	"strconv"

	"periph.io/x/periph/conn/gpio"
)

// Topology is the winding topology of a phase-wired stepper motor. Its value
// equals the number of leads driven.
type Topology int

const (
	TwoPhase  Topology = 2
	FourPhase Topology = 4
	FivePhase Topology = 5
)

const (
	h = gpio.High
	l = gpio.Low
)

var (
	// 2 leads, 4 steps
	twoPhase = [][]gpio.Level{
		{l, h}, // 01
		{h, h}, // 11
		{h, l}, // 10
		{l, l}, // 00
	}

	// 4 leads, 4 steps
	fourPhase = [][]gpio.Level{
		{h, l, h, l}, // 1010
		{l, h, h, l}, // 0110
		{l, h, l, h}, // 0101
		{h, l, l, h}, // 1001
	}

	// 5 leads, 10 steps
	fivePhase = [][]gpio.Level{
		{l, h, h, l, h}, // 01101
		{l, h, l, l, h}, // 01001
		{l, h, l, h, h}, // 01011
		{l, h, l, h, l}, // 01010
		{h, h, l, h, l}, // 11010
		{h, l, l, h, l}, // 10010
		{h, l, h, h, l}, // 10110
		{h, l, h, l, l}, // 10100
		{h, l, h, l, h}, // 10101
		{l, l, h, l, h}, // 00101
	}
)

func (t Topology) table() [][]gpio.Level {
	switch t {
	case TwoPhase:
		return twoPhase
	case FourPhase:
		return fourPhase
	case FivePhase:
		return fivePhase
	default:
		return nil
	}
}

// Valid reports whether t is one of the supported topologies.
func (t Topology) Valid() bool {
	return t.table() != nil
}

// Leads returns the number of winding leads driven for t.
func (t Topology) Leads() int {
	if !t.Valid() {
		return 0
	}
	return int(t)
}

// CycleLength returns the number of distinct steps before the pattern repeats.
func (t Topology) CycleLength() int {
	return len(t.table())
}

func (t Topology) String() string {
	if !t.Valid() {
		return "INVALID TOPOLOGY"
	}
	return strconv.Itoa(int(t)) + "-phase"
}

// Pattern returns the lead levels for the given step of topology t. The step
// is reduced modulo the cycle length. The returned slice is owned by the caller.
// Pattern returns nil for an unknown topology.
func Pattern(t Topology, step int) []gpio.Level {
	table := t.table()
	if table == nil {
		return nil
	}

	n := len(table)
	step %= n
	if step < 0 {
		step += n
	}

	pattern := make([]gpio.Level, len(table[step]))
	copy(pattern, table[step])

	return pattern
}
