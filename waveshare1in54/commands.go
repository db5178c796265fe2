// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package waveshare1in54

import (
	"fmt"
)

// Command is a controller register address.
type Command byte

// Commands
const (
	DriverOutputControl            Command = 0x01
	BoosterSoftStartControl        Command = 0x0C
	GateScanStartPosition          Command = 0x0F
	DeepSleepMode                  Command = 0x10
	DataEntryModeSetting           Command = 0x11
	SWReset                        Command = 0x12
	TemperatureSensorControl       Command = 0x1A
	MasterActivation               Command = 0x20
	DisplayUpdateControl1          Command = 0x21
	DisplayUpdateControl2          Command = 0x22
	WriteRAM                       Command = 0x24
	WriteVCOMRegister              Command = 0x2C
	WriteLUTRegister               Command = 0x32
	SetDummyLinePeriod             Command = 0x3A
	SetGateTime                    Command = 0x3B
	BorderWaveformControl          Command = 0x3C
	SetRAMXAddressStartEndPosition Command = 0x44
	SetRAMYAddressStartEndPosition Command = 0x45
	SetRAMXAddressCounter          Command = 0x4E
	SetRAMYAddressCounter          Command = 0x4F
	NOP                            Command = 0xFF
)

var commandNames = map[Command]string{
	DriverOutputControl:            "DriverOutputControl",
	BoosterSoftStartControl:        "BoosterSoftStartControl",
	GateScanStartPosition:          "GateScanStartPosition",
	DeepSleepMode:                  "DeepSleepMode",
	DataEntryModeSetting:           "DataEntryModeSetting",
	SWReset:                        "SWReset",
	TemperatureSensorControl:       "TemperatureSensorControl",
	MasterActivation:               "MasterActivation",
	DisplayUpdateControl1:          "DisplayUpdateControl1",
	DisplayUpdateControl2:          "DisplayUpdateControl2",
	WriteRAM:                       "WriteRAM",
	WriteVCOMRegister:              "WriteVCOMRegister",
	WriteLUTRegister:               "WriteLUTRegister",
	SetDummyLinePeriod:             "SetDummyLinePeriod",
	SetGateTime:                    "SetGateTime",
	BorderWaveformControl:          "BorderWaveformControl",
	SetRAMXAddressStartEndPosition: "SetRAMXAddressStartEndPosition",
	SetRAMYAddressStartEndPosition: "SetRAMYAddressStartEndPosition",
	SetRAMXAddressCounter:          "SetRAMXAddressCounter",
	SetRAMYAddressCounter:          "SetRAMYAddressCounter",
	NOP:                            "NOP",
}

func (c Command) String() string {
	if s, ok := commandNames[c]; ok {
		return s
	}
	return fmt.Sprintf("Command(0x%02X)", byte(c))
}

// Fixed register values of the reference panel.
var (
	boosterSoftStart = []byte{0xD7, 0xD6, 0x9D}
	vcom             = []byte{0xA8}
	// 4 dummy lines per gate.
	dummyLinePeriod = []byte{0x1A}
	// 2us per line.
	gateTime = []byte{0x08}
)

// LUT selects one of the built-in waveform tables.
type LUT int

const (
	FullUpdate LUT = iota
	PartialUpdate
)

var lutFullUpdate = [30]byte{
	0x66, 0x66, 0x44, 0x66, 0xAA, 0x11, 0x80, 0x08,
	0x11, 0x18, 0x81, 0x18, 0x11, 0x88, 0x11, 0x88,
	0x11, 0x88, 0x00, 0x00, 0xFF, 0xFF, 0xFF, 0xFF,
	0x5F, 0xAF, 0xFF, 0xFF, 0x2F, 0x00,
}

var lutPartialUpdate = [30]byte{
	0x10, 0x18, 0x18, 0x28, 0x18, 0x18, 0x18, 0x18,
	0x08, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x13, 0x11, 0x22, 0x63,
	0x11, 0x00, 0x00, 0x00, 0x00, 0x00,
}

// Bytes returns a copy of the 30 byte waveform table.
func (l LUT) Bytes() []byte {
	if l == PartialUpdate {
		b := lutPartialUpdate
		return b[:]
	}
	b := lutFullUpdate
	return b[:]
}

func (l LUT) String() string {
	if l == PartialUpdate {
		return "PartialUpdate"
	}
	return "FullUpdate"
}

// SleepMode is the argument of DeepSleepMode.
type SleepMode byte

const (
	Normal         SleepMode = 0x00
	EnterDeepSleep SleepMode = 0x01
)

// DataEntryMode controls how the RAM address counter advances while writing.
type DataEntryMode byte

// Address direction.
const (
	YDecXDec DataEntryMode = 0b00
	YDecXInc DataEntryMode = 0b01
	YIncXDec DataEntryMode = 0b10
	YIncXInc DataEntryMode = 0b11
)

// Counter direction.
const (
	// CounterX advances X first, then Y.
	CounterX DataEntryMode = 0b000
	// CounterY advances Y first, then X.
	CounterY DataEntryMode = 0b100
)

// EnableStep is the power-on part of DisplayUpdateControl2.
type EnableStep byte

const (
	EnableClock       EnableStep = 0x80
	EnableClockThenCP EnableStep = 0xC0
)

// UpdateTarget selects what MasterActivation loads into the panel.
type UpdateTarget byte

const (
	TargetInitial UpdateTarget = 0x08
	TargetPattern UpdateTarget = 0x04
	TargetBoth    UpdateTarget = 0x0C
)

// DisableStep is the power-off part of DisplayUpdateControl2.
type DisableStep byte

const (
	DisableCPThenClock DisableStep = 0x03
	DisableClock       DisableStep = 0x01
)

// UpdateControl is the parameter of DisplayUpdateControl2. The zero value
// stands for DefaultUpdateControl.
type UpdateControl struct {
	Enable  EnableStep
	Target  UpdateTarget
	Disable DisableStep
}

// DefaultUpdateControl is the sequence used by the vendor firmware (0xC7).
var DefaultUpdateControl = UpdateControl{
	Enable:  EnableClockThenCP,
	Target:  TargetPattern,
	Disable: DisableCPThenClock,
}

// Byte encodes u.
func (u UpdateControl) Byte() byte {
	return byte(u.Enable) | byte(u.Target) | byte(u.Disable)
}

func (u UpdateControl) orDefault() UpdateControl {
	if u == (UpdateControl{}) {
		return DefaultUpdateControl
	}
	return u
}

// BorderLevel is the fixed voltage applied to the border.
type BorderLevel byte

const (
	BorderVSS BorderLevel = 0x00
	BorderVSH BorderLevel = 0x10
	BorderVSL BorderLevel = 0x20
	BorderHiZ BorderLevel = 0x30
)

// BorderTransition is the LUT transition used for the border in GS mode.
type BorderTransition byte

const (
	BorderGS0ToGS1 BorderTransition = 0x01
	BorderGS1ToGS0 BorderTransition = 0x02
)

// BorderWaveform is the parameter of BorderWaveformControl.
type BorderWaveform struct {
	// FollowSource drives the border like a source line.
	FollowSource bool
	// Fixed selects Level instead of Transition.
	Fixed      bool
	Level      BorderLevel
	Transition BorderTransition
}

// DefaultBorderWaveform is the controller's reset value (0x71).
var DefaultBorderWaveform = BorderWaveform{
	Fixed:      true,
	Level:      BorderHiZ,
	Transition: BorderGS0ToGS1,
}

// Byte encodes b.
func (b BorderWaveform) Byte() byte {
	v := byte(b.Level) | byte(b.Transition)
	if b.FollowSource {
		v |= 0x80
	}
	if b.Fixed {
		v |= 0x40
	}
	return v
}
