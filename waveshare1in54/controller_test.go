// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package waveshare1in54

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/GermanBionicSystems/epaper/geom"
)

type record struct {
	cmd  Command
	data []byte
	wait bool
}

type fakeController []record

func (r *fakeController) send(cmd Command, data []byte) {
	*r = append(*r, record{
		cmd:  cmd,
		data: append([]byte(nil), data...),
	})
}

func (r *fakeController) waitUntilIdle() {
	*r = append(*r, record{wait: true})
}

func TestInitDisplay(t *testing.T) {
	for _, tc := range []struct {
		name string
		opts Opts
		want []record
	}{
		{
			name: "epd1in54",
			opts: EPD1in54,
			want: []record{
				{cmd: DriverOutputControl, data: []byte{200 - 1, 0, 0}},
				{cmd: BoosterSoftStartControl, data: []byte{0xD7, 0xD6, 0x9D}},
				{cmd: WriteVCOMRegister, data: []byte{0xA8}},
				{cmd: SetDummyLinePeriod, data: []byte{0x1A}},
				{cmd: SetGateTime, data: []byte{0x08}},
				{cmd: DataEntryModeSetting, data: []byte{0x03}},
				{cmd: WriteLUTRegister, data: FullUpdate.Bytes()},
			},
		},
		{
			name: "tall",
			opts: Opts{Width: 128, Height: 296},
			want: []record{
				{cmd: DriverOutputControl, data: []byte{0x27, 0x01, 0}},
				{cmd: BoosterSoftStartControl, data: []byte{0xD7, 0xD6, 0x9D}},
				{cmd: WriteVCOMRegister, data: []byte{0xA8}},
				{cmd: SetDummyLinePeriod, data: []byte{0x1A}},
				{cmd: SetGateTime, data: []byte{0x08}},
				{cmd: DataEntryModeSetting, data: []byte{0x03}},
				{cmd: WriteLUTRegister, data: FullUpdate.Bytes()},
			},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var got fakeController

			initDisplay(&got, &tc.opts)

			if diff := cmp.Diff([]record(got), tc.want, cmpopts.EquateEmpty(), cmp.AllowUnexported(record{})); diff != "" {
				t.Errorf("initDisplay() difference (-got +want):\n%s", diff)
			}
		})
	}
}

func TestDrawImage(t *testing.T) {
	for _, tc := range []struct {
		name string
		r    geom.ByteRect
		data []byte
		uc   UpdateControl
		want []record
	}{
		{
			name: "window",
			r:    geom.ByteRect{X: 2, Y: 10, Width: 3, Height: 5},
			data: make([]byte, 15),
			uc:   DefaultUpdateControl,
			want: []record{
				{cmd: SetRAMXAddressStartEndPosition, data: []byte{2, 4}},
				{cmd: SetRAMYAddressStartEndPosition, data: []byte{10, 0, 14, 0}},
				{cmd: SetRAMXAddressCounter, data: []byte{2}},
				{cmd: SetRAMYAddressCounter, data: []byte{10, 0}},
				{cmd: WriteRAM, data: make([]byte, 15)},
				{cmd: DisplayUpdateControl2, data: []byte{0xC7}},
				{cmd: MasterActivation},
				{cmd: NOP},
				{wait: true},
			},
		},
		{
			name: "full canvas with custom control",
			r:    geom.ByteRect{Width: 25, Height: 200},
			data: make([]byte, 25*200),
			uc:   UpdateControl{Enable: EnableClock, Target: TargetBoth, Disable: DisableClock},
			want: []record{
				{cmd: SetRAMXAddressStartEndPosition, data: []byte{0, 24}},
				{cmd: SetRAMYAddressStartEndPosition, data: []byte{0, 0, 199, 0}},
				{cmd: SetRAMXAddressCounter, data: []byte{0}},
				{cmd: SetRAMYAddressCounter, data: []byte{0, 0}},
				{cmd: WriteRAM, data: make([]byte, 25*200)},
				{cmd: DisplayUpdateControl2, data: []byte{0x8D}},
				{cmd: MasterActivation},
				{cmd: NOP},
				{wait: true},
			},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var got fakeController

			drawImage(&got, tc.r, tc.data, tc.uc)

			if diff := cmp.Diff([]record(got), tc.want, cmpopts.EquateEmpty(), cmp.AllowUnexported(record{})); diff != "" {
				t.Errorf("drawImage() difference (-got +want):\n%s", diff)
			}
		})
	}
}

func TestRegisterValues(t *testing.T) {
	for _, tc := range []struct {
		name string
		got  byte
		want byte
	}{
		{"default update control", DefaultUpdateControl.Byte(), 0xC7},
		{"zero update control", UpdateControl{}.orDefault().Byte(), 0xC7},
		{"initial only", UpdateControl{Enable: EnableClockThenCP, Target: TargetInitial, Disable: DisableCPThenClock}.Byte(), 0xCB},
		{"default border", DefaultBorderWaveform.Byte(), 0x71},
		{"follow source", BorderWaveform{FollowSource: true}.Byte(), 0x80},
		{"fixed VSL", BorderWaveform{Fixed: true, Level: BorderVSL}.Byte(), 0x60},
		{"GS transition", BorderWaveform{Transition: BorderGS1ToGS0}.Byte(), 0x02},
		{"data entry", byte(YDecXInc | CounterY), 0x05},
	} {
		if tc.got != tc.want {
			t.Errorf("%s: got 0x%02X, want 0x%02X", tc.name, tc.got, tc.want)
		}
	}
}

func TestLUT(t *testing.T) {
	for _, lut := range []LUT{FullUpdate, PartialUpdate} {
		b := lut.Bytes()
		if len(b) != 30 {
			t.Errorf("%s: %d bytes, want 30", lut, len(b))
		}
		b[0] ^= 0xFF
		if lut.Bytes()[0] == b[0] {
			t.Errorf("%s: Bytes() exposes the table", lut)
		}
	}
	if got := PartialUpdate.Bytes()[:4]; !cmp.Equal(got, []byte{0x10, 0x18, 0x18, 0x28}) {
		t.Errorf("PartialUpdate starts with % X", got)
	}
}

func TestCommandString(t *testing.T) {
	if s := WriteRAM.String(); s != "WriteRAM" {
		t.Errorf("WriteRAM.String() = %q", s)
	}
	if s := Command(0x99).String(); s != "Command(0x99)" {
		t.Errorf("Command(0x99).String() = %q", s)
	}
}
