// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package waveshare1in54

import (
	"encoding/binary"

	"github.com/GermanBionicSystems/epaper/geom"
)

type controller interface {
	send(cmd Command, data []byte)
	waitUntilIdle()
}

// initDisplay programs the power, timing and waveform registers. The panel
// must have been reset beforehand.
func initDisplay(ctrl controller, opts *Opts) {
	var gates [3]byte
	binary.LittleEndian.PutUint16(gates[:], uint16(opts.Height-1))

	ctrl.send(DriverOutputControl, gates[:])
	ctrl.send(BoosterSoftStartControl, boosterSoftStart)
	ctrl.send(WriteVCOMRegister, vcom)
	ctrl.send(SetDummyLinePeriod, dummyLinePeriod)
	ctrl.send(SetGateTime, gateTime)
	ctrl.send(DataEntryModeSetting, []byte{byte(YIncXInc | CounterX)})
	setLUT(ctrl, FullUpdate)
}

func setLUT(ctrl controller, lut LUT) {
	ctrl.send(WriteLUTRegister, lut.Bytes())
}

// setRAMArea configures the RAM window, horizontally in bytes and vertically
// in pixels.
func setRAMArea(ctrl controller, r geom.ByteRect) {
	x := r.XWindow()
	y := r.YWindow()
	ctrl.send(SetRAMXAddressStartEndPosition, x[:])
	ctrl.send(SetRAMYAddressStartEndPosition, y[:])
}

func setRAMCounter(ctrl controller, r geom.ByteRect) {
	y := r.YCounter()
	ctrl.send(SetRAMXAddressCounter, []byte{r.XCounter()})
	ctrl.send(SetRAMYAddressCounter, y[:])
}

func uploadImage(ctrl controller, r geom.ByteRect, data []byte) {
	setRAMArea(ctrl, r)
	setRAMCounter(ctrl, r)
	ctrl.send(WriteRAM, data)
}

// refreshDisplay loads RAM into the panel and blocks until it is done.
func refreshDisplay(ctrl controller, uc UpdateControl) {
	ctrl.send(DisplayUpdateControl2, []byte{uc.Byte()})
	ctrl.send(MasterActivation, nil)
	// Terminates the frame write; the controller ignores the data.
	ctrl.send(NOP, nil)
	ctrl.waitUntilIdle()
}

func drawImage(ctrl controller, r geom.ByteRect, data []byte, uc UpdateControl) {
	uploadImage(ctrl, r, data)
	refreshDisplay(ctrl, uc)
}

func deepSleep(ctrl controller, mode SleepMode) {
	ctrl.send(DeepSleepMode, []byte{byte(mode)})
}

func setBorderWaveform(ctrl controller, b BorderWaveform) {
	ctrl.send(BorderWaveformControl, []byte{b.Byte()})
}
