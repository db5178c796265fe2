// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package epdsim emulates a monochrome e-paper controller in memory.
//
// A Controller provides the transport, the three control lines and the busy
// input a driver needs. It decodes the command stream like the chip does:
// RAM window and counters, data entry direction, RAM writes, display update
// activation and deep sleep. Refreshed frames can be forwarded to any
// display.Drawer.
package epdsim

import (
	"fmt"
	"image"
	"sync"

	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/gpio"

	"github.com/GermanBionicSystems/epaper/epdio"
	"github.com/GermanBionicSystems/epaper/geom"
	"github.com/GermanBionicSystems/epaper/image1bit"
	"github.com/GermanBionicSystems/epaper/waveshare1in54"
)

// Opts configures a Controller.
type Opts struct {
	// Width and Height are the panel size in pixels.
	Width  int
	Height int
	// MaxTxSize is the largest accepted transfer. Defaults to
	// epdio.DefaultMaxTxSize.
	MaxTxSize int
	// BusyPolls is the number of busy reads returning High after each
	// display update.
	BusyPolls int
	// Sink receives every refreshed frame.
	Sink display.Drawer
	// Logger defaults to the logrus standard logger.
	Logger logrus.FieldLogger
}

// paramLen is the number of parameter bytes after which a command takes
// effect. Commands absent from the table take none.
var paramLen = map[waveshare1in54.Command]int{
	waveshare1in54.DriverOutputControl:            3,
	waveshare1in54.BoosterSoftStartControl:        3,
	waveshare1in54.GateScanStartPosition:          2,
	waveshare1in54.DeepSleepMode:                  1,
	waveshare1in54.DataEntryModeSetting:           1,
	waveshare1in54.TemperatureSensorControl:       2,
	waveshare1in54.DisplayUpdateControl1:          1,
	waveshare1in54.DisplayUpdateControl2:          1,
	waveshare1in54.WriteVCOMRegister:              1,
	waveshare1in54.WriteLUTRegister:               30,
	waveshare1in54.SetDummyLinePeriod:             1,
	waveshare1in54.SetGateTime:                    1,
	waveshare1in54.BorderWaveformControl:          1,
	waveshare1in54.SetRAMXAddressStartEndPosition: 2,
	waveshare1in54.SetRAMYAddressStartEndPosition: 4,
	waveshare1in54.SetRAMXAddressCounter:          1,
	waveshare1in54.SetRAMYAddressCounter:          2,
}

// Controller is an in-memory e-paper controller.
type Controller struct {
	mu   sync.Mutex
	opts Opts
	log  logrus.FieldLogger

	dc, cs, rst outPin
	busy        busyPin

	cmd  waveshare1in54.Command
	args []byte
	regs map[waveshare1in54.Command][]byte

	mode         waveshare1in54.DataEntryMode
	xStart, xEnd uint16
	yStart, yEnd uint16
	x, y         uint16

	ram   *image1bit.Image
	panel *image1bit.Image

	busyLeft  int
	sleeping  bool
	inReset   bool
	refreshes int
}

// New returns a Controller in its power-on state: RAM and panel white.
func New(opts *Opts) (*Controller, error) {
	if opts.Width <= 0 || opts.Height <= 0 || opts.Width > 0x100*8 || opts.Height > 0xFFFF {
		return nil, fmt.Errorf("epdsim: invalid panel size %dx%d", opts.Width, opts.Height)
	}
	c := &Controller{
		opts: *opts,
		log:  opts.Logger,
	}
	if c.opts.MaxTxSize <= 0 {
		c.opts.MaxTxSize = epdio.DefaultMaxTxSize
	}
	if c.log == nil {
		c.log = logrus.StandardLogger()
	}
	c.dc = outPin{c: c, name: "DC"}
	c.cs = outPin{c: c, name: "CS"}
	c.rst = outPin{c: c, name: "RST", onChange: c.resetLine}
	c.busy = busyPin{c: c}
	r := geom.PixelRect{Width: uint16(opts.Width), Height: uint16(opts.Height)}
	c.ram = image1bit.New(r)
	c.panel = image1bit.New(r)
	c.resetRegisters()
	return c, nil
}

// resetRegisters restores the register state after a hardware reset. RAM
// content is kept.
func (c *Controller) resetRegisters() {
	c.regs = map[waveshare1in54.Command][]byte{}
	c.cmd = waveshare1in54.NOP
	c.args = nil
	c.mode = waveshare1in54.YIncXInc | waveshare1in54.CounterX
	stride := c.ram.Stride
	c.xStart, c.xEnd = 0, uint16(stride-1)
	c.yStart, c.yEnd = 0, uint16(c.opts.Height-1)
	c.x, c.y = 0, 0
	c.sleeping = false
	c.busyLeft = 0
}

func (c *Controller) String() string {
	return fmt.Sprintf("epdsim.Controller{%dx%d}", c.opts.Width, c.opts.Height)
}

// DC implements epdio.Transport.
func (c *Controller) DC() epdio.DigitalOutput {
	return &c.dc
}

// CS returns the chip select line.
func (c *Controller) CS() epdio.DigitalOutput {
	return &c.cs
}

// Reset returns the reset line. A low to high transition resets the
// registers and leaves deep sleep.
func (c *Controller) Reset() epdio.DigitalOutput {
	return &c.rst
}

// Busy returns the busy line.
func (c *Controller) Busy() epdio.DigitalInput {
	return &c.busy
}

// MaxTxSize implements epdio.Transport.
func (c *Controller) MaxTxSize() int {
	return c.opts.MaxTxSize
}

// Tx implements epdio.Transport.
func (c *Controller) Tx(w []byte) error {
	if len(w) > c.opts.MaxTxSize {
		return fmt.Errorf("epdsim: transfer of %d bytes exceeds %d", len(w), c.opts.MaxTxSize)
	}

	c.mu.Lock()
	var frames []*image1bit.Image
	if c.sleeping {
		c.log.WithField("len", len(w)).Warn("epdsim: transfer ignored in deep sleep")
	} else if c.dc.level == gpio.Low {
		for _, b := range w {
			if f := c.command(waveshare1in54.Command(b)); f != nil {
				frames = append(frames, f)
			}
		}
	} else {
		for _, b := range w {
			c.data(b)
		}
	}
	sink := c.opts.Sink
	c.mu.Unlock()

	if sink != nil {
		for _, f := range frames {
			if err := sink.Draw(f.Bounds(), f, image.Point{}); err != nil {
				c.log.WithError(err).Warn("epdsim: sink failed")
			}
		}
	}
	return nil
}

// command starts a new command. It returns the refreshed frame when the
// command triggers a display update.
func (c *Controller) command(cmd waveshare1in54.Command) *image1bit.Image {
	c.cmd = cmd
	c.args = c.args[:0]
	c.log.WithField("cmd", cmd).Debug("epdsim: command")

	switch cmd {
	case waveshare1in54.SWReset:
		c.resetRegisters()
	case waveshare1in54.MasterActivation:
		return c.activate()
	case waveshare1in54.WriteRAM, waveshare1in54.NOP:
	default:
		if _, ok := paramLen[cmd]; !ok {
			c.log.WithField("cmd", cmd).Warn("epdsim: unknown command")
		}
	}
	return nil
}

func (c *Controller) data(b byte) {
	if c.cmd == waveshare1in54.WriteRAM {
		c.writeRAM(b)
		return
	}
	n, ok := paramLen[c.cmd]
	if !ok || len(c.args) >= n {
		return
	}
	c.args = append(c.args, b)
	if len(c.args) == n {
		c.apply(c.cmd, c.args)
	}
}

func (c *Controller) apply(cmd waveshare1in54.Command, p []byte) {
	c.regs[cmd] = append([]byte(nil), p...)

	switch cmd {
	case waveshare1in54.DataEntryModeSetting:
		c.mode = waveshare1in54.DataEntryMode(p[0] & 0x07)
	case waveshare1in54.SetRAMXAddressStartEndPosition:
		c.xStart, c.xEnd = uint16(p[0]), uint16(p[1])
	case waveshare1in54.SetRAMYAddressStartEndPosition:
		c.yStart = uint16(p[0]) | uint16(p[1])<<8
		c.yEnd = uint16(p[2]) | uint16(p[3])<<8
	case waveshare1in54.SetRAMXAddressCounter:
		c.x = uint16(p[0])
	case waveshare1in54.SetRAMYAddressCounter:
		c.y = uint16(p[0]) | uint16(p[1])<<8
	case waveshare1in54.DeepSleepMode:
		if waveshare1in54.SleepMode(p[0]&1) == waveshare1in54.EnterDeepSleep {
			c.sleeping = true
			c.log.Debug("epdsim: deep sleep")
		}
	}
}

func (c *Controller) writeRAM(b byte) {
	if int(c.x) < c.ram.Stride && int(c.y) < c.opts.Height {
		c.ram.Pix[int(c.y)*c.ram.Stride+int(c.x)] = b
	}

	xInc := c.mode&waveshare1in54.YDecXInc != 0
	yInc := c.mode&waveshare1in54.YIncXDec != 0
	if c.mode&waveshare1in54.CounterY == 0 {
		var wrapped bool
		c.x, wrapped = step(c.x, c.xStart, c.xEnd, xInc)
		if wrapped {
			c.y, _ = step(c.y, c.yStart, c.yEnd, yInc)
		}
	} else {
		var wrapped bool
		c.y, wrapped = step(c.y, c.yStart, c.yEnd, yInc)
		if wrapped {
			c.x, _ = step(c.x, c.xStart, c.xEnd, xInc)
		}
	}
}

// step advances an address counter within the window [start, end], in either
// order, and reports whether it wrapped around.
func step(v, start, end uint16, inc bool) (uint16, bool) {
	lo, hi := min(start, end), max(start, end)
	if inc {
		if v >= hi {
			return lo, true
		}
		return v + 1, false
	}
	if v <= lo {
		return hi, true
	}
	return v - 1, false
}

func (c *Controller) activate() *image1bit.Image {
	uc := byte(0xC7)
	if p, ok := c.regs[waveshare1in54.DisplayUpdateControl2]; ok {
		uc = p[0]
	}
	c.busyLeft = c.opts.BusyPolls
	// Neither the initial nor the pattern display is requested.
	if uc&byte(waveshare1in54.TargetBoth) == 0 {
		c.log.WithField("control", fmt.Sprintf("0x%02X", uc)).Debug("epdsim: update without display")
		return nil
	}
	copy(c.panel.Pix, c.ram.Pix)
	c.refreshes++
	c.log.WithField("refreshes", c.refreshes).Debug("epdsim: refresh")
	return c.frame()
}

func (c *Controller) frame() *image1bit.Image {
	f := image1bit.New(c.panel.PixelRect())
	copy(f.Pix, c.panel.Pix)
	return f
}

func (c *Controller) resetLine(l gpio.Level) {
	if l == gpio.Low {
		c.inReset = true
		return
	}
	if c.inReset {
		c.inReset = false
		c.resetRegisters()
		c.log.Debug("epdsim: hardware reset")
	}
}

// Frame returns a copy of the image shown on the panel.
func (c *Controller) Frame() *image1bit.Image {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frame()
}

// RAM returns a copy of the controller RAM.
func (c *Controller) RAM() *image1bit.Image {
	c.mu.Lock()
	defer c.mu.Unlock()
	f := image1bit.New(c.ram.PixelRect())
	copy(f.Pix, c.ram.Pix)
	return f
}

// Register returns the last parameters written to cmd, or nil.
func (c *Controller) Register(cmd waveshare1in54.Command) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]byte(nil), c.regs[cmd]...)
}

// Refreshes returns the number of display updates so far.
func (c *Controller) Refreshes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshes
}

// Sleeping reports whether the controller is in deep sleep.
func (c *Controller) Sleeping() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sleeping
}

// SetSink replaces the frame sink.
func (c *Controller) SetSink(s display.Drawer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.opts.Sink = s
}

type outPin struct {
	c        *Controller
	name     string
	level    gpio.Level
	onChange func(gpio.Level)
}

func (p *outPin) String() string {
	return p.name
}

func (p *outPin) Out(l gpio.Level) error {
	p.c.mu.Lock()
	defer p.c.mu.Unlock()
	p.level = l
	if p.onChange != nil {
		p.onChange(l)
	}
	return nil
}

type busyPin struct {
	c *Controller
}

func (p *busyPin) String() string {
	return "BUSY"
}

func (p *busyPin) Read() (gpio.Level, error) {
	p.c.mu.Lock()
	defer p.c.mu.Unlock()
	if p.c.busyLeft > 0 {
		p.c.busyLeft--
		return gpio.High, nil
	}
	return gpio.Low, nil
}

var _ epdio.Transport = &Controller{}
