// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package waveshare1in54

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/host/v3/rpi"

	"github.com/GermanBionicSystems/epaper/epdio"
	"github.com/GermanBionicSystems/epaper/geom"
	"github.com/GermanBionicSystems/epaper/image1bit"
)

// resetTime is how long reset is held low, and how long the controller needs
// after it is released.
const resetTime = 200 * time.Millisecond

// Image is a packed frame ready to be uploaded.
//
// *image1bit.Image implements it.
type Image interface {
	// Rect returns where the frame goes, horizontally in bytes.
	Rect() geom.ByteRect
	// Bytes returns the packed pixels, MSB first, row-major. It is not
	// modified.
	Bytes() []byte
}

// Opts defines the display configuration.
type Opts struct {
	// Width and Height are the canvas size in pixels.
	Width  int
	Height int
	// UpdateControl is used by DrawPacked, Fill, Clear and Draw. The zero value
	// selects DefaultUpdateControl.
	UpdateControl UpdateControl
	// Logger receives register writes at debug level. Defaults to the logrus
	// standard logger.
	Logger logrus.FieldLogger
	// Speed is the SPI clock used by New. Defaults to 5MHz.
	Speed physic.Frequency
	// MaxTxSize bounds a single SPI transfer. 0 asks the port.
	MaxTxSize int
}

// EPD1in54 contains the display configuration for the Waveshare 1.54 inch
// 200x200 panel.
var EPD1in54 = Opts{
	Width:  200,
	Height: 200,
}

// Dev defines the handler which is used to access the display.
type Dev struct {
	mu sync.Mutex

	t    epdio.Transport
	cs   epdio.DigitalOutput
	rst  epdio.DigitalOutput
	busy epdio.DigitalInput

	opts Opts
	log  logrus.FieldLogger

	sleep func(time.Duration)

	// buffer mirrors the panel RAM for Draw, which works on pixel
	// rectangles that are not byte aligned. Draw writes it before uploading,
	// so after a failed Draw it holds pixels the RAM may lack until Init and
	// a redraw of the region.
	buffer *image1bit.Image
}

// New creates new handler which is used to access the display.
func New(p spi.Port, dc, cs, rst gpio.PinOut, busy gpio.PinIn, opts *Opts) (*Dev, error) {
	speed := opts.Speed
	if speed == 0 {
		speed = 5 * physic.MegaHertz
	}
	c, err := p.Connect(speed, spi.Mode0, 8)
	if err != nil {
		return nil, err
	}
	return NewWithTransport(epdio.NewSPI(c, dc, opts.MaxTxSize), cs, rst, epdio.PinIn(busy), opts)
}

// NewHat creates new handler which is used to access the display. Default
// Waveshare Hat configuration is used.
func NewHat(p spi.Port, opts *Opts) (*Dev, error) {
	dc := rpi.P1_22
	cs := rpi.P1_24
	rst := rpi.P1_11
	busy := rpi.P1_18
	return New(p, dc, cs, rst, busy, opts)
}

// NewWithTransport creates a handler on top of arbitrary capabilities, such
// as a simulator.
func NewWithTransport(t epdio.Transport, cs, rst epdio.DigitalOutput, busy epdio.DigitalInput, opts *Opts) (*Dev, error) {
	// RAM X addresses are one byte wide.
	if opts.Width <= 0 || opts.Height <= 0 || opts.Width > 0x100*8 || opts.Height > 0xFFFF {
		return nil, fmt.Errorf("waveshare1in54: %w: invalid canvas %dx%d", epdio.ErrProtocolViolation, opts.Width, opts.Height)
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Dev{
		t:      t,
		cs:     cs,
		rst:    rst,
		busy:   busy,
		opts:   *opts,
		log:    log,
		sleep:  time.Sleep,
		buffer: image1bit.New(geom.PixelRect{Width: uint16(opts.Width), Height: uint16(opts.Height)}),
	}, nil
}

// Init resets the controller and programs it for full updates. It is also the
// way to recover from any error.
func (d *Dev) Init() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	eh := errorHandler{d: d}
	eh.out(d.rst, true)
	eh.out(d.cs, true)

	eh.out(d.rst, false)
	eh.sleep(resetTime)
	eh.out(d.rst, true)
	eh.sleep(resetTime)

	initDisplay(&eh, &d.opts)
	return d.wrap("init", eh.err)
}

// Update uploads data into the byte rectangle r of the controller RAM and
// refreshes the panel with uc. An empty rectangle is a no-op.
func (d *Dev) Update(r geom.ByteRect, data []byte, uc UpdateControl) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.update(r, data, uc); err != nil || r.Empty() {
		return err
	}
	d.mirror(r, data)
	return nil
}

func (d *Dev) update(r geom.ByteRect, data []byte, uc UpdateControl) error {
	if r.Empty() {
		return nil
	}
	if err := d.check(r, len(data)); err != nil {
		return err
	}
	eh := errorHandler{d: d}
	drawImage(&eh, r, data, uc.orDefault())
	return d.wrap("update", eh.err)
}

func (d *Dev) check(r geom.ByteRect, n int) error {
	canvas := geom.PixelRect{Width: uint16(d.opts.Width), Height: uint16(d.opts.Height)}.Bytes()
	if int(r.X)+int(r.Width) > int(canvas.Width) || int(r.Y)+int(r.Height) > d.opts.Height {
		return fmt.Errorf("waveshare1in54: %w: %s outside canvas %s", epdio.ErrProtocolViolation, r, canvas)
	}
	switch want := r.Len(); {
	case n > want:
		return fmt.Errorf("waveshare1in54: %w: %d bytes for %s, want %d", epdio.ErrPayloadTooLarge, n, r, want)
	case n < want:
		return fmt.Errorf("waveshare1in54: %w: %d bytes for %s, want %d", epdio.ErrProtocolViolation, n, r, want)
	}
	return nil
}

// DrawImage uploads img and refreshes the panel.
func (d *Dev) DrawImage(img Image) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.drawPacked(img.Rect(), img.Bytes())
}

// DrawPacked uploads packed pixels into r and refreshes the panel.
//
// r.X is a byte column, see geom.PixelRect.Bytes. An empty rectangle is a
// no-op.
func (d *Dev) DrawPacked(r geom.PixelRect, data []byte) error {
	if r.Empty() {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.drawPacked(r.Bytes(), data)
}

func (d *Dev) drawPacked(r geom.ByteRect, data []byte) error {
	if err := d.update(r, data, d.opts.UpdateControl); err != nil || r.Empty() {
		return err
	}
	d.mirror(r, data)
	return nil
}

// mirror copies an uploaded region into the shadow buffer.
func (d *Dev) mirror(r geom.ByteRect, data []byte) {
	w := int(r.Width)
	for row := 0; row < int(r.Height); row++ {
		off := (int(r.Y)+row)*d.buffer.Stride + int(r.X)
		copy(d.buffer.Pix[off:off+w], data[row*w:(row+1)*w])
	}
}

// Fill sets every pixel to c.
func (d *Dev) Fill(c image1bit.Color) error {
	return d.FillWith(c, d.opts.UpdateControl)
}

// FillWith sets every pixel to c using uc for the refresh.
func (d *Dev) FillWith(c image1bit.Color, uc UpdateControl) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	img := image1bit.NewFilled(uint16(d.opts.Width), uint16(d.opts.Height), c)
	if err := d.update(img.Rect(), img.Bytes(), uc); err != nil {
		return err
	}
	copy(d.buffer.Pix, img.Pix)
	return nil
}

// Clear sets every pixel to White.
func (d *Dev) Clear() error {
	return d.Fill(image1bit.White)
}

// Sleep writes mode to the deep sleep register. Only Init wakes the
// controller up from EnterDeepSleep.
func (d *Dev) Sleep(mode SleepMode) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	eh := errorHandler{d: d}
	deepSleep(&eh, mode)
	return d.wrap("sleep", eh.err)
}

// SetLUT loads one of the built-in waveform tables.
func (d *Dev) SetLUT(lut LUT) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	eh := errorHandler{d: d}
	setLUT(&eh, lut)
	return d.wrap("set LUT", eh.err)
}

// SetBorderWaveform configures how the border is driven during refreshes.
func (d *Dev) SetBorderWaveform(b BorderWaveform) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	eh := errorHandler{d: d}
	setBorderWaveform(&eh, b)
	return d.wrap("set border waveform", eh.err)
}

// ColorModel implements display.Drawer.
func (d *Dev) ColorModel() color.Model {
	return image1bit.ColorModel
}

// Bounds implements display.Drawer.
func (d *Dev) Bounds() image.Rectangle {
	return image.Rect(0, 0, d.opts.Width, d.opts.Height)
}

// Draw implements display.Drawer.
//
// The region is rasterised into a buffer mirroring the panel, then the byte
// aligned area covering it is uploaded and refreshed.
func (d *Dev) Draw(dstRect image.Rectangle, src image.Image, sp image.Point) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	r := dstRect.Intersect(d.Bounds())
	if r.Empty() {
		return nil
	}
	sp = sp.Add(r.Min.Sub(dstRect.Min))
	draw.Src.Draw(d.buffer, r, src, sp)

	br, data := d.buffer.Crop(geom.Align(r))
	return d.update(br, data, d.opts.UpdateControl)
}

// Halt puts the controller into deep sleep. The panel keeps its image.
func (d *Dev) Halt() error {
	return d.Sleep(EnterDeepSleep)
}

// String returns a string containing configuration information.
func (d *Dev) String() string {
	return fmt.Sprintf("epd.Dev{%v, Height: %d, Width: %d}", d.t, d.opts.Height, d.opts.Width)
}

func (d *Dev) wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("waveshare1in54: %s: %w", op, err)
}

var _ display.Drawer = &Dev{}
var _ Image = &image1bit.Image{}
