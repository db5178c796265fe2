// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package epdsim

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus/hooks/test"
	"periph.io/x/conn/v3/gpio"

	"github.com/GermanBionicSystems/epaper/epdio"
	"github.com/GermanBionicSystems/epaper/geom"
	"github.com/GermanBionicSystems/epaper/image1bit"
	"github.com/GermanBionicSystems/epaper/waveshare1in54"
)

type recordingSink struct {
	frames []image.Image
}

func (s *recordingSink) ColorModel() color.Model { return image1bit.ColorModel }
func (s *recordingSink) Bounds() image.Rectangle { return image.Rect(0, 0, 200, 200) }
func (s *recordingSink) Halt() error             { return nil }
func (s *recordingSink) String() string          { return "recordingSink" }

func (s *recordingSink) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	s.frames = append(s.frames, src)
	return nil
}

func newSim(t *testing.T, opts Opts) *Controller {
	t.Helper()
	if opts.Width == 0 {
		opts.Width, opts.Height = 200, 200
	}
	logger, _ := test.NewNullLogger()
	opts.Logger = logger
	c, err := New(&opts)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func send(t *testing.T, c *Controller, cmd waveshare1in54.Command, data ...byte) {
	t.Helper()
	if err := epdio.SendCommand(c, byte(cmd)); err != nil {
		t.Fatal(err)
	}
	if err := epdio.SendPayload(c, data); err != nil {
		t.Fatal(err)
	}
}

func TestRAMWindow(t *testing.T) {
	c := newSim(t, Opts{})

	send(t, c, waveshare1in54.SetRAMXAddressStartEndPosition, 2, 3)
	send(t, c, waveshare1in54.SetRAMYAddressStartEndPosition, 10, 0, 11, 0)
	send(t, c, waveshare1in54.SetRAMXAddressCounter, 2)
	send(t, c, waveshare1in54.SetRAMYAddressCounter, 10, 0)
	send(t, c, waveshare1in54.WriteRAM, 1, 2, 3, 4, 5)

	ram := c.RAM()
	_, got := ram.Crop(geom.ByteRect{X: 2, Y: 10, Width: 2, Height: 2})
	// The fifth byte wraps around to the window origin.
	if diff := cmp.Diff(got, []byte{5, 2, 3, 4}); diff != "" {
		t.Errorf("RAM difference (-got +want):\n%s", diff)
	}
	if c.Refreshes() != 0 {
		t.Error("RAM write refreshed the panel")
	}
}

func TestDataEntryModes(t *testing.T) {
	for _, tc := range []struct {
		name string
		mode waveshare1in54.DataEntryMode
		x, y byte
		want []byte
	}{
		{name: "x first increment", mode: waveshare1in54.YIncXInc | waveshare1in54.CounterX, x: 0, y: 0, want: []byte{1, 2, 3, 4}},
		{name: "y first increment", mode: waveshare1in54.YIncXInc | waveshare1in54.CounterY, x: 0, y: 0, want: []byte{1, 3, 2, 4}},
		{name: "x first decrement", mode: waveshare1in54.YDecXDec | waveshare1in54.CounterX, x: 1, y: 1, want: []byte{4, 3, 2, 1}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			c := newSim(t, Opts{})
			send(t, c, waveshare1in54.DataEntryModeSetting, byte(tc.mode))
			send(t, c, waveshare1in54.SetRAMXAddressStartEndPosition, 0, 1)
			send(t, c, waveshare1in54.SetRAMYAddressStartEndPosition, 0, 0, 1, 0)
			send(t, c, waveshare1in54.SetRAMXAddressCounter, tc.x)
			send(t, c, waveshare1in54.SetRAMYAddressCounter, tc.y, 0)
			send(t, c, waveshare1in54.WriteRAM, 1, 2, 3, 4)

			_, got := c.RAM().Crop(geom.ByteRect{Width: 2, Height: 2})
			if diff := cmp.Diff(got, tc.want); diff != "" {
				t.Errorf("RAM difference (-got +want):\n%s", diff)
			}
		})
	}
}

func TestMaxTxSize(t *testing.T) {
	c := newSim(t, Opts{MaxTxSize: 16})
	if err := c.Tx(make([]byte, 17)); err == nil {
		t.Error("oversized transfer accepted")
	}
	if err := c.Tx(make([]byte, 16)); err != nil {
		t.Errorf("Tx() = %v", err)
	}
}

func TestBusy(t *testing.T) {
	c := newSim(t, Opts{BusyPolls: 2})
	send(t, c, waveshare1in54.MasterActivation)

	var got []gpio.Level
	for i := 0; i < 3; i++ {
		l, err := c.Busy().Read()
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, l)
	}
	if diff := cmp.Diff(got, []gpio.Level{gpio.High, gpio.High, gpio.Low}); diff != "" {
		t.Errorf("busy levels difference (-got +want):\n%s", diff)
	}
}

func newDriver(t *testing.T, c *Controller) *waveshare1in54.Dev {
	t.Helper()
	logger, _ := test.NewNullLogger()
	opts := waveshare1in54.EPD1in54
	opts.Logger = logger
	d, err := waveshare1in54.NewWithTransport(c, c.CS(), c.Reset(), c.Busy(), &opts)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestDriver(t *testing.T) {
	sink := &recordingSink{}
	c := newSim(t, Opts{Sink: sink, MaxTxSize: 1024})
	d := newDriver(t, c)

	if err := d.Init(); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(c.Register(waveshare1in54.DriverOutputControl), []byte{199, 0, 0}); diff != "" {
		t.Errorf("DriverOutputControl difference (-got +want):\n%s", diff)
	}
	if diff := cmp.Diff(c.Register(waveshare1in54.WriteLUTRegister), waveshare1in54.FullUpdate.Bytes()); diff != "" {
		t.Errorf("LUT difference (-got +want):\n%s", diff)
	}

	if err := d.Fill(image1bit.Black); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(c.Frame().Pix, bytes.Repeat([]byte{0xFF}, 25*200)) {
		t.Error("panel not black after Fill(Black)")
	}

	img := image1bit.New(geom.PixelRect{Width: 200, Height: 200})
	draw.Draw(img, image.Rect(40, 40, 60, 60), &image.Uniform{C: image1bit.Black}, image.Point{}, draw.Src)
	if err := d.DrawImage(img); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(c.Frame().Pix, img.Pix); diff != "" {
		t.Errorf("panel difference (-got +want):\n%s", diff)
	}

	if err := d.Draw(image.Rect(3, 3, 5, 4), &image.Uniform{C: color.Black}, image.Point{}); err != nil {
		t.Fatal(err)
	}
	f := c.Frame()
	if !f.BitAt(3, 3) || !f.BitAt(4, 3) || f.BitAt(5, 3) || !f.BitAt(45, 45) {
		t.Error("Draw() did not merge with the previous frame")
	}

	if got := c.Refreshes(); got != 3 {
		t.Errorf("Refreshes() = %d, want 3", got)
	}
	if len(sink.frames) != 3 {
		t.Errorf("sink got %d frames, want 3", len(sink.frames))
	}
}

func TestDeepSleep(t *testing.T) {
	c := newSim(t, Opts{})
	d := newDriver(t, c)

	if err := d.Init(); err != nil {
		t.Fatal(err)
	}
	if err := d.Sleep(waveshare1in54.EnterDeepSleep); err != nil {
		t.Fatal(err)
	}
	if !c.Sleeping() {
		t.Fatal("controller not sleeping")
	}

	// Writes are ignored until the next hardware reset.
	if err := d.Fill(image1bit.Black); err != nil {
		t.Fatal(err)
	}
	if c.Refreshes() != 0 {
		t.Error("sleeping controller refreshed")
	}

	if err := d.Init(); err != nil {
		t.Fatal(err)
	}
	if c.Sleeping() {
		t.Error("Init() did not wake the controller")
	}
	if err := d.Fill(image1bit.Black); err != nil {
		t.Fatal(err)
	}
	if c.Refreshes() != 1 {
		t.Errorf("Refreshes() = %d, want 1", c.Refreshes())
	}
}

func TestUpdateWithoutDisplay(t *testing.T) {
	c := newSim(t, Opts{})
	d := newDriver(t, c)

	uc := waveshare1in54.UpdateControl{Enable: waveshare1in54.EnableClockThenCP, Disable: waveshare1in54.DisableCPThenClock}
	if err := d.FillWith(image1bit.Black, uc); err != nil {
		t.Fatal(err)
	}
	if c.Refreshes() != 0 {
		t.Error("update without target refreshed the panel")
	}
	if !c.RAM().BitAt(0, 0) {
		t.Error("RAM not written")
	}
}
