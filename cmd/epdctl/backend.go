// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"github.com/GermanBionicSystems/epaper/epdsim"
	"github.com/GermanBionicSystems/epaper/image1bit"
	"github.com/GermanBionicSystems/epaper/internal/config"
	"github.com/GermanBionicSystems/epaper/waveshare1in54"
)

// panel is an opened display, on hardware or simulated.
type panel struct {
	dev *waveshare1in54.Dev
	sim *epdsim.Controller
	c   io.Closer
}

func (p *panel) Close() error {
	if p.c == nil {
		return nil
	}
	return p.c.Close()
}

func driverOpts(cfg *config.Config, log logrus.FieldLogger) *waveshare1in54.Opts {
	opts := waveshare1in54.EPD1in54
	opts.Width = cfg.Width
	opts.Height = cfg.Height
	opts.MaxTxSize = cfg.MaxTxSize
	opts.Speed = physic.Frequency(cfg.SpeedHz) * physic.Hertz
	opts.Logger = log
	return &opts
}

func pinOut(name string) (gpio.PinIO, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("unknown pin %q", name)
	}
	return p, nil
}

// openSPI opens the panel wired to the host SPI port and GPIO lines.
func openSPI(cfg *config.Config, log logrus.FieldLogger) (*panel, error) {
	if _, err := host.Init(); err != nil {
		return nil, err
	}
	var pins [4]gpio.PinIO
	for i, name := range []string{cfg.Pins.DC, cfg.Pins.CS, cfg.Pins.RST, cfg.Pins.Busy} {
		p, err := pinOut(name)
		if err != nil {
			return nil, err
		}
		pins[i] = p
	}
	if err := pins[3].In(gpio.PullNoChange, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("busy pin: %w", err)
	}
	port, err := spireg.Open(cfg.SPIPort)
	if err != nil {
		return nil, err
	}
	dev, err := waveshare1in54.New(port, pins[0], pins[1], pins[2], pins[3], driverOpts(cfg, log))
	if err != nil {
		return nil, errors.Join(err, port.Close())
	}
	log.WithField("port", port).Info("opened panel")
	return &panel{dev: dev, c: port}, nil
}

// openSim creates a simulated panel forwarding refreshed frames to sink.
func openSim(cfg *config.Config, log logrus.FieldLogger, sink display.Drawer) (*panel, error) {
	sim, err := epdsim.New(&epdsim.Opts{
		Width:     cfg.Width,
		Height:    cfg.Height,
		MaxTxSize: cfg.MaxTxSize,
		BusyPolls: 1,
		Sink:      sink,
		Logger:    log,
	})
	if err != nil {
		return nil, err
	}
	dev, err := waveshare1in54.NewWithTransport(sim, sim.CS(), sim.Reset(), sim.Busy(), driverOpts(cfg, log))
	if err != nil {
		return nil, err
	}
	log.WithField("size", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height)).Info("opened simulated panel")
	return &panel{dev: dev, sim: sim}, nil
}

// fanout forwards refreshed frames to several drawers.
type fanout []display.Drawer

func (f fanout) String() string {
	return fmt.Sprintf("fanout%v", []display.Drawer(f))
}

func (f fanout) Halt() error {
	var errs []error
	for _, d := range f {
		errs = append(errs, d.Halt())
	}
	return errors.Join(errs...)
}

func (f fanout) ColorModel() color.Model {
	return image1bit.ColorModel
}

func (f fanout) Bounds() image.Rectangle {
	var r image.Rectangle
	for _, d := range f {
		r = r.Union(d.Bounds())
	}
	return r
}

func (f fanout) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	var errs []error
	for _, d := range f {
		errs = append(errs, d.Draw(r, src, sp))
	}
	return errors.Join(errs...)
}

var _ display.Drawer = fanout(nil)
