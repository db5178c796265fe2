// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package panelsink serves the content of a monochrome panel over HTTP.
//
// A Sink is a display.Drawer, typically fed by the epdsim simulator with every
// refreshed frame. Each Draw starts a new numbered frame. A GET request
// receives the current frame and then every following one as a
// "multipart/x-mixed-replace" stream; "?once=1" returns only the current
// frame. Frames are 1-bit PNG by default, "?format=jpeg" or Options.Format
// select JPEG. Every image carries its frame number in the X-Frame header.
package panelsink

import (
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"net/http"
	"sync"

	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/display"

	"github.com/GermanBionicSystems/epaper/geom"
	"github.com/GermanBionicSystems/epaper/image1bit"
)

// Options for panelsink devices.
type Options struct {
	// Width and Height of the panel in pixels.
	Width, Height int

	// Format is used when a request does not ask for one.
	Format Format
	// Compression is the PNG compression level.
	Compression png.CompressionLevel
	// Quality is the JPEG quality, 1 to 100. Defaults to 90.
	Quality int

	// Logger defaults to the logrus standard logger.
	Logger logrus.FieldLogger
}

// Sink is a display.Drawer streaming its content to HTTP clients.
type Sink struct {
	defaults imageConfig
	log      logrus.FieldLogger

	mu  sync.Mutex
	img *image1bit.Image
	seq uint64
	// cache holds the current frame per encoding.
	cache map[imageConfig]*frame
	// changed is closed by the next Draw, halt by the next Halt.
	changed chan struct{}
	halt    chan struct{}
}

var _ display.Drawer = (*Sink)(nil)
var _ http.Handler = (*Sink)(nil)

// New creates a new sink showing a white panel as frame 0.
func New(opt *Options) *Sink {
	s := &Sink{
		defaults: imageConfig{
			format:      opt.Format,
			compression: opt.Compression,
			quality:     opt.Quality,
		},
		log:     opt.Logger,
		img:     image1bit.New(geom.PixelRect{Width: uint16(opt.Width), Height: uint16(opt.Height)}),
		cache:   map[imageConfig]*frame{},
		changed: make(chan struct{}),
		halt:    make(chan struct{}),
	}
	if s.defaults.quality <= 0 || s.defaults.quality > 100 {
		s.defaults.quality = 90
	}
	if s.log == nil {
		s.log = logrus.StandardLogger()
	}
	return s
}

// String returns the name of the device.
func (s *Sink) String() string {
	return "PanelSink"
}

// Halt implements conn.Resource. It ends the running client streams; new
// requests are still served.
func (s *Sink) Halt() error {
	s.mu.Lock()
	close(s.halt)
	s.halt = make(chan struct{})
	s.mu.Unlock()
	return nil
}

// ColorModel implements display.Drawer.
func (s *Sink) ColorModel() color.Model {
	return image1bit.ColorModel
}

// Bounds implements display.Drawer.
func (s *Sink) Bounds() image.Rectangle {
	return s.img.Bounds()
}

// Draw implements display.Drawer. Every call publishes a new frame.
func (s *Sink) Draw(dstRect image.Rectangle, src image.Image, srcPts image.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	draw.Draw(s.img, dstRect, src, srcPts, draw.Src)
	s.seq++
	clear(s.cache)
	close(s.changed)
	s.changed = make(chan struct{})
	return nil
}

// Frames returns the number of the current frame.
func (s *Sink) Frames() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

// current returns the current frame encoded per cfg, with the channels
// signalling its replacement and the end of the stream.
func (s *Sink) current(cfg imageConfig) (*frame, <-chan struct{}, <-chan struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f := s.cache[cfg]
	if f == nil {
		var err error
		if f, err = newFrame(s.img, s.seq, cfg); err != nil {
			return nil, nil, nil, err
		}
		s.cache[cfg] = f
	}
	return f, s.changed, s.halt, nil
}
