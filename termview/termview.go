// Copyright 2017 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package termview implements a monochrome display.Drawer that outputs to a
// terminal using ANSI color codes.
//
// Useful to watch what the simulated panel shows without opening a browser.
package termview

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"

	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
	"periph.io/x/conn/v3/display"

	"github.com/GermanBionicSystems/epaper/geom"
	"github.com/GermanBionicSystems/epaper/image1bit"
)

// Opts represents the options available for this display.
type Opts struct {
	// Width and Height of the panel in pixels.
	Width, Height int
	// Scale keeps one pixel out of Scale in each direction. Defaults to 1.
	Scale   int
	Palette *ansi256.Palette
	// W defaults to a colorable stdout.
	W io.Writer

	_ struct{}
}

// Dev is a panel emulator that outputs to the console.
type Dev struct {
	w       io.Writer
	scale   int
	palette ansi256.Palette

	frame *image1bit.Image
	buf   bytes.Buffer
}

// New returns a Dev that displays at the console.
func New(opts *Opts) *Dev {
	p := opts.Palette
	if p == nil {
		p = ansi256.Default
	}
	w := opts.W
	if w == nil {
		w = colorable.NewColorableStdout()
	}
	scale := opts.Scale
	if scale < 1 {
		scale = 1
	}
	return &Dev{
		w:       w,
		scale:   scale,
		palette: *p,
		frame:   image1bit.New(geom.PixelRect{Width: uint16(opts.Width), Height: uint16(opts.Height)}),
	}
}

func (d *Dev) String() string {
	return "TermView"
}

// Halt implements conn.Resource.
//
// It resets the terminal colors so the console is not corrupted.
func (d *Dev) Halt() error {
	_, err := d.w.Write([]byte("\n\033[0m"))
	return err
}

// ColorModel implements display.Drawer.
func (d *Dev) ColorModel() color.Model {
	return image1bit.ColorModel
}

// Bounds implements display.Drawer.
func (d *Dev) Bounds() image.Rectangle {
	return d.frame.Bounds()
}

// Draw implements display.Drawer.
func (d *Dev) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	draw.Draw(d.frame, r, src, sp, draw.Src)
	_, err := d.refresh()
	return err
}

var (
	white = color.NRGBA{0xFF, 0xFF, 0xFF, 0xFF}
	black = color.NRGBA{0, 0, 0, 0xFF}
)

func (d *Dev) refresh() (int, error) {
	d.buf.Reset()
	_, _ = d.buf.WriteString("\033[H")
	b := d.frame.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y += d.scale {
		_, _ = d.buf.WriteString("\r\033[0m")
		for x := b.Min.X; x < b.Max.X; x += d.scale {
			c := white
			if d.frame.BitAt(x, y) {
				c = black
			}
			_, _ = io.WriteString(&d.buf, d.palette.Block(c))
		}
		_, _ = d.buf.WriteString("\033[0m\n")
	}
	n, err := d.buf.WriteTo(d.w)
	return int(n), err
}

var _ display.Drawer = &Dev{}
var _ fmt.Stringer = &Dev{}
