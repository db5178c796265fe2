// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package image1bit implements a packed one bit per pixel image in the memory
// layout of monochrome e-paper controllers.
//
// Pixels are stored row-major, 8 pixels per byte, most significant bit first.
// A set bit is Black.
package image1bit

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/GermanBionicSystems/epaper/geom"
)

// Color is a monochrome pixel value.
type Color uint8

const (
	White Color = 0
	Black Color = 1
)

// RGBA implements color.Color.
func (c Color) RGBA() (uint32, uint32, uint32, uint32) {
	if c == Black {
		return 0, 0, 0, 0xFFFF
	}
	return 0xFFFF, 0xFFFF, 0xFFFF, 0xFFFF
}

func (c Color) String() string {
	if c == Black {
		return "Black"
	}
	return "White"
}

// fill returns the packed byte value of a run of 8 pixels of color c.
func (c Color) fill() byte {
	if c == Black {
		return 0xFF
	}
	return 0x00
}

// ColorModel converts any color to Black or White by luminance.
var ColorModel = color.ModelFunc(convert)

func convert(c color.Color) color.Color {
	return toColor(c)
}

func toColor(c color.Color) Color {
	if b, ok := c.(Color); ok {
		return b
	}
	r, g, b, _ := c.RGBA()
	if (299*r+587*g+114*b)/1000 >= 0x8000 {
		return White
	}
	return Black
}

// Image is a packed monochrome image.
//
// The image covers a PixelRect. Its Rect is the byte addressed rectangle the
// controller receives; like geom.PixelRect.Bytes, X is carried through as a
// byte column.
type Image struct {
	// Pix holds Stride bytes per row.
	Pix    []byte
	Stride int

	r geom.PixelRect
}

// New returns a white image covering r. A zero width still allocates one
// byte column per row, matching the controller's addressing.
func New(r geom.PixelRect) *Image {
	br := r.Bytes()
	return &Image{
		Pix:    make([]byte, br.Len()),
		Stride: int(br.Width),
		r:      r,
	}
}

// NewFilled returns an image of width×height pixels at the origin, uniformly
// of color c.
func NewFilled(width, height uint16, c Color) *Image {
	img := New(geom.PixelRect{Width: width, Height: height})
	if v := c.fill(); v != 0 {
		for i := range img.Pix {
			img.Pix[i] = v
		}
	}
	return img
}

// FromBytes wraps an already packed buffer. It fails when data does not match
// the byte size of r.
func FromBytes(r geom.PixelRect, data []byte) (*Image, error) {
	br := r.Bytes()
	want := br.Len()
	if len(data) != want {
		return nil, fmt.Errorf("image1bit: got %d bytes for %s, want %d", len(data), r, want)
	}
	return &Image{Pix: data, Stride: int(br.Width), r: r}, nil
}

// PixelRect returns the pixel rectangle covered by the image.
func (i *Image) PixelRect() geom.PixelRect {
	return i.r
}

// Rect returns the byte addressed rectangle of the image.
func (i *Image) Rect() geom.ByteRect {
	return i.r.Bytes()
}

// Bytes returns the packed pixels. The slice is not copied.
func (i *Image) Bytes() []byte {
	return i.Pix
}

// ColorModel implements image.Image.
func (i *Image) ColorModel() color.Model {
	return ColorModel
}

// Bounds implements image.Image.
func (i *Image) Bounds() image.Rectangle {
	return i.r.Rectangle()
}

// At implements image.Image.
func (i *Image) At(x, y int) color.Color {
	return i.ColorAt(x, y)
}

// ColorAt returns the color at (x, y). Points outside the image are White.
func (i *Image) ColorAt(x, y int) Color {
	if i.BitAt(x, y) {
		return Black
	}
	return White
}

// BitAt reports whether the pixel at (x, y) is set.
func (i *Image) BitAt(x, y int) bool {
	offset, mask, ok := i.pixOffset(x, y)
	if !ok {
		return false
	}
	return i.Pix[offset]&mask != 0
}

// Set implements draw.Image.
func (i *Image) Set(x, y int, c color.Color) {
	i.SetColor(x, y, toColor(c))
}

// SetColor sets the pixel at (x, y). Points outside the image are ignored.
func (i *Image) SetColor(x, y int, c Color) {
	i.SetBit(x, y, c == Black)
}

// SetBit sets or clears the pixel at (x, y).
func (i *Image) SetBit(x, y int, v bool) {
	offset, mask, ok := i.pixOffset(x, y)
	if !ok {
		return
	}
	if v {
		i.Pix[offset] |= mask
	} else {
		i.Pix[offset] &^= mask
	}
}

func (i *Image) pixOffset(x, y int) (int, byte, bool) {
	if !(image.Point{X: x, Y: y}).In(i.Bounds()) {
		return 0, 0, false
	}
	lx := x - int(i.r.X)
	ly := y - int(i.r.Y)
	return ly*i.Stride + lx/8, 0x80 >> uint(lx%8), true
}

// ErrOutOfBounds is returned by Update for regions outside the image.
var ErrOutOfBounds = errors.New("image1bit: region out of bounds")

// Update overwrites the pixels of r with colors, given row-major.
func (i *Image) Update(r geom.PixelRect, colors []Color) error {
	if r.Empty() {
		return nil
	}
	if !r.Rectangle().In(i.Bounds()) {
		return fmt.Errorf("%w: %s in %s", ErrOutOfBounds, r, i.r)
	}
	if n := int(r.Width) * int(r.Height); len(colors) != n {
		return fmt.Errorf("image1bit: got %d colors for %s, want %d", len(colors), r, n)
	}
	k := 0
	for y := int(r.Y); y < int(r.Y)+int(r.Height); y++ {
		for x := int(r.X); x < int(r.X)+int(r.Width); x++ {
			i.SetColor(x, y, colors[k])
			k++
		}
	}
	return nil
}

// Crop returns a copy of the bytes covering the byte columns of r, which is
// relative to the image's own byte grid. Rows and columns outside the image
// are dropped.
func (i *Image) Crop(r geom.ByteRect) (geom.ByteRect, []byte) {
	grid := image.Rect(0, 0, i.Stride, int(i.r.Height))
	want := image.Rect(int(r.X), int(r.Y), int(r.X)+int(r.Width), int(r.Y)+int(r.Height))
	c := grid.Intersect(want)
	if c.Empty() {
		return geom.ByteRect{}, nil
	}
	out := make([]byte, 0, c.Dx()*c.Dy())
	for y := c.Min.Y; y < c.Max.Y; y++ {
		row := y * i.Stride
		out = append(out, i.Pix[row+c.Min.X:row+c.Max.X]...)
	}
	return geom.ByteRect{
		X:      uint16(c.Min.X),
		Y:      uint16(c.Min.Y),
		Width:  uint16(c.Dx()),
		Height: uint16(c.Dy()),
	}, out
}

func (i *Image) String() string {
	return fmt.Sprintf("image1bit.Image{%s}", i.r)
}

var _ draw.Image = &Image{}
