// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package geom converts between pixel and byte addressed rectangles.
//
// The panel controller addresses its RAM horizontally in bytes of 8 pixels and
// vertically in pixel rows. PixelRect is what callers work with; ByteRect is
// what ends up in the RAM window and counter registers.
package geom

import (
	"encoding/binary"
	"fmt"
	"image"
	"math"
)

// PixelRect is a rectangle in pixel units.
//
// A zero Width or Height denotes an empty region.
type PixelRect struct {
	X, Y          uint16
	Width, Height uint16
}

// Empty reports whether the rectangle covers no pixel.
func (r PixelRect) Empty() bool {
	return r.Width == 0 || r.Height == 0
}

// Bytes returns the byte addressed rectangle used to size buffers and RAM
// windows.
//
// X, Y and Height are carried through unchanged. X ends up as the byte column
// offset in the controller, so callers drawing at a pixel offset must convert
// it themselves. The conversion is lossy: the original pixel width is not
// recoverable from the result.
func (r PixelRect) Bytes() ByteRect {
	return ByteRect{
		X:      r.X,
		Y:      r.Y,
		Width:  ByteWidth(r.Width),
		Height: r.Height,
	}
}

// Rectangle returns r as an image.Rectangle.
func (r PixelRect) Rectangle() image.Rectangle {
	return image.Rect(int(r.X), int(r.Y), int(r.X)+int(r.Width), int(r.Y)+int(r.Height))
}

func (r PixelRect) String() string {
	return fmt.Sprintf("(%d,%d)+%dx%dpx", r.X, r.Y, r.Width, r.Height)
}

// FromRectangle converts an image.Rectangle to a PixelRect.
//
// It fails for rectangles with negative coordinates or extents beyond 16 bits.
func FromRectangle(r image.Rectangle) (PixelRect, error) {
	r = r.Canon()
	if r.Min.X < 0 || r.Min.Y < 0 || r.Max.X > 0xFFFF || r.Max.Y > 0xFFFF {
		return PixelRect{}, fmt.Errorf("geom: rectangle %v out of range", r)
	}
	return PixelRect{
		X:      uint16(r.Min.X),
		Y:      uint16(r.Min.Y),
		Width:  uint16(r.Dx()),
		Height: uint16(r.Dy()),
	}, nil
}

// ByteWidth returns the number of bytes needed to hold w pixels.
//
// A width of 0 still occupies one byte column.
func ByteWidth(w uint16) uint16 {
	if w == 0 {
		return 1
	}
	return uint16((uint32(w) + 7) / 8)
}

// ByteRect is a rectangle whose horizontal extent is in byte columns of 8
// pixels and whose vertical extent is in pixel rows.
type ByteRect struct {
	X, Y          uint16
	Width, Height uint16
}

// Empty reports whether the rectangle covers no byte.
func (r ByteRect) Empty() bool {
	return r.Width == 0 || r.Height == 0
}

// Len returns the size in bytes of a packed buffer covering r.
func (r ByteRect) Len() int {
	return int(r.Width) * int(r.Height)
}

// XWindow returns the RAM X start and end byte columns, inclusive.
func (r ByteRect) XWindow() [2]byte {
	return [2]byte{byte(r.X), byte(int(r.X) + int(r.Width) - 1)}
}

// YWindow returns the RAM Y start and end rows, inclusive, as two little
// endian 16 bit values.
func (r ByteRect) YWindow() [4]byte {
	var w [4]byte
	binary.LittleEndian.PutUint16(w[0:], r.Y)
	binary.LittleEndian.PutUint16(w[2:], uint16(int(r.Y)+int(r.Height)-1))
	return w
}

// XCounter returns the RAM X address counter start value.
func (r ByteRect) XCounter() byte {
	return byte(r.X)
}

// YCounter returns the RAM Y address counter start value, little endian.
func (r ByteRect) YCounter() [2]byte {
	var c [2]byte
	binary.LittleEndian.PutUint16(c[:], r.Y)
	return c
}

// Pixels returns the pixel extent covered by the byte columns of r.
func (r ByteRect) Pixels() image.Rectangle {
	return image.Rect(int(r.X)*8, int(r.Y), (int(r.X)+int(r.Width))*8, int(r.Y)+int(r.Height))
}

// Align returns the smallest ByteRect whose byte columns cover the pixel
// rectangle p. Unlike PixelRect.Bytes, the X offset is converted to a column.
//
// p is clipped to non-negative coordinates first.
func Align(p image.Rectangle) ByteRect {
	p = p.Intersect(image.Rect(0, 0, math.MaxInt32, math.MaxInt32))
	if p.Empty() {
		return ByteRect{}
	}
	minX := p.Min.X / 8
	maxX := (p.Max.X + 7) / 8
	return ByteRect{
		X:      uint16(minX),
		Y:      uint16(p.Min.Y),
		Width:  uint16(maxX - minX),
		Height: uint16(p.Dy()),
	}
}

func (r ByteRect) String() string {
	return fmt.Sprintf("(%d,%d)+%dx%dB", r.X, r.Y, r.Width, r.Height)
}
