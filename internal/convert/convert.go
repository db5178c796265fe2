// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package convert turns arbitrary images into panel frames.
package convert

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/MaxHalford/halfgone"
	"github.com/disintegration/imaging"

	"github.com/GermanBionicSystems/epaper/geom"
	"github.com/GermanBionicSystems/epaper/image1bit"
)

// Method selects how gray levels are reduced to black and white.
type Method int

const (
	// FloydSteinberg diffuses the quantization error, for photos.
	FloydSteinberg Method = iota
	// Threshold cuts at mid gray, for line art and text.
	Threshold
)

func (m Method) String() string {
	switch m {
	case FloydSteinberg:
		return "floyd-steinberg"
	case Threshold:
		return "threshold"
	default:
		return fmt.Sprintf("Method(%d)", int(m))
	}
}

// ParseMethod is the reverse of Method.String.
func ParseMethod(s string) (Method, error) {
	switch s {
	case "floyd-steinberg", "dither", "":
		return FloydSteinberg, nil
	case "threshold":
		return Threshold, nil
	}
	return 0, fmt.Errorf("convert: unknown method %q", s)
}

// ToMono fits src in a width x height frame, centered on white, and reduces it
// to one bit per pixel.
//
// src is scaled down with a Lanczos filter when larger than the frame; it is
// never scaled up.
func ToMono(src image.Image, width, height int, m Method) (*image1bit.Image, error) {
	if width <= 0 || height <= 0 || width > 0xFFFF || height > 0xFFFF {
		return nil, fmt.Errorf("convert: invalid frame size %dx%d", width, height)
	}
	bounds := image.Rect(0, 0, width, height)

	gray := image.NewGray(bounds)
	draw.Draw(gray, bounds, image.NewUniform(color.White), image.Point{}, draw.Src)

	var fitted image.Image = src
	if sb := src.Bounds(); sb.Dx() > width || sb.Dy() > height {
		fitted = imaging.Fit(src, width, height, imaging.Lanczos)
	}
	fb := fitted.Bounds()
	off := image.Pt((width-fb.Dx())/2, (height-fb.Dy())/2)
	draw.Draw(gray, fb.Sub(fb.Min).Add(off), fitted, fb.Min, draw.Over)

	var dithered *image.Gray
	switch m {
	case FloydSteinberg:
		dithered = halfgone.FloydSteinbergDitherer{}.Apply(gray)
	case Threshold:
		dithered = halfgone.ThresholdDitherer{Threshold: 127}.Apply(gray)
	default:
		return nil, fmt.Errorf("convert: unknown method %s", m)
	}

	out := image1bit.New(geom.PixelRect{Width: uint16(width), Height: uint16(height)})
	for y := 0; y < height; y++ {
		row := dithered.Pix[(y-dithered.Rect.Min.Y)*dithered.Stride:]
		for x := 0; x < width; x++ {
			out.SetBit(x, y, row[x-dithered.Rect.Min.X] < 0x80)
		}
	}
	return out, nil
}
