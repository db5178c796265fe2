// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package render draws simple text screens for the panel.
package render

import (
	"fmt"
	"image"
	"image/draw"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/GermanBionicSystems/epaper/geom"
	"github.com/GermanBionicSystems/epaper/image1bit"
)

const padding = 4.0

var (
	parseOnce sync.Once
	regular   *truetype.Font
	parseErr  error
)

// Face returns a Go Regular face of the given size in points. A size of zero
// or less returns the 7x13 bitmap face.
func Face(size float64) (font.Face, error) {
	if size <= 0 {
		return basicfont.Face7x13, nil
	}
	parseOnce.Do(func() {
		regular, parseErr = truetype.Parse(goregular.TTF)
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return truetype.NewFace(regular, &truetype.Options{Size: size}), nil
}

// Status renders lines of text in a framed width x height screen. Lines that
// do not fit are dropped.
func Status(width, height int, lines []string, size float64) (*image1bit.Image, error) {
	if width <= 0 || height <= 0 || width > 0xFFFF || height > 0xFFFF {
		return nil, fmt.Errorf("render: invalid screen size %dx%d", width, height)
	}
	face, err := Face(size)
	if err != nil {
		return nil, err
	}

	dc := gg.NewContext(width, height)
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	dc.SetRGB(0, 0, 0)
	dc.SetLineWidth(1)
	dc.DrawRectangle(0.5, 0.5, float64(width)-1, float64(height)-1)
	dc.Stroke()

	dc.SetFontFace(face)
	lh := float64(face.Metrics().Height.Ceil())
	y := padding
	for _, l := range lines {
		if y+lh > float64(height)-padding {
			break
		}
		dc.DrawStringAnchored(l, padding+1, y, 0, 1)
		y += lh
	}

	out := image1bit.New(geom.PixelRect{Width: uint16(width), Height: uint16(height)})
	draw.Draw(out, out.Bounds(), dc.Image(), image.Point{}, draw.Src)
	return out, nil
}
