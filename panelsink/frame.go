// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package panelsink

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strconv"
	"strings"
	"sync"

	"github.com/GermanBionicSystems/epaper/image1bit"
)

// Format is the image encoding sent to clients.
type Format uint8

const (
	PNG Format = iota
	JPEG
)

var formatNames = map[string]Format{
	"png":  PNG,
	"jpg":  JPEG,
	"jpeg": JPEG,
}

func (f Format) String() string {
	switch f {
	case PNG:
		return "png"
	case JPEG:
		return "jpeg"
	}
	return "Format(" + strconv.Itoa(int(f)) + ")"
}

func (f Format) contentType() string {
	if f == JPEG {
		return "image/jpeg"
	}
	return "image/png"
}

// ParseFormat returns the Format named s, ignoring case.
func ParseFormat(s string) (Format, error) {
	if f, ok := formatNames[strings.ToLower(s)]; ok {
		return f, nil
	}
	return PNG, fmt.Errorf("panelsink: unknown image format %q", s)
}

// imageConfig is an encoding choice. It keys the frame cache.
type imageConfig struct {
	format      Format
	compression png.CompressionLevel
	quality     int
}

// encoderBuffers shares png scratch buffers between frames.
type encoderBuffers struct {
	p sync.Pool
}

func (b *encoderBuffers) Get() *png.EncoderBuffer {
	buf, _ := b.p.Get().(*png.EncoderBuffer)
	return buf
}

func (b *encoderBuffers) Put(buf *png.EncoderBuffer) {
	b.p.Put(buf)
}

var pngBuffers encoderBuffers

// bilevel indexes image1bit colors: bit clear is White, bit set is Black. PNG
// output with two palette entries uses one bit per pixel.
var bilevel = color.Palette{color.White, color.Black}

func paletted(img *image1bit.Image) *image.Paletted {
	b := img.Bounds()
	p := image.NewPaletted(b, bilevel)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := p.Pix[(y-b.Min.Y)*p.Stride:]
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.BitAt(x, y) {
				row[x-b.Min.X] = 1
			}
		}
	}
	return p
}

// frame is one panel image, encoded. It is immutable once built.
type frame struct {
	seq  uint64
	cfg  imageConfig
	data []byte
}

func newFrame(img *image1bit.Image, seq uint64, cfg imageConfig) (*frame, error) {
	var buf bytes.Buffer
	p := paletted(img)
	var err error
	switch cfg.format {
	case PNG:
		enc := png.Encoder{CompressionLevel: cfg.compression, BufferPool: &pngBuffers}
		err = enc.Encode(&buf, p)
	case JPEG:
		err = jpeg.Encode(&buf, p, &jpeg.Options{Quality: cfg.quality})
	default:
		err = fmt.Errorf("panelsink: cannot encode %s", cfg.format)
	}
	if err != nil {
		return nil, err
	}
	return &frame{seq: seq, cfg: cfg, data: buf.Bytes()}, nil
}

// header lists the headers describing f, in the order they are sent.
func (f *frame) header() [][2]string {
	return [][2]string{
		{"Content-Type", f.cfg.format.contentType()},
		{"Content-Length", strconv.Itoa(len(f.data))},
		{"X-Frame", strconv.FormatUint(f.seq, 10)},
	}
}
