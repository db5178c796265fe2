// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package panelsink

import (
	"bytes"
	"image"
	"image/png"
	"regexp"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/GermanBionicSystems/epaper/geom"
	"github.com/GermanBionicSystems/epaper/image1bit"
)

func TestParseFormat(t *testing.T) {
	for _, tc := range []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{in: "png", want: PNG},
		{in: "PNG", want: PNG},
		{in: "jpg", want: JPEG},
		{in: "Jpeg", want: JPEG},
		{in: "bmp", want: PNG, wantErr: true},
	} {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseFormat(tc.in)
			if got != tc.want || (err != nil) != tc.wantErr {
				t.Errorf("ParseFormat(%q) = %v, %v", tc.in, got, err)
			}
		})
	}
	for f, want := range map[Format]string{PNG: "png", JPEG: "jpeg", Format(9): "Format(9)"} {
		if got := f.String(); got != want {
			t.Errorf("String() = %q, want %q", got, want)
		}
	}
}

func TestNewFrameBilevel(t *testing.T) {
	img := image1bit.New(geom.PixelRect{Width: 10, Height: 3})
	img.SetColor(9, 2, image1bit.Black)

	f, err := newFrame(img, 4, imageConfig{format: PNG})
	if err != nil {
		t.Fatal(err)
	}
	// IHDR bit depth and color type: 1 bit, indexed.
	if got := f.data[24:26]; !bytes.Equal(got, []byte{1, 3}) {
		t.Errorf("bit depth and color type %v, want [1 3]", got)
	}
	dec, err := png.Decode(bytes.NewReader(f.data))
	if err != nil {
		t.Fatal(err)
	}
	p, ok := dec.(*image.Paletted)
	if !ok {
		t.Fatalf("decoded %T, want *image.Paletted", dec)
	}
	if got, want := p.ColorIndexAt(9, 2), uint8(1); got != want {
		t.Errorf("ColorIndexAt(9, 2) = %d, want %d", got, want)
	}
	if got, want := p.ColorIndexAt(8, 2), uint8(0); got != want {
		t.Errorf("ColorIndexAt(8, 2) = %d, want %d", got, want)
	}

	want := [][2]string{
		{"Content-Type", "image/png"},
		{"Content-Length", itoa(len(f.data))},
		{"X-Frame", "4"},
	}
	if diff := cmp.Diff(f.header(), want); diff != "" {
		t.Errorf("header() difference (-got +want):\n%s", diff)
	}

	if _, err := newFrame(img, 0, imageConfig{format: Format(7)}); err == nil {
		t.Error("newFrame() with an unknown format succeeded")
	}
}

func TestStreamWrite(t *testing.T) {
	var buf bytes.Buffer
	st := &stream{w: &buf, boundary: "B"}
	for _, f := range []*frame{
		{seq: 1, cfg: imageConfig{format: PNG}, data: []byte("abc")},
		{seq: 2, cfg: imageConfig{format: JPEG}, data: []byte("de")},
	} {
		if err := st.write(f); err != nil {
			t.Fatal(err)
		}
	}
	want := "--B\r\n" +
		"Content-Type: image/png\r\nContent-Length: 3\r\nX-Frame: 1\r\n\r\nabc\r\n--B\r\n" +
		"Content-Type: image/jpeg\r\nContent-Length: 2\r\nX-Frame: 2\r\n\r\nde\r\n--B\r\n"
	if diff := cmp.Diff(buf.String(), want); diff != "" {
		t.Errorf("stream difference (-got +want):\n%s", diff)
	}
}

var boundaryRe = regexp.MustCompile(`^frame[0-9a-f]{64}$`)

func TestNewStreamBoundary(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		st, err := newStream(nil)
		if err != nil {
			t.Fatal(err)
		}
		if !boundaryRe.MatchString(st.boundary) {
			t.Errorf("boundary %q does not match %s", st.boundary, boundaryRe)
		}
		if seen[st.boundary] {
			t.Errorf("boundary %q repeated", st.boundary)
		}
		seen[st.boundary] = true
	}
}
