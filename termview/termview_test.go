// Copyright 2017 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package termview

import (
	"bytes"
	"image"
	"image/color"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/maruel/ansi256"
)

func TestDraw(t *testing.T) {
	w := ansi256.Default.Block(white)
	b := ansi256.Default.Block(black)
	row := func(cells ...string) string {
		return "\r\033[0m" + strings.Join(cells, "") + "\033[0m\n"
	}

	for _, tc := range []struct {
		name  string
		scale int
		rect  image.Rectangle
		want  string
	}{
		{
			name: "full",
			rect: image.Rect(0, 0, 2, 1),
			want: "\033[H" + row(b, b, w) + row(w, w, w),
		},
		{
			name: "corner",
			rect: image.Rect(2, 1, 3, 2),
			want: "\033[H" + row(w, w, w) + row(w, w, b),
		},
		{
			name:  "scaled",
			scale: 2,
			rect:  image.Rect(0, 0, 1, 1),
			want:  "\033[H" + row(b, w),
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			d := New(&Opts{Width: 3, Height: 2, Scale: tc.scale, W: &buf})
			if err := d.Draw(tc.rect, &image.Uniform{C: color.Black}, image.Point{}); err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(buf.String(), tc.want); diff != "" {
				t.Errorf("Output difference (-got +want):\n%s", diff)
			}
		})
	}
}

func TestHalt(t *testing.T) {
	var buf bytes.Buffer
	d := New(&Opts{Width: 8, Height: 8, W: &buf})
	if err := d.Halt(); err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); got != "\n\033[0m" {
		t.Errorf("Halt() wrote %q", got)
	}
	if d.String() != "TermView" {
		t.Errorf("String() = %q", d.String())
	}
	if got, want := d.Bounds(), image.Rect(0, 0, 8, 8); got != want {
		t.Errorf("Bounds() = %v, want %v", got, want)
	}
}
