// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package panelsink

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"io"
	"mime"
)

// stream writes frames as the parts of a multipart/x-mixed-replace body.
//
// Each part is followed by the next delimiter in the same write, so a client
// can show a frame without waiting for the one after it.
type stream struct {
	w        io.Writer
	boundary string
	begun    bool
}

func newStream(w io.Writer) (*stream, error) {
	var b [32]byte
	if _, err := rand.Read(b[:]); err != nil {
		return nil, err
	}
	return &stream{w: w, boundary: "frame" + hex.EncodeToString(b[:])}, nil
}

func (s *stream) contentType() string {
	return mime.FormatMediaType("multipart/x-mixed-replace", map[string]string{"boundary": s.boundary})
}

func (s *stream) write(f *frame) error {
	var b bytes.Buffer
	b.Grow(len(f.data) + 256)
	if !s.begun {
		b.WriteString("--" + s.boundary + "\r\n")
		s.begun = true
	}
	for _, h := range f.header() {
		b.WriteString(h[0] + ": " + h[1] + "\r\n")
	}
	b.WriteString("\r\n")
	b.Write(f.data)
	b.WriteString("\r\n--" + s.boundary + "\r\n")
	_, err := b.WriteTo(s.w)
	return err
}
