// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package epdio

import (
	"fmt"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/spi"
)

type pinIn struct {
	p gpio.PinIn
}

// PinIn adapts a periph input pin. Reads never fail.
func PinIn(p gpio.PinIn) DigitalInput {
	return pinIn{p: p}
}

func (i pinIn) Read() (gpio.Level, error) {
	return i.p.Read(), nil
}

func (i pinIn) String() string {
	return i.p.String()
}

// SPI is a Transport over a periph SPI connection. Chip select is left to the
// SPI driver.
type SPI struct {
	c         spi.Conn
	dc        DigitalOutput
	maxTxSize int
}

// NewSPI returns a Transport sending over c with dc as selector line.
//
// A maxTxSize of 0 asks c through conn.Limits and falls back to
// DefaultMaxTxSize.
func NewSPI(c spi.Conn, dc DigitalOutput, maxTxSize int) *SPI {
	if maxTxSize <= 0 {
		if limits, ok := c.(conn.Limits); ok {
			maxTxSize = limits.MaxTxSize()
		}
	}
	if maxTxSize <= 0 {
		maxTxSize = DefaultMaxTxSize
	}
	return &SPI{c: c, dc: dc, maxTxSize: maxTxSize}
}

// DC implements Transport.
func (s *SPI) DC() DigitalOutput {
	return s.dc
}

// Tx implements Transport.
func (s *SPI) Tx(w []byte) error {
	return s.c.Tx(w, nil)
}

// MaxTxSize implements Transport.
func (s *SPI) MaxTxSize() int {
	return s.maxTxSize
}

func (s *SPI) String() string {
	return fmt.Sprintf("epdio.SPI{%s, %s, %d}", s.c, s.dc, s.maxTxSize)
}

var _ Transport = &SPI{}
