// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package epdio defines the hardware capabilities a panel driver needs: a
// digital output, a digital input and a byte transport with a data/command
// selector line.
//
// The interfaces are deliberately small. Everything built on top of them
// (High, Low, IsLow, SendCommand, SendPayload) is implemented once here, so a
// backend only provides the primitives.
package epdio

import (
	"periph.io/x/conn/v3/gpio"
)

// DefaultMaxTxSize is used when a transport does not report a limit. It
// matches the default spidev buffer size (/sys/module/spidev/parameters/bufsiz).
const DefaultMaxTxSize = 4096

// DigitalOutput is a line the driver drives high or low.
//
// Every periph gpio.PinOut satisfies it.
type DigitalOutput interface {
	Out(l gpio.Level) error
}

// DigitalInput is a line the driver samples.
type DigitalInput interface {
	Read() (gpio.Level, error)
}

// Transport sends raw bytes to the controller. DC returns the line selecting
// between command (low) and data (high) bytes.
type Transport interface {
	DC() DigitalOutput
	Tx(w []byte) error
	// MaxTxSize returns the largest number of bytes accepted by a single Tx.
	// Values <= 0 select DefaultMaxTxSize.
	MaxTxSize() int
}

// High drives o high.
func High(o DigitalOutput) error {
	return out(o, gpio.High)
}

// Low drives o low.
func Low(o DigitalOutput) error {
	return out(o, gpio.Low)
}

func out(o DigitalOutput, l gpio.Level) error {
	if err := o.Out(l); err != nil {
		return &GPIOError{Op: "out " + l.String(), Err: err}
	}
	return nil
}

// IsHigh reports whether i reads high.
func IsHigh(i DigitalInput) (bool, error) {
	low, err := IsLow(i)
	return !low && err == nil, err
}

// IsLow reports whether i reads low.
func IsLow(i DigitalInput) (bool, error) {
	l, err := i.Read()
	if err != nil {
		return false, &GPIOError{Op: "read", Err: err}
	}
	return l == gpio.Low, nil
}

// SendCommand selects command mode and sends the one byte register address.
func SendCommand(t Transport, code byte) error {
	if err := Low(t.DC()); err != nil {
		return err
	}
	return tx(t, []byte{code})
}

// SendPayload selects data mode once and sends data, split into chunks no
// larger than the transport's MaxTxSize. An empty payload sends nothing.
func SendPayload(t Transport, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if err := High(t.DC()); err != nil {
		return err
	}
	limit := t.MaxTxSize()
	if limit <= 0 {
		limit = DefaultMaxTxSize
	}
	for len(data) > 0 {
		n := min(len(data), limit)
		if err := tx(t, data[:n]); err != nil {
			return err
		}
		data = data[n:]
	}
	return nil
}

func tx(t Transport, w []byte) error {
	if err := t.Tx(w); err != nil {
		return &TransportError{Len: len(w), Err: err}
	}
	return nil
}
