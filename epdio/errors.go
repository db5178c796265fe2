// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package epdio

import (
	"errors"
)

var (
	// ErrPayloadTooLarge is returned when a buffer holds more bytes than the
	// rectangle it is drawn into.
	ErrPayloadTooLarge = errors.New("epdio: payload too large")
	// ErrProtocolViolation is returned for requests the controller protocol
	// cannot express, such as a rectangle outside the canvas.
	ErrProtocolViolation = errors.New("epdio: protocol violation")
)

// GPIOError reports a failed digital line operation.
type GPIOError struct {
	Op  string
	Err error
}

func (e *GPIOError) Error() string {
	return "epdio: gpio " + e.Op + ": " + e.Err.Error()
}

func (e *GPIOError) Unwrap() error {
	return e.Err
}

// TransportError reports a failed bus transfer.
type TransportError struct {
	Len int
	Err error
}

func (e *TransportError) Error() string {
	return "epdio: transfer failed: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
