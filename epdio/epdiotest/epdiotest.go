// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package epdiotest provides recording fakes for the epdio capabilities.
//
// Every fake appends to a shared Log so tests can assert on the interleaving
// of pin writes, busy reads and bus transfers.
package epdiotest

import (
	"errors"
	"fmt"
	"sync"

	"periph.io/x/conn/v3/gpio"

	"github.com/GermanBionicSystems/epaper/epdio"
)

// ErrInjected is the default error returned by fakes configured to fail.
var ErrInjected = errors.New("epdiotest: injected failure")

// Kind identifies an Event.
type Kind int

const (
	PinWrite Kind = iota
	PinRead
	Tx
)

func (k Kind) String() string {
	switch k {
	case PinWrite:
		return "PinWrite"
	case PinRead:
		return "PinRead"
	case Tx:
		return "Tx"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Event is one recorded interaction.
type Event struct {
	Kind Kind
	// Pin is the name of the pin for PinWrite and PinRead.
	Pin   string
	Level gpio.Level
	// W is a copy of the bytes sent for Tx. Level holds the DC line state at
	// the time of the transfer.
	W []byte
}

// Log is an ordered, concurrency safe list of events.
type Log struct {
	mu     sync.Mutex
	events []Event
}

func (l *Log) add(e Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

// Events returns a copy of the recorded events.
func (l *Log) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Event(nil), l.events...)
}

// Reset drops every recorded event.
func (l *Log) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = nil
}

// Write is a decoded register write: a command byte sent with DC low followed
// by every byte sent with DC high until the next command.
type Write struct {
	Cmd  byte
	Data []byte
}

// Writes decodes the Tx events into register writes. Data sent before any
// command is attributed to a write with Cmd 0.
func (l *Log) Writes() []Write {
	var out []Write
	for _, e := range l.Events() {
		if e.Kind != Tx || len(e.W) == 0 {
			continue
		}
		if e.Level == gpio.Low {
			for _, b := range e.W {
				out = append(out, Write{Cmd: b})
			}
			continue
		}
		if len(out) == 0 {
			out = append(out, Write{})
		}
		cur := &out[len(out)-1]
		cur.Data = append(cur.Data, e.W...)
	}
	return out
}

// Commands returns the command bytes of Writes in order.
func (l *Log) Commands() []byte {
	var out []byte
	for _, w := range l.Writes() {
		out = append(out, w.Cmd)
	}
	return out
}

// Count returns the number of events of kind k.
func (l *Log) Count(k Kind) int {
	n := 0
	for _, e := range l.Events() {
		if e.Kind == k {
			n++
		}
	}
	return n
}

// Pin is a recording epdio.DigitalOutput.
type Pin struct {
	N   string
	Log *Log
	// Err, when set, is returned by every Out call. Nothing is recorded.
	Err error

	mu sync.Mutex
	L  gpio.Level
}

func (p *Pin) String() string {
	return p.N
}

// Out implements epdio.DigitalOutput.
func (p *Pin) Out(l gpio.Level) error {
	if p.Err != nil {
		return p.Err
	}
	p.mu.Lock()
	p.L = l
	p.mu.Unlock()
	if p.Log != nil {
		p.Log.add(Event{Kind: PinWrite, Pin: p.N, Level: l})
	}
	return nil
}

// Level returns the last level written.
func (p *Pin) Level() gpio.Level {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.L
}

// Busy is a scripted epdio.DigitalInput.
//
// Read returns Levels in order and then keeps returning the last one, or Low
// when Levels is empty.
type Busy struct {
	N      string
	Log    *Log
	Levels []gpio.Level
	// FailAt makes the n-th Read (1 based) return Err, or ErrInjected when
	// Err is nil. Zero disables it.
	FailAt int
	Err    error

	mu    sync.Mutex
	reads int
}

func (b *Busy) String() string {
	return b.N
}

// Read implements epdio.DigitalInput.
func (b *Busy) Read() (gpio.Level, error) {
	b.mu.Lock()
	b.reads++
	n := b.reads
	b.mu.Unlock()
	if b.FailAt != 0 && n == b.FailAt {
		if b.Err != nil {
			return gpio.Low, b.Err
		}
		return gpio.Low, ErrInjected
	}
	l := gpio.Low
	if len(b.Levels) != 0 {
		l = b.Levels[min(n, len(b.Levels))-1]
	}
	if b.Log != nil {
		b.Log.add(Event{Kind: PinRead, Pin: b.N, Level: l})
	}
	return l, nil
}

// Reads returns the number of Read calls so far, failed ones included.
func (b *Busy) Reads() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.reads
}

// Transport is a recording epdio.Transport.
type Transport struct {
	Log *Log
	// Max is returned by MaxTxSize.
	Max int
	// FailAt makes the n-th Tx (1 based) return Err, or ErrInjected when Err
	// is nil. Zero disables it.
	FailAt int
	Err    error

	dc  Pin
	mu  sync.Mutex
	txs int
}

// NewTransport returns a Transport whose DC pin and transfers record into l.
func NewTransport(l *Log) *Transport {
	return &Transport{Log: l, dc: Pin{N: "DC", Log: l}}
}

func (t *Transport) String() string {
	return "epdiotest.Transport"
}

// DC implements epdio.Transport.
func (t *Transport) DC() epdio.DigitalOutput {
	return &t.dc
}

// DCPin gives access to the DC pin, for instance to inject Out failures.
func (t *Transport) DCPin() *Pin {
	return &t.dc
}

// Tx implements epdio.Transport.
func (t *Transport) Tx(w []byte) error {
	t.mu.Lock()
	t.txs++
	n := t.txs
	t.mu.Unlock()
	if t.FailAt != 0 && n == t.FailAt {
		if t.Err != nil {
			return t.Err
		}
		return ErrInjected
	}
	if t.Log != nil {
		t.Log.add(Event{Kind: Tx, Level: t.dc.Level(), W: append([]byte(nil), w...)})
	}
	return nil
}

// MaxTxSize implements epdio.Transport.
func (t *Transport) MaxTxSize() int {
	return t.Max
}

var _ epdio.Transport = &Transport{}
var _ epdio.DigitalOutput = &Pin{}
var _ epdio.DigitalInput = &Busy{}
