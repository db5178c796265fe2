// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package waveshare1in54

import (
	"encoding/hex"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/GermanBionicSystems/epaper/epdio"
)

// pollInterval is the delay between two busy line samples.
const pollInterval = 100 * time.Millisecond

// errorHandler is a wrapper for error management. Once an operation failed
// every following one is skipped.
type errorHandler struct {
	d   *Dev
	err error
}

func (eh *errorHandler) out(o epdio.DigitalOutput, high bool) {
	if eh.err != nil {
		return
	}
	if high {
		eh.err = epdio.High(o)
	} else {
		eh.err = epdio.Low(o)
	}
}

func (eh *errorHandler) sleep(d time.Duration) {
	if eh.err != nil {
		return
	}
	eh.d.sleep(d)
}

func (eh *errorHandler) send(cmd Command, data []byte) {
	if eh.err != nil {
		return
	}

	if eh.d.log != nil {
		fields := logrus.Fields{"cmd": cmd, "len": len(data)}
		if len(data) <= 10 {
			fields["data"] = hex.EncodeToString(data)
		} else {
			fields["data"] = hex.EncodeToString(data[:10]) + "..."
		}
		eh.d.log.WithFields(fields).Debug("send")
	}

	if eh.err = epdio.SendCommand(eh.d.t, byte(cmd)); eh.err != nil {
		return
	}
	eh.err = epdio.SendPayload(eh.d.t, data)
}

// waitUntilIdle polls the busy line until it reads low. There is no timeout;
// a panel that never releases busy blocks the caller.
func (eh *errorHandler) waitUntilIdle() {
	for eh.err == nil {
		eh.d.sleep(pollInterval)
		var idle bool
		if idle, eh.err = epdio.IsLow(eh.d.busy); idle {
			return
		}
	}
}
