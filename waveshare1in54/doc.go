// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package waveshare1in54 controls the Waveshare 1.54 inch monochrome e-paper
// display (IL3829/SSD1608 controller).
//
// Every operation is a fixed sequence of register writes: a command byte sent
// with DC low, followed by its parameters sent with DC high. Refreshes block
// until the panel releases its busy line, which takes a few seconds for a full
// update. There is no timeout.
//
// Datasheets
//
// https://www.waveshare.com/w/upload/e/e5/1.54inch_e-paper_V2_Datasheet.pdf
//
// Product page:
//
// https://www.waveshare.com/wiki/1.54inch_e-Paper_Module
package waveshare1in54
