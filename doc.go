// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package epaper is a container for a monochrome e-paper panel driver and the
// pieces around it.
//
// The driver itself lives in waveshare1in54. It talks to the panel through the
// small capability contracts in epdio, so real SPI/GPIO handles, the epdsim
// simulator and the epdiotest fakes are interchangeable.
package epaper
