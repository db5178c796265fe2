// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// epdctl drives a Waveshare 1.54" e-paper panel, or its simulator.
//
// Usage:
//
//	epdctl [-config path] [-backend spi|sim] [-v] <command> [args]
//
// Commands:
//
//	init              reset and program the controller
//	clear             fill the panel with white
//	fill black|white  fill the panel
//	image <file>      show a PNG, JPEG or GIF file, dithered
//	text <line>...    show lines of text
//	sleep             enter deep sleep
//	serve             redraw a status screen on the configured schedule
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/GermanBionicSystems/epaper/internal/config"
)

var errUsage = errors.New("usage: epdctl [-config path] [-backend spi|sim] [-v] init|clear|fill|image|text|sleep|serve")

func mainImpl(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("epdctl", flag.ContinueOnError)
	fs.SetOutput(stdout)
	configPath := fs.String("config", "/etc/epdctl/config.yaml", "path to the YAML configuration")
	backend := fs.String("backend", "", "override the configured backend, spi or sim")
	verbose := fs.Bool("v", false, "log register writes")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errUsage
	}

	log := logrus.New()
	log.SetOutput(os.Stderr)

	cfg, err := config.Load(*configPath)
	if err != nil {
		if cfg == nil {
			return err
		}
		log.WithError(err).WithField("config", *configPath).Warn("could not write default config, using defaults")
	}
	if *backend != "" {
		cfg.Backend = *backend
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	log.SetLevel(cfg.Level())
	if *verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	return run(ctx, cfg, log, stdout, fs.Args())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := mainImpl(ctx, os.Args[1:], os.Stdout); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "epdctl: %s.\n", err)
		}
		os.Exit(1)
	}
}
