// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/display"

	"github.com/GermanBionicSystems/epaper/image1bit"
	"github.com/GermanBionicSystems/epaper/internal/config"
	"github.com/GermanBionicSystems/epaper/internal/convert"
	"github.com/GermanBionicSystems/epaper/internal/render"
	"github.com/GermanBionicSystems/epaper/panelsink"
	"github.com/GermanBionicSystems/epaper/termview"
	"github.com/GermanBionicSystems/epaper/waveshare1in54"
)

const textSize = 16

// run opens the configured backend and executes args on it.
func run(ctx context.Context, cfg *config.Config, log *logrus.Logger, stdout io.Writer, args []string) error {
	var p *panel
	var handler http.Handler
	var err error
	switch cfg.Backend {
	case config.BackendSim:
		var sinks fanout
		if cfg.Terminal {
			sinks = append(sinks, termview.New(&termview.Opts{Width: cfg.Width, Height: cfg.Height, W: stdout}))
		}
		if args[0] == "serve" && cfg.Listen != "" {
			s := panelsink.New(&panelsink.Options{Width: cfg.Width, Height: cfg.Height, Logger: log})
			sinks = append(sinks, s)
			handler = s
		}
		var sink display.Drawer
		if len(sinks) != 0 {
			sink = sinks
		}
		p, err = openSim(cfg, log, sink)
	default:
		p, err = openSPI(cfg, log)
	}
	if err != nil {
		return err
	}
	defer func() {
		if err := p.Close(); err != nil {
			log.WithError(err).Warn("closing panel failed")
		}
	}()

	if args[0] == "serve" {
		return serve(ctx, p, cfg, log, handler)
	}
	return execute(p, cfg, args)
}

// execute runs a one-shot command. Every command but init and sleep leaves
// the panel in deep sleep.
func execute(p *panel, cfg *config.Config, args []string) error {
	cmd, rest := args[0], args[1:]
	var img *image1bit.Image
	switch cmd {
	case "init":
		return p.dev.Init()
	case "sleep":
		return p.dev.Sleep(waveshare1in54.EnterDeepSleep)
	case "clear":
	case "fill":
		if len(rest) != 1 || (rest[0] != "black" && rest[0] != "white") {
			return errors.New("usage: fill black|white")
		}
	case "image":
		if len(rest) < 1 || len(rest) > 2 {
			return errors.New("usage: image <file> [floyd-steinberg|threshold]")
		}
		var m convert.Method
		if len(rest) == 2 {
			var err error
			if m, err = convert.ParseMethod(rest[1]); err != nil {
				return err
			}
		}
		src, err := decodeFile(rest[0])
		if err != nil {
			return err
		}
		if img, err = convert.ToMono(src, cfg.Width, cfg.Height, m); err != nil {
			return err
		}
	case "text":
		var err error
		if img, err = render.Status(cfg.Width, cfg.Height, rest, textSize); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}

	if err := p.dev.Init(); err != nil {
		return err
	}
	var err error
	switch {
	case img != nil:
		err = p.dev.DrawImage(img)
	case cmd == "fill" && rest[0] == "black":
		err = p.dev.Fill(image1bit.Black)
	default:
		err = p.dev.Clear()
	}
	if err != nil {
		return err
	}
	return p.dev.Sleep(waveshare1in54.EnterDeepSleep)
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

// statusScreen draws the lines shown by serve.
type statusScreen struct {
	mu    sync.Mutex
	count int
	now   func() time.Time
}

func (s *statusScreen) lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count++
	host, err := os.Hostname()
	if err != nil {
		host = "unknown host"
	}
	return []string{
		host,
		s.now().Format("2006-01-02 15:04"),
		fmt.Sprintf("refresh #%d", s.count),
	}
}

// serve redraws a status screen on cfg.Refresh until ctx is done, then puts
// the panel into deep sleep. handler, when not nil, is served on cfg.Listen.
func serve(ctx context.Context, p *panel, cfg *config.Config, log logrus.FieldLogger, handler http.Handler) error {
	if err := p.dev.Init(); err != nil {
		return err
	}

	status := &statusScreen{now: time.Now}
	refresh := func() {
		img, err := render.Status(cfg.Width, cfg.Height, status.lines(), textSize)
		if err == nil {
			err = p.dev.DrawImage(img)
		}
		if err != nil {
			log.WithError(err).Error("refresh failed, resetting panel")
			if err := p.dev.Init(); err != nil {
				log.WithError(err).Error("reset failed")
			}
			return
		}
		log.Info("panel refreshed")
	}
	refresh()

	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(log)))
	if _, err := c.AddFunc(cfg.Refresh, refresh); err != nil {
		return fmt.Errorf("refresh schedule %q: %w", cfg.Refresh, err)
	}
	c.Start()

	var srv *http.Server
	if handler != nil {
		srv = &http.Server{Addr: cfg.Listen, Handler: handler}
		go func() {
			log.WithField("listen", cfg.Listen).Info("serving panel")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.WithError(err).Error("http server failed")
			}
		}()
	}

	<-ctx.Done()
	log.Info("shutting down")
	<-c.Stop().Done()
	if srv != nil {
		if h, ok := handler.(interface{ Halt() error }); ok {
			_ = h.Halt()
		}
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			log.WithError(err).Warn("http shutdown")
		}
	}
	return p.dev.Sleep(waveshare1in54.EnterDeepSleep)
}
