// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package panelsink

import (
	"net/http"
	"net/url"
	"strconv"
)

// parseQuery applies the "format" and "once" parameters to the sink defaults.
func (s *Sink) parseQuery(q url.Values) (cfg imageConfig, once bool, err error) {
	cfg = s.defaults
	if v := q.Get("format"); v != "" {
		if cfg.format, err = ParseFormat(v); err != nil {
			return cfg, false, err
		}
	}
	if v := q.Get("once"); v != "" {
		if once, err = strconv.ParseBool(v); err != nil {
			return cfg, false, err
		}
	}
	return cfg, once, nil
}

// ServeHTTP implements http.Handler.
func (s *Sink) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	cfg, once, err := s.parseQuery(r.URL.Query())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	log := s.log.WithField("remote", r.RemoteAddr)

	f, changed, halt, err := s.current(cfg)
	if err != nil {
		log.WithError(err).Error("panelsink: encoding frame failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	if once {
		for _, h := range f.header() {
			w.Header().Set(h[0], h[1])
		}
		if _, err := w.Write(f.data); err != nil {
			log.WithError(err).Debug("panelsink: client gone")
		}
		return
	}

	st, err := newStream(w)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", st.contentType())
	log.WithField("format", cfg.format).Debug("panelsink: streaming")

	flusher, _ := w.(http.Flusher)
	for {
		if err := st.write(f); err != nil {
			log.WithError(err).Debug("panelsink: client gone")
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
		select {
		case <-changed:
		case <-halt:
			return
		case <-r.Context().Done():
			return
		}
		if f, changed, halt, err = s.current(cfg); err != nil {
			log.WithError(err).Error("panelsink: encoding frame failed")
			return
		}
	}
}
