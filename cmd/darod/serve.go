package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gogpu/daro"
	"github.com/gogpu/daro/stream"
)

// recoverInterval is the wait between failed device recoveries.
const recoverInterval = time.Second

// newMux serves the stream output under /streams/<name> and engine
// counters as JSON under /stats.
func newMux(e *daro.Engine, out *stream.Sender) *http.ServeMux {
	mux := http.NewServeMux()
	if out != nil {
		mux.Handle("GET /streams/"+out.Name(), out)
	}
	mux.HandleFunc("GET /stats", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(e.Stats())
	})
	return mux
}

// serveHTTP runs srv until ctx is done, then shuts it down gracefully.
func serveHTTP(ctx context.Context, srv *http.Server) error {
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// supervise keeps s running until ctx is done. When the loop stops on a
// lost device the device is recovered, retrying every interval, and the
// loop restarted.
func supervise(ctx context.Context, e *daro.Engine, s *daro.Scheduler, interval time.Duration, log *slog.Logger) error {
	if err := s.Start(); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return s.Stop(daro.DefaultStopTimeout)
		case <-s.Done():
		}
		if !e.IsDeviceLost() {
			return daro.ErrNotInitialized
		}

		for {
			err := e.RecoverDevice()
			if err == nil {
				break
			}
			log.Warn("darod: device recovery failed", "err", err, "retry", interval)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(interval):
			}
		}
		log.Info("darod: device recovered", "frame", e.FrameNumber())
		if err := s.Start(); err != nil {
			return err
		}
	}
}
