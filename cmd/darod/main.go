// Command darod runs a compositing engine as a daemon.
//
// It composites the layer stack from its configuration file at the
// configured rate, broadcasts every frame over WebSocket, and optionally
// mirrors frames into shared memory and a preview window. Editing the
// configuration file updates the layers, media policy and log level
// without a restart.
//
// Usage:
//
//	darod [-config darod.toml] [-addr :8090] [-shm /dev/shm/daro] [-preview]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gogpu/daro"
	"github.com/gogpu/daro/framebuf/shm"
	"github.com/gogpu/daro/preview"
	"golang.org/x/sync/errgroup"
)

func main() {
	var (
		configPath  = flag.String("config", "", "TOML configuration file")
		addr        = flag.String("addr", "", "HTTP listen address (overrides config)")
		shmPath     = flag.String("shm", "", "shared-memory mirror file (overrides config)")
		showPreview = flag.Bool("preview", false, "open a preview window (needs -tags preview)")
	)
	flag.Parse()

	if err := run(*configPath, *addr, *shmPath, *showPreview); err != nil {
		fmt.Fprintln(os.Stderr, "darod:", err)
		os.Exit(1)
	}
}

func run(configPath, addr, shmPath string, showPreview bool) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.Addr = addr
	}
	if shmPath != "" {
		cfg.Shm = shmPath
	}

	var lv slog.LevelVar
	level, _ := cfg.level()
	lv.Set(level)
	log := newLogger(os.Stderr, &lv)
	daro.SetLogger(log)

	opts := []daro.Option{daro.WithPolicy(cfg.Policy), daro.WithDirectory(cfg.directory())}
	if cfg.Device != "" {
		opts = append(opts, daro.WithDevice(cfg.Device))
	}
	e := daro.New(opts...)
	if err := e.Initialize(cfg.Width, cfg.Height, cfg.FPS); err != nil {
		return fmt.Errorf("initialize (code %d): %w", daro.Code(err), err)
	}
	defer e.Shutdown()
	if err := cfg.apply(e); err != nil {
		log.Warn("darod: layers", "err", err)
	}

	out, err := e.EnableStreamOutput(cfg.StreamName)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	sched := daro.NewScheduler(e, daro.WithOnDeviceLost(func(err error) {
		log.Error("darod: device lost", "err", err)
	}))
	g.Go(func() error { return supervise(ctx, e, sched, recoverInterval, log) })

	srv := &http.Server{Addr: cfg.Addr, Handler: newMux(e, out), ReadHeaderTimeout: 5 * time.Second}
	g.Go(func() error { return serveHTTP(ctx, srv) })
	log.Info("darod: serving", "addr", cfg.Addr, "stream", "/streams/"+out.Name())

	if cfg.Shm != "" {
		m, err := shm.Create(cfg.Shm, cfg.Width, cfg.Height)
		if err != nil {
			return err
		}
		defer m.Close()
		period := time.Duration(float64(time.Second) / cfg.FPS)
		g.Go(func() error { return ignoreCanceled(shm.Pump(ctx, e.FrameBuffer(), m, period/2)) })
	}

	if configPath != "" {
		g.Go(func() error {
			return watchConfig(ctx, configPath, log, func(next Config) {
				if l, err := next.level(); err == nil {
					lv.Set(l)
				}
				if err := next.apply(e); err != nil {
					log.Warn("darod: layers", "err", err)
				}
			})
		})
	}

	if showPreview {
		// The window owns the main goroutine until it closes.
		err := preview.Run(ctx, preview.FromExchange(e.FrameBuffer()), preview.Options{Title: "darod " + out.Name()})
		switch {
		case errors.Is(err, preview.ErrUnavailable):
			log.Warn("darod: preview unavailable", "err", err)
		case err != nil:
			log.Warn("darod: preview", "err", err)
		default:
			stop()
		}
	}
	return g.Wait()
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
