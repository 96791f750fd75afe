package main

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/gogpu/daro"
	"github.com/gogpu/daro/layer"
	"github.com/gogpu/daro/media"
	"github.com/gogpu/daro/stream"
	"github.com/pelletier/go-toml/v2"
)

// Config is the daemon configuration file.
//
//	width = 1920
//	height = 1080
//	fps = 50
//	log_level = "info"
//
//	[policy]
//	roots = ["/srv/media"]
//
//	[streams]
//	cam1 = "ws://10.0.0.7:8090/streams/cam1"
//
//	[[layer]]
//	Active = true
//	Type = 2
//	Text = "ON AIR"
type Config struct {
	Width  int     `toml:"width"`
	Height int     `toml:"height"`
	FPS    float64 `toml:"fps"`
	Device string  `toml:"device"`

	Addr       string `toml:"addr"`
	StreamName string `toml:"stream_name"`
	StreamBase string `toml:"stream_base"`
	Shm        string `toml:"shm"`
	LogLevel   string `toml:"log_level"`
	ShowBounds bool   `toml:"show_bounds"`

	MaxResources int `toml:"max_resources"`

	Policy  media.Policy      `toml:"policy"`
	Streams map[string]string `toml:"streams"`
	Layers  []layer.Layer     `toml:"layer"`
}

func defaultConfig() Config {
	return Config{
		Width:      1920,
		Height:     1080,
		FPS:        50,
		Addr:       ":8090",
		StreamName: "program",
		LogLevel:   "info",
		Policy:     media.DefaultPolicy(),
	}
}

// loadConfig reads path over the defaults. An empty path returns the
// defaults. Unknown keys are rejected so typos do not pass silently.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return cfg, fmt.Errorf("%s: %s", path, strict.String())
		}
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	if c.Width <= 0 || c.Height <= 0 || c.FPS <= 0 {
		return fmt.Errorf("config: invalid output %dx%d@%v", c.Width, c.Height, c.FPS)
	}
	if c.MaxResources < 0 {
		return fmt.Errorf("config: max_resources %d", c.MaxResources)
	}
	if len(c.Layers) > layer.MaxLayers {
		return fmt.Errorf("config: %d layers, at most %d", len(c.Layers), layer.MaxLayers)
	}
	if _, err := c.level(); err != nil {
		return err
	}
	for name, url := range c.Streams {
		if err := stream.NewDirectory("").Register(name, url); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}
	return nil
}

func (c *Config) level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("config: log_level: %w", err)
	}
	return l, nil
}

func (c *Config) directory() *stream.Directory {
	d := stream.NewDirectory(c.StreamBase)
	for name, url := range c.Streams {
		d.Register(name, url)
	}
	return d
}

// apply pushes the reloadable parts of c into a running engine: the
// load policy, show-bounds, the cache limit and the layer stack.
func (c *Config) apply(e *daro.Engine) error {
	e.SetPolicy(c.Policy)
	e.SetShowBounds(c.ShowBounds)
	if c.MaxResources > 0 {
		if err := e.SetMaxResources(c.MaxResources); err != nil {
			return err
		}
	}
	if err := e.SetLayerCount(len(c.Layers)); err != nil {
		return err
	}
	var errs []error
	for i, l := range c.Layers {
		if err := e.UpdateLayer(i, l); err != nil {
			errs = append(errs, fmt.Errorf("layer %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
