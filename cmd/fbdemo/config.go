package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/gogpu/framebuf/presenter/software"
)

// config is the demo configuration. Values come from defaults, then an
// optional TOML file, then flags given on the command line.
type config struct {
	// Presenter is a registered backend name; empty picks the best available.
	Presenter string `toml:"presenter"`

	Surface size `toml:"surface"`
	Buffer  size `toml:"buffer"`

	Frames int `toml:"frames"`
	FPS    int `toml:"fps"`
	Block  int `toml:"block"`

	// Interpolator scales the software presenter's output.
	Interpolator string `toml:"interpolator"`

	// Output is the PNG written after the last frame (software only).
	Output string `toml:"output"`

	Workers int  `toml:"workers"`
	Verbose bool `toml:"verbose"`
}

type size struct {
	Width  int `toml:"width"`
	Height int `toml:"height"`
}

func defaultConfig() config {
	return config{
		Surface:      size{Width: 640, Height: 480},
		Buffer:       size{Width: 320, Height: 240},
		Frames:       120,
		FPS:          60,
		Block:        24,
		Interpolator: "nearest",
		Output:       "fbdemo.png",
	}
}

// loadConfig reads a TOML file over the defaults. Unknown keys are errors.
func loadConfig(path string) (config, error) {
	cfg := defaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func (c config) validate() error {
	var errs []error
	if c.Surface.Width <= 0 || c.Surface.Height <= 0 {
		errs = append(errs, fmt.Errorf("surface %dx%d: dimensions must be positive", c.Surface.Width, c.Surface.Height))
	}
	if c.Buffer.Width <= 0 || c.Buffer.Height <= 0 {
		errs = append(errs, fmt.Errorf("buffer %dx%d: dimensions must be positive", c.Buffer.Width, c.Buffer.Height))
	}
	if c.Frames < 0 {
		errs = append(errs, errors.New("frames must not be negative"))
	}
	if c.FPS < 0 {
		errs = append(errs, errors.New("fps must not be negative"))
	}
	if c.Block <= 0 || c.Block > min(c.Buffer.Width, c.Buffer.Height) {
		errs = append(errs, fmt.Errorf("block %d must fit the buffer", c.Block))
	}
	if _, err := software.ParseInterpolator(c.Interpolator); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// parseArgs builds the configuration from command-line arguments.
func parseArgs(args []string) (config, error) {
	fs := flag.NewFlagSet("fbdemo", flag.ContinueOnError)

	f := defaultConfig()
	configPath := fs.String("config", "", "TOML configuration file")
	fs.StringVar(&f.Presenter, "presenter", f.Presenter, "presenter backend: software, term, gpu (default: best available)")
	fs.IntVar(&f.Surface.Width, "width", f.Surface.Width, "surface width")
	fs.IntVar(&f.Surface.Height, "height", f.Surface.Height, "surface height")
	fs.IntVar(&f.Buffer.Width, "buffer-width", f.Buffer.Width, "buffer width")
	fs.IntVar(&f.Buffer.Height, "buffer-height", f.Buffer.Height, "buffer height")
	fs.IntVar(&f.Frames, "frames", f.Frames, "number of frames to draw")
	fs.IntVar(&f.FPS, "fps", f.FPS, "frame rate, 0 for unpaced")
	fs.IntVar(&f.Block, "block", f.Block, "bouncing block size in buffer pixels")
	fs.StringVar(&f.Interpolator, "interp", f.Interpolator, "software scaling: nearest, approx-bilinear, bilinear, catmull-rom")
	fs.StringVar(&f.Output, "output", f.Output, "PNG written after the last frame (software presenter)")
	fs.IntVar(&f.Workers, "workers", f.Workers, "copy workers, 0 for GOMAXPROCS")
	fs.BoolVar(&f.Verbose, "v", f.Verbose, "debug logging")
	if err := fs.Parse(args); err != nil {
		return config{}, err
	}

	cfg := defaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = loadConfig(*configPath); err != nil {
			return config{}, err
		}
	}

	// Flags given explicitly win over the file.
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "presenter":
			cfg.Presenter = f.Presenter
		case "width":
			cfg.Surface.Width = f.Surface.Width
		case "height":
			cfg.Surface.Height = f.Surface.Height
		case "buffer-width":
			cfg.Buffer.Width = f.Buffer.Width
		case "buffer-height":
			cfg.Buffer.Height = f.Buffer.Height
		case "frames":
			cfg.Frames = f.Frames
		case "fps":
			cfg.FPS = f.FPS
		case "block":
			cfg.Block = f.Block
		case "interp":
			cfg.Interpolator = f.Interpolator
		case "output":
			cfg.Output = f.Output
		case "workers":
			cfg.Workers = f.Workers
		case "v":
			cfg.Verbose = f.Verbose
		}
	})

	if err := cfg.validate(); err != nil {
		return config{}, err
	}
	return cfg, nil
}
