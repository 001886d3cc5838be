// Command fbdemo animates a bouncing block through a framebuf World.
//
// Usage:
//
//	fbdemo [-config demo.toml] [-presenter software|term|gpu] [-frames 120] [-output fbdemo.png]
//
// With the software presenter the last frame is written as a PNG.
package main

import (
	"errors"
	"fmt"
	"image/png"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/gogpu/framebuf"
	_ "github.com/gogpu/framebuf/presenter/gpu"
	"github.com/gogpu/framebuf/presenter/software"
	"github.com/gogpu/framebuf/presenter/term"
)

func main() {
	cfg, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "fbdemo:", err)
		os.Exit(2)
	}
	if err := run(cfg); err != nil {
		fmt.Fprintln(os.Stderr, "fbdemo:", err)
		os.Exit(1)
	}
}

func run(cfg config) (err error) {
	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	framebuf.SetLogger(logger)

	opts := []framebuf.Option{framebuf.WithWorkers(cfg.Workers)}
	handle := framebuf.Headless()

	var sw *software.Presenter
	switch cfg.Presenter {
	case software.Name:
		interp, err := software.ParseInterpolator(cfg.Interpolator)
		if err != nil {
			return err
		}
		sw, err = software.New(framebuf.PresenterOptions{
			Handle:        handle,
			SurfaceWidth:  cfg.Surface.Width,
			SurfaceHeight: cfg.Surface.Height,
		}, software.Config{Interpolator: interp})
		if err != nil {
			return err
		}
		opts = append(opts, framebuf.WithPresenter(sw))
	case term.Name:
		handle = framebuf.SurfaceHandle{Kind: framebuf.HandleTerminal, Window: os.Stdout.Fd()}
		opts = append(opts, framebuf.WithPresenterName(term.Name))
	case "":
	default:
		opts = append(opts, framebuf.WithPresenterName(cfg.Presenter))
	}

	w, err := framebuf.New(handle, cfg.Surface.Width, cfg.Surface.Height, opts...)
	if err != nil {
		return err
	}
	defer closeInto(&err, w, logger)

	if err := w.ResizeBuffer(cfg.Buffer.Width, cfg.Buffer.Height); err != nil {
		return err
	}

	var tick <-chan time.Time
	if cfg.FPS > 0 {
		ticker := time.NewTicker(time.Second / time.Duration(cfg.FPS))
		defer ticker.Stop()
		tick = ticker.C
	}

	start := time.Now()
	b := newBouncer(cfg.Block)
	for frame := 0; frame < cfg.Frames; frame++ {
		if err := animate(w, b, frame); err != nil {
			return err
		}
		if err := w.Draw(); err != nil {
			return fmt.Errorf("frame %d: %w", frame, err)
		}
		if tick != nil {
			<-tick
		}
	}

	stats := w.Stats()
	logger.Info("fbdemo: done",
		"frames", cfg.Frames, "elapsed", time.Since(start),
		"damages", stats.DamagesQueued, "coalesced", stats.DamagesCoalesced,
		"dropped", stats.DamagesDropped)

	if sw != nil && cfg.Output != "" && cfg.Frames > 0 {
		return writePNG(cfg.Output, sw)
	}
	return nil
}

// closeInto closes c, logs a failure and joins it into *err.
func closeInto(err *error, c io.Closer, logger *slog.Logger) {
	if cerr := c.Close(); cerr != nil {
		logger.Warn("fbdemo: close", "error", cerr)
		*err = errors.Join(*err, cerr)
	}
}

func writePNG(path string, p *software.Presenter) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, p.Snapshot()); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
