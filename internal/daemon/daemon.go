// Package daemon runs the billboard display loop: cycle the configured
// sources across the panels during the active window, blank them
// outside it.
package daemon

import (
	"context"
	"image"
	"log/slog"
	"time"

	sdnotify "github.com/coreos/go-systemd/v22/daemon"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/multiverse-display/billboard/internal/config"
	"github.com/multiverse-display/billboard/internal/display"
)

// blankInterval is how often the blanking frames are re-sent outside
// the active window. Controllers keep the last frame, so this only
// needs to catch panels that rebooted.
const blankInterval = time.Minute

// Daemon drives the display loop.
type Daemon struct {
	cfg    *config.Config
	window config.Window
	loader display.Loader
	sender display.Sender
	clock  clockwork.Clock
	log    *slog.Logger
}

// New builds a Daemon. A nil clock defaults to the real clock, a nil
// logger to slog.Default().
func New(cfg *config.Config, loader display.Loader, sender display.Sender, clock clockwork.Clock, log *slog.Logger) (*Daemon, error) {
	window, err := cfg.Window()
	if err != nil {
		return nil, err
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Daemon{
		cfg:    cfg,
		window: window,
		loader: loader,
		sender: sender,
		clock:  clock,
		log:    log,
	}, nil
}

// Run loops until ctx is cancelled. Source load failures and send
// failures are logged and skipped; only cancellation stops the loop.
func (d *Daemon) Run(ctx context.Context) error {
	sdnotify.SdNotify(false, sdnotify.SdNotifyReady)
	defer sdnotify.SdNotify(false, sdnotify.SdNotifyStopping)

	d.log.Info("display loop starting",
		"sources", len(d.cfg.Sources),
		"targets", len(d.cfg.Targets),
		"window", d.cfg.ActiveStart+"-"+d.cfg.ActiveEnd)

	for {
		if ctx.Err() != nil {
			d.log.Info("display loop stopped")
			return nil
		}

		if !d.window.Contains(d.clock.Now()) {
			d.blank(ctx)
			if err := d.sleep(ctx, blankInterval); err != nil {
				d.log.Info("display loop stopped")
				return nil
			}
			continue
		}

		if len(d.cfg.Sources) == 0 {
			d.log.Warn("no sources configured")
			if err := d.sleep(ctx, blankInterval); err != nil {
				return nil
			}
			continue
		}

		displayed := false
		for _, src := range d.cfg.Sources {
			if ctx.Err() != nil {
				d.log.Info("display loop stopped")
				return nil
			}

			strips, err := d.loader.LoadStrips(ctx, src.Path)
			if err != nil {
				d.log.Warn("skipping source", "source", src.Path, "error", err)
				continue
			}

			d.log.Debug("showing source", "source", src.Path, "for", src.DisplayTime)
			if err := d.fanOut(ctx, strips); err != nil {
				d.log.Warn("sending frames", "source", src.Path, "error", err)
			}
			displayed = true
			if err := d.sleep(ctx, src.DisplayTime); err != nil {
				d.log.Info("display loop stopped")
				return nil
			}
		}

		// Every source failed to load; wait before retrying instead of
		// spinning.
		if !displayed {
			if err := d.sleep(ctx, blankInterval); err != nil {
				return nil
			}
		}
	}
}

// ShowOnce slices one source and sends it to all targets, returning the
// first send error.
func (d *Daemon) ShowOnce(ctx context.Context, source string) error {
	strips, err := d.loader.LoadStrips(ctx, source)
	if err != nil {
		return err
	}
	return d.fanOut(ctx, strips)
}

// blank sends a black strip to every target.
func (d *Daemon) blank(ctx context.Context) {
	d.log.Debug("outside active window, blanking panels")
	strips := make([]*image.RGBA, len(d.cfg.Targets))
	black := display.BlackStrip()
	for i := range strips {
		strips[i] = black
	}
	if err := d.fanOut(ctx, strips); err != nil {
		d.log.Warn("blanking panels", "error", err)
	}
}

// fanOut sends strip i to target i concurrently. Each target is
// independent; all sends run to completion and the first error is
// returned.
func (d *Daemon) fanOut(ctx context.Context, strips []*image.RGBA) error {
	var g errgroup.Group
	for i, target := range d.cfg.Targets {
		if i >= len(strips) {
			break
		}
		strip := strips[i]
		target := target
		g.Go(func() error {
			return d.sender.Send(ctx, target, display.CmdShowData, strip)
		})
	}
	return g.Wait()
}

func (d *Daemon) sleep(ctx context.Context, dur time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-d.clock.After(dur):
		return nil
	}
}
