// Package driver runs the loop that feeds the screen color to a light.
package driver

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"ambisync/internal/colormodel"
	"ambisync/internal/light"
)

// DefaultResetTimeout bounds the teardown Reset call.
const DefaultResetTimeout = 5 * time.Second

// Poller reports screen color changes.
type Poller interface {
	Poll() (colormodel.RGB, bool, error)
	CurrentImage() image.Image
}

// TransmitPolicy decides what a failed SetColor does to the loop.
type TransmitPolicy int

const (
	// StopOnTransmitError ends the loop with the error.
	StopOnTransmitError TransmitPolicy = iota
	// SkipTransmitError logs the error and keeps polling.
	SkipTransmitError
)

// Options tune the loop.
type Options struct {
	// MaxFPS caps the poll rate; <= 0 means unlimited.
	MaxFPS float64
	// TransmitTimeout bounds each SetColor; <= 0 waits indefinitely.
	TransmitTimeout time.Duration
	OnTransmitError TransmitPolicy
	// ResetTimeout bounds the teardown Reset; <= 0 uses DefaultResetTimeout.
	ResetTimeout time.Duration
}

// Run polls p and sends every new color to sys until ctx is cancelled, sys
// terminates or an error occurs. Cancellation and termination are not errors.
//
// sys is reset and closed exactly once before Run returns; failures there are
// joined into the returned error.
func Run(ctx context.Context, p Poller, sys light.System, opts Options) (err error) {
	defer func() {
		err = errors.Join(err, teardown(ctx, sys, opts.ResetTimeout))
	}()

	limit := rate.Inf
	if opts.MaxFPS > 0 {
		limit = rate.Limit(opts.MaxFPS)
	}
	limiter := rate.NewLimiter(limit, 1)
	preview, _ := sys.(light.Previewer)

	log.Info().Float64("max_fps", opts.MaxFPS).Dur("transmit_timeout", opts.TransmitTimeout).Msg("Sync started")

	for {
		if ctx.Err() != nil {
			log.Info().Msg("Sync cancelled")
			return nil
		}
		if sys.HasTerminated() {
			log.Info().Msg("Light terminated")
			return nil
		}
		if err := limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				continue
			}
			return err
		}

		if preview != nil {
			preview.SetThumbnail(p.CurrentImage())
		}

		c, changed, err := p.Poll()
		if err != nil {
			return err
		}
		if !changed {
			continue
		}

		log.Debug().Stringer("color", c).Msg("Color changed")
		if err := light.SetColorWithin(ctx, sys, c, opts.TransmitTimeout); err != nil {
			if ctx.Err() != nil {
				continue
			}
			if opts.OnTransmitError == SkipTransmitError {
				log.Warn().Err(err).Stringer("color", c).Msg("Skipping failed color update")
				continue
			}
			return err
		}
	}
}

func teardown(ctx context.Context, sys light.System, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultResetTimeout
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	// Reset runs in its own goroutine so a backend that ignores ctx cannot
	// hold up Close.
	done := make(chan error, 1)
	go func() { done <- sys.Reset(ctx) }()

	var resetErr error
	select {
	case resetErr = <-done:
	case <-ctx.Done():
		resetErr = fmt.Errorf("%w: reset after %s", light.ErrTimeout, timeout)
	}

	var errs []error
	if resetErr != nil {
		log.Error().Err(resetErr).Msg("Failed to reset light")
		errs = append(errs, resetErr)
	}
	if err := sys.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close light")
		errs = append(errs, err)
	}
	log.Info().Msg("Light released")
	return errors.Join(errs...)
}
