// Package light defines the capability set every light backend provides.
package light

//go:generate mockgen -source=light.go -destination=mocks/light_mock.go -package=mocks

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"ambisync/internal/colormodel"
)

var (
	// ErrBackendInit is wrapped by errors raised while connecting to or
	// initializing a backend.
	ErrBackendInit = errors.New("light backend initialization failed")

	// ErrTransmit is wrapped by errors raised while sending a color.
	ErrTransmit = errors.New("light transmit failed")

	// ErrTimeout is returned, together with ErrTransmit, by SetColorWithin
	// when the backend does not answer in time.
	ErrTimeout = errors.New("light did not respond in time")
)

// System is a light the driver loop can control.
type System interface {
	// HasTerminated reports whether the driver loop should stop, e.g.
	// because the device disconnected or the user closed a preview.
	HasTerminated() bool

	// SetColor shows c, with a brightness derived from its perceived
	// lightness and scaled to the backend's native range.
	SetColor(ctx context.Context, c colormodel.RGB) error

	// Reset restores the backend's neutral state. It is called exactly
	// once when the driver loop ends.
	Reset(ctx context.Context) error

	// Close releases the backend's transport.
	Close() error
}

// Previewer is implemented by backends that can show the sampled frame.
type Previewer interface {
	SetThumbnail(img image.Image)
}

// SetColorWithin calls s.SetColor and gives up after timeout. A backend that
// never returns is left running in the background; the caller is expected to
// stop using it. A timeout <= 0 waits indefinitely.
func SetColorWithin(ctx context.Context, s System, c colormodel.RGB, timeout time.Duration) error {
	if timeout <= 0 {
		return s.SetColor(ctx, c)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- s.SetColor(ctx, c)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("%w: %w: setting %s after %s", ErrTransmit, ErrTimeout, c, timeout)
	}
}
