package hue

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"ambisync/internal/colormodel"
	"ambisync/internal/light"
)

// DefaultKeepalive is how often the last frame is resent. The bridge ends the
// stream after ten seconds without data.
const DefaultKeepalive = time.Second

// Config selects the bridge, credentials and entertainment area.
type Config struct {
	// Bridge is the bridge IP address.
	Bridge    string
	Username  string
	ClientKey string
	// AreaID selects the entertainment area; empty picks the first one.
	AreaID string

	ResetColor      colormodel.RGB
	ResetBrightness float64
	Keepalive       time.Duration
}

// Light streams colors to every channel of one entertainment area.
type Light struct {
	bridge *Bridge
	area   EntertainmentArea
	cfg    Config

	mu       sync.Mutex
	streamer *Streamer
	last     XYB
	hasLast  bool

	stop       chan struct{}
	stopOnce   sync.Once
	wg         sync.WaitGroup
	terminated chan struct{}
	termOnce   sync.Once
}

var _ light.System = (*Light)(nil)

// Connect activates the entertainment area and opens the DTLS stream.
func Connect(ctx context.Context, cfg Config) (*Light, error) {
	ip := net.ParseIP(cfg.Bridge)
	if ip == nil {
		return nil, fmt.Errorf("%w: invalid bridge address %q", light.ErrBackendInit, cfg.Bridge)
	}
	if cfg.Username == "" || cfg.ClientKey == "" {
		return nil, fmt.Errorf("%w: bridge is not paired, run hue-pair first", light.ErrBackendInit)
	}

	bridge := NewBridge(cfg.Bridge, cfg.Username)
	area, err := bridge.FindArea(ctx, cfg.AreaID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", light.ErrBackendInit, err)
	}
	if err := bridge.Activate(ctx, area.ID); err != nil {
		return nil, fmt.Errorf("%w: %w", light.ErrBackendInit, err)
	}

	streamer, err := DialStreamer(ctx, ip, cfg.Username, cfg.ClientKey, area)
	if err != nil {
		if derr := bridge.Deactivate(context.WithoutCancel(ctx), area.ID); derr != nil {
			log.Warn().Err(derr).Str("area", area.Name).Msg("Failed to deactivate entertainment area")
		}
		return nil, fmt.Errorf("%w: %w", light.ErrBackendInit, err)
	}

	log.Info().Stringer("area", area).Msg("Streaming to Hue entertainment area")
	return newLight(bridge, area, streamer, cfg), nil
}

func newLight(bridge *Bridge, area EntertainmentArea, streamer *Streamer, cfg Config) *Light {
	if cfg.Keepalive <= 0 {
		cfg.Keepalive = DefaultKeepalive
	}
	l := &Light{
		bridge:     bridge,
		area:       area,
		cfg:        cfg,
		streamer:   streamer,
		stop:       make(chan struct{}),
		terminated: make(chan struct{}),
	}
	l.wg.Add(1)
	go l.keepalive()
	return l
}

func (l *Light) keepalive() {
	defer l.wg.Done()
	ticker := time.NewTicker(l.cfg.Keepalive)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			if err := l.resend(); err != nil {
				log.Error().Err(err).Msg("Hue keepalive failed")
				l.termOnce.Do(func() { close(l.terminated) })
				return
			}
		}
	}
}

func (l *Light) resend() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.hasLast {
		return nil
	}
	return l.streamer.Send(l.last)
}

func (l *Light) send(c XYB) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.streamer.Send(c); err != nil {
		return err
	}
	l.last = c
	l.hasLast = true
	return nil
}

// HasTerminated reports whether the stream to the bridge has failed.
func (l *Light) HasTerminated() bool {
	select {
	case <-l.terminated:
		return true
	default:
		return false
	}
}

// SetColor streams c at its perceived lightness.
func (l *Light) SetColor(ctx context.Context, c colormodel.RGB) error {
	xyb := ColorXYB(c)
	if err := l.send(xyb); err != nil {
		return fmt.Errorf("%w: color %s: %w", light.ErrTransmit, c, err)
	}
	log.Debug().Stringer("color", c).Uint16("brightness", xyb.Brightness).Msg("Hue area updated")
	return nil
}

// Reset shows the reset color and hands the area back to the bridge.
func (l *Light) Reset(ctx context.Context) error {
	var errs []error
	if err := l.send(NewXYB(l.cfg.ResetColor, l.cfg.ResetBrightness)); err != nil {
		errs = append(errs, fmt.Errorf("%w: reset color: %w", light.ErrTransmit, err))
	}
	l.stopKeepalive()
	if err := l.bridge.Deactivate(ctx, l.area.ID); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Close stops the keepalive and closes the DTLS stream.
func (l *Light) Close() error {
	l.stopKeepalive()
	return l.streamer.Close()
}

func (l *Light) stopKeepalive() {
	l.stopOnce.Do(func() { close(l.stop) })
	l.wg.Wait()
}
