// Package mesh drives an Awox Bluetooth LE mesh bulb.
package mesh

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"ambisync/internal/colormodel"
	"ambisync/internal/light"
)

const (
	// DefaultBrightnessSteps is the color brightness range of the bulb.
	DefaultBrightnessSteps = 64
	// whiteRange is the range of the white temperature and brightness commands.
	whiteRange = 0x7f
)

var _ light.System = (*Light)(nil)

// ErrLoginRejected is returned when the bulb refuses the mesh name or password.
var ErrLoginRejected = errors.New("mesh login rejected")

// Config identifies a bulb and its reset state.
type Config struct {
	Address  string
	Name     string
	Password string
	MeshID   uint16

	BrightnessSteps int
	// ResetTemperature is the raw white temperature (0..127) shown on reset.
	ResetTemperature int
	// ResetBrightness is the white brightness shown on reset, in percent.
	ResetBrightness float64
}

// Light is a connected, logged in mesh bulb.
type Light struct {
	conn   Conn
	cfg    Config
	mac    []byte
	key    []byte
	random io.Reader
}

// Option configures a Light.
type Option func(*Light)

// WithRandom replaces the source of session and sequence randomness.
func WithRandom(r io.Reader) Option {
	return func(l *Light) {
		l.random = r
	}
}

// Connect dials the bulb over Bluetooth LE, logs in and turns it on.
func Connect(ctx context.Context, cfg Config, opts ...Option) (*Light, error) {
	conn, err := Dial(ctx, cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", light.ErrBackendInit, err)
	}
	l, err := New(conn, cfg, opts...)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return l, nil
}

// New logs in to the mesh over conn and powers the bulb on.
func New(conn Conn, cfg Config, opts ...Option) (*Light, error) {
	if cfg.BrightnessSteps <= 0 {
		cfg.BrightnessSteps = DefaultBrightnessSteps
	}
	mac, err := macBytes(cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", light.ErrBackendInit, err)
	}

	l := &Light{
		conn:   conn,
		cfg:    cfg,
		mac:    mac,
		random: rand.Reader,
	}
	for _, opt := range opts {
		opt(l)
	}

	if err := l.login(); err != nil {
		return nil, fmt.Errorf("%w: %w", light.ErrBackendInit, err)
	}
	if err := l.write(cmdPower, []byte{0x01}); err != nil {
		return nil, fmt.Errorf("%w: powering on: %w", light.ErrBackendInit, err)
	}

	log.Info().Str("address", cfg.Address).Msg("Connected to mesh light")
	return l, nil
}

func (l *Light) login() error {
	sessionRandom := make([]byte, 8)
	if _, err := io.ReadFull(l.random, sessionRandom); err != nil {
		return errors.Wrap(err, "generating session random")
	}

	if err := l.conn.WritePair(pairPacket(l.cfg.Name, l.cfg.Password, sessionRandom)); err != nil {
		return err
	}
	reply, err := l.conn.ReadPair()
	if err != nil {
		return err
	}

	switch {
	case len(reply) >= 9 && reply[0] == pairAccepted:
		l.key = sessionKey(l.cfg.Name, l.cfg.Password, sessionRandom, reply[1:9])
		return nil
	case len(reply) > 0 && reply[0] == pairRejected:
		return ErrLoginRejected
	default:
		return errors.Errorf("unexpected pair reply % x", reply)
	}
}

func (l *Light) write(command byte, data []byte) error {
	seq := make([]byte, 3)
	if _, err := io.ReadFull(l.random, seq); err != nil {
		return errors.Wrap(err, "generating sequence number")
	}
	return l.conn.WriteCommand(commandPacket(l.key, l.mac, l.cfg.MeshID, command, data, seq))
}

// HasTerminated reports whether the Bluetooth link has dropped.
func (l *Light) HasTerminated() bool {
	select {
	case <-l.conn.Disconnected():
		return true
	default:
		return false
	}
}

// SetColor sends the color and its perceived brightness.
func (l *Light) SetColor(ctx context.Context, c colormodel.RGB) error {
	brightness := colormodel.Brightness(c, l.cfg.BrightnessSteps)
	if err := l.write(cmdColor, []byte{0x04, c.R, c.G, c.B}); err != nil {
		return fmt.Errorf("%w: color %s: %w", light.ErrTransmit, c, err)
	}
	if err := l.write(cmdColorBrightness, []byte{byte(brightness)}); err != nil {
		return fmt.Errorf("%w: brightness %d: %w", light.ErrTransmit, brightness, err)
	}
	log.Debug().Stringer("color", c).Int("brightness", brightness).Msg("Mesh light updated")
	return nil
}

// Reset switches the bulb to the configured white.
func (l *Light) Reset(ctx context.Context) error {
	temp := min(max(l.cfg.ResetTemperature, 0), whiteRange)
	if err := l.write(cmdWhiteTemperature, []byte{byte(temp)}); err != nil {
		return fmt.Errorf("%w: white temperature: %w", light.ErrTransmit, err)
	}
	brightness := colormodel.PercentageOf(l.cfg.ResetBrightness, whiteRange)
	if err := l.write(cmdWhiteBrightness, []byte{byte(brightness)}); err != nil {
		return fmt.Errorf("%w: white brightness: %w", light.ErrTransmit, err)
	}
	return nil
}

// Close drops the Bluetooth link.
func (l *Light) Close() error {
	return l.conn.Close()
}
