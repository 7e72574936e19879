// Package config loads the ambisync configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"ambisync/internal/capture"
	"ambisync/internal/colormodel"
)

// Backends.
const (
	BackendDisplay = "display"
	BackendMesh    = "mesh"
	BackendHue     = "hue"
)

// Transmit failure policies.
const (
	OnTransmitErrorStop = "stop"
	OnTransmitErrorSkip = "skip"
)

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("invalid configuration")

// Config is the content of config.yaml.
type Config struct {
	Backend   string        `yaml:"backend"`
	Log       LogConfig     `yaml:"log"`
	Capture   CaptureConfig `yaml:"capture"`
	Threshold float64       `yaml:"threshold"`
	Extract   ExtractConfig `yaml:"extract"`
	Loop      LoopConfig    `yaml:"loop"`
	Mesh      MeshConfig    `yaml:"mesh"`
	Hue       HueConfig     `yaml:"hue"`
	Display   DisplayConfig `yaml:"display"`
}

// LogConfig selects the log level and an optional log file.
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file,omitempty"`
}

// CaptureConfig chooses the capture method and the sampled region.
type CaptureConfig struct {
	Method       capture.Method `yaml:"method"`
	Display      int            `yaml:"display"`
	Border       int            `yaml:"border"`
	MaxDimension int            `yaml:"max_dimension"`
	FrameRate    int            `yaml:"frame_rate"`
}

// ExtractConfig tunes dominant color extraction.
type ExtractConfig struct {
	Quality     int `yaml:"quality"`
	PaletteSize int `yaml:"palette_size"`
}

// LoopConfig tunes the sync loop.
type LoopConfig struct {
	// MaxFPS caps the poll rate; 0 polls as fast as capture allows.
	MaxFPS          float64       `yaml:"max_fps"`
	TransmitTimeout time.Duration `yaml:"transmit_timeout"`
	OnTransmitError string        `yaml:"on_transmit_error"`
}

// MeshConfig addresses an Awox Bluetooth mesh bulb.
type MeshConfig struct {
	Address          string  `yaml:"address"`
	Name             string  `yaml:"name"`
	Password         string  `yaml:"password"`
	MeshID           uint16  `yaml:"mesh_id"`
	BrightnessSteps  int     `yaml:"brightness_steps"`
	ResetTemperature int     `yaml:"reset_temperature"`
	ResetBrightness  float64 `yaml:"reset_brightness"`
}

// HueConfig holds the Hue bridge credentials and entertainment area.
type HueConfig struct {
	Bridge          string  `yaml:"bridge"`
	Username        string  `yaml:"username,omitempty"`
	ClientKey       string  `yaml:"clientkey,omitempty"`
	AreaID          string  `yaml:"area_id,omitempty"`
	ResetColor      string  `yaml:"reset_color"`
	ResetBrightness float64 `yaml:"reset_brightness"`
}

// DisplayConfig sizes the terminal preview.
type DisplayConfig struct {
	Width          int `yaml:"width"`
	Height         int `yaml:"height"`
	ThumbnailWidth int `yaml:"thumbnail_width"`
}

// Default returns the configuration used for keys missing from the file.
func Default() Config {
	return Config{
		Backend: BackendDisplay,
		Log:     LogConfig{Level: "info"},
		Capture: CaptureConfig{
			Method:       capture.MethodAuto,
			Border:       100,
			MaxDimension: 200,
			FrameRate:    10,
		},
		Threshold: 5,
		Extract:   ExtractConfig{Quality: 1, PaletteSize: 10},
		Loop: LoopConfig{
			TransmitTimeout: 2 * time.Second,
			OnTransmitError: OnTransmitErrorStop,
		},
		Mesh: MeshConfig{
			Name:             "unpaired",
			Password:         "1234",
			BrightnessSteps:  64,
			ResetTemperature: 0x7f,
			ResetBrightness:  50,
		},
		Hue: HueConfig{
			ResetColor:      "#ffc58f",
			ResetBrightness: 50,
		},
		Display: DisplayConfig{Width: 80, Height: 5, ThumbnailWidth: 32},
	}
}

// configDir overrides the default configuration directory for testing.
// When empty, the user's home directory is used.
var configDir string

// Path returns the default location of config.yaml.
func Path() (string, error) {
	if configDir != "" {
		return filepath.Join(configDir, "config.yaml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".ambisync", "config.yaml"), nil
}

// Load reads the file at path, or the default path when path is empty, and
// validates it. A missing file yields Default.
func Load(path string) (Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		if path == "" {
			return Config{}, err
		}
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Read is Load without validation, for callers that complete the
// configuration before using it.
func Read(path string) (Config, error) {
	if path == "" {
		var err error
		if path, err = Path(); err != nil {
			return Config{}, err
		}
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path, or the default path when path is empty. The
// directory is created with 0700 and the file with 0600 since it holds
// credentials.
func Save(path string, cfg Config) error {
	if path == "" {
		var err error
		if path, err = Path(); err != nil {
			return err
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// Validate rejects unknown enumerations and out of range values.
func (c Config) Validate() error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	switch c.Backend {
	case BackendDisplay, BackendMesh, BackendHue:
	default:
		invalid("unknown backend %q", c.Backend)
	}
	switch c.Capture.Method {
	case capture.MethodAuto, capture.MethodPipeWire, capture.MethodFFmpeg, capture.MethodX11:
	default:
		invalid("unknown capture method %q", c.Capture.Method)
	}
	switch c.Loop.OnTransmitError {
	case OnTransmitErrorStop, OnTransmitErrorSkip:
	default:
		invalid("unknown on_transmit_error policy %q", c.Loop.OnTransmitError)
	}

	if c.Capture.Border < 0 {
		invalid("capture.border must not be negative")
	}
	if c.Capture.MaxDimension <= 0 {
		invalid("capture.max_dimension must be positive")
	}
	if c.Capture.FrameRate <= 0 {
		invalid("capture.frame_rate must be positive")
	}
	if c.Threshold < 0 || c.Threshold > 100 {
		invalid("threshold must be within 0..100")
	}
	if c.Extract.Quality <= 0 || c.Extract.PaletteSize <= 0 {
		invalid("extract.quality and extract.palette_size must be positive")
	}
	if c.Loop.MaxFPS < 0 {
		invalid("loop.max_fps must not be negative")
	}
	if c.Mesh.BrightnessSteps <= 0 {
		invalid("mesh.brightness_steps must be positive")
	}
	if c.Display.Width <= 0 || c.Display.Height <= 0 {
		invalid("display size must be positive")
	}
	if _, err := colormodel.ParseHex(c.Hue.ResetColor); err != nil {
		invalid("hue.reset_color: %v", err)
	}

	switch c.Backend {
	case BackendMesh:
		if c.Mesh.Address == "" {
			invalid("mesh.address is required for the mesh backend")
		}
	case BackendHue:
		if c.Hue.Bridge == "" {
			invalid("hue.bridge is required for the hue backend")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}
