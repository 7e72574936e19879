// Package main provides the entry point for ambisync, which mirrors the
// screen's dominant color on a light.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"ambisync/internal/capture"
	"ambisync/internal/colormodel"
	"ambisync/internal/config"
	"ambisync/internal/driver"
	"ambisync/internal/extract"
	"ambisync/internal/finder"
	"ambisync/internal/light"
	"ambisync/internal/light/display"
	"ambisync/internal/light/hue"
	"ambisync/internal/light/mesh"
)

const connectTimeout = 30 * time.Second

var (
	verbose    bool
	configPath string
	// appConfig and closeLog are set up before any command runs.
	appConfig config.Config
	closeLog  = func() {}
	rootCmd   = &cobra.Command{
		Use:   "ambisync",
		Short: "Mirror the dominant screen color on a light",
		Long: `ambisync samples the screen, finds its dominant color and sends it to a
light whenever it changes: an Awox Bluetooth mesh bulb, a Philips Hue
entertainment area or a preview swatch in the terminal.

Settings are read from ~/.ambisync/config.yaml.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), appConfig)
		},
	}
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Configuration file (default ~/.ambisync/config.yaml)")
	rootCmd.AddCommand(huePairCmd)
}

// setup reads the configuration and routes logging for every command. The
// configuration is validated by the commands themselves since hue-pair fills
// in the Hue section.
func setup() error {
	cfg, err := config.Read(configPath)
	if err != nil {
		return err
	}
	done, err := setupLogging(cfg, verbose)
	if err != nil {
		return err
	}
	appConfig, closeLog = cfg, done
	return nil
}

func run(ctx context.Context, cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	log.Info().Str("backend", cfg.Backend).Msg("Starting ambisync")

	capturer, method, err := capture.NewCapturer(capture.Options{
		Method:    cfg.Capture.Method,
		Display:   cfg.Capture.Display,
		FrameRate: cfg.Capture.FrameRate,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := capturer.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to stop screen capture")
		}
	}()
	log.Info().Str("method", method).Msg("Screen capture ready")

	sampler := capture.NewSampler(capturer,
		capture.WithBorder(cfg.Capture.Border),
		capture.WithMaxDimension(cfg.Capture.MaxDimension),
	)
	extractor := extract.New(
		extract.WithQuality(cfg.Extract.Quality),
		extract.WithPaletteSize(cfg.Extract.PaletteSize),
	)
	f, err := finder.New(sampler, extractor, finder.WithThreshold(cfg.Threshold))
	if err != nil {
		return err
	}
	log.Info().Stringer("bbox", f.BoundingBox()).Msg("Sampling region selected")

	sys, err := newLight(ctx, cfg)
	if err != nil {
		return err
	}

	err = driver.Run(ctx, f, sys, driverOptions(cfg))
	log.Info().Msg("Stopped")
	return err
}

func newLight(ctx context.Context, cfg config.Config) (light.System, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	switch cfg.Backend {
	case config.BackendMesh:
		l, err := mesh.Connect(ctx, mesh.Config{
			Address:          cfg.Mesh.Address,
			Name:             cfg.Mesh.Name,
			Password:         cfg.Mesh.Password,
			MeshID:           cfg.Mesh.MeshID,
			BrightnessSteps:  cfg.Mesh.BrightnessSteps,
			ResetTemperature: cfg.Mesh.ResetTemperature,
			ResetBrightness:  cfg.Mesh.ResetBrightness,
		})
		if err != nil {
			return nil, err
		}
		return l, nil

	case config.BackendHue:
		resetColor, err := colormodel.ParseHex(cfg.Hue.ResetColor)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", light.ErrBackendInit, err)
		}
		l, err := hue.Connect(ctx, hue.Config{
			Bridge:          cfg.Hue.Bridge,
			Username:        cfg.Hue.Username,
			ClientKey:       cfg.Hue.ClientKey,
			AreaID:          cfg.Hue.AreaID,
			ResetColor:      resetColor,
			ResetBrightness: cfg.Hue.ResetBrightness,
		})
		if err != nil {
			return nil, err
		}
		return l, nil

	default:
		return display.New(display.Config{
			Width:          cfg.Display.Width,
			Height:         cfg.Display.Height,
			ThumbnailWidth: cfg.Display.ThumbnailWidth,
		}), nil
	}
}

func driverOptions(cfg config.Config) driver.Options {
	opts := driver.Options{
		MaxFPS:          cfg.Loop.MaxFPS,
		TransmitTimeout: cfg.Loop.TransmitTimeout,
		OnTransmitError: driver.StopOnTransmitError,
	}
	if cfg.Loop.OnTransmitError == config.OnTransmitErrorSkip {
		opts.OnTransmitError = driver.SkipTransmitError
	}
	return opts
}

// logFile returns where logs go, or "" for stderr. The terminal preview owns
// the screen, so it logs to a temp file unless told otherwise.
func logFile(cfg config.Config) string {
	if cfg.Log.File != "" {
		return cfg.Log.File
	}
	if cfg.Backend == config.BackendDisplay {
		return filepath.Join(os.TempDir(), "ambisync.log")
	}
	return ""
}

func setupLogging(cfg config.Config, verbose bool) (func(), error) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level := zerolog.DebugLevel
	if !verbose {
		var err error
		if level, err = zerolog.ParseLevel(cfg.Log.Level); err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
		if level == zerolog.NoLevel {
			level = zerolog.InfoLevel
		}
	}
	zerolog.SetGlobalLevel(level)

	var out io.Writer = os.Stderr
	done := func() {}
	if path := logFile(cfg); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		out = f
		done = func() { f.Close() }
	}

	if verbose {
		out = zerolog.ConsoleWriter{Out: out, NoColor: out != os.Stderr}
	}
	log.Logger = zerolog.New(out).With().Timestamp().Logger()
	return done, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		log.Error().Err(err).Msg("ambisync failed")
	}
	closeLog()
	if err != nil {
		stop()
		os.Exit(1)
	}
}
