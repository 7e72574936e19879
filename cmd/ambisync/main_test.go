package main

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ambisync/internal/config"
	"ambisync/internal/driver"
	"ambisync/internal/light/hue"
)

func TestLogFile(t *testing.T) {
	tests := []struct {
		name    string
		backend string
		file    string
		want    string
	}{
		{name: "display logs to temp", backend: config.BackendDisplay, want: filepath.Join(os.TempDir(), "ambisync.log")},
		{name: "mesh logs to stderr", backend: config.BackendMesh, want: ""},
		{name: "explicit file wins", backend: config.BackendDisplay, file: "/var/log/ambisync.log", want: "/var/log/ambisync.log"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Backend = tt.backend
			cfg.Log.File = tt.file
			assert.Equal(t, tt.want, logFile(cfg))
		})
	}
}

func TestDriverOptions(t *testing.T) {
	cfg := config.Default()
	cfg.Loop.MaxFPS = 30
	cfg.Loop.TransmitTimeout = time.Second

	opts := driverOptions(cfg)
	assert.Equal(t, 30.0, opts.MaxFPS)
	assert.Equal(t, time.Second, opts.TransmitTimeout)
	assert.Equal(t, driver.StopOnTransmitError, opts.OnTransmitError)

	cfg.Loop.OnTransmitError = config.OnTransmitErrorSkip
	assert.Equal(t, driver.SkipTransmitError, driverOptions(cfg).OnTransmitError)
}

func TestSetupLogging(t *testing.T) {
	logger, level := log.Logger, zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = logger
		zerolog.SetGlobalLevel(level)
	})

	path := filepath.Join(t.TempDir(), "ambisync.log")
	cfg := config.Default()
	cfg.Log.File = path
	cfg.Log.Level = "warn"

	closeLog, err := setupLogging(cfg, false)
	require.NoError(t, err)
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())

	log.Info().Msg("hidden")
	log.Warn().Msg("visible")
	closeLog()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "visible")
	assert.NotContains(t, string(data), "hidden")
}

func TestSetupLogging_BadLevel(t *testing.T) {
	level := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(level) })

	cfg := config.Default()
	cfg.Backend = config.BackendMesh
	cfg.Log.Level = "loud"

	_, err := setupLogging(cfg, false)
	assert.Error(t, err)
}

func TestSetupCoversSubcommands(t *testing.T) {
	logger, level := log.Logger, zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = logger
		zerolog.SetGlobalLevel(level)
		closeLog = func() {}
		appConfig = config.Config{}
		configPath, pairBridge = "", ""
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})

	dir := t.TempDir()
	logPath := filepath.Join(dir, "ambisync.log")
	cfgPath := filepath.Join(dir, "config.yaml")
	data := "backend: hue\nlog:\n  level: debug\n  file: '" + logPath + "'\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(data), 0600))

	rootCmd.SetArgs([]string{"--config", cfgPath, "hue-pair", "--bridge", "bridge.local"})
	rootCmd.SetOut(io.Discard)
	rootCmd.SetErr(io.Discard)

	err := rootCmd.Execute()
	assert.ErrorContains(t, err, "invalid bridge address")
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
	assert.Equal(t, config.BackendHue, appConfig.Backend, "hue config without bridge is read unvalidated")

	log.Debug().Msg("routed to file")
	closeLog()

	got, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(got), "routed to file")
}

func TestSavePairing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backend: hue\n"), 0600))

	cfg, err := config.Read(path)
	require.NoError(t, err)

	areas := []hue.EntertainmentArea{{ID: "area-1"}, {ID: "area-2"}}
	require.NoError(t, savePairing(path, cfg, "192.168.1.20", "user1", "00112233445566778899aabbccddeeff", areas))

	got, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.BackendHue, got.Backend)
	assert.Equal(t, "192.168.1.20", got.Hue.Bridge)
	assert.Equal(t, "user1", got.Hue.Username)
	assert.Equal(t, "00112233445566778899aabbccddeeff", got.Hue.ClientKey)
	assert.Equal(t, "area-1", got.Hue.AreaID)
}

func TestSavePairing_StillValidates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := config.Default()
	cfg.Backend = "lava-lamp"

	err := savePairing(path, cfg, "192.168.1.20", "user1", "key", nil)
	assert.ErrorIs(t, err, config.ErrInvalid)
	assert.NoFileExists(t, path)
}
