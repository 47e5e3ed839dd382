package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "orbitcam.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("", map[string]string{})
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.Equal(t, "0deg 0deg 100%", cfg.InitialOrbit)
	assert.Equal(t, 3.0, cfg.StepDegrees)
}

func TestLoadConfig_FileThenEnv(t *testing.T) {
	path := writeConfig(t, `
listen_addr = "127.0.0.1:8089"
log_format = "json"
step_degrees = 7.5
initial_orbit = "10deg 45deg 80%"
`)

	cfg, err := LoadConfig(path, map[string]string{
		"ORBITCAM_LOG_LEVEL":   "debug",
		"ORBITCAM_FRAMES_DIR":  "/tmp/frames",
		"ORBITCAM_LISTEN_ADDR": ":9000",
	})
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/tmp/frames", cfg.FramesDir)
	assert.Equal(t, 7.5, cfg.StepDegrees)
	assert.Equal(t, "10deg 45deg 80%", cfg.InitialOrbit)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		environ map[string]string
		errText string
	}{
		{name: "unknown format", environ: map[string]string{"ORBITCAM_LOG_FORMAT": "xml"}, errText: "log_format"},
		{name: "unknown level", environ: map[string]string{"ORBITCAM_LOG_LEVEL": "loud"}, errText: "log_level"},
		{name: "zero step", environ: map[string]string{"ORBITCAM_STEP_DEGREES": "0"}, errText: "step_degrees"},
		{name: "step not a number", environ: map[string]string{"ORBITCAM_STEP_DEGREES": "fast"}, errText: "parse env"},
		{name: "malformed orbit", environ: map[string]string{"ORBITCAM_INITIAL_ORBIT": "10deg 45deg"}, errText: "initial_orbit"},
		{name: "unknown key", file: "zoom = 3\n", errText: "unknown keys zoom"},
		{name: "broken toml", file: "listen_addr = \n", errText: "read config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := ""
			if tt.file != "" {
				path = writeConfig(t, tt.file)
			}
			environ := tt.environ
			if environ == nil {
				environ = map[string]string{}
			}
			_, err := LoadConfig(path, environ)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errText)
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml"), map[string]string{})
	assert.Error(t, err)
}
