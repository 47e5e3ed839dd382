package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	keyRight = "\x1b[C"
	keyUp    = "\x1b[A"
)

func TestRun_KeysDriveTheWatcher(t *testing.T) {
	frames := filepath.Join(t.TempDir(), "frames")
	cfg := DefaultConfig()
	cfg.FramesDir = frames
	cfg.LogFormat = "json"
	cfg.LogLevel = "debug"

	var logs bytes.Buffer
	input := strings.Repeat(keyRight, 3) + "q"

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := Run(ctx, cfg, IO{In: strings.NewReader(input), Out: io.Discard, Err: &logs})
	require.NoError(t, err)

	// theta 3, 6, 9: only 6 is past the threshold
	_, err = os.Stat(filepath.Join(frames, "frame-00001.png"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(frames, "frame-00002.png"))
	assert.True(t, os.IsNotExist(err))

	out := logs.String()
	assert.Contains(t, out, `"msg":"watcher.setup"`)
	assert.Contains(t, out, `"msg":"orbit.emit"`)
	assert.Contains(t, out, `"msg":"orbitcam stopped"`)
}

func TestRun_ClampFromTheKeyboard(t *testing.T) {
	cfg := DefaultConfig()
	cfg.InitialOrbit = "0deg 85deg 100%"
	cfg.StepDegrees = 10

	var logs bytes.Buffer
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := Run(ctx, cfg, IO{In: strings.NewReader(keyUp + "q"), Out: io.Discard, Err: &logs})
	require.NoError(t, err)

	assert.Contains(t, logs.String(), "orbit.clamp")
	assert.Contains(t, logs.String(), "correction=\"0deg 90deg 75%\"")
}

func TestRun_BadLogFile(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogFile = filepath.Join(t.TempDir(), "missing", "orbitcam.log")

	err := Run(context.Background(), cfg, IO{In: strings.NewReader("q"), Out: io.Discard, Err: io.Discard})
	assert.Error(t, err)
}

func TestRun_BadListenAddr(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ListenAddr = "127.0.0.1:-1"

	err := Run(context.Background(), cfg, IO{In: strings.NewReader("q"), Out: io.Discard, Err: io.Discard})
	assert.Error(t, err)
}
