package observability_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/orbitcam/observability"
)

func TestLevel_String(t *testing.T) {
	tests := []struct {
		level observability.Level
		want  string
	}{
		{1, "TRACE"},
		{observability.LevelVerbose, "DEBUG"},
		{observability.LevelInfo, "INFO"},
		{observability.LevelWarning, "WARN"},
		{observability.LevelError, "ERROR"},
		{21, "FATAL"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.level.String(), "level %d", tt.level)
	}
}

func TestLevel_SlogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, observability.LevelVerbose.SlogLevel())
	assert.Equal(t, slog.LevelInfo, observability.LevelInfo.SlogLevel())
	assert.Equal(t, slog.LevelWarn, observability.LevelWarning.SlogLevel())
	assert.Equal(t, slog.LevelError, observability.LevelError.SlogLevel())
}

func TestParseSlogLevel(t *testing.T) {
	lvl, err := observability.ParseSlogLevel("WARN")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, lvl)

	lvl, err = observability.ParseSlogLevel("")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, lvl)

	_, err = observability.ParseSlogLevel("loud")
	assert.Error(t, err)
}

func TestSlogObserver_WritesEvent(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	observability.NewSlogObserver(logger).OnEvent(context.Background(), observability.Event{
		Type:      "orbit.clamp",
		Level:     observability.LevelInfo,
		Timestamp: time.Now(),
		Source:    "orbitcam.Watcher",
		Data:      map[string]any{"phi": 95.0},
	})

	out := buf.String()
	assert.Contains(t, out, "orbit.clamp")
	assert.Contains(t, out, "source=orbitcam.Watcher")
	assert.Contains(t, out, "phi=95")
}

func TestSlogObserver_RespectsHandlerLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	observability.NewSlogObserver(logger).OnEvent(context.Background(), observability.Event{
		Type:  "orbit.suppress",
		Level: observability.LevelVerbose,
	})

	assert.Empty(t, buf.String())
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := observability.NewLogger(&buf, "json", slog.LevelInfo)
	require.NoError(t, err)
	logger.Info("hello")
	assert.Contains(t, buf.String(), `"msg":"hello"`)

	_, err = observability.NewLogger(&buf, "xml", slog.LevelInfo)
	assert.Error(t, err)
}

func TestMultiObserver_SkipsNil(t *testing.T) {
	first := &observability.Recorder{}
	second := &observability.Recorder{}

	multi := observability.NewMultiObserver(nil, first, nil, second)
	multi.OnEvent(context.Background(), observability.Event{Type: "orbit.emit"})

	assert.Equal(t, 1, first.Count("orbit.emit"))
	assert.Equal(t, 1, second.Count("orbit.emit"))
}

func TestRecorder_EventsIsCopy(t *testing.T) {
	rec := &observability.Recorder{}
	rec.OnEvent(context.Background(), observability.Event{Type: "a"})

	events := rec.Events()
	events[0].Type = "mutated"

	assert.Equal(t, observability.EventType("a"), rec.Events()[0].Type)
	assert.Equal(t, 0, rec.Count("mutated"))
}

func TestNoOpObserver(t *testing.T) {
	assert.NotPanics(t, func() {
		observability.NoOpObserver{}.OnEvent(context.Background(), observability.Event{Type: "x"})
	})
}
