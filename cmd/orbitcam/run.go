package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/teranos/orbitcam"
	"github.com/teranos/orbitcam/observability"
	"github.com/teranos/orbitcam/orbit"
	"github.com/teranos/orbitcam/rotation"
	"github.com/teranos/orbitcam/trip"
	"github.com/teranos/orbitcam/viewer"
)

// channelBuffer bounds what the pump may lag behind the viewer.
const channelBuffer = 64

// IO is where the viewer reads keys and draws, and where logs go when no
// log file is configured.
type IO struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// Run starts the viewer and blocks until the user quits or ctx ends.
func Run(ctx context.Context, cfg Config, stdio IO) error {
	logOut := stdio.Err
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		logOut = f
	}
	level, err := observability.ParseSlogLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger, err := observability.NewLogger(logOut, cfg.LogFormat, level)
	if err != nil {
		return err
	}
	obs := observability.NewSlogObserver(logger)

	initial, err := orbit.Parse(cfg.InitialOrbit)
	if err != nil {
		return fmt.Errorf("initial orbit: %w", err)
	}

	surface := viewer.NewSurface(initial, viewer.WithSurfaceObserver(obs))
	page := viewer.NewPage()
	page.Register(viewer.DefaultSelector, surface)

	// Slow sinks hang off the channel pump.
	var slow rotation.Fanout

	var frames *orbitcam.FrameSink
	if cfg.FramesDir != "" {
		frames, err = orbitcam.NewFrameSink(cfg.FramesDir, nil, obs)
		if err != nil {
			return err
		}
		slow = append(slow, frames)
	}

	var (
		broadcaster *rotation.Broadcaster
		server      *http.Server
		serveErr    = make(chan error, 1)
	)
	if cfg.ListenAddr != "" {
		broadcaster = rotation.NewBroadcaster(rotation.WithBroadcastObserver(obs))
		slow = append(slow, broadcaster)

		ln, err := net.Listen("tcp", cfg.ListenAddr)
		if err != nil {
			return fmt.Errorf("listen %s: %w", cfg.ListenAddr, err)
		}
		mux := http.NewServeMux()
		mux.Handle("/rotation", broadcaster)
		server = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

		logger.Info("rotation websocket listening", "addr", ln.Addr().String(), "path", "/rotation")
		go func() {
			if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- err
			}
		}()
	}

	channel := rotation.NewChannel(context.Background(), rotation.DefaultChannelName, channelBuffer)
	var pump sync.WaitGroup
	pump.Add(1)
	go func() {
		defer pump.Done()
		for {
			msg, err := channel.Receive(context.Background())
			if err != nil {
				return
			}
			slow.PostMessage(msg)
		}
	}()

	recorder := &rotation.Recorder{}
	trips := trip.NewHandler("orbitcam", nil)
	watcher := orbitcam.SetupRotationListener(page, rotation.Fanout{recorder, channel},
		orbitcam.WithObserver(obs),
		orbitcam.WithTripHandler(trips),
	)

	program := tea.NewProgram(viewer.NewModel(surface, cfg.StepDegrees, recorder),
		tea.WithContext(ctx),
		tea.WithInput(stdio.In),
		tea.WithOutput(stdio.Out),
	)

	runErr := make(chan error, 1)
	go func() {
		_, err := program.Run()
		runErr <- err
	}()

	select {
	case err = <-runErr:
	case err = <-serveErr:
		program.Kill()
		<-runErr
		err = fmt.Errorf("rotation server: %w", err)
	}
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		err = nil
	}

	watcher.Close()
	channel.Close()
	pump.Wait()

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		broadcaster.Close()
		if serr := server.Shutdown(shutdownCtx); serr != nil {
			logger.Warn("rotation server shutdown", "error", serr)
		}
	}

	logSummary(logger, trips, recorder, channel, frames)
	return err
}

func logSummary(logger *slog.Logger, trips *trip.Handler, recorder *rotation.Recorder, channel *rotation.Channel, frames *orbitcam.FrameSink) {
	attrs := []any{
		"sent", recorder.Len(),
		"channel_dropped", channel.Dropped(),
		"trips", trips.Summary(),
	}
	if frames != nil {
		attrs = append(attrs, "frames", frames.Frames())
	}
	logger.Info("orbitcam stopped", attrs...)
}
