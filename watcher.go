// Package orbitcam watches the camera of a 3D model viewer and reports how it
// turns.
//
// A Watcher subscribes to the viewer's camera-change event. On every change
// it keeps the vertical angle of the viewer inside [-90, 90] and, when the
// camera has turned by more than the threshold since the last report, posts
// {theta, phi} to the RotationChannel sink.
//
// Basic usage:
//
//	page := viewer.NewPage()
//	page.Register("model-viewer", viewer.NewSurface(orbit.New(0, 0, 100)))
//
//	sink := &rotation.Recorder{}
//	w := orbitcam.SetupRotationListener(page, sink)
//	if w == nil {
//		// no viewer on the page, nothing is watched
//	}
//
// For driving a viewer headlessly from tests:
//
//	result := orbitcam.NewRig(t, viewer.NewModel(surface, 3, sink)).
//		Start().
//		PressUp().
//		WaitForPhi(3).
//		Stop()
package orbitcam

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/teranos/orbitcam/observability"
	"github.com/teranos/orbitcam/orbit"
	"github.com/teranos/orbitcam/rotation"
	"github.com/teranos/orbitcam/trip"
)

// ViewerSurface is the viewer element a Watcher observes.
type ViewerSurface = orbit.Surface

// Document locates the viewer element.
type Document interface {
	QuerySelector(selector string) (ViewerSurface, bool)
}

// NotificationSink receives rotation messages. Posting is fire and forget.
type NotificationSink interface {
	PostMessage(msg rotation.Message)
}

// Events emitted by the watcher.
const (
	EventSetup        observability.EventType = "watcher.setup"
	EventSetupSkipped observability.EventType = "watcher.setup.skipped"
	EventClamp        observability.EventType = "orbit.clamp"
	EventEmit         observability.EventType = "orbit.emit"
	EventSuppress     observability.EventType = "orbit.suppress"
)

// Decision is the outcome of one camera change.
type Decision struct {
	// Correction is the orbit to force onto the viewer, nil when phi is in bounds.
	Correction *orbit.Orbit
	// Emission is the message to post, nil when the change is too small.
	Emission *rotation.Message
	// Next is the last-reported state after this change.
	Next orbit.State
}

// Evaluate decides what a camera change at current means, given the state
// last reported. The clamp and the threshold are independent: both look at
// the uncorrected reading, so an emitted phi may lie outside the bounds that
// the correction restores on the viewer.
func Evaluate(current, last orbit.State, cfg WatcherConfig) Decision {
	d := Decision{Next: last}

	switch {
	case current.Phi > cfg.PhiMax:
		c := orbit.New(current.Theta, cfg.PhiMax, cfg.ClampRadius)
		d.Correction = &c
	case current.Phi < cfg.PhiMin:
		c := orbit.New(current.Theta, cfg.PhiMin, cfg.ClampRadius)
		d.Correction = &c
	}

	if math.Abs(current.Theta-last.Theta) > cfg.Threshold || math.Abs(current.Phi-last.Phi) > cfg.Threshold {
		d.Next = current
		d.Emission = &rotation.Message{Theta: current.Theta, Phi: current.Phi}
	}

	return d
}

// Watcher holds the last-reported orientation of one viewer.
type Watcher struct {
	surface  ViewerSurface
	sink     NotificationSink
	config   WatcherConfig
	observer observability.Observer

	mu   sync.Mutex
	last orbit.State
	sub  orbit.Subscription

	stats WatcherStats
}

// WatcherStats counts what the watcher has done.
type WatcherStats struct {
	Events     int64
	Clamps     int64
	Emissions  int64
	Suppressed int64
}

// Option configures SetupRotationListener.
type Option func(*setupOptions)

type setupOptions struct {
	config   WatcherConfig
	observer observability.Observer
	initial  orbit.State
	trips    *trip.Handler
}

// WithConfig replaces the default watcher configuration.
func WithConfig(cfg WatcherConfig) Option {
	return func(o *setupOptions) { o.config = cfg }
}

// WithObserver routes watcher events to obs.
func WithObserver(obs observability.Observer) Option {
	return func(o *setupOptions) { o.observer = obs }
}

// WithInitialState seeds the last-reported orientation (zero by default).
func WithInitialState(s orbit.State) Option {
	return func(o *setupOptions) { o.initial = s }
}

// WithTripHandler records setup stumbles into h.
func WithTripHandler(h *trip.Handler) Option {
	return func(o *setupOptions) { o.trips = h }
}

// SetupRotationListener finds the viewer on doc and starts watching it.
//
// Without a viewer, or with a config that fails Validate, it does nothing
// and returns nil. Each call subscribes again: two calls on the same page
// give two watchers and two messages per qualifying change.
func SetupRotationListener(doc Document, sink NotificationSink, opts ...Option) *Watcher {
	o := setupOptions{
		config:   DefaultWatcherConfig(),
		observer: observability.NoOpObserver{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.observer == nil {
		o.observer = observability.NoOpObserver{}
	}

	if err := o.config.Validate(); err != nil {
		o.skip(trip.NewStumble(trip.InvalidConfig, err.Error(), trip.Context{"selector": o.config.Selector}))
		return nil
	}

	surface, ok := doc.QuerySelector(o.config.Selector)
	if !ok {
		o.skip(trip.NewStumble(trip.SurfaceAbsent, "no viewer on the page", trip.Context{"selector": o.config.Selector}))
		return nil
	}

	w := newWatcher(surface, sink, o)
	w.sub = surface.OnCameraChange(w.HandleCameraChange)

	w.emit(EventSetup, observability.LevelInfo, map[string]any{
		"selector": o.config.Selector,
		"channel":  o.config.Channel,
		"orbit":    surface.CameraOrbit().String(),
	})
	return w
}

// skip records why setup attached nothing.
func (o setupOptions) skip(t *trip.Trip) {
	if o.trips != nil {
		o.trips.Record(t)
	}
	o.observer.OnEvent(context.Background(), observability.Event{
		Type:      EventSetupSkipped,
		Level:     observability.LevelInfo,
		Timestamp: time.Now(),
		Source:    "orbitcam.SetupRotationListener",
		Data:      t.Fields(),
	})
}

func newWatcher(surface ViewerSurface, sink NotificationSink, o setupOptions) *Watcher {
	if sink == nil {
		sink = rotation.SinkFunc(func(rotation.Message) {})
	}
	if o.observer == nil {
		o.observer = observability.NoOpObserver{}
	}
	return &Watcher{
		surface:  surface,
		sink:     sink,
		config:   o.config,
		observer: o.observer,
		last:     o.initial,
	}
}

// HandleCameraChange runs one change through the clamp and the threshold.
// It is the subscribed listener. The watcher's state is updated atomically
// per change; the correction and the post happen after the lock is released,
// so a surface that delivers the correction's own change event synchronously
// does not deadlock. Such a surface sees that nested event before the post.
func (w *Watcher) HandleCameraChange() {
	current := w.surface.CameraOrbit().State()

	w.mu.Lock()
	d := Evaluate(current, w.last, w.config)
	w.last = d.Next
	w.stats.Events++
	if d.Correction != nil {
		w.stats.Clamps++
	}
	if d.Emission != nil {
		w.stats.Emissions++
	} else {
		w.stats.Suppressed++
	}
	w.mu.Unlock()

	if d.Correction != nil {
		w.emit(EventClamp, observability.LevelInfo, map[string]any{
			"phi":        current.Phi,
			"correction": d.Correction.String(),
		})
		w.surface.SetCameraOrbit(*d.Correction)
	}

	if d.Emission == nil {
		w.emit(EventSuppress, observability.LevelVerbose, map[string]any{
			"theta": current.Theta,
			"phi":   current.Phi,
		})
		return
	}

	w.emit(EventEmit, observability.LevelVerbose, map[string]any{
		"channel": w.config.Channel,
		"theta":   d.Emission.Theta,
		"phi":     d.Emission.Phi,
	})
	w.sink.PostMessage(*d.Emission)
}

// Last returns the last-reported orientation.
func (w *Watcher) Last() orbit.State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.last
}

// Stats returns the watcher's counters.
func (w *Watcher) Stats() WatcherStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

// Close stops watching. The viewer keeps its current orbit.
func (w *Watcher) Close() {
	if w == nil {
		return
	}
	w.mu.Lock()
	sub := w.sub
	w.sub = nil
	w.mu.Unlock()

	if sub != nil {
		sub.Cancel()
	}
}

func (w *Watcher) emit(t observability.EventType, level observability.Level, data map[string]any) {
	w.observer.OnEvent(context.Background(), observability.Event{
		Type:      t,
		Level:     level,
		Timestamp: time.Now(),
		Source:    "orbitcam.Watcher",
		Data:      data,
	})
}
