// Package viewer is an in-process stand-in for a 3D model viewer element.
//
// A Surface holds one camera orbit and raises a change event whenever the
// orbit moves. Events are delivered by a small event loop: a change raised
// while listeners are running (a listener correcting the orbit, or another
// goroutine moving the camera) is queued and delivered after the current
// dispatch finishes, so every listener runs to completion before it sees
// the next event.
package viewer

import (
	"context"
	"sync"
	"time"

	"github.com/teranos/orbitcam/observability"
	"github.com/teranos/orbitcam/orbit"
	"github.com/teranos/orbitcam/trip"
)

// DefaultSelector is the tag a page registers its viewer under.
const DefaultSelector = "model-viewer"

// EventMalformedOrbit is emitted when SetCameraOrbitString rejects its input.
const EventMalformedOrbit observability.EventType = "viewer.orbit.malformed"

// Surface is a viewer camera. The zero value is not usable; use NewSurface.
type Surface struct {
	mu          sync.Mutex
	orbit       orbit.Orbit
	listeners   []listener
	nextID      uint64
	pending     int
	dispatching bool
	changes     int64

	observer observability.Observer
	trips    *trip.Handler
}

type listener struct {
	id uint64
	fn func()
}

// SurfaceOption configures a Surface.
type SurfaceOption func(*Surface)

// WithSurfaceObserver sends the surface's events to obs.
func WithSurfaceObserver(obs observability.Observer) SurfaceOption {
	return func(s *Surface) { s.observer = obs }
}

// NewSurface creates a surface showing the given orbit.
func NewSurface(initial orbit.Orbit, opts ...SurfaceOption) *Surface {
	s := &Surface{
		orbit:    initial,
		observer: observability.NoOpObserver{},
		trips:    trip.NewHandler("viewer.surface", nil),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CameraOrbit returns the current orbit.
func (s *Surface) CameraOrbit() orbit.Orbit {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orbit
}

// SetCameraOrbit moves the camera. A change event is raised only when the
// orbit actually differs from the current one.
func (s *Surface) SetCameraOrbit(o orbit.Orbit) {
	s.mu.Lock()
	if s.orbit == o {
		s.mu.Unlock()
		return
	}
	s.orbit = o
	s.mu.Unlock()
	s.raise()
}

// SetCameraOrbitString sets the orbit from the property form
// "<theta>deg <phi>deg <radius>%". Unparsable input leaves the camera where
// it is, records a malformed_orbit trip and returns false.
func (s *Surface) SetCameraOrbitString(value string) bool {
	o, err := orbit.Parse(value)
	if err != nil {
		t := trip.NewTrip(trip.MalformedOrbit, err.Error(), trip.Context{"value": value})
		s.trips.Record(t)
		s.observer.OnEvent(context.Background(), observability.Event{
			Type:      EventMalformedOrbit,
			Level:     observability.LevelWarning,
			Timestamp: time.Now(),
			Source:    "viewer.Surface",
			Data:      t.Fields(),
		})
		return false
	}
	s.SetCameraOrbit(o)
	return true
}

// Rotate turns the camera by the given angles. Phi is not limited here.
func (s *Surface) Rotate(dTheta, dPhi float64) {
	s.update(func(o *orbit.Orbit) {
		o.Theta += dTheta
		o.Phi += dPhi
	})
}

// Zoom changes the radius by delta percent, never below zero.
func (s *Surface) Zoom(delta float64) {
	s.update(func(o *orbit.Orbit) {
		o.Radius = max(o.Radius+delta, 0)
	})
}

// update applies fn to the orbit under the lock and raises a change if the
// orbit moved.
func (s *Surface) update(fn func(*orbit.Orbit)) {
	s.mu.Lock()
	next := s.orbit
	fn(&next)
	if next == s.orbit {
		s.mu.Unlock()
		return
	}
	s.orbit = next
	s.mu.Unlock()
	s.raise()
}

// OnCameraChange registers a listener for change events.
func (s *Surface) OnCameraChange(fn func()) orbit.Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.listeners = append(s.listeners, listener{id: s.nextID, fn: fn})
	return &subscription{surface: s, id: s.nextID}
}

// Listeners returns the number of registered listeners.
func (s *Surface) Listeners() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listeners)
}

// Changes returns how many change events have been delivered.
func (s *Surface) Changes() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.changes
}

// Trips exposes the malformed orbit strings seen so far.
func (s *Surface) Trips() *trip.Handler {
	return s.trips
}

func (s *Surface) remove(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, l := range s.listeners {
		if l.id == id {
			s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
			return
		}
	}
}

// raise queues one change event and, unless a dispatch is already running,
// drains the queue on the calling goroutine. A listener that panics ends
// the dispatch and drops whatever was still queued; the next change starts
// a fresh one.
func (s *Surface) raise() {
	s.mu.Lock()
	s.pending++
	if s.dispatching {
		s.mu.Unlock()
		return
	}
	s.dispatching = true

	locked := true
	defer func() {
		if !locked {
			s.mu.Lock()
		}
		s.dispatching = false
		s.pending = 0
		s.mu.Unlock()
	}()

	for s.pending > 0 {
		s.pending--
		s.changes++
		current := make([]listener, len(s.listeners))
		copy(current, s.listeners)
		s.mu.Unlock()
		locked = false

		for _, l := range current {
			l.fn()
		}

		s.mu.Lock()
		locked = true
	}
}

type subscription struct {
	surface *Surface
	once    sync.Once
	id      uint64
}

func (sub *subscription) Cancel() {
	sub.once.Do(func() { sub.surface.remove(sub.id) })
}

// Page is a document holding viewer elements by selector.
type Page struct {
	mu       sync.RWMutex
	elements map[string]*Surface
}

func NewPage() *Page {
	return &Page{elements: make(map[string]*Surface)}
}

// Register places a surface under a selector, replacing any previous one.
func (p *Page) Register(selector string, s *Surface) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.elements[selector] = s
}

// Remove takes the element under selector off the page.
func (p *Page) Remove(selector string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.elements, selector)
}

// QuerySelector finds the element registered under selector.
func (p *Page) QuerySelector(selector string) (orbit.Surface, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.elements[selector]
	if !ok || s == nil {
		return nil, false
	}
	return s, true
}
