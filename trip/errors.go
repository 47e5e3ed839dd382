// Package trip classifies the failures of orbit watching and of the rigs that
// drive a viewer.
//
// Nothing in the watcher path returns an error to its caller: a missing
// surface, an unparsable orbit string or a dead transport client "trips" the
// component, which records the trip and carries on. A trip's severity says
// whether the component can keep going.
package trip

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Trip types used across orbitcam.
const (
	SurfaceAbsent  = "surface_absent"
	MalformedOrbit = "malformed_orbit"
	Transport      = "transport"
	Timeout        = "timeout"
	Assertion      = "assertion"
	Startup        = "startup"
	InvalidConfig  = "invalid_config"
)

// Trip is one recorded failure with the context needed to debug it.
//
//	t := trip.NewStumble(trip.SurfaceAbsent, "no viewer matches selector",
//	    trip.Context{"selector": "model-viewer"})
type Trip struct {
	Type      string
	Message   string
	Context   Context
	Timestamp time.Time
	Severity  Severity
}

// Context holds debugging values keyed by name.
type Context map[string]interface{}

// Severity says how far a trip reaches.
type Severity int

const (
	// Stumble is absorbed: the feature degrades and work continues.
	Stumble Severity = iota

	// Error invalidates the current operation but not the component.
	Error

	// Fall stops the component.
	Fall
)

func (s Severity) String() string {
	switch s {
	case Stumble:
		return "stumble"
	case Error:
		return "error"
	case Fall:
		return "fall"
	default:
		return "unknown"
	}
}

func newTrip(severity Severity, tripType, message string, context Context) *Trip {
	return &Trip{
		Type:      tripType,
		Message:   message,
		Context:   context,
		Timestamp: time.Now(),
		Severity:  severity,
	}
}

// NewTrip creates an Error-severity trip.
func NewTrip(tripType, message string, context Context) *Trip {
	return newTrip(Error, tripType, message, context)
}

// NewStumble creates a Stumble-severity trip.
func NewStumble(tripType, message string, context Context) *Trip {
	return newTrip(Stumble, tripType, message, context)
}

// NewFall creates a Fall-severity trip.
func NewFall(tripType, message string, context Context) *Trip {
	return newTrip(Fall, tripType, message, context)
}

// WithSeverity overrides the severity.
func (t *Trip) WithSeverity(severity Severity) *Trip {
	t.Severity = severity
	return t
}

func (t *Trip) Error() string {
	return fmt.Sprintf("[%s:%s] %s", t.Type, t.Severity, t.Message)
}

// CanRecover reports whether work continues past this trip.
func (t *Trip) CanRecover() bool {
	return t.Severity == Stumble
}

// IsFall reports whether the component must stop.
func (t *Trip) IsFall() bool {
	return t.Severity == Fall
}

// GetContext returns one context value.
func (t *Trip) GetContext(key string) (interface{}, bool) {
	if t.Context == nil {
		return nil, false
	}
	val, ok := t.Context[key]
	return val, ok
}

// Fields flattens the trip into log attributes.
func (t *Trip) Fields() map[string]any {
	fields := make(map[string]any, len(t.Context)+3)
	for k, v := range t.Context {
		fields[k] = v
	}
	fields["trip_type"] = t.Type
	fields["severity"] = t.Severity.String()
	fields["message"] = t.Message
	return fields
}

// DetailedString renders the trip with its context, keys sorted.
func (t *Trip) DetailedString() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s:%s] %s", t.Type, t.Severity, t.Message)
	fmt.Fprintf(&b, "\n  Time: %s", t.Timestamp.Format("15:04:05.000"))

	if len(t.Context) > 0 {
		keys := make([]string, 0, len(t.Context))
		for k := range t.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		b.WriteString("\n  Context:")
		for _, k := range keys {
			fmt.Fprintf(&b, "\n    %s: %v", k, t.Context[k])
		}
	}
	return b.String()
}

// Policy decides when a component stops.
type Policy struct {
	// StopOnFall stops the component at the first Fall.
	StopOnFall bool

	// MaxStumbles stops the component once more stumbles than this have
	// accumulated. Zero means no limit.
	MaxStumbles int
}

// DefaultPolicy stops on falls and never on stumbles.
func DefaultPolicy() *Policy {
	return &Policy{StopOnFall: true}
}

// Handler collects the trips of one component. Safe for concurrent use.
type Handler struct {
	component string
	policy    *Policy

	mu       sync.Mutex
	trips    []*Trip
	stumbles []*Trip
}

// NewHandler creates a handler; a nil policy means DefaultPolicy.
func NewHandler(component string, policy *Policy) *Handler {
	if policy == nil {
		policy = DefaultPolicy()
	}
	return &Handler{component: component, policy: policy}
}

// Component returns the name the handler was created with.
func (h *Handler) Component() string {
	return h.component
}

// Record stores a trip.
func (h *Handler) Record(t *Trip) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if t.Severity == Stumble {
		h.stumbles = append(h.stumbles, t)
	} else {
		h.trips = append(h.trips, t)
	}
}

// ShouldContinue applies the policy to what has been recorded so far.
func (h *Handler) ShouldContinue() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.policy.StopOnFall {
		for _, t := range h.trips {
			if t.IsFall() {
				return false
			}
		}
	}
	if h.policy.MaxStumbles > 0 && len(h.stumbles) > h.policy.MaxStumbles {
		return false
	}
	return true
}

// HasTrips reports whether any non-stumble was recorded.
func (h *Handler) HasTrips() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.trips) > 0
}

// GetTrips returns a copy of the non-stumble trips in record order.
func (h *Handler) GetTrips() []*Trip {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]*Trip(nil), h.trips...)
}

// GetStumbles returns a copy of the stumbles in record order.
func (h *Handler) GetStumbles() []*Trip {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]*Trip(nil), h.stumbles...)
}

// Last returns the most recent non-stumble trip, or nil.
func (h *Handler) Last() *Trip {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.trips) == 0 {
		return nil
	}
	return h.trips[len(h.trips)-1]
}

// Summary is a one-line count.
func (h *Handler) Summary() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.trips) == 0 && len(h.stumbles) == 0 {
		return fmt.Sprintf("[%s] no trips", h.component)
	}
	return fmt.Sprintf("[%s] %d trips, %d stumbles", h.component, len(h.trips), len(h.stumbles))
}

// DetailedReport lists every trip and stumble.
func (h *Handler) DetailedReport() string {
	trips := h.GetTrips()
	stumbles := h.GetStumbles()

	var b strings.Builder
	fmt.Fprintf(&b, "=== %s ===\n", h.component)
	b.WriteString(h.Summary() + "\n")

	if len(trips) > 0 {
		b.WriteString("\nTrips:\n")
		for i, t := range trips {
			fmt.Fprintf(&b, "%d. %s\n", i+1, t.DetailedString())
		}
	}
	if len(stumbles) > 0 {
		b.WriteString("\nStumbles:\n")
		for i, t := range stumbles {
			fmt.Fprintf(&b, "%d. %s\n", i+1, t.DetailedString())
		}
	}
	return b.String()
}
