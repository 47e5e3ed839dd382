package orbitcam

import (
	"context"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/teranos/orbitcam/orbit"
	"github.com/teranos/orbitcam/trip"
)

// ViewerModel is a Bubble Tea model that shows a viewer camera.
//
// viewer.Model implements it. Any other model can be driven by a Rig as
// long as it reports the orbit it shows and its current mode:
//
//	func (m MyViewer) CameraOrbit() orbit.Orbit { return m.surface.CameraOrbit() }
//	func (m MyViewer) CurrentMode() string      { return m.mode }
type ViewerModel interface {
	tea.Model
	// CameraOrbit returns the orbit the model is showing.
	CameraOrbit() orbit.Orbit
	// CurrentMode returns the model's mode as a string.
	CurrentMode() string
}

// Closeable models have Close called when the rig stops.
type Closeable interface {
	Close() error
}

// Rig drives a ViewerModel headlessly, the way a person at the keyboard
// would, and waits for the camera to get where it should.
//
// Failures are collected as trips and returned in the RigResult instead of
// failing the test on the spot; only a fall (a panicking model) is reported
// to t directly.
//
//	result := NewRig(t, model).
//		WithTimeout(2 * time.Second).
//		Start().
//		PressUp().
//		PressUp().
//		WaitForPhi(6).
//		AssertMode(viewer.ModeRotating).
//		Stop()
//
//	assert.True(t, result.Success, result.TripReport)
type Rig struct {
	t       testing.TB
	model   ViewerModel
	program *tea.Program
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}

	// guards everything below, the program goroutine writes here too
	mu          sync.Mutex
	latestModel ViewerModel
	updates     int64
	panics      int64
	actions     []RigAction
	snapshots   []RigSnapshot

	tripHandler *trip.Handler
	lastTrip    *trip.Trip
	failed      bool
	renderer    *FrameRenderer

	config  RigConfig
	started bool
}

// rigModel keeps the rig in step with every Update the program makes.
type rigModel struct {
	ViewerModel
	rig *Rig
}

// RigAction is one thing the rig did.
type RigAction struct {
	Timestamp time.Time
	Type      string // "keypress", "wait", "assertion"
	Details   interface{}
}

// RigSnapshot is the model as seen at one moment.
type RigSnapshot struct {
	Timestamp time.Time
	Reason    string
	View      string
	Mode      string
	Orbit     orbit.Orbit
}

// RigResult is what Stop hands back.
type RigResult struct {
	Actions      []RigAction
	Snapshots    []RigSnapshot
	Success      bool
	Duration     time.Duration
	FinalOrbit   orbit.Orbit
	ErrorMessage string
	Error        error
	TripReport   string
}

// RigConfig configures a Rig.
type RigConfig struct {
	// Timeout bounds every wait and the life of the program.
	Timeout time.Duration
	// KeyDelay is slept after each key press (0 = no delay).
	KeyDelay time.Duration
	// CaptureViews records a snapshot after every interaction.
	CaptureViews bool
}

// DefaultRigConfig returns a 5 second timeout, no key delay and view capture on.
func DefaultRigConfig() RigConfig {
	return RigConfig{
		Timeout:      5 * time.Second,
		CaptureViews: true,
	}
}

// NewRig creates a rig with the default configuration. Call Start before
// pressing keys and Stop to collect the result.
func NewRig(t testing.TB, model ViewerModel) *Rig {
	return NewRigWithConfig(t, model, DefaultRigConfig())
}

// NewRigWithConfig creates a rig with a custom configuration.
func NewRigWithConfig(t testing.TB, model ViewerModel, config RigConfig) *Rig {
	if config.Timeout <= 0 {
		config.Timeout = DefaultRigConfig().Timeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), config.Timeout)

	return &Rig{
		t:           t,
		model:       model,
		ctx:         ctx,
		cancel:      cancel,
		done:        make(chan struct{}),
		latestModel: model,
		tripHandler: trip.NewHandler("rig", trip.DefaultPolicy()),
		config:      config,
	}
}

func newRigTrip(tripType, message string, context map[string]interface{}) *trip.Trip {
	tripContext := make(trip.Context, len(context))
	for k, v := range context {
		tripContext[k] = v
	}
	return trip.NewTrip(tripType, message, tripContext)
}
