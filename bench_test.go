package orbitcam

import (
	"testing"
	"time"

	"github.com/teranos/orbitcam/orbit"
	"github.com/teranos/orbitcam/rotation"
	"github.com/teranos/orbitcam/viewer"
)

// BenchmarkEvaluate measures the pure decision path.
func BenchmarkEvaluate(b *testing.B) {
	cfg := DefaultWatcherConfig()
	last := orbit.State{}
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		current := orbit.State{Theta: float64(i % 360), Phi: float64(i%200) - 100}
		last = Evaluate(current, last, cfg).Next
	}
}

// BenchmarkCameraChange measures one change event through the surface event
// loop, the watcher and a recording sink, including the clamp's nested event.
func BenchmarkCameraChange(b *testing.B) {
	surface := viewer.NewSurface(orbit.New(0, 0, 100))
	page := viewer.NewPage()
	page.Register(viewer.DefaultSelector, surface)

	sink := rotation.SinkFunc(func(rotation.Message) {})
	w := SetupRotationListener(page, sink)
	defer w.Close()

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		surface.SetCameraOrbit(orbit.New(float64(i%360), float64(i%200)-100, 100))
	}
}

// BenchmarkRigKeyPress measures a key press through the headless program,
// including the wait for Update to land.
func BenchmarkRigKeyPress(b *testing.B) {
	surface := viewer.NewSurface(orbit.New(0, 0, 100))
	rig := NewRigWithConfig(b, viewer.NewModel(surface, 1, nil), RigConfig{
		Timeout:      time.Minute,
		CaptureViews: false,
	})
	rig.Start()
	defer rig.Stop()

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		rig.PressRight()
	}
}
