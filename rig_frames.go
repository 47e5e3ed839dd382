package orbitcam

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/teranos/orbitcam/rotation"
	"github.com/teranos/orbitcam/trip"
)

// WithFrameRenderer sets the renderer used by CaptureFrame and MatchFrame.
func (r *Rig) WithFrameRenderer(fr *FrameRenderer) *Rig {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.renderer = fr
	return r
}

func (r *Rig) frameRenderer() *FrameRenderer {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.renderer == nil {
		r.renderer = NewFrameRenderer(DefaultFrameConfig())
	}
	return r.renderer
}

// CaptureFrame renders the shown orbit into dir/label.png.
func (r *Rig) CaptureFrame(dir, label string) *Rig {
	o := r.currentOrbit()
	path := filepath.Join(dir, label+".png")

	err := r.frameRenderer().WritePNG(path, rotation.Message{Theta: o.Theta, Phi: o.Phi}, label)
	if err != nil {
		r.recordTrip(newRigTrip(trip.Transport, "frame capture failed: "+err.Error(), map[string]interface{}{
			"path": path,
		}).WithSeverity(trip.Stumble))
		return r
	}
	r.recordAction("frame", path)
	return r
}

// MatchFrame renders the shown orbit and compares it with the golden frame
// stored under name.
func (r *Rig) MatchFrame(baseline *FrameBaseline, name string) *Rig {
	o := r.currentOrbit()
	img := r.frameRenderer().Render(rotation.Message{Theta: o.Theta, Phi: o.Phi}, name)

	if err := baseline.Compare(name, img); err != nil {
		r.recordTrip(frameTrip(name, err))
		return r
	}
	r.recordAction("assertion", "frame="+name)
	return r
}

// frameTrip keeps the trip a comparison already carries, wrapped or not.
func frameTrip(name string, err error) *trip.Trip {
	var t *trip.Trip
	if errors.As(err, &t) {
		return t
	}
	return newRigTrip(trip.Assertion, fmt.Sprintf("frame %s: %v", name, err), nil)
}
