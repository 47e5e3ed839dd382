package orbitcam

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/orbitcam/observability"
	"github.com/teranos/orbitcam/orbit"
	"github.com/teranos/orbitcam/rotation"
	"github.com/teranos/orbitcam/trip"
	"github.com/teranos/orbitcam/viewer"
)

func TestFrameRenderer_Geometry(t *testing.T) {
	cfg := DefaultFrameConfig()
	fr := NewFrameRenderer(cfg)

	img := fr.Render(rotation.Message{Theta: 0, Phi: 0}, "RotationChannel #1")

	assert.Equal(t, cfg.Width, img.Bounds().Dx())
	assert.Equal(t, cfg.Height, img.Bounds().Dy())
	assert.Equal(t, cfg.Background, img.RGBAAt(0, 0))

	// needle straight up for theta 0
	c := fr.dialCenter()
	assert.Equal(t, cfg.Accent, img.RGBAAt(c.X, c.Y-fr.dialRadius()/2))

	// marker in the middle of the scale for phi 0
	assert.Equal(t, cfg.Accent, img.RGBAAt(fr.scaleX()-5, fr.phiY(0)))
}

func TestFrameRenderer_ThetaTurnsNeedle(t *testing.T) {
	cfg := DefaultFrameConfig()
	fr := NewFrameRenderer(cfg)

	img := fr.Render(rotation.Message{Theta: 90, Phi: 0}, "")

	c := fr.dialCenter()
	assert.Equal(t, cfg.Accent, img.RGBAAt(c.X+fr.dialRadius()/2, c.Y))
	assert.Equal(t, cfg.Background, img.RGBAAt(c.X, c.Y-fr.dialRadius()/2))
}

func TestFrameRenderer_OutOfBoundsPhiWarns(t *testing.T) {
	cfg := DefaultFrameConfig()
	fr := NewFrameRenderer(cfg)

	up := fr.Render(rotation.Message{Theta: 10, Phi: 95}, "")
	assert.Equal(t, cfg.Warn, up.RGBAAt(fr.scaleX()-5, fr.phiY(90)))

	down := fr.Render(rotation.Message{Theta: 10, Phi: -90}, "")
	assert.Equal(t, cfg.Accent, down.RGBAAt(fr.scaleX()-5, fr.phiY(-90)))
}

func TestFrameRenderer_PhiScale(t *testing.T) {
	fr := NewFrameRenderer(DefaultFrameConfig())

	assert.Equal(t, 12, fr.phiY(90))
	assert.Equal(t, 80, fr.phiY(0))
	assert.Equal(t, 148, fr.phiY(-90))
	assert.Equal(t, fr.phiY(90), fr.phiY(400))
	assert.Equal(t, fr.phiY(-90), fr.phiY(-400))
}

func TestFrameRenderer_FallsBackToDefaultSize(t *testing.T) {
	fr := NewFrameRenderer(FrameConfig{})
	img := fr.Render(rotation.Message{}, "")
	assert.Equal(t, 320, img.Bounds().Dx())
	assert.Equal(t, 160, img.Bounds().Dy())
}

func TestFrameSink_WritesOneFramePerMessage(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "frames")
	rec := &observability.Recorder{}

	sink, err := NewFrameSink(dir, nil, rec)
	require.NoError(t, err)

	sink.PostMessage(rotation.Message{Theta: 10, Phi: 95})
	sink.PostMessage(rotation.Message{Theta: 30, Phi: 0})

	assert.Equal(t, 2, sink.Frames())
	assert.Equal(t, 2, rec.Count(EventFrame))

	for _, name := range []string{"frame-00001.png", "frame-00002.png"} {
		f, err := os.Open(filepath.Join(dir, name))
		require.NoError(t, err)
		img, err := png.Decode(f)
		f.Close()
		require.NoError(t, err)
		assert.Equal(t, 320, img.Bounds().Dx())
	}
}

func TestFrameSink_WriteFailureIsAStumble(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "frames")
	sink, err := NewFrameSink(dir, nil, nil)
	require.NoError(t, err)
	require.NoError(t, os.RemoveAll(dir))

	assert.NotPanics(t, func() { sink.PostMessage(rotation.Message{Theta: 6}) })

	assert.Zero(t, sink.Frames())
	require.Len(t, sink.Trips().GetStumbles(), 1)
	assert.Equal(t, trip.Transport, sink.Trips().GetStumbles()[0].Type)
}

func TestNewFrameSink_BadDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	_, err := NewFrameSink(filepath.Join(file, "frames"), nil, nil)
	assert.Error(t, err)
}

func TestFrameSink_BehindWatcher(t *testing.T) {
	dir := t.TempDir()
	frames, err := NewFrameSink(dir, nil, nil)
	require.NoError(t, err)

	surface := viewer.NewSurface(orbit.New(0, 0, 100))
	page := viewer.NewPage()
	page.Register(viewer.DefaultSelector, surface)

	recorder := &rotation.Recorder{}
	w := SetupRotationListener(page, rotation.Fanout{recorder, frames})
	require.NotNil(t, w)
	t.Cleanup(w.Close)

	surface.SetCameraOrbit(orbit.New(10, 95, 100))

	assert.Equal(t, 1, recorder.Len())
	assert.Equal(t, 1, frames.Frames())
	_, err = os.Stat(filepath.Join(dir, "frame-00001.png"))
	assert.NoError(t, err)
}
