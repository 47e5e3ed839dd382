package orbitcam

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/teranos/orbitcam/observability"
	"github.com/teranos/orbitcam/rotation"
	"github.com/teranos/orbitcam/trip"
)

// EventFrame is emitted for every frame written by a FrameSink.
const EventFrame observability.EventType = "frame.written"

// FrameConfig sets the look of rendered frames.
type FrameConfig struct {
	Width      int        // Frame width in pixels
	Height     int        // Frame height in pixels
	Background color.RGBA // Fill
	Foreground color.RGBA // Text and gauge outlines
	Accent     color.RGBA // Needle and phi marker inside bounds
	Warn       color.RGBA // Phi marker outside bounds
	PhiMin     float64
	PhiMax     float64
}

// DefaultFrameConfig renders 320x160 frames on a dark background.
func DefaultFrameConfig() FrameConfig {
	return FrameConfig{
		Width:      320,
		Height:     160,
		Background: color.RGBA{30, 30, 46, 255},
		Foreground: color.RGBA{205, 214, 244, 255},
		Accent:     color.RGBA{137, 180, 250, 255},
		Warn:       color.RGBA{243, 139, 168, 255},
		PhiMin:     -90,
		PhiMax:     90,
	}
}

// FrameRenderer draws an orbit gauge: a dial whose needle points along
// theta, a vertical scale with a marker at phi, and a caption.
type FrameRenderer struct {
	config FrameConfig
	face   font.Face
}

func NewFrameRenderer(config FrameConfig) *FrameRenderer {
	if config.Width <= 0 || config.Height <= 0 {
		d := DefaultFrameConfig()
		config.Width, config.Height = d.Width, d.Height
	}
	if config.PhiMin >= config.PhiMax {
		config.PhiMin, config.PhiMax = -90, 90
	}
	return &FrameRenderer{config: config, face: basicfont.Face7x13}
}

// Geometry shared by Render and the tests.
func (fr *FrameRenderer) dialCenter() image.Point {
	return image.Pt(fr.config.Height/2, fr.config.Height/2)
}

func (fr *FrameRenderer) dialRadius() int {
	return fr.config.Height/2 - 12
}

func (fr *FrameRenderer) scaleX() int {
	return fr.config.Width - 24
}

// phiY maps phi onto the scale; values past the bounds sit on its ends.
func (fr *FrameRenderer) phiY(phi float64) int {
	top, bottom := 12, fr.config.Height-12
	if phi > fr.config.PhiMax {
		phi = fr.config.PhiMax
	}
	if phi < fr.config.PhiMin {
		phi = fr.config.PhiMin
	}
	frac := (fr.config.PhiMax - phi) / (fr.config.PhiMax - fr.config.PhiMin)
	return top + int(math.Round(frac*float64(bottom-top)))
}

// Render draws msg with caption underneath the readings.
func (fr *FrameRenderer) Render(msg rotation.Message, caption string) *image.RGBA {
	cfg := fr.config
	img := image.NewRGBA(image.Rect(0, 0, cfg.Width, cfg.Height))
	draw.Draw(img, img.Bounds(), image.NewUniform(cfg.Background), image.Point{}, draw.Src)

	// theta dial
	c, radius := fr.dialCenter(), fr.dialRadius()
	for deg := 0; deg < 360; deg++ {
		rad := float64(deg) * math.Pi / 180
		img.SetRGBA(c.X+int(math.Round(float64(radius)*math.Cos(rad))), c.Y+int(math.Round(float64(radius)*math.Sin(rad))), cfg.Foreground)
	}
	needle := msg.Theta * math.Pi / 180
	end := image.Pt(
		c.X+int(math.Round(float64(radius-4)*math.Sin(needle))),
		c.Y-int(math.Round(float64(radius-4)*math.Cos(needle))),
	)
	line(img, c, end, cfg.Accent)

	// phi scale
	x := fr.scaleX()
	line(img, image.Pt(x, fr.phiY(cfg.PhiMax)), image.Pt(x, fr.phiY(cfg.PhiMin)), cfg.Foreground)
	line(img, image.Pt(x-3, fr.phiY(0)), image.Pt(x+3, fr.phiY(0)), cfg.Foreground)

	marker := cfg.Accent
	if msg.Phi > cfg.PhiMax || msg.Phi < cfg.PhiMin {
		marker = cfg.Warn
	}
	my := fr.phiY(msg.Phi)
	draw.Draw(img, image.Rect(x-6, my-2, x+7, my+3), image.NewUniform(marker), image.Point{}, draw.Src)

	// readings
	textX := cfg.Height + 4
	fr.text(img, textX, 28, fmt.Sprintf("theta %.1f", msg.Theta))
	fr.text(img, textX, 48, fmt.Sprintf("phi   %.1f", msg.Phi))
	if caption != "" {
		fr.text(img, textX, cfg.Height-16, caption)
	}
	return img
}

func (fr *FrameRenderer) text(img *image.RGBA, x, y int, s string) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(fr.config.Foreground),
		Face: fr.face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

// line steps from a to b one pixel at a time.
func line(img *image.RGBA, a, b image.Point, col color.RGBA) {
	dx, dy := b.X-a.X, b.Y-a.Y
	steps := max(abs(dx), abs(dy))
	if steps == 0 {
		img.SetRGBA(a.X, a.Y, col)
		return
	}
	for i := 0; i <= steps; i++ {
		x := a.X + int(math.Round(float64(dx*i)/float64(steps)))
		y := a.Y + int(math.Round(float64(dy*i)/float64(steps)))
		img.SetRGBA(x, y, col)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// WritePNG renders msg and saves it to path.
func (fr *FrameRenderer) WritePNG(path string, msg rotation.Message, caption string) error {
	return writePNG(path, fr.Render(msg, caption))
}

// FrameSink writes one PNG per posted message into a directory, named
// frame-00001.png, frame-00002.png and so on. A frame that cannot be written
// is recorded as a transport stumble; posting never fails.
type FrameSink struct {
	dir      string
	channel  string
	renderer *FrameRenderer
	observer observability.Observer
	trips    *trip.Handler

	mu     sync.Mutex
	frames int
}

// NewFrameSink prepares dir and returns a sink writing into it.
func NewFrameSink(dir string, renderer *FrameRenderer, observer observability.Observer) (*FrameSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("frames dir %s: %w", dir, err)
	}
	if renderer == nil {
		renderer = NewFrameRenderer(DefaultFrameConfig())
	}
	if observer == nil {
		observer = observability.NoOpObserver{}
	}
	return &FrameSink{
		dir:      dir,
		channel:  rotation.DefaultChannelName,
		renderer: renderer,
		observer: observer,
		trips:    trip.NewHandler("frames", nil),
	}, nil
}

// PostMessage renders and writes the next frame.
func (s *FrameSink) PostMessage(msg rotation.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.frames + 1
	path := filepath.Join(s.dir, fmt.Sprintf("frame-%05d.png", n))
	caption := fmt.Sprintf("%s #%d", s.channel, n)

	if err := s.renderer.WritePNG(path, msg, caption); err != nil {
		s.trips.Record(trip.NewStumble(trip.Transport, err.Error(), trip.Context{"path": path}))
		return
	}
	s.frames = n

	s.observer.OnEvent(context.Background(), observability.Event{
		Type:      EventFrame,
		Level:     observability.LevelVerbose,
		Timestamp: time.Now(),
		Source:    "orbitcam.FrameSink",
		Data:      map[string]any{"path": path, "theta": msg.Theta, "phi": msg.Phi},
	})
}

// Frames returns how many frames have been written.
func (s *FrameSink) Frames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

// Trips exposes failed writes.
func (s *FrameSink) Trips() *trip.Handler { return s.trips }
