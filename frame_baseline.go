package orbitcam

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"

	"github.com/teranos/orbitcam/trip"
)

// FrameBaseline compares rendered frames with golden PNGs kept in a
// directory, one file per name.
type FrameBaseline struct {
	dir       string
	tolerance float64 // fraction of pixels allowed to differ
}

// NewFrameBaseline keeps baselines in dir with a 1% tolerance.
func NewFrameBaseline(dir string) *FrameBaseline {
	return &FrameBaseline{dir: dir, tolerance: 0.01}
}

// WithTolerance sets the fraction of pixels that may differ.
func (b *FrameBaseline) WithTolerance(tolerance float64) *FrameBaseline {
	b.tolerance = tolerance
	return b
}

func (b *FrameBaseline) path(name string) string {
	return filepath.Join(b.dir, name+".png")
}

// DiffPath is where Compare leaves the highlighted difference of a failed match.
func (b *FrameBaseline) DiffPath(name string) string {
	return filepath.Join(b.dir, name+"_diff.png")
}

// SetBaseline stores img as the golden frame for name.
func (b *FrameBaseline) SetBaseline(name string, img image.Image) error {
	if err := os.MkdirAll(b.dir, 0o755); err != nil {
		return fmt.Errorf("create baseline dir: %w", err)
	}
	return writePNG(b.path(name), img)
}

// Compare checks img against the golden frame. A difference above the
// tolerance is returned as an assertion trip and a diff image is written.
func (b *FrameBaseline) Compare(name string, img image.Image) error {
	baseline, err := loadPNG(b.path(name))
	if err != nil {
		return fmt.Errorf("load baseline %s: %w", name, err)
	}

	difference := frameDifference(baseline, img)
	if difference <= b.tolerance {
		return nil
	}

	ctx := trip.Context{
		"frame":      name,
		"difference": fmt.Sprintf("%.2f%%", difference*100),
		"tolerance":  fmt.Sprintf("%.2f%%", b.tolerance*100),
	}
	if baseline.Bounds() == img.Bounds() {
		if err := writePNG(b.DiffPath(name), diffImage(baseline, img)); err == nil {
			ctx["diff"] = b.DiffPath(name)
		}
	}
	return trip.NewTrip(trip.Assertion, fmt.Sprintf("frame %s differs from baseline", name), ctx)
}

// frameDifference is the fraction of differing pixels; 1 when sizes differ.
func frameDifference(a, b image.Image) float64 {
	if a.Bounds() != b.Bounds() {
		return 1
	}
	bounds := a.Bounds()
	total := bounds.Dx() * bounds.Dy()
	if total == 0 {
		return 0
	}

	different := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if !sameColor(a.At(x, y), b.At(x, y)) {
				different++
			}
		}
	}
	return float64(different) / float64(total)
}

func sameColor(c1, c2 color.Color) bool {
	r1, g1, b1, a1 := c1.RGBA()
	r2, g2, b2, a2 := c2.RGBA()
	return r1 == r2 && g1 == g2 && b1 == b2 && a1 == a2
}

// diffImage marks differing pixels red over a dimmed baseline.
func diffImage(baseline, current image.Image) *image.RGBA {
	bounds := baseline.Bounds()
	diff := image.NewRGBA(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			base := baseline.At(x, y)
			if !sameColor(base, current.At(x, y)) {
				diff.SetRGBA(x, y, color.RGBA{255, 0, 0, 255})
				continue
			}
			r, g, b, a := base.RGBA()
			diff.SetRGBA(x, y, color.RGBA{uint8(r >> 9), uint8(g >> 9), uint8(b >> 9), uint8(a >> 8)})
		}
	}
	return diff
}

func loadPNG(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return png.Decode(f)
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
