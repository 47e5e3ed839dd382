package orbitcam

import (
	"fmt"

	"github.com/teranos/orbitcam/rotation"
	"github.com/teranos/orbitcam/viewer"
)

// WatcherConfig holds the constants of the clamp and the threshold.
//
// The defaults reproduce the viewer page exactly; changing ClampRadius
// does not make the clamp keep the user's zoom, it only picks another
// fixed radius.
type WatcherConfig struct {
	// Selector locates the viewer on the document.
	Selector string
	// Channel names the sink in events and envelopes.
	Channel string
	// Threshold is the angular change, in degrees, that must be exceeded
	// on either axis before a message is posted.
	Threshold float64
	// PhiMin and PhiMax bound the viewer's vertical angle; exactly the bound is allowed.
	PhiMin float64
	PhiMax float64
	// ClampRadius is the radius percentage set by every correction.
	ClampRadius float64
}

// DefaultWatcherConfig returns the standard viewer page settings:
//   - selector "model-viewer", channel "RotationChannel"
//   - 5 degree threshold
//   - phi bounded to [-90, 90]
//   - corrections reset the radius to 75%
func DefaultWatcherConfig() WatcherConfig {
	return WatcherConfig{
		Selector:    viewer.DefaultSelector,
		Channel:     rotation.DefaultChannelName,
		Threshold:   5,
		PhiMin:      -90,
		PhiMax:      90,
		ClampRadius: 75,
	}
}

// Validate rejects configurations the watcher cannot apply.
func (c WatcherConfig) Validate() error {
	if c.Selector == "" {
		return fmt.Errorf("watcher config: empty selector")
	}
	if c.Threshold < 0 {
		return fmt.Errorf("watcher config: negative threshold %v", c.Threshold)
	}
	if c.PhiMin > c.PhiMax {
		return fmt.Errorf("watcher config: phi bounds [%v, %v] are inverted", c.PhiMin, c.PhiMax)
	}
	if c.ClampRadius < 0 {
		return fmt.Errorf("watcher config: negative clamp radius %v", c.ClampRadius)
	}
	return nil
}
