package orbitcam

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/teranos/orbitcam/orbit"
	"github.com/teranos/orbitcam/trip"
)

var namedKeys = map[string]tea.KeyType{
	"up":     tea.KeyUp,
	"down":   tea.KeyDown,
	"left":   tea.KeyLeft,
	"right":  tea.KeyRight,
	"enter":  tea.KeyEnter,
	"esc":    tea.KeyEsc,
	"ctrl+c": tea.KeyCtrlC,
}

// Press sends one key by name: "up", "left", "ctrl+c", or a single
// character such as "+" or "r".
func (r *Rig) Press(key string) *Rig {
	msg := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	if kt, ok := namedKeys[key]; ok {
		msg = tea.KeyMsg{Type: kt}
	}
	r.sendMessage(msg)
	r.recordAction("keypress", key)
	return r
}

// PressUp raises the camera by one step.
func (r *Rig) PressUp() *Rig { return r.Press("up") }

// PressDown lowers the camera by one step.
func (r *Rig) PressDown() *Rig { return r.Press("down") }

func (r *Rig) PressLeft() *Rig  { return r.Press("left") }
func (r *Rig) PressRight() *Rig { return r.Press("right") }

// PressN presses key n times.
func (r *Rig) PressN(key string, n int) *Rig {
	for i := 0; i < n; i++ {
		r.Press(key)
	}
	return r
}

// ZoomIn moves the camera closer.
func (r *Rig) ZoomIn() *Rig { return r.Press("+") }

// ZoomOut moves the camera away.
func (r *Rig) ZoomOut() *Rig { return r.Press("-") }

// Reset puts the camera back where the model started.
func (r *Rig) Reset() *Rig { return r.Press("r") }

// Wait pauses for d.
func (r *Rig) Wait(d time.Duration) *Rig {
	time.Sleep(d)
	r.recordAction("wait", d)
	r.captureSnapshot("wait")
	return r
}

// AssertPhiInBounds checks min <= phi <= max.
func (r *Rig) AssertPhiInBounds(min, max float64) *Rig {
	o := r.currentOrbit()
	if o.Phi < min || o.Phi > max {
		r.recordTrip(newRigTrip(trip.Assertion, fmt.Sprintf("phi %v outside [%v, %v]", o.Phi, min, max), map[string]interface{}{
			"orbit": o.String(),
		}))
		return r
	}
	r.recordAction("assertion", fmt.Sprintf("phi in [%v, %v]", min, max))
	return r
}

// AssertOrbit checks that the shown orbit equals expected.
func (r *Rig) AssertOrbit(expected orbit.Orbit) *Rig {
	actual := r.currentOrbit()
	if math.Abs(actual.Theta-expected.Theta) > angleTolerance ||
		math.Abs(actual.Phi-expected.Phi) > angleTolerance ||
		math.Abs(actual.Radius-expected.Radius) > angleTolerance {
		r.recordTrip(newRigTrip(trip.Assertion, "expected orbit "+expected.String()+", got "+actual.String(), map[string]interface{}{
			"expected": expected.String(),
			"actual":   actual.String(),
		}))
		return r
	}
	r.recordAction("assertion", "orbit="+expected.String())
	return r
}

// AssertMode checks the model's mode.
func (r *Rig) AssertMode(expected string) *Rig {
	actual := r.currentMode()
	if actual != expected {
		r.recordTrip(newRigTrip(trip.Assertion, "expected mode "+expected+", got "+actual, map[string]interface{}{
			"expected": expected,
			"actual":   actual,
		}))
		return r
	}
	r.recordAction("assertion", "mode="+expected)
	return r
}

// AssertViewContains checks the rendered view for text.
func (r *Rig) AssertViewContains(text string) *Rig {
	view := r.currentView()
	if !strings.Contains(view, text) {
		r.recordTrip(newRigTrip(trip.Assertion, "view does not contain expected text: "+text, map[string]interface{}{
			"expected":    text,
			"actual_view": view,
		}))
		return r
	}
	r.recordAction("assertion", "contains="+text)
	return r
}

// Assert checks an arbitrary condition on the shown orbit.
func (r *Rig) Assert(description string, cond func(orbit.Orbit) bool) *Rig {
	o := r.currentOrbit()
	if !cond(o) {
		r.recordTrip(newRigTrip(trip.Assertion, "assertion failed: "+description, map[string]interface{}{
			"orbit": o.String(),
		}))
		return r
	}
	r.recordAction("assertion", description)
	return r
}
