// Package orbit describes camera orientation around a 3D model.
//
// Orbits are spherical coordinates: theta is the horizontal angle, phi the
// vertical angle and radius the distance from the target, expressed as a
// percentage of the viewer's default distance. The textual form matches the
// model viewer property format:
//
//	o, err := orbit.Parse("10deg 95deg 75%")
//	fmt.Println(o) // 10deg 95deg 75%
package orbit

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrMalformed is wrapped by every Parse failure.
var ErrMalformed = errors.New("malformed orbit")

// State is the orientation part of an orbit, in degrees.
type State struct {
	Theta float64 `json:"theta"`
	Phi   float64 `json:"phi"`
}

// Orbit is a full camera orbit. Radius is a percentage of the default distance.
type Orbit struct {
	Theta  float64
	Phi    float64
	Radius float64
}

// New builds an orbit from its three terms.
func New(theta, phi, radius float64) Orbit {
	return Orbit{Theta: theta, Phi: phi, Radius: radius}
}

// State drops the radius.
func (o Orbit) State() State {
	return State{Theta: o.Theta, Phi: o.Phi}
}

// String formats the orbit as "<theta>deg <phi>deg <radius>%".
func (o Orbit) String() string {
	return fmt.Sprintf("%sdeg %sdeg %s%%", formatNumber(o.Theta), formatNumber(o.Phi), formatNumber(o.Radius))
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Parse reads an orbit in the viewer property format. Angles accept the deg
// and rad units, the radius accepts % only.
func Parse(s string) (Orbit, error) {
	fields := strings.Fields(s)
	if len(fields) != 3 {
		return Orbit{}, fmt.Errorf("%w: want 3 terms, got %d in %q", ErrMalformed, len(fields), s)
	}

	theta, err := parseAngle(fields[0])
	if err != nil {
		return Orbit{}, fmt.Errorf("%w: theta: %v", ErrMalformed, err)
	}
	phi, err := parseAngle(fields[1])
	if err != nil {
		return Orbit{}, fmt.Errorf("%w: phi: %v", ErrMalformed, err)
	}
	radius, err := parseRadius(fields[2])
	if err != nil {
		return Orbit{}, fmt.Errorf("%w: radius: %v", ErrMalformed, err)
	}

	return Orbit{Theta: theta, Phi: phi, Radius: radius}, nil
}

func parseAngle(term string) (float64, error) {
	switch {
	case strings.HasSuffix(term, "deg"):
		return parseFinite(strings.TrimSuffix(term, "deg"))
	case strings.HasSuffix(term, "rad"):
		v, err := parseFinite(strings.TrimSuffix(term, "rad"))
		if err != nil {
			return 0, err
		}
		return v * 180 / math.Pi, nil
	default:
		return 0, fmt.Errorf("unknown unit in %q", term)
	}
}

func parseRadius(term string) (float64, error) {
	if !strings.HasSuffix(term, "%") {
		return 0, fmt.Errorf("unknown unit in %q", term)
	}
	v, err := parseFinite(strings.TrimSuffix(term, "%"))
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, fmt.Errorf("negative radius %q", term)
	}
	return v, nil
}

func parseFinite(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite value %q", s)
	}
	return v, nil
}

// Subscription is the handle returned by a change registration.
// Cancel removes the listener; calling it more than once is harmless.
type Subscription interface {
	Cancel()
}

// Surface is a viewer that exposes a readable and settable camera orbit and
// a change event.
type Surface interface {
	CameraOrbit() Orbit
	SetCameraOrbit(o Orbit)
	OnCameraChange(listener func()) Subscription
}
