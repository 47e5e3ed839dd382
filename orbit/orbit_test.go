package orbit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Orbit
	}{
		{name: "integers", in: "10deg 90deg 75%", want: New(10, 90, 75)},
		{name: "negative phi", in: "-45deg -90deg 100%", want: New(-45, -90, 100)},
		{name: "decimals", in: "12.5deg 3.25deg 80.5%", want: New(12.5, 3.25, 80.5)},
		{name: "extra whitespace", in: "  0deg\t0deg   105%  ", want: New(0, 0, 105)},
		{name: "unbounded theta", in: "725deg 10deg 50%", want: New(725, 10, 50)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_Radians(t *testing.T) {
	got, err := Parse("3.141592653589793rad 0rad 75%")
	require.NoError(t, err)
	assert.InDelta(t, 180, got.Theta, 1e-9)
	assert.Equal(t, 0.0, got.Phi)
}

func TestParse_Malformed(t *testing.T) {
	inputs := []string{
		"",
		"10deg 90deg",
		"10deg 90deg 75% 1",
		"10 90deg 75%",
		"10deg 90 75%",
		"10deg 90deg 75",
		"10deg 90deg 2m",
		"abcdeg 90deg 75%",
		"NaNdeg 90deg 75%",
		"10deg +Infdeg 75%",
		"10deg 90deg -5%",
	}

	for _, in := range inputs {
		_, err := Parse(in)
		assert.ErrorIs(t, err, ErrMalformed, "input %q", in)
	}
}

func TestOrbit_String(t *testing.T) {
	assert.Equal(t, "10deg 90deg 75%", New(10, 90, 75).String())
	assert.Equal(t, "-12.5deg -90deg 100%", New(-12.5, -90, 100).String())
}

func TestOrbit_StringParses(t *testing.T) {
	o := New(33.3, -71.25, 62.5)
	back, err := Parse(o.String())
	require.NoError(t, err)
	assert.Equal(t, o, back)
}

func TestOrbit_State(t *testing.T) {
	assert.Equal(t, State{Theta: 1, Phi: 2}, New(1, 2, 3).State())
}
