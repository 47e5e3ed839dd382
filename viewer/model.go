package viewer

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/teranos/orbitcam/orbit"
	"github.com/teranos/orbitcam/rotation"
)

// Model modes, as reported by CurrentMode.
const (
	ModeIdle     = "idle"
	ModeRotating = "rotating"
	ModeZooming  = "zooming"
	ModeReset    = "reset"
)

// DefaultStep is the rotation per key press, in degrees.
const DefaultStep = 3.0

const zoomStep = 5.0

// MessageLog is what the panel reads to show the channel's latest message.
type MessageLog interface {
	Last() (rotation.Message, bool)
	Len() int
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#cba6f7"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#a6adc8")).Width(9)
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#cdd6f4"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#f38ba8"))
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6c7086"))
	panelStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#89b4fa")).Padding(0, 1)
)

// Model drives a Surface from the keyboard:
//
//	←/h →/l   theta
//	↑/k ↓/j   phi
//	+ -       radius
//	r         back to the initial orbit
//	q         quit
type Model struct {
	surface *Surface
	initial orbit.Orbit
	step    float64
	log     MessageLog
	mode    string
	presses int
	quit    bool
}

// NewModel wraps a surface. log may be nil.
func NewModel(surface *Surface, step float64, log MessageLog) Model {
	if step <= 0 {
		step = DefaultStep
	}
	return Model{
		surface: surface,
		initial: surface.CameraOrbit(),
		step:    step,
		log:     log,
		mode:    ModeIdle,
	}
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	m.presses++
	switch key.String() {
	case "ctrl+c", "q":
		m.quit = true
		return m, tea.Quit
	case "left", "h":
		m.mode = ModeRotating
		m.surface.Rotate(-m.step, 0)
	case "right", "l":
		m.mode = ModeRotating
		m.surface.Rotate(m.step, 0)
	case "up", "k":
		m.mode = ModeRotating
		m.surface.Rotate(0, m.step)
	case "down", "j":
		m.mode = ModeRotating
		m.surface.Rotate(0, -m.step)
	case "+", "=":
		m.mode = ModeZooming
		m.surface.Zoom(-zoomStep)
	case "-", "_":
		m.mode = ModeZooming
		m.surface.Zoom(zoomStep)
	case "r":
		m.mode = ModeReset
		m.surface.SetCameraOrbit(m.initial)
	default:
		m.presses--
	}
	return m, nil
}

func (m Model) View() string {
	if m.quit {
		return ""
	}

	o := m.surface.CameraOrbit()

	var b strings.Builder
	b.WriteString(titleStyle.Render("model-viewer") + "\n\n")
	b.WriteString(row("theta", fmt.Sprintf("%.1f°", o.Theta)))
	phi := valueStyle.Render(fmt.Sprintf("%.1f°", o.Phi))
	if o.Phi > 90 || o.Phi < -90 {
		phi = warnStyle.Render(fmt.Sprintf("%.1f° out of bounds", o.Phi))
	}
	b.WriteString(labelStyle.Render("phi") + phi + "\n")
	b.WriteString(row("radius", fmt.Sprintf("%.0f%%", o.Radius)))
	b.WriteString(row("orbit", o.String()))
	b.WriteString(row("mode", m.mode))

	if m.log != nil {
		if last, ok := m.log.Last(); ok {
			b.WriteString(row("sent", fmt.Sprintf("%d, last θ=%.1f φ=%.1f", m.log.Len(), last.Theta, last.Phi)))
		} else {
			b.WriteString(row("sent", "0"))
		}
	}

	b.WriteString("\n" + helpStyle.Render("←→ theta  ↑↓ phi  +/- zoom  r reset  q quit"))
	return panelStyle.Render(b.String())
}

func row(label, value string) string {
	return labelStyle.Render(label) + valueStyle.Render(value) + "\n"
}

// CameraOrbit reports the wrapped surface's orbit.
func (m Model) CameraOrbit() orbit.Orbit { return m.surface.CameraOrbit() }

// CurrentMode is the last kind of input handled.
func (m Model) CurrentMode() string { return m.mode }

// Presses counts handled key presses.
func (m Model) Presses() int { return m.presses }

// Surface returns the wrapped surface.
func (m Model) Surface() *Surface { return m.surface }
