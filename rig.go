package orbitcam

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/teranos/orbitcam/orbit"
	"github.com/teranos/orbitcam/trip"
)

// angleTolerance absorbs float drift from repeated key steps.
const angleTolerance = 1e-9

// pollInterval is how often waits look at the model.
const pollInterval = 5 * time.Millisecond

// WithTimeout sets the timeout. It must be called before Start; the program
// context is created from it.
func (r *Rig) WithTimeout(timeout time.Duration) *Rig {
	if r.started {
		r.t.Logf("cannot change timeout after the rig has started, ignoring WithTimeout(%v)", timeout)
		return r
	}
	if r.cancel != nil {
		r.cancel()
	}
	r.ctx, r.cancel = context.WithTimeout(context.Background(), timeout)
	r.config.Timeout = timeout
	return r
}

// WithViewCapture turns snapshots on or off. Call before Start.
func (r *Rig) WithViewCapture(enabled bool) *Rig {
	if r.started {
		r.t.Logf("cannot change view capture after the rig has started, ignoring WithViewCapture(%v)", enabled)
		return r
	}
	r.config.CaptureViews = enabled
	return r
}

// Start runs the model in a headless program.
func (r *Rig) Start() *Rig {
	if r.started {
		r.t.Logf("rig already started")
		return r
	}

	r.program = tea.NewProgram(rigModel{ViewerModel: r.model, rig: r},
		tea.WithContext(r.ctx),
		tea.WithoutRenderer(),
		tea.WithInput(nil),
		tea.WithOutput(io.Discard),
		tea.WithoutSignalHandler(),
	)

	go func() {
		defer close(r.done)
		if _, err := r.program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			r.recordTrip(newRigTrip(trip.Startup, err.Error(), map[string]interface{}{
				"model_type": fmt.Sprintf("%T", r.model),
			}).WithSeverity(trip.Fall))
		}
	}()

	r.started = true
	r.captureSnapshot("start")
	return r
}

// Stop ends the program and returns everything the rig saw.
func (r *Rig) Stop() *RigResult {
	start := time.Now()

	if r.started {
		r.captureSnapshot("stop")
		r.program.Quit()
		select {
		case <-r.done:
		case <-time.After(time.Second):
			r.program.Kill()
			<-r.done
		}
	}
	if r.cancel != nil {
		r.cancel()
	}

	if c, ok := r.model.(Closeable); ok {
		if err := c.Close(); err != nil {
			r.recordTrip(newRigTrip(trip.Assertion, "model close failed: "+err.Error(), nil).WithSeverity(trip.Stumble))
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	result := &RigResult{
		Actions:    append([]RigAction(nil), r.actions...),
		Snapshots:  append([]RigSnapshot(nil), r.snapshots...),
		Success:    !r.failed && r.lastTrip == nil,
		Duration:   time.Since(start),
		FinalOrbit: r.latestModel.CameraOrbit(),
	}
	if r.lastTrip != nil {
		result.ErrorMessage = fmt.Sprintf("[%s] %s", strings.ToLower(r.lastTrip.Type), r.lastTrip.Message)
		result.Error = r.lastTrip
		result.TripReport = r.tripHandler.DetailedReport()
	}
	return result
}

// WaitForOrbit waits until cond holds for the shown orbit.
func (r *Rig) WaitForOrbit(description string, cond func(orbit.Orbit) bool) *Rig {
	if r.HasFailed() {
		return r
	}

	ok := r.poll(func() bool { return cond(r.currentOrbit()) })
	if !ok {
		r.recordTrip(newRigTrip(trip.Timeout, "timeout waiting for "+description, map[string]interface{}{
			"expected":      description,
			"current_orbit": r.currentOrbit().String(),
		}))
		return r
	}
	r.recordAction("wait", description)
	return r
}

// WaitForPhi waits for the vertical angle to reach phi.
func (r *Rig) WaitForPhi(phi float64) *Rig {
	return r.WaitForOrbit(fmt.Sprintf("phi=%v", phi), func(o orbit.Orbit) bool {
		return math.Abs(o.Phi-phi) <= angleTolerance
	})
}

// WaitForTheta waits for the horizontal angle to reach theta.
func (r *Rig) WaitForTheta(theta float64) *Rig {
	return r.WaitForOrbit(fmt.Sprintf("theta=%v", theta), func(o orbit.Orbit) bool {
		return math.Abs(o.Theta-theta) <= angleTolerance
	})
}

// WaitForMode waits for the model to report mode.
func (r *Rig) WaitForMode(mode string) *Rig {
	if r.HasFailed() {
		return r
	}
	if !r.poll(func() bool { return r.currentMode() == mode }) {
		r.recordTrip(newRigTrip(trip.Timeout, fmt.Sprintf("timeout waiting for mode '%s'", mode), map[string]interface{}{
			"expected_mode": mode,
			"current_mode":  r.currentMode(),
		}))
		return r
	}
	r.recordAction("wait", "mode="+mode)
	return r
}

// WaitForText waits for text to appear in the rendered view.
func (r *Rig) WaitForText(text string) *Rig {
	if r.HasFailed() {
		return r
	}
	if !r.poll(func() bool { return strings.Contains(r.currentView(), text) }) {
		r.recordTrip(newRigTrip(trip.Timeout, fmt.Sprintf("timeout waiting for text '%s'", text), map[string]interface{}{
			"expected_text": text,
			"current_view":  truncate(r.currentView(), 200),
		}))
		return r
	}
	r.recordAction("wait", "text="+text)
	return r
}

// poll checks cond until it holds, the timeout passes or the rig context ends.
func (r *Rig) poll(cond func() bool) bool {
	timeout := time.NewTimer(r.config.Timeout)
	defer timeout.Stop()

	for {
		if cond() {
			return true
		}
		select {
		case <-timeout.C:
			return false
		case <-r.ctx.Done():
			return cond()
		case <-time.After(pollInterval):
		}
	}
}

// sendMessage hands msg to the program and waits until Update has run.
func (r *Rig) sendMessage(msg tea.Msg) {
	if r.program == nil || r.programDone() {
		return
	}

	before := r.updateCount()
	r.program.Send(msg)

	wait := r.config.Timeout
	if wait > time.Second {
		wait = time.Second
	}
	deadline := time.Now().Add(wait)
	for r.updateCount() == before && !r.programDone() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	if r.config.KeyDelay > 0 {
		time.Sleep(r.config.KeyDelay)
	}
	r.captureSnapshot("interaction")
}

func (r *Rig) programDone() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

func (r *Rig) updateCount() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.updates
}

func (r *Rig) current() ViewerModel {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.latestModel
}

func (r *Rig) currentOrbit() orbit.Orbit { return r.current().CameraOrbit() }
func (r *Rig) currentMode() string       { return r.current().CurrentMode() }
func (r *Rig) currentView() string       { return r.current().View() }

// Snapshots returns the snapshots captured so far.
func (r *Rig) Snapshots() []RigSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]RigSnapshot(nil), r.snapshots...)
}

// LatestSnapshot returns the most recent snapshot, or the zero value.
func (r *Rig) LatestSnapshot() RigSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.snapshots) == 0 {
		return RigSnapshot{}
	}
	return r.snapshots[len(r.snapshots)-1]
}

// ActionCount returns how many actions have been recorded.
func (r *Rig) ActionCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.actions)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
