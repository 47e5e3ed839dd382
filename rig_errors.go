package orbitcam

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/teranos/orbitcam/trip"
)

// Update forwards to the wrapped model and publishes the result to the rig.
func (w rigModel) Update(msg tea.Msg) (model tea.Model, cmd tea.Cmd) {
	defer func() {
		if rec := recover(); rec != nil {
			w.rig.handleModelPanic(rec, msg)
			model, cmd = w, nil
		}
	}()

	next, cmd := w.ViewerModel.Update(msg)
	vm, ok := next.(ViewerModel)
	if !ok {
		w.rig.handleInvalidModelState(fmt.Sprintf("Update returned %T", next), msg)
		w.rig.markUpdated(w.ViewerModel)
		return w, cmd
	}

	w.rig.markUpdated(vm)
	return rigModel{ViewerModel: vm, rig: w.rig}, cmd
}

func (r *Rig) markUpdated(m ViewerModel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.latestModel = m
	r.updates++
}

// handleModelPanic stops the rig: a model that panics cannot be trusted
// with further input.
func (r *Rig) handleModelPanic(value interface{}, msg tea.Msg) {
	r.mu.Lock()
	r.panics++
	r.updates++
	r.mu.Unlock()

	r.captureErrorSnapshot("model_panic", fmt.Sprintf("panic: %v", value))
	r.recordTrip(newRigTrip(trip.Assertion, fmt.Sprintf("model panic during Update: %v", value), map[string]interface{}{
		"panic_value": value,
		"tea_msg":     fmt.Sprintf("%T: %+v", msg, msg),
		"model_type":  fmt.Sprintf("%T", r.model),
	}).WithSeverity(trip.Fall))

	if r.cancel != nil {
		r.cancel()
	}
}

func (r *Rig) handleInvalidModelState(reason string, msg tea.Msg) {
	r.captureErrorSnapshot("invalid_model_state", reason)
	r.recordTrip(newRigTrip(trip.Assertion, reason, map[string]interface{}{
		"tea_msg":    fmt.Sprintf("%T: %+v", msg, msg),
		"model_type": fmt.Sprintf("%T", r.model),
	}).WithSeverity(trip.Fall))

	if r.cancel != nil {
		r.cancel()
	}
}

// recordTrip stores the trip; anything worse than a stumble fails the run.
func (r *Rig) recordTrip(t *trip.Trip) {
	r.tripHandler.Record(t)

	r.mu.Lock()
	r.lastTrip = t
	if !t.CanRecover() {
		r.failed = true
	}
	r.mu.Unlock()

	if r.t != nil {
		r.t.Helper()
		if t.IsFall() {
			r.t.Error(t)
		} else {
			r.t.Log(t.DetailedString())
		}
	}
}

func (r *Rig) recordAction(actionType string, details interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = append(r.actions, RigAction{
		Timestamp: time.Now(),
		Type:      actionType,
		Details:   details,
	})
}

func (r *Rig) captureSnapshot(reason string) {
	if !r.config.CaptureViews {
		return
	}
	m := r.current()
	snap := RigSnapshot{
		Timestamp: time.Now(),
		Reason:    reason,
		View:      m.View(),
		Mode:      m.CurrentMode(),
		Orbit:     m.CameraOrbit(),
	}

	r.mu.Lock()
	r.snapshots = append(r.snapshots, snap)
	r.mu.Unlock()
}

func (r *Rig) captureErrorSnapshot(kind, message string) {
	var view string
	func() {
		defer func() {
			if rec := recover(); rec != nil {
				view = fmt.Sprintf("view unavailable: %v", rec)
			}
		}()
		view = r.current().View()
	}()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = append(r.snapshots, RigSnapshot{
		Timestamp: time.Now(),
		Reason:    "error",
		View:      fmt.Sprintf("ERROR STATE (%s)\n%s\n\nLast View:\n%s", kind, message, view),
		Mode:      "error_" + kind,
	})
}

// HasFailed reports whether a non-recoverable trip was recorded.
func (r *Rig) HasFailed() bool {
	r.mu.Lock()
	failed := r.failed
	r.mu.Unlock()
	return failed || !r.tripHandler.ShouldContinue()
}

// Trips returns the rig's trip handler.
func (r *Rig) Trips() *trip.Handler {
	return r.tripHandler
}

// Stats returns update and panic counters.
func (r *Rig) Stats() map[string]int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return map[string]int64{
		"updates": r.updates,
		"panics":  r.panics,
		"actions": int64(len(r.actions)),
	}
}
