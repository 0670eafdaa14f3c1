// Package session implements the recording/transcription state machine:
// idle → recording → processing → {done | error} → idle. The Controller is
// the only component that mutates session state; everything it learns from
// a cycle leaves through the Notifier.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"sotto/audio"
	"sotto/log"
	"sotto/transcriber"
)

// ErrNoActiveModel means a recording was requested before any model was
// downloaded and selected.
var ErrNoActiveModel = errors.New("no active model")

type State int

const (
	StateIdle State = iota
	StateRecording
	StateProcessing
	StateDone
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateProcessing:
		return "processing"
	case StateDone:
		return "done"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// CaptureEngine is the slice of the audio engine the controller drives.
type CaptureEngine interface {
	StartCapture() error
	StopCapture() *audio.Buffer
}

// ModelSource yields the currently active model, if any.
type ModelSource interface {
	ActiveModel() (transcriber.Model, bool)
}

// Notifier receives session transitions. Calls happen off the capture
// callback but on latency-sensitive paths; implementations must not block.
type Notifier interface {
	RecordingStarted()
	RecordingStopped()
	TranscriptionStarted()
	TranscriptionComplete(text string)
	TranscriptionError(reason string)
}

// Config tunes the controller. Zero values pick the defaults.
type Config struct {
	// MinDuration below which a recording is treated as an accidental tap:
	// no transcription, no error.
	MinDuration time.Duration
	// MaxDuration bounds buffer growth; capture stops automatically once
	// reached and transcription proceeds as if the key was released.
	MaxDuration time.Duration
	// ResetAfter is the done/error display window before the automatic
	// return to idle.
	ResetAfter time.Duration
}

const (
	defaultMinDuration = 300 * time.Millisecond
	defaultMaxDuration = 2 * time.Minute
	defaultResetAfter  = 1200 * time.Millisecond
)

func (c *Config) applyDefaults() {
	if c.MinDuration <= 0 {
		c.MinDuration = defaultMinDuration
	}
	if c.MaxDuration <= 0 {
		c.MaxDuration = defaultMaxDuration
	}
	if c.ResetAfter <= 0 {
		c.ResetAfter = defaultResetAfter
	}
}

// Controller binds hotkey press/release to capture start/stop and
// transcription. One session at a time: a press while recording or
// processing is ignored, never queued.
type Controller struct {
	engine CaptureEngine
	trans  transcriber.Transcriber
	models ModelSource
	notify Notifier
	cfg    Config

	mu        sync.Mutex
	state     State
	startedAt time.Time
	model     transcriber.Model
	gen       int // recording generation, guards stale auto-stop timers
	maxTimer  *time.Timer
	resetTmr  *time.Timer
	closed    bool
}

func New(engine CaptureEngine, trans transcriber.Transcriber, models ModelSource, notify Notifier, cfg Config) *Controller {
	cfg.applyDefaults()
	return &Controller{
		engine: engine,
		trans:  trans,
		models: models,
		notify: notify,
		cfg:    cfg,
	}
}

// State returns the current session state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Press handles a hotkey press. From done/error it resets first, so a new
// recording can start without waiting out the display window.
func (c *Controller) Press() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}

	switch c.state {
	case StateRecording, StateProcessing:
		c.mu.Unlock()
		return
	case StateDone, StateError:
		c.resetLocked()
	}

	model, ok := c.models.ActiveModel()
	if !ok {
		c.mu.Unlock()
		log.Warn("recording refused: no active model")
		c.notify.TranscriptionError(ErrNoActiveModel.Error())
		return
	}

	if err := c.engine.StartCapture(); err != nil {
		c.mu.Unlock()
		log.Errorf("capture start: %v", err)
		c.notify.TranscriptionError(err.Error())
		return
	}

	c.state = StateRecording
	c.startedAt = time.Now()
	c.model = model
	c.gen++
	gen := c.gen
	c.maxTimer = time.AfterFunc(c.cfg.MaxDuration, func() { c.autoStop(gen) })
	c.mu.Unlock()

	log.Info("recording_start")
	c.notify.RecordingStarted()
}

// Release handles a hotkey release. Ignored unless recording.
func (c *Controller) Release() {
	c.mu.Lock()
	if c.state != StateRecording {
		c.mu.Unlock()
		return
	}
	c.finishRecordingLocked()
}

// autoStop fires when a recording hits MaxDuration. gen defends against the
// timer outliving the recording it was armed for.
func (c *Controller) autoStop(gen int) {
	c.mu.Lock()
	if c.state != StateRecording || c.gen != gen {
		c.mu.Unlock()
		return
	}
	log.Info("recording_max_duration")
	c.finishRecordingLocked()
}

// finishRecordingLocked stops capture and either discards a too-short
// buffer or hands it to the transcription worker. Enters with c.mu held,
// always returns with it released.
func (c *Controller) finishRecordingLocked() {
	if c.maxTimer != nil {
		c.maxTimer.Stop()
		c.maxTimer = nil
	}

	buf := c.engine.StopCapture()
	log.Info("recording_stop")

	if buf.Duration() < c.cfg.MinDuration {
		// Accidental tap: back to idle, no transcription, no error.
		c.state = StateIdle
		c.mu.Unlock()
		c.notify.RecordingStopped()
		return
	}

	c.state = StateProcessing
	model := c.model
	c.mu.Unlock()

	c.notify.RecordingStopped()
	c.notify.TranscriptionStarted()

	// Ownership of buf transfers to the worker here; no one writes to it
	// again.
	go c.transcribe(buf, model)
}

func (c *Controller) transcribe(buf *audio.Buffer, model transcriber.Model) {
	start := time.Now()
	text, err := c.trans.Transcribe(context.Background(), buf.Samples(), model)

	if err == nil && transcriber.NoSpeech(text) {
		err = errors.New("no speech detected")
	}

	c.mu.Lock()
	if c.state != StateProcessing || c.closed {
		c.mu.Unlock()
		return
	}
	if err != nil {
		c.state = StateError
	} else {
		c.state = StateDone
	}
	c.resetTmr = time.AfterFunc(c.cfg.ResetAfter, c.timedReset)
	c.mu.Unlock()

	if err != nil {
		log.Errorf("transcription error: %v", err)
		c.notify.TranscriptionError(err.Error())
		return
	}

	log.TranscriptionMetrics(model.ID, "", buf.Duration().Seconds(), float64(time.Since(start).Milliseconds()))
	log.TranscriptionText(text)
	c.notify.TranscriptionComplete(text)
}

func (c *Controller) timedReset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateDone || c.state == StateError {
		c.resetLocked()
	}
}

// resetLocked returns to idle. Caller holds c.mu.
func (c *Controller) resetLocked() {
	if c.resetTmr != nil {
		c.resetTmr.Stop()
		c.resetTmr = nil
	}
	c.state = StateIdle
}

// Shutdown discards any in-progress recording without transcribing it and
// stops accepting presses.
func (c *Controller) Shutdown() {
	c.mu.Lock()
	c.closed = true
	if c.maxTimer != nil {
		c.maxTimer.Stop()
		c.maxTimer = nil
	}
	if c.resetTmr != nil {
		c.resetTmr.Stop()
		c.resetTmr = nil
	}
	recording := c.state == StateRecording
	c.state = StateIdle
	c.mu.Unlock()

	if recording {
		c.engine.StopCapture() // buffer dropped
	}
}
