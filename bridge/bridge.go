// Package bridge is the boundary between the core and the presentation
// layer: inbound commands become calls on the owning components, outbound
// state transitions and download progress become Events. The bridge holds
// no business state of its own.
package bridge

import (
	"sync"

	"sotto/audio"
	"sotto/log"
	"sotto/models"
	"sotto/permission"
)

type EventKind int

const (
	EventDownloadProgress EventKind = iota
	EventRecordingStarted
	EventAudioLevel
	EventRecordingStopped
	EventTranscriptionStarted
	EventTranscriptionComplete
	EventTranscriptionError
	EventSettingsClosed
)

func (k EventKind) String() string {
	switch k {
	case EventDownloadProgress:
		return "model-download-progress"
	case EventRecordingStarted:
		return "recording-started"
	case EventAudioLevel:
		return "audio-level"
	case EventRecordingStopped:
		return "recording-stopped"
	case EventTranscriptionStarted:
		return "transcription-started"
	case EventTranscriptionComplete:
		return "transcription-complete"
	case EventTranscriptionError:
		return "transcription-error"
	case EventSettingsClosed:
		return "settings-closed"
	default:
		return "unknown"
	}
}

// Event is one asynchronous notification. Only the fields relevant to the
// Kind are set.
type Event struct {
	Kind       EventKind
	ModelID    string
	Downloaded int64
	Total      int64
	Level      float64
	Text       string
	Reason     string
}

// ModelInfo describes the active model selection.
type ModelInfo struct {
	ActiveID   string
	Downloaded bool
}

// Prefs persists the durable selections across restarts. May be nil when
// nothing should be persisted.
type Prefs interface {
	SaveModel(id string) error
	SaveDevice(name string) error
}

// subscriberBuffer sizes each subscriber channel. Publishing never blocks:
// a subscriber that falls this far behind starts losing events.
const subscriberBuffer = 256

type Bridge struct {
	models   *models.Manager
	engine   *audio.Engine
	audioCtx audio.Context
	prefs    Prefs

	mu         sync.Mutex
	subs       []chan Event
	closed     bool
	forwarding map[*models.Job]bool
}

func New(manager *models.Manager, engine *audio.Engine, audioCtx audio.Context, prefs Prefs) *Bridge {
	return &Bridge{
		models:     manager,
		engine:     engine,
		audioCtx:   audioCtx,
		prefs:      prefs,
		forwarding: make(map[*models.Job]bool),
	}
}

// Subscribe registers a new event consumer. The channel closes on Close.
func (b *Bridge) Subscribe() <-chan Event {
	ch := make(chan Event, subscriberBuffer)
	b.mu.Lock()
	if b.closed {
		close(ch)
	} else {
		b.subs = append(b.subs, ch)
	}
	b.mu.Unlock()
	return ch
}

// Close ends all subscriptions. Events published afterwards are dropped.
func (b *Bridge) Close() {
	b.mu.Lock()
	subs := b.subs
	b.subs = nil
	b.closed = true
	b.mu.Unlock()
	for _, ch := range subs {
		close(ch)
	}
}

// publish fans an event out without ever blocking the caller. Level events
// are transient and dropped silently when a subscriber lags; anything else
// lost is worth a diagnostic line.
func (b *Bridge) publish(ev Event) {
	b.mu.Lock()
	subs := b.subs
	b.mu.Unlock()
	for _, ch := range subs {
		select {
		case ch <- ev:
		default:
			if ev.Kind != EventAudioLevel {
				log.Warnf("subscriber lagging, dropped %s event", ev.Kind)
			}
		}
	}
}

// Level reports one audio-level sample. Wired as the capture engine's
// LevelFunc; called from the consumer goroutine, must stay non-blocking.
func (b *Bridge) Level(level float64) {
	b.publish(Event{Kind: EventAudioLevel, Level: level})
}

// session.Notifier implementation.

func (b *Bridge) RecordingStarted() { b.publish(Event{Kind: EventRecordingStarted}) }
func (b *Bridge) RecordingStopped() { b.publish(Event{Kind: EventRecordingStopped}) }

func (b *Bridge) TranscriptionStarted() { b.publish(Event{Kind: EventTranscriptionStarted}) }

func (b *Bridge) TranscriptionComplete(text string) {
	b.publish(Event{Kind: EventTranscriptionComplete, Text: text})
}

func (b *Bridge) TranscriptionError(reason string) {
	b.publish(Event{Kind: EventTranscriptionError, Reason: reason})
}

// Commands.

// IsModelReady reports whether a downloaded model is active.
func (b *Bridge) IsModelReady() bool { return b.models.Ready() }

// AvailableModels lists the catalog with per-model download state.
func (b *Bridge) AvailableModels() []models.Info { return b.models.List() }

// ActiveModelInfo returns the current selection and whether its artifact is
// on disk.
func (b *Bridge) ActiveModelInfo() ModelInfo {
	id := b.models.ActiveID()
	return ModelInfo{
		ActiveID:   id,
		Downloaded: id != "" && b.models.IsDownloaded(id),
	}
}

// SetModelSize commits the active model. The model must already be
// downloaded; this never starts a transfer on the caller's behalf.
func (b *Bridge) SetModelSize(id string) error {
	if err := b.models.Select(id); err != nil {
		return err
	}
	if b.prefs != nil {
		if err := b.prefs.SaveModel(id); err != nil {
			log.Errorf("persisting model selection: %v", err)
		}
	}
	return nil
}

// DownloadModel begins or joins the download for id, defaulting to the
// current selection (or the catalog default when nothing is selected).
// Progress ticks are forwarded to subscribers as download events; the
// returned job lets the caller also observe them directly.
func (b *Bridge) DownloadModel(id string) (*models.Job, error) {
	if id == "" {
		id = b.models.ActiveID()
		if id == "" {
			id = models.DefaultID()
		}
	}
	job, err := b.models.Download(id)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	already := b.forwarding[job]
	if !already {
		b.forwarding[job] = true
	}
	b.mu.Unlock()

	// One forwarder per underlying job, however many callers joined it.
	if !already {
		go b.forward(job)
	}
	return job, nil
}

func (b *Bridge) forward(job *models.Job) {
	for p := range job.Progress() {
		b.publish(Event{
			Kind:       EventDownloadProgress,
			ModelID:    p.ModelID,
			Downloaded: p.Downloaded,
			Total:      p.Total,
		})
	}

	b.mu.Lock()
	delete(b.forwarding, job)
	b.mu.Unlock()
}

// AudioDevices lists capture device names.
func (b *Bridge) AudioDevices() ([]string, error) {
	devices, err := b.engine.Devices()
	if err != nil {
		return nil, err
	}
	names := make([]string, len(devices))
	for i, d := range devices {
		names[i] = d.Name
	}
	return names, nil
}

// CurrentDevice returns the selected device name, "" meaning system default.
func (b *Bridge) CurrentDevice() string { return b.engine.CurrentDevice() }

// SetAudioDevice commits the capture device selection. Empty name selects
// the system default.
func (b *Bridge) SetAudioDevice(name string) error {
	if err := b.engine.SelectDevice(name); err != nil {
		return err
	}
	if audio.IsBluetooth(name) {
		log.Warnf("bluetooth input %q selected, capture quality may drop to headset profile", name)
	}
	if b.prefs != nil {
		if err := b.prefs.SaveDevice(name); err != nil {
			log.Errorf("persisting device selection: %v", err)
		}
	}
	return nil
}

func (b *Bridge) CheckMicrophonePermission() bool {
	return permission.CheckMicrophone(b.audioCtx)
}

func (b *Bridge) CheckAccessibilityPermission() bool {
	return permission.CheckAccessibility()
}

func (b *Bridge) OpenMicrophoneSettings() error {
	return permission.OpenMicrophoneSettings()
}

func (b *Bridge) OpenAccessibilitySettings() error {
	return permission.OpenAccessibilitySettings()
}

// CloseSettings tells the presentation layer to dismiss its settings
// surface. Pure notification, nothing in the core changes.
func (b *Bridge) CloseSettings() {
	b.publish(Event{Kind: EventSettingsClosed})
}
