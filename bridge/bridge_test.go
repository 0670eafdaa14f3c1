package bridge

import (
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"sotto/audio"
	"sotto/models"
)

type fakePrefs struct {
	mu     sync.Mutex
	model  string
	device string
	set    bool
}

func (p *fakePrefs) SaveModel(id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.model = id
	p.set = true
	return nil
}

func (p *fakePrefs) SaveDevice(name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.device = name
	p.set = true
	return nil
}

func newTestBridge(t *testing.T) (*Bridge, *models.Manager, *audio.FakeContext, *fakePrefs) {
	t.Helper()
	manager, err := models.NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	t.Cleanup(manager.Close)
	fake := audio.NewFakeContext(audio.DeviceInfo{Name: "Scarlett 2i2"}, audio.DeviceInfo{Name: "Built-in Mic"})
	engine := audio.NewEngine(fake, nil)
	prefs := &fakePrefs{}
	b := New(manager, engine, fake, prefs)
	t.Cleanup(b.Close)
	return b, manager, fake, prefs
}

// placeArtifact fakes a completed download for id.
func placeArtifact(t *testing.T, m *models.Manager, id string) {
	t.Helper()
	path, err := m.Path(id)
	if err != nil {
		t.Fatalf("Path(%q): %v", id, err)
	}
	if err := os.WriteFile(path, []byte("ggml"), 0644); err != nil {
		t.Fatalf("writing artifact: %v", err)
	}
}

func waitEvent(t *testing.T, ch <-chan Event, kind EventKind) Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				t.Fatalf("event channel closed while waiting for %s", kind)
			}
			if ev.Kind == kind {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", kind)
		}
	}
}

func TestNotifierEventsReachSubscribers(t *testing.T) {
	b, _, _, _ := newTestBridge(t)
	ch := b.Subscribe()

	b.RecordingStarted()
	b.Level(0.42)
	b.RecordingStopped()
	b.TranscriptionStarted()
	b.TranscriptionComplete("hello")
	b.TranscriptionError("boom")

	want := []EventKind{
		EventRecordingStarted,
		EventAudioLevel,
		EventRecordingStopped,
		EventTranscriptionStarted,
		EventTranscriptionComplete,
		EventTranscriptionError,
	}
	for _, kind := range want {
		ev := waitEvent(t, ch, kind)
		switch kind {
		case EventAudioLevel:
			if ev.Level != 0.42 {
				t.Errorf("level = %v, want 0.42", ev.Level)
			}
		case EventTranscriptionComplete:
			if ev.Text != "hello" {
				t.Errorf("text = %q, want hello", ev.Text)
			}
		case EventTranscriptionError:
			if ev.Reason != "boom" {
				t.Errorf("reason = %q, want boom", ev.Reason)
			}
		}
	}
}

func TestPublishNeverBlocksOnLaggingSubscriber(t *testing.T) {
	b, _, _, _ := newTestBridge(t)
	b.Subscribe() // never drained

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < subscriberBuffer*2; i++ {
			b.Level(float64(i))
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publishing blocked on a lagging subscriber")
	}
}

func TestSubscribeAfterClose(t *testing.T) {
	b, _, _, _ := newTestBridge(t)
	ch := b.Subscribe()
	b.Close()

	if _, ok := <-ch; ok {
		t.Fatal("subscriber channel not closed on Close")
	}
	if _, ok := <-b.Subscribe(); ok {
		t.Fatal("late subscription returned an open channel")
	}
}

func TestSetModelSize(t *testing.T) {
	b, manager, _, prefs := newTestBridge(t)

	if err := b.SetModelSize("small"); !errors.Is(err, models.ErrNotDownloaded) {
		t.Fatalf("selecting undownloaded model: err = %v, want ErrNotDownloaded", err)
	}
	if prefs.set {
		t.Fatal("failed selection persisted a preference")
	}
	if b.IsModelReady() {
		t.Fatal("IsModelReady true with nothing selected")
	}

	placeArtifact(t, manager, "small")
	if err := b.SetModelSize("small"); err != nil {
		t.Fatalf("SetModelSize: %v", err)
	}
	if prefs.model != "small" {
		t.Fatalf("persisted model = %q, want small", prefs.model)
	}
	if !b.IsModelReady() {
		t.Fatal("IsModelReady false after commit")
	}

	info := b.ActiveModelInfo()
	if info.ActiveID != "small" || !info.Downloaded {
		t.Fatalf("ActiveModelInfo = %+v", info)
	}
}

func TestAvailableModels(t *testing.T) {
	b, manager, _, _ := newTestBridge(t)
	placeArtifact(t, manager, "medium")

	infos := b.AvailableModels()
	if len(infos) == 0 {
		t.Fatal("empty catalog")
	}
	for _, info := range infos {
		if got, want := info.Downloaded, info.ID == "medium"; got != want {
			t.Errorf("model %s Downloaded = %v, want %v", info.ID, got, want)
		}
	}
}

func TestDownloadModelDefaultsToSelection(t *testing.T) {
	b, manager, _, _ := newTestBridge(t)
	placeArtifact(t, manager, "medium")
	if err := manager.Select("medium"); err != nil {
		t.Fatalf("Select: %v", err)
	}

	ch := b.Subscribe()
	job, err := b.DownloadModel("")
	if err != nil {
		t.Fatalf("DownloadModel: %v", err)
	}
	<-job.Done()

	ev := waitEvent(t, ch, EventDownloadProgress)
	if ev.ModelID != "medium" {
		t.Fatalf("progress for %q, want medium (the current selection)", ev.ModelID)
	}
	if ev.Downloaded != ev.Total || ev.Total == 0 {
		t.Fatalf("terminal tick = %d/%d", ev.Downloaded, ev.Total)
	}
}

func TestDownloadModelUnknownID(t *testing.T) {
	b, _, _, _ := newTestBridge(t)
	if _, err := b.DownloadModel("gigantic"); !errors.Is(err, models.ErrUnknownModel) {
		t.Fatalf("err = %v, want ErrUnknownModel", err)
	}
}

func TestSetAudioDevice(t *testing.T) {
	b, _, _, prefs := newTestBridge(t)

	if err := b.SetAudioDevice("Absent Mic"); !errors.Is(err, audio.ErrDeviceUnavailable) {
		t.Fatalf("err = %v, want ErrDeviceUnavailable", err)
	}
	if prefs.set {
		t.Fatal("failed selection persisted a preference")
	}

	if err := b.SetAudioDevice("Scarlett 2i2"); err != nil {
		t.Fatalf("SetAudioDevice: %v", err)
	}
	if b.CurrentDevice() != "Scarlett 2i2" {
		t.Fatalf("CurrentDevice = %q", b.CurrentDevice())
	}
	if prefs.device != "Scarlett 2i2" {
		t.Fatalf("persisted device = %q", prefs.device)
	}

	// Back to system default.
	if err := b.SetAudioDevice(""); err != nil {
		t.Fatalf("SetAudioDevice(default): %v", err)
	}
	if b.CurrentDevice() != "" {
		t.Fatalf("CurrentDevice = %q, want system default", b.CurrentDevice())
	}
}

func TestAudioDevices(t *testing.T) {
	b, _, _, _ := newTestBridge(t)
	names, err := b.AudioDevices()
	if err != nil {
		t.Fatalf("AudioDevices: %v", err)
	}
	want := []string{"Scarlett 2i2", "Built-in Mic"}
	if len(names) != len(want) {
		t.Fatalf("devices = %v", names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("devices = %v, want %v", names, want)
		}
	}
}

func TestCheckMicrophonePermission(t *testing.T) {
	b, _, fake, _ := newTestBridge(t)
	if !b.CheckMicrophonePermission() {
		t.Fatal("expected permission check to pass")
	}
	fake.FailOpen(errors.New("denied"))
	if b.CheckMicrophonePermission() {
		t.Fatal("expected permission check to fail")
	}
}

func TestCloseSettingsEmitsEvent(t *testing.T) {
	b, _, _, _ := newTestBridge(t)
	ch := b.Subscribe()
	b.CloseSettings()
	waitEvent(t, ch, EventSettingsClosed)
}
