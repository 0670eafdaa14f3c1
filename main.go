package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"sync/atomic"
	"time"

	"sotto/audio"
	"sotto/bridge"
	"sotto/clipboard"
	"sotto/config"
	"sotto/cue"
	"sotto/doctor"
	"sotto/hotkey"
	"sotto/log"
	"sotto/models"
	"sotto/session"
	"sotto/shutdown"
	"sotto/transcriber"
)

var version = "dev"

// modelSource exposes the manager's active selection in the shape the
// session controller consumes.
type modelSource struct {
	m *models.Manager
}

func (s modelSource) ActiveModel() (transcriber.Model, bool) {
	d, ok := s.m.Active()
	if !ok || !s.m.IsDownloaded(d.ID) {
		return transcriber.Model{}, false
	}
	path, err := s.m.Path(d.ID)
	if err != nil {
		return transcriber.Model{}, false
	}
	return transcriber.Model{ID: d.ID, Path: path}, true
}

// prefsStore persists model/device selections through the bridge.
type prefsStore struct {
	cfg  *config.Config
	path string
}

func (p *prefsStore) SaveModel(id string) error {
	p.cfg.Model = id
	return p.cfg.Save(p.path)
}

func (p *prefsStore) SaveDevice(name string) error {
	p.cfg.Device = name
	return p.cfg.Save(p.path)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

func run() {
	deviceFlag := flag.String("device", "", "Use named microphone device for this run")
	setupFlag := flag.Bool("setup", false, "Select microphone device interactively")
	modelFlag := flag.String("model", "", "Model size to use (tiny, base, small, medium, large)")
	downloadFlag := flag.String("download", "", "Download a model and exit")
	listFlag := flag.Bool("models", false, "List models and exit")
	fileFlag := flag.String("file", "", "Transcribe a 16 kHz mono WAV file and exit")
	autoPasteFlag := flag.Bool("autopaste", false, "Paste into the focused window after transcription")
	quietFlag := flag.Bool("quiet", false, "Disable audio cues")
	logPathFlag := flag.String("logpath", "", "log directory path (default: OS-specific location, use ./ for current dir)")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	doctorFlag := flag.Bool("doctor", false, "Run system diagnostics and exit")
	tuiFlag := flag.Bool("tui", true, "Run with terminal UI")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("sotto %s\n", version)
		os.Exit(0)
	}

	logPath, err := log.ResolveDir(*logPathFlag)
	if err != nil {
		fatalf("failed to resolve log directory: %v", err)
	}
	log.SetDir(logPath)
	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
	}

	crashPath := filepath.Join(log.Dir(), "crash_log.txt")
	if crashFile, err := os.OpenFile(crashPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644); err == nil {
		fmt.Fprintf(crashFile, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
		debug.SetCrashOutput(crashFile, debug.CrashOptions{})
	}

	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}
	defer log.Close()

	cfgPath := config.DefaultPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: bad config, using defaults: %v\n", err)
		cfg = config.Default()
	}
	autoPaste := cfg.AutoPaste || *autoPasteFlag

	if *quietFlag {
		cue.Disable()
	}

	manager, err := models.NewManager(filepath.Join(config.DefaultDir(), "models"))
	if err != nil {
		fatalf("%v", err)
	}
	defer manager.Close()

	if *listFlag {
		listModels(manager, cfg.Model)
		return
	}
	if *downloadFlag != "" {
		if err := downloadModel(manager, *downloadFlag); err != nil {
			fatalf("%v", err)
		}
		return
	}
	if *doctorFlag {
		os.Exit(doctor.Run(manager))
	}

	selectModel(manager, cfg.Model, *modelFlag)

	actx, err := audio.NewContext()
	if err != nil {
		log.Errorf("audio context init error: %v", err)
		fatalf("initializing audio: %v", err)
	}
	defer actx.Close()

	// The bridge is constructed after the engine but consumes its level
	// stream; the indirection is safe because capture cannot start before
	// run() finishes wiring.
	var br *bridge.Bridge
	engine := audio.NewEngine(actx, func(level float64) {
		if br != nil {
			br.Level(level)
		}
	})

	if *setupFlag && *deviceFlag == "" {
		if dev, err := audio.PickDevice(actx); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: device selection failed: %v\n", err)
		} else if dev != nil {
			*deviceFlag = dev.Name
		}
	}
	switch {
	case *deviceFlag != "":
		// Explicit for this run only; not persisted.
		if err := engine.SelectDevice(*deviceFlag); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v, using system default\n", err)
		}
	case cfg.Device != "":
		// Saved preference; engine falls back to default if it is gone.
		engine.SetPreferredDevice(cfg.Device)
	}

	br = bridge.New(manager, engine, actx, &prefsStore{cfg: cfg, path: cfgPath})
	defer br.Close()

	trans := transcriber.New()
	defer trans.Close()

	if *fileFlag != "" {
		if err := transcribeFile(trans, manager, *fileFlag); err != nil {
			fatalf("%v", err)
		}
		return
	}

	controller := session.New(engine, trans, modelSource{m: manager}, br, session.Config{
		MaxDuration: time.Duration(cfg.MaxRecordSeconds) * time.Second,
	})
	defer controller.Shutdown()

	var transcriptions atomic.Int64
	go consumeEvents(br.Subscribe(), autoPaste, !*tuiFlag, &transcriptions)
	defer func() { log.SessionEnd(int(transcriptions.Load())) }()

	tuiDone := make(chan struct{})
	if *tuiFlag {
		modelLine, deviceLine := statusLines(manager, engine)
		program := newTUI(br.Subscribe(), modelLine, deviceLine)
		go func() {
			defer close(tuiDone)
			if _, err := program.Run(); err != nil {
				log.Errorf("TUI error: %v", err)
			}
		}()
	}

	hk := hotkey.New()
	if err := hk.Register(); err != nil {
		log.Errorf("hotkey register error: %v", err)
		fatalf("registering hotkey: %v", err)
	}
	defer hk.Unregister()

	log.SessionStart(manager.ActiveID(), engine.CurrentDevice())
	if !manager.Ready() {
		fmt.Fprintln(os.Stderr, "No model downloaded yet. Run: sotto -download small")
	}

	sigChan := make(chan os.Signal, 1)
	shutdown.Notify(sigChan)

	for {
		select {
		case <-hk.Pressed():
			controller.Press()
		case <-hk.Released():
			controller.Release()
		case <-sigChan:
			return
		case <-tuiDone:
			return
		}
	}
}

// consumeEvents performs the side effects tied to session transitions:
// audio cues and, on a completed transcription, the clipboard write.
// completed counts successful transcriptions for the end-of-session log.
func consumeEvents(events <-chan bridge.Event, autoPaste, echo bool, completed *atomic.Int64) {
	for ev := range events {
		switch ev.Kind {
		case bridge.EventRecordingStarted:
			cue.Start()
		case bridge.EventRecordingStopped:
			cue.Stop()
		case bridge.EventTranscriptionComplete:
			completed.Add(1)
			if err := clipboard.Copy(ev.Text); err != nil {
				log.Errorf("clipboard write: %v", err)
			} else if autoPaste {
				if err := clipboard.Paste(); err != nil {
					log.Errorf("paste: %v", err)
				}
			}
			if echo {
				fmt.Println(ev.Text)
			}
		case bridge.EventTranscriptionError:
			cue.Error()
			if echo {
				fmt.Fprintf(os.Stderr, "Error: %s\n", ev.Reason)
			}
		}
	}
}

func selectModel(manager *models.Manager, saved, override string) {
	id := saved
	if override != "" {
		id = override
	}
	if id == "" {
		id = models.DefaultID()
	}
	if err := manager.Select(id); err != nil {
		if errors.Is(err, models.ErrNotDownloaded) {
			fmt.Fprintf(os.Stderr, "Model %q is not downloaded. Run: sotto -download %s\n", id, id)
			return
		}
		fatalf("%v", err)
	}
}

func listModels(manager *models.Manager, active string) {
	for _, info := range manager.List() {
		mark := " "
		if info.ID == active {
			mark = "*"
		}
		state := "not downloaded"
		if info.Downloaded {
			state = "downloaded"
		}
		fmt.Printf("%s %-8s %-28s %s\n", mark, info.ID, info.Label, state)
	}
}

func downloadModel(manager *models.Manager, id string) error {
	job, err := manager.Download(id)
	if err != nil {
		return err
	}

	for p := range job.Progress() {
		if p.Total > 0 {
			fmt.Printf("\rDownloading %s: %3d%% (%d/%d MB)",
				id, p.Downloaded*100/p.Total, p.Downloaded>>20, p.Total>>20)
		}
	}
	fmt.Println()

	<-job.Done()
	if err := job.Err(); err != nil {
		return err
	}
	fmt.Printf("Model %q downloaded.\n", id)
	return nil
}

func statusLines(manager *models.Manager, engine *audio.Engine) (model, device string) {
	model = manager.ActiveID()
	if model == "" {
		model = "none"
	}
	device = engine.CurrentDevice()
	if device == "" {
		device = "system default"
	} else if audio.IsBluetooth(device) {
		device += " (BT!)"
	}
	return model, device
}
