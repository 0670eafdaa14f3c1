package models

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"

	"sotto/log"
)

// Progress is one download progress tick. Downloaded is monotonically
// non-decreasing and Total constant for a given job.
type Progress struct {
	ModelID    string
	Downloaded int64
	Total      int64
}

// Info is the listing shape returned to the presentation layer.
type Info struct {
	ID         string
	Label      string
	Downloaded bool
}

// Job is one in-flight artifact transfer. At most one Job exists per model
// id; a second Download call for the same id joins the existing Job instead
// of starting a second transfer. Every joiner observes the same terminal
// outcome.
type Job struct {
	modelID string
	done    chan struct{}
	cancel  context.CancelFunc

	mu   sync.Mutex
	subs []chan Progress
	last Progress
	err  error
}

func newJob(id string, cancel context.CancelFunc) *Job {
	return &Job{modelID: id, done: make(chan struct{}), cancel: cancel}
}

// Progress returns a subscription channel. Slow consumers only lose
// intermediate ticks: the send coalesces to the latest value and never
// blocks the transfer. The channel closes once the job ends.
func (j *Job) Progress() <-chan Progress {
	ch := make(chan Progress, 1)
	j.mu.Lock()
	defer j.mu.Unlock()
	select {
	case <-j.done:
		if j.err == nil && j.last.Total > 0 {
			ch <- j.last
		}
		close(ch)
		return ch
	default:
	}
	if j.last.Total > 0 {
		ch <- j.last
	}
	j.subs = append(j.subs, ch)
	return ch
}

// Done closes when the transfer finished, successfully or not.
func (j *Job) Done() <-chan struct{} { return j.done }

// Err returns the terminal error. Only valid after Done.
func (j *Job) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

func (j *Job) lastProgress() Progress {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.last
}

func (j *Job) publish(p Progress) {
	j.mu.Lock()
	j.last = p
	for _, ch := range j.subs {
		coalesce(ch, p)
	}
	j.mu.Unlock()
}

// coalesce replaces a pending value so the subscriber always observes the
// newest tick, ending on the terminal one.
func coalesce(ch chan Progress, p Progress) {
	for {
		select {
		case ch <- p:
			return
		default:
			select {
			case <-ch:
			default:
			}
		}
	}
}

func (j *Job) finish(err error) {
	j.mu.Lock()
	j.err = err
	subs := j.subs
	j.subs = nil
	j.mu.Unlock()
	close(j.done)
	for _, ch := range subs {
		close(ch)
	}
}

// Manager owns the on-disk model store, the active-model selection and all
// download jobs. Selection commits are single-writer (guarded by mu);
// readers always observe a complete value.
type Manager struct {
	dir    string
	client *http.Client

	rootCtx context.Context
	stop    context.CancelFunc

	mu     sync.Mutex
	jobs   map[string]*Job
	active string
	urls   map[string]string // model id -> URL, overridable in tests
}

// NewManager creates a manager storing artifacts under dir.
func NewManager(dir string) (*Manager, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating models dir: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	urls := make(map[string]string, len(catalog))
	for _, d := range catalog {
		urls[d.ID] = d.URL
	}
	return &Manager{
		dir:     dir,
		client:  http.DefaultClient,
		rootCtx: ctx,
		stop:    cancel,
		jobs:    make(map[string]*Job),
		urls:    urls,
	}, nil
}

// Close cancels every in-flight download. Partial artifacts are discarded,
// not resumed.
func (m *Manager) Close() {
	m.stop()
	m.mu.Lock()
	jobs := make([]*Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		jobs = append(jobs, j)
	}
	m.mu.Unlock()
	for _, j := range jobs {
		<-j.Done()
	}
}

// Path returns the artifact path for a model id.
func (m *Manager) Path(id string) (string, error) {
	d, ok := Lookup(id)
	if !ok {
		return "", fmt.Errorf("%q: %w", id, ErrUnknownModel)
	}
	return artifactPath(m.dir, d), nil
}

// IsDownloaded reports whether the artifact is present and non-empty on
// disk. Derived state: flipping it happens only through a completed
// download's atomic rename.
func (m *Manager) IsDownloaded(id string) bool {
	path, err := m.Path(id)
	if err != nil {
		return false
	}
	stat, err := os.Stat(path)
	return err == nil && stat.Size() > 0
}

// List returns the user-facing variants with their download state.
func (m *Manager) List() []Info {
	infos := make([]Info, 0, len(listedSizes))
	for _, id := range listedSizes {
		d, _ := Lookup(id)
		infos = append(infos, Info{ID: d.ID, Label: d.Label, Downloaded: m.IsDownloaded(d.ID)})
	}
	return infos
}

// Select commits the active model. Fails with ErrNotDownloaded when the
// artifact is missing; it never downloads implicitly.
func (m *Manager) Select(id string) error {
	if _, ok := Lookup(id); !ok {
		return fmt.Errorf("%q: %w", id, ErrUnknownModel)
	}
	if !m.IsDownloaded(id) {
		return fmt.Errorf("%q: %w", id, ErrNotDownloaded)
	}
	m.mu.Lock()
	m.active = id
	m.mu.Unlock()
	log.Info("model_selected: " + id)
	return nil
}

// Active returns the active model descriptor, if one is selected.
func (m *Manager) Active() (Descriptor, bool) {
	m.mu.Lock()
	id := m.active
	m.mu.Unlock()
	if id == "" {
		return Descriptor{}, false
	}
	return Lookup(id)
}

// ActiveID returns the active model id, or "".
func (m *Manager) ActiveID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// Ready reports whether an active model is selected and present on disk.
func (m *Manager) Ready() bool {
	m.mu.Lock()
	id := m.active
	m.mu.Unlock()
	return id != "" && m.IsDownloaded(id)
}

// Download begins fetching a model artifact, or joins the job already
// running for that id. Joining never starts a second transfer.
func (m *Manager) Download(id string) (*Job, error) {
	d, ok := Lookup(id)
	if !ok {
		return nil, fmt.Errorf("%q: %w", id, ErrUnknownModel)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if j, ok := m.jobs[id]; ok {
		return j, nil
	}

	ctx, cancel := context.WithCancel(m.rootCtx)
	j := newJob(id, cancel)

	if m.IsDownloaded(id) {
		// Already on disk: complete immediately with a terminal tick
		// sized from the artifact, not the catalog estimate.
		size := d.SizeBytes
		if stat, err := os.Stat(artifactPath(m.dir, d)); err == nil {
			size = stat.Size()
		}
		j.publish(Progress{ModelID: id, Downloaded: size, Total: size})
		j.finish(nil)
		cancel()
		return j, nil
	}

	m.jobs[id] = j
	go m.run(ctx, d, j)
	return j, nil
}

func (m *Manager) run(ctx context.Context, d Descriptor, j *Job) {
	err := m.fetch(ctx, d, j)
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}

	m.mu.Lock()
	delete(m.jobs, d.ID)
	m.mu.Unlock()

	last := j.lastProgress()
	log.DownloadProgress(d.ID, last.Downloaded, last.Total, err)
	j.finish(err)
	j.cancel()
}

func (m *Manager) fetch(ctx context.Context, d Descriptor, j *Job) error {
	m.mu.Lock()
	url := m.urls[d.ID]
	m.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	// Without a Content-Length the catalog size is only an estimate; the
	// real count is known once the body ends.
	exact := resp.ContentLength > 0
	total := resp.ContentLength
	if !exact {
		total = d.SizeBytes
	}

	dest := artifactPath(m.dir, d)
	tmp := dest + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	defer os.Remove(tmp)

	var downloaded int64
	buf := make([]byte, 128*1024)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := f.Write(buf[:n]); werr != nil {
				f.Close()
				return werr
			}
			downloaded += int64(n)
			// The downloaded == total tick is withheld until the rename
			// below so the terminal event and the artifact becoming
			// selectable are a single observable step. When total is an
			// estimate the body may outgrow it; stretch total so ticks
			// keep flowing without claiming completion early.
			if !exact && downloaded >= total {
				total = downloaded + 1
			}
			if downloaded < total {
				j.publish(Progress{ModelID: d.ID, Downloaded: downloaded, Total: total})
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			f.Close()
			return readErr
		}
	}

	if err := f.Close(); err != nil {
		return err
	}
	if exact && downloaded != total {
		return fmt.Errorf("truncated transfer: %d of %d bytes", downloaded, total)
	}

	// Rename commits the artifact; only after this does IsDownloaded flip.
	if err := os.Rename(tmp, dest); err != nil {
		return err
	}

	// Terminal tick: downloaded == total marks the artifact selectable.
	// Reporting the real byte count corrects the estimate for length-less
	// responses; for exact ones it equals the Content-Length.
	j.publish(Progress{ModelID: d.ID, Downloaded: downloaded, Total: downloaded})
	return nil
}
