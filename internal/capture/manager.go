package capture

import (
	"slices"
	"sync"

	"github.com/sourcegraph/conc"

	"github.com/Iron-Ham/screenreel/internal/config"
	"github.com/Iron-Ham/screenreel/internal/errors"
	"github.com/Iron-Ham/screenreel/internal/event"
	"github.com/Iron-Ham/screenreel/internal/logging"
	"github.com/Iron-Ham/screenreel/internal/platform"
)

// Manager owns the capture sessions, keyed by a caller-chosen source ID.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	platform platform.Platform
	cfg      config.CaptureConfig
	logger   *logging.Logger
	bus      *event.Bus
}

// NewManager creates a Manager that captures through p. A nil logger
// discards output.
func NewManager(p platform.Platform, cfg config.CaptureConfig, logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Manager{
		sessions: make(map[string]*Session),
		platform: p,
		cfg:      cfg,
		logger:   logger.WithComponent("capture"),
	}
}

// SetEventBus makes the manager publish capture.started and capture.stopped.
// It must be called before the first StartCapture.
func (m *Manager) SetEventBus(bus *event.Bus) {
	m.bus = bus
}

// normalize fills in defaults and caps the frame rate at capture.max_fps,
// which is never above config.MaxCaptureFPS.
func (m *Manager) normalize(opts Options) Options {
	if opts.FPS <= 0 {
		opts.FPS = m.cfg.DefaultFPS
	}
	limit := config.MaxCaptureFPS
	if m.cfg.MaxFPS > 0 {
		limit = min(limit, m.cfg.MaxFPS)
	}
	opts.FPS = min(opts.FPS, limit)
	if opts.Width <= 0 {
		opts.Width = m.cfg.DefaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = m.cfg.DefaultHeight
	}
	return opts
}

// StartCapture starts capturing the given source under id. If id is already
// capturing, StartCapture returns nil and leaves the running session alone.
func (m *Manager) StartCapture(id string, kind platform.SourceKind, nativeID uint32, opts Options) error {
	if id == "" {
		return errors.NewValidationError("source id is required").WithField("source_id")
	}
	opts = m.normalize(opts)

	m.mu.Lock()
	if existing, ok := m.sessions[id]; ok {
		if existing.IsRunning() {
			m.mu.Unlock()
			return nil
		}
		// The previous loop ended on a fatal error; it holds no goroutine.
		existing.Stop()
	}
	s := newSession(id, kind, nativeID, opts, m.cfg.JPEGQuality, m.platform, m.logger)
	s.Start()
	m.sessions[id] = s
	m.mu.Unlock()

	m.logger.Info("capture started",
		"source_id", id,
		"kind", kind.String(),
		"native_id", nativeID,
		"fps", opts.FPS,
		"width", opts.Width,
		"height", opts.Height,
	)
	if m.bus != nil {
		m.bus.Publish(event.NewCaptureStartedEvent(id, kind.String(), nativeID, opts.FPS))
	}
	return nil
}

// StartCaptureNamed is StartCapture with the kind given as "window" or
// "screen" in any case.
func (m *Manager) StartCaptureNamed(id, kind string, nativeID uint32, opts Options) error {
	k, err := platform.ParseSourceKind(kind)
	if err != nil {
		return errors.NewCaptureError("cannot start capture", err).WithSourceID(id)
	}
	return m.StartCapture(id, k, nativeID, opts)
}

// StopCapture stops and forgets the session for id. Unknown ids are ignored.
func (m *Manager) StopCapture(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if ok {
		m.stopSession(id, s)
	}
}

// StopAll stops every session. Sessions are detached under the lock and
// stopped in parallel outside it.
func (m *Manager) StopAll() {
	m.mu.Lock()
	detached := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	var wg conc.WaitGroup
	for id, s := range detached {
		id, s := id, s
		wg.Go(func() { m.stopSession(id, s) })
	}
	wg.Wait()
}

func (m *Manager) stopSession(id string, s *Session) {
	s.Stop()
	frames := s.FrameCount()
	m.logger.Info("capture stopped",
		"source_id", id,
		"frames", frames,
		"skipped", s.Skipped(),
	)
	if m.bus != nil {
		m.bus.Publish(event.NewCaptureStoppedEvent(id, frames))
	}
}

func (m *Manager) session(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// GetFrame returns the newest frame for id in wire form.
func (m *Manager) GetFrame(id string) (FramePayload, bool) {
	f, ok := m.LatestFrame(id)
	if !ok {
		return FramePayload{}, false
	}
	return f.Payload(id), true
}

// LatestFrame returns the newest frame for id with its raw JPEG bytes.
func (m *Manager) LatestFrame(id string) (Frame, bool) {
	s, ok := m.session(id)
	if !ok {
		return Frame{}, false
	}
	return s.Latest()
}

// IsCapturing reports whether id has a running session.
func (m *Manager) IsCapturing(id string) bool {
	s, ok := m.session(id)
	return ok && s.IsRunning()
}

// ActiveSources returns the sorted IDs of running sessions.
func (m *Manager) ActiveSources() []string {
	m.mu.RLock()
	ids := make([]string, 0, len(m.sessions))
	for id, s := range m.sessions {
		if s.IsRunning() {
			ids = append(ids, id)
		}
	}
	m.mu.RUnlock()

	slices.Sort(ids)
	return ids
}

// FrameCount returns the number of frames captured for id.
func (m *Manager) FrameCount(id string) (uint64, bool) {
	s, ok := m.session(id)
	if !ok {
		return 0, false
	}
	return s.FrameCount(), true
}

// SessionErr returns the error that ended id's loop, if any. Unknown ids
// give a *errors.NotFoundError matching errors.ErrSourceNotFound.
func (m *Manager) SessionErr(id string) error {
	s, ok := m.session(id)
	if !ok {
		return errors.NewNotFoundError("capture", id).WithCause(errors.ErrSourceNotFound)
	}
	return s.Err()
}
