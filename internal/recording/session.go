package recording

import (
	"context"
	"sync"
	"time"

	"github.com/Iron-Ham/screenreel/internal/cursor"
	"github.com/Iron-Ham/screenreel/internal/encoder"
	"github.com/Iron-Ham/screenreel/internal/errors"
	"github.com/Iron-Ham/screenreel/internal/event"
	"github.com/Iron-Ham/screenreel/internal/logging"
)

// Config describes one recording.
type Config struct {
	OutputPath   string
	ScreenDevice string
	MicDevice    string
	FPS          int

	// Geometry of the recorded screen in global coordinates. Zoom centres
	// are computed relative to it.
	ScreenX      float64
	ScreenY      float64
	ScreenWidth  int
	ScreenHeight int
}

// Tracker is the cursor tracker driven by a Session.
type Tracker interface {
	Start()
	Stop()
	SaveToFile(path string) error
}

// Defaults for a Session.
const (
	DefaultStopTimeout = 10 * time.Second
	DefaultFPS         = 30
)

// Session is the recording state machine. It owns the encoder process and
// the cursor tracker while a recording is active. All methods are safe for
// concurrent use.
type Session struct {
	spawner encoder.Spawner
	pointer cursor.Pointer

	stopTimeout    time.Duration
	cursorInterval time.Duration
	zoomScale      float64
	now            func() time.Time
	newTracker     func() Tracker
	logger         *logging.Logger
	bus            *event.Bus

	mu         sync.Mutex
	state      State
	proc       encoder.Process
	tracker    Tracker
	outputPath string
	started    time.Time
	markers    []ZoomMarker
	zoomed     bool
	screen     Config

	// Set while Stop waits for the encoder without holding mu.
	stopping  bool
	stoppedAt time.Time
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithEventBus makes the session publish state, zoom and encoder events.
// State and zoom handlers run while the session is locked and must not call
// back into it.
func WithEventBus(bus *event.Bus) Option {
	return func(s *Session) { s.bus = bus }
}

// WithStopTimeout bounds how long Stop waits for the encoder after asking
// it to quit.
func WithStopTimeout(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.stopTimeout = d
		}
	}
}

// WithCursorInterval sets the cursor sampling interval.
func WithCursorInterval(d time.Duration) Option {
	return func(s *Session) { s.cursorInterval = d }
}

// WithDefaultZoomScale sets the scale used by ToggleZoom(0). Scales that
// CheckZoomScale rejects are ignored.
func WithDefaultZoomScale(scale float64) Option {
	return func(s *Session) {
		if CheckZoomScale(scale) == nil {
			s.zoomScale = scale
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithTrackerFactory replaces the cursor tracker built for each recording.
func WithTrackerFactory(f func() Tracker) Option {
	return func(s *Session) { s.newTracker = f }
}

// NewSession creates an idle Session that records through spawner and
// samples pointer.
func NewSession(spawner encoder.Spawner, pointer cursor.Pointer, opts ...Option) *Session {
	s := &Session{
		spawner:     spawner,
		pointer:     pointer,
		stopTimeout: DefaultStopTimeout,
		zoomScale:   DefaultZoomScale,
		now:         time.Now,
		logger:      logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithComponent("recording")
	if s.newTracker == nil {
		s.newTracker = func() Tracker {
			return cursor.NewTracker(s.pointer, s.cursorInterval, s.logger)
		}
	}
	return s
}

// Start spawns the encoder and the cursor tracker and enters Recording.
// It fails with ErrAlreadyRecording unless the session is Idle. If the
// encoder cannot be spawned the session stays Idle.
func (s *Session) Start(ctx context.Context, cfg Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateIdle {
		return errors.NewRecordingError("cannot start", errors.ErrAlreadyRecording).
			WithState(s.stateLabel()).
			WithOutputPath(s.outputPath)
	}
	if cfg.OutputPath == "" {
		return errors.NewValidationError("output path is required").WithField("output_path")
	}
	if cfg.FPS <= 0 {
		cfg.FPS = DefaultFPS
	}
	cfg.ScreenWidth = max(1, cfg.ScreenWidth)
	cfg.ScreenHeight = max(1, cfg.ScreenHeight)

	proc, err := s.spawner.Spawn(ctx, encoder.Job{
		OutputPath:   cfg.OutputPath,
		ScreenDevice: cfg.ScreenDevice,
		MicDevice:    cfg.MicDevice,
		FPS:          cfg.FPS,
		X:            int(cfg.ScreenX),
		Y:            int(cfg.ScreenY),
		Width:        cfg.ScreenWidth,
		Height:       cfg.ScreenHeight,
	})
	if err != nil {
		return errors.Wrap(err, "failed to start recording")
	}

	tracker := s.newTracker()
	tracker.Start()

	s.proc = proc
	s.tracker = tracker
	s.outputPath = cfg.OutputPath
	s.markers = nil
	s.zoomed = false
	s.started = s.now()
	s.screen = cfg
	s.setState(StateRecording)

	s.logger.WithRecording(cfg.OutputPath).Info("recording started",
		"screen", cfg.ScreenDevice,
		"mic", cfg.MicDevice,
		"fps", cfg.FPS,
		"width", cfg.ScreenWidth,
		"height", cfg.ScreenHeight,
		"pid", proc.Pid(),
	)
	return nil
}

// Pause marks a Recording session Paused. The encoder keeps running.
func (s *Session) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateRecording || s.stopping {
		return errors.NewRecordingError("cannot pause", errors.ErrNotRecording).WithState(s.stateLabel())
	}
	s.setState(StatePaused)
	return nil
}

// Resume returns a Paused session to Recording.
func (s *Session) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StatePaused || s.stopping {
		return errors.NewRecordingError("cannot resume", errors.ErrNotPaused).WithState(s.stateLabel())
	}
	s.setState(StateRecording)
	return nil
}

// Stop finishes the recording and returns its output path. The encoder is
// asked to quit and killed if it has not exited within the stop timeout.
// The cursor and zoom sidecars are written and the session returns to Idle
// even when the encoder failed; in that case the *errors.EncoderError is
// returned with the path.
//
// The wait for the encoder happens without holding the session lock: State
// and Elapsed answer immediately, and Pause, Resume, ToggleZoom and Stop are
// rejected until the session is Idle again.
func (s *Session) Stop() (string, error) {
	s.mu.Lock()
	if !s.state.Active() || s.stopping {
		label := s.stateLabel()
		s.mu.Unlock()
		return "", errors.NewRecordingError("cannot stop", errors.ErrNotRecording).WithState(label)
	}

	s.stopping = true
	s.stoppedAt = s.now()
	out := s.outputPath
	proc, tracker := s.proc, s.tracker

	elapsed := s.elapsedMs()
	if s.zoomed {
		s.closeOpenMarker(elapsed)
	}
	complete := make([]ZoomMarker, 0, len(s.markers))
	for _, m := range s.markers {
		if m.Complete() {
			complete = append(complete, m)
		}
	}
	s.markers = complete
	s.mu.Unlock()

	logger := s.logger.WithRecording(out)

	encErr := encoder.Stop(proc, s.stopTimeout)
	if encErr != nil {
		logger.Error("encoder failed", "error", encErr)
	}
	if s.bus != nil {
		s.bus.Publish(event.NewEncoderExitedEvent(out, exitCode(encErr), encErr))
	}

	tracker.Stop()
	if err := tracker.SaveToFile(cursor.SidecarPath(out)); err != nil {
		logger.Warn("failed to save cursor samples", "error", err)
	}
	if len(complete) > 0 {
		if err := WriteZoomMarkers(ZoomSidecarPath(out), complete); err != nil {
			logger.Warn("failed to save zoom markers", "error", err)
		}
	}

	s.mu.Lock()
	s.stopping = false
	s.setState(StateIdle)
	s.proc = nil
	s.tracker = nil
	s.outputPath = ""
	s.started = time.Time{}
	s.stoppedAt = time.Time{}
	s.mu.Unlock()

	logger.Info("recording stopped",
		"duration_ms", elapsed,
		"zoom_markers", len(complete),
	)
	return out, encErr
}

// exitCode extracts the encoder exit status for events; 0 means success.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var encErr *errors.EncoderError
	if errors.As(err, &encErr) {
		return encErr.ExitCode
	}
	return -1
}

// ToggleZoom opens a zoom marker at the pointer position, or closes the
// open one. It returns the new marker when one was opened and nil when one
// was closed. A scale of 0 uses the default scale; any other scale must
// pass CheckZoomScale when a marker is opened. Only valid while Recording.
func (s *Session) ToggleZoom(scale float64) (*ZoomMarker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateRecording || s.stopping {
		return nil, errors.NewRecordingError("cannot toggle zoom", errors.ErrNotRecording).WithState(s.stateLabel())
	}

	now := s.elapsedMs()
	if s.zoomed {
		closed := s.closeOpenMarker(now)
		if s.bus != nil {
			s.bus.Publish(event.NewZoomToggledEvent(false, closed.StartMs, closed.EndMs, closed.X, closed.Y, closed.Scale))
		}
		return nil, nil
	}

	if scale == 0 {
		scale = s.zoomScale
	} else if err := CheckZoomScale(scale); err != nil {
		return nil, err
	}

	x, y := s.zoomCentre()
	m := ZoomMarker{StartMs: now, X: x, Y: y, Scale: scale}
	s.markers = append(s.markers, m)
	s.zoomed = true

	if s.bus != nil {
		s.bus.Publish(event.NewZoomToggledEvent(true, m.StartMs, 0, m.X, m.Y, m.Scale))
	}
	return &m, nil
}

// zoomCentre converts the pointer position to percentages of the recorded
// screen, clamped to [0, 100]. Without a pointer it falls back to the centre.
func (s *Session) zoomCentre() (float64, float64) {
	px, py, err := s.pointer.PointerPosition()
	if err != nil {
		s.logger.Warn("pointer unavailable, zooming on centre", "error", err)
		return 50, 50
	}
	x := (px - s.screen.ScreenX) / float64(s.screen.ScreenWidth) * 100
	y := (py - s.screen.ScreenY) / float64(s.screen.ScreenHeight) * 100
	return clampPercent(x), clampPercent(y)
}

func clampPercent(v float64) float64 {
	return min(100, max(0, v))
}

// closeOpenMarker must be called with mu held and zoomed set.
func (s *Session) closeOpenMarker(at uint64) ZoomMarker {
	s.zoomed = false
	last := len(s.markers) - 1
	if last < 0 || !s.markers[last].Open() {
		return ZoomMarker{}
	}
	s.markers[last].EndMs = at
	return s.markers[last]
}

func (s *Session) elapsedMs() uint64 {
	d := s.now().Sub(s.started)
	if d < 0 {
		return 0
	}
	return uint64(d.Milliseconds())
}

// stateLabel names the state for errors; must be called with mu held.
func (s *Session) stateLabel() string {
	if s.stopping {
		return "stopping"
	}
	return s.state.String()
}

func (s *Session) setState(next State) {
	prev := s.state
	s.state = next
	if prev == next {
		return
	}
	s.logger.Debug("recording state changed", "from", prev.String(), "to", next.String())
	if s.bus != nil {
		s.bus.Publish(event.NewRecordingStateChangedEvent(prev.String(), next.String(), s.outputPath))
	}
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Markers returns a copy of the zoom markers of the current recording, or
// of the last one after Stop.
func (s *Session) Markers() []ZoomMarker {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ZoomMarker(nil), s.markers...)
}

// Zoomed reports whether a zoom marker is open.
func (s *Session) Zoomed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.zoomed
}

// OutputPath returns the path of the active recording, or "" when Idle.
func (s *Session) OutputPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outputPath
}

// Stopping reports whether Stop is waiting for the encoder.
func (s *Session) Stopping() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopping
}

// Elapsed returns the time since Start, or 0 when Idle. While stopping it
// stays at the length the recording had when Stop was called.
func (s *Session) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.Active() {
		return 0
	}
	if s.stopping {
		return s.stoppedAt.Sub(s.started)
	}
	return s.now().Sub(s.started)
}
