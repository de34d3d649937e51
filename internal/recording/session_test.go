package recording

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Iron-Ham/screenreel/internal/cursor"
	"github.com/Iron-Ham/screenreel/internal/errors"
	"github.com/Iron-Ham/screenreel/internal/event"
	"github.com/Iron-Ham/screenreel/internal/logging"
	"github.com/Iron-Ham/screenreel/internal/testutil"
)

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeTracker struct {
	mu      sync.Mutex
	starts  int
	stops   int
	savedTo string
}

func (t *fakeTracker) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.starts++
}

func (t *fakeTracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stops++
}

func (t *fakeTracker) SaveToFile(path string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.savedTo = path
	return os.WriteFile(path, []byte("[]"), 0644)
}

type harness struct {
	session  *Session
	spawner  *testutil.FakeSpawner
	platform *testutil.FakePlatform
	clock    *fakeClock
	tracker  *fakeTracker
	out      string
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		spawner:  testutil.NewFakeSpawner(),
		platform: testutil.NewFakePlatform(),
		clock:    newFakeClock(),
		tracker:  &fakeTracker{},
		out:      filepath.Join(t.TempDir(), "recording_20240501_120000.mp4"),
	}
	base := []Option{
		WithClock(h.clock.Now),
		WithTrackerFactory(func() Tracker { return h.tracker }),
	}
	h.session = NewSession(h.spawner, h.platform, append(base, opts...)...)
	return h
}

func (h *harness) config() Config {
	return Config{
		OutputPath:   h.out,
		ScreenDevice: "1",
		FPS:          30,
		ScreenWidth:  1920,
		ScreenHeight: 1080,
	}
}

func (h *harness) start(t *testing.T) {
	t.Helper()
	if err := h.session.Start(context.Background(), h.config()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
}

func TestSession_WrongStateErrors(t *testing.T) {
	h := newHarness(t)
	s := h.session

	if err := s.Pause(); !errors.Is(err, errors.ErrNotRecording) {
		t.Errorf("Pause() from Idle = %v, want ErrNotRecording", err)
	}
	if err := s.Resume(); !errors.Is(err, errors.ErrNotPaused) {
		t.Errorf("Resume() from Idle = %v, want ErrNotPaused", err)
	}
	if _, err := s.Stop(); !errors.Is(err, errors.ErrNotRecording) {
		t.Errorf("Stop() from Idle = %v, want ErrNotRecording", err)
	}
	if _, err := s.ToggleZoom(2); !errors.Is(err, errors.ErrNotRecording) {
		t.Errorf("ToggleZoom() from Idle = %v, want ErrNotRecording", err)
	}
	if s.State() != StateIdle {
		t.Errorf("State() = %v, want idle", s.State())
	}
}

func TestSession_DoubleStart(t *testing.T) {
	h := newHarness(t)
	h.start(t)

	err := h.session.Start(context.Background(), h.config())
	if !errors.Is(err, errors.ErrAlreadyRecording) {
		t.Fatalf("second Start() = %v, want ErrAlreadyRecording", err)
	}
	if !strings.Contains(err.Error(), "already recording") {
		t.Errorf("error text = %q", err.Error())
	}
	if n := len(h.spawner.Jobs()); n != 1 {
		t.Errorf("spawned %d encoders, want 1", n)
	}
	if h.session.State() != StateRecording {
		t.Errorf("State() = %v, want recording", h.session.State())
	}
}

func TestSession_SpawnFailureStaysIdle(t *testing.T) {
	h := newHarness(t)
	h.spawner.FailWith(errors.NewEncoderError("failed to start ffmpeg", errors.ErrEncoderSpawn))

	err := h.session.Start(context.Background(), h.config())
	if !errors.Is(err, errors.ErrEncoderSpawn) {
		t.Fatalf("Start() = %v, want ErrEncoderSpawn", err)
	}
	if h.session.State() != StateIdle {
		t.Errorf("State() = %v, want idle", h.session.State())
	}
	if h.tracker.starts != 0 {
		t.Error("tracker started although the encoder failed")
	}
	if h.session.OutputPath() != "" {
		t.Errorf("OutputPath() = %q, want empty", h.session.OutputPath())
	}
}

func TestSession_StartRequiresOutputPath(t *testing.T) {
	h := newHarness(t)
	err := h.session.Start(context.Background(), Config{})
	if !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("Start() = %v, want ErrInvalidInput", err)
	}
}

func TestSession_StartBuildsJob(t *testing.T) {
	h := newHarness(t)
	cfg := h.config()
	cfg.MicDevice = "0"
	cfg.ScreenX, cfg.ScreenY = -1440, 200
	cfg.ScreenWidth, cfg.ScreenHeight = 0, -3
	cfg.FPS = 0

	if err := h.session.Start(context.Background(), cfg); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	jobs := h.spawner.Jobs()
	if len(jobs) != 1 {
		t.Fatalf("len(jobs) = %d", len(jobs))
	}
	job := jobs[0]
	if job.OutputPath != h.out || job.ScreenDevice != "1" || job.MicDevice != "0" {
		t.Errorf("job = %+v", job)
	}
	if job.Width != 1 || job.Height != 1 {
		t.Errorf("job size = %dx%d, want clamped to 1x1", job.Width, job.Height)
	}
	if job.X != -1440 || job.Y != 200 {
		t.Errorf("job origin = %d,%d", job.X, job.Y)
	}
	if job.FPS != DefaultFPS {
		t.Errorf("job FPS = %d, want %d", job.FPS, DefaultFPS)
	}
	if h.tracker.starts != 1 {
		t.Errorf("tracker starts = %d, want 1", h.tracker.starts)
	}
}

func TestSession_PauseResume(t *testing.T) {
	h := newHarness(t)
	h.start(t)
	s := h.session

	if err := s.Resume(); !errors.Is(err, errors.ErrNotPaused) {
		t.Errorf("Resume() while recording = %v, want ErrNotPaused", err)
	}
	if err := s.Pause(); err != nil {
		t.Fatalf("Pause() error = %v", err)
	}
	if s.State() != StatePaused {
		t.Errorf("State() = %v, want paused", s.State())
	}
	if err := s.Pause(); !errors.Is(err, errors.ErrNotRecording) {
		t.Errorf("Pause() while paused = %v, want ErrNotRecording", err)
	}
	if _, err := s.ToggleZoom(2); !errors.Is(err, errors.ErrNotRecording) {
		t.Errorf("ToggleZoom() while paused = %v, want ErrNotRecording", err)
	}
	if got := h.spawner.Last().Quits(); got != 0 {
		t.Errorf("encoder quit %d times on pause, want 0", got)
	}
	if err := s.Resume(); err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	if s.State() != StateRecording {
		t.Errorf("State() = %v, want recording", s.State())
	}
}

func TestSession_StopFromPaused(t *testing.T) {
	h := newHarness(t)
	h.start(t)
	_ = h.session.Pause()

	path, err := h.session.Stop()
	if err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if path != h.out {
		t.Errorf("Stop() path = %q, want %q", path, h.out)
	}
	if h.session.State() != StateIdle {
		t.Errorf("State() = %v, want idle", h.session.State())
	}
}

func TestSession_ZoomRoundTrip(t *testing.T) {
	h := newHarness(t)
	h.start(t)
	h.platform.SetPointer(960, 270)

	h.clock.Advance(time.Second)
	m, err := h.session.ToggleZoom(2)
	if err != nil {
		t.Fatalf("ToggleZoom() error = %v", err)
	}
	want := ZoomMarker{StartMs: 1000, EndMs: 0, X: 50, Y: 25, Scale: 2}
	if m == nil || *m != want {
		t.Fatalf("ToggleZoom() = %+v, want %+v", m, want)
	}
	if !h.session.Zoomed() {
		t.Error("Zoomed() = false after opening a marker")
	}

	h.clock.Advance(500 * time.Millisecond)
	m, err = h.session.ToggleZoom(2)
	if err != nil || m != nil {
		t.Fatalf("second ToggleZoom() = %+v, %v; want nil, nil", m, err)
	}

	markers := h.session.Markers()
	want.EndMs = 1500
	if len(markers) != 1 || markers[0] != want {
		t.Fatalf("Markers() = %+v, want [%+v]", markers, want)
	}

	if _, err := h.session.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	got, err := ReadZoomMarkers(h.out)
	if err != nil {
		t.Fatalf("ReadZoomMarkers() error = %v", err)
	}
	if len(got) != 1 || got[0] != want {
		t.Errorf("persisted markers = %+v, want [%+v]", got, want)
	}
}

func TestSession_StopClosesOpenMarker(t *testing.T) {
	h := newHarness(t)
	h.start(t)

	h.clock.Advance(1000 * time.Millisecond)
	if _, err := h.session.ToggleZoom(0); err != nil {
		t.Fatalf("ToggleZoom() error = %v", err)
	}
	h.clock.Advance(3000 * time.Millisecond)

	if _, err := h.session.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	got, _ := ReadZoomMarkers(h.out)
	if len(got) != 1 {
		t.Fatalf("persisted %d markers, want 1", len(got))
	}
	if got[0].StartMs != 1000 || got[0].EndMs != 4000 {
		t.Errorf("marker span = %d..%d, want 1000..4000", got[0].StartMs, got[0].EndMs)
	}
	if got[0].Scale != DefaultZoomScale {
		t.Errorf("Scale = %v, want default %v", got[0].Scale, DefaultZoomScale)
	}
	if h.session.Zoomed() {
		t.Error("Zoomed() = true after Stop")
	}
}

func TestSession_EmptyMarkersAreDropped(t *testing.T) {
	h := newHarness(t)
	h.start(t)

	h.clock.Advance(time.Second)
	_, _ = h.session.ToggleZoom(2)
	_, _ = h.session.ToggleZoom(2) // same instant: zero length

	if _, err := h.session.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if _, err := os.Stat(ZoomSidecarPath(h.out)); !os.IsNotExist(err) {
		t.Errorf("zoom file exists for a recording without complete markers (stat err = %v)", err)
	}
	if got := h.session.Markers(); len(got) != 0 {
		t.Errorf("Markers() after Stop = %+v, want none", got)
	}
}

func TestSession_ZoomCentre(t *testing.T) {
	tests := []struct {
		name         string
		originX      float64
		originY      float64
		px, py       float64
		pointerErr   error
		wantX, wantY float64
	}{
		{name: "centre", px: 960, py: 540, wantX: 50, wantY: 50},
		{name: "second monitor", originX: 1920, px: 1920 + 480, py: 1080, wantX: 25, wantY: 100},
		{name: "left of screen clamps to 0", originX: 1920, px: 100, py: -50, wantX: 0, wantY: 0},
		{name: "beyond screen clamps to 100", px: 5000, py: 5000, wantX: 100, wantY: 100},
		{name: "negative origin", originX: -1920, originY: -1080, px: -960, py: -540, wantX: 50, wantY: 50},
		{name: "pointer unavailable", pointerErr: errors.New("no pointer"), wantX: 50, wantY: 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			cfg := h.config()
			cfg.ScreenX, cfg.ScreenY = tt.originX, tt.originY
			if err := h.session.Start(context.Background(), cfg); err != nil {
				t.Fatalf("Start() error = %v", err)
			}
			h.platform.SetPointer(tt.px, tt.py)
			h.platform.SetPointerErr(tt.pointerErr)

			m, err := h.session.ToggleZoom(2)
			if err != nil {
				t.Fatalf("ToggleZoom() error = %v", err)
			}
			if m.X != tt.wantX || m.Y != tt.wantY {
				t.Errorf("marker centre = (%v, %v), want (%v, %v)", m.X, m.Y, tt.wantX, tt.wantY)
			}
		})
	}
}

func TestSession_ToggleZoomRejectsBadScale(t *testing.T) {
	h := newHarness(t)
	h.start(t)

	for _, scale := range []float64{0.5, -2, 11} {
		m, err := h.session.ToggleZoom(scale)
		if !errors.Is(err, errors.ErrInvalidInput) || m != nil {
			t.Errorf("ToggleZoom(%v) = %+v, %v; want ErrInvalidInput", scale, m, err)
		}
	}
	if h.session.Zoomed() || len(h.session.Markers()) != 0 {
		t.Error("a rejected scale opened a marker")
	}
}

func TestSession_DefaultZoomScaleOption(t *testing.T) {
	h := newHarness(t, WithDefaultZoomScale(3.5))
	h.start(t)

	m, err := h.session.ToggleZoom(0)
	if err != nil {
		t.Fatalf("ToggleZoom() error = %v", err)
	}
	if m.Scale != 3.5 {
		t.Errorf("Scale = %v, want 3.5", m.Scale)
	}
}

func TestSession_StopWritesCursorSidecar(t *testing.T) {
	h := newHarness(t)
	h.start(t)

	if _, err := h.session.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if h.tracker.stops != 1 {
		t.Errorf("tracker stops = %d, want 1", h.tracker.stops)
	}
	if want := cursor.SidecarPath(h.out); h.tracker.savedTo != want {
		t.Errorf("cursor samples saved to %q, want %q", h.tracker.savedTo, want)
	}
	if got := h.spawner.Last().Quits(); got != 1 {
		t.Errorf("encoder quits = %d, want 1", got)
	}
}

func TestSession_StopWithEncoderFailure(t *testing.T) {
	h := newHarness(t)
	h.spawner.ExitWith(errors.NewEncoderError("ffmpeg exited", errors.ErrEncoderExit).
		WithExitCode(1).
		WithStderrTail("Conversion failed!"))
	h.start(t)

	h.clock.Advance(time.Second)
	_, _ = h.session.ToggleZoom(2)
	h.clock.Advance(time.Second)

	path, err := h.session.Stop()
	if path != h.out {
		t.Errorf("Stop() path = %q, want %q", path, h.out)
	}
	var encErr *errors.EncoderError
	if !errors.As(err, &encErr) {
		t.Fatalf("Stop() error = %v, want *EncoderError", err)
	}
	if encErr.ExitCode != 1 || encErr.StderrTail != "Conversion failed!" {
		t.Errorf("EncoderError = %+v", encErr)
	}

	// Cleanup still ran.
	if h.session.State() != StateIdle {
		t.Errorf("State() = %v, want idle", h.session.State())
	}
	if h.tracker.stops != 1 {
		t.Error("tracker not stopped after encoder failure")
	}
	if got, _ := ReadZoomMarkers(h.out); len(got) != 1 {
		t.Errorf("zoom markers not saved after encoder failure: %+v", got)
	}
	if err := h.session.Start(context.Background(), h.config()); err != nil {
		t.Errorf("Start() after failed Stop = %v", err)
	}
}

func TestSession_StopKillsHungEncoder(t *testing.T) {
	h := newHarness(t, WithStopTimeout(20*time.Millisecond))
	h.spawner.Hang()
	h.start(t)

	path, err := h.session.Stop()
	if !errors.Is(err, errors.ErrTimeout) {
		t.Fatalf("Stop() error = %v, want ErrTimeout", err)
	}
	if path != h.out {
		t.Errorf("Stop() path = %q, want %q", path, h.out)
	}
	p := h.spawner.Last()
	if p.Quits() != 1 || p.Kills() != 1 {
		t.Errorf("quits = %d, kills = %d; want 1 and 1", p.Quits(), p.Kills())
	}
	if h.session.State() != StateIdle {
		t.Errorf("State() = %v, want idle", h.session.State())
	}
}

func TestSession_ReadsDoNotBlockDuringStop(t *testing.T) {
	h := newHarness(t, WithStopTimeout(500*time.Millisecond))
	h.spawner.Hang()
	h.start(t)
	h.clock.Advance(3 * time.Second)

	done := make(chan error, 1)
	go func() {
		_, err := h.session.Stop()
		done <- err
	}()
	testutil.WaitFor(t, time.Second, "the encoder to be asked to quit", func() bool {
		return h.spawner.Last().Quits() == 1
	})
	h.clock.Advance(time.Second)

	begin := time.Now()
	state := h.session.State()
	elapsed := h.session.Elapsed()
	stopping := h.session.Stopping()
	_, zoomErr := h.session.ToggleZoom(2)
	pauseErr := h.session.Pause()
	_, stopErr := h.session.Stop()
	if took := time.Since(begin); took > 100*time.Millisecond {
		t.Errorf("reads during Stop took %v", took)
	}

	if state != StateRecording {
		t.Errorf("State() during Stop = %v, want recording", state)
	}
	if elapsed != 3*time.Second {
		t.Errorf("Elapsed() during Stop = %v, want 3s", elapsed)
	}
	if !stopping {
		t.Error("Stopping() = false during Stop")
	}
	if !errors.Is(zoomErr, errors.ErrNotRecording) {
		t.Errorf("ToggleZoom() during Stop = %v, want ErrNotRecording", zoomErr)
	}
	if !errors.Is(pauseErr, errors.ErrNotRecording) {
		t.Errorf("Pause() during Stop = %v, want ErrNotRecording", pauseErr)
	}
	if !errors.Is(stopErr, errors.ErrNotRecording) {
		t.Errorf("second Stop() = %v, want ErrNotRecording", stopErr)
	}

	select {
	case err := <-done:
		t.Fatalf("Stop() returned %v before the stop timeout", err)
	default:
	}

	if err := <-done; !errors.Is(err, errors.ErrTimeout) {
		t.Errorf("Stop() error = %v, want ErrTimeout", err)
	}
	if h.session.State() != StateIdle || h.session.Stopping() {
		t.Errorf("after Stop: State() = %v, Stopping() = %v", h.session.State(), h.session.Stopping())
	}
}

func TestSession_RealTrackerWritesSidecar(t *testing.T) {
	spawner := testutil.NewFakeSpawner()
	fp := testutil.NewFakePlatform()
	fp.SetPointer(10, 20)
	s := NewSession(spawner, fp, WithCursorInterval(time.Millisecond))

	out := filepath.Join(t.TempDir(), "rec.mp4")
	if err := s.Start(context.Background(), Config{OutputPath: out, ScreenWidth: 100, ScreenHeight: 100}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	testutil.WaitFor(t, 2*time.Second, "pointer samples", func() bool { return fp.PointerQueries() >= 3 })
	if _, err := s.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	samples, err := cursor.LoadFromFile(cursor.SidecarPath(out))
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if len(samples) == 0 {
		t.Fatal("no cursor samples saved")
	}
	if samples[0].X != 10 || samples[0].Y != 20 {
		t.Errorf("samples[0] = %+v", samples[0])
	}
}

func TestSession_Elapsed(t *testing.T) {
	h := newHarness(t)
	if h.session.Elapsed() != 0 {
		t.Error("Elapsed() while idle is not 0")
	}
	h.start(t)
	h.clock.Advance(2500 * time.Millisecond)
	if got := h.session.Elapsed(); got != 2500*time.Millisecond {
		t.Errorf("Elapsed() = %v, want 2.5s", got)
	}
}

func TestSession_PublishesEvents(t *testing.T) {
	bus := event.NewBus(logging.NopLogger())
	var mu sync.Mutex
	var types []string
	var transitions []string
	bus.SubscribeAll(func(e event.Event) {
		mu.Lock()
		defer mu.Unlock()
		types = append(types, e.EventType())
		if sc, ok := e.(event.RecordingStateChangedEvent); ok {
			transitions = append(transitions, sc.Previous+"->"+sc.Current)
		}
	})

	h := newHarness(t, WithEventBus(bus))
	h.start(t)
	_ = h.session.Pause()
	_ = h.session.Resume()
	h.clock.Advance(time.Second)
	_, _ = h.session.ToggleZoom(2)
	if _, err := h.session.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	wantTransitions := []string{"idle->recording", "recording->paused", "paused->recording", "recording->idle"}
	if strings.Join(transitions, ",") != strings.Join(wantTransitions, ",") {
		t.Errorf("transitions = %v, want %v", transitions, wantTransitions)
	}
	var zooms, exits int
	for _, ty := range types {
		switch ty {
		case event.TypeZoomToggled:
			zooms++
		case event.TypeEncoderExited:
			exits++
		}
	}
	if zooms != 1 || exits != 1 {
		t.Errorf("zoom events = %d, encoder events = %d; want 1 and 1", zooms, exits)
	}
}

func TestState_String(t *testing.T) {
	tests := map[State]string{
		StateIdle:      "idle",
		StateRecording: "recording",
		StatePaused:    "paused",
		State(9):       "unknown",
	}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", int(s), got, want)
		}
	}
}
