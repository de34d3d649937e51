package capture

import (
	"testing"
	"time"

	"github.com/Iron-Ham/screenreel/internal/logging"
	"github.com/Iron-Ham/screenreel/internal/platform"
	"github.com/Iron-Ham/screenreel/internal/testutil"
)

func newTestSession(fps int) (*Session, *testutil.FakePlatform) {
	fp := testutil.NewFakePlatform()
	s := newSession("test", platform.KindScreen, 0, Options{FPS: fps, Width: 320, Height: 240}, 75, fp, logging.NopLogger())
	return s, fp
}

func TestSession_FrameRate(t *testing.T) {
	if testing.Short() {
		t.Skip("timing test")
	}
	s, _ := newTestSession(30)

	s.Start()
	time.Sleep(time.Second)
	s.Stop()

	if got := s.FrameCount(); got < 29 || got > 31 {
		t.Errorf("FrameCount() after 1s at 30 fps = %d, want 30±1", got)
	}
}

func TestSession_StartIsIdempotent(t *testing.T) {
	s, _ := newTestSession(30)
	s.Start()
	s.Start()
	defer s.Stop()

	if !s.IsRunning() {
		t.Error("IsRunning() = false after Start")
	}
}

func TestSession_StopJoinsLoop(t *testing.T) {
	s, fp := newTestSession(30)
	s.Start()
	testutil.WaitFor(t, 2*time.Second, "a frame", func() bool { return s.FrameCount() > 0 })

	s.Stop()
	if s.IsRunning() {
		t.Error("IsRunning() = true after Stop")
	}

	frames, captures := s.FrameCount(), fp.Captures()
	time.Sleep(100 * time.Millisecond)
	if s.FrameCount() != frames || fp.Captures() != captures {
		t.Error("the loop kept running after Stop returned")
	}
}

func TestSession_StopWithoutStart(t *testing.T) {
	s, _ := newTestSession(30)
	s.Stop()
	if err := s.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestSession_RestartAfterStop(t *testing.T) {
	s, _ := newTestSession(30)
	s.Start()
	s.Stop()

	before := s.FrameCount()
	s.Start()
	defer s.Stop()
	testutil.WaitFor(t, 2*time.Second, "frames after restart", func() bool { return s.FrameCount() > before })
}

func TestSession_SkippedCountsFailures(t *testing.T) {
	s, fp := newTestSession(30)
	fp.SetCaptureErr(platform.ErrUnavailable)

	s.Start()
	testutil.WaitFor(t, 2*time.Second, "skipped ticks", func() bool { return s.Skipped() >= 2 })
	s.Stop()

	if s.FrameCount() != 0 {
		t.Errorf("FrameCount() = %d, want 0", s.FrameCount())
	}
	if s.Err() != nil {
		t.Errorf("Err() = %v, want nil for transient failures", s.Err())
	}
}

func TestSession_Interval(t *testing.T) {
	s, _ := newTestSession(20)
	if got := s.Interval(); got != 50*time.Millisecond {
		t.Errorf("Interval() = %v, want 50ms", got)
	}
}
