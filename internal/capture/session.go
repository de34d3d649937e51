package capture

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/Iron-Ham/screenreel/internal/errors"
	"github.com/Iron-Ham/screenreel/internal/logging"
	"github.com/Iron-Ham/screenreel/internal/platform"
)

// Options configures a capture session. Zero values are replaced by the
// manager's defaults.
type Options struct {
	FPS    int
	Width  int
	Height int
}

// Session repeatedly grabs stills of one source and keeps the newest one in
// its FrameBuffer. The loop runs on its own goroutine between Start and Stop.
type Session struct {
	id       string
	kind     platform.SourceKind
	nativeID uint32
	fps      int
	width    int
	height   int
	quality  int

	platform platform.Platform
	buffer   *FrameBuffer
	logger   *logging.Logger

	running atomic.Bool
	skipped atomic.Uint64

	mu     sync.Mutex // serializes Start and Stop, guards stopCh
	stopCh chan struct{}
	wg     sync.WaitGroup

	errMu sync.Mutex
	err   error
}

func newSession(id string, kind platform.SourceKind, nativeID uint32, opts Options, quality int, p platform.Platform, logger *logging.Logger) *Session {
	return &Session{
		id:       id,
		kind:     kind,
		nativeID: nativeID,
		fps:      opts.FPS,
		width:    opts.Width,
		height:   opts.Height,
		quality:  quality,
		platform: p,
		buffer:   NewFrameBuffer(),
		logger:   logger.WithSource(id),
	}
}

// Start launches the capture loop. Calling Start on a running session does
// nothing.
func (s *Session) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running.Load() {
		return
	}

	// A loop that ended on its own (fatal capture error) may still be
	// unwinding.
	s.wg.Wait()

	stop := make(chan struct{})
	s.stopCh = stop
	s.setErr(nil)
	s.running.Store(true)

	s.wg.Add(1)
	go s.loop(stop)
}

// Stop signals the loop and waits for it to exit. No frame is stored after
// Stop returns.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.running.Store(false)
	if s.stopCh != nil {
		close(s.stopCh)
		s.stopCh = nil
	}
	s.wg.Wait()
}

// Close stops the session.
func (s *Session) Close() error {
	s.Stop()
	return nil
}

// IsRunning reports whether the capture loop is active.
func (s *Session) IsRunning() bool {
	return s.running.Load()
}

// FrameCount returns the number of frames stored so far.
func (s *Session) FrameCount() uint64 {
	return s.buffer.Count()
}

// Skipped returns the number of ticks that produced no frame.
func (s *Session) Skipped() uint64 {
	return s.skipped.Load()
}

// Err returns the *errors.CaptureError that ended the loop, if it ended on
// its own.
func (s *Session) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

// Latest returns the newest frame.
func (s *Session) Latest() (Frame, bool) {
	return s.buffer.Latest()
}

// Interval returns the target time between ticks.
func (s *Session) Interval() time.Duration {
	return time.Second / time.Duration(s.fps)
}

func (s *Session) loop(stop <-chan struct{}) {
	defer s.wg.Done()
	defer s.running.Store(false)

	interval := s.Interval()
	timer := time.NewTimer(interval)
	timer.Stop()
	defer timer.Stop()

	failing := false
	for {
		started := time.Now()

		err := s.tick()
		switch {
		case err == nil:
			failing = false
		case platform.IsFatal(err):
			s.logger.Error("capture stopped", "error", err)
			s.setErr(errors.NewCaptureError("capture stopped", err).
				WithSourceID(s.id).
				WithSeverity(errors.SeverityCritical))
			return
		default:
			s.skipped.Add(1)
			if !failing {
				s.logger.Debug("capture tick skipped", "error", err)
			}
			failing = true
		}

		wait := interval - time.Since(started)
		if wait <= 0 {
			select {
			case <-stop:
				return
			default:
				continue
			}
		}

		timer.Reset(wait)
		select {
		case <-stop:
			return
		case <-timer.C:
		}
	}
}

// tick grabs, scales and stores one frame.
func (s *Session) tick() error {
	img, err := s.platform.CaptureStill(s.kind, s.nativeID)
	if err != nil {
		return err
	}
	data, err := encodeFrame(img, s.width, s.height, s.quality)
	if err != nil {
		return err
	}
	s.buffer.Store(Frame{
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
		Width:     s.width,
		Height:    s.height,
	})
	return nil
}

func (s *Session) setErr(err error) {
	s.errMu.Lock()
	s.err = err
	s.errMu.Unlock()
}
