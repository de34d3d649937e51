// Package testutil provides fakes and helpers shared by screenreel tests.
package testutil

import (
	"context"
	"encoding/json"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Iron-Ham/screenreel/internal/encoder"
	"github.com/Iron-Ham/screenreel/internal/platform"
)

// FakePlatform is an in-memory platform.Platform. Its zero value captures a
// 64x48 grey image for any source and reports the pointer at the origin.
type FakePlatform struct {
	mu         sync.Mutex
	sources    []platform.Source
	img        image.Image
	captureErr error
	delay      time.Duration
	pointerX   float64
	pointerY   float64
	pointerErr error

	captures atomic.Int64
	pointers atomic.Int64
}

// NewFakePlatform creates a FakePlatform with the given sources.
func NewFakePlatform(sources ...platform.Source) *FakePlatform {
	return &FakePlatform{sources: sources}
}

// SolidImage returns a w x h image filled with c.
func SolidImage(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// SetImage sets the image returned by CaptureStill.
func (f *FakePlatform) SetImage(img image.Image) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.img = img
}

// SetCaptureErr makes CaptureStill fail with err until reset with nil.
func (f *FakePlatform) SetCaptureErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.captureErr = err
}

// SetCaptureDelay makes every CaptureStill take at least d, like a slow
// screen grab.
func (f *FakePlatform) SetCaptureDelay(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delay = d
}

// SetPointer sets the pointer position.
func (f *FakePlatform) SetPointer(x, y float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pointerX, f.pointerY = x, y
}

// SetPointerErr makes PointerPosition fail with err until reset with nil.
func (f *FakePlatform) SetPointerErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pointerErr = err
}

// Captures returns the number of CaptureStill calls.
func (f *FakePlatform) Captures() int64 {
	return f.captures.Load()
}

// PointerQueries returns the number of PointerPosition calls.
func (f *FakePlatform) PointerQueries() int64 {
	return f.pointers.Load()
}

// EnumerateSources implements platform.Platform.
func (f *FakePlatform) EnumerateSources(ctx context.Context) ([]platform.Source, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]platform.Source(nil), f.sources...), nil
}

// CaptureStill implements platform.Platform.
func (f *FakePlatform) CaptureStill(platform.SourceKind, uint32) (image.Image, error) {
	f.captures.Add(1)
	f.mu.Lock()
	delay := f.delay
	f.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.captureErr != nil {
		return nil, f.captureErr
	}
	if f.img == nil {
		f.img = SolidImage(64, 48, color.Gray{Y: 128})
	}
	return f.img, nil
}

// PointerPosition implements platform.Platform.
func (f *FakePlatform) PointerPosition() (float64, float64, error) {
	f.pointers.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pointerErr != nil {
		return 0, 0, f.pointerErr
	}
	return f.pointerX, f.pointerY, nil
}

// FakeProcess is an encoder.Process that exits when told to.
type FakeProcess struct {
	mu     sync.Mutex
	quits  int
	kills  int
	pid    int
	err    error
	ignore bool // ignore Quit, like a hung encoder

	done chan struct{}
	once sync.Once
}

// NewFakeProcess creates a FakeProcess that exits on Quit and reports err
// from Wait.
func NewFakeProcess(pid int, err error) *FakeProcess {
	return &FakeProcess{pid: pid, err: err, done: make(chan struct{})}
}

// IgnoreQuit makes the process keep running after Quit.
func (p *FakeProcess) IgnoreQuit() *FakeProcess {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ignore = true
	return p
}

// Exit terminates the process as if it had ended on its own.
func (p *FakeProcess) Exit() {
	p.once.Do(func() { close(p.done) })
}

// Quits returns how often Quit was called.
func (p *FakeProcess) Quits() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.quits
}

// Kills returns how often Kill was called.
func (p *FakeProcess) Kills() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.kills
}

// Pid implements encoder.Process.
func (p *FakeProcess) Pid() int { return p.pid }

// Quit implements encoder.Process.
func (p *FakeProcess) Quit() error {
	p.mu.Lock()
	p.quits++
	ignore := p.ignore
	p.mu.Unlock()
	if !ignore {
		p.Exit()
	}
	return nil
}

// Kill implements encoder.Process.
func (p *FakeProcess) Kill() error {
	p.mu.Lock()
	p.kills++
	p.mu.Unlock()
	p.Exit()
	return nil
}

// Done implements encoder.Process.
func (p *FakeProcess) Done() <-chan struct{} { return p.done }

// Wait implements encoder.Process.
func (p *FakeProcess) Wait() error {
	<-p.done
	return p.err
}

// FakeSpawner is an encoder.Spawner that records jobs and hands out
// FakeProcesses.
type FakeSpawner struct {
	mu      sync.Mutex
	jobs    []encoder.Job
	procs   []*FakeProcess
	err     error
	exitErr error
	hang    bool
}

// NewFakeSpawner creates a FakeSpawner whose processes exit cleanly on Quit.
func NewFakeSpawner() *FakeSpawner {
	return &FakeSpawner{}
}

// FailWith makes the next spawns fail with err.
func (s *FakeSpawner) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// ExitWith makes spawned processes report err from Wait.
func (s *FakeSpawner) ExitWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exitErr = err
}

// Hang makes spawned processes ignore Quit.
func (s *FakeSpawner) Hang() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hang = true
}

// Spawn implements encoder.Spawner.
func (s *FakeSpawner) Spawn(ctx context.Context, job encoder.Job) (encoder.Process, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	s.jobs = append(s.jobs, job)
	p := NewFakeProcess(1000+len(s.procs), s.exitErr)
	if s.hang {
		p.IgnoreQuit()
	}
	s.procs = append(s.procs, p)
	return p, nil
}

// Jobs returns the jobs spawned so far.
func (s *FakeSpawner) Jobs() []encoder.Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]encoder.Job(nil), s.jobs...)
}

// Last returns the most recently spawned process, or nil.
func (s *FakeSpawner) Last() *FakeProcess {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.procs) == 0 {
		return nil
	}
	return s.procs[len(s.procs)-1]
}

// WaitFor polls cond every 5ms until it returns true or timeout elapses, in
// which case the test fails with msg.
func WaitFor(t *testing.T, timeout time.Duration, msg string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out after %v waiting for %s", timeout, msg)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// WriteJSON writes v as JSON to name inside dir and returns the full path.
func WriteJSON(t *testing.T, dir, name string, v any) string {
	t.Helper()

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		t.Fatalf("failed to marshal %s: %v", name, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}
