// Package cursor samples the pointer position while a recording runs and
// stores the samples in a JSON sidecar next to the video.
package cursor

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Iron-Ham/screenreel/internal/logging"
)

// SidecarSuffix is appended to a recording path to name its cursor file.
const SidecarSuffix = ".mouse.json"

// DefaultInterval samples at roughly 60 Hz.
const DefaultInterval = 16 * time.Millisecond

// Sample is one pointer position. TimestampMs counts from Tracker.Start.
type Sample struct {
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	TimestampMs uint64  `json:"timestamp_ms"`
}

// Pointer reports the pointer position in global screen coordinates.
type Pointer interface {
	PointerPosition() (x, y float64, err error)
}

// Tracker polls a Pointer on a background goroutine.
type Tracker struct {
	pointer  Pointer
	interval time.Duration
	logger   *logging.Logger

	lifeMu  sync.Mutex // serializes Start and Stop
	running atomic.Bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	mu      sync.Mutex
	samples []Sample
}

// NewTracker creates a Tracker. A non-positive interval uses DefaultInterval
// and a nil logger discards output.
func NewTracker(p Pointer, interval time.Duration, logger *logging.Logger) *Tracker {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Tracker{
		pointer:  p,
		interval: interval,
		logger:   logger.WithComponent("cursor"),
	}
}

// Start clears previous samples and begins sampling. It does nothing if the
// tracker is already running.
func (t *Tracker) Start() {
	t.lifeMu.Lock()
	defer t.lifeMu.Unlock()

	if t.running.Load() {
		return
	}
	t.running.Store(true)

	t.mu.Lock()
	t.samples = nil
	t.mu.Unlock()

	t.stopCh = make(chan struct{})
	t.wg.Add(1)
	go t.loop(t.stopCh, time.Now())
}

// Stop ends sampling and waits for the loop to exit.
func (t *Tracker) Stop() {
	t.lifeMu.Lock()
	defer t.lifeMu.Unlock()

	if !t.running.Load() {
		return
	}
	t.running.Store(false)
	close(t.stopCh)
	t.wg.Wait()

	t.logger.Debug("cursor tracking stopped", "samples", t.Len())
}

// IsRunning reports whether the tracker is sampling.
func (t *Tracker) IsRunning() bool {
	return t.running.Load()
}

func (t *Tracker) loop(stop <-chan struct{}, started time.Time) {
	defer t.wg.Done()

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	t.sample(started)
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			t.sample(started)
		}
	}
}

func (t *Tracker) sample(started time.Time) {
	x, y, err := t.pointer.PointerPosition()
	if err != nil {
		return
	}
	s := Sample{X: x, Y: y, TimestampMs: uint64(time.Since(started).Milliseconds())}

	t.mu.Lock()
	t.samples = append(t.samples, s)
	t.mu.Unlock()
}

// Samples returns a copy of the samples collected so far.
func (t *Tracker) Samples() []Sample {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Sample(nil), t.samples...)
}

// Len returns the number of samples collected so far.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.samples)
}

// SaveToFile writes the samples to path as an indented JSON array.
func (t *Tracker) SaveToFile(path string) error {
	samples := t.Samples()
	if samples == nil {
		samples = []Sample{}
	}
	data, err := json.MarshalIndent(samples, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode cursor samples: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// LoadFromFile reads samples written by SaveToFile.
func LoadFromFile(path string) ([]Sample, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var samples []Sample
	if err := json.Unmarshal(data, &samples); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return samples, nil
}

// SidecarPath returns the cursor file path for a recording.
func SidecarPath(recordingPath string) string {
	return recordingPath + SidecarSuffix
}
