// Package internal contains integration tests that verify the packages work
// together: live capture and a full recording flow driven through the app,
// with events observed on the shared bus and sidecars read back from disk.
package internal

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/Iron-Ham/screenreel/internal/app"
	"github.com/Iron-Ham/screenreel/internal/capture"
	"github.com/Iron-Ham/screenreel/internal/config"
	"github.com/Iron-Ham/screenreel/internal/cursor"
	"github.com/Iron-Ham/screenreel/internal/encoder"
	"github.com/Iron-Ham/screenreel/internal/event"
	"github.com/Iron-Ham/screenreel/internal/platform"
	"github.com/Iron-Ham/screenreel/internal/recording"
	"github.com/Iron-Ham/screenreel/internal/testutil"
)

type eventLog struct {
	mu     sync.Mutex
	events []event.Event
}

func (l *eventLog) record(e event.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) types() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.events))
	for i, e := range l.events {
		out[i] = e.EventType()
	}
	return out
}

func (l *eventLog) transitions() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []string
	for _, e := range l.events {
		if sc, ok := e.(event.RecordingStateChangedEvent); ok {
			out = append(out, sc.Previous+"->"+sc.Current)
		}
	}
	return out
}

func newIntegrationApp(t *testing.T) (*app.App, *testutil.FakePlatform, *eventLog, string) {
	t.Helper()

	screen := platform.Source{ID: 1, Kind: platform.KindScreen, Name: "Main", Width: 1920, Height: 1080, Primary: true}
	fp := testutil.NewFakePlatform(screen)
	dir := t.TempDir()

	cfg := config.Default()
	cfg.Recording.OutputDir = dir
	cfg.Cursor.SampleIntervalMs = 5

	bus := event.NewBus(nil)
	log := &eventLog{}
	bus.SubscribeAll(log.record)

	a := app.New(cfg, fp, nil,
		app.WithEventBus(bus),
		app.WithSpawner(testutil.NewFakeSpawner()),
		app.WithDeviceLister(func(context.Context) (encoder.DeviceList, error) {
			return encoder.DeviceList{Screens: []encoder.Device{{ID: "1", Name: "Capture screen 0", Kind: encoder.DeviceScreen}}}, nil
		}),
	)
	t.Cleanup(func() { _ = a.Close() })
	return a, fp, log, dir
}

// TestCapturePublishesLifecycle runs a preview capture through the app and
// checks the bus sees it start and stop.
func TestCapturePublishesLifecycle(t *testing.T) {
	a, _, log, _ := newIntegrationApp(t)

	if err := a.StartCapture("main", "screen", 1, capture.Options{FPS: 30, Width: 320, Height: 240}); err != nil {
		t.Fatalf("StartCapture() error = %v", err)
	}
	testutil.WaitFor(t, 2*time.Second, "first preview frame", func() bool {
		_, ok := a.GetFrame("main")
		return ok
	})

	payload, _ := a.GetFrame("main")
	if payload.SourceID != "main" || payload.FrameBase64 == "" {
		t.Errorf("GetFrame() = %+v, want a frame for main", payload)
	}
	if payload.Width != 320 || payload.Height != 240 {
		t.Errorf("payload size = %dx%d, want 320x240", payload.Width, payload.Height)
	}

	a.StopCapture("main")

	types := log.types()
	for _, want := range []string{event.TypeCaptureStarted, event.TypeCaptureStopped} {
		if !slices.Contains(types, want) {
			t.Errorf("events = %v, missing %q", types, want)
		}
	}
	if got := a.ActiveCaptures(); len(got) != 0 {
		t.Errorf("ActiveCaptures() = %v, want none", got)
	}
}

// TestRecordingFlow records with one zoom span and checks the sidecars, the
// zoom watcher and the published events agree.
func TestRecordingFlow(t *testing.T) {
	a, fp, log, dir := newIntegrationApp(t)

	path, err := a.StartRecording(context.Background(), "1", "")
	if err != nil {
		t.Fatalf("StartRecording() error = %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Errorf("recording path %q is not in %q", path, dir)
	}

	var (
		mu      sync.Mutex
		watched []recording.ZoomMarker
	)
	w, err := recording.NewWatcher(path, func(m []recording.ZoomMarker) {
		mu.Lock()
		defer mu.Unlock()
		watched = m
	}, nil)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	w.Start()
	defer w.Stop()

	fp.SetPointer(960, 270)
	if _, err := a.ToggleZoom(0); err != nil {
		t.Fatalf("ToggleZoom(open) error = %v", err)
	}
	time.Sleep(30 * time.Millisecond)
	if _, err := a.ToggleZoom(0); err != nil {
		t.Fatalf("ToggleZoom(close) error = %v", err)
	}

	saved, err := a.StopRecording()
	if err != nil {
		t.Fatalf("StopRecording() error = %v", err)
	}
	if saved != path {
		t.Errorf("StopRecording() = %q, want %q", saved, path)
	}

	markers, err := a.ReadZoomMarkers(path)
	if err != nil {
		t.Fatalf("ReadZoomMarkers() error = %v", err)
	}
	if len(markers) != 1 {
		t.Fatalf("markers = %+v, want one", markers)
	}
	m := markers[0]
	if m.X != 50 || m.Y != 25 || m.Scale != 2 || !m.Complete() {
		t.Errorf("marker = %+v, want a complete 2x span at 50,25", m)
	}

	testutil.WaitFor(t, 2*time.Second, "watcher reload", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(watched) == 1
	})

	if _, err := os.Stat(cursor.SidecarPath(path)); err != nil {
		t.Errorf("cursor sidecar missing: %v", err)
	}
	if _, err := cursor.LoadFromFile(cursor.SidecarPath(path)); err != nil {
		t.Errorf("cursor sidecar unreadable: %v", err)
	}

	wantTransitions := []string{"idle->recording", "recording->idle"}
	if got := log.transitions(); !slices.Equal(got, wantTransitions) {
		t.Errorf("transitions = %v, want %v", got, wantTransitions)
	}
	zooms := 0
	for _, typ := range log.types() {
		if typ == event.TypeZoomToggled {
			zooms++
		}
	}
	if zooms != 2 {
		t.Errorf("zoom events = %d, want 2", zooms)
	}
}
