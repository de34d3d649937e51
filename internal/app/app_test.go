package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Iron-Ham/screenreel/internal/capture"
	"github.com/Iron-Ham/screenreel/internal/config"
	"github.com/Iron-Ham/screenreel/internal/encoder"
	"github.com/Iron-Ham/screenreel/internal/errors"
	"github.com/Iron-Ham/screenreel/internal/event"
	"github.com/Iron-Ham/screenreel/internal/platform"
	"github.com/Iron-Ham/screenreel/internal/recording"
	"github.com/Iron-Ham/screenreel/internal/testutil"
)

var startTime = time.Date(2024, 5, 1, 9, 30, 15, 0, time.Local)

var twoScreens = []platform.Source{
	{ID: 1, Kind: platform.KindScreen, Name: "Built-in", Width: 2560, Height: 1440, Primary: true},
	{ID: 2, Kind: platform.KindScreen, Name: "External", X: 2560, Width: 1920, Height: 1080},
	{ID: 77, Kind: platform.KindWindow, Name: "Terminal", X: 10, Y: 10, Width: 800, Height: 600},
}

type fixture struct {
	app      *App
	spawner  *testutil.FakeSpawner
	platform *testutil.FakePlatform
	dir      string
}

func newFixture(t *testing.T, devices encoder.DeviceList, listErr error, sources ...platform.Source) *fixture {
	t.Helper()
	f := &fixture{
		spawner:  testutil.NewFakeSpawner(),
		platform: testutil.NewFakePlatform(sources...),
		dir:      filepath.Join(t.TempDir(), "out", "nested"),
	}
	cfg := config.Default()
	cfg.Recording.OutputDir = f.dir
	cfg.Cursor.SampleIntervalMs = 5

	f.app = New(cfg, f.platform, nil,
		WithSpawner(f.spawner),
		WithDeviceLister(func(context.Context) (encoder.DeviceList, error) { return devices, listErr }),
		WithClock(func() time.Time { return startTime }),
	)
	t.Cleanup(func() { _ = f.app.Close() })
	return f
}

func macDevices() encoder.DeviceList {
	return encoder.DeviceList{
		Screens: []encoder.Device{
			{ID: "1", Name: "Capture screen 0", Kind: encoder.DeviceScreen},
			{ID: "2", Name: "Capture screen 1", Kind: encoder.DeviceScreen},
		},
		Microphones: []encoder.Device{{ID: "0", Name: "MacBook Pro Microphone", Kind: encoder.DeviceMicrophone}},
	}
}

func TestOutputFileName(t *testing.T) {
	if got, want := OutputFileName(startTime), "recording_20240501_093015.mp4"; got != want {
		t.Errorf("OutputFileName() = %q, want %q", got, want)
	}
}

func TestApp_StartRecording(t *testing.T) {
	tests := []struct {
		name     string
		devices  encoder.DeviceList
		listErr  error
		sources  []platform.Source
		screenID string
		wantDev  string
		wantX    int
		wantW    int
		wantH    int
	}{
		{
			name:     "known screen",
			devices:  macDevices(),
			sources:  twoScreens,
			screenID: "2",
			wantDev:  "2",
			wantX:    2560,
			wantW:    1920,
			wantH:    1080,
		},
		{
			name:     "unknown screen falls back to the first",
			devices:  macDevices(),
			sources:  twoScreens,
			screenID: "9",
			wantDev:  "1",
			wantW:    2560,
			wantH:    1440,
		},
		{
			name:    "no devices and no screens",
			wantDev: "0",
			wantW:   1920,
			wantH:   1080,
		},
		{
			name:    "device listing failure uses platform screens",
			listErr: errors.New("ffmpeg missing"),
			sources: twoScreens,
			wantDev: "0",
			wantW:   2560,
			wantH:   1440,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.devices, tt.listErr, tt.sources...)

			out, err := f.app.StartRecording(context.Background(), tt.screenID, "0")
			if err != nil {
				t.Fatalf("StartRecording() error = %v", err)
			}
			if want := filepath.Join(f.dir, "recording_20240501_093015.mp4"); out != want {
				t.Errorf("output path = %q, want %q", out, want)
			}
			if info, err := os.Stat(f.dir); err != nil || !info.IsDir() {
				t.Errorf("output directory not created: %v", err)
			}

			job := f.spawner.Jobs()[0]
			if job.ScreenDevice != tt.wantDev {
				t.Errorf("ScreenDevice = %q, want %q", job.ScreenDevice, tt.wantDev)
			}
			if job.X != tt.wantX || job.Width != tt.wantW || job.Height != tt.wantH {
				t.Errorf("geometry = %dx%d+%d, want %dx%d+%d", job.Width, job.Height, job.X, tt.wantW, tt.wantH, tt.wantX)
			}
			if job.MicDevice != "0" {
				t.Errorf("MicDevice = %q, want 0", job.MicDevice)
			}
			if job.FPS != f.app.Config().Recording.FPS {
				t.Errorf("FPS = %d, want %d", job.FPS, f.app.Config().Recording.FPS)
			}
			if f.app.RecordingState() != recording.StateRecording {
				t.Errorf("RecordingState() = %v, want recording", f.app.RecordingState())
			}
		})
	}
}

func TestApp_RecordingLifecycle(t *testing.T) {
	f := newFixture(t, macDevices(), nil, twoScreens...)
	ctx := context.Background()

	out, err := f.app.StartRecording(ctx, "1", "")
	if err != nil {
		t.Fatalf("StartRecording() error = %v", err)
	}
	if _, err := f.app.StartRecording(ctx, "1", ""); !errors.Is(err, errors.ErrAlreadyRecording) {
		t.Errorf("second StartRecording() = %v, want ErrAlreadyRecording", err)
	}

	if err := f.app.PauseRecording(); err != nil {
		t.Fatalf("PauseRecording() error = %v", err)
	}
	if got := f.app.RecordingState(); got != recording.StatePaused {
		t.Errorf("RecordingState() = %v, want paused", got)
	}
	if err := f.app.ResumeRecording(); err != nil {
		t.Fatalf("ResumeRecording() error = %v", err)
	}

	f.platform.SetPointer(1280, 720)
	m, err := f.app.ToggleZoom(0)
	if err != nil {
		t.Fatalf("ToggleZoom() error = %v", err)
	}
	if m.Scale != f.app.Config().Recording.DefaultZoomScale || m.X != 50 || m.Y != 50 {
		t.Errorf("marker = %+v", m)
	}

	path, err := f.app.StopRecording()
	if err != nil {
		t.Fatalf("StopRecording() error = %v", err)
	}
	if path != out {
		t.Errorf("StopRecording() = %q, want %q", path, out)
	}
	if got := f.app.RecordingState(); got != recording.StateIdle {
		t.Errorf("RecordingState() = %v, want idle", got)
	}
	if _, err := os.Stat(out + ".mouse.json"); err != nil {
		t.Errorf("cursor sidecar missing: %v", err)
	}
	if _, err := f.app.StopRecording(); !errors.Is(err, errors.ErrNotRecording) {
		t.Errorf("StopRecording() when idle = %v, want ErrNotRecording", err)
	}
}

func TestApp_Capture(t *testing.T) {
	f := newFixture(t, encoder.DeviceList{}, nil, twoScreens...)

	if err := f.app.StartCapture("main", "screen", 1, capture.Options{FPS: 20}); err != nil {
		t.Fatalf("StartCapture() error = %v", err)
	}
	if err := f.app.StartCapture("bad", "monitor", 1, capture.Options{}); !errors.Is(err, errors.ErrInvalidSourceType) {
		t.Errorf("StartCapture(monitor) = %v, want ErrInvalidSourceType", err)
	}

	testutil.WaitFor(t, 2*time.Second, "first frame", func() bool {
		_, ok := f.app.GetFrame("main")
		return ok
	})
	if got := f.app.ActiveCaptures(); len(got) != 1 || got[0] != "main" {
		t.Errorf("ActiveCaptures() = %v, want [main]", got)
	}
	if !f.app.IsCapturing("main") {
		t.Error("IsCapturing(main) = false, want true")
	}
	if n, ok := f.app.FrameCount("main"); !ok || n == 0 {
		t.Errorf("FrameCount(main) = %d, %v, want at least one frame", n, ok)
	}

	f.app.StopCapture("main")
	if _, ok := f.app.GetFrame("main"); ok {
		t.Error("GetFrame() after StopCapture returned a frame")
	}
	if f.app.IsCapturing("main") {
		t.Error("IsCapturing(main) = true after StopCapture")
	}
}

func TestApp_StopAll(t *testing.T) {
	f := newFixture(t, encoder.DeviceList{}, nil, twoScreens...)

	for _, id := range []string{"left", "right"} {
		if err := f.app.StartCapture(id, "screen", 1, capture.Options{FPS: 10}); err != nil {
			t.Fatalf("StartCapture(%s) error = %v", id, err)
		}
	}
	f.app.StopAll()

	if got := f.app.ActiveCaptures(); len(got) != 0 {
		t.Errorf("ActiveCaptures() after StopAll = %v, want none", got)
	}
	if _, ok := f.app.FrameCount("left"); ok {
		t.Error("FrameCount(left) still reports a session after StopAll")
	}
}

func TestApp_Devices(t *testing.T) {
	f := newFixture(t, macDevices(), nil, twoScreens...)

	devices, err := f.app.Devices(context.Background())
	if err != nil {
		t.Fatalf("Devices() error = %v", err)
	}
	if len(devices.Screens) != 2 || len(devices.Microphones) != 1 {
		t.Fatalf("Devices() = %+v", devices)
	}
	if s := devices.Screens[1]; s.X != 2560 || s.Width != 1920 {
		t.Errorf("second screen geometry = %+v", s)
	}
}

func TestApp_Capabilities(t *testing.T) {
	f := newFixture(t, encoder.DeviceList{}, nil)
	f.app.probePortal = func(context.Context) (platform.PortalSourceTypes, error) {
		return platform.PortalMonitor | platform.PortalWindow, nil
	}
	f.app.probeHost = func(context.Context) (platform.HostInfo, error) {
		return platform.HostInfo{}, errors.New("no /proc")
	}

	caps, err := f.app.Capabilities(context.Background())
	if err != nil {
		t.Fatalf("Capabilities() error = %v", err)
	}
	if !caps.SupportsStreaming || !caps.SupportsScreenCapture {
		t.Errorf("caps = %+v", caps)
	}
	if caps.MaxFPS != 30 {
		t.Errorf("MaxFPS = %d, want 30", caps.MaxFPS)
	}
	if len(caps.PortalSourceTypes) != 2 || caps.PortalSourceTypes[0] != "monitor" {
		t.Errorf("PortalSourceTypes = %v", caps.PortalSourceTypes)
	}
	if caps.Host != nil {
		t.Errorf("Host = %+v, want nil after a failed probe", caps.Host)
	}
}

func TestApp_PublishesEvents(t *testing.T) {
	f := newFixture(t, macDevices(), nil, twoScreens...)
	states := make(chan string, 8)
	f.app.Bus().Subscribe(event.TypeRecordingStateChanged, func(e event.Event) {
		states <- e.(event.RecordingStateChangedEvent).Current
	})

	if _, err := f.app.StartRecording(context.Background(), "", ""); err != nil {
		t.Fatalf("StartRecording() error = %v", err)
	}
	if _, err := f.app.StopRecording(); err != nil {
		t.Fatalf("StopRecording() error = %v", err)
	}

	for _, want := range []string{"recording", "idle"} {
		select {
		case got := <-states:
			if got != want {
				t.Errorf("state event = %q, want %q", got, want)
			}
		default:
			t.Fatalf("missing %q state event", want)
		}
	}
}
