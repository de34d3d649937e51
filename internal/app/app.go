// Package app wires the capture manager, the recording session and the
// encoder together behind one facade used by the CLI.
package app

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Iron-Ham/screenreel/internal/capture"
	"github.com/Iron-Ham/screenreel/internal/config"
	"github.com/Iron-Ham/screenreel/internal/encoder"
	"github.com/Iron-Ham/screenreel/internal/errors"
	"github.com/Iron-Ham/screenreel/internal/event"
	"github.com/Iron-Ham/screenreel/internal/logging"
	"github.com/Iron-Ham/screenreel/internal/platform"
	"github.com/Iron-Ham/screenreel/internal/recording"
)

// App is the composition root. It owns one capture manager and one
// recording session.
type App struct {
	cfg      *config.Config
	platform platform.Platform
	logger   *logging.Logger
	bus      *event.Bus
	captures *capture.Manager
	recorder *recording.Session

	spawner     encoder.Spawner
	listDevices func(ctx context.Context) (encoder.DeviceList, error)
	probePortal func(ctx context.Context) (platform.PortalSourceTypes, error)
	probeHost   func(ctx context.Context) (platform.HostInfo, error)
	now         func() time.Time
	goos        string
}

// Option configures an App.
type Option func(*App)

// WithSpawner replaces the ffmpeg spawner.
func WithSpawner(s encoder.Spawner) Option {
	return func(a *App) { a.spawner = s }
}

// WithDeviceLister replaces the ffmpeg device listing.
func WithDeviceLister(f func(ctx context.Context) (encoder.DeviceList, error)) Option {
	return func(a *App) { a.listDevices = f }
}

// WithClock replaces time.Now for output file names.
func WithClock(now func() time.Time) Option {
	return func(a *App) { a.now = now }
}

// WithEventBus shares an existing bus instead of creating one.
func WithEventBus(bus *event.Bus) Option {
	return func(a *App) { a.bus = bus }
}

// New builds an App from cfg. A nil logger discards output.
func New(cfg *config.Config, p platform.Platform, logger *logging.Logger, opts ...Option) *App {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = logging.NopLogger()
	}
	a := &App{
		cfg:         cfg,
		platform:    p,
		logger:      logger,
		probePortal: platform.ProbePortal,
		probeHost:   platform.ProbeHost,
		now:         time.Now,
		goos:        runtime.GOOS,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.bus == nil {
		a.bus = event.NewBus(logger)
	}
	if a.spawner == nil {
		a.spawner = encoder.NewFFmpeg(cfg.Encoder, logger)
	}
	if a.listDevices == nil {
		a.listDevices = func(ctx context.Context) (encoder.DeviceList, error) {
			return encoder.ListDevices(ctx, cfg.Encoder.FFmpegPath)
		}
	}

	a.captures = capture.NewManager(p, cfg.Capture, logger)
	a.captures.SetEventBus(a.bus)
	a.recorder = recording.NewSession(a.spawner, p,
		recording.WithLogger(logger),
		recording.WithEventBus(a.bus),
		recording.WithStopTimeout(cfg.Encoder.StopTimeout()),
		recording.WithCursorInterval(cfg.Cursor.SampleInterval()),
		recording.WithDefaultZoomScale(cfg.Recording.DefaultZoomScale),
	)
	return a
}

// Bus returns the event bus capture and recording events are published on.
func (a *App) Bus() *event.Bus { return a.bus }

// Config returns the configuration the App was built with.
func (a *App) Config() *config.Config { return a.cfg }

// Sources lists capturable screens and windows.
func (a *App) Sources(ctx context.Context) ([]platform.Source, error) {
	return a.platform.EnumerateSources(ctx)
}

// --- Live capture ---

// StartCapture starts a preview capture of a source. kind is "window" or
// "screen".
func (a *App) StartCapture(id, kind string, nativeID uint32, opts capture.Options) error {
	return a.captures.StartCaptureNamed(id, kind, nativeID, opts)
}

// StopCapture stops a preview capture. Unknown ids are ignored.
func (a *App) StopCapture(id string) {
	a.captures.StopCapture(id)
}

// StopAll stops every preview capture.
func (a *App) StopAll() {
	a.captures.StopAll()
}

// IsCapturing reports whether a capture is running under id.
func (a *App) IsCapturing(id string) bool {
	return a.captures.IsCapturing(id)
}

// FrameCount returns how many frames a capture has stored.
func (a *App) FrameCount(id string) (uint64, bool) {
	return a.captures.FrameCount(id)
}

// GetFrame returns the latest frame of a capture.
func (a *App) GetFrame(id string) (capture.FramePayload, bool) {
	return a.captures.GetFrame(id)
}

// LatestFrame returns the latest raw frame of a capture.
func (a *App) LatestFrame(id string) (capture.Frame, bool) {
	return a.captures.LatestFrame(id)
}

// ActiveCaptures lists the ids of running captures.
func (a *App) ActiveCaptures() []string {
	return a.captures.ActiveSources()
}

// CaptureErr returns the error that ended a capture, if any.
func (a *App) CaptureErr(id string) error {
	return a.captures.SessionErr(id)
}

// --- Recording ---

// Devices lists recording devices with screen geometry filled in from the
// platform. There is always at least one screen.
func (a *App) Devices(ctx context.Context) (encoder.DeviceList, error) {
	devices, err := a.listDevices(ctx)
	if err != nil {
		return encoder.DeviceList{}, err
	}
	sources, err := a.platform.EnumerateSources(ctx)
	if err != nil {
		a.logger.Warn("failed to enumerate screens, using default geometry", "error", err)
		sources = nil
	}
	return devices.WithGeometry(sources), nil
}

// StartRecording records screenID (falling back to the first screen when
// unknown) and optionally micID to a new timestamped file in the output
// directory. It returns the output path.
func (a *App) StartRecording(ctx context.Context, screenID, micID string) (string, error) {
	devices, err := a.Devices(ctx)
	if err != nil {
		a.logger.Warn("device listing failed, using platform screens", "error", err)
		sources, _ := a.platform.EnumerateSources(ctx)
		devices = encoder.DeviceList{}.WithGeometry(sources)
	}

	screen, ok := devices.FindScreen(screenID)
	if !ok {
		screen = devices.Screens[0]
		if screenID != "" {
			a.logger.Warn("unknown screen, using the first one", "requested", screenID, "using", screen.ID)
		}
	}

	dir := a.cfg.Recording.ResolveOutputDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errors.Wrapf(err, "failed to create output directory %s", dir)
	}
	out := filepath.Join(dir, OutputFileName(a.now()))

	err = a.recorder.Start(ctx, recording.Config{
		OutputPath:   out,
		ScreenDevice: screen.ID,
		MicDevice:    micID,
		FPS:          a.cfg.Recording.FPS,
		ScreenX:      float64(screen.X),
		ScreenY:      float64(screen.Y),
		ScreenWidth:  screen.Width,
		ScreenHeight: screen.Height,
	})
	if err != nil {
		return "", err
	}
	return out, nil
}

// OutputFileName returns the recording file name for a start time.
func OutputFileName(t time.Time) string {
	return "recording_" + t.Format("20060102_150405") + ".mp4"
}

// PauseRecording pauses the active recording.
func (a *App) PauseRecording() error { return a.recorder.Pause() }

// ResumeRecording resumes a paused recording.
func (a *App) ResumeRecording() error { return a.recorder.Resume() }

// StopRecording finishes the recording and returns its path. See
// recording.Session.Stop for the error contract.
func (a *App) StopRecording() (string, error) { return a.recorder.Stop() }

// RecordingState returns the recording state.
func (a *App) RecordingState() recording.State { return a.recorder.State() }

// RecordingElapsed returns how long the current recording has run.
func (a *App) RecordingElapsed() time.Duration { return a.recorder.Elapsed() }

// ToggleZoom opens or closes a zoom marker. A scale of 0 uses the
// configured default.
func (a *App) ToggleZoom(scale float64) (*recording.ZoomMarker, error) {
	return a.recorder.ToggleZoom(scale)
}

// ZoomMarkers returns the markers of the current or last recording.
func (a *App) ZoomMarkers() []recording.ZoomMarker { return a.recorder.Markers() }

// ReadZoomMarkers loads the zoom file of a recording.
func (a *App) ReadZoomMarkers(recordingPath string) ([]recording.ZoomMarker, error) {
	return recording.ReadZoomMarkers(recordingPath)
}

// MergeCamera overlays cameraPath onto screenPath in place.
func (a *App) MergeCamera(ctx context.Context, screenPath, cameraPath string, layout encoder.OverlayLayout) error {
	return encoder.MergeCameraOverlay(ctx, a.cfg.Encoder, screenPath, cameraPath, layout, a.logger)
}

// --- Capabilities ---

// Capabilities describes what this host can do.
type Capabilities struct {
	SupportsStreaming     bool               `json:"supports_streaming" yaml:"supports_streaming"`
	SupportsWindowCapture bool               `json:"supports_window_capture" yaml:"supports_window_capture"`
	SupportsScreenCapture bool               `json:"supports_screen_capture" yaml:"supports_screen_capture"`
	MaxFPS                int                `json:"max_fps" yaml:"max_fps"`
	PortalSourceTypes     []string           `json:"portal_source_types,omitempty" yaml:"portal_source_types,omitempty"`
	Host                  *platform.HostInfo `json:"host,omitempty" yaml:"host,omitempty"`
}

// Capabilities probes the screencast portal and the host in parallel.
// Probe failures leave the corresponding field empty.
func (a *App) Capabilities(ctx context.Context) (Capabilities, error) {
	caps := Capabilities{
		SupportsStreaming:     true,
		SupportsWindowCapture: a.goos == "linux" || a.goos == "windows",
		SupportsScreenCapture: true,
		MaxFPS:                a.cfg.Capture.MaxFPS,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		types, err := a.probePortal(gctx)
		if err != nil {
			a.logger.Debug("screencast portal unavailable", "error", err)
			return nil
		}
		caps.PortalSourceTypes = types.Names()
		return nil
	})
	g.Go(func() error {
		host, err := a.probeHost(gctx)
		if err != nil {
			a.logger.Debug("host probe failed", "error", err)
			return nil
		}
		caps.Host = &host
		return nil
	})
	if err := g.Wait(); err != nil {
		return caps, err
	}
	if err := ctx.Err(); err != nil {
		return caps, err
	}
	return caps, nil
}

// Close stops all captures and finishes an active recording.
func (a *App) Close() error {
	a.captures.StopAll()
	if a.recorder.State().Active() {
		// A Stop already in flight finishes the recording on its own.
		if _, err := a.recorder.Stop(); err != nil && !errors.Is(err, errors.ErrNotRecording) {
			return err
		}
	}
	return nil
}
