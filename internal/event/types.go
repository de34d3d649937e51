package event

import "time"

// Event is the interface that all events must implement.
type Event interface {
	// EventType returns a "category.action" identifier such as "capture.started".
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// Event type identifiers.
const (
	TypeCaptureStarted        = "capture.started"
	TypeCaptureStopped        = "capture.stopped"
	TypeRecordingStateChanged = "recording.state_changed"
	TypeZoomToggled           = "recording.zoom_toggled"
	TypeEncoderExited         = "encoder.exited"
)

// baseEvent provides common fields for all events.
// Embed this in concrete event types to satisfy the Event interface.
type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// -----------------------------------------------------------------------------
// Capture Events
// -----------------------------------------------------------------------------

// CaptureStartedEvent is emitted when the manager starts a new capture session.
// It is not emitted for a start request that found the session already running.
type CaptureStartedEvent struct {
	baseEvent
	SourceID string
	Kind     string // "window" or "screen"
	NativeID uint32
	FPS      int
}

// NewCaptureStartedEvent creates a CaptureStartedEvent.
func NewCaptureStartedEvent(sourceID, kind string, nativeID uint32, fps int) CaptureStartedEvent {
	return CaptureStartedEvent{
		baseEvent: newBaseEvent(TypeCaptureStarted),
		SourceID:  sourceID,
		Kind:      kind,
		NativeID:  nativeID,
		FPS:       fps,
	}
}

// CaptureStoppedEvent is emitted after a capture session's loop has exited.
type CaptureStoppedEvent struct {
	baseEvent
	SourceID string
	Frames   uint64 // total frames stored by the session
}

// NewCaptureStoppedEvent creates a CaptureStoppedEvent.
func NewCaptureStoppedEvent(sourceID string, frames uint64) CaptureStoppedEvent {
	return CaptureStoppedEvent{
		baseEvent: newBaseEvent(TypeCaptureStopped),
		SourceID:  sourceID,
		Frames:    frames,
	}
}

// -----------------------------------------------------------------------------
// Recording Events
// -----------------------------------------------------------------------------

// RecordingStateChangedEvent is emitted on every recording state transition.
type RecordingStateChangedEvent struct {
	baseEvent
	Previous   string
	Current    string
	OutputPath string
}

// NewRecordingStateChangedEvent creates a RecordingStateChangedEvent.
func NewRecordingStateChangedEvent(previous, current, outputPath string) RecordingStateChangedEvent {
	return RecordingStateChangedEvent{
		baseEvent:  newBaseEvent(TypeRecordingStateChanged),
		Previous:   previous,
		Current:    current,
		OutputPath: outputPath,
	}
}

// ZoomToggledEvent is emitted when a zoom marker is opened or closed.
type ZoomToggledEvent struct {
	baseEvent
	Open    bool // true when a marker was opened
	StartMs uint64
	EndMs   uint64
	X, Y    float64
	Scale   float64
}

// NewZoomToggledEvent creates a ZoomToggledEvent.
func NewZoomToggledEvent(open bool, startMs, endMs uint64, x, y, scale float64) ZoomToggledEvent {
	return ZoomToggledEvent{
		baseEvent: newBaseEvent(TypeZoomToggled),
		Open:      open,
		StartMs:   startMs,
		EndMs:     endMs,
		X:         x,
		Y:         y,
		Scale:     scale,
	}
}

// EncoderExitedEvent is emitted once the encoder process has been reaped.
type EncoderExitedEvent struct {
	baseEvent
	OutputPath string
	ExitCode   int
	Err        error
}

// NewEncoderExitedEvent creates an EncoderExitedEvent.
func NewEncoderExitedEvent(outputPath string, exitCode int, err error) EncoderExitedEvent {
	return EncoderExitedEvent{
		baseEvent:  newBaseEvent(TypeEncoderExited),
		OutputPath: outputPath,
		ExitCode:   exitCode,
		Err:        err,
	}
}
