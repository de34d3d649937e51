// Package event provides a synchronous pub-sub bus used to observe capture
// and recording lifecycles without coupling the producers to their observers.
//
// The capture manager publishes [CaptureStartedEvent] and
// [CaptureStoppedEvent]. The recording session publishes
// [RecordingStateChangedEvent], [ZoomToggledEvent] and [EncoderExitedEvent].
// The record view subscribes to keep its status line current.
//
//	bus := event.NewBus(logger)
//	bus.Subscribe(event.TypeZoomToggled, func(e event.Event) {
//	    z := e.(event.ZoomToggledEvent)
//	    ...
//	})
package event
