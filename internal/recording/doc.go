// Package recording implements the recording session state machine.
//
// A [Session] moves between Idle, Recording and Paused. Starting a recording
// spawns the encoder through an [encoder.Spawner] and starts a cursor
// tracker; stopping it quits the encoder, writes the cursor samples to
// <output>.mouse.json and the completed zoom markers to <output>.zoom.json,
// and returns to Idle. Pause is bookkeeping only: the encoder keeps
// recording while the session is Paused.
//
// Zoom markers are toggled during a recording with [Session.ToggleZoom] and
// read back with [ReadZoomMarkers], which also understands the older
// timestamp/duration layout of the zoom file.
package recording
