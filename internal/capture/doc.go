// Package capture runs live preview capture sessions.
//
// A [Session] polls one window or screen through a [platform.Platform] at a
// fixed frame rate, scales each still to the session's nominal size, encodes
// it as JPEG and keeps only the newest result in a [FrameBuffer]. Failed
// ticks are skipped without retry. The [Manager] maps caller-chosen source
// IDs to sessions and hands frames out as base64 [FramePayload] values.
package capture
