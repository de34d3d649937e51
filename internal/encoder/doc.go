// Package encoder drives the ffmpeg subprocess used for recordings.
//
// [FFmpeg] implements [Spawner]: it builds the argument list for the host's
// screen grabber (avfoundation, x11grab or gdigrab), starts ffmpeg and hands
// back a [Process]. A recording is finished with [Stop], which writes 'q' to
// ffmpeg's stdin and kills the process if it does not exit in time. Exit
// status 255 is ffmpeg's normal answer to 'q' and is not an error.
//
// The package also lists avfoundation devices, probes video resolution with
// ffprobe and merges a separately recorded camera video onto a screen
// recording.
package encoder
