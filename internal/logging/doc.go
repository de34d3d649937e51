// Package logging provides structured logging for screenreel.
//
// It wraps log/slog with a JSON handler and adds persistent context
// attributes so that lines from different capture sessions and recordings
// can be told apart after the fact:
//
//	logger, err := logging.NewLogger(dir, "INFO")
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	logger.WithComponent("capture").WithSource("main").Info("capture started", "fps", 15)
//
// produces
//
//	{"time":"...","level":"INFO","msg":"capture started","component":"capture","source_id":"main","fps":15}
//
// Long-running recorders should use [NewLoggerWithRotation], which writes
// through a [RotatingWriter]. Rotated files are named debug.log.1 (newest)
// through debug.log.N, gaining a .gz suffix when compression is enabled.
//
// [ReadLogs], [FilterLogs] and [TailLogs] read debug.log back for the
// `screenreel logs` command.
//
// All types in this package are safe for concurrent use. Use [NopLogger] in
// tests or when logging is disabled.
package logging
