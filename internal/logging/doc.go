// Package logging provides structured logging for syncbench runs.
//
// This package wraps Go's log/slog to provide JSON-formatted logs with
// context propagation. The harness logs every coordinator phase transition at
// DEBUG, run outcomes at INFO, mismatches at WARN, and suspected deadlocks or
// worker panics at ERROR, so a trial suite can be analyzed after the fact.
//
// # Thread Safety
//
// All types in this package are safe for concurrent use. Workers log through
// child loggers that share the parent's handler and writer.
//
// # Basic Usage
//
//	logger, err := logging.NewLogger("/tmp/syncbench", "INFO")
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	runLog := logger.WithRun("trial-3").WithStrategy("rw-lock")
//	runLog.Info("run reported", "outcome", "match", "observed", 1000000)
//
// Output:
//
//	{"time":"...","level":"INFO","msg":"run reported","run_id":"trial-3","strategy":"rw-lock","outcome":"match","observed":1000000}
//
// # Log Rotation
//
// Long benchmark suites can rotate by size:
//
//	logger, err := logging.NewLoggerWithRotation(dir, "DEBUG", logging.RotationConfig{
//	    MaxSizeMB:  10,
//	    MaxBackups: 3,
//	    Compress:   true,
//	})
//
// Rotated files are named syncbench.log.1, syncbench.log.2, ... with .1 the
// most recent, and gain a .gz suffix when compression is enabled.
//
// # Testing
//
// Use [NopLogger] to discard output, or [NewWriterLogger] over a
// bytes.Buffer to assert on entries.
package logging
