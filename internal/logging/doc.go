// Package logging provides structured logging for playbill actors.
//
// This package wraps Go's log/slog to provide JSON-formatted logs with
// context propagation. Each actor writes its own file so that a whole cast
// can share one log directory and the records can be read side by side
// after a performance.
//
// # Basic Usage
//
//	logger, err := logging.NewLogger("/path/to/logs", "Lexa", "INFO")
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	logger.Info("roll-call sent", "port", 4001)
//
// # Context Propagation
//
//	actorLogger := logger.WithActor("Lexa").WithRun(runID)
//	cueLogger := actorLogger.WithCue("intro", "1")
//	cueLogger.Info("entering cue")
//
// Output:
//
//	{"time":"...","level":"INFO","msg":"entering cue","actor":"Lexa","run_id":"...","scene":"intro","cue":"1"}
//
// # Testing
//
// Use [NopLogger] to discard all log output.
//
// # Thread Safety
//
// All types in this package are safe for concurrent use. Child loggers
// created via With* methods share the underlying file.
package logging
