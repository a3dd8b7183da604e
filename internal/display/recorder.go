package display

import (
	"github.com/qaznotquaz/aLexA/internal/event"
	"github.com/qaznotquaz/aLexA/internal/logging"
)

// Recorder is the event sink: it logs every bus event with its fields.
type Recorder struct {
	logger *logging.Logger
}

// NewRecorder creates a recorder writing to logger.
func NewRecorder(logger *logging.Logger) *Recorder {
	return &Recorder{logger: logger}
}

// Attach subscribes the recorder to every event on bus and returns the
// subscription ID.
func (r *Recorder) Attach(bus *event.Bus) string {
	return bus.SubscribeAll(r.Record)
}

// Record logs e at INFO, or WARN for failures and protocol violations.
func (r *Recorder) Record(e event.Event) {
	args := []any{"event_type", e.EventType()}
	if f, ok := e.(event.Fielder); ok {
		args = append(args, f.Fields()...)
	}

	switch e.EventType() {
	case event.TypeProtocolViolation, event.TypeHandshakeFailed:
		r.logger.Warn("event", args...)
	default:
		r.logger.Info("event", args...)
	}
}
