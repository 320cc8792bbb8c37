package trace

import (
	"github.com/hupe1980/memora/core"
	"github.com/hupe1980/memora/logging"
)

// LogListener forwards events to a logger. ERROR events are logged at
// error level, everything else at debug level.
type LogListener struct {
	logger logging.Logger
}

// NewLogListener creates a LogListener.
func NewLogListener(logger logging.Logger) *LogListener {
	return &LogListener{logger: logging.OrNoOp(logger)}
}

// OnEvent implements Listener.
func (l *LogListener) OnEvent(ev core.TraceEvent) {
	if ev.Type == core.EventError {
		l.logger.Error("trace.event", "event_type", string(ev.Type), "event_id", ev.ID, "error", ev.String("error"))
		return
	}
	l.logger.Debug("trace.event", "event_type", string(ev.Type), "event_id", ev.ID, "data", ev.Data)
}
