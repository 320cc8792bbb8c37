package trace

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/hupe1980/memora/core"
	"github.com/hupe1980/memora/logging"
)

// JSONLListener appends one JSON document per event. Writes are flushed
// after every event so a crash loses at most the event being written.
type JSONLListener struct {
	mu     sync.Mutex
	w      *bufio.Writer
	closer io.Closer
	logger logging.Logger
	closed bool
}

// NewJSONLListener writes events to w.
func NewJSONLListener(w io.Writer, logger logging.Logger) *JSONLListener {
	l := &JSONLListener{w: bufio.NewWriter(w), logger: logging.OrNoOp(logger)}
	if c, ok := w.(io.Closer); ok {
		l.closer = c
	}
	return l
}

// OpenJSONLFile opens (or creates) <dir>/<agentID>.jsonl in append mode.
func OpenJSONLFile(dir, agentID string, logger logging.Logger) (*JSONLListener, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create trace dir: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, agentID+".jsonl"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}
	return NewJSONLListener(f, logger), nil
}

// OnEvent implements Listener.
func (l *JSONLListener) OnEvent(ev core.TraceEvent) {
	if err := l.Append(ev); err != nil {
		l.logger.Warn("trace.jsonl.write.failed", "event_type", string(ev.Type), "error", err)
	}
}

// Append writes a single event line.
func (l *JSONLListener) Append(ev core.TraceEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return fmt.Errorf("jsonl listener is closed")
	}

	line, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if _, err := l.w.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	return l.w.Flush()
}

// Close flushes buffered data and closes the underlying writer if it is
// an io.Closer.
func (l *JSONLListener) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true

	if err := l.w.Flush(); err != nil {
		return err
	}
	if l.closer != nil {
		return l.closer.Close()
	}
	return nil
}

// ReadJSONL decodes events previously written by a JSONLListener.
func ReadJSONL(r io.Reader) ([]core.TraceEvent, error) {
	var events []core.TraceEvent
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var ev core.TraceEvent
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			return nil, fmt.Errorf("decode event %d: %w", len(events)+1, err)
		}
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan trace: %w", err)
	}
	return events, nil
}
