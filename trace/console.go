package trace

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/hupe1980/memora/core"
)

// ConsoleOptions configures a ConsoleListener.
type ConsoleOptions struct {
	// Writer defaults to os.Stdout.
	Writer io.Writer
	// Start is the reference time for the T= offset. Defaults to creation time.
	Start time.Time
	// NoColor disables colouring. Colour is also disabled automatically when
	// Writer is not a terminal.
	NoColor bool
	// MaxResultLen bounds tool result summaries. Defaults to 50 runes.
	MaxResultLen int
	// MaxTaskResultLen bounds task result summaries. Defaults to 30 runes.
	MaxTaskResultLen int
}

// ConsoleListener prints one human readable line per event.
type ConsoleListener struct {
	mu   sync.Mutex
	opts ConsoleOptions

	typeColor  *color.Color
	errorColor *color.Color
	stateColor *color.Color
	timeColor  *color.Color
}

// NewConsoleListener creates a console listener.
func NewConsoleListener(optFns ...func(o *ConsoleOptions)) *ConsoleListener {
	opts := ConsoleOptions{
		Writer:           os.Stdout,
		Start:            time.Now(),
		MaxResultLen:     50,
		MaxTaskResultLen: 30,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	l := &ConsoleListener{
		opts:       opts,
		typeColor:  color.New(color.FgCyan, color.Bold),
		errorColor: color.New(color.FgRed, color.Bold),
		stateColor: color.New(color.FgYellow),
		timeColor:  color.New(color.FgHiBlack),
	}

	if opts.NoColor || !isTerminal(opts.Writer) {
		for _, c := range []*color.Color{l.typeColor, l.errorColor, l.stateColor, l.timeColor} {
			c.DisableColor()
		}
	} else {
		for _, c := range []*color.Color{l.typeColor, l.errorColor, l.stateColor, l.timeColor} {
			c.EnableColor()
		}
	}

	return l
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// OnEvent implements Listener.
func (l *ConsoleListener) OnEvent(ev core.TraceEvent) {
	elapsed := ev.Timestamp.Sub(l.opts.Start).Milliseconds()
	if elapsed < 0 {
		elapsed = 0
	}

	typ := l.typeColor.Sprint(string(ev.Type))
	if ev.Type == core.EventError {
		typ = l.errorColor.Sprint(string(ev.Type))
	}

	line := fmt.Sprintf("%s %s: %s\n", l.timeColor.Sprintf("[T=%dms]", elapsed), typ, l.Summary(ev))

	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = io.WriteString(l.opts.Writer, line)
}

// Summary renders the uncoloured one-line description of an event.
func (l *ConsoleListener) Summary(ev core.TraceEvent) string {
	switch ev.Type {
	case core.EventStateChange:
		return fmt.Sprintf("%s -> %s", l.stateColor.Sprint(orUnknown(ev.String("from"))), l.stateColor.Sprint(orUnknown(ev.String("to"))))
	case core.EventPlannerOutput:
		return summarizeAction(ev.Data["action"])
	case core.EventToolCall:
		return fmt.Sprintf("%s(%s)", ev.String("tool"), compactJSON(ev.Data["args"]))
	case core.EventToolResult:
		return truncate(ev.String("result"), l.opts.MaxResultLen)
	case core.EventTaskStart:
		return "Task: " + ev.String("goal")
	case core.EventTaskEnd:
		return "Result: " + truncate(ev.String("result"), l.opts.MaxTaskResultLen)
	case core.EventError:
		return ev.String("error")
	default:
		if len(ev.Data) == 0 {
			return ""
		}
		return compactJSON(ev.Data)
	}
}

func summarizeAction(v any) string {
	action, ok := v.(map[string]any)
	if !ok {
		return "unknown"
	}
	switch action["type"] {
	case core.ActionUseTool:
		return fmt.Sprintf("use_tool(%v, %s)", action["tool"], compactJSON(action["args"]))
	case core.ActionFinal:
		return "final"
	case core.ActionTaskList:
		return fmt.Sprintf("task_list(%d tasks)", countItems(action["tasks"]))
	default:
		return compactJSON(action)
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "?"
	}
	return s
}
