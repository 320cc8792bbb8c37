package orchestrator

import (
	"fmt"
	"strings"

	"github.com/hupe1980/memora/core"
	"github.com/hupe1980/memora/internal/util"
)

// plannerPrompt builds the next planning prompt. With an active task it
// combines the task goal, completed task context, the task history and the
// latest observation; otherwise it is the goal, followed by the global
// context and history once anything has accumulated.
func (r *run) plannerPrompt() string {
	if task, ok := r.sched.current(); ok {
		var sections []string
		sections = append(sections, "Current task: "+task.Goal)
		if r.globalContext != "" {
			sections = append(sections, "Completed tasks:\n"+r.globalContext)
		}
		if len(task.History) > 0 {
			sections = append(sections, "Task history:\n"+task.Context())
		}
		if r.observation != nil && *r.observation != "" {
			sections = append(sections, "Latest observation:\n"+*r.observation)
		}
		return strings.Join(sections, "\n\n")
	}

	accumulated := joinNonEmpty("\n", r.globalContext, strings.Join(r.history, "\n"))
	if accumulated == "" {
		return r.goal
	}
	return fmt.Sprintf("User goal: %s\n\nCurrent context:\n%s", r.goal, accumulated)
}

// writerContext is what the writer synthesizes from: task summaries when
// the goal was decomposed, the global history otherwise, plus the planner's
// final content.
func (r *run) writerContext() string {
	base := strings.Join(r.history, "\n")
	if len(r.sched.tasks()) > 0 {
		base = strings.Join(r.sched.summaries(), "\n")
	}
	return joinNonEmpty("\n", base, r.finalAnswer)
}

// stepRecord renders one Thought/Action/Observation entry.
func stepRecord(n int, use core.UseTool, observation string) string {
	args, err := util.CompactJSON(use.Args)
	if err != nil {
		args = fmt.Sprintf("%v", use.Args)
	}
	reason := use.Reason
	if reason == "" {
		reason = "No reason provided"
	}
	return fmt.Sprintf("Step %d:\nThought: %s\nAction: use_tool(%s, %s)\nObservation:\n%s", n, reason, use.Tool, args, observation)
}

// taskContext is appended to the global context when a task completes.
func taskContext(t *core.Task) string {
	return fmt.Sprintf("[%s] %s\nResult: %s", t.ID, t.Goal, t.Result)
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
