package orchestrator

import (
	"fmt"

	"github.com/hupe1980/memora/core"
)

// scheduler owns the task list of a run and the cursor into it. Tasks run
// strictly in order; an active task exists iff cursor < len(tasks).
type scheduler struct {
	list   []*core.Task
	cursor int
}

func newScheduler() *scheduler {
	return &scheduler{list: []*core.Task{}}
}

// initialize materializes a task list action and resets the cursor.
func (s *scheduler) initialize(specs []core.TaskSpec) {
	s.list = make([]*core.Task, 0, len(specs))
	for i, spec := range specs {
		id := spec.ID
		if id == "" {
			id = fmt.Sprintf("task_%d", i+1)
		}
		s.list = append(s.list, core.NewTask(id, spec.Goal))
	}
	s.cursor = 0
}

// current returns the active task.
func (s *scheduler) current() (*core.Task, bool) {
	if s.cursor < 0 || s.cursor >= len(s.list) {
		return nil, false
	}
	return s.list[s.cursor], true
}

func (s *scheduler) advance() {
	if s.cursor < len(s.list) {
		s.cursor++
	}
}

// restore adopts tasks and cursor from a checkpoint, clamping the cursor
// into [0, len(tasks)].
func (s *scheduler) restore(tasks []*core.Task, index int) {
	s.list = make([]*core.Task, 0, len(tasks))
	for _, t := range tasks {
		if t != nil {
			s.list = append(s.list, t.Clone())
		}
	}
	switch {
	case index < 0:
		s.cursor = 0
	case index > len(s.list):
		s.cursor = len(s.list)
	default:
		s.cursor = index
	}
}

func (s *scheduler) tasks() []*core.Task { return s.list }

func (s *scheduler) index() int { return s.cursor }

// summaries renders one line per task for the writer.
func (s *scheduler) summaries() []string {
	out := make([]string, 0, len(s.list))
	for _, t := range s.list {
		result := t.Result
		if result == "" {
			result = "(no result)"
		}
		out = append(out, fmt.Sprintf("- [%s] %s (%s): %s", t.ID, t.Goal, t.Status, result))
	}
	return out
}
