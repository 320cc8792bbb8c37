package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/memora/core"
)

func TestScheduler_InitializeAssignsDefaultIDs(t *testing.T) {
	s := newScheduler()
	s.initialize([]core.TaskSpec{{Goal: "a"}, {ID: "custom", Goal: "b"}, {Goal: "c"}})

	ids := []string{}
	for _, task := range s.tasks() {
		ids = append(ids, task.ID)
		assert.Equal(t, core.TaskPending, task.Status)
	}
	assert.Equal(t, []string{"task_1", "custom", "task_3"}, ids)
	assert.Equal(t, 0, s.index())
}

func TestScheduler_CurrentAndAdvance(t *testing.T) {
	s := newScheduler()
	_, ok := s.current()
	assert.False(t, ok)

	s.initialize([]core.TaskSpec{{Goal: "a"}, {Goal: "b"}})

	task, ok := s.current()
	require.True(t, ok)
	assert.Equal(t, "a", task.Goal)

	s.advance()
	task, ok = s.current()
	require.True(t, ok)
	assert.Equal(t, "b", task.Goal)

	s.advance()
	_, ok = s.current()
	assert.False(t, ok)

	s.advance()
	assert.Equal(t, 2, s.index(), "cursor never passes the end")
}

func TestScheduler_RestoreClampsAndCopies(t *testing.T) {
	original := []*core.Task{core.NewTask("t1", "one"), nil, core.NewTask("t2", "two")}

	s := newScheduler()
	s.restore(original, 9)
	assert.Len(t, s.tasks(), 2)
	assert.Equal(t, 2, s.index())

	s.restore(original, -1)
	assert.Equal(t, 0, s.index())

	task, ok := s.current()
	require.True(t, ok)
	task.MarkRunning()
	assert.Equal(t, core.TaskPending, original[0].Status, "restored tasks are copies")
}

func TestScheduler_Summaries(t *testing.T) {
	s := newScheduler()
	s.initialize([]core.TaskSpec{{ID: "t1", Goal: "list files"}, {ID: "t2", Goal: "count"}})
	task, _ := s.current()
	task.MarkRunning()
	task.MarkCompleted("3 files")

	assert.Equal(t, []string{
		"- [t1] list files (completed): 3 files",
		"- [t2] count (pending): (no result)",
	}, s.summaries())
}
