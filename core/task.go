package core

import "strings"

// TaskStatus is the lifecycle status of a Task.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
)

// TaskSpec is the parsed, not yet materialized form of a task coming from a
// task_list action. ID may be empty; the scheduler assigns a default.
type TaskSpec struct {
	ID   string `json:"id,omitempty"`
	Goal string `json:"goal"`
}

// Task is a unit of sub-work executed by its own local planning loop.
//
// Contract:
//   - pending -> running -> completed|failed
//   - once completed or failed the task is frozen; further Mark*/AddHistory
//     calls are ignored
//   - History only holds records produced while this task was active
type Task struct {
	ID      string     `json:"id"`
	Goal    string     `json:"goal"`
	Status  TaskStatus `json:"status"`
	Result  string     `json:"result"`
	History []string   `json:"history"`
}

// NewTask creates a pending task.
func NewTask(id, goal string) *Task {
	return &Task{ID: id, Goal: goal, Status: TaskPending, History: []string{}}
}

// IsFinished reports whether the task reached completed or failed.
func (t *Task) IsFinished() bool {
	return t.Status == TaskCompleted || t.Status == TaskFailed
}

// MarkRunning moves a pending task to running.
func (t *Task) MarkRunning() {
	if t.IsFinished() {
		return
	}
	t.Status = TaskRunning
}

// MarkCompleted freezes the task with its result.
func (t *Task) MarkCompleted(result string) {
	if t.IsFinished() {
		return
	}
	t.Status = TaskCompleted
	t.Result = result
}

// MarkFailed freezes the task with the failure reason as result.
func (t *Task) MarkFailed(reason string) {
	if t.IsFinished() {
		return
	}
	t.Status = TaskFailed
	t.Result = reason
}

// AddHistory appends a Thought/Action/Observation record.
func (t *Task) AddHistory(record string) {
	if t.IsFinished() {
		return
	}
	t.History = append(t.History, record)
}

// Context returns the task history joined by newlines.
func (t *Task) Context() string { return strings.Join(t.History, "\n") }

// Clone returns a deep copy.
func (t *Task) Clone() *Task {
	c := *t
	c.History = append([]string{}, t.History...)
	return &c
}
