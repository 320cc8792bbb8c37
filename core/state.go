package core

// State names a node of the orchestration state machine.
type State string

const (
	// StateIdle is the initial state before a run starts.
	StateIdle State = "IDLE"
	// StatePlanning calls the planner for the next decision.
	StatePlanning State = "PLANNING"
	// StateTaskReady is entered after a task list was materialized.
	StateTaskReady State = "TASK_READY"
	// StateTaskRunning schedules the task at the cursor (or finishes the list).
	StateTaskRunning State = "TASK_RUNNING"
	// StateToolCalling executes the stored tool action.
	StateToolCalling State = "TOOL_CALLING"
	// StateObserving hands a fresh observation back to planning.
	StateObserving State = "OBSERVING"
	// StateWriting calls the writer for the final answer.
	StateWriting State = "WRITING"
	// StateDone is the successful terminal state.
	StateDone State = "DONE"
	// StateError is the failed terminal state.
	StateError State = "ERROR"
)

var knownStates = map[State]struct{}{
	StateIdle:        {},
	StatePlanning:    {},
	StateTaskReady:   {},
	StateTaskRunning: {},
	StateToolCalling: {},
	StateObserving:   {},
	StateWriting:     {},
	StateDone:        {},
	StateError:       {},
}

// IsTerminal reports whether no further transitions leave s.
func (s State) IsTerminal() bool { return s == StateDone || s == StateError }

// IsValid reports whether s is one of the known states.
func (s State) IsValid() bool {
	_, ok := knownStates[s]
	return ok
}

func (s State) String() string { return string(s) }
