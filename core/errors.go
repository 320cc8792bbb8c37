package core

import "errors"

var (
	// ErrNoAction is returned when planner output contains no parseable action.
	ErrNoAction = errors.New("no parseable action")
	// ErrUnknownAction is returned for an action whose type is not use_tool, task_list or final.
	ErrUnknownAction = errors.New("unknown action type")
	// ErrNestedTaskList is returned when a task emits a task list of its own.
	ErrNestedTaskList = errors.New("nested task lists are not supported")
	// ErrMaxSteps is returned when a run exceeds its safety step ceiling.
	ErrMaxSteps = errors.New("max steps reached")
	// ErrCheckpointNotFound is returned when no checkpoint exists for an agent.
	ErrCheckpointNotFound = errors.New("checkpoint not found")
	// ErrRunInProgress is returned when another run holds the agent identity.
	ErrRunInProgress = errors.New("run already in progress")
	// ErrInvalidAgentID is returned for identities that cannot be stored safely.
	ErrInvalidAgentID = errors.New("invalid agent id")
)
