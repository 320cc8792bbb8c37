package core

import (
	"encoding/json"
	"fmt"
)

// Action type tags used in the canonical JSON envelope.
const (
	ActionUseTool  = "use_tool"
	ActionTaskList = "task_list"
	ActionFinal    = "final"
)

// Action is a planner decision. Concrete actions implement the unexported
// isAction marker enabling a closed set: UseTool, TaskList, Final.
type Action interface {
	isAction()
	// ActionType returns the canonical type tag.
	ActionType() string
}

// UseTool asks the orchestrator to invoke a named tool.
type UseTool struct {
	Tool   string         // Tool name resolved through the ToolResolver
	Args   map[string]any // Tool arguments
	Reason string         // Planner's stated thought, recorded in history
}

func (UseTool) isAction() {}

// ActionType implements Action.
func (UseTool) ActionType() string { return ActionUseTool }

// TaskList decomposes the goal into sequential tasks.
type TaskList struct {
	Tasks []TaskSpec
}

func (TaskList) isAction() {}

// ActionType implements Action.
func (TaskList) ActionType() string { return ActionTaskList }

// Final carries the planner's answer for the active task or the whole goal.
type Final struct {
	Content string
}

func (Final) isAction() {}

// ActionType implements Action.
func (Final) ActionType() string { return ActionFinal }

// actionEnvelope is the canonical JSON shape of every action.
type actionEnvelope struct {
	Type    string         `json:"type"`
	Tool    string         `json:"tool,omitempty"`
	Args    map[string]any `json:"args,omitempty"`
	Reason  string         `json:"reason,omitempty"`
	Tasks   []TaskSpec     `json:"tasks,omitempty"`
	Content string         `json:"content,omitempty"`
}

// EncodeAction renders an action as its canonical JSON envelope.
// A nil action encodes to JSON null.
func EncodeAction(a Action) (json.RawMessage, error) {
	if a == nil {
		return json.RawMessage("null"), nil
	}
	return json.Marshal(ActionMap(a))
}

// DecodeAction parses a canonical JSON envelope. JSON null decodes to a nil
// action without error.
func DecodeAction(data []byte) (Action, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	var env actionEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode action: %w", err)
	}
	switch env.Type {
	case ActionUseTool:
		args := env.Args
		if args == nil {
			args = map[string]any{}
		}
		return UseTool{Tool: env.Tool, Args: args, Reason: env.Reason}, nil
	case ActionTaskList:
		return TaskList{Tasks: env.Tasks}, nil
	case ActionFinal:
		return Final{Content: env.Content}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, env.Type)
	}
}

// ActionMap returns the envelope as a generic map, the shape used in trace
// event payloads.
func ActionMap(a Action) map[string]any {
	switch v := a.(type) {
	case UseTool:
		return map[string]any{"type": ActionUseTool, "tool": v.Tool, "args": v.Args, "reason": v.Reason}
	case TaskList:
		tasks := make([]map[string]any, 0, len(v.Tasks))
		for _, t := range v.Tasks {
			tasks = append(tasks, map[string]any{"id": t.ID, "goal": t.Goal})
		}
		return map[string]any{"type": ActionTaskList, "tasks": tasks}
	case Final:
		return map[string]any{"type": ActionFinal, "content": v.Content}
	default:
		return nil
	}
}
