package parser

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hupe1980/memora/core"
)

type rawAction struct {
	Type    string            `json:"type"`
	Tool    string            `json:"tool"`
	Args    json.RawMessage   `json:"args"`
	Reason  string            `json:"reason"`
	Thought string            `json:"thought"`
	Tasks   []json.RawMessage `json:"tasks"`
	Content json.RawMessage   `json:"content"`
}

// decodeJSONAction reports ok=false when s is not a JSON object, so the
// caller can try the next encoding. An object naming a known action type
// with a malformed body is an error.
func decodeJSONAction(s string) (core.Action, bool, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "{") {
		return nil, false, nil
	}

	var raw rawAction
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return nil, false, nil
	}

	typ := normalizeType(raw.Type)
	if typ == "" {
		typ = inferType(raw)
	}

	switch typ {
	case core.ActionUseTool:
		args, err := decodeArgs(raw.Args)
		if err != nil {
			return nil, true, fmt.Errorf("%w: invalid %s: %v", ErrUnknownAction, typ, err)
		}
		reason := raw.Reason
		if reason == "" {
			reason = raw.Thought
		}
		return core.UseTool{Tool: strings.TrimSpace(raw.Tool), Args: args, Reason: reason}, true, nil
	case core.ActionTaskList:
		specs, err := decodeTasks(raw.Tasks)
		if err != nil {
			return nil, true, fmt.Errorf("%w: invalid %s: %v", ErrUnknownAction, typ, err)
		}
		return core.TaskList{Tasks: specs}, true, nil
	case core.ActionFinal:
		return core.Final{Content: decodeContent(raw.Content)}, true, nil
	default:
		return nil, true, fmt.Errorf("%w: %q", ErrUnknownAction, raw.Type)
	}
}

func normalizeType(t string) string {
	t = strings.ToLower(strings.TrimSpace(t))
	switch t {
	case "finish", "final_answer":
		return core.ActionFinal
	case "tool", "tool_call":
		return core.ActionUseTool
	case "tasks":
		return core.ActionTaskList
	default:
		return t
	}
}

func inferType(raw rawAction) string {
	switch {
	case raw.Tool != "":
		return core.ActionUseTool
	case raw.Tasks != nil:
		return core.ActionTaskList
	case raw.Content != nil:
		return core.ActionFinal
	default:
		return ""
	}
}

// decodeArgs accepts an object or a JSON string holding an object.
func decodeArgs(raw json.RawMessage) (map[string]any, error) {
	args := map[string]any{}
	if len(raw) == 0 || string(raw) == "null" {
		return args, nil
	}

	var nested string
	if err := json.Unmarshal(raw, &nested); err == nil {
		if strings.TrimSpace(nested) == "" {
			return args, nil
		}
		raw = json.RawMessage(nested)
	}

	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, err
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

// decodeTasks accepts objects ({"id","goal"} or {"description"}) and plain strings.
func decodeTasks(items []json.RawMessage) ([]core.TaskSpec, error) {
	specs := make([]core.TaskSpec, 0, len(items))
	for _, item := range items {
		var goal string
		if err := json.Unmarshal(item, &goal); err == nil {
			specs = append(specs, core.TaskSpec{Goal: goal})
			continue
		}

		var obj struct {
			ID          any    `json:"id"`
			Goal        string `json:"goal"`
			Description string `json:"description"`
			Task        string `json:"task"`
		}
		if err := json.Unmarshal(item, &obj); err != nil {
			return nil, err
		}

		spec := core.TaskSpec{Goal: firstNonEmpty(obj.Goal, obj.Description, obj.Task)}
		if obj.ID != nil {
			spec.ID = strings.TrimSpace(fmt.Sprint(obj.ID))
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func decodeContent(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
