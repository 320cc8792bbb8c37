package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/hupe1980/memora/core"
)

var quotedCommand = regexp.MustCompile(`command=["'](.*?)["']`)

// parseLines handles the "Action:/Tool:/Args:" grammar. ok is false when no
// Action line is present.
func parseLines(text string) (core.Action, bool, error) {
	var (
		typ     string
		tool    string
		args    map[string]any
		reason  string
		hasType bool
	)

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "Action:"):
			typ = strings.ToLower(value(line))
			hasType = true
			if typ == "finish" {
				return core.Final{Content: text}, true, nil
			}
		case strings.HasPrefix(line, "Tool:"):
			tool = value(line)
		case strings.HasPrefix(line, "Args:"):
			args = parseLegacyArgs(value(line))
		case strings.HasPrefix(line, "Thought:"):
			reason = value(line)
		}
	}

	if !hasType || typ == "" {
		return nil, false, nil
	}

	switch typ {
	case core.ActionUseTool:
		if args == nil {
			args = map[string]any{}
		}
		return core.UseTool{Tool: tool, Args: args, Reason: reason}, true, nil
	case core.ActionFinal:
		return core.Final{Content: text}, true, nil
	case core.ActionTaskList:
		return core.TaskList{Tasks: []core.TaskSpec{}}, true, nil
	default:
		return nil, true, fmt.Errorf("%w: %q", ErrUnknownAction, typ)
	}
}

func value(line string) string {
	_, v, _ := strings.Cut(line, ":")
	return strings.TrimSpace(v)
}

// parseLegacyArgs understands command="..." (quoted or bare remainder) and
// comma separated key=value lists such as operation="read", path="a.txt".
func parseLegacyArgs(s string) map[string]any {
	if m := quotedCommand.FindStringSubmatch(s); m != nil {
		return map[string]any{"command": m[1]}
	}
	if _, rest, ok := strings.Cut(s, "command="); ok {
		return map[string]any{"command": strings.TrimSpace(rest)}
	}
	if strings.Contains(s, "operation=") {
		args := map[string]any{}
		for _, part := range strings.Split(s, ",") {
			k, v, ok := strings.Cut(part, "=")
			if !ok {
				continue
			}
			args[strings.TrimSpace(k)] = strings.Trim(strings.TrimSpace(v), `"'`)
		}
		return args
	}
	return nil
}
