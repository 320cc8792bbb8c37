package agent

import (
	_ "embed"
	"fmt"

	"github.com/hupe1980/memora/internal/util"
	"github.com/hupe1980/memora/tool"
)

var (
	//go:embed prompts/planner.tmpl
	plannerTemplate string

	//go:embed prompts/writer.tmpl
	writerTemplate string

	//go:embed prompts/writer_user.tmpl
	writerUserTemplate string
)

// ToolSpec is the planner facing description of a tool.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// ToolLister enumerates tools; *tool.Registry implements it.
type ToolLister interface {
	List() []tool.Tool
}

// Specs converts registered tools into prompt specs.
func Specs(l ToolLister) []ToolSpec {
	if l == nil {
		return nil
	}
	tools := l.List()
	specs := make([]ToolSpec, 0, len(tools))
	for _, t := range tools {
		specs = append(specs, ToolSpec{Name: t.Name(), Description: t.Description(), Parameters: t.Parameters()})
	}
	return specs
}

type plannerPromptData struct {
	Tools []ToolSpec
	Extra string
}

// RenderPlannerPrompt renders the planner system prompt for the given tools.
// extra is appended verbatim as additional instructions.
func RenderPlannerPrompt(tools []ToolSpec, extra string) (string, error) {
	out, err := util.RenderTemplate(plannerTemplate, plannerPromptData{Tools: tools, Extra: extra})
	if err != nil {
		return "", fmt.Errorf("planner prompt: %w", err)
	}
	return out, nil
}
