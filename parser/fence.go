package parser

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// inlineFence matches fences that do not start on their own line, which a
// CommonMark parser does not treat as code blocks.
var inlineFence = regexp.MustCompile("(?s)```json\\s*(\\{.*?\\})\\s*```")

// fencedJSON returns candidate JSON payloads in document order. Blocks found
// by the markdown parser come first, inline fences second.
func (p *Parser) fencedJSON(src string) []string {
	if !strings.Contains(src, "```") {
		return nil
	}

	source := []byte(src)
	doc := p.markdown.Parser().Parse(text.NewReader(source))

	var blocks []string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		fcb, ok := n.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}
		if !strings.EqualFold(string(fcb.Language(source)), "json") {
			return ast.WalkSkipChildren, nil
		}

		var buf bytes.Buffer
		lines := fcb.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			buf.Write(seg.Value(source))
		}
		if body := strings.TrimSpace(buf.String()); body != "" {
			blocks = append(blocks, body)
		}
		return ast.WalkSkipChildren, nil
	})

	for _, m := range inlineFence.FindAllStringSubmatch(src, -1) {
		blocks = append(blocks, m[1])
	}

	return blocks
}
