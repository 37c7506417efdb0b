package extractor

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// RenderMarkdown returns the text content of a markdown document, one block
// per line, without markup.
func RenderMarkdown(src []byte) string {
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	var sb strings.Builder
	newline := func() {
		if sb.Len() > 0 && !strings.HasSuffix(sb.String(), "\n") {
			sb.WriteByte('\n')
		}
	}

	ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := n.(type) {
		case *ast.Text:
			if entering {
				sb.Write(node.Segment.Value(src))
				if node.HardLineBreak() {
					sb.WriteByte('\n')
				} else if node.SoftLineBreak() {
					sb.WriteByte(' ')
				}
			}
		case *ast.String:
			if entering {
				sb.Write(node.Value)
			}
		case *ast.CodeBlock, *ast.FencedCodeBlock:
			if entering {
				lines := n.Lines()
				for i := 0; i < lines.Len(); i++ {
					seg := lines.At(i)
					sb.Write(seg.Value(src))
				}
				newline()
				return ast.WalkSkipChildren, nil
			}
		case *ast.HTMLBlock:
			return ast.WalkSkipChildren, nil
		}

		if !entering && n.Type() == ast.TypeBlock {
			newline()
		}
		return ast.WalkContinue, nil
	})

	return strings.TrimSpace(sb.String())
}
