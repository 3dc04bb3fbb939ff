package mention

import (
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// PlainText renders model output written in markdown as platform text:
// emphasis and headings are flattened, links keep their URL and list items
// keep a marker.
func PlainText(src string) string {
	if strings.TrimSpace(src) == "" {
		return ""
	}
	source := []byte(src)
	doc := goldmark.DefaultParser().Parse(text.NewReader(source))

	var sb strings.Builder
	linkStart := -1
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := n.(type) {
		case *ast.Text:
			if entering {
				sb.Write(node.Segment.Value(source))
				if node.SoftLineBreak() || node.HardLineBreak() {
					sb.WriteByte('\n')
				}
			}
		case *ast.String:
			if entering {
				sb.Write(node.Value)
			}
		case *ast.AutoLink:
			if entering {
				sb.Write(node.URL(source))
			}
			return ast.WalkSkipChildren, nil
		case *ast.Link:
			if entering {
				linkStart = sb.Len()
			} else {
				label := sb.String()[linkStart:]
				if dest := string(node.Destination); dest != "" && dest != label {
					fmt.Fprintf(&sb, " (%s)", dest)
				}
				linkStart = -1
			}
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			if entering {
				lines := n.Lines()
				for i := 0; i < lines.Len(); i++ {
					seg := lines.At(i)
					sb.Write(seg.Value(source))
				}
			}
		case *ast.RawHTML, *ast.HTMLBlock:
			return ast.WalkSkipChildren, nil
		case *ast.ListItem:
			if entering {
				if list, ok := node.Parent().(*ast.List); ok && list.IsOrdered() {
					fmt.Fprintf(&sb, "%d. ", list.Start+indexOf(node))
				} else {
					sb.WriteString("- ")
				}
			}
		}

		if !entering && n.Type() == ast.TypeBlock && n.NextSibling() != nil {
			if n.Kind() == ast.KindListItem || (n.Parent() != nil && n.Parent().Kind() == ast.KindListItem) {
				sb.WriteByte('\n')
			} else {
				sb.WriteString("\n\n")
			}
		}
		if _, isCode := n.(*ast.FencedCodeBlock); isCode {
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}

func indexOf(item ast.Node) int {
	i := 0
	for prev := item.PreviousSibling(); prev != nil; prev = prev.PreviousSibling() {
		i++
	}
	return i
}
