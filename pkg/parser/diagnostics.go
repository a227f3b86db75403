package parser

import (
	"fmt"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"esrt/pkg/errors"
)

func (c *parseContext) position(node *sitter.Node) errors.Position {
	span := c.span(node)
	return errors.Position{
		Line:     span.Line,
		Column:   span.Column,
		StartPos: span.Start,
		EndPos:   span.End,
		Source:   c.src,
	}
}

func (c *parseContext) errorAt(node *sitter.Node, format string, args ...any) *errors.SyntaxError {
	return &errors.SyntaxError{Position: c.position(node), Msg: fmt.Sprintf(format, args...)}
}

// syntaxError reports the first missing or erroneous node of the tree.
func (c *parseContext) syntaxError(root *sitter.Node) *errors.SyntaxError {
	if missing := findFirst(root, (*sitter.Node).IsMissing); missing != nil {
		return c.errorAt(missing, "expected %s", missing.Kind())
	}
	if bad := findFirst(root, (*sitter.Node).IsError); bad != nil {
		text := c.textOf(bad)
		if len(text) > 20 {
			text = text[:20] + "..."
		}
		return c.errorAt(bad, "unexpected %q", text)
	}
	return c.errorAt(root, "syntax error")
}

// findFirst returns the matching node with the smallest start offset.
func findFirst(root *sitter.Node, match func(*sitter.Node) bool) *sitter.Node {
	var best *sitter.Node
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}
		if match(n) && (best == nil || n.StartByte() < best.StartByte()) {
			best = n
		}
		for i := uint(0); i < n.ChildCount(); i++ {
			walk(n.Child(i))
		}
	}
	walk(root)
	return best
}
