package analysis

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
)

// goParser wraps a tree-sitter parser configured for Go source, mirroring
// the teacher's per-language TreeSitterParser setup.
type goParser struct {
	p *sitter.Parser
}

func newGoParser() *goParser {
	p := sitter.NewParser()
	p.SetLanguage(golang.GetLanguage())
	return &goParser{p: p}
}

func (g *goParser) Close() {
	g.p.Close()
}

func (g *goParser) parse(ctx context.Context, content []byte) (*sitter.Tree, error) {
	tree, err := g.p.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("analysis: parse: %w", err)
	}
	return tree, nil
}

// funcNode is one function_declaration or method_declaration found in
// the tree, with enough identity to report back to the caller.
type funcNode struct {
	name string
	node *sitter.Node
}

// walkFunctions collects every function/method declaration in the tree.
func walkFunctions(root *sitter.Node, src []byte) []funcNode {
	var out []funcNode
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		switch n.Type() {
		case "function_declaration", "method_declaration":
			if nameNode := n.ChildByFieldName("name"); nameNode != nil {
				out = append(out, funcNode{name: nameNode.Content(src), node: n})
			}
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(root)
	return out
}

// branchNodeTypes are the tree-sitter node types that add one to a
// function's cyclomatic complexity: one point per decision point,
// starting from a base complexity of 1.
var branchNodeTypes = map[string]bool{
	"if_statement":        true,
	"for_statement":       true,
	"expression_case":     true,
	"default_case":        true,
	"type_case":           true,
	"communication_case":  true,
}

// cyclomaticComplexity walks a single function's subtree counting
// decision points. binary_expression nodes only count when their
// operator is && or ||.
func cyclomaticComplexity(fn *sitter.Node, src []byte) int {
	complexity := 1
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		t := n.Type()
		if branchNodeTypes[t] {
			complexity++
		}
		if t == "binary_expression" {
			if op := n.ChildByFieldName("operator"); op != nil {
				switch op.Content(src) {
				case "&&", "||":
					complexity++
				}
			}
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(fn)
	return complexity
}

// isExported reports whether a Go identifier is exported.
func isExported(name string) bool {
	return len(name) > 0 && name[0] >= 'A' && name[0] <= 'Z'
}
