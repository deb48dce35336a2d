package hierarchy

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goccy/go-graphviz"
)

// ToDOT returns a Graphviz DOT representation of the tree rooted at n.
//
// Grouping nodes are drawn as ellipses, regions as rounded boxes labeled
// "name (ABBR)"; bilateral regions get a double border.
func ToDOT(n *Node) string {
	var buf bytes.Buffer
	buf.WriteString("digraph Hierarchy {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [fontname=\"Helvetica\", fontsize=12, style=filled, fillcolor=white];\n")
	buf.WriteString("  edge [arrowhead=none];\n\n")

	if n != nil {
		writeDOTNode(&buf, n, 0)
	}

	buf.WriteString("}\n")
	return buf.String()
}

func writeDOTNode(buf *bytes.Buffer, n *Node, id int) int {
	nodeID := fmt.Sprintf("n%d", id)
	next := id + 1

	if n.IsGroup() {
		fmt.Fprintf(buf, "  %s [label=%q, shape=ellipse];\n", nodeID, n.Name)
	} else {
		periph := 1
		if n.HasSides {
			periph = 2
		}
		label := fmt.Sprintf("%s (%s)", n.Name, n.Abbreviation)
		fmt.Fprintf(buf, "  %s [label=%q, shape=box, style=\"filled,rounded\", peripheries=%d];\n", nodeID, label, periph)
	}

	for _, c := range n.Children {
		fmt.Fprintf(buf, "  %s -> n%d;\n", nodeID, next)
		next = writeDOTNode(buf, c, next)
	}
	return next
}

// RenderSVG renders the tree as an SVG document via Graphviz.
func RenderSVG(ctx context.Context, n *Node) ([]byte, error) {
	dot := ToDOT(n)

	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
