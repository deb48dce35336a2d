package hierarchy

import (
	"encoding/json"
	"strconv"
	"strings"

	aerr "github.com/matzehuels/histatlas/pkg/errors"
)

// RootName is the display name of the synthetic root returned by Build.
const RootName = "All regions"

// PathSeparator separates components of a row's positional path.
const PathSeparator = "-"

// Row is one line of the hierarchy table after normalization.
// Empty optional fields are represented by the empty string.
type Row struct {
	Index        string
	Name         string
	Abbreviation string
	HasSides     bool
	Function     string
}

// Node is one anatomical region or grouping in the tree.
//
// Grouping nodes have no abbreviation and exist only to organize their
// children; leaf regions carry a unique abbreviation.
type Node struct {
	Name         string
	Abbreviation string
	HasSides     bool
	Function     string
	Children     []*Node
}

// IsGroup reports whether n is a grouping-only node.
func (n *Node) IsGroup() bool { return n.Abbreviation == "" }

// Walk visits n and its descendants in pre-order. depth is 0 for n itself.
// Returning false from fn skips the node's children.
func (n *Node) Walk(fn func(node *Node, depth int) bool) {
	n.walk(fn, 0)
}

func (n *Node) walk(fn func(*Node, int) bool, depth int) {
	if !fn(n, depth) {
		return
	}
	for _, c := range n.Children {
		c.walk(fn, depth+1)
	}
}

// Find returns the first node with the given abbreviation and its depth
// below n.
func (n *Node) Find(abbreviation string) (*Node, int, bool) {
	var (
		found *Node
		at    int
	)
	n.Walk(func(node *Node, depth int) bool {
		if found != nil {
			return false
		}
		if node.Abbreviation == abbreviation && abbreviation != "" {
			found, at = node, depth
			return false
		}
		return true
	})
	return found, at, found != nil
}

// Count returns the number of nodes below n, excluding n.
func (n *Node) Count() int {
	total := 0
	for _, c := range n.Children {
		total += 1 + c.Count()
	}
	return total
}

// nodeJSON is the viewer-facing encoding: absent strings become null and
// every node starts checked and expanded.
type nodeJSON struct {
	Name         string  `json:"name"`
	Abbreviation *string `json:"abbreviation"`
	HasSides     bool    `json:"hasSides"`
	Function     *string `json:"function"`
	Checked      int     `json:"checked"`
	Open         bool    `json:"open"`
	Children     []*Node `json:"children"`
}

// MarshalJSON implements json.Marshaler.
func (n *Node) MarshalJSON() ([]byte, error) {
	children := n.Children
	if children == nil {
		children = []*Node{}
	}
	return json.Marshal(nodeJSON{
		Name:         n.Name,
		Abbreviation: nullable(n.Abbreviation),
		HasSides:     n.HasSides,
		Function:     nullable(n.Function),
		Checked:      1,
		Open:         true,
		Children:     children,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *Node) UnmarshalJSON(data []byte) error {
	var raw nodeJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*n = Node{
		Name:     raw.Name,
		HasSides: raw.HasSides,
		Children: raw.Children,
	}
	if raw.Abbreviation != nil {
		n.Abbreviation = *raw.Abbreviation
	}
	if raw.Function != nil {
		n.Function = *raw.Function
	}
	return nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// ParsePath splits a positional path such as "0-2-1" into slot indices.
func ParsePath(index string) ([]int, error) {
	if strings.TrimSpace(index) == "" {
		return nil, aerr.New(aerr.ErrCodeInvalidHierarchy, "empty index")
	}
	parts := strings.Split(index, PathSeparator)
	path := make([]int, len(parts))
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || v < 0 {
			return nil, aerr.New(aerr.ErrCodeInvalidHierarchy, "index %q: component %q is not a non-negative integer", index, p)
		}
		path[i] = v
	}
	return path, nil
}

// Build reconstructs the tree from rows listed in pre-order.
//
// Every proper prefix of a row's path must already be present, and the
// row's final component must equal the number of children its parent has so
// far. A row that violates either rule is rejected with
// errors.ErrCodeInvalidHierarchy naming the row.
func Build(rows []Row) (*Node, error) {
	root := &Node{Name: RootName}

	for i, row := range rows {
		path, err := ParsePath(row.Index)
		if err != nil {
			return nil, aerr.Wrap(aerr.ErrCodeInvalidHierarchy, err, "row %d (%s)", i+1, row.Name)
		}

		parent := root
		for depth, slot := range path[:len(path)-1] {
			if slot >= len(parent.Children) {
				return nil, aerr.New(aerr.ErrCodeInvalidHierarchy,
					"row %d (%s): index %q references missing parent %q",
					i+1, row.Name, row.Index, strings.Join(strings.Split(row.Index, PathSeparator)[:depth+1], PathSeparator))
			}
			parent = parent.Children[slot]
		}

		last := path[len(path)-1]
		switch {
		case last < len(parent.Children):
			return nil, aerr.New(aerr.ErrCodeInvalidHierarchy,
				"row %d (%s): index %q is already occupied by %q",
				i+1, row.Name, row.Index, parent.Children[last].Name)
		case last > len(parent.Children):
			return nil, aerr.New(aerr.ErrCodeInvalidHierarchy,
				"row %d (%s): index %q is out of order (next free slot is %d)",
				i+1, row.Name, row.Index, len(parent.Children))
		}

		parent.Children = append(parent.Children, &Node{
			Name:         row.Name,
			Abbreviation: row.Abbreviation,
			HasSides:     row.HasSides,
			Function:     row.Function,
		})
	}
	return root, nil
}
