// Package story reconstructs chapter and scene hierarchy from flat list of
// documents linked by parent ids.
package story

import (
	"slices"

	"folio/project"
)

// Node is a document with its ordered children.
type Node struct {
	Doc      *project.Document
	Children []*Node
}

// Build filters docs to requested types (chapter and scene when none given),
// groups them by parent id and produces ordered forest starting from root
// documents. Documents whose parent is not among filtered documents are
// never reached and silently dropped together with their subtrees.
func Build(docs []project.Document, types ...string) []*Node {
	if len(types) == 0 {
		types = []string{project.TypeChapter, project.TypeScene}
	}

	groups := make(map[string][]*project.Document)
	for i := range docs {
		d := &docs[i]
		if !slices.Contains(types, d.Type) {
			continue
		}
		groups[d.ParentID] = append(groups[d.ParentID], d)
	}
	for _, g := range groups {
		slices.SortStableFunc(g, func(a, b *project.Document) int {
			return a.OrderIndex - b.OrderIndex
		})
	}

	visited := make(map[string]bool)
	var build func(parent string) []*Node
	build = func(parent string) []*Node {
		var nodes []*Node
		for _, d := range groups[parent] {
			// self referencing or duplicate ids must not loop
			if visited[d.ID] {
				continue
			}
			visited[d.ID] = true
			n := &Node{Doc: d}
			if d.ID != "" {
				n.Children = build(d.ID)
			}
			nodes = append(nodes, n)
		}
		return nodes
	}
	return build("")
}

// Flatten returns documents of the forest in pre-order, which is reading
// order.
func Flatten(nodes []*Node) []*project.Document {
	var out []*project.Document
	var walk func([]*Node)
	walk = func(nodes []*Node) {
		for _, n := range nodes {
			out = append(out, n.Doc)
			walk(n.Children)
		}
	}
	walk(nodes)
	return out
}

// AtDepth returns all nodes at given depth, roots are at depth 0.
func AtDepth(nodes []*Node, depth int) []*Node {
	if depth < 0 {
		return nil
	}
	if depth == 0 {
		return nodes
	}
	var out []*Node
	for _, n := range nodes {
		out = append(out, AtDepth(n.Children, depth-1)...)
	}
	return out
}

// Find returns node for document id or nil.
func Find(nodes []*Node, id string) *Node {
	for _, n := range nodes {
		if n.Doc.ID == id {
			return n
		}
		if found := Find(n.Children, id); found != nil {
			return found
		}
	}
	return nil
}

// Path returns chain of nodes from root to the node with given id, nil when
// id is not in the forest.
func Path(nodes []*Node, id string) []*Node {
	for _, n := range nodes {
		if n.Doc.ID == id {
			return []*Node{n}
		}
		if sub := Path(n.Children, id); sub != nil {
			return append([]*Node{n}, sub...)
		}
	}
	return nil
}
