// Package editor converts between the rich text editor document tree and
// the intermediate representation.
package editor

import (
	"encoding/json"
	"fmt"
)

// Node is a single node of the editor document tree as stored in document
// content.
type Node struct {
	Type    string         `json:"type"`
	Attrs   map[string]any `json:"attrs,omitempty"`
	Content []*Node        `json:"content,omitempty"`
	Marks   []Mark         `json:"marks,omitempty"`
	Text    string         `json:"text,omitempty"`
}

// Mark is a single editor text mark.
type Mark struct {
	Type  string         `json:"type"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

// Parse decodes stored document content. Empty input produces empty document.
func Parse(data []byte) (*Node, error) {
	if len(data) == 0 || string(data) == "null" {
		return &Node{Type: "doc"}, nil
	}
	var n Node
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("unable to decode editor document: %w", err)
	}
	return &n, nil
}

// Marshal encodes document tree for storage.
func Marshal(n *Node) ([]byte, error) {
	data, err := json.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("unable to encode editor document: %w", err)
	}
	return data, nil
}

func (n *Node) attrString(name string) string {
	if n.Attrs == nil {
		return ""
	}
	if s, ok := n.Attrs[name].(string); ok {
		return s
	}
	return ""
}

// attrInt handles both decoded JSON numbers and values set from Go code.
func (n *Node) attrInt(name string, def int) int {
	if n.Attrs == nil {
		return def
	}
	switch v := n.Attrs[name].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return int(i)
		}
	}
	return def
}

func (m Mark) attrString(name string) string {
	if m.Attrs == nil {
		return ""
	}
	if s, ok := m.Attrs[name].(string); ok {
		return s
	}
	return ""
}
