// Package models defines the data structures exchanged between the crawl
// and import phases, plus the JSON documents persisted at phase boundaries.
package models

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// CategoryNode is one node of the source catalog's category forest.
// Products is filled transiently while sampling listings and is never
// persisted with the tree.
type CategoryNode struct {
	ID            int              `json:"id"`
	Name          string           `json:"name"`
	Children      []*CategoryNode  `json:"children,omitempty"`
	NumberOfPages int              `json:"number_of_pages,omitempty"`
	Products      []*ProductRecord `json:"-"`
}

// IsLeaf reports whether the node has no children. Leaves are the unit
// at which listings are paginated.
func (n *CategoryNode) IsLeaf() bool {
	return len(n.Children) == 0
}

// Leaves returns all leaf nodes of the forest in pre-order.
func Leaves(forest []*CategoryNode) []*CategoryNode {
	var out []*CategoryNode
	var walk func(nodes []*CategoryNode)
	walk = func(nodes []*CategoryNode) {
		for _, n := range nodes {
			if n.IsLeaf() {
				out = append(out, n)
				continue
			}
			walk(n.Children)
		}
	}
	walk(forest)
	return out
}

// CountNodes returns the total number of nodes in the forest.
func CountNodes(forest []*CategoryNode) int {
	total := 0
	var walk func(nodes []*CategoryNode)
	walk = func(nodes []*CategoryNode) {
		for _, n := range nodes {
			total++
			walk(n.Children)
		}
	}
	walk(forest)
	return total
}

// SaveTree writes the category forest as a JSON document.
func SaveTree(path string, forest []*CategoryNode) error {
	return writeJSON(path, forest)
}

// LoadTree reads a category forest document written by SaveTree.
func LoadTree(path string) ([]*CategoryNode, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tree file: %w", err)
	}
	var forest []*CategoryNode
	if err := json.Unmarshal(data, &forest); err != nil {
		return nil, fmt.Errorf("decode tree file %s: %w", path, err)
	}
	return forest, nil
}

func writeJSON(path string, v any) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
