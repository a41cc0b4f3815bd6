// Package obograph models the node/edge graph documents produced by the
// graph-conversion engine.
package obograph

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// GraphDocument is the top-level structure of a graph-document JSON file.
type GraphDocument struct {
	Graphs []*Graph `json:"graphs"`
}

// Graph holds one ontology's concepts and relationships.
type Graph struct {
	ID    string  `json:"id,omitempty"`
	Nodes []*Node `json:"nodes"`
	Edges []*Edge `json:"edges"`
}

// Node is a single concept declaration.
type Node struct {
	ID    string `json:"id"`
	Label string `json:"lbl,omitempty"`
	Type  string `json:"type,omitempty"`
	Meta  *Meta  `json:"meta,omitempty"`
}

// Meta carries optional node annotations.
type Meta struct {
	Definition *Definition `json:"definition,omitempty"`
	Deprecated bool        `json:"deprecated,omitempty"`
}

type Definition struct {
	Val string `json:"val,omitempty"`
}

// Edge is a directed, labeled relationship between two concepts.
type Edge struct {
	Sub  string `json:"sub"`
	Pred string `json:"pred"`
	Obj  string `json:"obj"`
}

// Load reads a graph document from path.
func Load(path string) (*GraphDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading graph document: %w", err)
	}
	var doc GraphDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing graph document %s: %w", path, err)
	}
	return &doc, nil
}

// Save writes the document back to path.
func (d *GraphDocument) Save(path string) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encoding graph document: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// PatchMissingNodes synthesizes placeholder declarations for node ids that
// appear in edges but not in the node list, restricted to ids matching one of
// the native URI stems. The graph-conversion engine omits root and otherwise
// ungrounded nodes; ids outside the native stems are foreign references and
// are left unresolved. Returns the added ids in sorted order.
func (d *GraphDocument) PatchMissingNodes(nativeURIStems []string) []string {
	if len(nativeURIStems) == 0 || len(d.Graphs) == 0 {
		return nil
	}
	g := d.Graphs[0]

	declared := make(map[string]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		declared[n.ID] = true
	}

	missing := make(map[string]bool)
	for _, e := range g.Edges {
		for _, id := range []string{e.Sub, e.Obj} {
			if !declared[id] && isNative(id, nativeURIStems) {
				missing[id] = true
			}
		}
	}
	if len(missing) == 0 {
		return nil
	}

	added := make([]string, 0, len(missing))
	for id := range missing {
		added = append(added, id)
	}
	sort.Strings(added)
	for _, id := range added {
		g.Nodes = append(g.Nodes, &Node{ID: id})
	}
	return added
}

func isNative(id string, stems []string) bool {
	for _, stem := range stems {
		if strings.HasPrefix(id, stem) {
			return true
		}
	}
	return false
}
