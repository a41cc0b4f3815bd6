package fhir

import (
	"fmt"
	"sort"

	"github.com/kalambet/owl2fhir/internal/obograph"
)

// Predicates treated as the subclass/parent relationship.
var parentPredicates = map[string]bool{
	"is_a": true,
	"http://www.w3.org/2000/01/rdf-schema#subClassOf": true,
	"rdfs:subClassOf": true,
}

// ProjectOptions controls the graph-document projection.
type ProjectOptions struct {
	CodeSystemID string
	CanonicalURL string
	// IncludeAllPredicates emits every predicate found in the source as a
	// concept property. When false only parent relationships are kept.
	IncludeAllPredicates bool
	// Prefixes defaults to DefaultPrefixMap when nil.
	Prefixes PrefixMap
}

// ProjectGraph converts a loaded graph document into a CodeSystem resource.
// Concept order follows node order in the document; synthesized placeholder
// nodes appear with their code only.
func ProjectGraph(doc *obograph.GraphDocument, opts ProjectOptions) (*CodeSystem, error) {
	if len(doc.Graphs) == 0 {
		return nil, fmt.Errorf("graph document has no graphs")
	}
	prefixes := opts.Prefixes
	if prefixes == nil {
		prefixes = DefaultPrefixMap()
	}
	g := doc.Graphs[0]

	// Relationship properties per subject node.
	props := make(map[string][]ConceptProperty)
	usedCodes := make(map[string]bool)
	for _, e := range g.Edges {
		var code string
		switch {
		case parentPredicates[e.Pred]:
			code = "parent"
		case opts.IncludeAllPredicates:
			code = LocalName(e.Pred)
		default:
			continue
		}
		props[e.Sub] = append(props[e.Sub], ConceptProperty{
			Code:      code,
			ValueCode: prefixes.Compress(e.Obj),
		})
		usedCodes[code] = true
	}

	cs := &CodeSystem{
		ResourceType: "CodeSystem",
		ID:           opts.CodeSystemID,
		URL:          opts.CanonicalURL,
		Status:       "active",
		Content:      "complete",
	}

	codes := make([]string, 0, len(usedCodes))
	for code := range usedCodes {
		if code != "parent" {
			codes = append(codes, code)
		}
	}
	sort.Strings(codes)
	if usedCodes["parent"] {
		cs.Property = append(cs.Property, Property{Code: "parent", Type: "code"})
	}
	for _, code := range codes {
		cs.Property = append(cs.Property, Property{Code: code, Type: "code"})
	}

	for _, n := range g.Nodes {
		c := Concept{
			Code:     prefixes.Compress(n.ID),
			Display:  n.Label,
			Property: props[n.ID],
		}
		if n.Meta != nil && n.Meta.Definition != nil {
			c.Definition = n.Meta.Definition.Val
		}
		cs.Concept = append(cs.Concept, c)
	}
	return cs, nil
}
