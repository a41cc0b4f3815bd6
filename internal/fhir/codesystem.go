// Package fhir produces FHIR CodeSystem resources from intermediary
// artifacts.
package fhir

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// CodeSystem is the subset of the FHIR CodeSystem resource this tool emits.
// See https://hl7.org/fhir/codesystem.html.
type CodeSystem struct {
	ResourceType string     `json:"resourceType"`
	ID           string     `json:"id,omitempty"`
	URL          string     `json:"url,omitempty"`
	Name         string     `json:"name,omitempty"`
	Status       string     `json:"status"`
	Content      string     `json:"content"`
	Property     []Property `json:"property,omitempty"`
	Concept      []Concept  `json:"concept,omitempty"`
}

// Property declares a property used by the concepts in this code system.
type Property struct {
	Code string `json:"code"`
	Type string `json:"type"`
}

// Concept is one code with its display and relationship properties.
type Concept struct {
	Code       string            `json:"code"`
	Display    string            `json:"display,omitempty"`
	Definition string            `json:"definition,omitempty"`
	Property   []ConceptProperty `json:"property,omitempty"`
}

// ConceptProperty relates a concept to another code, e.g. its parent.
type ConceptProperty struct {
	Code      string `json:"code"`
	ValueCode string `json:"valueCode"`
}

// Write serializes the resource to dir/filename, creating dir as needed.
// Existing output is overwritten; final artifacts are never cached.
func (cs *CodeSystem) Write(dir, filename string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}
	path := filepath.Join(dir, filename)
	data, err := json.MarshalIndent(cs, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding CodeSystem: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing CodeSystem: %w", err)
	}
	return path, nil
}
