// Package registry holds the configured list of ontologies for batch runs.
//
// The registry is data, not code: it ships with an embedded default covering
// the ontologies we publish, and deployments can point the CLI at their own
// YAML file to run an arbitrary list.
package registry

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed registry.yaml
var defaultRegistry []byte

// Ontology describes one convertible ontology.
type Ontology struct {
	ID             string   `yaml:"id"`
	DownloadURL    string   `yaml:"download_url"`
	CanonicalURL   string   `yaml:"canonical_url"`
	InputPath      string   `yaml:"input_path"`
	NativeURIStems []string `yaml:"native_uri_stems"`
}

// Source is the conversion input: a pre-fetched local file when configured,
// otherwise the download URL.
func (o Ontology) Source() string {
	if o.InputPath != "" {
		return o.InputPath
	}
	return o.DownloadURL
}

// Defaults are the shared job options applied to every batch entry.
type Defaults struct {
	OutDir                    string `yaml:"out_dir"`
	IncludeAllPredicates      bool   `yaml:"include_all_predicates"`
	IntermediaryType          string `yaml:"intermediary_type"`
	UseCachedIntermediaries   bool   `yaml:"use_cached_intermediaries"`
	RetainIntermediaries      bool   `yaml:"retain_intermediaries"`
	ConvertIntermediariesOnly bool   `yaml:"convert_intermediaries_only"`
}

// Registry is a batch configuration: shared defaults plus an ordered
// ontology list.
type Registry struct {
	Defaults   Defaults   `yaml:"defaults"`
	Ontologies []Ontology `yaml:"ontologies"`
}

// Default returns the embedded registry.
func Default() (*Registry, error) {
	return parse(defaultRegistry)
}

// Load reads a registry from path, or the embedded default when path is
// empty.
func Load(path string) (*Registry, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading registry: %w", err)
	}
	return parse(data)
}

func parse(data []byte) (*Registry, error) {
	var r Registry
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parsing registry: %w", err)
	}
	for i, o := range r.Ontologies {
		if o.ID == "" {
			return nil, fmt.Errorf("registry entry %d has no id", i)
		}
		if o.DownloadURL == "" && o.InputPath == "" {
			return nil, fmt.Errorf("registry entry %q has neither a download URL nor an input path", o.ID)
		}
	}
	return &r, nil
}
