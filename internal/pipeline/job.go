// Package pipeline orchestrates one ontology conversion end to end:
// fetch, preprocess, convert to an intermediary, project to FHIR, clean up.
package pipeline

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/kalambet/owl2fhir/internal/convert"
	"github.com/kalambet/owl2fhir/internal/fetch"
)

// Job is one request to convert a single ontology. It is built from CLI or
// batch input, consumed once, and not persisted.
type Job struct {
	// Source is a local path or an absolute URL. Exactly one local file is
	// resolved from it before conversion begins.
	Source string

	OutDir      string
	OutFilename string

	CodeSystemID  string
	CodeSystemURL string

	IntermediaryKind     convert.Kind
	IncludeAllPredicates bool

	UseCachedIntermediaries bool
	RetainIntermediaries    bool
	// ConvertIntermediariesOnly stops after the intermediary is built; the
	// job's result is then the intermediary path and no retention runs.
	ConvertIntermediariesOnly bool

	// NativeURIStems identify concepts owned by this code system; used to
	// patch graph documents whose root nodes the conversion engine dropped.
	NativeURIStems []string
}

// normalize fills in the derived output filename and code-system id.
//
// Rules, in order: a missing filename is derived from the id as
// CodeSystem-<id>.json; a missing id is first derived from a local source's
// basename (a URL's local name is not known yet, leaving CodeSystem.json);
// finally a CodeSystem-<x>.<ext> filename back-fills a missing id.
func (j *Job) normalize() error {
	if j.Source == "" {
		return fmt.Errorf("job has no source")
	}
	if j.OutFilename == "" {
		if j.CodeSystemID == "" && !fetch.IsURL(j.Source) {
			base := filepath.Base(j.Source)
			j.CodeSystemID = strings.TrimSuffix(base, filepath.Ext(base))
		}
		if j.CodeSystemID == "" {
			j.OutFilename = "CodeSystem.json"
		} else {
			j.OutFilename = "CodeSystem-" + j.CodeSystemID + ".json"
		}
	}
	if j.CodeSystemID == "" {
		if rest, ok := strings.CutPrefix(j.OutFilename, "CodeSystem-"); ok {
			j.CodeSystemID, _, _ = strings.Cut(rest, ".")
		}
	}
	if j.IntermediaryKind == "" {
		j.IntermediaryKind = convert.KindObograph
	}
	return nil
}
