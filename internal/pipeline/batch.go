package pipeline

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/kalambet/owl2fhir/internal/convert"
	"github.com/kalambet/owl2fhir/internal/registry"
)

// JobResult is one batch entry's outcome. Failures are values, not panics:
// the runner reports them here and the batch continues.
type JobResult struct {
	ID     string
	Output string
	Err    error
}

// BatchReport accumulates results in completion order.
type BatchReport struct {
	RunID   string
	Results []JobResult
	// Successes and Failures list job ids in completion order.
	Successes []string
	Failures  []string
}

func (r *BatchReport) record(res JobResult) {
	r.Results = append(r.Results, res)
	if res.Err != nil {
		r.Failures = append(r.Failures, res.ID)
	} else {
		r.Successes = append(r.Successes, res.ID)
	}
}

// RunBatch converts every registry entry sequentially with the registry's
// shared defaults. One entry's failure never aborts the batch or affects
// another entry; partially written files of a failed job are not cleaned up.
func (r *Runner) RunBatch(ctx context.Context, reg *registry.Registry) BatchReport {
	report := BatchReport{RunID: uuid.New().String()}
	log := slog.With("run", report.RunID)

	total := len(reg.Ontologies)
	for i, ont := range reg.Ontologies {
		log.Info("converting ontology", "n", i+1, "total", total, "id", ont.ID)

		job := batchJob(ont, reg.Defaults)
		out, err := r.Run(ctx, job)
		if err != nil {
			log.Error("conversion failed", "id", ont.ID, "error", err)
		}
		report.record(JobResult{ID: ont.ID, Output: out, Err: err})
	}
	return report
}

func batchJob(ont registry.Ontology, d registry.Defaults) Job {
	kind := convert.Kind(d.IntermediaryType)
	if kind == "" {
		kind = convert.KindObograph
	}
	return Job{
		Source:                    ont.Source(),
		OutDir:                    d.OutDir,
		OutFilename:               "CodeSystem-" + ont.ID + ".json",
		CodeSystemID:              ont.ID,
		CodeSystemURL:             ont.CanonicalURL,
		IntermediaryKind:          kind,
		IncludeAllPredicates:      d.IncludeAllPredicates,
		UseCachedIntermediaries:   d.UseCachedIntermediaries,
		RetainIntermediaries:      d.RetainIntermediaries,
		ConvertIntermediariesOnly: d.ConvertIntermediariesOnly,
		NativeURIStems:            ont.NativeURIStems,
	}
}
