package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/kalambet/owl2fhir/internal/config"
	"github.com/kalambet/owl2fhir/internal/convert"
	"github.com/kalambet/owl2fhir/internal/extool"
	"github.com/kalambet/owl2fhir/internal/fetch"
	"github.com/kalambet/owl2fhir/internal/fhir"
	"github.com/kalambet/owl2fhir/internal/obograph"
	"github.com/kalambet/owl2fhir/internal/preprocess"
)

// Runner wires the pipeline stages. Execution is strictly sequential: every
// external engine call blocks until its subprocess exits, and no stage starts
// before its predecessor's artifact is confirmed. Concurrent runners sharing
// one cache directory are unsafe (cache checks and writes are not atomic).
type Runner struct {
	cacheDir string

	fetcher    *fetch.Fetcher
	normalizer *preprocess.Normalizer
	converter  *convert.Converter
	projector  *fhir.SnapshotProjector
}

// NewRunner builds a Runner from configuration, using exec for all engine
// invocations.
func NewRunner(cfg config.Config) *Runner {
	return NewRunnerWith(cfg, extool.ExecRunner{}, fetch.New(cfg.Fetch.Redownload))
}

// NewRunnerWith is the injection point for tests: engine invocations go
// through runner, downloads through fetcher.
func NewRunnerWith(cfg config.Config, runner extool.Runner, fetcher *fetch.Fetcher) *Runner {
	conv := convert.New(runner, cfg.Cache.Dir)
	conv.JavaBin = cfg.Tools.Java
	conv.RobotJar = cfg.Tools.RobotJar
	conv.DockerBin = cfg.Tools.Docker
	conv.SemsqlImage = cfg.Tools.SemsqlImage

	proj := fhir.NewSnapshotProjector(runner)
	proj.RunoakBin = cfg.Tools.Runoak

	return &Runner{
		cacheDir:   cfg.Cache.Dir,
		fetcher:    fetcher,
		normalizer: preprocess.NewNormalizer(runner, []string{cfg.Tools.Perl, "-i", cfg.Tools.RxNormScript}),
		converter:  conv,
		projector:  proj,
	}
}

// Run executes one job and returns the path of its result: the CodeSystem
// file, or the intermediary when the job is intermediaries-only. Partial
// artifacts of a failed run are left in place for inspection.
func (r *Runner) Run(ctx context.Context, job Job) (string, error) {
	if err := job.normalize(); err != nil {
		return "", err
	}
	log := slog.With("job", job.CodeSystemID)

	// Fetch.
	inputPath, err := r.fetcher.Resolve(ctx, job.Source, fetch.CachePath(r.cacheDir, job.OutFilename))
	if err != nil {
		return "", fmt.Errorf("fetching source: %w", err)
	}

	// Preprocess.
	if preprocess.NeedsRxNormFix(inputPath, job.OutFilename) {
		inputPath, err = r.normalizer.Normalize(ctx, inputPath)
		if err != nil {
			return "", err
		}
	}

	// Convert to the intermediary representation.
	artifact, err := r.converter.ToIntermediary(ctx, inputPath, job.IntermediaryKind,
		job.NativeURIStems, job.UseCachedIntermediaries)
	if err != nil {
		return "", err
	}
	log.Info("intermediary ready", "kind", artifact.Kind, "path", artifact.Path)

	if job.ConvertIntermediariesOnly {
		return artifact.Path, nil
	}

	// Project to FHIR.
	outPath, err := r.project(ctx, job, artifact)
	if err != nil {
		return "", err
	}
	log.Info("code system written", "path", outPath)

	// Clean up transient files.
	if err := retain(filepath.Dir(inputPath), artifact, job.RetainIntermediaries); err != nil {
		return "", err
	}
	return outPath, nil
}

func (r *Runner) project(ctx context.Context, job Job, artifact convert.Artifact) (string, error) {
	if artifact.Kind == convert.KindSemsql {
		return r.projector.Project(ctx, artifact.Path, job.OutDir, job.OutFilename, job.IncludeAllPredicates)
	}

	doc, err := obograph.Load(artifact.Path)
	if err != nil {
		return "", err
	}
	cs, err := fhir.ProjectGraph(doc, fhir.ProjectOptions{
		CodeSystemID:         job.CodeSystemID,
		CanonicalURL:         job.CodeSystemURL,
		IncludeAllPredicates: job.IncludeAllPredicates,
	})
	if err != nil {
		return "", fmt.Errorf("projecting graph document: %w", err)
	}
	return cs.Write(job.OutDir, job.OutFilename)
}
