package fhir

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kalambet/owl2fhir/internal/extool"
)

// SnapshotProjector shells out to the terminology toolkit to project a
// relational snapshot into a CodeSystem. Output is whatever the toolkit
// writes; no validation of the produced JSON is performed here.
type SnapshotProjector struct {
	runner extool.Runner
	// RunoakBin is the toolkit command.
	RunoakBin string
}

func NewSnapshotProjector(runner extool.Runner) *SnapshotProjector {
	return &SnapshotProjector{runner: runner, RunoakBin: "runoak"}
}

// Project runs the toolkit against dbPath and writes dir/filename.
func (p *SnapshotProjector) Project(ctx context.Context, dbPath, dir, filename string, includeAllPredicates bool) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}
	outPath := filepath.Join(dir, filename)

	argv := []string{p.RunoakBin, "-i", "sqlite:" + dbPath, "dump", "-o", outPath, "-O", "fhirjson"}
	if includeAllPredicates {
		argv = append(argv, "--include-all-predicates")
	}
	if _, err := p.runner.Run(ctx, "", argv...); err != nil {
		return "", fmt.Errorf("projecting snapshot %s: %w", dbPath, err)
	}
	return outPath, nil
}
