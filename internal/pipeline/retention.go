package pipeline

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/kalambet/owl2fhir/internal/convert"
)

// templateDBName is scaffolding the snapshot build engine leaves in the
// input directory. It is never a user-facing artifact and is always removed.
const templateDBName = ".template.db"

// retain applies the retention policy after a successful conversion. With
// retention off, the primary intermediary and its side-artifacts (the
// relation-graph index paired with a snapshot) are deleted.
func retain(inputDir string, artifact convert.Artifact, retainIntermediaries bool) error {
	if err := removeIfPresent(filepath.Join(inputDir, templateDBName)); err != nil {
		return err
	}
	if retainIntermediaries {
		return nil
	}

	slog.Debug("removing intermediaries", "primary", artifact.Path)
	if err := removeIfPresent(artifact.Path); err != nil {
		return err
	}
	for _, side := range artifact.SideArtifacts() {
		if err := removeIfPresent(side); err != nil {
			return err
		}
	}
	return nil
}

func removeIfPresent(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing %s: %w", path, err)
	}
	return nil
}
