// Package preprocess applies source-specific fixes to raw ontology files
// before conversion.
//
// Only one vocabulary currently needs it: the Bioportal RxNorm TTL encodes
// relations in a form the downstream engines cannot parse, so it is rewritten
// by an external line-oriented script before conversion.
package preprocess

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/kalambet/owl2fhir/internal/extool"
)

// normalizedMarker in a filename means the file already went through the
// rewrite; Normalize is then a no-op.
const normalizedMarker = "-fixed"

// NeedsRxNormFix reports whether the source is the Bioportal RxNorm TTL,
// identified by a case-insensitive substring match on the input path or the
// job's output filename.
func NeedsRxNormFix(inputPath, outFilename string) bool {
	return strings.Contains(strings.ToLower(inputPath), "rxnorm") ||
		strings.Contains(strings.ToLower(outFilename), "rxnorm")
}

// Normalizer rewrites RxNorm triple files with an external script.
type Normalizer struct {
	runner extool.Runner
	// ScriptArgv is the rewrite command; the copied file path is appended
	// as the final argument and edited in place.
	ScriptArgv []string
}

func NewNormalizer(runner extool.Runner, scriptArgv []string) *Normalizer {
	return &Normalizer{runner: runner, ScriptArgv: scriptArgv}
}

// Normalize copies path to a "-fixed" sibling, runs the rewrite script
// against the copy, and returns the copy's path. The original file is never
// touched, and a failed rewrite propagates without leaving the derived path
// behind. Already-normalized inputs are returned unchanged.
func (n *Normalizer) Normalize(ctx context.Context, path string) (string, error) {
	if strings.Contains(path, normalizedMarker) {
		return path, nil
	}

	slog.Info("rxnorm triple format detected, normalizing", "path", path)
	outPath := deriveFixedPath(path)
	if err := copyFile(path, outPath); err != nil {
		return "", fmt.Errorf("copying for normalization: %w", err)
	}

	argv := append(append([]string{}, n.ScriptArgv...), outPath)
	if _, err := n.runner.Run(ctx, "", argv...); err != nil {
		os.Remove(outPath)
		return "", fmt.Errorf("normalizing %s: %w", path, err)
	}
	return outPath, nil
}

func deriveFixedPath(path string) string {
	if strings.HasSuffix(path, ".ttl") {
		return strings.TrimSuffix(path, ".ttl") + normalizedMarker + ".ttl"
	}
	return path + normalizedMarker
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
