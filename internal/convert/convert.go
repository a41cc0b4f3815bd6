// Package convert turns a normalized ontology file into an intermediary
// artifact: a graph document or a relational snapshot.
package convert

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/kalambet/owl2fhir/internal/extool"
	"github.com/kalambet/owl2fhir/internal/obograph"
)

// Kind selects the intermediary representation.
type Kind string

const (
	KindObograph Kind = "obographs"
	KindSemsql   Kind = "semsql"
)

// Kinds lists the accepted intermediary kinds, for CLI validation.
var Kinds = []Kind{KindObograph, KindSemsql}

// ParseKind validates a CLI-supplied kind string.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindObograph, KindSemsql:
		return Kind(s), nil
	}
	return "", fmt.Errorf("unknown intermediary type %q (want %s or %s)", s, KindObograph, KindSemsql)
}

// ResolveKind applies the dispatch rule: a relational snapshot can only be
// built from an OWL file, so any other extension forces the graph-document
// path regardless of the requested kind.
func ResolveKind(requested Kind, inputPath string) Kind {
	if requested == KindSemsql && strings.ToLower(filepath.Ext(inputPath)) != ".owl" {
		return KindObograph
	}
	return requested
}

// Artifact is a produced (or reused) intermediary.
type Artifact struct {
	Path string
	Kind Kind
}

// SideArtifacts returns paths produced alongside the primary artifact. The
// snapshot build leaves a relation-graph index next to the snapshot; the
// retention manager must delete the pair together.
func (a Artifact) SideArtifacts() []string {
	if a.Kind != KindSemsql {
		return nil
	}
	return []string{strings.TrimSuffix(a.Path, ".db") + "-relation-graph.tsv.gz"}
}

// Converter invokes the two external conversion engines.
type Converter struct {
	runner   extool.Runner
	cacheDir string

	// Graph-conversion engine (robot).
	JavaBin  string
	RobotJar string

	// Snapshot build engine (semsql inside a container).
	DockerBin   string
	SemsqlImage string
}

func New(runner extool.Runner, cacheDir string) *Converter {
	return &Converter{
		runner:      runner,
		cacheDir:    cacheDir,
		JavaBin:     "java",
		RobotJar:    "robot.jar",
		DockerBin:   "docker",
		SemsqlImage: "obolibrary/odkfull:dev",
	}
}

// ToIntermediary converts inputPath to the resolved intermediary kind.
// With useCache set, a structurally valid artifact at the deterministic
// output path is returned without invoking any engine; no freshness check
// against the source's modification time is made, so a changed source reuses
// a stale intermediary (known limitation, caller's responsibility).
func (c *Converter) ToIntermediary(ctx context.Context, inputPath string, requested Kind, nativeURIStems []string, useCache bool) (Artifact, error) {
	kind := ResolveKind(requested, inputPath)
	if kind != requested {
		slog.Info("non-OWL source, falling back to graph-document intermediary",
			"requested", requested, "input", inputPath)
	}

	switch kind {
	case KindSemsql:
		path, err := c.toSnapshot(ctx, inputPath, useCache)
		if err != nil {
			return Artifact{}, err
		}
		return Artifact{Path: path, Kind: KindSemsql}, nil
	default:
		path, err := c.toObograph(ctx, inputPath, nativeURIStems, useCache)
		if err != nil {
			return Artifact{}, err
		}
		return Artifact{Path: path, Kind: KindObograph}, nil
	}
}

// ObographPath is the deterministic cache location for a graph document.
func (c *Converter) ObographPath(inputPath string) string {
	return filepath.Join(c.cacheDir, filepath.Base(inputPath)+".obographs.json")
}

func (c *Converter) toObograph(ctx context.Context, inputPath string, nativeURIStems []string, useCache bool) (string, error) {
	outPath := c.ObographPath(inputPath)
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", fmt.Errorf("creating cache directory: %w", err)
	}

	if useCache && validObograph(outPath) {
		slog.Info("reusing cached graph document", "path", outPath)
		return outPath, nil
	}

	argv := []string{c.JavaBin, "-jar", c.RobotJar, "convert", "-i", inputPath, "-o", outPath, "--format", "json"}
	if _, err := c.runner.Run(ctx, "", argv...); err != nil {
		return "", fmt.Errorf("graph conversion of %s: %w", inputPath, err)
	}

	if len(nativeURIStems) > 0 {
		doc, err := obograph.Load(outPath)
		if err != nil {
			return "", err
		}
		if added := doc.PatchMissingNodes(nativeURIStems); len(added) > 0 {
			slog.Info("declared nodes missing from graph document", "count", len(added), "ids", added)
			if err := doc.Save(outPath); err != nil {
				return "", err
			}
		}
	}
	return outPath, nil
}

// SnapshotPath is the deterministic output location for a relational
// snapshot: next to the input, extension swapped for .db.
func SnapshotPath(inputPath string) string {
	base := filepath.Base(inputPath)
	for _, ext := range []string{".owl", ".rdf", ".ttl"} {
		if strings.HasSuffix(strings.ToLower(base), ext) {
			base = base[:len(base)-len(ext)]
			break
		}
	}
	return filepath.Join(filepath.Dir(inputPath), base+".db")
}

func (c *Converter) toSnapshot(ctx context.Context, inputPath string, useCache bool) (string, error) {
	dir := filepath.Dir(inputPath)
	outPath := SnapshotPath(inputPath)

	if _, err := os.Stat(outPath); err == nil {
		if useCache && validSnapshot(outPath) {
			slog.Info("reusing cached relational snapshot", "path", outPath)
			return outPath, nil
		}
		if useCache {
			// Partial file from an earlier failed build; never a cache hit.
			slog.Warn("cached snapshot failed validation, rebuilding", "path", outPath)
			os.Remove(outPath)
		}
	}

	argv := c.snapshotArgv(dir, filepath.Base(outPath))
	_, err := c.runner.Run(ctx, dir, argv...)
	if errors.Is(err, extool.ErrAlreadyExists) {
		if useCache {
			return outPath, nil
		}
		// The build engine refuses to overwrite; clear it and retry once.
		os.Remove(outPath)
		_, err = c.runner.Run(ctx, dir, argv...)
	}
	if err != nil {
		return "", fmt.Errorf("snapshot build of %s: %w", inputPath, err)
	}
	return outPath, nil
}

func (c *Converter) snapshotArgv(dir, dbName string) []string {
	return []string{
		c.DockerBin, "run", "-w", "/work", "-v", dir + ":/work", "--rm",
		c.SemsqlImage, "semsql", "make", dbName,
	}
}

func validObograph(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil || len(data) == 0 {
		return false
	}
	var doc obograph.GraphDocument
	return json.Unmarshal(data, &doc) == nil && len(doc.Graphs) > 0
}
