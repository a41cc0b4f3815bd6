package convert

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/kalambet/owl2fhir/internal/extool"
	"github.com/kalambet/owl2fhir/internal/obograph"

	_ "modernc.org/sqlite"
)

// scriptedRunner plays back a sequence of responses, invoking an optional
// side effect (the "engine" writing its output) before each one.
type scriptedRunner struct {
	calls   [][]string
	dirs    []string
	effects []func(argv []string) error
}

func (r *scriptedRunner) Run(ctx context.Context, dir string, argv ...string) (extool.Result, error) {
	r.calls = append(r.calls, argv)
	r.dirs = append(r.dirs, dir)
	if len(r.effects) == 0 {
		return extool.Result{}, nil
	}
	effect := r.effects[0]
	r.effects = r.effects[1:]
	if effect == nil {
		return extool.Result{}, nil
	}
	return extool.Result{}, effect(argv)
}

func writeGraphEngine(outPath, doc string) func([]string) error {
	return func([]string) error {
		return os.WriteFile(outPath, []byte(doc), 0o644)
	}
}

func TestResolveKind(t *testing.T) {
	tests := []struct {
		requested Kind
		input     string
		want      Kind
	}{
		{KindSemsql, "/in/mondo.owl", KindSemsql},
		{KindSemsql, "/in/mondo.OWL", KindSemsql},
		{KindSemsql, "/in/rxnorm.ttl", KindObograph},
		{KindSemsql, "/in/so.rdf", KindObograph},
		{KindObograph, "/in/mondo.owl", KindObograph},
		{KindObograph, "/in/rxnorm.ttl", KindObograph},
	}
	for _, tt := range tests {
		if got := ResolveKind(tt.requested, tt.input); got != tt.want {
			t.Errorf("ResolveKind(%s, %s) = %s, want %s", tt.requested, tt.input, got, tt.want)
		}
	}
}

func TestParseKind(t *testing.T) {
	if _, err := ParseKind("obographs"); err != nil {
		t.Errorf("ParseKind(obographs) error: %v", err)
	}
	if _, err := ParseKind("semsql"); err != nil {
		t.Errorf("ParseKind(semsql) error: %v", err)
	}
	if _, err := ParseKind("turtle"); err == nil {
		t.Error("ParseKind(turtle) error = nil, want failure")
	}
}

func TestToIntermediary_ObographCacheHit(t *testing.T) {
	cacheDir := t.TempDir()
	runner := &scriptedRunner{}
	c := New(runner, cacheDir)

	cached := c.ObographPath("/in/mondo.owl")
	content := `{"graphs":[{"nodes":[{"id":"n1"}],"edges":[]}]}`
	if err := os.WriteFile(cached, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	art, err := c.ToIntermediary(context.Background(), "/in/mondo.owl", KindObograph, nil, true)
	if err != nil {
		t.Fatalf("ToIntermediary() error: %v", err)
	}
	if art.Path != cached {
		t.Errorf("artifact path = %q, want cached %q", art.Path, cached)
	}
	if len(runner.calls) != 0 {
		t.Fatalf("engine invoked %d times on a cache hit, want 0", len(runner.calls))
	}
	data, _ := os.ReadFile(cached)
	if string(data) != content {
		t.Errorf("cached artifact rewritten: %q", data)
	}
}

func TestToIntermediary_InvalidCachedObographRebuilt(t *testing.T) {
	cacheDir := t.TempDir()
	c := New(nil, cacheDir)
	outPath := c.ObographPath("/in/mondo.owl")
	if err := os.WriteFile(outPath, []byte("{trunc"), 0o644); err != nil {
		t.Fatal(err)
	}

	runner := &scriptedRunner{effects: []func([]string) error{
		writeGraphEngine(outPath, `{"graphs":[{"nodes":[],"edges":[]}]}`),
	}}
	c = New(runner, cacheDir)

	if _, err := c.ToIntermediary(context.Background(), "/in/mondo.owl", KindObograph, nil, true); err != nil {
		t.Fatalf("ToIntermediary() error: %v", err)
	}
	if len(runner.calls) != 1 {
		t.Errorf("engine invoked %d times for an invalid cache entry, want 1", len(runner.calls))
	}
}

func TestToIntermediary_ObographConversionAndPatch(t *testing.T) {
	cacheDir := t.TempDir()
	c := New(nil, cacheDir)
	outPath := c.ObographPath("/in/mondo.owl")

	engineDoc := `{"graphs":[{"nodes":[{"id":"http://example.org/X_1"}],` +
		`"edges":[{"sub":"http://example.org/X_2","pred":"is_a","obj":"http://example.org/X_1"}]}]}`
	runner := &scriptedRunner{effects: []func([]string) error{writeGraphEngine(outPath, engineDoc)}}
	c = New(runner, cacheDir)

	art, err := c.ToIntermediary(context.Background(), "/in/mondo.owl", KindObograph,
		[]string{"http://example.org/X_"}, false)
	if err != nil {
		t.Fatalf("ToIntermediary() error: %v", err)
	}
	if art.Kind != KindObograph {
		t.Errorf("artifact kind = %s, want %s", art.Kind, KindObograph)
	}

	argv := runner.calls[0]
	want := []string{"java", "-jar", "robot.jar", "convert", "-i", "/in/mondo.owl", "-o", outPath, "--format", "json"}
	if len(argv) != len(want) {
		t.Fatalf("engine argv = %v, want %v", argv, want)
	}
	for i := range want {
		if argv[i] != want[i] {
			t.Fatalf("engine argv = %v, want %v", argv, want)
		}
	}

	doc, err := obograph.Load(art.Path)
	if err != nil {
		t.Fatal(err)
	}
	if len(doc.Graphs[0].Nodes) != 2 {
		t.Errorf("rewritten document has %d nodes, want the missing root added (2)", len(doc.Graphs[0].Nodes))
	}
}

func TestToIntermediary_SnapshotAlreadyExistsWithCache(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "hpo.owl")
	if err := os.WriteFile(input, []byte("<owl/>"), 0o644); err != nil {
		t.Fatal(err)
	}
	outPath := SnapshotPath(input)

	runner := &scriptedRunner{effects: []func([]string) error{
		func(argv []string) error {
			if err := os.WriteFile(outPath, []byte("built"), 0o644); err != nil {
				return err
			}
			return extool.ErrAlreadyExists
		},
	}}
	c := New(runner, t.TempDir())

	// The engine reports the target up to date; with caching requested the
	// existing output is accepted without a retry.
	art, err := c.ToIntermediary(context.Background(), input, KindSemsql, nil, true)
	if err != nil {
		t.Fatalf("ToIntermediary() error: %v", err)
	}
	if art.Path != outPath {
		t.Errorf("artifact path = %q, want %q", art.Path, outPath)
	}
	if len(runner.calls) != 1 {
		t.Errorf("engine invoked %d times, want 1 (accepted existing output)", len(runner.calls))
	}
}

func TestToIntermediary_SnapshotAlreadyExistsWithoutCacheRetriesOnce(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "hpo.owl")
	if err := os.WriteFile(input, []byte("<owl/>"), 0o644); err != nil {
		t.Fatal(err)
	}
	outPath := SnapshotPath(input)
	if err := os.WriteFile(outPath, []byte("stale"), 0o644); err != nil {
		t.Fatal(err)
	}

	runner := &scriptedRunner{effects: []func([]string) error{
		func([]string) error { return extool.ErrAlreadyExists },
		func([]string) error { return os.WriteFile(outPath, []byte("rebuilt"), 0o644) },
	}}
	c := New(runner, t.TempDir())

	art, err := c.ToIntermediary(context.Background(), input, KindSemsql, nil, false)
	if err != nil {
		t.Fatalf("ToIntermediary() error: %v", err)
	}
	if len(runner.calls) != 2 {
		t.Fatalf("engine invoked %d times, want exactly one retry (2)", len(runner.calls))
	}
	if runner.dirs[0] != dir || runner.dirs[1] != dir {
		t.Errorf("snapshot build ran in %v, want the input directory %q", runner.dirs, dir)
	}
	data, _ := os.ReadFile(art.Path)
	if string(data) != "rebuilt" {
		t.Errorf("snapshot content = %q, want the retried build's output", data)
	}
}

func TestSnapshotArgvShape(t *testing.T) {
	c := New(nil, "")
	argv := c.snapshotArgv("/work/input", "mondo.db")
	want := []string{"docker", "run", "-w", "/work", "-v", "/work/input:/work", "--rm",
		"obolibrary/odkfull:dev", "semsql", "make", "mondo.db"}
	if len(argv) != len(want) {
		t.Fatalf("argv = %v, want %v", argv, want)
	}
	for i := range want {
		if argv[i] != want[i] {
			t.Fatalf("argv = %v, want %v", argv, want)
		}
	}
}

func TestSnapshotPath(t *testing.T) {
	tests := []struct{ in, want string }{
		{"/in/mondo.owl", "/in/mondo.db"},
		{"/in/so.rdf", "/in/so.db"},
		{"/in/RXNORM-fixed.ttl", "/in/RXNORM-fixed.db"},
	}
	for _, tt := range tests {
		if got := SnapshotPath(tt.in); got != tt.want {
			t.Errorf("SnapshotPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSideArtifacts(t *testing.T) {
	a := Artifact{Path: "/in/mondo.db", Kind: KindSemsql}
	got := a.SideArtifacts()
	if len(got) != 1 || got[0] != "/in/mondo-relation-graph.tsv.gz" {
		t.Errorf("SideArtifacts() = %v", got)
	}
	b := Artifact{Path: "/cache/mondo.owl.obographs.json", Kind: KindObograph}
	if side := b.SideArtifacts(); side != nil {
		t.Errorf("obograph SideArtifacts() = %v, want none", side)
	}
}

func TestValidSnapshot(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "good.db")
	db, err := sql.Open("sqlite", good)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec("CREATE TABLE statements (subject TEXT, predicate TEXT, object TEXT)"); err != nil {
		t.Fatal(err)
	}
	db.Close()

	if !validSnapshot(good) {
		t.Error("validSnapshot() = false for a real database")
	}

	partial := filepath.Join(dir, "partial.db")
	if err := os.WriteFile(partial, []byte("not a sqlite file"), 0o644); err != nil {
		t.Fatal(err)
	}
	if validSnapshot(partial) {
		t.Error("validSnapshot() = true for a truncated file")
	}
}

func TestToIntermediary_SnapshotCacheHitUsesValidDatabase(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "mondo.owl")
	if err := os.WriteFile(input, []byte("<owl/>"), 0o644); err != nil {
		t.Fatal(err)
	}

	outPath := SnapshotPath(input)
	db, err := sql.Open("sqlite", outPath)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec("CREATE TABLE statements (s TEXT)"); err != nil {
		t.Fatal(err)
	}
	db.Close()

	runner := &scriptedRunner{}
	c := New(runner, t.TempDir())
	art, err := c.ToIntermediary(context.Background(), input, KindSemsql, nil, true)
	if err != nil {
		t.Fatalf("ToIntermediary() error: %v", err)
	}
	if art.Path != outPath {
		t.Errorf("artifact path = %q, want %q", art.Path, outPath)
	}
	if len(runner.calls) != 0 {
		t.Errorf("engine invoked %d times on a valid cached snapshot, want 0", len(runner.calls))
	}
}
