package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
)

func TestIsURL(t *testing.T) {
	tests := []struct {
		ref  string
		want bool
	}{
		{"http://purl.obolibrary.org/obo/mondo.owl", true},
		{"https://example.org/hp-full.owl", true},
		{"/data/input/mondo.owl", false},
		{"mondo.owl", false},
		{"file.owl:extra", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsURL(tt.ref); got != tt.want {
			t.Errorf("IsURL(%q) = %v, want %v", tt.ref, got, tt.want)
		}
	}
}

func TestCachePath(t *testing.T) {
	got := CachePath("/cache", "CodeSystem-mondo.json")
	want := filepath.Join("/cache", "CodeSystem-mondo.owl")
	if got != want {
		t.Errorf("CachePath() = %q, want %q", got, want)
	}
}

func TestResolve_LocalPathPassthrough(t *testing.T) {
	f := New(false)
	got, err := f.Resolve(context.Background(), "/data/missing.owl", "/cache/unused.owl")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	// No existence check here; a missing file fails in the conversion stage.
	if got != "/data/missing.owl" {
		t.Errorf("Resolve() = %q, want the input path", got)
	}
}

func TestDownload_WritesBodyAndCreatesDirs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<owl/>"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "cache", "CodeSystem-mondo.owl")
	f := New(false)
	got, err := f.Resolve(context.Background(), srv.URL+"/mondo.owl", dest)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if got != dest {
		t.Errorf("Resolve() = %q, want %q", got, dest)
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("reading downloaded file: %v", err)
	}
	if string(data) != "<owl/>" {
		t.Errorf("downloaded content = %q", data)
	}
}

func TestDownload_CacheHitSkipsRequest(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte("fresh"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "mondo.owl")
	if err := os.WriteFile(dest, []byte("stale"), 0o644); err != nil {
		t.Fatal(err)
	}

	f := New(false)
	if err := f.Download(context.Background(), srv.URL, dest); err != nil {
		t.Fatalf("Download() error: %v", err)
	}
	if hits.Load() != 0 {
		t.Errorf("server hit %d times with a cached file present, want 0", hits.Load())
	}

	f.Redownload = true
	if err := f.Download(context.Background(), srv.URL, dest); err != nil {
		t.Fatalf("forced Download() error: %v", err)
	}
	if hits.Load() != 1 {
		t.Errorf("server hit %d times with redownload forced, want 1", hits.Load())
	}
	data, _ := os.ReadFile(dest)
	if string(data) != "fresh" {
		t.Errorf("forced download left %q, want %q", data, "fresh")
	}
}

func TestDownload_HTTPErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	f := New(true)
	err := f.Download(context.Background(), srv.URL, filepath.Join(t.TempDir(), "x.owl"))
	if err == nil {
		t.Fatal("Download() error = nil for 404 response")
	}
}
