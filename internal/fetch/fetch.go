// Package fetch resolves a conversion source reference to a local file.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// IsURL reports whether ref is an absolute URL with both a scheme and a
// host. Anything else is treated as a local path.
func IsURL(ref string) bool {
	u, err := url.Parse(ref)
	return err == nil && u.Scheme != "" && u.Host != ""
}

// CachePath derives the deterministic local destination for a downloaded
// source from the job's output filename: the cache directory plus the output
// filename with its .json extension replaced by .owl.
func CachePath(cacheDir, outFilename string) string {
	name := strings.TrimSuffix(outFilename, ".json") + ".owl"
	return filepath.Join(cacheDir, name)
}

// Fetcher downloads remote ontology sources into the cache directory.
type Fetcher struct {
	client *http.Client
	// Redownload forces a fresh download even when the destination exists.
	// Needed for "latest" release URLs whose content changes under a stable
	// name.
	Redownload bool
}

func New(redownload bool) *Fetcher {
	return &Fetcher{
		client:     &http.Client{Timeout: 30 * time.Minute},
		Redownload: redownload,
	}
}

// NewWithClient is used by tests to point the fetcher at an httptest server.
func NewWithClient(c *http.Client, redownload bool) *Fetcher {
	return &Fetcher{client: c, Redownload: redownload}
}

// Resolve returns a local path for ref. A URL is downloaded to dest (created
// parents included) unless it is already cached and redownload is off. A
// local path is returned as-is; a missing file surfaces as a conversion
// failure in the next stage.
func (f *Fetcher) Resolve(ctx context.Context, ref, dest string) (string, error) {
	if !IsURL(ref) {
		return ref, nil
	}
	if err := f.Download(ctx, ref, dest); err != nil {
		return "", err
	}
	return dest, nil
}

// Download writes the body of url to path. No checksum or content-type
// verification is performed; a partial write on a dropped connection is not
// detected.
func (f *Fetcher) Download(ctx context.Context, rawURL, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	if !f.Redownload {
		if _, err := os.Stat(path); err == nil {
			slog.Debug("download skipped, cached file present", "path", path)
			return nil
		}
	}

	slog.Info("downloading ontology", "url", rawURL, "dest", path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("building download request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("downloading %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("downloading %s: unexpected status %s", rawURL, resp.Status)
	}

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return out.Close()
}
