package services

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/reelforge/reelforge/internal/storage"
)

const fetchTimeout = 120 * time.Second

// Fetcher resolves a clip/audio reference into a local scratch file. Three
// reference shapes are supported: a remote HTTP(S) URL, an absolute local
// file path, and an internal storage handle (anything else — treated as a
// bucket path).
type Fetcher struct {
	storage *storage.Storage
	client  *http.Client
}

func NewFetcher(stor *storage.Storage) *Fetcher {
	return &Fetcher{
		storage: stor,
		client:  &http.Client{Timeout: fetchTimeout},
	}
}

// Fetch resolves ref into destPath. An unreachable source is reported as a
// SkippableSourceError — callers drop the unit and continue rather than
// failing the run.
func (f *Fetcher) Fetch(ctx context.Context, ref, destPath string) (string, error) {
	switch {
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		if err := f.fetchURL(ctx, ref, destPath); err != nil {
			return "", &SkippableSourceError{Ref: ref, Err: err}
		}

	case strings.HasPrefix(ref, "/"):
		if err := copyFile(ref, destPath); err != nil {
			return "", &SkippableSourceError{Ref: ref, Err: err}
		}

	default:
		// Internal storage handle — a path inside the project bucket
		if err := f.storage.DownloadToFile(ctx, ref, destPath); err != nil {
			return "", &SkippableSourceError{Ref: ref, Err: err}
		}
	}

	info, err := os.Stat(destPath)
	if err != nil || info.Size() == 0 {
		return "", &SkippableSourceError{Ref: ref, Err: fmt.Errorf("fetched file is missing or empty")}
	}

	log.Printf("[Fetcher] Resolved %s (%d bytes)", ref, info.Size())
	return destPath, nil
}

func (f *Fetcher) fetchURL(ctx context.Context, url, destPath string) error {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download returned status %d", resp.StatusCode)
	}

	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", destPath, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return fmt.Errorf("failed to write body: %w", err)
	}

	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("failed to copy: %w", err)
	}
	return nil
}
