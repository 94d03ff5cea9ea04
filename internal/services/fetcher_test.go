package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestFetchURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("fake video bytes"))
	}))
	defer server.Close()

	f := NewFetcher(nil)
	dest := filepath.Join(t.TempDir(), "clip.mp4")

	got, err := f.Fetch(context.Background(), server.URL+"/clip.mp4", dest)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != dest {
		t.Errorf("expected %s, got %s", dest, got)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("failed to read fetched file: %v", err)
	}
	if string(data) != "fake video bytes" {
		t.Errorf("unexpected body: %q", data)
	}
}

func TestFetchURLNotFoundIsSkippable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	f := NewFetcher(nil)
	_, err := f.Fetch(context.Background(), server.URL+"/missing.mp4", filepath.Join(t.TempDir(), "x.mp4"))
	if err == nil {
		t.Fatal("expected error for 404")
	}

	var skippable *SkippableSourceError
	if !errors.As(err, &skippable) {
		t.Errorf("expected SkippableSourceError, got %T: %v", err, err)
	}
}

func TestFetchLocalFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.mp4")
	if err := os.WriteFile(src, []byte("local content"), 0644); err != nil {
		t.Fatal(err)
	}

	f := NewFetcher(nil)
	dest := filepath.Join(dir, "dest.mp4")

	got, err := f.Fetch(context.Background(), src, dest)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != dest {
		t.Errorf("expected %s, got %s", dest, got)
	}

	data, _ := os.ReadFile(dest)
	if string(data) != "local content" {
		t.Errorf("unexpected copy content: %q", data)
	}
}

func TestFetchLocalFileMissingIsSkippable(t *testing.T) {
	f := NewFetcher(nil)
	_, err := f.Fetch(context.Background(), "/nonexistent/path.mp4", filepath.Join(t.TempDir(), "x.mp4"))
	if err == nil {
		t.Fatal("expected error for missing local file")
	}

	var skippable *SkippableSourceError
	if !errors.As(err, &skippable) {
		t.Errorf("expected SkippableSourceError, got %T: %v", err, err)
	}
}

func TestFetchEmptyResultIsSkippable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 200 with an empty body
	}))
	defer server.Close()

	f := NewFetcher(nil)
	_, err := f.Fetch(context.Background(), server.URL+"/empty.mp4", filepath.Join(t.TempDir(), "x.mp4"))
	if err == nil {
		t.Fatal("expected error for empty fetched file")
	}

	var skippable *SkippableSourceError
	if !errors.As(err, &skippable) {
		t.Errorf("expected SkippableSourceError, got %T: %v", err, err)
	}
}
