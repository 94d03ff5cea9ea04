package services

import (
	"math"
	"strings"
	"testing"

	"github.com/reelforge/reelforge/internal/models"
)

func TestWordsPerChunk(t *testing.T) {
	if got := WordsPerChunk(models.FormatShort); got != 3 {
		t.Errorf("expected 3 words per chunk for short form, got %d", got)
	}
	if got := WordsPerChunk(models.FormatLong); got != 6 {
		t.Errorf("expected 6 words per chunk for long form, got %d", got)
	}
}

func TestChunkCaptions(t *testing.T) {
	// 7 words at 3 per chunk: "a b c", "d e f", "g"
	chunks := ChunkCaptions("a b c d e f g", 3, 30)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}

	if chunks[0].Text != "a b c" {
		t.Errorf("expected first chunk 'a b c', got %q", chunks[0].Text)
	}
	if chunks[2].Text != "g" {
		t.Errorf("expected trailing partial chunk 'g', got %q", chunks[2].Text)
	}

	// Even timing: 30s / 3 chunks = 10s windows
	if chunks[0].StartSeconds != 0 || math.Abs(chunks[0].EndSeconds-10) > 1e-9 {
		t.Errorf("expected first window [0,10], got [%f,%f]", chunks[0].StartSeconds, chunks[0].EndSeconds)
	}
	if math.Abs(chunks[1].StartSeconds-10) > 1e-9 {
		t.Errorf("expected second window to start at 10, got %f", chunks[1].StartSeconds)
	}
	if chunks[2].EndSeconds != 30 {
		t.Errorf("expected last window to close at video end, got %f", chunks[2].EndSeconds)
	}
}

func TestChunkCaptionsContiguousWindows(t *testing.T) {
	chunks := ChunkCaptions("one two three four five six seven eight nine ten", 3, 17.5)
	for i := 1; i < len(chunks); i++ {
		if math.Abs(chunks[i].StartSeconds-chunks[i-1].EndSeconds) > 1e-9 {
			t.Errorf("gap between chunk %d end (%f) and chunk %d start (%f)",
				i-1, chunks[i-1].EndSeconds, i, chunks[i].StartSeconds)
		}
	}
}

func TestChunkCaptionsEmptyInputs(t *testing.T) {
	if got := ChunkCaptions("", 3, 30); got != nil {
		t.Errorf("expected nil for empty narration, got %v", got)
	}
	if got := ChunkCaptions("   \n\t  ", 3, 30); got != nil {
		t.Errorf("expected nil for whitespace narration, got %v", got)
	}
	if got := ChunkCaptions("hello world", 3, 0); got != nil {
		t.Errorf("expected nil for zero duration, got %v", got)
	}
}

func TestBuildCaptionFilter(t *testing.T) {
	chunks := []CaptionChunk{
		{Text: "hello there", StartSeconds: 0, EndSeconds: 5},
		{Text: "good bye", StartSeconds: 5, EndSeconds: 10},
	}

	filter := buildCaptionFilter(chunks)

	if strings.Count(filter, "drawtext=") != 2 {
		t.Errorf("expected one drawtext per chunk, got: %s", filter)
	}
	if !strings.Contains(filter, "enable='between(t,0.000,5.000)'") {
		t.Errorf("expected first enable window, got: %s", filter)
	}
	if !strings.Contains(filter, "enable='between(t,5.000,10.000)'") {
		t.Errorf("expected second enable window, got: %s", filter)
	}
	if !strings.Contains(filter, "box=1:boxcolor=black@0.6") {
		t.Errorf("expected semi-opaque box styling, got: %s", filter)
	}
	if !strings.Contains(filter, "fontsize=h/18") {
		t.Errorf("expected height-relative font size, got: %s", filter)
	}
}
