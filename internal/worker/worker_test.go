package worker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/reelforge/reelforge/internal/models"
)

func TestTruncateError(t *testing.T) {
	short := fmt.Errorf("concat failed")
	if got := truncateError(short); got != "concat failed" {
		t.Errorf("expected message unchanged, got %q", got)
	}

	long := fmt.Errorf("%s", strings.Repeat("x", 2000))
	got := truncateError(long)
	if len(got) != maxErrorLen+3 {
		t.Errorf("expected truncation to %d chars plus ellipsis, got %d", maxErrorLen, len(got))
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("expected ellipsis suffix, got %q", got[len(got)-10:])
	}
}

func TestAspectRatioFor(t *testing.T) {
	if got := aspectRatioFor(models.FormatShort); got != "9:16" {
		t.Errorf("expected 9:16 for short form, got %s", got)
	}
	if got := aspectRatioFor(models.FormatLong); got != "16:9" {
		t.Errorf("expected 16:9 for long form, got %s", got)
	}
}

func TestCountHeroScenes(t *testing.T) {
	scenes := []models.Scene{
		{IsHero: true},
		{IsHero: false},
		{IsHero: true},
	}
	if got := countHeroScenes(scenes); got != 2 {
		t.Errorf("expected 2 hero scenes, got %d", got)
	}
}
