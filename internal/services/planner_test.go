package services

import (
	"testing"

	"github.com/reelforge/reelforge/internal/models"
)

func TestNormalizeScenesShortForm(t *testing.T) {
	raw := []scenePlan{
		{Kind: "generated-image", NarrationSegment: "first part", VisualPrompt: "a city", DurationSeconds: 8},
		{Kind: "generated-clip", NarrationSegment: "second part", DurationSeconds: 9},
	}

	scenes := NormalizeScenes(raw, models.FormatShort)
	if len(scenes) != 2 {
		t.Fatalf("expected 2 scenes, got %d", len(scenes))
	}

	for i, sc := range scenes {
		if sc.Kind != models.SceneGeneratedClip {
			t.Errorf("scene %d: short form must be all generated-clip, got %s", i, sc.Kind)
		}
		if !sc.IsHero {
			t.Errorf("scene %d: short form scenes are all hero", i)
		}
		if sc.Index != i {
			t.Errorf("scene %d: expected dense index, got %d", i, sc.Index)
		}
	}

	// Empty visual prompt defaults to the narration text
	if scenes[1].VisualPrompt != "second part" {
		t.Errorf("expected prompt to default to narration, got %q", scenes[1].VisualPrompt)
	}
}

func TestNormalizeScenesLongFormHeroCap(t *testing.T) {
	var raw []scenePlan
	for i := 0; i < 12; i++ {
		raw = append(raw, scenePlan{
			Kind:             "generated-clip",
			IsHero:           true,
			NarrationSegment: "segment",
			DurationSeconds:  5.5,
		})
	}

	scenes := NormalizeScenes(raw, models.FormatLong)
	if len(scenes) != 12 {
		t.Fatalf("expected 12 scenes, got %d", len(scenes))
	}

	heroes := 0
	for _, sc := range scenes {
		if sc.Kind == models.SceneGeneratedClip {
			heroes++
		}
	}
	if heroes != maxHeroScenes {
		t.Errorf("expected hero count capped at %d, got %d", maxHeroScenes, heroes)
	}

	// The overflow scenes are demoted, not dropped
	if scenes[11].Kind != models.SceneGeneratedImage {
		t.Errorf("expected overflow scene demoted to generated-image, got %s", scenes[11].Kind)
	}
}

func TestNormalizeScenesClampsDurations(t *testing.T) {
	raw := []scenePlan{
		{NarrationSegment: "too short", DurationSeconds: 0.5},
		{NarrationSegment: "too long", DurationSeconds: 90},
		{NarrationSegment: "unset"},
	}

	scenes := NormalizeScenes(raw, models.FormatLong)
	if len(scenes) != 3 {
		t.Fatalf("expected 3 scenes, got %d", len(scenes))
	}

	if scenes[0].DurationSeconds != minSceneSeconds {
		t.Errorf("expected clamp to %f, got %f", minSceneSeconds, scenes[0].DurationSeconds)
	}
	if scenes[1].DurationSeconds != maxSceneSeconds {
		t.Errorf("expected clamp to %f, got %f", maxSceneSeconds, scenes[1].DurationSeconds)
	}
	if scenes[2].DurationSeconds != longSceneSeconds {
		t.Errorf("expected long-form default %f, got %f", longSceneSeconds, scenes[2].DurationSeconds)
	}
}

func TestNormalizeScenesDropsEmptyNarration(t *testing.T) {
	raw := []scenePlan{
		{NarrationSegment: ""},
		{NarrationSegment: "kept", DurationSeconds: 5},
	}

	scenes := NormalizeScenes(raw, models.FormatShort)
	if len(scenes) != 1 {
		t.Fatalf("expected empty-narration scene dropped, got %d scenes", len(scenes))
	}
	if scenes[0].Index != 0 {
		t.Errorf("expected renumbered index 0, got %d", scenes[0].Index)
	}
}

func TestFallbackScenes(t *testing.T) {
	scenes := FallbackScenes("the whole script")
	if len(scenes) != 1 {
		t.Fatalf("expected a single fallback scene, got %d", len(scenes))
	}

	sc := scenes[0]
	if sc.Kind != models.SceneGeneratedClip {
		t.Errorf("expected generated-clip fallback, got %s", sc.Kind)
	}
	if sc.NarrationSegment != "the whole script" {
		t.Errorf("expected the full script as narration, got %q", sc.NarrationSegment)
	}
	if sc.DurationSeconds != fallbackSceneLength {
		t.Errorf("expected duration %f, got %f", fallbackSceneLength, sc.DurationSeconds)
	}
}
