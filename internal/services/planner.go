package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	openai "github.com/sashabaranov/go-openai"
	"github.com/reelforge/reelforge/internal/models"
)

// Scene Planner: splits a narration script into an ordered list of scenes for
// the script-to-video path. Short-form scripts become 8–10 synthetic-video
// scenes; long-form scripts become denser scenes with a bounded number of
// "hero" video moments and cheaper still-image scenes for the rest.

const (
	plannerModel = "gpt-5-mini"

	shortFormMinScenes  = 8
	shortFormMaxScenes  = 10
	shortSceneSeconds   = 8.0 // target ~7–9s per short-form scene
	longSceneSeconds    = 5.5 // target ~5–6s per long-form scene
	maxHeroScenes       = 8
	minSceneSeconds     = 3.0
	maxSceneSeconds     = 15.0
	fallbackSceneLength = 30.0 // duration of the single whole-script fallback scene
)

type PlannerService struct {
	client *openai.Client
}

func NewPlannerService(apiKey string) *PlannerService {
	return &PlannerService{
		client: openai.NewClient(apiKey),
	}
}

// scenePlan is the raw per-scene shape produced by the planning call.
type scenePlan struct {
	Index            int     `json:"index"`
	Kind             string  `json:"kind"` // "generated-clip" or "generated-image"
	DurationSeconds  float64 `json:"duration_seconds"`
	NarrationSegment string  `json:"narration_segment"`
	VisualPrompt     string  `json:"visual_prompt"`
	IsHero           bool    `json:"is_hero"`
}

type scenePlanResponse struct {
	Scenes []scenePlan `json:"scenes"`
}

// PlanScenes partitions a narration script into ordered scenes. On any
// planning failure — request error, malformed output, empty plan — it falls
// back to a single whole-script scene tagged generated-clip so the pipeline
// always has something to assemble.
func (s *PlannerService) PlanScenes(ctx context.Context, script string, format models.VideoFormat) []models.Scene {
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: plannerModel,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: buildPlanSystemPrompt(format),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf("Partition this narration script into scenes:\n\n%s", script),
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 1.0,
	})
	if err != nil {
		log.Printf("[Planner] Planning call failed, using single-scene fallback: %v", err)
		return FallbackScenes(script)
	}

	if len(resp.Choices) == 0 {
		log.Printf("[Planner] Empty response, using single-scene fallback")
		return FallbackScenes(script)
	}

	var plan scenePlanResponse
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &plan); err != nil {
		log.Printf("[Planner] Failed to parse plan, using single-scene fallback: %v", err)
		return FallbackScenes(script)
	}

	scenes := NormalizeScenes(plan.Scenes, format)
	if len(scenes) == 0 {
		log.Printf("[Planner] Plan had no usable scenes, using single-scene fallback")
		return FallbackScenes(script)
	}

	log.Printf("[Planner] Planned %d scenes (%d hero clips)", len(scenes), countHeroes(scenes))
	return scenes
}

// FallbackScenes wraps the whole script in one generated-clip scene.
func FallbackScenes(script string) []models.Scene {
	return []models.Scene{{
		Index:            0,
		Kind:             models.SceneGeneratedClip,
		DurationSeconds:  fallbackSceneLength,
		NarrationSegment: script,
		VisualPrompt:     script,
		IsHero:           true,
	}}
}

// NormalizeScenes validates and repairs a raw plan: scenes are renumbered in
// received order, durations clamped, empty scenes dropped, and the format
// policy enforced — short-form scenes are all generated-clip; long-form hero
// clips are capped at maxHeroScenes with the remainder demoted to
// generated-image.
func NormalizeScenes(raw []scenePlan, format models.VideoFormat) []models.Scene {
	var scenes []models.Scene
	heroes := 0

	for _, sp := range raw {
		if sp.NarrationSegment == "" {
			continue
		}

		dur := sp.DurationSeconds
		if dur <= 0 {
			if format == models.FormatLong {
				dur = longSceneSeconds
			} else {
				dur = shortSceneSeconds
			}
		}
		if dur < minSceneSeconds {
			dur = minSceneSeconds
		}
		if dur > maxSceneSeconds {
			dur = maxSceneSeconds
		}

		prompt := sp.VisualPrompt
		if prompt == "" {
			prompt = sp.NarrationSegment
		}

		scene := models.Scene{
			Index:            len(scenes),
			DurationSeconds:  dur,
			NarrationSegment: sp.NarrationSegment,
			VisualPrompt:     prompt,
		}

		if format == models.FormatShort {
			// Short-form output is entirely synthetic video
			scene.Kind = models.SceneGeneratedClip
			scene.IsHero = true
		} else {
			wantsClip := sp.Kind == string(models.SceneGeneratedClip) || sp.IsHero
			if wantsClip && heroes < maxHeroScenes {
				scene.Kind = models.SceneGeneratedClip
				scene.IsHero = true
				heroes++
			} else {
				scene.Kind = models.SceneGeneratedImage
			}
		}

		scenes = append(scenes, scene)
	}

	return scenes
}

func countHeroes(scenes []models.Scene) int {
	n := 0
	for _, s := range scenes {
		if s.Kind == models.SceneGeneratedClip {
			n++
		}
	}
	return n
}

func buildPlanSystemPrompt(format models.VideoFormat) string {
	if format == models.FormatLong {
		return fmt.Sprintf(`You are a video scene planner for long-form landscape social video.

Partition the user's narration script into an ordered list of scenes of roughly 5-6 seconds of spoken narration each. Mark at most %d of the most visually striking moments as hero scenes (kind "generated-clip", is_hero true); every other scene must be kind "generated-image" (a still image animated afterward).

Each scene carries:
- index: zero-based position in narration order
- kind: "generated-clip" or "generated-image"
- duration_seconds: estimated seconds of narration, typically 5-6
- narration_segment: the EXACT substring of the script this scene covers, in order, with no words dropped or rewritten
- visual_prompt: a complete scene description for an image/video generator — subject, setting, lighting, atmosphere, composed for 16:9 landscape framing
- is_hero: true only for generated-clip scenes

The narration_segment fields concatenated in index order must reproduce the full script. Respond as JSON: {"scenes": [...]}.`, maxHeroScenes)
	}

	return fmt.Sprintf(`You are a video scene planner for short-form vertical social video.

Partition the user's narration script into %d-%d ordered scenes of roughly 7-9 seconds of spoken narration each. Every scene is kind "generated-clip" — short-form output is fully synthetic video.

Each scene carries:
- index: zero-based position in narration order
- kind: always "generated-clip"
- duration_seconds: estimated seconds of narration, typically 7-9
- narration_segment: the EXACT substring of the script this scene covers, in order, with no words dropped or rewritten
- visual_prompt: a complete scene description for a video generator — subject, setting, motion, lighting, composed for 9:16 vertical framing
- is_hero: true

The narration_segment fields concatenated in index order must reproduce the full script. Respond as JSON: {"scenes": [...]}.`, shortFormMinScenes, shortFormMaxScenes)
}
