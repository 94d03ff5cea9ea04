package services

import (
	"context"
	"fmt"
	"log"

	"google.golang.org/genai"
)

// ---------------------------------------------------------------------------
// Still-image generation provider (Gemini via the Google Gen AI SDK).
// Used for generated-image scenes on the script-to-video path; the resulting
// still gets a Ken Burns motion pass to become a clip. Optional — when
// disabled, scenes get deterministic placeholder images instead.
// ---------------------------------------------------------------------------

const imageGenModel = "gemini-3-pro-image-preview"

type ImageGenService struct {
	apiKey string
}

func NewImageGenService(apiKey string) *ImageGenService {
	return &ImageGenService{apiKey: apiKey}
}

// GenerateImage produces one still image for a scene prompt. Each call is
// independent — safe for parallel execution across scenes. The caller
// substitutes a placeholder image on any error.
func (s *ImageGenService) GenerateImage(ctx context.Context, prompt, aspectRatio string) ([]byte, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  s.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	fullPrompt := fmt.Sprintf(
		"%s\n\nRender as a single high-detail still image composed for %s framing. No text, watermarks, or borders.",
		prompt, aspectRatio)

	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"IMAGE"},
	}

	resp, err := client.Models.GenerateContent(ctx, imageGenModel, genai.Text(fullPrompt), config)
	if err != nil {
		return nil, fmt.Errorf("image generation request failed: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("no candidates in image generation response")
	}

	for _, part := range resp.Candidates[0].Content.Parts {
		if part.InlineData != nil && len(part.InlineData.Data) > 0 {
			log.Printf("[ImageGen] Image generated (%d bytes, %s)", len(part.InlineData.Data), part.InlineData.MIMEType)
			return part.InlineData.Data, nil
		}
	}

	return nil, fmt.Errorf("no image data in generation response")
}
