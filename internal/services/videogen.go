package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// ---------------------------------------------------------------------------
// Synthetic video generation provider.
// Deferred request pattern: submit generation → poll by request_id → download.
// The service is optional — when disabled, hero scenes get deterministic
// placeholder clips instead, so the pipeline never stalls on a missing
// provider.
// ---------------------------------------------------------------------------

const (
	videoGenBaseURL        = "https://api.x.ai/v1"
	videoGenModel          = "grok-imagine-video"
	videoGenInitialDelay   = 15 * time.Second // videos typically take 30-40s
	videoGenPollMin        = 5 * time.Second
	videoGenPollMax        = 20 * time.Second
	videoGenPollBackoff    = 1.5
	videoGenMaxPollTime    = 5 * time.Minute // hard timeout per scene
	videoGenMinDurationSec = 1
	videoGenMaxDurationSec = 15
)

type VideoGenService struct {
	apiKey     string
	httpClient *http.Client
}

func NewVideoGenService(apiKey string) *VideoGenService {
	return &VideoGenService{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second, // per HTTP call, not the full poll cycle
		},
	}
}

// videoGenRequest is the body for POST /videos/generations
type videoGenRequest struct {
	Prompt      string `json:"prompt"`
	Model       string `json:"model"`
	Duration    int    `json:"duration,omitempty"`
	AspectRatio string `json:"aspect_ratio,omitempty"`
	Resolution  string `json:"resolution,omitempty"`
}

type videoGenSubmitResponse struct {
	RequestID string `json:"request_id"`
}

// videoGenResult is the poll response. The provider returns different shapes
// per state: pending carries status "pending"; completed carries a video
// object and no status field; failed carries status "failed" plus an error.
type videoGenResult struct {
	Status string          `json:"status"`
	Video  *videoGenOutput `json:"video,omitempty"`
	Error  string          `json:"error"`
}

type videoGenOutput struct {
	URL      string `json:"url"`
	Duration int    `json:"duration"`
}

// GenerateClip requests a synthetic video for a scene prompt at the given
// duration and aspect ratio, polling until it is ready, then downloading the
// bytes. The caller substitutes a placeholder clip on any error.
func (s *VideoGenService) GenerateClip(ctx context.Context, prompt string, durationSec int, aspectRatio string) ([]byte, error) {
	if durationSec < videoGenMinDurationSec {
		durationSec = videoGenMinDurationSec
	}
	if durationSec > videoGenMaxDurationSec {
		durationSec = videoGenMaxDurationSec
	}

	reqBody := videoGenRequest{
		Prompt:      prompt,
		Model:       videoGenModel,
		Duration:    durationSec,
		AspectRatio: aspectRatio,
		Resolution:  "720p",
	}

	log.Printf("[VideoGen] Submitting generation (promptLen=%d, duration=%ds, aspect=%s)",
		len(prompt), durationSec, aspectRatio)

	requestID, err := s.submit(ctx, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to submit video generation: %w", err)
	}

	result, err := s.pollForResult(ctx, requestID)
	if err != nil {
		return nil, err
	}

	log.Printf("[VideoGen] Clip ready (duration=%ds), downloading...", result.Video.Duration)

	videoBytes, err := s.download(ctx, result.Video.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to download generated clip: %w", err)
	}

	if len(videoBytes) == 0 {
		return nil, fmt.Errorf("downloaded clip is empty (0 bytes)")
	}

	return videoBytes, nil
}

func (s *VideoGenService) submit(ctx context.Context, reqBody videoGenRequest) (string, error) {
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", videoGenBaseURL+"/videos/generations", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusAccepted {
		return "", fmt.Errorf("provider returned status %d: %s", resp.StatusCode, string(body))
	}

	var submitResp videoGenSubmitResponse
	if err := json.Unmarshal(body, &submitResp); err != nil {
		return "", fmt.Errorf("failed to parse submit response: %w (body: %s)", err, string(body))
	}

	if submitResp.RequestID == "" {
		return "", fmt.Errorf("no request_id in submit response: %s", string(body))
	}

	return submitResp.RequestID, nil
}

// pollForResult waits out the initial delay then polls with exponential
// backoff (5s → 20s cap, ×1.5 per attempt) until completed, failed, or the
// hard timeout elapses.
func (s *VideoGenService) pollForResult(ctx context.Context, requestID string) (*videoGenResult, error) {
	deadline := time.Now().Add(videoGenMaxPollTime)

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("generation cancelled: %w", ctx.Err())
	case <-time.After(videoGenInitialDelay):
	}

	interval := videoGenPollMin
	attempt := 0
	for {
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("video generation timed out after %v (%d polls)", videoGenMaxPollTime, attempt)
		}

		attempt++
		result, err := s.poll(ctx, requestID)
		if err != nil {
			return nil, fmt.Errorf("poll attempt %d failed: %w", attempt, err)
		}

		switch {
		case result.Status == "failed":
			return nil, fmt.Errorf("video generation failed: %s", result.Error)
		case result.Video != nil && result.Video.URL != "":
			return result, nil
		}

		log.Printf("[VideoGen] Poll %d: still pending (next in %v)", attempt, interval)

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("generation cancelled: %w", ctx.Err())
		case <-time.After(interval):
		}

		interval = time.Duration(float64(interval) * videoGenPollBackoff)
		if interval > videoGenPollMax {
			interval = videoGenPollMax
		}
	}
}

func (s *VideoGenService) poll(ctx context.Context, requestID string) (*videoGenResult, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", videoGenBaseURL+"/videos/"+requestID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("provider returned status %d: %s", resp.StatusCode, string(body))
	}

	var result videoGenResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse poll response: %w (body: %s)", err, string(body))
	}

	return &result, nil
}

func (s *VideoGenService) download(ctx context.Context, url string) ([]byte, error) {
	dlCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	req, err := http.NewRequestWithContext(dlCtx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download returned status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}
