package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/reelforge/reelforge/internal/models"
)

// Caption Burner: chunks narration text into timed word groups and burns them
// as boxed drawtext overlays near the bottom of frame. Timing assumes a
// uniform speech rate — chunks are distributed evenly across the probed video
// duration with no alignment to the spoken audio.

const (
	// Words per on-screen chunk by output profile.
	shortFormWordsPerChunk = 3
	longFormWordsPerChunk  = 6
)

// CaptionChunk is one word group with its computed display window.
type CaptionChunk struct {
	Text         string
	StartSeconds float64
	EndSeconds   float64
}

// WordsPerChunk returns the chunk size for a video format.
func WordsPerChunk(format models.VideoFormat) int {
	if format == models.FormatLong {
		return longFormWordsPerChunk
	}
	return shortFormWordsPerChunk
}

// ChunkCaptions splits narration into fixed-size word chunks and distributes
// them evenly across videoDuration. Returns nil when the text has no words or
// the duration is not positive.
func ChunkCaptions(narration string, wordsPerChunk int, videoDuration float64) []CaptionChunk {
	words := strings.Fields(narration)
	if len(words) == 0 || videoDuration <= 0 || wordsPerChunk < 1 {
		return nil
	}

	var texts []string
	for i := 0; i < len(words); i += wordsPerChunk {
		end := i + wordsPerChunk
		if end > len(words) {
			end = len(words)
		}
		texts = append(texts, strings.Join(words[i:end], " "))
	}

	per := videoDuration / float64(len(texts))
	chunks := make([]CaptionChunk, len(texts))
	for i, t := range texts {
		chunks[i] = CaptionChunk{
			Text:         t,
			StartSeconds: float64(i) * per,
			EndSeconds:   float64(i+1) * per,
		}
	}
	// Close the last window exactly at the video end
	chunks[len(chunks)-1].EndSeconds = videoDuration

	return chunks
}

// BurnCaptions renders the chunks onto the video as bold, high-contrast,
// semi-opaque-boxed text near the bottom of frame, each visible only during
// its computed window. If duration probing fails or yields zero the stage is
// skipped and the input path is returned unchanged — never fatal.
func (s *FFmpegService) BurnCaptions(ctx context.Context, videoPath, narration string, format models.VideoFormat, outPath string) (string, error) {
	duration, err := s.ProbeDuration(ctx, videoPath)
	if err != nil || duration <= 0 {
		log.Printf("[FFmpeg] WARNING: caption duration probe failed, skipping captions: %v", err)
		return videoPath, nil
	}

	chunks := ChunkCaptions(narration, WordsPerChunk(format), duration)
	if len(chunks) == 0 {
		return videoPath, nil
	}

	args := []string{
		"-i", videoPath,
		"-vf", buildCaptionFilter(chunks),
		"-c:v", videoCodec,
		"-preset", videoPreset,
		"-crf", videoCRF,
		"-pix_fmt", pixelFormat,
		"-c:a", "copy",
		"-y",
		outPath,
	}

	if err := s.run(ctx, "ffmpeg", args); err != nil {
		return "", &StageDegradedError{Stage: "captions", Err: err}
	}
	return outPath, nil
}

// buildCaptionFilter emits one drawtext filter per chunk, gated by an enable
// window. Text is bold white on a 60%-opaque black box, centered horizontally
// a safe distance above the bottom edge.
func buildCaptionFilter(chunks []CaptionChunk) string {
	parts := make([]string, len(chunks))
	for i, c := range chunks {
		parts[i] = fmt.Sprintf(
			"drawtext=text='%s':fontsize=h/18:fontcolor=white:borderw=2:bordercolor=black:"+
				"box=1:boxcolor=black@0.6:boxborderw=16:"+
				"x=(w-text_w)/2:y=h-text_h-h/10:"+
				"enable='between(t,%s,%s)'",
			escapeDrawtext(c.Text),
			formatSeconds(c.StartSeconds),
			formatSeconds(c.EndSeconds),
		)
	}
	return strings.Join(parts, ",")
}
