package services

import (
	"strings"
	"testing"

	"github.com/reelforge/reelforge/internal/models"
)

func floatPtr(f float64) *float64 { return &f }

func TestResolutionFor(t *testing.T) {
	if r := ResolutionFor(models.FormatShort); r.Width != 1080 || r.Height != 1920 {
		t.Errorf("expected 1080x1920 for short form, got %dx%d", r.Width, r.Height)
	}
	if r := ResolutionFor(models.FormatLong); r.Width != 1920 || r.Height != 1080 {
		t.Errorf("expected 1920x1080 for long form, got %dx%d", r.Width, r.Height)
	}
}

func TestBuildPreprocessArgsTrim(t *testing.T) {
	clip := models.Clip{
		TrimStartSeconds: floatPtr(2),
		TrimEndSeconds:   floatPtr(7),
	}

	args := strings.Join(buildPreprocessArgs(clip, "in.mp4", "out.mp4"), " ")

	if !strings.Contains(args, "-ss 2.000") {
		t.Errorf("expected trim start, got: %s", args)
	}
	if !strings.Contains(args, "-to 7.000") {
		t.Errorf("expected trim end, got: %s", args)
	}
	if !strings.Contains(args, "-c:v libx264") {
		t.Errorf("expected normalized video codec, got: %s", args)
	}
	if !strings.Contains(args, "-c:a aac") {
		t.Errorf("expected re-encoded audio for unmuted clip, got: %s", args)
	}
}

func TestBuildPreprocessArgsMuted(t *testing.T) {
	args := strings.Join(buildPreprocessArgs(models.Clip{Muted: true}, "in.mp4", "out.mp4"), " ")

	if !strings.Contains(args, "-an") {
		t.Errorf("expected audio stripped for muted clip, got: %s", args)
	}
	if strings.Contains(args, "-ss") || strings.Contains(args, "-to") {
		t.Errorf("expected no trim args without a trim window, got: %s", args)
	}
}

func TestBuildPreprocessArgsIgnoresInvertedTrimEnd(t *testing.T) {
	clip := models.Clip{
		TrimStartSeconds: floatPtr(10),
		TrimEndSeconds:   floatPtr(4),
	}

	args := strings.Join(buildPreprocessArgs(clip, "in.mp4", "out.mp4"), " ")
	if strings.Contains(args, "-to") {
		t.Errorf("trim end before trim start must be dropped, got: %s", args)
	}
	if !strings.Contains(args, "-ss 10.000") {
		t.Errorf("trim start should survive, got: %s", args)
	}
}

func TestBuildReencodeConcatFilter(t *testing.T) {
	filter := buildReencodeConcatFilter(2)

	if strings.Count(filter, "scale=1920:1080:force_original_aspect_ratio=decrease") != 2 {
		t.Errorf("expected one scale per input, got: %s", filter)
	}
	if !strings.Contains(filter, "concat=n=2:v=1:a=1[v][a]") {
		t.Errorf("expected concat of 2 inputs, got: %s", filter)
	}
	if strings.Count(filter, "aresample=44100") != 2 {
		t.Errorf("expected one audio resample per input, got: %s", filter)
	}
}

func TestBuildOverlayFilter(t *testing.T) {
	items := []OverlayItem{
		{
			Position:        models.PositionBottomRight,
			Scale:           0.35,
			OffsetSeconds:   5,
			DurationSeconds: floatPtr(4),
		},
	}

	filter := buildOverlayFilter(items, 1080)

	// 1080 * 0.35 = 378, even
	if !strings.Contains(filter, "[1:v]scale=378:-2[ov0]") {
		t.Errorf("expected overlay scaled to 35%% of main width, got: %s", filter)
	}
	if !strings.Contains(filter, "overlay=W-w-20:H-h-20") {
		t.Errorf("expected bottom-right anchor with margin, got: %s", filter)
	}
	if !strings.Contains(filter, "enable='between(t,5.000,9.000)'") {
		t.Errorf("expected timeline window [5,9], got: %s", filter)
	}
	if !strings.HasSuffix(filter, "[vout]") {
		t.Errorf("expected final output label [vout], got: %s", filter)
	}
}

func TestBuildOverlayFilterUnknownDuration(t *testing.T) {
	items := []OverlayItem{
		{Position: models.PositionCenter, Scale: 0.5, OffsetSeconds: 3},
	}

	filter := buildOverlayFilter(items, 1920)

	if !strings.Contains(filter, "enable='gte(t,3.000)'") {
		t.Errorf("expected open-ended window for unknown duration, got: %s", filter)
	}
	if !strings.Contains(filter, "overlay=(W-w)/2:(H-h)/2") {
		t.Errorf("expected centered anchor, got: %s", filter)
	}
}

func TestBuildOverlayFilterChainsMultiple(t *testing.T) {
	items := []OverlayItem{
		{Position: models.PositionTopLeft, Scale: 0.3, OffsetSeconds: 0, DurationSeconds: floatPtr(2)},
		{Position: models.PositionTopRight, Scale: 0.3, OffsetSeconds: 2, DurationSeconds: floatPtr(2)},
	}

	filter := buildOverlayFilter(items, 1000)

	// First overlay feeds the second
	if !strings.Contains(filter, "[ovd0];") {
		t.Errorf("expected intermediate chain label, got: %s", filter)
	}
	if !strings.Contains(filter, "[ovd0][ov1]overlay=") {
		t.Errorf("expected second overlay applied to first result, got: %s", filter)
	}
}

func TestOverlayPositionExpr(t *testing.T) {
	cases := []struct {
		pos  models.OverlayPosition
		x, y string
	}{
		{models.PositionTopLeft, "20", "20"},
		{models.PositionTopRight, "W-w-20", "20"},
		{models.PositionBottomLeft, "20", "H-h-20"},
		{models.PositionBottomRight, "W-w-20", "H-h-20"},
		{models.PositionCenter, "(W-w)/2", "(H-h)/2"},
	}

	for _, c := range cases {
		x, y := overlayPositionExpr(c.pos)
		if x != c.x || y != c.y {
			t.Errorf("%s: expected (%s,%s), got (%s,%s)", c.pos, c.x, c.y, x, y)
		}
	}
}

func TestBuildAudioMergeArgsVoiceAndMusic(t *testing.T) {
	args := strings.Join(buildAudioMergeArgs("video.mp4", "voice.mp3", "music.mp3", "out.mp4"), " ")

	if !strings.Contains(args, "volume=0.10[music]") {
		t.Errorf("expected music ducked to 0.10, got: %s", args)
	}
	if !strings.Contains(args, "amix=inputs=2:duration=shortest") {
		t.Errorf("expected shortest-wins mix, got: %s", args)
	}
	if !strings.Contains(args, "-shortest") {
		t.Errorf("expected output bounded by shortest stream, got: %s", args)
	}
	if !strings.Contains(args, "-c:v copy") {
		t.Errorf("expected video stream copied untouched, got: %s", args)
	}
}

func TestBuildAudioMergeArgsVoiceOnly(t *testing.T) {
	args := strings.Join(buildAudioMergeArgs("video.mp4", "voice.mp3", "", "out.mp4"), " ")

	if strings.Contains(args, "amix") {
		t.Errorf("expected no mixing without music, got: %s", args)
	}
	if !strings.Contains(args, "-map 1:a") {
		t.Errorf("expected voice track mapped directly, got: %s", args)
	}
}

func TestBuildKenBurnsFilter(t *testing.T) {
	res := Resolution{Width: 1080, Height: 1920}

	zoomIn := buildKenBurnsFilter(KenBurnsZoomIn, 150, res)
	if !strings.Contains(zoomIn, "z='1.0+0.3*on/150'") {
		t.Errorf("expected progressive zoom, got: %s", zoomIn)
	}
	if !strings.Contains(zoomIn, "s=1080x1920") {
		t.Errorf("expected output size in filter, got: %s", zoomIn)
	}
	if !strings.Contains(zoomIn, "fps=30") {
		t.Errorf("expected 30fps, got: %s", zoomIn)
	}

	panRight := buildKenBurnsFilter(KenBurnsPanRight, 150, res)
	if !strings.Contains(panRight, "z='1.2'") {
		t.Errorf("expected fixed zoom for pan, got: %s", panRight)
	}
	if !strings.Contains(panRight, "(iw-iw/zoom)*on/150") {
		t.Errorf("expected rightward pan expression, got: %s", panRight)
	}
}

func TestFormatSeconds(t *testing.T) {
	if got := formatSeconds(2.5); got != "2.500" {
		t.Errorf("expected 2.500, got %s", got)
	}
	if got := formatSeconds(0); got != "0.000" {
		t.Errorf("expected 0.000, got %s", got)
	}
}

func TestEscapeDrawtext(t *testing.T) {
	if got := escapeDrawtext("it's 50%: done"); got != "its 50\\%\\: done" {
		t.Errorf("unexpected escaping result: %q", got)
	}
	if strings.Contains(escapeDrawtext("don't"), "'") {
		t.Error("expected apostrophes removed")
	}
	if !strings.Contains(escapeDrawtext("a:b"), "\\:") {
		t.Error("expected colon escaped")
	}
}
