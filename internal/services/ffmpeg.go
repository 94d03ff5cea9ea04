package services

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/reelforge/reelforge/internal/models"
)

// Encoding constants — every preprocessed clip is normalized to this codec and
// quality so the fast concat path can stream-copy without format mismatches.
const (
	videoCodec   = "libx264"
	videoPreset  = "veryfast"
	videoCRF     = "23"
	audioCodec   = "aac"
	audioBitrate = "128k"
	pixelFormat  = "yuv420p"

	// Fallback concat target: fixed 16:9 landscape, applied even for vertical
	// output profiles. Only reached when inputs are heterogeneous.
	fallbackWidth  = 1920
	fallbackHeight = 1080

	// Overlay margin from the frame edge, in pixels.
	overlayMargin = 20

	// Background music attenuation under the voice track (≈ −20 dB).
	musicGain = 0.1

	// Tail of ffmpeg stderr kept as the error detail.
	stderrTailBytes = 2048
)

// Resolution is the output frame size for a video format.
type Resolution struct {
	Width  int
	Height int
}

// ResolutionFor maps a video format to its render resolution.
func ResolutionFor(format models.VideoFormat) Resolution {
	if format == models.FormatLong {
		return Resolution{Width: 1920, Height: 1080}
	}
	return Resolution{Width: 1080, Height: 1920}
}

// FFmpegService wraps the external media-processing engine. Every stage
// invocation builds an argument list, runs the tool to completion under a
// per-call timeout, and treats a non-zero exit as that stage's failure with
// the captured stderr tail as detail.
type FFmpegService struct {
	callTimeout time.Duration
}

// NewFFmpegService verifies the tool binaries exist. A missing binary is a
// fatal configuration error for the whole pipeline, not a per-stage fallback.
func NewFFmpegService(callTimeout time.Duration) (*FFmpegService, error) {
	for _, bin := range []string{"ffmpeg", "ffprobe"} {
		if _, err := exec.LookPath(bin); err != nil {
			return nil, &FatalConfigError{Reason: fmt.Sprintf("%s binary not found in PATH", bin), Err: err}
		}
	}
	return &FFmpegService{callTimeout: callTimeout}, nil
}

// run executes one engine invocation with a bounded wait. A hung call fails
// that call via the context deadline rather than hanging the whole job.
func (s *FFmpegService) run(ctx context.Context, bin string, args []string) error {
	ctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s failed: %w (stderr: %s)", bin, err, stderrTail(stderr.Bytes()))
	}
	return nil
}

func stderrTail(b []byte) string {
	if len(b) > stderrTailBytes {
		b = b[len(b)-stderrTailBytes:]
	}
	return strings.TrimSpace(string(b))
}

// ---------------------------------------------------------------------------
// Clip Preprocessor
// ---------------------------------------------------------------------------

// NormalizedClip is the preprocessor's result. Degraded means processing
// failed and Path is the original, untouched source — usable but not
// normalized. Call sites log the degradation instead of treating it as either
// clean success or failure.
type NormalizedClip struct {
	Path     string
	Degraded bool
	Reason   string
}

// Preprocess applies per-clip trim and mute to one source file and re-encodes
// it to the shared codec/quality preset. On any processing error the original
// source is returned as a degraded result — a single clip's preprocessing
// failure never aborts the run.
func (s *FFmpegService) Preprocess(ctx context.Context, clip models.Clip, srcPath, outPath string) NormalizedClip {
	args := buildPreprocessArgs(clip, srcPath, outPath)

	if err := s.run(ctx, "ffmpeg", args); err != nil {
		log.Printf("[FFmpeg] WARNING: preprocess failed for clip %d, passing original through: %v", clip.OrderIndex, err)
		return NormalizedClip{Path: srcPath, Degraded: true, Reason: err.Error()}
	}

	return NormalizedClip{Path: outPath}
}

// buildPreprocessArgs constructs the trim/mute/re-encode invocation.
// Trim window is [trimStart, trimEnd) when trimEnd is present and greater
// than trimStart, else the full clip from trimStart.
func buildPreprocessArgs(clip models.Clip, srcPath, outPath string) []string {
	args := []string{"-i", srcPath}

	start := 0.0
	if clip.TrimStartSeconds != nil && *clip.TrimStartSeconds > 0 {
		start = *clip.TrimStartSeconds
		args = append(args, "-ss", formatSeconds(start))
	}
	if clip.TrimEndSeconds != nil && *clip.TrimEndSeconds > start {
		args = append(args, "-to", formatSeconds(*clip.TrimEndSeconds))
	}

	args = append(args,
		"-c:v", videoCodec,
		"-preset", videoPreset,
		"-crf", videoCRF,
		"-pix_fmt", pixelFormat,
	)

	if clip.Muted {
		args = append(args, "-an")
	} else {
		// Re-encode audio to a fixed bitrate/codec for concat compatibility
		args = append(args, "-c:a", audioCodec, "-b:a", audioBitrate, "-ar", "44100")
	}

	args = append(args, "-y", outPath)
	return args
}

// ---------------------------------------------------------------------------
// Sequence Assembler
// ---------------------------------------------------------------------------

// Assemble concatenates ordered normalized clips into one continuous stream.
// Primary path: stream-copy via the concat demuxer (cheap, lossless, assumes
// uniform format). Fallback, tried once on primary failure: re-encode concat
// that scales/pads every clip to the fixed fallback resolution. Both paths
// failing, or an empty input list, is fatal to the run.
func (s *FFmpegService) Assemble(ctx context.Context, clipPaths []string, workDir, outPath string) error {
	if len(clipPaths) == 0 {
		return &StageFallbackExhaustedError{Stage: "assemble", Err: fmt.Errorf("no clips to concatenate")}
	}

	if err := s.concatStreamCopy(ctx, clipPaths, workDir, outPath); err != nil {
		log.Printf("[FFmpeg] Fast concat failed, retrying with re-encode: %v", err)
		if err2 := s.concatReencode(ctx, clipPaths, outPath); err2 != nil {
			return &StageFallbackExhaustedError{
				Stage: "assemble",
				Err:   fmt.Errorf("stream-copy: %v; re-encode: %w", err, err2),
			}
		}
	}

	return nil
}

func (s *FFmpegService) concatStreamCopy(ctx context.Context, clipPaths []string, workDir, outPath string) error {
	listPath := filepath.Join(workDir, "concat_list.txt")
	var sb strings.Builder
	for _, p := range clipPaths {
		fmt.Fprintf(&sb, "file '%s'\n", p)
	}
	if err := os.WriteFile(listPath, []byte(sb.String()), 0644); err != nil {
		return fmt.Errorf("failed to write concat list: %w", err)
	}
	defer os.Remove(listPath)

	args := []string{
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy",
		"-y",
		outPath,
	}
	return s.run(ctx, "ffmpeg", args)
}

// concatReencode joins clips through the concat filter, forcing every input
// to the fixed fallback resolution with aspect-preserving scale plus pad.
func (s *FFmpegService) concatReencode(ctx context.Context, clipPaths []string, outPath string) error {
	args := []string{}
	for _, p := range clipPaths {
		args = append(args, "-i", p)
	}

	args = append(args,
		"-filter_complex", buildReencodeConcatFilter(len(clipPaths)),
		"-map", "[v]",
		"-map", "[a]",
		"-c:v", videoCodec,
		"-preset", videoPreset,
		"-crf", videoCRF,
		"-pix_fmt", pixelFormat,
		"-c:a", audioCodec,
		"-b:a", audioBitrate,
		"-y",
		outPath,
	)
	return s.run(ctx, "ffmpeg", args)
}

func buildReencodeConcatFilter(n int) string {
	var sb strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&sb,
			"[%d:v]scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2,setsar=1[v%d];",
			i, fallbackWidth, fallbackHeight, fallbackWidth, fallbackHeight, i)
		fmt.Fprintf(&sb, "[%d:a]aresample=44100[a%d];", i, i)
	}
	for i := 0; i < n; i++ {
		fmt.Fprintf(&sb, "[v%d][a%d]", i, i)
	}
	fmt.Fprintf(&sb, "concat=n=%d:v=1:a=1[v][a]", n)
	return sb.String()
}

// ---------------------------------------------------------------------------
// Overlay Compositor
// ---------------------------------------------------------------------------

// OverlayItem is one fetched b-roll clip ready for composition.
type OverlayItem struct {
	Path            string
	Position        models.OverlayPosition
	Scale           float64
	OffsetSeconds   float64
	DurationSeconds *float64 // nil = visible until the end of the video
}

// Overlay composites the given b-roll clips onto the main stream as
// picture-in-picture. The caller passes only clips that fetched successfully;
// an empty list is handled by the orchestrator as a no-op before reaching
// here. On failure the caller degrades to the un-composited main stream.
func (s *FFmpegService) Overlay(ctx context.Context, mainPath string, items []OverlayItem, outPath string) error {
	if len(items) == 0 {
		return fmt.Errorf("no overlay items")
	}

	mainWidth, err := s.ProbeWidth(ctx, mainPath)
	if err != nil {
		return fmt.Errorf("failed to probe main stream width: %w", err)
	}

	args := []string{"-i", mainPath}
	for _, it := range items {
		args = append(args, "-i", it.Path)
	}

	args = append(args,
		"-filter_complex", buildOverlayFilter(items, mainWidth),
		"-map", "[vout]",
		"-map", "0:a?",
		"-c:v", videoCodec,
		"-preset", videoPreset,
		"-crf", videoCRF,
		"-pix_fmt", pixelFormat,
		"-c:a", "copy",
		"-y",
		outPath,
	)
	return s.run(ctx, "ffmpeg", args)
}

// buildOverlayFilter chains one scale+overlay pair per b-roll clip. Each
// overlay is scaled to scale × main width (aspect preserved) and enabled only
// inside its [offset, offset+duration] window on the main timeline.
func buildOverlayFilter(items []OverlayItem, mainWidth int) string {
	var sb strings.Builder

	for i, it := range items {
		w := int(float64(mainWidth) * it.Scale)
		if w < 2 {
			w = 2
		}
		w -= w % 2 // encoder requires even dimensions
		fmt.Fprintf(&sb, "[%d:v]scale=%d:-2[ov%d];", i+1, w, i)
	}

	prev := "[0:v]"
	for i, it := range items {
		x, y := overlayPositionExpr(it.Position)

		var enable string
		if it.DurationSeconds != nil {
			enable = fmt.Sprintf("between(t,%s,%s)",
				formatSeconds(it.OffsetSeconds),
				formatSeconds(it.OffsetSeconds+*it.DurationSeconds))
		} else {
			// Unknown duration: visible from offset to the end of the video
			enable = fmt.Sprintf("gte(t,%s)", formatSeconds(it.OffsetSeconds))
		}

		out := fmt.Sprintf("[ovd%d]", i)
		if i == len(items)-1 {
			out = "[vout]"
		}
		fmt.Fprintf(&sb, "%s[ov%d]overlay=%s:%s:enable='%s'%s;", prev, i, x, y, enable, out)
		prev = out
	}

	return strings.TrimSuffix(sb.String(), ";")
}

// overlayPositionExpr maps an anchor position to overlay-filter x/y
// expressions (W/H = main frame, w/h = overlay frame).
func overlayPositionExpr(pos models.OverlayPosition) (x, y string) {
	m := strconv.Itoa(overlayMargin)
	switch pos {
	case models.PositionTopLeft:
		return m, m
	case models.PositionTopRight:
		return "W-w-" + m, m
	case models.PositionBottomLeft:
		return m, "H-h-" + m
	case models.PositionCenter:
		return "(W-w)/2", "(H-h)/2"
	default: // bottom-right
		return "W-w-" + m, "H-h-" + m
	}
}

// ---------------------------------------------------------------------------
// Audio Merger
// ---------------------------------------------------------------------------

// MergeAudio replaces the stream's audio with the voice track, optionally
// mixed with background music attenuated to roughly −20 dB. Output duration
// follows the shortest of the video stream and the final audio stream — this
// truncates, it does not loop or pad. The caller degrades to the input video
// (original audio preserved) on failure.
func (s *FFmpegService) MergeAudio(ctx context.Context, videoPath, voicePath, musicPath, outPath string) error {
	args := buildAudioMergeArgs(videoPath, voicePath, musicPath, outPath)
	return s.run(ctx, "ffmpeg", args)
}

func buildAudioMergeArgs(videoPath, voicePath, musicPath, outPath string) []string {
	args := []string{"-i", videoPath, "-i", voicePath}

	if musicPath != "" {
		args = append(args, "-i", musicPath)
		// Voice at full level, music ducked underneath; duration=shortest so
		// the mixed track ends with the shorter input.
		filter := fmt.Sprintf(
			"[1:a]volume=1.0[voice];[2:a]volume=%.2f[music];[voice][music]amix=inputs=2:duration=shortest[aout]",
			musicGain)
		args = append(args,
			"-filter_complex", filter,
			"-map", "0:v",
			"-map", "[aout]",
		)
	} else {
		args = append(args,
			"-map", "0:v",
			"-map", "1:a",
		)
	}

	args = append(args,
		"-c:v", "copy",
		"-c:a", audioCodec,
		"-b:a", audioBitrate,
		"-shortest",
		"-y",
		outPath,
	)
	return args
}

// ---------------------------------------------------------------------------
// Ken Burns / placeholder synthesis (Synthetic Clip Generator support)
// ---------------------------------------------------------------------------

// KenBurnsEffect is one slow zoom/pan motion applied to a still image.
type KenBurnsEffect string

const (
	KenBurnsZoomIn   KenBurnsEffect = "zoom_in"
	KenBurnsZoomOut  KenBurnsEffect = "zoom_out"
	KenBurnsPanLeft  KenBurnsEffect = "pan_left"
	KenBurnsPanRight KenBurnsEffect = "pan_right"
)

var kenBurnsEffects = []KenBurnsEffect{
	KenBurnsZoomIn,
	KenBurnsZoomOut,
	KenBurnsPanLeft,
	KenBurnsPanRight,
}

// RandomKenBurnsEffect picks a motion effect for an image scene.
func RandomKenBurnsEffect() KenBurnsEffect {
	return kenBurnsEffects[rand.Intn(len(kenBurnsEffects))]
}

const kenBurnsFPS = 30

// KenBurnsClip turns a still image into a motion clip of the given duration
// using a continuous slow zoom/pan.
func (s *FFmpegService) KenBurnsClip(ctx context.Context, imagePath string, durationSeconds float64, effect KenBurnsEffect, res Resolution, outPath string) error {
	totalFrames := int(durationSeconds * kenBurnsFPS)
	if totalFrames < kenBurnsFPS {
		totalFrames = kenBurnsFPS // minimum 1 second
	}

	vf := buildKenBurnsFilter(effect, totalFrames, res)

	args := []string{
		"-loop", "1",
		"-i", imagePath,
		"-vf", vf,
		"-t", formatSeconds(durationSeconds),
		"-c:v", videoCodec,
		"-preset", videoPreset,
		"-crf", videoCRF,
		"-pix_fmt", pixelFormat,
		"-an",
		"-y",
		outPath,
	}
	return s.run(ctx, "ffmpeg", args)
}

func buildKenBurnsFilter(effect KenBurnsEffect, totalFrames int, res Resolution) string {
	var zExpr, xExpr, yExpr string

	switch effect {
	case KenBurnsZoomOut:
		// Starts zoomed, pulls back wide
		zExpr = fmt.Sprintf("1.3-0.3*on/%d", totalFrames)
		xExpr = "iw/2-(iw/zoom/2)"
		yExpr = "ih/2-(ih/zoom/2)"
	case KenBurnsPanLeft:
		zExpr = "1.2"
		xExpr = fmt.Sprintf("(iw-iw/zoom)*(1-on/%d)", totalFrames)
		yExpr = "ih/2-(ih/zoom/2)"
	case KenBurnsPanRight:
		zExpr = "1.2"
		xExpr = fmt.Sprintf("(iw-iw/zoom)*on/%d", totalFrames)
		yExpr = "ih/2-(ih/zoom/2)"
	default: // zoom in
		zExpr = fmt.Sprintf("1.0+0.3*on/%d", totalFrames)
		xExpr = "iw/2-(iw/zoom/2)"
		yExpr = "ih/2-(ih/zoom/2)"
	}

	return fmt.Sprintf(
		"zoompan=z='%s':x='%s':y='%s':d=%d:s=%dx%d:fps=%d",
		zExpr, xExpr, yExpr, totalFrames, res.Width, res.Height, kenBurnsFPS,
	)
}

// PlaceholderClip synthesizes a solid-background labeled clip of the requested
// duration. Used when a generation provider is unavailable so the pipeline
// never stalls on a missing provider.
func (s *FFmpegService) PlaceholderClip(ctx context.Context, label string, durationSeconds float64, res Resolution, outPath string) error {
	src := fmt.Sprintf("color=c=0x1a1a2e:s=%dx%d:d=%s:r=%d",
		res.Width, res.Height, formatSeconds(durationSeconds), kenBurnsFPS)

	vf := fmt.Sprintf(
		"drawtext=text='%s':fontsize=%d:fontcolor=white:x=(w-text_w)/2:y=(h-text_h)/2",
		escapeDrawtext(label), res.Height/24)

	args := []string{
		"-f", "lavfi",
		"-i", src,
		"-vf", vf,
		"-c:v", videoCodec,
		"-preset", videoPreset,
		"-crf", videoCRF,
		"-pix_fmt", pixelFormat,
		"-an",
		"-y",
		outPath,
	}
	return s.run(ctx, "ffmpeg", args)
}

// PlaceholderImage synthesizes a single solid-background labeled frame, the
// image-provider counterpart of PlaceholderClip.
func (s *FFmpegService) PlaceholderImage(ctx context.Context, label string, res Resolution, outPath string) error {
	src := fmt.Sprintf("color=c=0x1a1a2e:s=%dx%d", res.Width, res.Height)

	vf := fmt.Sprintf(
		"drawtext=text='%s':fontsize=%d:fontcolor=white:x=(w-text_w)/2:y=(h-text_h)/2",
		escapeDrawtext(label), res.Height/24)

	args := []string{
		"-f", "lavfi",
		"-i", src,
		"-vf", vf,
		"-frames:v", "1",
		"-y",
		outPath,
	}
	return s.run(ctx, "ffmpeg", args)
}

// ---------------------------------------------------------------------------
// Probing
// ---------------------------------------------------------------------------

// ProbeDuration returns the container duration in seconds.
func (s *FFmpegService) ProbeDuration(ctx context.Context, path string) (float64, error) {
	out, err := s.probe(ctx, []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	})
	if err != nil {
		return 0, err
	}

	dur, err := strconv.ParseFloat(strings.TrimSpace(out), 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration %q: %w", out, err)
	}
	return dur, nil
}

// ProbeWidth returns the width of the first video stream.
func (s *FFmpegService) ProbeWidth(ctx context.Context, path string) (int, error) {
	out, err := s.probe(ctx, []string{
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	})
	if err != nil {
		return 0, err
	}

	w, err := strconv.Atoi(strings.TrimSpace(out))
	if err != nil {
		return 0, fmt.Errorf("failed to parse width %q: %w", out, err)
	}
	return w, nil
}

func (s *FFmpegService) probe(ctx context.Context, args []string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "ffprobe", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("ffprobe failed: %w (stderr: %s)", err, stderrTail(stderr.Bytes()))
	}
	return string(out), nil
}

// formatSeconds renders a duration for an ffmpeg argument or filter expression.
func formatSeconds(sec float64) string {
	return strconv.FormatFloat(sec, 'f', 3, 64)
}

// escapeDrawtext escapes characters the drawtext filter treats specially.
func escapeDrawtext(text string) string {
	text = strings.ReplaceAll(text, "\\", "\\\\")
	text = strings.ReplaceAll(text, ":", "\\:")
	text = strings.ReplaceAll(text, "'", "")
	text = strings.ReplaceAll(text, "%", "\\%")
	return text
}
