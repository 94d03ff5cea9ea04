package worker

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/reelforge/reelforge/internal/models"
	"github.com/reelforge/reelforge/internal/services"
)

// prepareScriptScenes plans the script into scenes and synthesizes a
// normalized clip for every scene. Providers run in parallel under separate
// limits for video and image generation; results land in scene index order
// no matter which provider finishes first.
func (w *Worker) prepareScriptScenes(ctx context.Context, project *models.Project, res services.Resolution, workDir string) ([]string, error) {
	if w.planner == nil {
		return nil, fmt.Errorf("script provided but scene planner is not configured")
	}

	w.progress(ctx, project.ID, "planning scenes", 10)
	scenes := w.planner.PlanScenes(ctx, *project.Script, project.Format)
	if len(scenes) == 0 {
		return nil, fmt.Errorf("scene planning produced no scenes")
	}
	log.Printf("[Stitch] Planned %d scenes for project %s (%d hero)", len(scenes), project.ID, countHeroScenes(scenes))

	paths := make([]string, len(scenes))
	var completed int64

	g, gctx := errgroup.WithContext(ctx)
	clipSem := semaphore.NewWeighted(w.clipGenLimit)
	imageSem := semaphore.NewWeighted(w.imageGenLimit)

	for i := range scenes {
		scene := scenes[i]
		g.Go(func() error {
			sem := imageSem
			if scene.Kind == models.SceneGeneratedClip {
				sem = clipSem
			}
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			path, err := w.generateScene(gctx, scene, project.Format, res, workDir)
			if err != nil {
				return fmt.Errorf("scene %d: %w", scene.Index, err)
			}
			paths[scene.Index] = path

			done := atomic.AddInt64(&completed, 1)
			w.progress(gctx, project.ID, "generating scenes", 10+int(done*40/int64(len(scenes))))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return paths, nil
}

// generateScene produces one normalized scene clip. Provider failures fall
// back to a locally synthesized placeholder so a single flaky generation
// never stalls the run; only local synthesis failure is an error.
func (w *Worker) generateScene(ctx context.Context, scene models.Scene, format models.VideoFormat, res services.Resolution, workDir string) (string, error) {
	outPath := filepath.Join(workDir, fmt.Sprintf("scene_%d.mp4", scene.Index))

	switch scene.Kind {
	case models.SceneGeneratedClip:
		if w.videoGen != nil {
			data, err := w.videoGen.GenerateClip(ctx, scene.VisualPrompt, int(scene.DurationSeconds), aspectRatioFor(format))
			if err == nil && len(data) > 0 {
				return w.normalizeProviderClip(ctx, scene, data, workDir, outPath)
			}
			log.Printf("[Stitch] Scene %d clip generation failed, using placeholder: %v", scene.Index, err)
		}
		return w.placeholderScene(ctx, scene, res, outPath)

	case models.SceneGeneratedImage:
		imagePath := filepath.Join(workDir, fmt.Sprintf("scene_%d.png", scene.Index))
		if w.imageGen != nil {
			data, err := w.imageGen.GenerateImage(ctx, scene.VisualPrompt, aspectRatioFor(format))
			if err == nil && len(data) > 0 {
				if werr := os.WriteFile(imagePath, data, 0644); werr == nil {
					effect := services.RandomKenBurnsEffect()
					if kerr := w.ffmpeg.KenBurnsClip(ctx, imagePath, scene.DurationSeconds, effect, res, outPath); kerr == nil {
						return outPath, nil
					} else {
						log.Printf("[Stitch] Scene %d ken burns failed, using placeholder: %v", scene.Index, kerr)
					}
				}
			} else {
				log.Printf("[Stitch] Scene %d image generation failed, using placeholder: %v", scene.Index, err)
			}
		}
		if err := w.ffmpeg.PlaceholderImage(ctx, fmt.Sprintf("Scene %d", scene.Index+1), res, imagePath); err == nil {
			if kerr := w.ffmpeg.KenBurnsClip(ctx, imagePath, scene.DurationSeconds, services.RandomKenBurnsEffect(), res, outPath); kerr == nil {
				return outPath, nil
			}
		}
		return w.placeholderScene(ctx, scene, res, outPath)

	default:
		return "", fmt.Errorf("unknown scene kind %q", scene.Kind)
	}
}

// normalizeProviderClip writes provider bytes to disk and re-encodes them to
// the pipeline's uniform parameters. Provider output carries arbitrary codecs
// and sometimes an audio bed, so it is muted and normalized before assembly.
func (w *Worker) normalizeProviderClip(ctx context.Context, scene models.Scene, data []byte, workDir, outPath string) (string, error) {
	rawPath := filepath.Join(workDir, fmt.Sprintf("scene_%d_raw.mp4", scene.Index))
	if err := os.WriteFile(rawPath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write provider clip: %w", err)
	}

	result := w.ffmpeg.Preprocess(ctx, models.Clip{OrderIndex: scene.Index, Muted: true}, rawPath, outPath)
	if result.Degraded {
		log.Printf("[Stitch] Scene %d normalization degraded (using raw provider clip): %s", scene.Index, result.Reason)
	}
	return result.Path, nil
}

// placeholderScene synthesizes the local stand-in clip for a scene.
func (w *Worker) placeholderScene(ctx context.Context, scene models.Scene, res services.Resolution, outPath string) (string, error) {
	label := fmt.Sprintf("Scene %d", scene.Index+1)
	if err := w.ffmpeg.PlaceholderClip(ctx, label, scene.DurationSeconds, res, outPath); err != nil {
		return "", fmt.Errorf("placeholder synthesis failed: %w", err)
	}
	return outPath, nil
}

func aspectRatioFor(format models.VideoFormat) string {
	if format == models.FormatShort {
		return "9:16"
	}
	return "16:9"
}

func countHeroScenes(scenes []models.Scene) int {
	n := 0
	for _, s := range scenes {
		if s.IsHero {
			n++
		}
	}
	return n
}
