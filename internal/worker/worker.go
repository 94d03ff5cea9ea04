package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/reelforge/reelforge/internal/db"
	"github.com/reelforge/reelforge/internal/models"
	"github.com/reelforge/reelforge/internal/queue"
	"github.com/reelforge/reelforge/internal/services"
	"github.com/reelforge/reelforge/internal/storage"
)

// maxErrorLen bounds the human-readable failure message stored on the project.
const maxErrorLen = 500

// Worker owns the per-project stitch job state machine. It consumes accepted
// runs from the queue, sequences the pipeline stages strictly in order, and
// guarantees scratch cleanup and a terminal status write on every path.
// No stage error ever propagates past this boundary.
type Worker struct {
	db       *db.DB
	queue    *queue.Queue
	storage  *storage.Storage
	fetcher  *services.Fetcher
	ffmpeg   *services.FFmpegService
	planner  *services.PlannerService
	videoGen *services.VideoGenService // nil when video generation is disabled
	imageGen *services.ImageGenService // nil when image generation is disabled

	scratchRoot   string
	clipGenLimit  int64
	imageGenLimit int64
}

func New(
	database *db.DB,
	q *queue.Queue,
	stor *storage.Storage,
	fetcher *services.Fetcher,
	ffmpegSvc *services.FFmpegService,
	plannerSvc *services.PlannerService,
	videoGenSvc *services.VideoGenService,
	imageGenSvc *services.ImageGenService,
	scratchRoot string,
	clipGenLimit, imageGenLimit int,
) *Worker {
	return &Worker{
		db:            database,
		queue:         q,
		storage:       stor,
		fetcher:       fetcher,
		ffmpeg:        ffmpegSvc,
		planner:       plannerSvc,
		videoGen:      videoGenSvc,
		imageGen:      imageGenSvc,
		scratchRoot:   scratchRoot,
		clipGenLimit:  int64(clipGenLimit),
		imageGenLimit: int64(imageGenLimit),
	}
}

// Start begins processing stitch jobs until the context is cancelled.
func (w *Worker) Start(ctx context.Context, concurrency int) {
	log.Printf("Worker started with concurrency: %d", concurrency)

	for i := 0; i < concurrency; i++ {
		go w.processQueue(ctx)
	}

	<-ctx.Done()
	log.Println("Worker shutting down...")
}

func (w *Worker) processQueue(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
			job, err := w.queue.Dequeue(ctx, 5*time.Second)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Printf("Error dequeuing stitch job: %v", err)
				continue
			}

			if job == nil {
				continue // No job available, retry
			}

			log.Printf("[Stitch] Starting run %s for project %s", job.ID, job.ProjectID)
			w.runStitch(ctx, job.ProjectID)
		}
	}
}

// runStitch executes one full pipeline run. Every exit path writes a terminal
// status: failures are captured into the project document, never rethrown.
func (w *Worker) runStitch(ctx context.Context, projectID uuid.UUID) {
	videoURL, err := w.stitch(ctx, projectID)
	if err != nil {
		log.Printf("[Stitch] Project %s failed: %v", projectID, err)
		if dbErr := w.db.FailStitch(ctx, projectID, truncateError(err)); dbErr != nil {
			log.Printf("[Stitch] Failed to record failure for project %s: %v", projectID, dbErr)
		}
		return
	}

	if err := w.db.FinishStitch(ctx, projectID, videoURL); err != nil {
		log.Printf("[Stitch] Failed to record success for project %s: %v", projectID, err)
		return
	}

	log.Printf("[Stitch] Project %s ready: %s", projectID, videoURL)
}

// stitch runs the stage sequence and returns the published artifact URL.
// The scratch workspace is private to this run and removed unconditionally.
func (w *Worker) stitch(ctx context.Context, projectID uuid.UUID) (string, error) {
	project, err := w.db.GetProject(ctx, projectID)
	if err != nil {
		return "", fmt.Errorf("failed to load project: %w", err)
	}

	if err := os.MkdirAll(w.scratchRoot, 0755); err != nil {
		return "", fmt.Errorf("failed to create scratch root: %w", err)
	}
	workDir, err := os.MkdirTemp(w.scratchRoot, "stitch-"+projectID.String()+"-")
	if err != nil {
		return "", fmt.Errorf("failed to create scratch workspace: %w", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(workDir); rmErr != nil {
			log.Printf("[Stitch] WARNING: failed to clean scratch dir %s: %v", workDir, rmErr)
		}
	}()

	res := services.ResolutionFor(project.Format)

	// ── Source stage: uploaded clips, or planned synthetic scenes ──────
	clips, err := w.db.GetProjectClips(ctx, projectID)
	if err != nil {
		return "", fmt.Errorf("failed to load clips: %w", err)
	}

	var clipPaths []string
	if len(clips) > 0 {
		clipPaths, err = w.prepareUploadedClips(ctx, project, clips, workDir)
	} else if project.Script != nil && *project.Script != "" {
		clipPaths, err = w.prepareScriptScenes(ctx, project, res, workDir)
	} else {
		return "", fmt.Errorf("project has no clips and no script")
	}
	if err != nil {
		return "", err
	}

	// ── Sequence Assembler ──────────────────────────────────────────────
	w.progress(ctx, projectID, "assembling", 55)
	concatPath := filepath.Join(workDir, "assembled.mp4")
	if err := w.ffmpeg.Assemble(ctx, clipPaths, workDir, concatPath); err != nil {
		return "", err
	}
	current := concatPath

	// ── Overlay Compositor (optional, degrades to input) ───────────────
	w.progress(ctx, projectID, "compositing", 70)
	current = w.applyOverlays(ctx, project, current, workDir)

	// ── Audio Merger (optional, degrades to input) ─────────────────────
	w.progress(ctx, projectID, "merging audio", 80)
	current = w.applyAudio(ctx, project, current, workDir)

	// ── Caption Burner (optional, degrades to input) ────────────────────
	if project.BurnCaptions && project.Script != nil && *project.Script != "" {
		w.progress(ctx, projectID, "burning captions", 90)
		captionedPath := filepath.Join(workDir, "captioned.mp4")
		out, err := w.ffmpeg.BurnCaptions(ctx, current, *project.Script, project.Format, captionedPath)
		if err != nil {
			log.Printf("[Stitch] WARNING: caption burn degraded, continuing without captions: %v", err)
		} else {
			current = out
		}
	}

	// ── Artifact Publisher (upload failure is fatal) ────────────────────
	w.progress(ctx, projectID, "publishing", 95)
	storagePath := w.storage.GenerateStoragePath(projectID, "stitched.mp4")
	videoURL, err := w.storage.UploadFile(ctx, storagePath, current, "video/mp4")
	if err != nil {
		return "", fmt.Errorf("failed to publish artifact: %w", err)
	}

	return videoURL, nil
}

// prepareUploadedClips resolves and normalizes the project's uploaded clips.
// Unreachable sources are skipped and preprocessing failures pass the
// original file through; only ending up with zero usable clips is fatal.
func (w *Worker) prepareUploadedClips(ctx context.Context, project *models.Project, clips []models.Clip, workDir string) ([]string, error) {
	w.progress(ctx, project.ID, "fetching clips", 10)

	// Stored indices may have gaps after concurrent edits; scratch file names
	// and concat order both assume a dense sequence.
	models.RenumberClips(clips)

	var paths []string
	var skipErr *services.SkippableSourceError
	for _, clip := range clips {
		rawPath := filepath.Join(workDir, fmt.Sprintf("clip_%d_raw.mp4", clip.OrderIndex))
		if _, err := w.fetcher.Fetch(ctx, clip.SourceRef, rawPath); err != nil {
			if errors.As(err, &skipErr) {
				log.Printf("[Stitch] Skipping clip %d: %v", clip.OrderIndex, err)
				continue
			}
			return nil, err
		}

		normPath := filepath.Join(workDir, fmt.Sprintf("clip_%d_norm.mp4", clip.OrderIndex))
		result := w.ffmpeg.Preprocess(ctx, clip, rawPath, normPath)
		if result.Degraded {
			log.Printf("[Stitch] Clip %d degraded (using original): %s", clip.OrderIndex, result.Reason)
		}
		paths = append(paths, result.Path)
	}

	w.progress(ctx, project.ID, "preprocessing", 40)

	if len(paths) == 0 {
		return nil, fmt.Errorf("no usable clips after fetch and preprocess")
	}
	return paths, nil
}

// applyOverlays fetches the project's b-roll and composites whatever is
// available. All-fetches-failed or none configured is a true no-op; a
// composition failure degrades to the un-composited main stream.
func (w *Worker) applyOverlays(ctx context.Context, project *models.Project, mainPath, workDir string) string {
	brolls, err := w.db.GetProjectBroll(ctx, project.ID)
	if err != nil {
		log.Printf("[Stitch] WARNING: failed to load broll, skipping overlays: %v", err)
		return mainPath
	}
	if len(brolls) == 0 {
		return mainPath
	}

	models.RenumberBroll(brolls)

	var items []services.OverlayItem
	for _, b := range brolls {
		path := filepath.Join(workDir, fmt.Sprintf("broll_%d.mp4", b.OrderIndex))
		if _, err := w.fetcher.Fetch(ctx, b.SourceRef, path); err != nil {
			log.Printf("[Stitch] Skipping broll %d: %v", b.OrderIndex, err)
			continue
		}
		items = append(items, services.OverlayItem{
			Path:            path,
			Position:        b.Position,
			Scale:           b.Scale,
			OffsetSeconds:   b.OffsetSeconds,
			DurationSeconds: b.DurationSeconds,
		})
	}

	if len(items) == 0 {
		return mainPath
	}

	outPath := filepath.Join(workDir, "composited.mp4")
	if err := w.ffmpeg.Overlay(ctx, mainPath, items, outPath); err != nil {
		log.Printf("[Stitch] WARNING: overlay degraded, continuing without broll: %v", err)
		return mainPath
	}
	return outPath
}

// applyAudio merges the narration track (and background music, if set) under
// shortest-wins semantics. Fetch or merge failure degrades to the input video
// with its original audio preserved.
func (w *Worker) applyAudio(ctx context.Context, project *models.Project, videoPath, workDir string) string {
	if project.AudioRef == nil || *project.AudioRef == "" {
		return videoPath
	}

	voicePath := filepath.Join(workDir, "voice_track")
	if _, err := w.fetcher.Fetch(ctx, *project.AudioRef, voicePath); err != nil {
		log.Printf("[Stitch] WARNING: narration track unavailable, continuing without audio merge: %v", err)
		return videoPath
	}

	musicPath := ""
	if project.MusicRef != nil && *project.MusicRef != "" {
		p := filepath.Join(workDir, "music_track")
		if _, err := w.fetcher.Fetch(ctx, *project.MusicRef, p); err != nil {
			log.Printf("[Stitch] WARNING: music track unavailable, merging voice only: %v", err)
		} else {
			musicPath = p
		}
	}

	outPath := filepath.Join(workDir, "merged_audio.mp4")
	if err := w.ffmpeg.MergeAudio(ctx, videoPath, voicePath, musicPath, outPath); err != nil {
		log.Printf("[Stitch] WARNING: audio merge degraded, keeping prior audio: %v", err)
		return videoPath
	}
	return outPath
}

// progress records the current phase; a failed write never affects the run.
func (w *Worker) progress(ctx context.Context, projectID uuid.UUID, phase string, percent int) {
	if err := w.db.UpdateStitchProgress(ctx, projectID, phase, percent); err != nil {
		log.Printf("[Stitch] WARNING: failed to update progress (%s): %v", phase, err)
	}
}

// truncateError renders an error as a bounded human-readable message.
func truncateError(err error) string {
	msg := err.Error()
	if len(msg) > maxErrorLen {
		msg = msg[:maxErrorLen] + "..."
	}
	return msg
}
