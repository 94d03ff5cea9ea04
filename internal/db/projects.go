package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/reelforge/reelforge/internal/models"
)

func (db *DB) CreateProject(ctx context.Context, project *models.Project) error {
	query := `
		INSERT INTO projects (
			id, user_id, title, format, script, audio_ref, music_ref,
			thumbnail_ref, burn_captions, stitch_status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`

	return db.QueryRowContext(
		ctx, query,
		project.ID, project.UserID, project.Title, project.Format,
		project.Script, project.AudioRef, project.MusicRef,
		project.ThumbnailRef, project.BurnCaptions, project.StitchStatus,
	).Scan(&project.CreatedAt, &project.UpdatedAt)
}

func (db *DB) GetProject(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	query := `
		SELECT
			id, user_id, title, format, script, audio_ref, music_ref,
			thumbnail_ref, burn_captions, stitch_status, stitch_phase,
			stitch_progress, stitch_error, stitched_video_url,
			created_at, updated_at
		FROM projects
		WHERE id = $1
	`

	project := &models.Project{}
	err := db.QueryRowContext(ctx, query, id).Scan(
		&project.ID, &project.UserID, &project.Title, &project.Format,
		&project.Script, &project.AudioRef, &project.MusicRef,
		&project.ThumbnailRef, &project.BurnCaptions, &project.StitchStatus,
		&project.StitchPhase, &project.StitchProgress, &project.StitchError,
		&project.StitchedVideoURL, &project.CreatedAt, &project.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("project not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	return project, nil
}

// ListProjects returns projects ordered by creation date (newest first).
// Supports optional stitch-status filter, limit, and offset for pagination.
func (db *DB) ListProjects(ctx context.Context, status string, limit, offset int) ([]models.Project, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseSelect := `
		SELECT
			id, user_id, title, format, script, audio_ref, music_ref,
			thumbnail_ref, burn_captions, stitch_status, stitch_phase,
			stitch_progress, stitch_error, stitched_video_url,
			created_at, updated_at
		FROM projects
	`

	if status != "" {
		query := baseSelect + ` WHERE stitch_status = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
		rows, err = db.QueryContext(ctx, query, status, limit, offset)
	} else {
		query := baseSelect + ` ORDER BY created_at DESC LIMIT $1 OFFSET $2`
		rows, err = db.QueryContext(ctx, query, limit, offset)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []models.Project
	for rows.Next() {
		var p models.Project
		if err := rows.Scan(
			&p.ID, &p.UserID, &p.Title, &p.Format,
			&p.Script, &p.AudioRef, &p.MusicRef,
			&p.ThumbnailRef, &p.BurnCaptions, &p.StitchStatus,
			&p.StitchPhase, &p.StitchProgress, &p.StitchError,
			&p.StitchedVideoURL, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, p)
	}

	return projects, nil
}

// CountProjects returns the total number of projects, optionally filtered by stitch status.
func (db *DB) CountProjects(ctx context.Context, status string) (int, error) {
	var count int
	if status != "" {
		err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM projects WHERE stitch_status = $1`, status).Scan(&count)
		return count, err
	}
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM projects`).Scan(&count)
	return count, err
}

// TryBeginStitch atomically transitions a project into the stitching state.
// It succeeds only from idle, ready, or failed — a project already stitching
// is left untouched and false is returned. Prior error and artifact URL are
// cleared on acceptance so pollers never see stale results mid-run.
func (db *DB) TryBeginStitch(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE projects
		SET stitch_status = $1, stitch_phase = NULL, stitch_progress = 0,
		    stitch_error = NULL, stitched_video_url = NULL, updated_at = NOW()
		WHERE id = $2 AND stitch_status IN ($3, $4, $5)
	`

	res, err := db.ExecContext(ctx, query,
		models.StitchStatusStitching, id,
		models.StitchStatusIdle, models.StitchStatusReady, models.StitchStatusFailed,
	)
	if err != nil {
		return false, fmt.Errorf("failed to begin stitch: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n == 1, nil
}

// UpdateStitchProgress records the current pipeline phase and percentage.
// Idempotent field write — safe to repeat, never changes status.
func (db *DB) UpdateStitchProgress(ctx context.Context, id uuid.UUID, phase string, percent int) error {
	query := `
		UPDATE projects
		SET stitch_phase = $1, stitch_progress = $2, updated_at = NOW()
		WHERE id = $3 AND stitch_status = $4
	`
	_, err := db.ExecContext(ctx, query, phase, percent, id, models.StitchStatusStitching)
	return err
}

// FinishStitch writes the ready terminal state with the artifact URL.
func (db *DB) FinishStitch(ctx context.Context, id uuid.UUID, videoURL string) error {
	query := `
		UPDATE projects
		SET stitch_status = $1, stitch_phase = NULL, stitch_progress = 100,
		    stitch_error = NULL, stitched_video_url = $2, updated_at = NOW()
		WHERE id = $3
	`
	_, err := db.ExecContext(ctx, query, models.StitchStatusReady, videoURL, id)
	return err
}

// FailStitch writes the failed terminal state with a human-readable message.
func (db *DB) FailStitch(ctx context.Context, id uuid.UUID, message string) error {
	query := `
		UPDATE projects
		SET stitch_status = $1, stitch_phase = NULL, stitch_error = $2, updated_at = NOW()
		WHERE id = $3
	`
	_, err := db.ExecContext(ctx, query, models.StitchStatusFailed, message, id)
	return err
}

// SetProjectAudio updates the narration and music references.
func (db *DB) SetProjectAudio(ctx context.Context, id uuid.UUID, audioRef, musicRef *string) error {
	query := `
		UPDATE projects
		SET audio_ref = $1, music_ref = $2, updated_at = NOW()
		WHERE id = $3
	`
	_, err := db.ExecContext(ctx, query, audioRef, musicRef, id)
	return err
}
