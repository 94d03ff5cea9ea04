package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/reelforge/reelforge/internal/models"
)

func (db *DB) CreateClip(ctx context.Context, clip *models.Clip) error {
	query := `
		INSERT INTO clips (
			id, project_id, source_ref, order_index, duration_seconds,
			trim_start_seconds, trim_end_seconds, muted
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`

	return db.QueryRowContext(
		ctx, query,
		clip.ID, clip.ProjectID, clip.SourceRef, clip.OrderIndex,
		clip.DurationSeconds, clip.TrimStartSeconds, clip.TrimEndSeconds,
		clip.Muted,
	).Scan(&clip.CreatedAt, &clip.UpdatedAt)
}

func (db *DB) GetClip(ctx context.Context, id uuid.UUID) (*models.Clip, error) {
	query := `
		SELECT
			id, project_id, source_ref, order_index, duration_seconds,
			trim_start_seconds, trim_end_seconds, muted, created_at, updated_at
		FROM clips
		WHERE id = $1
	`

	clip := &models.Clip{}
	err := db.QueryRowContext(ctx, query, id).Scan(
		&clip.ID, &clip.ProjectID, &clip.SourceRef, &clip.OrderIndex,
		&clip.DurationSeconds, &clip.TrimStartSeconds, &clip.TrimEndSeconds,
		&clip.Muted, &clip.CreatedAt, &clip.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("clip not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get clip: %w", err)
	}

	return clip, nil
}

// GetProjectClips returns a project's clips in order_index order.
func (db *DB) GetProjectClips(ctx context.Context, projectID uuid.UUID) ([]models.Clip, error) {
	query := `
		SELECT
			id, project_id, source_ref, order_index, duration_seconds,
			trim_start_seconds, trim_end_seconds, muted, created_at, updated_at
		FROM clips
		WHERE project_id = $1
		ORDER BY order_index
	`

	rows, err := db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query clips: %w", err)
	}
	defer rows.Close()

	var clips []models.Clip
	for rows.Next() {
		var c models.Clip
		if err := rows.Scan(
			&c.ID, &c.ProjectID, &c.SourceRef, &c.OrderIndex,
			&c.DurationSeconds, &c.TrimStartSeconds, &c.TrimEndSeconds,
			&c.Muted, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan clip: %w", err)
		}
		clips = append(clips, c)
	}

	return clips, nil
}

func (db *DB) GetProjectClipCount(ctx context.Context, projectID uuid.UUID) (int, error) {
	var count int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM clips WHERE project_id = $1`, projectID).Scan(&count)
	return count, err
}

func (db *DB) UpdateClip(ctx context.Context, clip *models.Clip) error {
	query := `
		UPDATE clips
		SET source_ref = $1, order_index = $2, duration_seconds = $3,
		    trim_start_seconds = $4, trim_end_seconds = $5, muted = $6,
		    updated_at = NOW()
		WHERE id = $7
	`
	_, err := db.ExecContext(ctx, query,
		clip.SourceRef, clip.OrderIndex, clip.DurationSeconds,
		clip.TrimStartSeconds, clip.TrimEndSeconds, clip.Muted, clip.ID,
	)
	return err
}

func (db *DB) DeleteClip(ctx context.Context, id uuid.UUID) error {
	_, err := db.ExecContext(ctx, `DELETE FROM clips WHERE id = $1`, id)
	return err
}

// RenumberClips rewrites a project's clip order indices as a dense zero-based
// sequence. Run after every insert, reorder, or delete so downstream assembly
// can trust that order_index never has gaps.
func (db *DB) RenumberClips(ctx context.Context, projectID uuid.UUID) error {
	query := `
		UPDATE clips
		SET order_index = ranked.new_index, updated_at = NOW()
		FROM (
			SELECT id, ROW_NUMBER() OVER (ORDER BY order_index, created_at) - 1 AS new_index
			FROM clips
			WHERE project_id = $1
		) AS ranked
		WHERE clips.id = ranked.id AND clips.order_index <> ranked.new_index
	`
	_, err := db.ExecContext(ctx, query, projectID)
	if err != nil {
		return fmt.Errorf("failed to renumber clips: %w", err)
	}
	return nil
}
