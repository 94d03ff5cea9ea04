package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/reelforge/reelforge/internal/models"
)

func (db *DB) CreateBroll(ctx context.Context, b *models.BrollClip) error {
	query := `
		INSERT INTO broll_clips (
			id, project_id, source_ref, order_index, duration_seconds,
			offset_seconds, position, scale
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`

	return db.QueryRowContext(
		ctx, query,
		b.ID, b.ProjectID, b.SourceRef, b.OrderIndex, b.DurationSeconds,
		b.OffsetSeconds, b.Position, b.Scale,
	).Scan(&b.CreatedAt, &b.UpdatedAt)
}

func (db *DB) GetBroll(ctx context.Context, id uuid.UUID) (*models.BrollClip, error) {
	query := `
		SELECT
			id, project_id, source_ref, order_index, duration_seconds,
			offset_seconds, position, scale, created_at, updated_at
		FROM broll_clips
		WHERE id = $1
	`

	b := &models.BrollClip{}
	err := db.QueryRowContext(ctx, query, id).Scan(
		&b.ID, &b.ProjectID, &b.SourceRef, &b.OrderIndex, &b.DurationSeconds,
		&b.OffsetSeconds, &b.Position, &b.Scale, &b.CreatedAt, &b.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("broll clip not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get broll clip: %w", err)
	}

	return b, nil
}

// GetProjectBroll returns a project's b-roll clips in order_index order.
func (db *DB) GetProjectBroll(ctx context.Context, projectID uuid.UUID) ([]models.BrollClip, error) {
	query := `
		SELECT
			id, project_id, source_ref, order_index, duration_seconds,
			offset_seconds, position, scale, created_at, updated_at
		FROM broll_clips
		WHERE project_id = $1
		ORDER BY order_index
	`

	rows, err := db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query broll clips: %w", err)
	}
	defer rows.Close()

	var brolls []models.BrollClip
	for rows.Next() {
		var b models.BrollClip
		if err := rows.Scan(
			&b.ID, &b.ProjectID, &b.SourceRef, &b.OrderIndex, &b.DurationSeconds,
			&b.OffsetSeconds, &b.Position, &b.Scale, &b.CreatedAt, &b.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan broll clip: %w", err)
		}
		brolls = append(brolls, b)
	}

	return brolls, nil
}

func (db *DB) DeleteBroll(ctx context.Context, id uuid.UUID) error {
	_, err := db.ExecContext(ctx, `DELETE FROM broll_clips WHERE id = $1`, id)
	return err
}

// RenumberBroll rewrites a project's b-roll order indices as a dense
// zero-based sequence, mirroring RenumberClips.
func (db *DB) RenumberBroll(ctx context.Context, projectID uuid.UUID) error {
	query := `
		UPDATE broll_clips
		SET order_index = ranked.new_index, updated_at = NOW()
		FROM (
			SELECT id, ROW_NUMBER() OVER (ORDER BY order_index, created_at) - 1 AS new_index
			FROM broll_clips
			WHERE project_id = $1
		) AS ranked
		WHERE broll_clips.id = ranked.id AND broll_clips.order_index <> ranked.new_index
	`
	_, err := db.ExecContext(ctx, query, projectID)
	if err != nil {
		return fmt.Errorf("failed to renumber broll clips: %w", err)
	}
	return nil
}
