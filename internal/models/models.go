package models

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Enums

// StitchStatus is the lifecycle of a project's assembly job. Transitions are
// monotonic within a run: idle → stitching → {ready | failed}. A new run may
// only start from idle, ready, or failed.
type StitchStatus string

const (
	StitchStatusIdle      StitchStatus = "idle"
	StitchStatusStitching StitchStatus = "stitching"
	StitchStatusReady     StitchStatus = "ready"
	StitchStatusFailed    StitchStatus = "failed"
)

// VideoFormat selects the output profile: short-form vertical social video or
// long-form landscape. It drives caption chunk size and scene planning density.
type VideoFormat string

const (
	FormatShort VideoFormat = "short"
	FormatLong  VideoFormat = "long"
)

// OverlayPosition anchors a b-roll overlay on the main frame.
type OverlayPosition string

const (
	PositionTopLeft     OverlayPosition = "top-left"
	PositionTopRight    OverlayPosition = "top-right"
	PositionBottomLeft  OverlayPosition = "bottom-left"
	PositionBottomRight OverlayPosition = "bottom-right"
	PositionCenter      OverlayPosition = "center"
)

// SceneKind distinguishes how a planned scene's visual is produced.
type SceneKind string

const (
	SceneGeneratedClip  SceneKind = "generated-clip"
	SceneGeneratedImage SceneKind = "generated-image"
)

// DefaultBrollScale is the overlay width as a fraction of the main frame width.
const DefaultBrollScale = 0.35

// Models

type Project struct {
	ID     uuid.UUID   `json:"id"`
	UserID *uuid.UUID  `json:"user_id,omitempty"`
	Title  string      `json:"title"`
	Format VideoFormat `json:"format"`
	// Script, when set, routes the project through the script-to-video path:
	// scenes are planned and synthetic clips generated instead of using uploads.
	Script       *string `json:"script,omitempty"`
	AudioRef     *string `json:"audio_ref,omitempty"` // narration track (storage path or URL)
	MusicRef     *string `json:"music_ref,omitempty"` // background music, mixed under narration
	ThumbnailRef *string `json:"thumbnail_ref,omitempty"`
	BurnCaptions bool    `json:"burn_captions"`

	// Stitch job projection — written only by the orchestrator during a run.
	StitchStatus     StitchStatus `json:"stitch_status"`
	StitchPhase      *string      `json:"stitch_phase,omitempty"`
	StitchProgress   int          `json:"stitch_progress"`
	StitchError      *string      `json:"stitch_error,omitempty"`
	StitchedVideoURL *string      `json:"stitched_video_url,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clip is one uploaded video fragment in the project's main sequence.
type Clip struct {
	ID               uuid.UUID `json:"id"`
	ProjectID        uuid.UUID `json:"project_id"`
	SourceRef        string    `json:"source_ref"`
	OrderIndex       int       `json:"order_index"`
	DurationSeconds  *float64  `json:"duration_seconds,omitempty"`
	TrimStartSeconds *float64  `json:"trim_start_seconds,omitempty"`
	TrimEndSeconds   *float64  `json:"trim_end_seconds,omitempty"`
	Muted            bool      `json:"muted"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// BrollClip is a secondary clip composited picture-in-picture on the main
// sequence. OffsetSeconds and the effective end (offset + duration) are
// positions on the main timeline, not the overlay clip's own zero.
type BrollClip struct {
	ID              uuid.UUID       `json:"id"`
	ProjectID       uuid.UUID       `json:"project_id"`
	SourceRef       string          `json:"source_ref"`
	OrderIndex      int             `json:"order_index"`
	DurationSeconds *float64        `json:"duration_seconds,omitempty"`
	OffsetSeconds   float64         `json:"offset_seconds"`
	Position        OverlayPosition `json:"position"`
	Scale           float64         `json:"scale"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Scene is one planned unit of the script-to-video path. Scenes are produced
// in narration order and consumed in Index order by assembly, regardless of
// which generator finished first.
type Scene struct {
	Index            int       `json:"index"`
	Kind             SceneKind `json:"kind"`
	DurationSeconds  float64   `json:"duration_seconds"`
	NarrationSegment string    `json:"narration_segment"`
	VisualPrompt     string    `json:"visual_prompt"`
	IsHero           bool      `json:"is_hero"`
}

// Validation / normalization — applied at every mutation boundary so
// caller-supplied indices and fields are never trusted.

// RenumberClips sorts clips by their current order index (ties broken by
// creation time) and rewrites OrderIndex as a dense zero-based sequence.
func RenumberClips(clips []Clip) {
	sort.SliceStable(clips, func(i, j int) bool {
		if clips[i].OrderIndex != clips[j].OrderIndex {
			return clips[i].OrderIndex < clips[j].OrderIndex
		}
		return clips[i].CreatedAt.Before(clips[j].CreatedAt)
	})
	for i := range clips {
		clips[i].OrderIndex = i
	}
}

// RenumberBroll rewrites b-roll order indices as a dense zero-based sequence.
func RenumberBroll(brolls []BrollClip) {
	sort.SliceStable(brolls, func(i, j int) bool {
		if brolls[i].OrderIndex != brolls[j].OrderIndex {
			return brolls[i].OrderIndex < brolls[j].OrderIndex
		}
		return brolls[i].CreatedAt.Before(brolls[j].CreatedAt)
	})
	for i := range brolls {
		brolls[i].OrderIndex = i
	}
}

// ValidateClip checks trim bounds. A trim end at or before the trim start is
// rejected rather than silently ignored.
func ValidateClip(c *Clip) error {
	if c.SourceRef == "" {
		return fmt.Errorf("clip source_ref is required")
	}
	if c.TrimStartSeconds != nil && *c.TrimStartSeconds < 0 {
		return fmt.Errorf("trim_start_seconds must be >= 0")
	}
	if c.TrimEndSeconds != nil {
		start := 0.0
		if c.TrimStartSeconds != nil {
			start = *c.TrimStartSeconds
		}
		if *c.TrimEndSeconds <= start {
			return fmt.Errorf("trim_end_seconds (%.2f) must be greater than trim_start_seconds (%.2f)", *c.TrimEndSeconds, start)
		}
	}
	return nil
}

// NormalizeBroll applies defaults and validates position and scale.
func NormalizeBroll(b *BrollClip) error {
	if b.SourceRef == "" {
		return fmt.Errorf("broll source_ref is required")
	}
	if b.Position == "" {
		b.Position = PositionBottomRight
	}
	switch b.Position {
	case PositionTopLeft, PositionTopRight, PositionBottomLeft, PositionBottomRight, PositionCenter:
	default:
		return fmt.Errorf("invalid broll position %q", b.Position)
	}
	if b.Scale == 0 {
		b.Scale = DefaultBrollScale
	}
	if b.Scale <= 0 || b.Scale > 1 {
		return fmt.Errorf("broll scale must be in (0,1], got %.2f", b.Scale)
	}
	if b.OffsetSeconds < 0 {
		return fmt.Errorf("broll offset_seconds must be >= 0")
	}
	if b.DurationSeconds != nil && *b.DurationSeconds <= 0 {
		return fmt.Errorf("broll duration_seconds must be > 0 when set")
	}
	return nil
}

// ApplyClipPatch copies the set fields of an update request onto a clip.
// Omitted fields keep their current values — a request that never mentions
// muted must not unmute a muted clip.
func ApplyClipPatch(c *Clip, req AddClipRequest) {
	if req.SourceRef != "" {
		c.SourceRef = req.SourceRef
	}
	if req.OrderIndex != nil {
		c.OrderIndex = *req.OrderIndex
	}
	if req.DurationSeconds != nil {
		c.DurationSeconds = req.DurationSeconds
	}
	if req.TrimStartSeconds != nil {
		c.TrimStartSeconds = req.TrimStartSeconds
	}
	if req.TrimEndSeconds != nil {
		c.TrimEndSeconds = req.TrimEndSeconds
	}
	if req.Muted != nil {
		c.Muted = *req.Muted
	}
}

// CanStartStitch reports whether a new run may begin from the given status.
// Restart from ready or failed is always allowed; a live run is never preempted.
func CanStartStitch(s StitchStatus) bool {
	switch s {
	case StitchStatusIdle, StitchStatusReady, StitchStatusFailed, "":
		return true
	default:
		return false
	}
}

// DTOs for API requests and responses

type CreateProjectRequest struct {
	Title        string       `json:"title"`
	Format       *VideoFormat `json:"format,omitempty"` // default: "short"
	Script       *string      `json:"script,omitempty"`
	AudioRef     *string      `json:"audio_ref,omitempty"`
	MusicRef     *string      `json:"music_ref,omitempty"`
	ThumbnailRef *string      `json:"thumbnail_ref,omitempty"`
	BurnCaptions *bool        `json:"burn_captions,omitempty"`
}

type AddClipRequest struct {
	SourceRef        string   `json:"source_ref"`
	OrderIndex       *int     `json:"order_index,omitempty"` // default: append at end
	DurationSeconds  *float64 `json:"duration_seconds,omitempty"`
	TrimStartSeconds *float64 `json:"trim_start_seconds,omitempty"`
	TrimEndSeconds   *float64 `json:"trim_end_seconds,omitempty"`
	Muted            *bool    `json:"muted,omitempty"`
}

type AddBrollRequest struct {
	SourceRef       string           `json:"source_ref"`
	OrderIndex      *int             `json:"order_index,omitempty"`
	DurationSeconds *float64         `json:"duration_seconds,omitempty"`
	OffsetSeconds   float64          `json:"offset_seconds"`
	Position        *OverlayPosition `json:"position,omitempty"`
	Scale           *float64         `json:"scale,omitempty"`
}

type SetAudioRequest struct {
	AudioRef *string `json:"audio_ref"`
	MusicRef *string `json:"music_ref,omitempty"`
}

type ProjectResponse struct {
	Project
	Clips []Clip      `json:"clips"`
	Broll []BrollClip `json:"broll"`
}

type ProjectSummary struct {
	ID               uuid.UUID    `json:"id"`
	Title            string       `json:"title"`
	Format           VideoFormat  `json:"format"`
	StitchStatus     StitchStatus `json:"stitch_status"`
	StitchProgress   int          `json:"stitch_progress"`
	StitchError      *string      `json:"stitch_error,omitempty"`
	StitchedVideoURL *string      `json:"stitched_video_url,omitempty"`
	ClipCount        int          `json:"clip_count"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

type ListProjectsResponse struct {
	Projects []ProjectSummary `json:"projects"`
	Total    int              `json:"total"`
	Limit    int              `json:"limit"`
	Offset   int              `json:"offset"`
}

type StartStitchResponse struct {
	Message      string       `json:"message"`
	StitchStatus StitchStatus `json:"stitch_status"`
	ProjectID    uuid.UUID    `json:"project_id"`
}
