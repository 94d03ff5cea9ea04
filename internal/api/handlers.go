package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/reelforge/reelforge/internal/db"
	"github.com/reelforge/reelforge/internal/models"
	"github.com/reelforge/reelforge/internal/queue"
	"github.com/reelforge/reelforge/internal/storage"
)

type Handler struct {
	db      *db.DB
	queue   *queue.Queue
	storage *storage.Storage
}

func NewHandler(database *db.DB, q *queue.Queue, stor *storage.Storage) *Handler {
	return &Handler{
		db:      database,
		queue:   q,
		storage: stor,
	}
}

// CreateProject handles POST /v1/projects
func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req models.CreateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Title == "" {
		respondError(w, http.StatusBadRequest, "Title is required")
		return
	}

	format := models.FormatShort
	if req.Format != nil {
		switch *req.Format {
		case models.FormatShort, models.FormatLong:
			format = *req.Format
		default:
			respondError(w, http.StatusBadRequest, "Invalid format. Allowed: short, long")
			return
		}
	}

	burnCaptions := false
	if req.BurnCaptions != nil {
		burnCaptions = *req.BurnCaptions
	}

	project := &models.Project{
		ID:           uuid.New(),
		Title:        req.Title,
		Format:       format,
		Script:       req.Script,
		AudioRef:     req.AudioRef,
		MusicRef:     req.MusicRef,
		ThumbnailRef: req.ThumbnailRef,
		BurnCaptions: burnCaptions,
		StitchStatus: models.StitchStatusIdle,
	}

	if err := h.db.CreateProject(r.Context(), project); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to create project")
		return
	}

	respondJSON(w, http.StatusCreated, project)
}

// ListProjects handles GET /v1/projects
// Query params:
//   - status: filter by stitch status (idle, stitching, ready, failed)
//   - limit:  max results per page (default 20, max 100)
//   - offset: number of results to skip (default 0)
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	statusFilter := r.URL.Query().Get("status")
	if statusFilter != "" {
		switch models.StitchStatus(statusFilter) {
		case models.StitchStatusIdle, models.StitchStatusStitching,
			models.StitchStatusReady, models.StitchStatusFailed:
			// valid
		default:
			respondError(w, http.StatusBadRequest, "Invalid status filter. Allowed: idle, stitching, ready, failed")
			return
		}
	}

	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > 100 {
		limit = 100
	}

	offset := 0
	if o := r.URL.Query().Get("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	total, err := h.db.CountProjects(r.Context(), statusFilter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to count projects")
		return
	}

	projects, err := h.db.ListProjects(r.Context(), statusFilter, limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to list projects")
		return
	}

	// Build lightweight summaries — no clips array, just status + final video URL
	summaries := make([]models.ProjectSummary, 0, len(projects))
	for _, project := range projects {
		summary := models.ProjectSummary{
			ID:               project.ID,
			Title:            project.Title,
			Format:           project.Format,
			StitchStatus:     project.StitchStatus,
			StitchProgress:   project.StitchProgress,
			StitchError:      project.StitchError,
			StitchedVideoURL: project.StitchedVideoURL,
			CreatedAt:        project.CreatedAt,
			UpdatedAt:        project.UpdatedAt,
		}

		if count, err := h.db.GetProjectClipCount(r.Context(), project.ID); err == nil {
			summary.ClipCount = count
		}

		summaries = append(summaries, summary)
	}

	respondJSON(w, http.StatusOK, models.ListProjectsResponse{
		Projects: summaries,
		Total:    total,
		Limit:    limit,
		Offset:   offset,
	})
}

// GetProject handles GET /v1/projects/{id}
func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	projectID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid project ID")
		return
	}

	project, err := h.db.GetProject(r.Context(), projectID)
	if err != nil {
		respondError(w, http.StatusNotFound, "Project not found")
		return
	}

	clips, err := h.db.GetProjectClips(r.Context(), projectID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to get clips")
		return
	}

	broll, err := h.db.GetProjectBroll(r.Context(), projectID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to get broll")
		return
	}

	respondJSON(w, http.StatusOK, models.ProjectResponse{
		Project: *project,
		Clips:   clips,
		Broll:   broll,
	})
}

// SetProjectAudio handles PUT /v1/projects/{id}/audio
func (h *Handler) SetProjectAudio(w http.ResponseWriter, r *http.Request) {
	project, ok := h.loadMutableProject(w, r)
	if !ok {
		return
	}

	var req models.SetAudioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.db.SetProjectAudio(r.Context(), project.ID, req.AudioRef, req.MusicRef); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to update audio")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Audio updated"})
}

// AddClip handles POST /v1/projects/{id}/clips
func (h *Handler) AddClip(w http.ResponseWriter, r *http.Request) {
	project, ok := h.loadMutableProject(w, r)
	if !ok {
		return
	}

	var req models.AddClipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	// Default: append at the end of the sequence
	orderIndex := 1 << 30
	if req.OrderIndex != nil {
		orderIndex = *req.OrderIndex
	}

	muted := false
	if req.Muted != nil {
		muted = *req.Muted
	}

	clip := &models.Clip{
		ID:               uuid.New(),
		ProjectID:        project.ID,
		SourceRef:        req.SourceRef,
		OrderIndex:       orderIndex,
		DurationSeconds:  req.DurationSeconds,
		TrimStartSeconds: req.TrimStartSeconds,
		TrimEndSeconds:   req.TrimEndSeconds,
		Muted:            muted,
	}

	if err := models.ValidateClip(clip); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.db.CreateClip(r.Context(), clip); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to create clip")
		return
	}

	// Collapse indices back to a dense zero-based sequence
	if err := h.db.RenumberClips(r.Context(), project.ID); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to renumber clips")
		return
	}

	created, err := h.db.GetClip(r.Context(), clip.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to load clip")
		return
	}

	respondJSON(w, http.StatusCreated, created)
}

// UpdateClip handles PUT /v1/projects/{id}/clips/{clipId}
func (h *Handler) UpdateClip(w http.ResponseWriter, r *http.Request) {
	project, ok := h.loadMutableProject(w, r)
	if !ok {
		return
	}

	clipID, err := uuid.Parse(chi.URLParam(r, "clipId"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid clip ID")
		return
	}

	clip, err := h.db.GetClip(r.Context(), clipID)
	if err != nil || clip.ProjectID != project.ID {
		respondError(w, http.StatusNotFound, "Clip not found")
		return
	}

	var req models.AddClipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	models.ApplyClipPatch(clip, req)

	if err := models.ValidateClip(clip); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.db.UpdateClip(r.Context(), clip); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to update clip")
		return
	}

	if err := h.db.RenumberClips(r.Context(), project.ID); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to renumber clips")
		return
	}

	updated, err := h.db.GetClip(r.Context(), clipID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to load clip")
		return
	}

	respondJSON(w, http.StatusOK, updated)
}

// DeleteClip handles DELETE /v1/projects/{id}/clips/{clipId}
func (h *Handler) DeleteClip(w http.ResponseWriter, r *http.Request) {
	project, ok := h.loadMutableProject(w, r)
	if !ok {
		return
	}

	clipID, err := uuid.Parse(chi.URLParam(r, "clipId"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid clip ID")
		return
	}

	clip, err := h.db.GetClip(r.Context(), clipID)
	if err != nil || clip.ProjectID != project.ID {
		respondError(w, http.StatusNotFound, "Clip not found")
		return
	}

	if err := h.db.DeleteClip(r.Context(), clipID); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to delete clip")
		return
	}

	if err := h.db.RenumberClips(r.Context(), project.ID); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to renumber clips")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Clip deleted"})
}

// AddBroll handles POST /v1/projects/{id}/broll
func (h *Handler) AddBroll(w http.ResponseWriter, r *http.Request) {
	project, ok := h.loadMutableProject(w, r)
	if !ok {
		return
	}

	var req models.AddBrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	orderIndex := 1 << 30
	if req.OrderIndex != nil {
		orderIndex = *req.OrderIndex
	}

	broll := &models.BrollClip{
		ID:              uuid.New(),
		ProjectID:       project.ID,
		SourceRef:       req.SourceRef,
		OrderIndex:      orderIndex,
		DurationSeconds: req.DurationSeconds,
		OffsetSeconds:   req.OffsetSeconds,
	}
	if req.Position != nil {
		broll.Position = *req.Position
	}
	if req.Scale != nil {
		broll.Scale = *req.Scale
	}

	if err := models.NormalizeBroll(broll); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.db.CreateBroll(r.Context(), broll); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to create broll")
		return
	}

	if err := h.db.RenumberBroll(r.Context(), project.ID); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to renumber broll")
		return
	}

	created, err := h.db.GetBroll(r.Context(), broll.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to load broll")
		return
	}

	respondJSON(w, http.StatusCreated, created)
}

// DeleteBroll handles DELETE /v1/projects/{id}/broll/{brollId}
func (h *Handler) DeleteBroll(w http.ResponseWriter, r *http.Request) {
	project, ok := h.loadMutableProject(w, r)
	if !ok {
		return
	}

	brollID, err := uuid.Parse(chi.URLParam(r, "brollId"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid broll ID")
		return
	}

	broll, err := h.db.GetBroll(r.Context(), brollID)
	if err != nil || broll.ProjectID != project.ID {
		respondError(w, http.StatusNotFound, "Broll not found")
		return
	}

	if err := h.db.DeleteBroll(r.Context(), brollID); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to delete broll")
		return
	}

	if err := h.db.RenumberBroll(r.Context(), project.ID); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to renumber broll")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Broll deleted"})
}

// StartStitch handles POST /v1/projects/{id}/stitch
//
// Acceptance is a single conditional status transition, so two overlapping
// starts can never both enqueue a run. A rejected start reports the live run
// without disturbing it.
func (h *Handler) StartStitch(w http.ResponseWriter, r *http.Request) {
	projectID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid project ID")
		return
	}

	project, err := h.db.GetProject(r.Context(), projectID)
	if err != nil {
		respondError(w, http.StatusNotFound, "Project not found")
		return
	}

	hasScript := project.Script != nil && *project.Script != ""
	clipCount, err := h.db.GetProjectClipCount(r.Context(), projectID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to count clips")
		return
	}
	if clipCount == 0 && !hasScript {
		respondError(w, http.StatusBadRequest, "Project has no clips and no script")
		return
	}

	// Fast-path rejection; the conditional transition below stays authoritative
	// against a concurrent start that slips past this read.
	if !models.CanStartStitch(project.StitchStatus) {
		respondJSON(w, http.StatusConflict, models.StartStitchResponse{
			Message:      "Stitch already in progress",
			StitchStatus: models.StitchStatusStitching,
			ProjectID:    projectID,
		})
		return
	}

	accepted, err := h.db.TryBeginStitch(r.Context(), projectID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to start stitch")
		return
	}
	if !accepted {
		respondJSON(w, http.StatusConflict, models.StartStitchResponse{
			Message:      "Stitch already in progress",
			StitchStatus: models.StitchStatusStitching,
			ProjectID:    projectID,
		})
		return
	}

	if err := h.queue.EnqueueStitch(r.Context(), projectID); err != nil {
		// Roll the acceptance back so the project is not stuck in stitching
		_ = h.db.FailStitch(r.Context(), projectID, "failed to enqueue stitch job")
		respondError(w, http.StatusInternalServerError, "Failed to enqueue stitch job")
		return
	}

	respondJSON(w, http.StatusAccepted, models.StartStitchResponse{
		Message:      "Stitch started",
		StitchStatus: models.StitchStatusStitching,
		ProjectID:    projectID,
	})
}

// loadMutableProject loads the project from the URL and rejects mutations
// while a stitch run is live. The worker reads the clip list once at run
// start; edits mid-run would silently race it.
func (h *Handler) loadMutableProject(w http.ResponseWriter, r *http.Request) (*models.Project, bool) {
	projectID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid project ID")
		return nil, false
	}

	project, err := h.db.GetProject(r.Context(), projectID)
	if err != nil {
		respondError(w, http.StatusNotFound, "Project not found")
		return nil, false
	}

	if project.StitchStatus == models.StitchStatusStitching {
		respondError(w, http.StatusConflict, "Project is stitching; edits are rejected until the run finishes")
		return nil, false
	}

	return project, true
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// Health check
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
