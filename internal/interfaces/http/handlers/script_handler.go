package handlers

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/scenedex/scenedex/internal/application/revision"
	"github.com/scenedex/scenedex/internal/domain/element"
	"github.com/scenedex/scenedex/internal/domain/script"
	"github.com/scenedex/scenedex/internal/infrastructure/monitoring/prometheus"
	"github.com/scenedex/scenedex/pkg/errors"
	"github.com/scenedex/scenedex/pkg/types/common"
)

// ScriptUploader stores raw script documents under a storage key.
type ScriptUploader interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
}

// ScriptHandler serves the script submission and reconciliation API.
type ScriptHandler struct {
	service  *revision.Service
	resolver *revision.Resolver
	uploads  ScriptUploader
	scripts  script.Repository
	elements element.Repository
	metrics  *prometheus.Metrics
	maxBody  int64
}

// NewScriptHandler creates the script API handler.  metrics may be nil.
func NewScriptHandler(
	service *revision.Service,
	resolver *revision.Resolver,
	uploads ScriptUploader,
	scripts script.Repository,
	elements element.Repository,
	metrics *prometheus.Metrics,
	maxBody int64,
) *ScriptHandler {
	return &ScriptHandler{
		service:  service,
		resolver: resolver,
		uploads:  uploads,
		scripts:  scripts,
		elements: elements,
		metrics:  metrics,
		maxBody:  maxBody,
	}
}

// RegisterRoutes registers the script API under the given group.
func (h *ScriptHandler) RegisterRoutes(g *gin.RouterGroup) {
	g.POST("/scripts", h.Upload)
	g.GET("/scripts", h.List)
	g.GET("/scripts/:id", h.Get)
	g.POST("/scripts/:id/revisions", h.UploadRevision)
	g.POST("/scripts/:id/review/complete", h.CompleteReview)
	g.GET("/scripts/:id/elements", h.Elements)
	g.GET("/scripts/:id/matches", h.Matches)
	g.POST("/scripts/:id/matches/resolve", h.Resolve)
}

// Upload handles POST /scripts: a first script upload.  The document is
// stored first, then the pipeline is enqueued; the response carries the
// PROCESSING script and its task handle.
func (h *ScriptHandler) Upload(c *gin.Context) {
	projectID := c.PostForm("project_id")
	if projectID == "" {
		respondError(c, errors.Validation("project_id is required"))
		return
	}
	uploadedBy := c.PostForm("uploaded_by")
	if uploadedBy == "" {
		respondError(c, errors.Validation("uploaded_by is required"))
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respondError(c, errors.New(errors.ErrCodeScriptUploadRejected, "script file is required"))
		return
	}

	title := c.PostForm("title")
	if title == "" {
		title = fileHeader.Filename
	}

	data, err := readUpload(fileHeader, h.maxBody)
	if err != nil {
		respondError(c, err)
		return
	}

	key := storageKey(projectID, fileHeader.Filename)
	if err := h.uploads.Put(c.Request.Context(), key, data, fileHeader.Header.Get("Content-Type")); err != nil {
		respondError(c, err)
		return
	}

	sub, err := h.service.SubmitScript(c.Request.Context(), revision.SubmitScriptInput{
		ProjectID:  common.ProjectID(projectID),
		Title:      title,
		StorageKey: key,
		UploadedBy: common.UserID(uploadedBy),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	if h.metrics != nil {
		h.metrics.TasksEnqueuedTotal.WithLabelValues(string(sub.Task.Kind)).Inc()
	}
	c.JSON(http.StatusAccepted, sub)
}

// UploadRevision handles POST /scripts/:id/revisions: a new version of an
// existing script.  The parent must be READY or REVIEWING.
func (h *ScriptHandler) UploadRevision(c *gin.Context) {
	parentID := common.ID(c.Param("id"))

	uploadedBy := c.PostForm("uploaded_by")
	if uploadedBy == "" {
		respondError(c, errors.Validation("uploaded_by is required"))
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respondError(c, errors.New(errors.ErrCodeScriptUploadRejected, "script file is required"))
		return
	}

	parent, err := h.service.Status(c.Request.Context(), parentID)
	if err != nil {
		respondError(c, err)
		return
	}

	data, err := readUpload(fileHeader, h.maxBody)
	if err != nil {
		respondError(c, err)
		return
	}

	key := storageKey(string(parent.ProjectID), fileHeader.Filename)
	if err := h.uploads.Put(c.Request.Context(), key, data, fileHeader.Header.Get("Content-Type")); err != nil {
		respondError(c, err)
		return
	}

	sub, err := h.service.SubmitRevision(c.Request.Context(), revision.SubmitRevisionInput{
		ParentID:   parentID,
		StorageKey: key,
		UploadedBy: common.UserID(uploadedBy),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	if h.metrics != nil {
		h.metrics.TasksEnqueuedTotal.WithLabelValues(string(sub.Task.Kind)).Inc()
	}
	c.JSON(http.StatusAccepted, sub)
}

// Get handles GET /scripts/:id: the script's current state, which is the
// pipeline's sole progress report.
func (h *ScriptHandler) Get(c *gin.Context) {
	s, err := h.service.Status(c.Request.Context(), common.ID(c.Param("id")))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// CompleteReview handles POST /scripts/:id/review/complete: the caller
// confirms a first ingest's detected element list and the script becomes
// READY, making it a valid revision parent.
func (h *ScriptHandler) CompleteReview(c *gin.Context) {
	s, err := h.service.CompleteReview(c.Request.Context(), common.ID(c.Param("id")))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// List handles GET /scripts?project_id=: a project's versions, newest first.
func (h *ScriptHandler) List(c *gin.Context) {
	projectID := c.Query("project_id")
	if projectID == "" {
		respondError(c, errors.Validation("project_id is required"))
		return
	}

	page := parsePagination(c)
	scripts, total, err := h.scripts.ListByProject(c.Request.Context(), common.ProjectID(projectID), page)
	if err != nil {
		respondError(c, err)
		return
	}

	page.Total = total
	c.JSON(http.StatusOK, gin.H{
		"items":      scripts,
		"pagination": page,
	})
}

// Elements handles GET /scripts/:id/elements: all elements of a version.
func (h *ScriptHandler) Elements(c *gin.Context) {
	scriptID := common.ID(c.Param("id"))

	// Reject unknown scripts rather than returning an empty list.
	if _, err := h.service.Status(c.Request.Context(), scriptID); err != nil {
		respondError(c, err)
		return
	}

	page := parsePagination(c)
	items, total, err := h.elements.ListByScript(c.Request.Context(), scriptID, page)
	if err != nil {
		respondError(c, err)
		return
	}

	page.Total = total
	c.JSON(http.StatusOK, gin.H{
		"items":      items,
		"pagination": page,
	})
}

// Matches handles GET /scripts/:id/matches: the pending decisions for a
// RECONCILING version.
func (h *ScriptHandler) Matches(c *gin.Context) {
	matches, err := h.service.PendingMatches(c.Request.Context(), common.ID(c.Param("id")))
	if err != nil {
		respondError(c, err)
		return
	}
	if h.metrics != nil {
		h.metrics.PendingMatches.Set(float64(len(matches)))
	}
	c.JSON(http.StatusOK, gin.H{"items": matches})
}

// ResolveRequest is the body of a decision batch.
type ResolveRequest struct {
	Decisions []revision.DecisionInput `json:"decisions"`
}

// Resolve handles POST /scripts/:id/matches/resolve: applies one decision
// batch all-or-nothing and returns the script's resulting state.
func (h *ScriptHandler) Resolve(c *gin.Context) {
	scriptID := common.ID(c.Param("id"))

	var req ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.Wrap(err, errors.ErrCodeBadRequest, "invalid request body"))
		return
	}

	if err := h.resolver.Resolve(c.Request.Context(), scriptID, req.Decisions); err != nil {
		respondError(c, err)
		return
	}

	if h.metrics != nil {
		for _, d := range req.Decisions {
			h.metrics.DecisionsTotal.WithLabelValues(string(d.Decision)).Inc()
		}
	}

	s, err := h.service.Status(c.Request.Context(), scriptID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// readUpload reads the multipart file, enforcing the configured size cap.
func readUpload(fh *multipart.FileHeader, maxBody int64) ([]byte, error) {
	if maxBody > 0 && fh.Size > maxBody {
		return nil, errors.New(errors.ErrCodeScriptUploadRejected, "script file exceeds the size limit")
	}

	f, err := fh.Open()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeScriptUploadRejected, "failed to open uploaded file")
	}
	defer f.Close() //nolint:errcheck

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeScriptUploadRejected, "failed to read uploaded file")
	}
	return data, nil
}

// storageKey builds the object key for an uploaded document.  The original
// extension is preserved so format sniffing can fall back on it.
func storageKey(projectID, filename string) string {
	return "scripts/" + projectID + "/" + uuid.NewString() + filepath.Ext(filename)
}
