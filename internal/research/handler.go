// Package research is the HTTP surface of the pipeline: it accepts research
// requests, runs them in the background, and serves persisted reports.
package research

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/maclay/research-assistant/backend/internal/models"
	"github.com/maclay/research-assistant/backend/internal/pipeline"
	"github.com/maclay/research-assistant/backend/internal/session"
	"github.com/maclay/research-assistant/backend/internal/ws"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// ReportStore defines the interface for report persistence.
type ReportStore interface {
	SaveReport(ctx context.Context, r *models.Report) (*models.Report, error)
	GetReport(ctx context.Context, id int64) (*models.Report, error)
	ListReports(ctx context.Context, sessionID string) ([]models.Report, error)
	DeleteReport(ctx context.Context, id int64) error
}

// RunStore defines the interface for pipeline artifact persistence.
type RunStore interface {
	InsertRun(ctx context.Context, art *models.RunArtifacts) error
}

// FileStore defines the interface for report artifact storage.
type FileStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	Download(ctx context.Context, key string) ([]byte, string, error)
	Remove(ctx context.Context, key string) error
}

// ProcessorFactory builds a pipeline bound to one client's progress sink.
type ProcessorFactory func(sink pipeline.Sink) *pipeline.Processor

// Handler holds the research HTTP handlers.
type Handler struct {
	reports      ReportStore
	runs         RunStore
	files        FileStore
	registry     *ws.Registry
	newProcessor ProcessorFactory
	modelName    string
	logger       *zap.Logger
}

func NewHandler(reports ReportStore, runs RunStore, files FileStore, registry *ws.Registry, factory ProcessorFactory, modelName string, logger *zap.Logger) *Handler {
	return &Handler{
		reports:      reports,
		runs:         runs,
		files:        files,
		registry:     registry,
		newProcessor: factory,
		modelName:    modelName,
		logger:       logger,
	}
}

// CreateRequest is the JSON body for POST /api/research.
type CreateRequest struct {
	ClientID string `json:"client_id"`
	models.ResearchRequest
}

// Create launches the research pipeline in the background and immediately
// returns the client id whose progress channel will carry the updates.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}
	if req.Kind == "" {
		req.Kind = models.KindFeature
	}
	if req.Kind != models.KindFeature && req.Kind != models.KindProduct {
		http.Error(w, `{"error":"kind must be feature or product"}`, http.StatusBadRequest)
		return
	}
	clientID := req.ClientID
	if clientID == "" {
		clientID = uuid.New().String()
	}

	sid := session.FromContext(r.Context())

	// Reports can legitimately take minutes; the run outlives this request.
	go h.runResearch(context.Background(), clientID, sid, req.ResearchRequest)

	writeJSON(w, http.StatusAccepted, map[string]string{
		"client_id": clientID,
		"status":    "processing",
	})
}

// runResearch executes one pipeline run, persists its outcome, and pushes
// the terminal completion frame over the progress channel.
func (h *Handler) runResearch(ctx context.Context, clientID, sessionID string, req models.ResearchRequest) {
	start := time.Now()
	notifier := ws.NewNotifier(h.registry, clientID, h.logger)
	proc := h.newProcessor(notifier)

	result, art := proc.ProcessResearch(ctx, req)
	art.ClientID = clientID
	if err := h.runs.InsertRun(ctx, art); err != nil {
		h.logger.Warn("failed to store run artifacts", zap.String("client_id", clientID), zap.Error(err))
	}

	if !result.Success {
		notifier.Complete(models.Completion{
			Success: false,
			Error:   result.Error,
			Message: "Research failed",
		})
		return
	}

	report := h.buildReport(result.Report, sessionID, req, start)

	objectKey := fmt.Sprintf("%s/%s.md", sessionID, reportSlug(req))
	if err := h.files.Upload(ctx, objectKey, []byte(result.Report), "text/markdown"); err != nil {
		h.logger.Warn("report artifact upload failed", zap.String("key", objectKey), zap.Error(err))
		objectKey = ""
	}
	report.ObjectKey = objectKey

	saved, err := h.reports.SaveReport(ctx, report)
	if err != nil {
		h.logger.Error("failed to save report", zap.Error(err))
		notifier.Complete(models.Completion{
			Success: false,
			Error:   "failed to save report",
			Message: "Research finished but the report could not be saved",
		})
		return
	}

	h.logger.Info("research completed",
		zap.String("client_id", clientID),
		zap.Int64("report_id", saved.ID),
		zap.Duration("elapsed", time.Since(start)),
	)
	notifier.Complete(models.Completion{
		Success:  true,
		ReportID: saved.ID,
		Message:  "Research completed successfully",
	})
}

func (h *Handler) buildReport(content, sessionID string, req models.ResearchRequest, start time.Time) *models.Report {
	var title string
	if req.Kind == models.KindProduct {
		title = "Product research: " + truncateRunes(req.ProductCharacteristics, 50) + "..."
	} else {
		title = "Feature research: " + truncateRunes(req.ResearchElement, 50) + "..."
	}

	return &models.Report{
		Title:              title,
		Content:            content,
		Kind:               req.Kind,
		ProductDescription: req.ProductDescription,
		Segment:            req.Segment,
		ResearchElement:    req.Element(),
		Benchmarks:         req.Benchmarks,
		RequiredPlayers:    req.RequiredPlayers,
		RequiredCountries:  req.RequiredCountries,
		SessionID:          sessionID,
		AIModel:            h.modelName,
		ProcessingTime:     int(time.Since(start).Seconds()),
		// Rough estimate: the inference API reports no usage.
		TokensUsed: int(float64(len(strings.Fields(content))) * 1.3),
	}
}

// List returns all reports for the current session.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	sid := session.FromContext(r.Context())
	reports, err := h.reports.ListReports(r.Context(), sid)
	if err != nil {
		http.Error(w, `{"error":"database error"}`, http.StatusInternalServerError)
		return
	}
	if reports == nil {
		reports = []models.Report{}
	}
	writeJSON(w, http.StatusOK, reports)
}

// Get returns a single report.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	report, ok := h.sessionReport(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// Delete removes a report and its stored artifact.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	report, ok := h.sessionReport(w, r)
	if !ok {
		return
	}

	if report.ObjectKey != "" {
		if err := h.files.Remove(r.Context(), report.ObjectKey); err != nil {
			h.logger.Warn("artifact removal failed", zap.String("key", report.ObjectKey), zap.Error(err))
		}
	}
	if err := h.reports.DeleteReport(r.Context(), report.ID); err != nil {
		http.Error(w, `{"error":"delete failed"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}

// Download streams the markdown artifact from object storage.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	report, ok := h.sessionReport(w, r)
	if !ok {
		return
	}
	if report.ObjectKey == "" {
		http.Error(w, `{"error":"artifact not available"}`, http.StatusNotFound)
		return
	}

	data, ct, err := h.files.Download(r.Context(), report.ObjectKey)
	if err != nil {
		http.Error(w, `{"error":"download failed"}`, http.StatusInternalServerError)
		return
	}
	if ct == "" {
		ct = "text/markdown"
	}
	w.Header().Set("Content-Type", ct)
	w.Header().Set("Content-Disposition", "attachment; filename=report.md")
	w.Write(data)
}

// Status reports whether a progress channel is connected for a client.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "clientID")
	if h.registry.IsConnected(clientID) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "active", "message": "research in progress"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "inactive", "message": "no active channel"})
}

// sessionReport loads the report from the URL and enforces that it belongs
// to the caller's session.
func (h *Handler) sessionReport(w http.ResponseWriter, r *http.Request) (*models.Report, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, `{"error":"invalid id"}`, http.StatusBadRequest)
		return nil, false
	}
	report, err := h.reports.GetReport(r.Context(), id)
	if err != nil {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return nil, false
	}
	if report.SessionID != session.FromContext(r.Context()) {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return nil, false
	}
	return report, true
}

// reportSlug derives the artifact object name from the research subject.
func reportSlug(req models.ResearchRequest) string {
	slug := truncateRunes(req.Element(), 20)
	slug = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '-'
		}
	}, slug)
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "report"
	}
	return slug + "-" + uuid.New().String()[:8]
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
