package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/pretzelai/openlingo/internal/config"
	"github.com/pretzelai/openlingo/internal/jobs"
	"github.com/pretzelai/openlingo/pkg/icron"
)

type createArticleRequest struct {
	URL            string `json:"url"`
	TargetLanguage string `json:"target_language,omitempty"`
	CEFRLevel      string `json:"cefr_level,omitempty"`
}

type createArticleResponse struct {
	Job     *jobs.TranslationJob `json:"job"`
	Created bool                 `json:"created"`
}

// submitGroup collapses concurrent identical submissions so two clicks on
// the same article yield one job.
var submitGroup singleflight.Group

func (s *Server) handleArticles(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListArticles(w, r)
	case http.MethodPost:
		s.handleCreateArticle(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleListArticles(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.ListJobs(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleCreateArticle(w http.ResponseWriter, r *http.Request) {
	var req createArticleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	sourceURL := strings.TrimSpace(req.URL)
	if !validArticleURL(sourceURL) {
		writeError(w, http.StatusBadRequest, "url must be a valid http(s) URL")
		return
	}

	defaultLanguage := s.defaults.TargetLanguage
	defaultLevel := s.defaults.CEFRLevel
	if s.settings != nil {
		if current, err := s.settings.GetRuntimeSettings(); err == nil {
			defaultLanguage = current.TargetLanguage
			defaultLevel = current.CEFRLevel
		}
	}

	targetLanguage := strings.TrimSpace(req.TargetLanguage)
	if targetLanguage == "" {
		targetLanguage = defaultLanguage
	}
	level := strings.ToUpper(strings.TrimSpace(req.CEFRLevel))
	if level == "" {
		level = defaultLevel
	}
	if !config.ValidCEFRLevel(level) {
		writeError(w, http.StatusBadRequest, "invalid cefr_level")
		return
	}

	now := time.Now()
	job := &jobs.TranslationJob{
		ID:             uuid.NewString(),
		SourceURL:      sourceURL,
		TargetLanguage: targetLanguage,
		CEFRLevel:      level,
		Status:         jobs.StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	type submitResult struct {
		jobID   string
		created bool
	}
	v, err, _ := submitGroup.Do(job.DedupeKey(), func() (any, error) {
		if activeID, ok := s.queue.ActiveJobID(job.DedupeKey()); ok {
			return submitResult{jobID: activeID, created: false}, nil
		}
		if err := s.store.CreateJob(r.Context(), job); err != nil {
			return nil, err
		}
		id, created := s.queue.Enqueue(job)
		return submitResult{jobID: id, created: created}, nil
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	result := v.(submitResult)
	stored, err := s.store.GetJob(r.Context(), result.jobID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	status := http.StatusOK
	if result.created {
		status = http.StatusCreated
	}
	writeJSON(w, status, createArticleResponse{Job: stored, Created: result.created})
}

// handleArticleRoutes dispatches /api/articles/{id} and
// /api/articles/{id}/retry.
func (s *Server) handleArticleRoutes(w http.ResponseWriter, r *http.Request) {
	jobID, action, ok := parseArticleRoute(r.URL.Path)
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	switch action {
	case "":
		s.handleGetArticle(w, r, jobID)
	case "retry":
		s.handleRetryArticle(w, r, jobID)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func parseArticleRoute(path string) (jobID string, action string, ok bool) {
	trimmed := strings.Trim(strings.TrimPrefix(path, "/api/articles/"), "/")
	if trimmed == "" {
		return "", "", false
	}
	parts := strings.Split(trimmed, "/")
	if len(parts) > 2 {
		return "", "", false
	}
	rawID, err := url.PathUnescape(parts[0])
	if err != nil || strings.TrimSpace(rawID) == "" {
		return "", "", false
	}
	if len(parts) == 1 {
		return rawID, "", true
	}
	return rawID, parts[1], true
}

// handleGetArticle is the polling surface: the UI reads status, progress and
// the checkpointed blocks from this one record.
func (s *Server) handleGetArticle(w http.ResponseWriter, r *http.Request, jobID string) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	job, err := s.store.GetJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, jobs.ErrNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// handleRetryArticle restarts a failed job from scratch. Retry is an
// explicit action; nothing retries terminal jobs automatically.
func (s *Server) handleRetryArticle(w http.ResponseWriter, r *http.Request, jobID string) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	job, err := s.store.GetJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, jobs.ErrNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if job.Status != jobs.StatusFailed {
		writeError(w, http.StatusConflict, "only failed jobs can be retried")
		return
	}

	if err := s.store.ResetJobForRetry(r.Context(), jobID); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	job.Status = jobs.StatusPending
	if _, created := s.queue.Enqueue(job); !created {
		writeError(w, http.StatusConflict, "an equivalent job is already running")
		return
	}

	stored, err := s.store.GetJob(r.Context(), jobID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stored)
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	if s.settings == nil {
		writeError(w, http.StatusNotFound, "settings not available")
		return
	}

	switch r.Method {
	case http.MethodGet:
		current, err := s.settings.GetRuntimeSettings()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, settingsResponse(current))
	case http.MethodPut:
		var next config.RuntimeSettings
		if err := json.NewDecoder(r.Body).Decode(&next); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json body")
			return
		}
		updated, err := s.settings.UpdateRuntimeSettings(next)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if s.apply != nil {
			if err := s.apply(updated); err != nil {
				writeError(w, http.StatusInternalServerError, err.Error())
				return
			}
		}
		writeJSON(w, http.StatusOK, settingsResponse(updated))
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

type settingsPayload struct {
	config.RuntimeSettings
	CleanupNext string `json:"cleanup_next,omitempty"`
	CleanupLast string `json:"cleanup_last,omitempty"`
}

func settingsResponse(settings config.RuntimeSettings) settingsPayload {
	payload := settingsPayload{RuntimeSettings: settings}
	if info, err := icron.GetTriggerInfo(settings.CleanupCron, time.Now()); err == nil {
		payload.CleanupNext = info.Next.Format(time.RFC3339)
		if !info.Last.IsZero() {
			payload.CleanupLast = info.Last.Format(time.RFC3339)
		}
	}
	return payload
}

func validArticleURL(raw string) bool {
	if raw == "" {
		return false
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != ""
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
