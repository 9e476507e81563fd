package query

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"

	"llm-gateway/internal/auth"
	"llm-gateway/internal/quota"
)

const (
	maxJSONBodyBytes = 1 << 20
	maxPromptLength  = 2000
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type askRequest struct {
	Query string `json:"query"`
}

type quotaExceededResponse struct {
	Error     string     `json:"error"`
	Remaining int        `json:"remaining"`
	ResetAt   *time.Time `json:"reset_at"`
}

func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	subject, ok := auth.SubjectFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing authenticated subject")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)

	var body askRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	body.Query = strings.TrimSpace(body.Query)
	if body.Query == "" || len(body.Query) > maxPromptLength {
		writeError(w, http.StatusBadRequest, "query must be between 1 and 2000 characters")
		return
	}

	answer, err := h.service.Ask(r.Context(), subject, body.Query)
	if err != nil {
		var exceeded ErrQuotaExceeded
		if errors.As(err, &exceeded) {
			if exceeded.ResetAt != nil {
				retryAfter := int(time.Until(*exceeded.ResetAt).Seconds())
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			}
			writeJSON(w, http.StatusTooManyRequests, quotaExceededResponse{
				Error:     exceeded.Error(),
				Remaining: exceeded.Remaining,
				ResetAt:   exceeded.ResetAt,
			})
			return
		}
		if errors.Is(err, quota.ErrStoreUnavailable) {
			writeError(w, http.StatusServiceUnavailable, "quota store unavailable, retry later")
			return
		}

		sentry.CaptureException(err)
		writeError(w, http.StatusInternalServerError, "failed to process query")
		return
	}

	writeJSON(w, http.StatusOK, answer)
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	subject, ok := auth.SubjectFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing authenticated subject")
		return
	}

	limit := 10
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	logs, err := h.service.History(r.Context(), subject, limit)
	if err != nil {
		sentry.CaptureException(err)
		writeError(w, http.StatusInternalServerError, "failed to load query history")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"queries": logs,
		"count":   len(logs),
	})
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	subject, ok := auth.SubjectFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing authenticated subject")
		return
	}

	stats, err := h.service.Stats(r.Context(), subject)
	if err != nil {
		if errors.Is(err, quota.ErrStoreUnavailable) {
			writeError(w, http.StatusServiceUnavailable, "quota store unavailable, retry later")
			return
		}
		sentry.CaptureException(err)
		writeError(w, http.StatusInternalServerError, "failed to load query stats")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
