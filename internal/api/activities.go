package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"example.com/fitness/internal/auth"
	"example.com/fitness/internal/domain"
	"example.com/fitness/internal/persistence"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func (h *Handler) activitiesRoot(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createActivity(w, r)
	case http.MethodGet:
		h.listActivities(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (h *Handler) activityByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/activities/")
	if !pathID(w, id, "activity") {
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.getActivity(w, r, id)
	default:
		methodNotAllowed(w)
	}
}

func (h *Handler) createActivity(w http.ResponseWriter, r *http.Request) {
	claims, ok := authorize(w, r, auth.ScopeActivitiesWrite)
	if !ok {
		return
	}

	var req CreateActivityRequest
	if !decodeBody(w, r, &req) {
		return
	}

	performedAt := time.Now().UTC()
	if req.PerformedAt != nil {
		performedAt = *req.PerformedAt
	}

	activity, replay, err := h.activities.CreateActivity(r.Context(), domain.CreateActivityInput{
		UserID:         claims.Subject,
		ActivityType:   strings.TrimSpace(req.ActivityType),
		Duration:       *req.Duration,
		CaloriesBurned: req.CaloriesBurned,
		CustomField:    req.CustomField,
		Notes:          req.Notes,
		PerformedAt:    performedAt,
		IdempotencyKey: strings.TrimSpace(r.Header.Get("Idempotency-Key")),
	})
	if err != nil {
		log.WithError(err).WithField("user_id", claims.Subject).Error("create activity")
		writeError(w, http.StatusInternalServerError, "server_error", "failed to log activity")
		return
	}

	status := http.StatusCreated
	if replay {
		status = http.StatusOK
	}
	writeJSON(w, status, CreateActivityResponse{ActivityView: toActivityView(*activity), Replay: replay})
}

func (h *Handler) getActivity(w http.ResponseWriter, r *http.Request, id string) {
	claims, ok := authorize(w, r, auth.ScopeActivitiesRead, auth.ScopeActivitiesWrite)
	if !ok {
		return
	}

	activity, err := h.activities.GetActivity(r.Context(), claims.Subject, id)
	if err != nil {
		if errors.Is(err, domain.ErrActivityNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "activity not found")
			return
		}
		log.WithError(err).Error("get activity")
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}
	writeJSON(w, http.StatusOK, toActivityView(*activity))
}

func (h *Handler) listActivities(w http.ResponseWriter, r *http.Request) {
	claims, ok := authorize(w, r, auth.ScopeActivitiesRead, auth.ScopeActivitiesWrite)
	if !ok {
		return
	}

	limit := defaultPageSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = min(parsed, maxPageSize)
		}
	}

	cursor, err := persistence.DecodeCursor(r.URL.Query().Get("cursor"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid cursor")
		return
	}

	activities, next, err := h.activities.ListActivitiesByUser(r.Context(), claims.Subject, cursor, limit)
	if err != nil {
		log.WithError(err).Error("list activities")
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	items := make([]ActivityView, 0, len(activities))
	for _, a := range activities {
		items = append(items, toActivityView(a))
	}
	writeJSON(w, http.StatusOK, ListActivitiesResponse{
		Items:      items,
		NextCursor: persistence.EncodeCursor(next),
	})
}
