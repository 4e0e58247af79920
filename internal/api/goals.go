package api

import (
	"errors"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"

	"example.com/fitness/internal/auth"
	"example.com/fitness/internal/domain"
)

func (h *Handler) goalsRoot(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createGoal(w, r)
	case http.MethodGet:
		h.listGoals(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (h *Handler) goalByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/goals/")
	if !pathID(w, id, "goal") {
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.getGoal(w, r, id)
	case http.MethodPut:
		h.updateGoal(w, r, id)
	case http.MethodDelete:
		h.deleteGoal(w, r, id)
	default:
		methodNotAllowed(w)
	}
}

// goalProgress applies one activity to every active goal of the caller.
func (h *Handler) goalProgress(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w)
		return
	}
	claims, ok := authorize(w, r, auth.ScopeGoalsWrite)
	if !ok {
		return
	}

	var req ProgressRequest
	if !decodeBody(w, r, &req) {
		return
	}

	summary, err := h.goals.UpdateProgress(r.Context(), claims.Subject, domain.ActivityInput{
		ActivityType:   strings.TrimSpace(req.ActivityType),
		Duration:       valueOrZero(req.Duration),
		CaloriesBurned: valueOrZero(req.CaloriesBurned),
		CustomField:    valueOrZero(req.CustomField),
	})
	if err != nil {
		if errors.Is(err, domain.ErrGoalVersionConflict) {
			writeError(w, http.StatusConflict, "conflict", "goals changed concurrently, retry the request")
			return
		}
		log.WithError(err).WithField("user_id", claims.Subject).Error("update goal progress")
		writeError(w, http.StatusInternalServerError, "server_error", "failed to update goals")
		return
	}

	writeJSON(w, http.StatusOK, ProgressResponse{
		Message:   "goals updated",
		Evaluated: summary.Evaluated,
		Completed: summary.Completed,
	})
}

func (h *Handler) createGoal(w http.ResponseWriter, r *http.Request) {
	claims, ok := authorize(w, r, auth.ScopeGoalsWrite)
	if !ok {
		return
	}

	var req CreateGoalRequest
	if !decodeBody(w, r, &req) {
		return
	}

	goal, err := h.goals.CreateGoal(r.Context(), domain.CreateGoalInput{
		UserID:       claims.Subject,
		Title:        strings.TrimSpace(req.Title),
		Description:  req.Description,
		FitnessGoal:  domain.GoalType(req.FitnessGoal),
		TargetValue:  req.TargetValue,
		CurrentValue: req.CurrentValue,
		Unit:         req.Unit,
		TargetDate:   req.TargetDate,
	})
	if err != nil {
		writeGoalError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toGoalView(*goal))
}

func (h *Handler) listGoals(w http.ResponseWriter, r *http.Request) {
	claims, ok := authorize(w, r, auth.ScopeGoalsRead, auth.ScopeGoalsWrite)
	if !ok {
		return
	}

	status := domain.GoalStatus(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		writeError(w, http.StatusBadRequest, "validation_failed", "status must be one of active, completed, paused")
		return
	}

	goals, err := h.goals.ListGoals(r.Context(), claims.Subject, status)
	if err != nil {
		writeGoalError(w, err)
		return
	}

	items := make([]GoalView, 0, len(goals))
	for _, g := range goals {
		items = append(items, toGoalView(g))
	}
	writeJSON(w, http.StatusOK, ListGoalsResponse{Items: items})
}

func (h *Handler) getGoal(w http.ResponseWriter, r *http.Request, id string) {
	claims, ok := authorize(w, r, auth.ScopeGoalsRead, auth.ScopeGoalsWrite)
	if !ok {
		return
	}

	goal, err := h.goals.GetGoal(r.Context(), claims.Subject, id)
	if err != nil {
		writeGoalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toGoalView(*goal))
}

func (h *Handler) updateGoal(w http.ResponseWriter, r *http.Request, id string) {
	claims, ok := authorize(w, r, auth.ScopeGoalsWrite)
	if !ok {
		return
	}

	var req UpdateGoalRequest
	if !decodeBody(w, r, &req) {
		return
	}

	input := domain.UpdateGoalInput{
		Title:           req.Title,
		Description:     req.Description,
		TargetValue:     req.TargetValue,
		CurrentValue:    req.CurrentValue,
		Unit:            req.Unit,
		TargetDate:      req.TargetDate,
		ClearTargetDate: req.ClearTargetDate,
		ExpectedVersion: req.Version,
	}
	if req.Status != nil {
		status := domain.GoalStatus(*req.Status)
		input.Status = &status
	}

	goal, err := h.goals.UpdateGoal(r.Context(), claims.Subject, id, input)
	if err != nil {
		writeGoalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toGoalView(*goal))
}

func (h *Handler) deleteGoal(w http.ResponseWriter, r *http.Request, id string) {
	claims, ok := authorize(w, r, auth.ScopeGoalsWrite)
	if !ok {
		return
	}

	if err := h.goals.DeleteGoal(r.Context(), claims.Subject, id); err != nil {
		writeGoalError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeGoalError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidGoal):
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case errors.Is(err, domain.ErrGoalNotFound):
		writeError(w, http.StatusNotFound, "not_found", "goal not found")
	case errors.Is(err, domain.ErrGoalVersionConflict):
		writeError(w, http.StatusConflict, "conflict", "goal was modified, reload and retry")
	default:
		log.WithError(err).Error("goal request failed")
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
	}
}
