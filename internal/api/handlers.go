// Package api exposes the HTTP handlers of the fitness API.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"example.com/fitness/internal/auth"
	"example.com/fitness/internal/domain"
)

// Handler coordinates HTTP requests with the domain services.
type Handler struct {
	goals      *domain.GoalService
	activities *domain.ActivityService
	users      *domain.UserService
}

// NewHandler builds a Handler.
func NewHandler(goals *domain.GoalService, activities *domain.ActivityService, users *domain.UserService) *Handler {
	return &Handler{goals: goals, activities: activities, users: users}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/users", h.usersRoot)
	mux.HandleFunc("/v1/users/login", h.login)
	mux.HandleFunc("/v1/users/", h.userByID)
	mux.HandleFunc("/v1/activities", h.activitiesRoot)
	mux.HandleFunc("/v1/activities/", h.activityByID)
	mux.HandleFunc("/v1/goals", h.goalsRoot)
	mux.HandleFunc("/v1/goals/progress", h.goalProgress)
	mux.HandleFunc("/v1/goals/", h.goalByID)
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// authorize returns the caller's claims when they hold at least one of scopes.
// It writes the 401 or 403 response itself otherwise.
func authorize(w http.ResponseWriter, r *http.Request, scopes ...string) (*auth.Claims, bool) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return nil, false
	}
	if len(scopes) > 0 && !claims.HasAnyScope(scopes...) {
		writeError(w, http.StatusForbidden, "forbidden", "scope "+scopes[0]+" required")
		return nil, false
	}
	return claims, true
}

// pathID validates the id segment of a resource path.
func pathID(w http.ResponseWriter, id, resource string) bool {
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing "+resource+" id")
		return false
	}
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid "+resource+" id")
		return false
	}
	return true
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
