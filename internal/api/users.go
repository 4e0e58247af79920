package api

import (
	"errors"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"

	"example.com/fitness/internal/auth"
	"example.com/fitness/internal/domain"
)

func (h *Handler) usersRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	h.register(w, r)
}

func (h *Handler) userByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/users/")
	if !pathID(w, id, "user") {
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.getUser(w, r, id)
	case http.MethodPut:
		h.updateUser(w, r, id)
	default:
		methodNotAllowed(w)
	}
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeBody(w, r, &req) {
		return
	}

	session, err := h.users.Register(r.Context(), domain.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			writeError(w, http.StatusConflict, "conflict", "email already registered")
			return
		}
		log.WithError(err).Error("register user")
		writeError(w, http.StatusInternalServerError, "server_error", "failed to register user")
		return
	}

	writeJSON(w, http.StatusCreated, RegisterResponse{
		Message:   "user created",
		UserID:    session.UserID,
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
	})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req LoginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	session, err := h.users.Login(r.Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "not_found", "user not found")
		return
	case errors.Is(err, domain.ErrIncorrectPassword):
		writeError(w, http.StatusBadRequest, "invalid_credentials", "incorrect password")
		return
	case err != nil:
		log.WithError(err).Error("login")
		writeError(w, http.StatusInternalServerError, "server_error", "failed to sign in")
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{
		Token:     session.Token,
		TokenType: "Bearer",
		UserID:    session.UserID,
		ExpiresAt: session.ExpiresAt,
	})
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request, id string) {
	claims, ok := authorize(w, r, auth.ScopeProfileRead, auth.ScopeProfileWrite)
	if !ok {
		return
	}
	if claims.Subject != id {
		writeError(w, http.StatusForbidden, "forbidden", "cannot access another user's profile")
		return
	}

	user, err := h.users.GetUser(r.Context(), id)
	if err != nil {
		writeUserError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserView(*user))
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request, id string) {
	claims, ok := authorize(w, r, auth.ScopeProfileWrite)
	if !ok {
		return
	}
	if claims.Subject != id {
		writeError(w, http.StatusForbidden, "forbidden", "cannot modify another user's profile")
		return
	}

	var req UpdateProfileRequest
	if !decodeBody(w, r, &req) {
		return
	}

	user, err := h.users.UpdateProfile(r.Context(), id, domain.ProfileUpdate{
		Name:                req.Name,
		Age:                 req.Age,
		Weight:              req.Weight,
		Height:              req.Height,
		TargetWeight:        req.TargetWeight,
		FitnessGoals:        req.FitnessGoals,
		ActivityLevel:       req.ActivityLevel,
		PrimaryGoal:         req.PrimaryGoal,
		OnboardingCompleted: req.OnboardingCompleted,
	})
	if err != nil {
		writeUserError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserView(*user))
}

func writeUserError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrUserNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "user not found")
		return
	}
	log.WithError(err).Error("user request failed")
	writeError(w, http.StatusInternalServerError, "server_error", "internal error")
}
