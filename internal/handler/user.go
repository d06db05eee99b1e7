package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/billtrack/billtrack/internal/handler/dto"
	"github.com/billtrack/billtrack/internal/service"
)

// UserHandler serves the user directory.
type UserHandler struct {
	svc    *service.UserService
	logger *slog.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(svc *service.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{svc: svc, logger: logger}
}

// Routes registers the user endpoints.
func (h *UserHandler) Routes(r chi.Router) {
	r.Get("/user-details/{email}", h.Details)
	r.Put("/users/{email}", h.Upsert)
}

// Details handles GET /user-details/{email}.
func (h *UserHandler) Details(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.GetUserDetails(r.Context(), pathParam(r, "email"))
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToUserResponse(user))
}

// Upsert handles PUT /users/{email}.
func (h *UserHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var req dto.UpsertUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidJSON, "Invalid request body: "+err.Error())
		return
	}

	user, err := h.svc.UpsertUser(r.Context(), pathParam(r, "email"), req.UserType)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToUserResponse(user))
}
