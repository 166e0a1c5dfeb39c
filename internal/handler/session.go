package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	apperrors "github.com/focuse/focus-server-go/internal/errors"
	"github.com/focuse/focus-server-go/internal/httputil"
	"github.com/focuse/focus-server-go/internal/middleware"
	"github.com/focuse/focus-server-go/internal/model"
	"github.com/focuse/focus-server-go/internal/service"
)

type SessionHandler struct {
	sessionService *service.SessionService
}

func NewSessionHandler(sessionService *service.SessionService) *SessionHandler {
	return &SessionHandler{
		sessionService: sessionService,
	}
}

func (h *SessionHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Create)
	r.Get("/active", h.GetActive)
	r.Get("/{sessionID}", h.Get)
	r.Put("/{sessionID}/pause", h.Pause)
	r.Put("/{sessionID}/resume", h.Resume)
	r.Put("/{sessionID}/complete", h.Complete)
	r.Put("/{sessionID}/fail", h.Fail)

	return r
}

type createSessionRequest struct {
	TaskID   *string `json:"taskId,omitempty"`
	Duration int     `json:"duration"` // minutes
}

type completeSessionRequest struct {
	ActualDuration *int `json:"actualDuration,omitempty"` // seconds
}

type failSessionRequest struct {
	Reason model.FailReason `json:"reason"`
}

// POST /v1/sessions
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, apperrors.ValidationError("invalid request body"))
		return
	}

	session, err := h.sessionService.Create(r.Context(), user.ID, req.TaskID, req.Duration)
	if err != nil {
		writeServiceError(w, err, "failed to create session")
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, session)
}

// GET /v1/sessions/active
func (h *SessionHandler) GetActive(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	session, err := h.sessionService.GetActive(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, err, "failed to load active session")
		return
	}
	if session == nil {
		// Not an error: clients ask for this on every startup.
		httputil.WriteError(w, apperrors.NotFound("Active session"))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, session)
}

// GET /v1/sessions/{sessionID}
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	sessionID := chi.URLParam(r, "sessionID")

	session, err := h.sessionService.Get(r.Context(), sessionID, user.ID)
	if err != nil {
		writeServiceError(w, err, "failed to load session")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, session)
}

// PUT /v1/sessions/{sessionID}/pause
func (h *SessionHandler) Pause(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	sessionID := chi.URLParam(r, "sessionID")

	session, err := h.sessionService.Pause(r.Context(), sessionID, user.ID)
	if err != nil {
		writeServiceError(w, err, "failed to pause session")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, session)
}

// PUT /v1/sessions/{sessionID}/resume
func (h *SessionHandler) Resume(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	sessionID := chi.URLParam(r, "sessionID")

	session, err := h.sessionService.Resume(r.Context(), sessionID, user.ID)
	if err != nil {
		writeServiceError(w, err, "failed to resume session")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, session)
}

// PUT /v1/sessions/{sessionID}/complete
func (h *SessionHandler) Complete(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	sessionID := chi.URLParam(r, "sessionID")

	var req completeSessionRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.WriteError(w, apperrors.ValidationError("invalid request body"))
			return
		}
	}

	session, err := h.sessionService.Complete(r.Context(), sessionID, user.ID, req.ActualDuration)
	if err != nil {
		writeServiceError(w, err, "failed to complete session")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, session)
}

// PUT /v1/sessions/{sessionID}/fail
func (h *SessionHandler) Fail(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	sessionID := chi.URLParam(r, "sessionID")

	var req failSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, apperrors.ValidationError("invalid request body"))
		return
	}
	if req.Reason == "" {
		httputil.WriteError(w, apperrors.MissingRequired("reason"))
		return
	}

	session, err := h.sessionService.Fail(r.Context(), sessionID, user.ID, req.Reason)
	if err != nil {
		writeServiceError(w, err, "failed to fail session")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, session)
}

func writeServiceError(w http.ResponseWriter, err error, msg string) {
	if !apperrors.IsAppError(err) {
		log.Error().Err(err).Msg(msg)
	}
	httputil.WriteError(w, err)
}
