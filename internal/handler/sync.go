package handler

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/focuse/focus-server-go/internal/errors"
	"github.com/focuse/focus-server-go/internal/httputil"
	"github.com/focuse/focus-server-go/internal/middleware"
	"github.com/focuse/focus-server-go/internal/service"
)

type SyncHandler struct {
	syncService *service.SyncService
}

func NewSyncHandler(syncService *service.SyncService) *SyncHandler {
	return &SyncHandler{
		syncService: syncService,
	}
}

// POST /v1/sync
func (h *SyncHandler) Sync(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	var req service.SyncRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.WriteError(w, apperrors.ValidationError("invalid request body"))
			return
		}
	}

	resp, err := h.syncService.Sync(r.Context(), user.ID, req)
	if err != nil {
		writeServiceError(w, err, "failed to sync")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}
