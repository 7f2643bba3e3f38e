package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/aussiebroadwan/doorman/internal/verify/service"
	"github.com/aussiebroadwan/doorman/pkg/httpx"
)

// PendingHandler handles GET /v1/registrants/pending.
type PendingHandler struct {
	Directory *service.Directory
}

type pendingRegistrant struct {
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

type pendingResponse struct {
	Registrants []pendingRegistrant `json:"registrants"`
}

func (h *PendingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 200 {
			httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "limit must be between 1 and 200")
			return
		}
		limit = n
	}

	registrants, err := h.Directory.ListPending(r.Context(), limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	resp := pendingResponse{Registrants: make([]pendingRegistrant, 0, len(registrants))}
	for _, reg := range registrants {
		resp.Registrants = append(resp.Registrants, pendingRegistrant{
			UserID:    reg.UserID,
			Name:      reg.Name,
			Status:    string(reg.Status),
			UpdatedAt: reg.UpdatedAt,
		})
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, resp)
}
