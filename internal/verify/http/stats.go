package http

import (
	"net/http"

	"github.com/aussiebroadwan/doorman/internal/verify/service"
	"github.com/aussiebroadwan/doorman/pkg/httpx"
)

// StatsHandler handles GET /v1/stats.
type StatsHandler struct {
	Directory *service.Directory
	Ledger    *service.Ledger
}

type statsResponse struct {
	Registrants    map[string]int `json:"registrants"`
	AccessRequests map[string]int `json:"access_requests"`
}

func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	registrants, err := h.Directory.Stats(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	requests, err := h.Ledger.Stats(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	resp := statsResponse{
		Registrants:    make(map[string]int, len(registrants)),
		AccessRequests: make(map[string]int, len(requests)),
	}
	for status, n := range registrants {
		resp.Registrants[string(status)] = n
	}
	for status, n := range requests {
		resp.AccessRequests[string(status)] = n
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, resp)
}
