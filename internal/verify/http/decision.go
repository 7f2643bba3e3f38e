package http

import (
	"net/http"

	"github.com/aussiebroadwan/doorman/internal/verify/service"
	"github.com/aussiebroadwan/doorman/pkg/httpx"
)

// DecisionHandler handles POST /v1/decisions. The acting operator is the
// authenticated token subject; the service enforces that it matches the
// configured operator.
type DecisionHandler struct {
	Decisions *service.Decisions
}

type decisionRequest struct {
	UserID  string `json:"user_id"`
	Approve bool   `json:"approve"`
}

type decisionResponse struct {
	UserID  string `json:"user_id"`
	Outcome string `json:"outcome"`
}

func (h *DecisionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req decisionRequest
	if !decodeEvent(w, r, &req) {
		return
	}
	if req.UserID == "" {
		writeMissingField(w, "user_id")
		return
	}

	actorID := httpx.SubjectFromContext(r.Context())
	if err := h.Decisions.Submit(r.Context(), actorID, req.UserID, req.Approve); err != nil {
		writeServiceError(w, r, err)
		return
	}

	outcome := "rejected"
	if req.Approve {
		outcome = "approved"
	}
	httpx.WriteJSON(w, http.StatusOK, decisionResponse{UserID: req.UserID, Outcome: outcome})
}
