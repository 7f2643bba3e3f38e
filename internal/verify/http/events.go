package http

import (
	"encoding/json"
	"net/http"

	"github.com/aussiebroadwan/doorman/internal/verify/service"
	"github.com/aussiebroadwan/doorman/pkg/httpx"
)

// EventsHandler bridges chat transport events into the verification flow.
type EventsHandler struct {
	Flow *service.Flow
}

type startEvent struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
}

// HandleStart handles POST /v1/events/start.
func (h *EventsHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	var ev startEvent
	if !decodeEvent(w, r, &ev) {
		return
	}
	if ev.UserID == "" {
		writeMissingField(w, "user_id")
		return
	}

	if err := h.Flow.Start(r.Context(), ev.UserID, ev.Name); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

type joinRequestEvent struct {
	UserID        string `json:"user_id"`
	Name          string `json:"name"`
	CommunityID   string `json:"community_id"`
	CommunityName string `json:"community_name"`
}

// HandleJoinRequest handles POST /v1/events/join-request.
func (h *EventsHandler) HandleJoinRequest(w http.ResponseWriter, r *http.Request) {
	var ev joinRequestEvent
	if !decodeEvent(w, r, &ev) {
		return
	}
	if ev.UserID == "" {
		writeMissingField(w, "user_id")
		return
	}
	if ev.CommunityID == "" {
		writeMissingField(w, "community_id")
		return
	}

	if err := h.Flow.JoinRequested(r.Context(), ev.UserID, ev.Name, ev.CommunityID, ev.CommunityName); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

type contactEvent struct {
	UserID     string `json:"user_id"`
	Name       string `json:"name"`
	ContactRef string `json:"contact_ref"`
}

// HandleContact handles POST /v1/events/contact.
func (h *EventsHandler) HandleContact(w http.ResponseWriter, r *http.Request) {
	var ev contactEvent
	if !decodeEvent(w, r, &ev) {
		return
	}
	if ev.UserID == "" {
		writeMissingField(w, "user_id")
		return
	}
	if ev.ContactRef == "" {
		writeMissingField(w, "contact_ref")
		return
	}

	if err := h.Flow.ContactShared(r.Context(), ev.UserID, ev.Name, ev.ContactRef); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

type keypadEvent struct {
	UserID string `json:"user_id"`
	Key    string `json:"key"`
}

// HandleKeypad handles POST /v1/events/keypad.
func (h *EventsHandler) HandleKeypad(w http.ResponseWriter, r *http.Request) {
	var ev keypadEvent
	if !decodeEvent(w, r, &ev) {
		return
	}
	if ev.UserID == "" {
		writeMissingField(w, "user_id")
		return
	}
	if ev.Key == "" {
		writeMissingField(w, "key")
		return
	}

	if err := h.Flow.Keypad(r.Context(), ev.UserID, ev.Key); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func decodeEvent(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Malformed JSON body")
		return false
	}
	return true
}

func writeMissingField(w http.ResponseWriter, field string) {
	httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Missing required field: "+field)
}
