package handlers

import (
	"net/http"
	"time"

	"github.com/Ljimmex/NexArenav2-sub001/middleware"
	"github.com/Ljimmex/NexArenav2-sub001/services"
)

type MatchHandler struct {
	matchService services.MatchService
}

func NewMatchHandler(matchService services.MatchService) *MatchHandler {
	return &MatchHandler{matchService: matchService}
}

func (h *MatchHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	match, err := h.matchService.GetMatch(r.Context(), matchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	organizerID, matchID, ok := h.organizerAndMatch(w, r)
	if !ok {
		return
	}

	var input struct {
		ScheduledAt time.Time `json:"scheduled_at"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.ScheduleMatch(r.Context(), organizerID, matchID, input.ScheduledAt)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) Start(w http.ResponseWriter, r *http.Request) {
	organizerID, matchID, ok := h.organizerAndMatch(w, r)
	if !ok {
		return
	}
	match, err := h.matchService.StartMatch(r.Context(), organizerID, matchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) RecordResult(w http.ResponseWriter, r *http.Request) {
	organizerID, matchID, ok := h.organizerAndMatch(w, r)
	if !ok {
		return
	}

	var input services.RecordResultInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	input.MatchID = matchID

	result, err := h.matchService.RecordResult(r.Context(), organizerID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, result, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	organizerID, matchID, ok := h.organizerAndMatch(w, r)
	if !ok {
		return
	}
	match, err := h.matchService.CancelMatch(r.Context(), organizerID, matchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) Reopen(w http.ResponseWriter, r *http.Request) {
	organizerID, matchID, ok := h.organizerAndMatch(w, r)
	if !ok {
		return
	}

	var input struct {
		Cascade bool `json:"cascade"`
	}
	if r.ContentLength > 0 {
		if err := readJSON(w, r, &input); err != nil {
			badRequestResponse(w, r, err)
			return
		}
	}

	result, err := h.matchService.ReopenMatch(r.Context(), organizerID, matchID, input.Cascade)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, result, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) organizerAndMatch(w http.ResponseWriter, r *http.Request) (organizerID, matchID int, ok bool) {
	organizerID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return 0, 0, false
	}
	matchID, err = getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return 0, 0, false
	}
	return organizerID, matchID, true
}
