package handlers

import (
	"net/http"
	"strconv"

	"github.com/Ljimmex/NexArenav2-sub001/middleware"
	"github.com/Ljimmex/NexArenav2-sub001/services"
)

type BracketHandler struct {
	bracketService services.BracketService
}

func NewBracketHandler(bracketService services.BracketService) *BracketHandler {
	return &BracketHandler{bracketService: bracketService}
}

func (h *BracketHandler) Generate(w http.ResponseWriter, r *http.Request) {
	organizerID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	tournamentID, err := getIDFromURL(r, "id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	input := services.GenerateBracketInput{TournamentID: tournamentID}
	if r.ContentLength > 0 {
		if err := readJSON(w, r, &input); err != nil {
			badRequestResponse(w, r, err)
			return
		}
		input.TournamentID = tournamentID
	}

	view, err := h.bracketService.GenerateBracket(r.Context(), organizerID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"bracket": view}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *BracketHandler) Get(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var groupID *int
	if raw := r.URL.Query().Get("group_id"); raw != "" {
		id, convErr := strconv.Atoi(raw)
		if convErr != nil || id < 0 {
			badRequestResponse(w, r, strconvError("group_id", raw))
			return
		}
		groupID = &id
	}

	view, err := h.bracketService.GetBracket(r.Context(), tournamentID, groupID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"bracket": view}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
