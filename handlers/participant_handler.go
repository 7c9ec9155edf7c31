package handlers

import (
	"net/http"

	"github.com/Ljimmex/NexArenav2-sub001/middleware"
	"github.com/Ljimmex/NexArenav2-sub001/services"
)

type ParticipantHandler struct {
	participantService services.ParticipantService
}

func NewParticipantHandler(participantService services.ParticipantService) *ParticipantHandler {
	return &ParticipantHandler{participantService: participantService}
}

func (h *ParticipantHandler) Register(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.RegisterParticipantInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	input.TournamentID = tournamentID

	participant, err := h.participantService.RegisterParticipant(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"participant": participant}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *ParticipantHandler) List(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	participants, err := h.participantService.ListParticipants(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"participants": participants}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *ParticipantHandler) UploadLogo(w http.ResponseWriter, r *http.Request) {
	organizerID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	participantID, err := getIDFromURL(r, "participantID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	file, header, err := logoFromRequest(w, r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	defer file.Close()

	participant, err := h.participantService.UploadParticipantLogo(r.Context(), organizerID, participantID, header.Header.Get("Content-Type"), file)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"participant": participant}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
