package handlers

import (
	"errors"
	"net/http"

	"github.com/Ljimmex/NexArenav2-sub001/middleware"
	"github.com/Ljimmex/NexArenav2-sub001/services"
)

type AuthHandler struct {
	authService services.AuthService
	jwtSecret   string
}

func NewAuthHandler(authService services.AuthService, jwtSecret string) *AuthHandler {
	return &AuthHandler{authService: authService, jwtSecret: jwtSecret}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var input services.RegisterUserInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.Email == "" || input.Password == "" || input.Nickname == "" {
		badRequestResponse(w, r, errors.New("nickname, email, and password are required"))
		return
	}

	user, err := h.authService.Register(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	token, err := middleware.GenerateToken(h.jwtSecret, user)
	if err != nil {
		serverErrorResponse(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"user": user, "token": token}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.Email == "" || input.Password == "" {
		badRequestResponse(w, r, errors.New("email and password are required"))
		return
	}

	user, err := h.authService.Login(r.Context(), input.Email, input.Password)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	token, err := middleware.GenerateToken(h.jwtSecret, user)
	if err != nil {
		serverErrorResponse(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"user": user, "token": token}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	user, err := h.authService.GetUserByID(r.Context(), userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"user": user}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
