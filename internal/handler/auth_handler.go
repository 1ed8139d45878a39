package handlers

import (
	"encoding/json"
	"net/http"

	"postfeed/internal/service"
)

type SignupResponse struct {
	Message string `json:"message"`
	UserID  string `json:"userId"`
}

func (h *Handlers) Signup(w http.ResponseWriter, r *http.Request) {
	var req service.SignupInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, "Неверный формат запроса", http.StatusBadRequest)
		return
	}

	user, err := h.AuthService.Signup(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}

	writeSuccess(w, SignupResponse{Message: "User created!", UserID: user.UserID}, http.StatusCreated)
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req service.LoginInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, "Неверный формат запроса", http.StatusBadRequest)
		return
	}

	result, err := h.AuthService.Login(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}

	writeSuccess(w, result, http.StatusOK)
}
