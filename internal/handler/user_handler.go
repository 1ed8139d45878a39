package handlers

import (
	"encoding/json"
	"net/http"

	"postfeed/internal/service"
)

type StatusResponse struct {
	Message string `json:"message,omitempty"`
	Status  string `json:"status"`
}

func (h *Handlers) GetStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.UserService.GetStatus(r.Context(), UserIDFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}

	writeSuccess(w, StatusResponse{Status: status}, http.StatusOK)
}

func (h *Handlers) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req service.StatusInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, "Неверный формат запроса", http.StatusBadRequest)
		return
	}

	status, err := h.UserService.UpdateStatus(r.Context(), UserIDFromContext(r.Context()), req)
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}

	writeSuccess(w, StatusResponse{Message: "User updated.", Status: status}, http.StatusOK)
}
