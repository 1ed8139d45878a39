package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"

	"postfeed/internal/service"
)

// ErrorResponse - стандартный ответ с ошибкой
type ErrorResponse struct {
	Error  string               `json:"error"`
	Errors []service.FieldError `json:"errors,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// WriteError - универсальная функция для отправки ошибок
func WriteError(w http.ResponseWriter, message string, statusCode int) {
	writeSuccess(w, ErrorResponse{Error: message}, statusCode)
}

// writeSuccess - функция для успешных ответов
func writeSuccess(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// writeServiceError maps service errors to status codes. Unknown errors are
// logged and answered with an opaque 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var verr *service.ValidationError

	switch {
	case errors.As(err, &verr):
		writeSuccess(w, ErrorResponse{Error: "Ошибка валидации", Errors: verr.Fields}, http.StatusUnprocessableEntity)
	case errors.Is(err, service.ErrPostNotFound):
		WriteError(w, "Пост не найден", http.StatusNotFound)
	case errors.Is(err, service.ErrUserNotFound):
		WriteError(w, "Пользователь не найден", http.StatusNotFound)
	case errors.Is(err, service.ErrForbidden):
		WriteError(w, "Доступ запрещен", http.StatusForbidden)
	case errors.Is(err, service.ErrEmailTaken):
		WriteError(w, "Пользователь с таким email уже существует", http.StatusConflict)
	case errors.Is(err, service.ErrInvalidCredentials):
		WriteError(w, "Неверный email или пароль", http.StatusUnauthorized)
	case errors.Is(err, service.ErrTooManyAttempts):
		WriteError(w, "Слишком много попыток входа, попробуйте позже", http.StatusTooManyRequests)
	default:
		logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", chimw.GetReqID(r.Context()),
			"error", err)
		WriteError(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
	}
}
