package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"postfeed/internal/models"
	"postfeed/internal/service"
)

func TestHandlers_Signup(t *testing.T) {
	t.Run("Успешная регистрация", func(t *testing.T) {
		h := newTestHandlers()
		input := service.SignupInput{Name: "Max", Email: "max@example.com", Password: "secret"}
		h.auth.On("Signup", mock.Anything, input).Return(&models.User{UserID: "u1"}, nil)

		rr := httptest.NewRecorder()
		h.Signup(rr, request(http.MethodPut, "/auth/signup", jsonBody(t, input), "", nil))

		assert.Equal(t, http.StatusCreated, rr.Code)
		body := decode(t, rr)
		assert.Equal(t, "u1", body["userId"])
		assert.NotEmpty(t, body["message"])
		h.auth.AssertExpectations(t)
	})

	t.Run("Email уже занят", func(t *testing.T) {
		h := newTestHandlers()
		h.auth.On("Signup", mock.Anything, mock.Anything).Return(nil, service.ErrEmailTaken)

		rr := httptest.NewRecorder()
		h.Signup(rr, request(http.MethodPut, "/auth/signup",
			jsonBody(t, map[string]string{"email": "max@example.com"}), "", nil))

		assert.Equal(t, http.StatusConflict, rr.Code)
	})

	t.Run("Ошибки валидации перечисляются", func(t *testing.T) {
		h := newTestHandlers()
		h.auth.On("Signup", mock.Anything, mock.Anything).Return(nil, &service.ValidationError{
			Fields: []service.FieldError{
				{Field: "email", Message: "email must be a valid email address"},
				{Field: "password", Message: "password must be at least 5 characters in length"},
			},
		})

		rr := httptest.NewRecorder()
		h.Signup(rr, request(http.MethodPut, "/auth/signup", jsonBody(t, map[string]string{}), "", nil))

		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
		errs := decode(t, rr)["errors"].([]any)
		assert.Len(t, errs, 2)
		assert.Equal(t, "email", errs[0].(map[string]any)["field"])
	})

	t.Run("Неверный JSON", func(t *testing.T) {
		h := newTestHandlers()

		rr := httptest.NewRecorder()
		h.Signup(rr, request(http.MethodPut, "/auth/signup", strings.NewReader("{"), "", nil))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		h.auth.AssertNotCalled(t, "Signup", mock.Anything, mock.Anything)
	})
}

func TestHandlers_Login(t *testing.T) {
	tests := []struct {
		name       string
		result     *service.LoginResult
		err        error
		wantStatus int
	}{
		{
			name:       "Успешный вход",
			result:     &service.LoginResult{Token: "jwt", UserID: "u1", ExpiresAt: time.Now().Add(time.Hour)},
			wantStatus: http.StatusOK,
		},
		{name: "Неверный пароль", err: service.ErrInvalidCredentials, wantStatus: http.StatusUnauthorized},
		{name: "Слишком много попыток", err: service.ErrTooManyAttempts, wantStatus: http.StatusTooManyRequests},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandlers()
			input := service.LoginInput{Email: "max@example.com", Password: "secret"}
			if tt.result != nil {
				h.auth.On("Login", mock.Anything, input).Return(tt.result, nil)
			} else {
				h.auth.On("Login", mock.Anything, input).Return(nil, tt.err)
			}

			rr := httptest.NewRecorder()
			h.Login(rr, request(http.MethodPost, "/auth/login", jsonBody(t, input), "", nil))

			assert.Equal(t, tt.wantStatus, rr.Code)
			if tt.result != nil {
				body := decode(t, rr)
				assert.Equal(t, "jwt", body["token"])
				assert.Equal(t, "u1", body["userId"])
			}
		})
	}
}

func TestHandlers_Status(t *testing.T) {
	t.Run("Получение статуса", func(t *testing.T) {
		h := newTestHandlers()
		h.users.On("GetStatus", mock.Anything, "u1").Return("I am new!", nil)

		rr := httptest.NewRecorder()
		h.GetStatus(rr, request(http.MethodGet, "/auth/status", nil, "u1", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "I am new!", decode(t, rr)["status"])
	})

	t.Run("Обновление статуса", func(t *testing.T) {
		h := newTestHandlers()
		h.users.On("UpdateStatus", mock.Anything, "u1", service.StatusInput{Status: "busy"}).Return("busy", nil)

		rr := httptest.NewRecorder()
		h.UpdateStatus(rr, request(http.MethodPatch, "/auth/status",
			jsonBody(t, map[string]string{"status": "busy"}), "u1", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "busy", decode(t, rr)["status"])
		h.users.AssertExpectations(t)
	})

	t.Run("Пользователь удалён", func(t *testing.T) {
		h := newTestHandlers()
		h.users.On("GetStatus", mock.Anything, "ghost").Return("", service.ErrUserNotFound)

		rr := httptest.NewRecorder()
		h.GetStatus(rr, request(http.MethodGet, "/auth/status", nil, "ghost", nil))

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}
