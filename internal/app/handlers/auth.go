package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/linemk/grocery-shop/internal/service"
)

// AuthRequest логин по email и паролю
type AuthRequest struct {
	Username string `json:"username" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// AuthResponse представляет структуру ответа с JWT-токеном
type AuthResponse struct {
	Token string `json:"token"`
}

var validate = validator.New()

// AuthHandler выдаёт JWT. Неизвестный пользователь регистрируется как покупатель.
func AuthHandler(log *slog.Logger, authService service.AuthServiceInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.AuthHandler"
		logger := log.With(slog.String("op", op))

		var req AuthRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Error("invalid request: decoding error", slog.Any("error", err))
			writeJSON(w, logger, http.StatusBadRequest, ErrorResponse{Error: "invalid request"})
			return
		}

		if err := validate.Struct(req); err != nil {
			logger.Error("invalid request: validation error", slog.Any("error", err))
			writeJSON(w, logger, http.StatusBadRequest, ErrorResponse{Error: "validation error"})
			return
		}

		token, err := authService.Login(r.Context(), req.Username, req.Password)
		if err != nil {
			if errors.Is(err, service.ErrInvalidCredentials) {
				logger.Warn("login failed", slog.Any("error", err))
				writeJSON(w, logger, http.StatusUnauthorized, ErrorResponse{Error: "invalid credentials"})
				return
			}
			logger.Error("login failed", slog.Any("error", err))
			writeJSON(w, logger, http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
			return
		}

		writeJSON(w, logger, http.StatusOK, AuthResponse{Token: token})
	}
}
