package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/linemk/grocery-shop/internal/domain/models"
	security "github.com/linemk/grocery-shop/internal/jwt-new"
	"github.com/linemk/grocery-shop/internal/storage"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type AuthService struct {
	log       *slog.Logger
	userRepo  storage.UserStorage
	tokenTTL  time.Duration
	jwtSecret string
}

func NewAuthService(log *slog.Logger, userRepo storage.UserStorage, tokenTTL time.Duration, jwtSecret string) *AuthService {
	return &AuthService{
		log:       log,
		userRepo:  userRepo,
		tokenTTL:  tokenTTL,
		jwtSecret: jwtSecret,
	}
}

type AuthServiceInterface interface {
	Login(ctx context.Context, username, password string) (string, error)
}

// Login осуществляет аутентификацию пользователя.
// Если пользователь не найден, он создаётся с ролью покупателя (пароль хэшируется через bcrypt).
// Если найден, введённый пароль сравнивается с сохранённым хэшем.
// После успешной проверки выдаётся JWT-токен с id и ролью пользователя.
func (a *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	const op = "auth.Login"
	logger := a.log.With(
		slog.String("op", op),
		slog.String("email", email),
	)
	logger.Info("checking user")

	user, err := a.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, storage.ErrUserNotFound) {
			logger.Error("failed to get user", slog.Any("error", err))
			return "", fmt.Errorf("%s: failed to get user: %w", op, err)
		}

		logger.Info("user not found, creating new user")
		passHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			logger.Error("failed to hash password", slog.Any("error", err))
			return "", fmt.Errorf("%s: failed to hash password: %w", op, err)
		}
		user, err = a.userRepo.CreateUser(ctx, &models.User{
			Email:    email,
			PassHash: passHash,
			Role:     models.RoleCustomer,
		})
		if err != nil {
			logger.Error("failed to create user", slog.Any("error", err))
			return "", fmt.Errorf("%s: failed to create user: %w", op, err)
		}
	} else if err := bcrypt.CompareHashAndPassword(user.PassHash, []byte(password)); err != nil {
		logger.Warn("invalid password")
		return "", fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	token, err := security.NewToken(user, a.tokenTTL, a.jwtSecret)
	if err != nil {
		logger.Error("failed to generate token", slog.Any("error", err))
		return "", fmt.Errorf("%s: failed to generate token: %w", op, err)
	}

	logger.Info("user logged in successfully", slog.Int64("userID", user.ID))
	return token, nil
}
