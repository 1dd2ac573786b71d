package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	apperrors "channel-market-backend/internal/common/errors"
	usermodels "channel-market-backend/internal/features/user/models"
	userrepo "channel-market-backend/internal/features/user/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

// TokenPair — выданный токен и срок его жизни
type TokenPair struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type AuthService interface {
	// Register создает пользователя с email и паролем
	Register(ctx context.Context, email, password, username string) (*usermodels.User, *TokenPair, error)

	// Login проверяет пароль и выдает токен. Заблокированный пользователь
	// не может войти.
	Login(ctx context.Context, email, password string) (*usermodels.User, *TokenPair, error)

	// IssueToken выдает токен для уже аутентифицированной личности
	// (Telegram initData)
	IssueToken(user *usermodels.User) (*TokenPair, error)
}

type authService struct {
	users     userrepo.UserRepository
	jwtSecret []byte
	tokenTTL  time.Duration
	now       func() time.Time
}

func NewAuthService(users userrepo.UserRepository, jwtSecret string, tokenTTL time.Duration) AuthService {
	return &authService{
		users:     users,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  tokenTTL,
		now:       time.Now,
	}
}

func (s *authService) Register(ctx context.Context, email, password, username string) (*usermodels.User, *TokenPair, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, nil, apperrors.NewValidationError("email", "malformed email address")
	}
	if len(password) < minPasswordLength {
		return nil, nil, apperrors.NewValidationError("password", "must be at least 8 characters")
	}
	if username = strings.TrimSpace(username); username == "" {
		username = strings.SplitN(email, "@", 2)[0]
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, nil, apperrors.NewConflictError("user", "email is already registered").
			WithDetail("email", email)
	} else if !errors.Is(err, userrepo.ErrUserNotFound) {
		return nil, nil, apperrors.NewDatabaseError("check email", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to hash password")
	}

	hashStr := string(hash)
	user := &usermodels.User{
		Email:        &email,
		PasswordHash: &hashStr,
		Username:     username,
		Role:         usermodels.RoleUser,
		Status:       usermodels.UserStatusActive,
		Balance:      decimal.Zero,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, nil, apperrors.NewDatabaseError("create user", err)
	}

	tokens, err := s.IssueToken(user)
	if err != nil {
		return nil, nil, err
	}
	return user, tokens, nil
}

func (s *authService) Login(ctx context.Context, email, password string) (*usermodels.User, *TokenPair, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, userrepo.ErrUserNotFound) {
			// Одинаковый ответ для неизвестного email и неверного пароля
			return nil, nil, apperrors.NewUnauthorizedError("invalid credentials")
		}
		return nil, nil, apperrors.NewDatabaseError("get user by email", err)
	}
	if user.PasswordHash == nil {
		return nil, nil, apperrors.NewUnauthorizedError("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(password)); err != nil {
		return nil, nil, apperrors.NewUnauthorizedError("invalid credentials")
	}
	if user.Status == usermodels.UserStatusBlocked {
		return nil, nil, apperrors.New(apperrors.ErrCodeUserBlocked, "User is blocked").
			WithDetail("user_id", user.ID)
	}

	tokens, err := s.IssueToken(user)
	if err != nil {
		return nil, nil, err
	}
	return user, tokens, nil
}

func (s *authService) IssueToken(user *usermodels.User) (*TokenPair, error) {
	now := s.now()
	expiresAt := now.Add(s.tokenTTL)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  user.ID,
		"role": string(user.Role),
		"iat":  now.Unix(),
		"exp":  expiresAt.Unix(),
	})

	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to sign token")
	}
	return &TokenPair{AccessToken: signed, ExpiresAt: expiresAt}, nil
}
