package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type UserRole string

const (
	RoleUser      UserRole = "user"
	RoleModerator UserRole = "moderator"
	RoleAdmin     UserRole = "admin"
	RoleWatcher   UserRole = "watcher"
)

type UserStatus string

const (
	UserStatusActive  UserStatus = "active"
	UserStatusBlocked UserStatus = "blocked"
)

// User представляет пользователя маркетплейса. Баланс меняется только через
// леджер (UserRepository.AdjustBalance), никогда напрямую.
type User struct {
	ID           int64           `json:"id"`
	TelegramID   *int64          `json:"telegram_id,omitempty"`
	Email        *string         `json:"email,omitempty"`
	PasswordHash *string         `json:"-"`
	Username     string          `json:"username"`
	Role         UserRole        `json:"role"`
	Status       UserStatus      `json:"status"`
	Balance      decimal.Decimal `json:"balance"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// IsStaff reports whether the user may review applications and withdrawals.
func (u *User) IsStaff() bool {
	return u.Role == RoleAdmin || u.Role == RoleModerator
}

// UserResponse представляет публичную информацию о пользователе
type UserResponse struct {
	ID        int64           `json:"id"`
	Username  string          `json:"username"`
	Role      UserRole        `json:"role"`
	Status    UserStatus      `json:"status"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
}

// ToResponse готовит публичное представление пользователя
func (u *User) ToResponse() *UserResponse {
	return &UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Role:      u.Role,
		Status:    u.Status,
		Balance:   u.Balance,
		CreatedAt: u.CreatedAt,
	}
}
