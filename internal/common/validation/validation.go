package validation

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	// Максимальные длины для различных полей
	MaxNameLength        = 200
	MaxDescriptionLength = 1000
	MaxUsernameLength    = 32
	MinUsernameLength    = 5
)

// Telegram username regex (буквы, цифры, подчеркивания, 5-32 символа)
var telegramUsernameRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]{4,31}$`)

// Строго десятичное число без знака, без ведущих нулей
var strictIntRegex = regexp.MustCompile(`^[1-9][0-9]*$`)

// ValidateName проверяет название канала
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if len(name) > MaxNameLength {
		return fmt.Errorf("name cannot exceed %d characters", MaxNameLength)
	}
	return nil
}

// ValidateDescription проверяет описание
func ValidateDescription(description string) error {
	description = strings.TrimSpace(description)
	if description == "" {
		return fmt.Errorf("description cannot be empty")
	}
	if len(description) > MaxDescriptionLength {
		return fmt.Errorf("description cannot exceed %d characters", MaxDescriptionLength)
	}
	return nil
}

// ValidateChannelUsername проверяет Telegram username канала
func ValidateChannelUsername(username string) error {
	username = strings.TrimSpace(strings.TrimPrefix(username, "@"))
	if username == "" {
		return fmt.Errorf("username cannot be empty")
	}
	if !telegramUsernameRegex.MatchString(username) {
		return fmt.Errorf("username must start with a letter and contain only letters, numbers and underscores, %d-%d characters",
			MinUsernameLength, MaxUsernameLength)
	}
	return nil
}

// IsValidChannelUsername проверяет валидность username канала
func IsValidChannelUsername(username string) bool {
	return ValidateChannelUsername(username) == nil
}

// ParseStrictPositiveInt разбирает строго положительное целое из строки.
// Отклоняет ведущие нули ("010"), знаки и любые нечисловые символы,
// чтобы не было тихой коэрции некорректного ввода.
func ParseStrictPositiveInt(s string) (int, error) {
	s = strings.TrimSpace(s)
	if !strictIntRegex.MatchString(s) {
		return 0, fmt.Errorf("malformed positive integer: %q", s)
	}
	n := 0
	for _, r := range s {
		n = n*10 + int(r-'0')
		if n > 1<<30 {
			return 0, fmt.Errorf("integer out of range: %q", s)
		}
	}
	return n, nil
}
