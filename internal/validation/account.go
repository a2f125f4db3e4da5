package validation

import (
	"encoding/base64"
	"fmt"
	"regexp"
)

// NamePattern определяет допустимый формат имени аккаунта.
// Латинские буквы, цифры, подчеркивание, точка и дефис, 1-64 символа
var NamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]{1,64}$`)

const (
	// MaxNameLen максимальная длина имени аккаунта
	MaxNameLen = 64
)

// ValidateAccountName проверяет имя аккаунта в локальном хранилище
func ValidateAccountName(name string) error {
	if name == "" {
		return fmt.Errorf("account name cannot be empty")
	}

	if len(name) > MaxNameLen {
		return fmt.Errorf("account name must not exceed %d characters", MaxNameLen)
	}

	if !NamePattern.MatchString(name) {
		return fmt.Errorf("account name can only contain letters, numbers, underscores, dots and dashes")
	}

	return nil
}

// DecodeSecret декодирует base64-секрет аккаунта (shared или identity).
// Некорректная кодировка или пустой результат — ошибка конструирования:
// такие учетные данные непригодны для использования.
func DecodeSecret(secretBase64 string) ([]byte, error) {
	secret, err := base64.StdEncoding.DecodeString(secretBase64)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 secret: %w", err)
	}
	if len(secret) == 0 {
		return nil, fmt.Errorf("secret cannot be empty")
	}
	return secret, nil
}
