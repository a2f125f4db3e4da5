package api

import "encoding/json"

// TimeQueryResponse представляет ответ сервиса времени
// Поле server_time вложено в объект "response" и приходит строкой
type TimeQueryResponse struct {
	Response TimeQueryInner `json:"response"`
}

// TimeQueryInner содержит полезную нагрузку ответа сервиса времени
type TimeQueryInner struct {
	// Все числовые поля сервис кодирует десятичными строками
	ServerTime            string `json:"server_time"`             // epoch-секунды сервера
	SkewToleranceSeconds  string `json:"skew_tolerance_seconds"`  // допустимое расхождение часов
	ProbeFrequencySeconds string `json:"probe_frequency_seconds"` // рекомендуемый интервал опроса
	TryAgainSeconds       string `json:"try_again_seconds"`       // пауза перед повторной попыткой
	MaxAttempts           string `json:"max_attempts"`            // максимум попыток синхронизации
}

// RSAKeyResponse представляет ответ на запрос RSA ключа для логина
type RSAKeyResponse struct {
	Success      bool   `json:"success"`        // выдан ли ключ
	PublicKeyMod string `json:"publickey_mod"`  // модуль ключа (hex)
	PublicKeyExp string `json:"publickey_exp"`  // экспонента ключа (hex)
	Timestamp    string `json:"timestamp"`      // токен времени, возвращается в rsatimestamp
	TokenGID     string `json:"token_gid"`      // идентификатор выданного ключа
}

// LoginResponse представляет структурированный ответ логин-эндпоинта.
// Большинство полей опциональны: какие именно присутствуют, зависит от
// исхода попытки (успех, captcha, email, 2FA, ошибка).
type LoginResponse struct {
	Success           bool   `json:"success"`            // общий флаг успеха
	LoginComplete     bool   `json:"login_complete"`     // завершен ли логин полностью
	RequiresTwoFactor bool   `json:"requires_twofactor"` // требуется код Steam Guard
	CaptchaNeeded     bool   `json:"captcha_needed"`     // требуется captcha
	CaptchaGID        string `json:"captcha_gid"`        // идентификатор captcha
	EmailAuthNeeded   bool   `json:"emailauth_needed"`   // требуется код из email
	EmailSteamID      string `json:"emailsteamid"`       // steam id для email-подтверждения
	Message           string `json:"message"`            // человекочитаемое сообщение сервера
	OAuth             string `json:"oauth"`              // вложенный JSON с токенами (строкой)
}

// OAuthSession содержит токены, выданные после успешного логина.
// Протокол кодирует их JSON-строкой внутри поля oauth.
type OAuthSession struct {
	SteamID       string `json:"steamid"`        // идентификатор аккаунта
	OAuthToken    string `json:"oauth_token"`    // access token мобильного клиента
	WGToken       string `json:"wgtoken"`        // сессионный токен (cookie steamLogin)
	WGTokenSecure string `json:"wgtoken_secure"` // сессионный токен (cookie steamLoginSecure)
}

// OAuthData разбирает вложенный oauth-пейлоад.
// Возвращает nil, nil если поле пустое.
func (r *LoginResponse) OAuthData() (*OAuthSession, error) {
	if r.OAuth == "" {
		return nil, nil
	}
	var s OAuthSession
	if err := json.Unmarshal([]byte(r.OAuth), &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// TokenRefreshResponse представляет ответ эндпоинта обновления сессии.
// Два токена используются для формирования cookie вида "<steamid>||<token>".
type TokenRefreshResponse struct {
	Response TokenRefreshInner `json:"response"`
}

// TokenRefreshInner содержит пару сессионных токенов
type TokenRefreshInner struct {
	Token       string `json:"token"`        // значение для cookie steamLogin
	TokenSecure string `json:"token_secure"` // значение для cookie steamLoginSecure
}
