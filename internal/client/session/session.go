package session

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	clientapi "github.com/iudanet/steamguard/internal/client/api"
	"github.com/iudanet/steamguard/internal/crypto"
	"github.com/iudanet/steamguard/internal/guard"
	"github.com/iudanet/steamguard/internal/validation"
	"github.com/iudanet/steamguard/pkg/api"
)

// State - терминальное или challenge-состояние попытки логина.
// Любой исход попытки выражается состоянием, не ошибкой: сетевые сбои
// и неожиданные формы ответа схлопываются в StateGeneralFailure с
// сохраненной диагностикой.
type State string

const (
	StateAuthenticated   State = "authenticated"     // логин завершен, токены получены
	StateNeedCaptcha     State = "need-captcha"      // сервер требует captcha
	StateNeed2FA         State = "need-2fa"          // сервер требует код Steam Guard
	StateNeedEmail       State = "need-email"        // сервер требует код из email
	StateBadCredentials  State = "bad-credentials"   // неверные учетные данные
	StateTooManyFailures State = "too-many-failures" // слишком много неудачных попыток
	StateBadRSA          State = "bad-rsa"           // сервер не выдал RSA ключ
	StateGeneralFailure  State = "general-failure"   // транспортный сбой или неизвестная форма ответа
)

func (s State) String() string {
	return string(s)
}

// Протокольные константы мобильного клиента
const (
	oauthClientID = "DE45CD61"
	oauthScope    = "read_profile write_profile read_client write_client"
)

// Маркеры в человекочитаемом сообщении сервера.
// Проверяются до остальных полей: сервер может выставить их вместе
// с флагами captcha/email, и сообщение имеет приоритет.
const (
	markerTooManyFailures = "too many login failures"
	markerBadCredentials  = "incorrect"
)

// CaptchaURLBase - адрес картинки captcha по ее идентификатору
const CaptchaURLBase = "https://steamcommunity.com/public/captcha.php?gid="

// Outcome - результат разбора одного ответа логин-эндпоинта
type Outcome struct {
	State         State
	CaptchaGID    string // при StateNeedCaptcha
	EmailSteamID  string // при StateNeedEmail
	SteamID       string // при StateAuthenticated
	OAuthToken    string // при StateAuthenticated
	WGToken       string // сессионный токен, если сервер прислал сразу
	WGTokenSecure string // secure-вариант сессионного токена
	Message       string // сообщение сервера, передается вызывающему как есть
}

// InterpretResponse разбирает структурированный ответ логин-эндпоинта
// в Outcome. Порядок проверок строгий, первое совпадение выигрывает;
// он вынесен в одну чистую функцию, чтобы приоритет веток был виден
// и проверялся изолированно.
func InterpretResponse(resp *api.LoginResponse) Outcome {
	out := Outcome{Message: resp.Message}

	msg := strings.ToLower(resp.Message)

	switch {
	case strings.Contains(msg, markerTooManyFailures):
		out.State = StateTooManyFailures

	case strings.Contains(msg, markerBadCredentials):
		out.State = StateBadCredentials

	case resp.CaptchaNeeded:
		out.State = StateNeedCaptcha
		out.CaptchaGID = resp.CaptchaGID

	case resp.EmailAuthNeeded:
		out.State = StateNeedEmail
		out.EmailSteamID = resp.EmailSteamID

	case resp.RequiresTwoFactor && !resp.Success:
		out.State = StateNeed2FA

	default:
		oauth, err := resp.OAuthData()
		if err != nil {
			out.State = StateGeneralFailure
			out.Message = fmt.Sprintf("malformed oauth payload: %v", err)
			return out
		}
		if oauth != nil && oauth.OAuthToken != "" && resp.LoginComplete {
			out.State = StateAuthenticated
			out.SteamID = oauth.SteamID
			out.OAuthToken = oauth.OAuthToken
			out.WGToken = oauth.WGToken
			out.WGTokenSecure = oauth.WGTokenSecure
			return out
		}
		out.State = StateGeneralFailure
	}

	return out
}

// Session - состояние одной многораундовой попытки логина.
// Учетные данные неизменны на время жизни сессии; challenge-поля и
// результат мутирует только Login. Вызывающий держит сессию между
// раундами, чтобы досдать ответ на challenge (например текст captcha).
type Session struct {
	api    clientapi.ClientAPI
	codes  *guard.Generator
	logger *slog.Logger

	username     string
	password     string
	sharedSecret []byte

	// mu сериализует попытки: два Login на одной сессии не
	// перемежают мутации ее состояния
	mu sync.Mutex

	captchaGID   string
	captchaText  string
	emailSteamID string

	steamID    string
	oauthToken string
	message    string
	warning    string
}

// NewSession создает сессию логина.
// sharedSecretBase64 декодируется сразу: непригодные учетные данные -
// ошибка конструирования, а не исход попытки.
func NewSession(client clientapi.ClientAPI, codes *guard.Generator, logger *slog.Logger,
	username, password, sharedSecretBase64 string,
) (*Session, error) {
	secret, err := validation.DecodeSecret(sharedSecretBase64)
	if err != nil {
		return nil, fmt.Errorf("invalid shared secret: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		api:          client,
		codes:        codes,
		logger:       logger,
		username:     username,
		password:     password,
		sharedSecret: secret,
	}, nil
}

// Login выполняет одну попытку логина: RSA challenge, шифрование
// пароля, одноразовый код, отправка формы, разбор ответа.
// Шаги строго последовательны; результат всегда состояние.
//
// После StateNeedCaptcha вызывающий досдает решение через
// SubmitCaptcha на той же сессии. RSA ключ при этом запрашивается
// заново: лишний round trip в обмен на отсутствие state о сроке
// жизни challenge.
func (s *Session) Login(ctx context.Context) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	// 1. RSA challenge для username этой сессии
	rsaResp, err := s.api.GetRSAKey(ctx, s.username)
	if err != nil {
		return s.fail(fmt.Sprintf("rsa key fetch failed: %v", err))
	}
	if !rsaResp.Success {
		s.message = "server refused to issue RSA key"
		return StateBadRSA
	}

	// 2. Пароль шифруется под выданным эфемерным ключом.
	// Сбой паддинга фатален для попытки: ключ непригоден.
	encryptedPassword, err := crypto.EncryptPassword(s.password, rsaResp.PublicKeyMod, rsaResp.PublicKeyExp)
	if err != nil {
		s.message = fmt.Sprintf("password encryption failed: %v", err)
		return StateBadRSA
	}

	// 3. Одноразовый код по текущему интервалу
	code := s.codes.GenerateCode(s.sharedSecret)

	// 4. Отправка формы логина
	form := url.Values{}
	form.Set("username", s.username)
	form.Set("password", encryptedPassword)
	form.Set("twofactorcode", code)
	form.Set("rsatimestamp", rsaResp.Timestamp)
	form.Set("captchagid", s.captchaGIDOrDefault())
	form.Set("captcha_text", s.captchaText)
	form.Set("emailsteamid", s.emailSteamID)
	form.Set("remember_login", "true")
	form.Set("oauth_client_id", oauthClientID)
	form.Set("oauth_scope", oauthScope)

	loginResp, err := s.api.Login(ctx, form)
	if err != nil {
		return s.fail(fmt.Sprintf("login submit failed: %v", err))
	}

	// 5. Разбор ответа в строгом порядке приоритета
	out := InterpretResponse(loginResp)
	s.apply(out)

	if out.State == StateAuthenticated {
		s.refreshSession(ctx)
	}
	return out.State
}

// SubmitCaptcha досдает решение captcha и заново входит в раунд логина
// на той же сессии
func (s *Session) SubmitCaptcha(ctx context.Context, captchaText string) State {
	s.mu.Lock()
	s.captchaText = captchaText
	s.mu.Unlock()
	return s.Login(ctx)
}

// refreshSession материализует сессионные cookie после успешного
// логина. Неудача не отменяет аутентификацию — только предупреждение.
func (s *Session) refreshSession(ctx context.Context) {
	refresh, err := s.api.RefreshSession(ctx, s.oauthToken)
	if err != nil {
		s.warning = fmt.Sprintf("session token refresh failed: %v", err)
		s.logger.Warn("session token refresh failed", "error", err)
		return
	}
	if err := s.api.SetSessionCookies(s.steamID, refresh.Response.Token, refresh.Response.TokenSecure); err != nil {
		s.warning = fmt.Sprintf("failed to set session cookies: %v", err)
		s.logger.Warn("failed to set session cookies", "error", err)
	}
}

// apply переносит разобранный исход в состояние сессии
func (s *Session) apply(out Outcome) {
	s.message = out.Message
	switch out.State {
	case StateNeedCaptcha:
		s.captchaGID = out.CaptchaGID
	case StateNeedEmail:
		s.emailSteamID = out.EmailSteamID
	case StateAuthenticated:
		s.steamID = out.SteamID
		s.oauthToken = out.OAuthToken
	}
}

// fail фиксирует транспортный сбой как терминальное состояние,
// сохраняя диагностику для вызывающего
func (s *Session) fail(message string) State {
	s.message = message
	return StateGeneralFailure
}

func (s *Session) captchaGIDOrDefault() string {
	if s.captchaGID == "" {
		return "-1"
	}
	return s.captchaGID
}

// CaptchaGID возвращает идентификатор captcha из последнего ответа
func (s *Session) CaptchaGID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.captchaGID
}

// CaptchaURL возвращает адрес картинки captcha для показа пользователю
func (s *Session) CaptchaURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.captchaGID == "" {
		return ""
	}
	return CaptchaURLBase + s.captchaGID
}

// EmailSteamID возвращает steam id, указанный сервером при email-challenge
func (s *Session) EmailSteamID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.emailSteamID
}

// SteamID возвращает идентификатор аккаунта после успешного логина
func (s *Session) SteamID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.steamID
}

// OAuthToken возвращает access token после успешного логина
func (s *Session) OAuthToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.oauthToken
}

// Message возвращает последнее человекочитаемое сообщение сервера
func (s *Session) Message() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.message
}

// Warning возвращает последнее восстановимое предупреждение
// (например неудачное обновление сессионных токенов)
func (s *Session) Warning() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.warning
}
