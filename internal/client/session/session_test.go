package session

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/steamguard/internal/guard"
	"github.com/iudanet/steamguard/internal/timesync"
	"github.com/iudanet/steamguard/pkg/api"
)

const testSharedSecretBase64 = "MTIzNDU2Nzg5MGFiY2RlZmdoaWo="

// mockClientAPI - ручной мок транспорта для тестов state machine
type mockClientAPI struct {
	getRSAKeyFunc          func(ctx context.Context, username string) (*api.RSAKeyResponse, error)
	loginFunc              func(ctx context.Context, form url.Values) (*api.LoginResponse, error)
	refreshSessionFunc     func(ctx context.Context, accessToken string) (*api.TokenRefreshResponse, error)
	fetchConfirmationsFunc func(ctx context.Context, query url.Values) ([]byte, error)
	setSessionCookiesFunc  func(steamID, token, tokenSecure string) error

	loginForms []url.Values // все отправленные формы по порядку
}

func (m *mockClientAPI) GetRSAKey(ctx context.Context, username string) (*api.RSAKeyResponse, error) {
	if m.getRSAKeyFunc != nil {
		return m.getRSAKeyFunc(ctx, username)
	}
	return validRSAResponse(), nil
}

func (m *mockClientAPI) Login(ctx context.Context, form url.Values) (*api.LoginResponse, error) {
	m.loginForms = append(m.loginForms, form)
	return m.loginFunc(ctx, form)
}

func (m *mockClientAPI) RefreshSession(ctx context.Context, accessToken string) (*api.TokenRefreshResponse, error) {
	if m.refreshSessionFunc != nil {
		return m.refreshSessionFunc(ctx, accessToken)
	}
	return &api.TokenRefreshResponse{
		Response: api.TokenRefreshInner{Token: "wg-token", TokenSecure: "wg-token-secure"},
	}, nil
}

func (m *mockClientAPI) FetchConfirmations(ctx context.Context, query url.Values) ([]byte, error) {
	if m.fetchConfirmationsFunc != nil {
		return m.fetchConfirmationsFunc(ctx, query)
	}
	return nil, errors.New("not implemented")
}

func (m *mockClientAPI) SetSessionCookies(steamID, token, tokenSecure string) error {
	if m.setSessionCookiesFunc != nil {
		return m.setSessionCookiesFunc(steamID, token, tokenSecure)
	}
	return nil
}

// validRSAResponse - рабочий 1024-битный модуль для шифрования пароля.
// Модуль не обязан быть настоящим ключом: пароль никто не расшифровывает.
func validRSAResponse() *api.RSAKeyResponse {
	// 256 hex символов со старшим битом
	mod := "f" // старший нибл
	for len(mod) < 256 {
		mod += "123456789abcdef0"
	}
	return &api.RSAKeyResponse{
		Success:      true,
		PublicKeyMod: mod[:256],
		PublicKeyExp: "10001",
		Timestamp:    "123450000",
	}
}

func newTestSession(t *testing.T, mock *mockClientAPI) *Session {
	t.Helper()
	ts := timesync.New("http://sync.invalid", slog.Default())
	sess, err := NewSession(mock, guard.NewGenerator(ts), slog.Default(),
		"hydra", "hunter2", testSharedSecretBase64)
	require.NoError(t, err)
	return sess
}

func oauthPayload(steamID, token string) string {
	return `{"steamid":"` + steamID + `","oauth_token":"` + token + `","wgtoken":"wg","wgtoken_secure":"wgs"}`
}

func TestInterpretResponse(t *testing.T) {
	tests := []struct {
		name string
		resp api.LoginResponse
		want State
	}{
		{
			name: "successful login",
			resp: api.LoginResponse{
				Success:       true,
				LoginComplete: true,
				OAuth:         oauthPayload("765611", "tok"),
			},
			want: StateAuthenticated,
		},
		{
			name: "captcha required",
			resp: api.LoginResponse{CaptchaNeeded: true, CaptchaGID: "998877"},
			want: StateNeedCaptcha,
		},
		{
			name: "email code required",
			resp: api.LoginResponse{EmailAuthNeeded: true, EmailSteamID: "765611"},
			want: StateNeedEmail,
		},
		{
			name: "two factor required",
			resp: api.LoginResponse{RequiresTwoFactor: true, Success: false},
			want: StateNeed2FA,
		},
		{
			name: "bad credentials message",
			resp: api.LoginResponse{Message: "The account name or password that you have entered is incorrect."},
			want: StateBadCredentials,
		},
		{
			// Сообщение сервера имеет приоритет над флагом captcha
			name: "bad credentials beats captcha flag",
			resp: api.LoginResponse{
				Message:       "password is incorrect",
				CaptchaNeeded: true,
				CaptchaGID:    "42",
			},
			want: StateBadCredentials,
		},
		{
			name: "too many failures",
			resp: api.LoginResponse{Message: "There have been too many login failures from your network"},
			want: StateTooManyFailures,
		},
		{
			// "too many login failures" проверяется раньше "incorrect"
			name: "too many failures beats bad credentials",
			resp: api.LoginResponse{Message: "too many login failures; password may be incorrect"},
			want: StateTooManyFailures,
		},
		{
			// oauth есть, но login_complete не выставлен
			name: "token without login complete",
			resp: api.LoginResponse{
				Success: true,
				OAuth:   oauthPayload("765611", "tok"),
			},
			want: StateGeneralFailure,
		},
		{
			name: "malformed oauth payload",
			resp: api.LoginResponse{
				Success:       true,
				LoginComplete: true,
				OAuth:         "{not json",
			},
			want: StateGeneralFailure,
		},
		{
			name: "empty response",
			resp: api.LoginResponse{},
			want: StateGeneralFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := InterpretResponse(&tt.resp)
			assert.Equal(t, tt.want, out.State)
		})
	}
}

func TestInterpretResponse_CarriesChallengeData(t *testing.T) {
	out := InterpretResponse(&api.LoginResponse{CaptchaNeeded: true, CaptchaGID: "998877"})
	assert.Equal(t, "998877", out.CaptchaGID)

	out = InterpretResponse(&api.LoginResponse{EmailAuthNeeded: true, EmailSteamID: "765611"})
	assert.Equal(t, "765611", out.EmailSteamID)

	out = InterpretResponse(&api.LoginResponse{
		Success:       true,
		LoginComplete: true,
		OAuth:         oauthPayload("765611", "tok"),
	})
	assert.Equal(t, "765611", out.SteamID)
	assert.Equal(t, "tok", out.OAuthToken)
	assert.Equal(t, "wg", out.WGToken)
	assert.Equal(t, "wgs", out.WGTokenSecure)
}

func TestNewSession_InvalidSecret(t *testing.T) {
	_, err := NewSession(&mockClientAPI{}, nil, nil, "hydra", "hunter2", "not base64!!!")
	require.Error(t, err)

	_, err = NewSession(&mockClientAPI{}, nil, nil, "hydra", "hunter2", "")
	require.Error(t, err)
}

func TestLogin_Success(t *testing.T) {
	var cookieSteamID, cookieToken, cookieSecure string
	mock := &mockClientAPI{
		loginFunc: func(ctx context.Context, form url.Values) (*api.LoginResponse, error) {
			return &api.LoginResponse{
				Success:       true,
				LoginComplete: true,
				OAuth:         oauthPayload("76561198000000", "access-token"),
			}, nil
		},
		setSessionCookiesFunc: func(steamID, token, tokenSecure string) error {
			cookieSteamID, cookieToken, cookieSecure = steamID, token, tokenSecure
			return nil
		},
	}

	sess := newTestSession(t, mock)
	state := sess.Login(context.Background())

	require.Equal(t, StateAuthenticated, state)
	assert.Equal(t, "76561198000000", sess.SteamID())
	assert.Equal(t, "access-token", sess.OAuthToken())
	assert.Empty(t, sess.Warning())

	// Сессионные cookie материализованы из обновленных токенов
	assert.Equal(t, "76561198000000", cookieSteamID)
	assert.Equal(t, "wg-token", cookieToken)
	assert.Equal(t, "wg-token-secure", cookieSecure)

	// Проверяем собранную форму
	require.Len(t, mock.loginForms, 1)
	form := mock.loginForms[0]
	assert.Equal(t, "hydra", form.Get("username"))
	assert.NotEmpty(t, form.Get("password"))
	assert.NotEqual(t, "hunter2", form.Get("password"), "пароль должен быть зашифрован")
	assert.Len(t, form.Get("twofactorcode"), guard.CodeLength)
	assert.Equal(t, "123450000", form.Get("rsatimestamp"))
	assert.Equal(t, "-1", form.Get("captchagid"), "до captcha-challenge отправляется -1")
	assert.Equal(t, "true", form.Get("remember_login"))
	assert.Equal(t, oauthClientID, form.Get("oauth_client_id"))
	assert.Equal(t, oauthScope, form.Get("oauth_scope"))
}

func TestLogin_CaptchaRound(t *testing.T) {
	rsaCalls := 0
	round := 0
	mock := &mockClientAPI{
		loginFunc: func(ctx context.Context, form url.Values) (*api.LoginResponse, error) {
			round++
			if round == 1 {
				return &api.LoginResponse{CaptchaNeeded: true, CaptchaGID: "31337"}, nil
			}
			return &api.LoginResponse{
				Success:       true,
				LoginComplete: true,
				OAuth:         oauthPayload("765611", "tok"),
			}, nil
		},
	}
	mock.getRSAKeyFunc = func(ctx context.Context, username string) (*api.RSAKeyResponse, error) {
		rsaCalls++
		return validRSAResponse(), nil
	}

	sess := newTestSession(t, mock)

	state := sess.Login(context.Background())
	require.Equal(t, StateNeedCaptcha, state)
	assert.Equal(t, "31337", sess.CaptchaGID())
	assert.Equal(t, CaptchaURLBase+"31337", sess.CaptchaURL())

	state = sess.SubmitCaptcha(context.Background(), "BR34D")
	require.Equal(t, StateAuthenticated, state)

	// Второй раунд несет идентификатор и решение captcha,
	// а RSA ключ запрошен заново
	require.Len(t, mock.loginForms, 2)
	assert.Equal(t, "31337", mock.loginForms[1].Get("captchagid"))
	assert.Equal(t, "BR34D", mock.loginForms[1].Get("captcha_text"))
	assert.Equal(t, 2, rsaCalls)
}

func TestLogin_EmailChallenge(t *testing.T) {
	mock := &mockClientAPI{
		loginFunc: func(ctx context.Context, form url.Values) (*api.LoginResponse, error) {
			return &api.LoginResponse{EmailAuthNeeded: true, EmailSteamID: "765611"}, nil
		},
	}

	sess := newTestSession(t, mock)
	state := sess.Login(context.Background())

	require.Equal(t, StateNeedEmail, state)
	assert.Equal(t, "765611", sess.EmailSteamID())
}

func TestLogin_RSARefused(t *testing.T) {
	mock := &mockClientAPI{
		getRSAKeyFunc: func(ctx context.Context, username string) (*api.RSAKeyResponse, error) {
			return &api.RSAKeyResponse{Success: false}, nil
		},
	}

	sess := newTestSession(t, mock)
	state := sess.Login(context.Background())

	require.Equal(t, StateBadRSA, state)
	assert.Len(t, mock.loginForms, 0, "форма не отправляется без RSA ключа")
}

func TestLogin_RSATransportError(t *testing.T) {
	mock := &mockClientAPI{
		getRSAKeyFunc: func(ctx context.Context, username string) (*api.RSAKeyResponse, error) {
			return nil, errors.New("connection refused")
		},
	}

	sess := newTestSession(t, mock)
	state := sess.Login(context.Background())

	require.Equal(t, StateGeneralFailure, state)
	assert.Contains(t, sess.Message(), "connection refused")
}

func TestLogin_SubmitTransportError(t *testing.T) {
	mock := &mockClientAPI{
		loginFunc: func(ctx context.Context, form url.Values) (*api.LoginResponse, error) {
			return nil, errors.New("dial tcp: i/o timeout")
		},
	}

	sess := newTestSession(t, mock)
	state := sess.Login(context.Background())

	require.Equal(t, StateGeneralFailure, state)
	assert.Contains(t, sess.Message(), "login submit failed")
}

func TestLogin_KeyTooSmallForPassword(t *testing.T) {
	mock := &mockClientAPI{
		getRSAKeyFunc: func(ctx context.Context, username string) (*api.RSAKeyResponse, error) {
			// 16-байтовый "ключ" не вмещает пароль с паддингом
			return &api.RSAKeyResponse{
				Success:      true,
				PublicKeyMod: "ffffffffffffffffffffffffffffffff",
				PublicKeyExp: "10001",
			}, nil
		},
	}

	sess := newTestSession(t, mock)
	state := sess.Login(context.Background())

	require.Equal(t, StateBadRSA, state)
	assert.Contains(t, sess.Message(), "password encryption failed")
}

func TestLogin_RefreshFailureIsWarning(t *testing.T) {
	mock := &mockClientAPI{
		loginFunc: func(ctx context.Context, form url.Values) (*api.LoginResponse, error) {
			return &api.LoginResponse{
				Success:       true,
				LoginComplete: true,
				OAuth:         oauthPayload("765611", "tok"),
			}, nil
		},
		refreshSessionFunc: func(ctx context.Context, accessToken string) (*api.TokenRefreshResponse, error) {
			return nil, errors.New("service unavailable")
		},
	}

	sess := newTestSession(t, mock)
	state := sess.Login(context.Background())

	// Неудачное обновление токенов не отменяет аутентификацию
	require.Equal(t, StateAuthenticated, state)
	assert.Equal(t, "tok", sess.OAuthToken())
	assert.Contains(t, sess.Warning(), "session token refresh failed")
}

func TestLogin_TwoFactorRetry(t *testing.T) {
	// Первый раунд: сервер отвергает код, второй: принимает.
	// Сессия переиспользуется между раундами без изменений.
	round := 0
	mock := &mockClientAPI{
		loginFunc: func(ctx context.Context, form url.Values) (*api.LoginResponse, error) {
			round++
			if round == 1 {
				return &api.LoginResponse{RequiresTwoFactor: true, Success: false}, nil
			}
			return &api.LoginResponse{
				Success:       true,
				LoginComplete: true,
				OAuth:         oauthPayload("765611", "tok"),
			}, nil
		},
	}

	sess := newTestSession(t, mock)

	require.Equal(t, StateNeed2FA, sess.Login(context.Background()))
	require.Equal(t, StateAuthenticated, sess.Login(context.Background()))

	// Оба раунда несли одноразовый код
	for _, form := range mock.loginForms {
		require.Len(t, form.Get("twofactorcode"), guard.CodeLength)
	}
}
