package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/iudanet/steamguard/pkg/api"
)

// Адреса сервисов Steam
const (
	// DefaultCommunityURL - базовый адрес community-сервиса (логин, confirmations)
	DefaultCommunityURL = "https://steamcommunity.com"
	// DefaultAPIURL - базовый адрес Web API (обновление сессии)
	DefaultAPIURL = "https://api.steampowered.com"
)

// Заголовки, идентифицирующие мобильный клиент.
// Без них community-сервис не выдает мобильные confirmation-страницы.
const (
	userAgent = "Mozilla/5.0 (Linux; U; Android 4.1.1; en-us; " +
		"Google Nexus 4 - 4.1.1 - API 16 - 768x1280 Build/JRO03S) " +
		"AppleWebKit/534.30 (KHTML, like Gecko) Version/4.0 Mobile Safari/534.30"
	requestedWith = "com.valvesoftware.android.steam.community"
)

//go:generate moq -out client_mock.go . ClientAPI

// ClientAPI определяет транспортные операции, нужные ядру аутентификации.
// Интерфейс позволяет подменять транспорт в тестах state machine.
type ClientAPI interface {
	// GetRSAKey запрашивает эфемерный RSA ключ для логина username
	GetRSAKey(ctx context.Context, username string) (*api.RSAKeyResponse, error)

	// Login отправляет собранную форму на логин-эндпоинт
	Login(ctx context.Context, form url.Values) (*api.LoginResponse, error)

	// RefreshSession обменивает oauth token на пару сессионных токенов
	RefreshSession(ctx context.Context, accessToken string) (*api.TokenRefreshResponse, error)

	// FetchConfirmations выполняет GET списка подтверждений и возвращает
	// сырой HTML; разбор документа — забота внешнего парсера
	FetchConfirmations(ctx context.Context, query url.Values) ([]byte, error)

	// SetSessionCookies выставляет сессионные cookie вида "<steamid>||<token>"
	SetSessionCookies(steamID, token, tokenSecure string) error
}

// Client представляет HTTP транспорт к сервисам Steam.
// Владеет cookie jar: сессионные cookie живут здесь, ядро их не видит.
type Client struct {
	httpClient   *http.Client
	communityURL string
	apiURL       string
}

// Compile-time check that Client implements ClientAPI
var _ ClientAPI = (*Client)(nil)

// NewClient создает новый транспорт.
// communityURL и apiURL обычно Default*, в тестах — httptest серверы.
func NewClient(communityURL, apiURL string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	c := &Client{
		httpClient: &http.Client{
			Jar:     jar,
			Timeout: 30 * time.Second,
		},
		communityURL: communityURL,
		apiURL:       apiURL,
	}

	if err := c.setMobileCookies(); err != nil {
		return nil, err
	}
	return c, nil
}

// setMobileCookies выставляет cookie, которыми мобильное приложение
// представляется community-сервису
func (c *Client) setMobileCookies() error {
	base, err := url.Parse(c.communityURL)
	if err != nil {
		return fmt.Errorf("invalid community URL: %w", err)
	}
	c.httpClient.Jar.SetCookies(base, []*http.Cookie{
		{Name: "mobileClientVersion", Value: "0 (2.1.3)"},
		{Name: "mobileClient", Value: "android"},
		{Name: "Steam_Language", Value: "english"},
	})
	return nil
}

// GetRSAKey запрашивает RSA ключ для логина указанного username
func (c *Client) GetRSAKey(ctx context.Context, username string) (*api.RSAKeyResponse, error) {
	form := url.Values{}
	form.Set("username", username)

	var resp api.RSAKeyResponse
	if err := c.postForm(ctx, c.communityURL+"/login/getrsakey", form, &resp); err != nil {
		return nil, fmt.Errorf("rsa key request failed: %w", err)
	}
	return &resp, nil
}

// Login отправляет форму логина, собранную state machine
func (c *Client) Login(ctx context.Context, form url.Values) (*api.LoginResponse, error) {
	var resp api.LoginResponse
	if err := c.postForm(ctx, c.communityURL+"/login/dologin/", form, &resp); err != nil {
		return nil, fmt.Errorf("login request failed: %w", err)
	}
	return &resp, nil
}

// RefreshSession обменивает oauth token на сессионные токены
func (c *Client) RefreshSession(ctx context.Context, accessToken string) (*api.TokenRefreshResponse, error) {
	form := url.Values{}
	form.Set("access_token", accessToken)

	var resp api.TokenRefreshResponse
	if err := c.postForm(ctx, c.apiURL+"/IMobileAuthService/GetWGToken/v0001", form, &resp); err != nil {
		return nil, fmt.Errorf("session refresh request failed: %w", err)
	}
	return &resp, nil
}

// FetchConfirmations выполняет подписанный GET списка подтверждений.
// Тело ответа (HTML) возвращается как есть для внешнего парсера.
func (c *Client) FetchConfirmations(ctx context.Context, query url.Values) ([]byte, error) {
	reqURL := c.communityURL + "/mobileconf/conf?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("confirmations request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("confirmations request failed with status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read confirmations body: %w", err)
	}
	return body, nil
}

// SetSessionCookies материализует сессию после логина.
// Значения cookie имеют форму "<steamid>||<token>".
func (c *Client) SetSessionCookies(steamID, token, tokenSecure string) error {
	base, err := url.Parse(c.communityURL)
	if err != nil {
		return fmt.Errorf("invalid community URL: %w", err)
	}
	c.httpClient.Jar.SetCookies(base, []*http.Cookie{
		{Name: "steamLogin", Value: steamID + "||" + token},
		{Name: "steamLoginSecure", Value: steamID + "||" + tokenSecure, Secure: true},
	})
	return nil
}

// postForm выполняет form-encoded POST и декодирует JSON ответ
func (c *Client) postForm(ctx context.Context, reqURL string, form url.Values, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Requested-With", requestedWith)
	req.Header.Set("Accept", "text/javascript, text/html, application/xml, text/xml, */*")
}
