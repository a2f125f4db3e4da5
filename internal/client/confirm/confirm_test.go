package confirm

import (
	"context"
	"encoding/base64"
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/steamguard/internal/timesync"
	"github.com/iudanet/steamguard/pkg/api"
)

// testIdentityBase64 - "0123456789abcdefghij" в base64
const testIdentityBase64 = "MDEyMzQ1Njc4OWFiY2RlZmdoaWo="

func testIdentity(t *testing.T) []byte {
	t.Helper()
	secret, err := base64.StdEncoding.DecodeString(testIdentityBase64)
	require.NoError(t, err)
	return secret
}

func TestBuilder_QueryAt(t *testing.T) {
	b := NewBuilder(timesync.New(timesync.DefaultURL, nil))

	q := b.QueryAt("android:d1", "76561198000000", testIdentity(t), 1000)

	assert.Equal(t, "android:d1", q.Get("p"))
	assert.Equal(t, "76561198000000", q.Get("a"))
	assert.Equal(t, "1000", q.Get("t"))
	assert.Equal(t, PlatformTag, q.Get("m"))
	assert.Equal(t, ConfTag, q.Get("tag"))

	// Контрольная подпись для identity secret + t=1000 + tag=conf
	assert.Equal(t, "SbzjXhNdJv6jJ02ChzSrhPxh7SE=", q.Get("k"))
}

func TestBuilder_QuerySignsRawSeconds(t *testing.T) {
	b := NewBuilder(timesync.New(timesync.DefaultURL, nil))
	identity := testIdentity(t)

	// Подпись считается от секунд, не от 30-секундного интервала:
	// моменты внутри одного интервала дают разные подписи
	q1 := b.QueryAt("d", "a", identity, 1000)
	q2 := b.QueryAt("d", "a", identity, 1001)

	assert.NotEqual(t, q1.Get("k"), q2.Get("k"))
	assert.Equal(t, "1000", q1.Get("t"))
	assert.Equal(t, "1001", q2.Get("t"))
}

// mockTransport реализует транспорт для тестов сервиса
type mockTransport struct {
	fetchFunc func(ctx context.Context, query url.Values) ([]byte, error)
}

func (m *mockTransport) GetRSAKey(ctx context.Context, username string) (*api.RSAKeyResponse, error) {
	return nil, errors.New("not implemented")
}

func (m *mockTransport) Login(ctx context.Context, form url.Values) (*api.LoginResponse, error) {
	return nil, errors.New("not implemented")
}

func (m *mockTransport) RefreshSession(ctx context.Context, accessToken string) (*api.TokenRefreshResponse, error) {
	return nil, errors.New("not implemented")
}

func (m *mockTransport) FetchConfirmations(ctx context.Context, query url.Values) ([]byte, error) {
	return m.fetchFunc(ctx, query)
}

func (m *mockTransport) SetSessionCookies(steamID, token, tokenSecure string) error {
	return nil
}

// mockParser реализует Parser для тестов сервиса
type mockParser struct {
	parseFunc func(html []byte) ([]Confirmation, error)
}

func (m *mockParser) Parse(html []byte) ([]Confirmation, error) {
	return m.parseFunc(html)
}

func TestService_List(t *testing.T) {
	page := []byte("<html>conf page</html>")
	want := []Confirmation{
		{ID: "101", Key: "202", Title: "Trade with alice"},
		{ID: "103", Key: "204", Title: "Market listing"},
	}

	var gotQuery url.Values
	transport := &mockTransport{
		fetchFunc: func(ctx context.Context, query url.Values) ([]byte, error) {
			gotQuery = query
			return page, nil
		},
	}
	parser := &mockParser{
		parseFunc: func(html []byte) ([]Confirmation, error) {
			assert.Equal(t, page, html)
			return want, nil
		},
	}

	svc := NewService(transport, NewBuilder(timesync.New(timesync.DefaultURL, nil)), parser)

	got, err := svc.List(context.Background(), "android:d1", "76561198000000", testIdentityBase64)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// Запрос подписан и адресован нужному аккаунту
	require.NotNil(t, gotQuery)
	assert.Equal(t, "android:d1", gotQuery.Get("p"))
	assert.Equal(t, "76561198000000", gotQuery.Get("a"))
	assert.NotEmpty(t, gotQuery.Get("k"))
	assert.NotEmpty(t, gotQuery.Get("t"))
}

func TestService_List_InvalidSecret(t *testing.T) {
	svc := NewService(&mockTransport{}, NewBuilder(timesync.New(timesync.DefaultURL, nil)), &mockParser{})

	_, err := svc.List(context.Background(), "d", "a", "not-base64!!!")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid identity secret")
}

func TestService_List_FetchError(t *testing.T) {
	transport := &mockTransport{
		fetchFunc: func(ctx context.Context, query url.Values) ([]byte, error) {
			return nil, errors.New("status 403")
		},
	}
	svc := NewService(transport, NewBuilder(timesync.New(timesync.DefaultURL, nil)), &mockParser{})

	_, err := svc.List(context.Background(), "d", "a", testIdentityBase64)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to fetch confirmations")
}

func TestService_List_ParseError(t *testing.T) {
	transport := &mockTransport{
		fetchFunc: func(ctx context.Context, query url.Values) ([]byte, error) {
			return []byte("<html>unexpected layout</html>"), nil
		},
	}
	parser := &mockParser{
		parseFunc: func(html []byte) ([]Confirmation, error) {
			return nil, errors.New("unrecognized markup")
		},
	}
	svc := NewService(transport, NewBuilder(timesync.New(timesync.DefaultURL, nil)), parser)

	_, err := svc.List(context.Background(), "d", "a", testIdentityBase64)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse confirmations page")
}
