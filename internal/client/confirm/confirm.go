package confirm

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	clientapi "github.com/iudanet/steamguard/internal/client/api"
	"github.com/iudanet/steamguard/internal/guard"
	"github.com/iudanet/steamguard/internal/timesync"
	"github.com/iudanet/steamguard/internal/validation"
)

// Теги подписанного запроса списка подтверждений
const (
	// ConfTag - тег подписи для операции листинга
	ConfTag = "conf"
	// PlatformTag - платформа, которой представляется клиент
	PlatformTag = "android"
)

// Confirmation - одна запись из списка подтверждений.
// Поля непрозрачны для ядра: их извлекает внешний парсер HTML.
type Confirmation struct {
	ID          string `json:"id"`          // идентификатор подтверждения
	Key         string `json:"key"`         // ключ для последующего accept/deny
	Title       string `json:"title"`       // заголовок (например название трейда)
	Receiving   string `json:"receiving"`   // что аккаунт получает
	Time        string `json:"time"`        // человекочитаемое время
	Description string `json:"description"` // дополнительное описание
}

//go:generate moq -out parser_mock.go . Parser

// Parser разбирает HTML страницы подтверждений.
// Грамматика документа хрупкая и зависит от версии сервиса, поэтому
// разбор намеренно вынесен за пределы ядра: ядро отвечает только за
// криптографическую подпись запроса.
type Parser interface {
	Parse(html []byte) ([]Confirmation, error)
}

// Builder собирает подписанные query-параметры запроса списка
// подтверждений
type Builder struct {
	timeSync *timesync.Service
}

// NewBuilder создает builder поверх сервиса времени
func NewBuilder(ts *timesync.Service) *Builder {
	return &Builder{timeSync: ts}
}

// Query строит параметры {p, a, k, t, m, tag} для устройства deviceID
// и аккаунта steamID. Подпись считается от сырых скорректированных
// секунд — не от 30-секундного интервала.
func (b *Builder) Query(deviceID, steamID string, identitySecret []byte) url.Values {
	now := b.timeSync.CurrentTime()
	return b.QueryAt(deviceID, steamID, identitySecret, now)
}

// QueryAt строит параметры для заданного момента времени.
// Вынесено отдельно ради детерминированных тестов подписи.
func (b *Builder) QueryAt(deviceID, steamID string, identitySecret []byte, now int64) url.Values {
	q := url.Values{}
	q.Set("p", deviceID)
	q.Set("a", steamID)
	q.Set("k", guard.ConfirmationKey(identitySecret, now, ConfTag))
	q.Set("t", strconv.FormatInt(now, 10))
	q.Set("m", PlatformTag)
	q.Set("tag", ConfTag)
	return q
}

// Service запрашивает список подтверждений: собирает подписанные
// параметры, выполняет GET через транспорт и отдает HTML внешнему
// парсеру. Вызывается только после успешного логина, когда транспорт
// уже держит сессионные cookie.
type Service struct {
	api     clientapi.ClientAPI
	builder *Builder
	parser  Parser
}

// NewService создает сервис подтверждений
func NewService(client clientapi.ClientAPI, builder *Builder, parser Parser) *Service {
	return &Service{
		api:     client,
		builder: builder,
		parser:  parser,
	}
}

// List возвращает текущие подтверждения аккаунта
func (s *Service) List(ctx context.Context, deviceID, steamID, identitySecretBase64 string) ([]Confirmation, error) {
	identitySecret, err := validation.DecodeSecret(identitySecretBase64)
	if err != nil {
		return nil, fmt.Errorf("invalid identity secret: %w", err)
	}

	query := s.builder.Query(deviceID, steamID, identitySecret)

	html, err := s.api.FetchConfirmations(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch confirmations: %w", err)
	}

	confirmations, err := s.parser.Parse(html)
	if err != nil {
		return nil, fmt.Errorf("failed to parse confirmations page: %w", err)
	}
	return confirmations, nil
}
