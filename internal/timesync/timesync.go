package timesync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/iudanet/steamguard/pkg/api"
)

// DefaultURL - адрес авторитетного сервиса времени
const DefaultURL = "https://api.steampowered.com/ITwoFactorService/QueryTime/v0001"

// IntervalSeconds - длительность интервала генерации кодов
const IntervalSeconds = 30

// errorBackoff - пауза перед повторной синхронизацией после ошибки
const errorBackoff = 300 * time.Second

// ErrorKind классифицирует последнюю ошибку синхронизации
type ErrorKind string

const (
	ErrorNone        ErrorKind = ""             // ошибок не было
	ErrorTimeout     ErrorKind = "timeout"      // сетевой таймаут
	ErrorBadResponse ErrorKind = "bad-response" // не-2xx статус или сетевой сбой
	ErrorBadJSON     ErrorKind = "bad-json"     // некорректное или отсутствующее тело
)

// Common timesync errors
var (
	// ErrSyncInProgress indicates another sync attempt is already running
	ErrSyncInProgress = errors.New("time sync already in progress")

	// ErrBackoff indicates the last failure was too recent to retry
	ErrBackoff = errors.New("time sync in error backoff")
)

// Status is a full consistent snapshot of the sync state
type Status struct {
	Offset        int64     // смещение server - local в секундах
	LastSync      int64     // время последней успешной синхронизации (local epoch)
	LastErrorTime int64     // время последней ошибки (local epoch), 0 если не было
	LastError     ErrorKind // вид последней ошибки
	InProgress    bool      // идет ли синхронизация прямо сейчас
	Synced        bool      // была ли хоть одна успешная синхронизация
}

// Service поддерживает оценку серверного времени: одно общее на процесс
// смещение между локальными и серверными часами, обновляемое по запросу
// или фоном. Часы удаленного сервера — общий внешний факт, поэтому
// состояние не привязано к аккаунту.
type Service struct {
	httpClient *http.Client
	logger     *slog.Logger
	url        string
	now        func() time.Time

	mu            sync.Mutex
	offset        int64
	lastSync      int64
	lastErrorTime int64
	lastError     ErrorKind
	inProgress    bool
	synced        bool
}

// New создает сервис синхронизации времени.
// baseURL обычно DefaultURL, в тестах — httptest сервер.
func New(baseURL string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
		url:        baseURL,
		now:        time.Now,
	}
}

// CurrentTime возвращает скорректированные epoch-секунды по лучшему
// известному смещению, даже устаревшему
func (s *Service) CurrentTime() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now().Unix() + s.offset
}

// CurrentInterval возвращает текущий 30-секундный интервал
func (s *Service) CurrentInterval() int64 {
	return s.CurrentTime() / IntervalSeconds
}

// Synced сообщает, было ли смещение хоть раз успешно установлено
func (s *Service) Synced() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.synced
}

// Status возвращает атомарный снимок состояния синхронизации
func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		Offset:        s.offset,
		LastSync:      s.lastSync,
		LastErrorTime: s.lastErrorTime,
		LastError:     s.lastError,
		InProgress:    s.inProgress,
		Synced:        s.synced,
	}
}

// Sync выполняет одну попытку синхронизации с сервисом времени.
//
// Попытка пропускается (без ошибки для вызывающего), если другая уже
// в полете, либо если последняя ошибка случилась менее 300 секунд
// назад и forceResync не установлен. При любом сбое записывается вид
// ошибки и ее время, а смещение остается прежним — оно никогда не
// сбрасывается в ноль из-за неудачной попытки.
func (s *Service) Sync(ctx context.Context, forceResync bool) error {
	s.mu.Lock()
	if s.inProgress {
		s.mu.Unlock()
		return ErrSyncInProgress
	}
	if !forceResync && s.lastErrorTime != 0 && s.now().Unix()-s.lastErrorTime < int64(errorBackoff.Seconds()) {
		s.mu.Unlock()
		return ErrBackoff
	}
	s.inProgress = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inProgress = false
		s.mu.Unlock()
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, http.NoBody)
	if err != nil {
		s.recordError(ErrorBadResponse)
		return fmt.Errorf("failed to create time sync request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		kind := ErrorBadResponse
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() || errors.Is(err, context.DeadlineExceeded) {
			kind = ErrorTimeout
		}
		s.recordError(kind)
		return fmt.Errorf("time sync request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.recordError(ErrorBadResponse)
		return fmt.Errorf("time sync failed with status %d", resp.StatusCode)
	}

	var body api.TimeQueryResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		s.recordError(ErrorBadJSON)
		return fmt.Errorf("failed to decode time sync response: %w", err)
	}

	// server_time приходит десятичной строкой
	serverTime, err := strconv.ParseInt(body.Response.ServerTime, 10, 64)
	if err != nil {
		s.recordError(ErrorBadJSON)
		return fmt.Errorf("failed to parse server_time %q: %w", body.Response.ServerTime, err)
	}

	// Смещение считается по локальному времени на момент завершения запроса
	local := s.now().Unix()

	s.mu.Lock()
	s.offset = serverTime - local
	s.lastSync = local
	s.lastError = ErrorNone
	s.lastErrorTime = 0
	s.synced = true
	s.mu.Unlock()

	s.logger.Debug("time sync complete", "offset", serverTime-local)
	return nil
}

// SyncInBackground запускает синхронизацию fire-and-forget горутиной.
// Используется генерацией кодов: она никогда не ждет сеть.
func (s *Service) SyncInBackground(forceResync bool) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		if err := s.Sync(ctx, forceResync); err != nil &&
			!errors.Is(err, ErrSyncInProgress) && !errors.Is(err, ErrBackoff) {
			s.logger.Warn("background time sync failed", "error", err)
		}
	}()
}

func (s *Service) recordError(kind ErrorKind) {
	s.mu.Lock()
	s.lastError = kind
	s.lastErrorTime = s.now().Unix()
	s.mu.Unlock()
}
