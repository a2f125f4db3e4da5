package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/steamguard/internal/guard"
	"github.com/iudanet/steamguard/internal/timesync"
)

func TestRunSync_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"response":{"server_time":"%d"}}`, time.Now().Unix())
	}))
	defer srv.Close()

	c, io, _ := newTestCli(t, nil)
	c.timeSync = timesync.New(srv.URL, slog.Default())
	c.codes = guard.NewGenerator(c.timeSync)

	require.NoError(t, c.Run(context.Background(), "sync", nil))

	out := io.output.String()
	assert.Contains(t, out, "Syncing time with Steam servers...")
	assert.Contains(t, out, "Synced, clock offset is")
	assert.True(t, c.timeSync.Synced())
}

func TestRunSync_Failure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c, _, _ := newTestCli(t, nil)
	c.timeSync = timesync.New(srv.URL, slog.Default())
	c.codes = guard.NewGenerator(c.timeSync)

	err := c.Run(context.Background(), "sync", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "time sync failed")
}

func TestRunSync_ForcesResyncDespiteBackoff(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprintf(w, `{"response":{"server_time":"%d"}}`, time.Now().Unix())
	}))
	defer srv.Close()

	c, _, _ := newTestCli(t, nil)
	c.timeSync = timesync.New(srv.URL, slog.Default())
	c.codes = guard.NewGenerator(c.timeSync)

	// Первая попытка падает и взводит backoff, но команда sync
	// принудительная: вторая попытка уходит на сервер сразу
	require.Error(t, c.Run(context.Background(), "sync", nil))
	require.NoError(t, c.Run(context.Background(), "sync", nil))
	assert.Equal(t, 2, calls)
}
