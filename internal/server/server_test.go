package server

import (
	"context"
	"net/http"
	"testing"
	"time"

	"billboard-realtime/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHTTPServer(t *testing.T) {
	cfg := config.Config{Port: 4321, JWTSecret: "x"}
	srv := NewHTTPServer(cfg, http.NewServeMux())
	assert.Equal(t, ":4321", srv.Addr)
	assert.Equal(t, 5*time.Second, srv.ReadHeaderTimeout)
}

func TestRunStopsOnCancel(t *testing.T) {
	cfg := config.Config{Port: 0, JWTSecret: "x"}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- Run(ctx, cfg, http.NewServeMux()) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
