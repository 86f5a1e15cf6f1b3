package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"billboard-realtime/internal/auth"
	"billboard-realtime/internal/hub"
	"billboard-realtime/internal/socketio"
	"billboard-realtime/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTokenConfig = auth.TokenConfig{Secret: "secret", Expiry: time.Hour, Issuer: "test"}

type stack struct {
	store  *store.Store
	hub    *hub.Hub
	router *gin.Engine
}

func newStack(t *testing.T, devTokens bool) *stack {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st, err := store.Open(store.DriverSQLite, "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	require.NoError(t, st.Migrate())
	t.Cleanup(func() { _ = st.Close() })

	transports := hub.NewTransportTable()
	h := hub.New(hub.Deps{Oracle: st, Transports: transports})
	sio := socketio.NewServer(socketio.Deps{
		Hub:         h,
		Transports:  transports,
		Receipts:    st,
		TokenConfig: testTokenConfig,
	})
	r := NewRouter(Deps{
		Store:           st,
		Hub:             h,
		SocketIO:        sio,
		TokenConfig:     testTokenConfig,
		Version:         "test",
		EnableDevTokens: devTokens,
	})
	return &stack{store: st, hub: h, router: r}
}

func (s *stack) request(t *testing.T, method, path, token string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func tokenFor(t *testing.T, userID, role string) string {
	t.Helper()
	tok, err := auth.CreateTokenWithRole(userID, role, testTokenConfig)
	require.NoError(t, err)
	return tok
}

func TestHealth(t *testing.T) {
	s := newStack(t, false)
	w := s.request(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ok":true`)
}

func TestVersionReportsHubCounters(t *testing.T) {
	s := newStack(t, false)
	s.hub.Register("conn-1")
	s.hub.Authenticate("conn-1", "user-1")

	w := s.request(t, http.MethodGet, "/version", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var out struct {
		Version     string `json:"version"`
		Instance    string `json:"instance"`
		Connections int    `json:"connections"`
		OnlineUsers int    `json:"onlineUsers"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, "test", out.Version)
	assert.Equal(t, s.hub.InstanceID(), out.Instance)
	assert.Equal(t, 1, out.Connections)
	assert.Equal(t, 1, out.OnlineUsers)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newStack(t, false)
	for _, path := range []string{"/v1/conversations", "/v1/notifications", "/v1/presence"} {
		w := s.request(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}

func TestDevTokensAreOptIn(t *testing.T) {
	off := newStack(t, false)
	w := off.request(t, http.MethodPost, "/v1/auth/token", "", gin.H{"userId": "user-1"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	on := newStack(t, true)
	w = on.request(t, http.MethodPost, "/v1/auth/token", "", gin.H{"userId": "user-1", "role": "owner"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var out struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))

	w = on.request(t, http.MethodPost, "/v1/billboards", out.Token, gin.H{"title": "M3 Lightbox"})
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestBillboardCreateNeedsOwnerRole(t *testing.T) {
	s := newStack(t, false)
	w := s.request(t, http.MethodPost, "/v1/billboards", tokenFor(t, "adv-1", auth.RoleAdvertiser), gin.H{"title": "x"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = s.request(t, http.MethodPost, "/v1/billboards", tokenFor(t, "own-1", auth.RoleOwner), gin.H{"title": "x"})
	assert.Equal(t, http.StatusCreated, w.Code)
}
