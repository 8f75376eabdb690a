package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/busybox42/relaycheck/internal/dnsbl"
	"github.com/busybox42/relaycheck/internal/logging"
	"github.com/busybox42/relaycheck/internal/prefs"
)

// tableResolver answers from a fixed table; everything else is not-found
type tableResolver struct {
	mu      sync.Mutex
	answers map[string][]string
}

func (f *tableResolver) LookupHost(_ context.Context, host string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if addrs, ok := f.answers[host]; ok {
		return addrs, nil
	}
	return nil, &net.DNSError{Err: "no such host", Name: host, IsNotFound: true}
}

func newTestServer(t *testing.T, config Config) (*Server, *dnsbl.Registry) {
	t.Helper()

	resolver := &tableResolver{answers: map[string][]string{
		"mail.junk.example":          {"192.0.2.9"},
		"9.2.0.192.zen.spamhaus.org": {"127.0.0.2"},
		"mail.clean.example":         {"198.51.100.1"},
	}}

	store := prefs.NewMemory()
	cache := dnsbl.NewCache(time.Hour)
	registry := dnsbl.NewRegistry(store, cache, logging.Nop())
	checker := dnsbl.NewChecker(registry, cache, resolver, logging.Nop())

	return NewServer(config, checker, registry, logging.Nop()), registry
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestHandleCheck(t *testing.T) {
	server, _ := newTestServer(t, Config{})

	w := doJSON(t, server.Handler(), "POST", "/api/check", CheckRequest{
		Received: []string{"from mail.junk.example by mx.example.org with ESMTP"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp CheckResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.True(t, resp.Known)
	assert.True(t, resp.Junk)
	assert.Equal(t, "mail.junk.example", resp.Host)
}

func TestHandleCheckUnknown(t *testing.T) {
	server, _ := newTestServer(t, Config{})

	w := doJSON(t, server.Handler(), "POST", "/api/check", CheckRequest{
		Received: []string{"by mx.example.org with ESMTP"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp CheckResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.False(t, resp.Known)
}

func TestHandleCheckBadBody(t *testing.T) {
	server, _ := newTestServer(t, Config{})

	req := httptest.NewRequest("POST", "/api/check", bytes.NewReader([]byte("{not json")))
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleListBlocklists(t *testing.T) {
	server, _ := newTestServer(t, Config{})

	w := doJSON(t, server.Handler(), "GET", "/api/blocklists", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var infos []BlocklistInfo
	require.NoError(t, json.NewDecoder(w.Body).Decode(&infos))
	require.Len(t, infos, 4)
	assert.Equal(t, "Spamhaus/zen", infos[0].Name)
	assert.True(t, infos[0].Enabled)
	assert.Equal(t, "Barracuda", infos[3].Name)
	assert.False(t, infos[3].Enabled)
}

func TestHandleSetBlocklist(t *testing.T) {
	server, registry := newTestServer(t, Config{})

	w := doJSON(t, server.Handler(), "PUT", "/api/blocklists/Barracuda", SetBlocklistRequest{Enabled: true})
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.True(t, registry.IsEnabled(context.Background(), registry.Find("Barracuda")))

	// list names may contain a slash (Spamhaus/zen)
	w = doJSON(t, server.Handler(), "PUT", "/api/blocklists/Spamhaus/zen", SetBlocklistRequest{Enabled: false})
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.False(t, registry.IsEnabled(context.Background(), registry.Find("Spamhaus/zen")))

	w = doJSON(t, server.Handler(), "PUT", "/api/blocklists/Nonexistent", SetBlocklistRequest{Enabled: true})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleResetBlocklists(t *testing.T) {
	server, registry := newTestServer(t, Config{})
	ctx := context.Background()

	require.NoError(t, registry.SetEnabled(ctx, registry.Find("Barracuda"), true))

	w := doJSON(t, server.Handler(), "POST", "/api/blocklists/reset", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.False(t, registry.IsEnabled(ctx, registry.Find("Barracuda")))
}

func TestHandleHealth(t *testing.T) {
	server, _ := newTestServer(t, Config{})

	w := doJSON(t, server.Handler(), "GET", "/api/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestMetricsEndpoint(t *testing.T) {
	server, _ := newTestServer(t, Config{})

	w := doJSON(t, server.Handler(), "GET", "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBasicAuth(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)

	server, _ := newTestServer(t, Config{
		AuthEnabled:  true,
		AuthUser:     "admin",
		AuthPassword: string(hash),
	})

	// no credentials
	w := doJSON(t, server.Handler(), "GET", "/api/blocklists", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// wrong password
	req := httptest.NewRequest("GET", "/api/blocklists", nil)
	req.SetBasicAuth("admin", "wrong")
	w = httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// valid credentials
	req = httptest.NewRequest("GET", "/api/blocklists", nil)
	req.SetBasicAuth("admin", "secret")
	w = httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	// request ids are attached even to unauthenticated requests
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}
