package clinicsdk

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// recordingNavigator captures route changes for assertions.
type recordingNavigator struct {
	mu     sync.Mutex
	routes []string
}

func (n *recordingNavigator) NavigateTo(route string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.routes = append(n.routes, route)
}

func (n *recordingNavigator) Routes() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.routes...)
}

// recordingNotifier captures user-facing messages for assertions.
type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) Notify(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, msg)
}

func (n *recordingNotifier) Messages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.messages...)
}

// forgeToken builds an unsigned JWT; the client never verifies signatures.
func forgeToken(t *testing.T, claims map[string]any) string {
	t.Helper()

	header, err := json.Marshal(map[string]string{"alg": "none", "typ": "JWT"})
	require.NoError(t, err)
	payload, err := json.Marshal(claims)
	require.NoError(t, err)

	return base64.RawURLEncoding.EncodeToString(header) + "." +
		base64.RawURLEncoding.EncodeToString(payload) + "."
}

func expiredToken(t *testing.T, subject string) string {
	t.Helper()
	return forgeToken(t, map[string]any{"nameid": subject, "exp": 1000})
}

func liveToken(t *testing.T, subject string) string {
	t.Helper()
	return forgeToken(t, map[string]any{
		"nameid": subject,
		"exp":    time.Now().Add(time.Hour).Unix(),
	})
}

// testEnv is a client wired against an httptest server with recording fakes.
type testEnv struct {
	sdk       *SDKClient
	server    *httptest.Server
	navigator *recordingNavigator
	notifier  *recordingNotifier
}

func newTestEnv(t *testing.T, handler http.Handler) *testEnv {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	nav := &recordingNavigator{}
	notify := &recordingNotifier{}
	sdk := New(Config{
		BaseURL:   server.URL,
		Navigator: nav,
		Notifier:  notify,
	})

	return &testEnv{sdk: sdk, server: server, navigator: nav, notifier: notify}
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, body any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(body))
}
