package clinicsdk

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cxxyao2/eclinic-v2/pkg/slogx"
	"github.com/cxxyao2/eclinic-v2/pkg/tokenstore"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestTransportNoTokenSendsUnauthenticated(t *testing.T) {
	t.Parallel()

	var sawAuth atomic.Bool
	mux := http.NewServeMux()
	mux.HandleFunc("GET /patients", func(w http.ResponseWriter, r *http.Request) {
		sawAuth.Store(r.Header.Get("Authorization") != "")
		require.NotEmpty(t, r.Header.Get("X-Request-Id"))
		writeJSON(t, w, http.StatusOK, map[string]any{"data": []any{}})
	})

	env := newTestEnv(t, mux)

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, env.server.URL+"/patients", nil)
	require.NoError(t, err)
	resp, err := env.sdk.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	require.False(t, sawAuth.Load())
}

func TestTransportAttachesLiveToken(t *testing.T) {
	t.Parallel()

	token := make(chan string, 1)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /patients", func(w http.ResponseWriter, r *http.Request) {
		token <- r.Header.Get("Authorization")
		writeJSON(t, w, http.StatusOK, map[string]any{"data": []any{}})
	})

	env := newTestEnv(t, mux)
	live := liveToken(t, "7")
	env.sdk.Tokens().Set(live)

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, env.server.URL+"/patients", nil)
	require.NoError(t, err)
	resp, err := env.sdk.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	require.Equal(t, "Bearer "+live, <-token)
}

func TestTransportProactiveRefreshBeforeSend(t *testing.T) {
	t.Parallel()

	fresh := liveToken(t, "7")
	var refreshes, sends atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/refresh-token", func(w http.ResponseWriter, r *http.Request) {
		refreshes.Add(1)
		writeJSON(t, w, http.StatusOK, TokenResponse{AccessToken: fresh})
	})
	mux.HandleFunc("GET /patients", func(w http.ResponseWriter, r *http.Request) {
		sends.Add(1)
		// The refreshed credential must already be attached.
		require.Equal(t, "Bearer "+fresh, r.Header.Get("Authorization"))
		writeJSON(t, w, http.StatusOK, map[string]any{"data": []any{}})
	})

	env := newTestEnv(t, mux)
	env.sdk.Tokens().Set(expiredToken(t, "7"))

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, env.server.URL+"/patients", nil)
	require.NoError(t, err)
	resp, err := env.sdk.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	require.EqualValues(t, 1, refreshes.Load())
	require.EqualValues(t, 1, sends.Load(), "proactive refresh precedes the only send")
}

func TestTransportRefreshesSubjectlessCredential(t *testing.T) {
	t.Parallel()

	fresh := liveToken(t, "7")
	var refreshes, sends atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/refresh-token", func(w http.ResponseWriter, r *http.Request) {
		refreshes.Add(1)
		writeJSON(t, w, http.StatusOK, TokenResponse{AccessToken: fresh})
	})
	mux.HandleFunc("GET /patients", func(w http.ResponseWriter, r *http.Request) {
		sends.Add(1)
		require.Equal(t, "Bearer "+fresh, r.Header.Get("Authorization"))
		writeJSON(t, w, http.StatusOK, map[string]any{"data": []any{}})
	})

	env := newTestEnv(t, mux)
	// Unexpired, decodable, but carrying no subject claim at all.
	env.sdk.Tokens().Set(forgeToken(t, map[string]any{
		"exp": time.Now().Add(time.Hour).Unix(),
	}))

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, env.server.URL+"/patients", nil)
	require.NoError(t, err)
	resp, err := env.sdk.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	require.EqualValues(t, 1, refreshes.Load(), "subject-less credential is exchanged, not attached")
	require.EqualValues(t, 1, sends.Load())
}

func TestTransportContextCarriesRequestLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	var wireID string
	base := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		wireID = r.Header.Get("X-Request-Id")
		slogx.FromContext(r.Context()).Info("dialing backend")
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader("{}")),
			Request:    r,
		}, nil
	})

	tokens := tokenstore.NewMemory()
	tokens.Set(liveToken(t, "7"))
	transport := newAuthTransport(base, tokens, nil, logger)

	req, err := http.NewRequest(http.MethodGet, "http://clinic.invalid/patients", nil)
	require.NoError(t, err)
	resp, err := transport.RoundTrip(req)
	require.NoError(t, err)
	resp.Body.Close()

	require.NotEmpty(t, wireID)
	require.Contains(t, buf.String(), "req_id="+wireID, "context logger carries the id stamped on the wire")
}

func TestTransportRetriesOnceAfter401(t *testing.T) {
	t.Parallel()

	fresh := liveToken(t, "7")
	var refreshes, sends atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/refresh-token", func(w http.ResponseWriter, r *http.Request) {
		refreshes.Add(1)
		writeJSON(t, w, http.StatusOK, TokenResponse{AccessToken: fresh})
	})
	mux.HandleFunc("POST /consultations", func(w http.ResponseWriter, r *http.Request) {
		sends.Add(1)
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.JSONEq(t, `{"patientId":3}`, string(body), "retry must replay the body")

		if r.Header.Get("Authorization") != "Bearer "+fresh {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeJSON(t, w, http.StatusCreated, map[string]any{"data": map[string]any{"id": 1}})
	})

	env := newTestEnv(t, mux)
	// Live by local clock, already revoked server-side.
	env.sdk.Tokens().Set(liveToken(t, "stale"))

	var created dataEnvelope[map[string]any]
	err := env.sdk.postJSON(context.Background(), "/consultations", map[string]int{"patientId": 3}, &created)
	require.NoError(t, err)

	require.EqualValues(t, 1, refreshes.Load())
	require.EqualValues(t, 2, sends.Load(), "original plus exactly one retry")
}

func TestTransportSecond401IsSurfaced(t *testing.T) {
	t.Parallel()

	var refreshes, sends atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/refresh-token", func(w http.ResponseWriter, r *http.Request) {
		refreshes.Add(1)
		writeJSON(t, w, http.StatusOK, TokenResponse{AccessToken: liveToken(t, "7")})
	})
	mux.HandleFunc("GET /patients", func(w http.ResponseWriter, r *http.Request) {
		sends.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	})

	env := newTestEnv(t, mux)
	env.sdk.Tokens().Set(liveToken(t, "7"))
	env.sdk.Sessions().Set(&User{UserID: 7, Role: RoleNurse})

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, env.server.URL+"/patients", nil)
	require.NoError(t, err)
	_, err = env.sdk.Do(req)
	require.ErrorIs(t, err, ErrUnauthorized)

	require.EqualValues(t, 2, sends.Load(), "no third attempt")
	require.EqualValues(t, 1, refreshes.Load())

	// The normalizer treats the surviving 401 as a dead session.
	require.Nil(t, env.sdk.Sessions().Current())
	require.Equal(t, []string{RouteLogin}, env.navigator.Routes())
	require.Equal(t, []string{msgSessionExpired}, env.notifier.Messages())
}

func TestTransportConcurrentExpiryOneRefresh(t *testing.T) {
	t.Parallel()

	fresh := liveToken(t, "7")
	var refreshes atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/refresh-token", func(w http.ResponseWriter, r *http.Request) {
		refreshes.Add(1)
		// Hold the exchange so every expired request joins this flight.
		time.Sleep(150 * time.Millisecond)
		writeJSON(t, w, http.StatusOK, TokenResponse{AccessToken: fresh})
	})
	mux.HandleFunc("GET /patients", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+fresh {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeJSON(t, w, http.StatusOK, map[string]any{"data": []any{}})
	})

	env := newTestEnv(t, mux)
	env.sdk.Tokens().Set(expiredToken(t, "7"))

	const callers = 4
	errs := make([]error, callers)
	var start, done sync.WaitGroup
	start.Add(1)
	for i := 0; i < callers; i++ {
		done.Add(1)
		go func(i int) {
			defer done.Done()
			start.Wait()
			req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, env.server.URL+"/patients", nil)
			if err != nil {
				errs[i] = err
				return
			}
			resp, err := env.sdk.Do(req)
			if err != nil {
				errs[i] = err
				return
			}
			resp.Body.Close()
		}(i)
	}
	start.Done()
	done.Wait()

	for i, err := range errs {
		require.NoError(t, err, "caller %d", i)
	}
	require.EqualValues(t, 1, refreshes.Load(), "one exchange serves every concurrent caller")
}

func TestTransportRefreshFailurePropagates(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/refresh-token", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	mux.HandleFunc("GET /patients", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{"data": []any{}})
	})

	env := newTestEnv(t, mux)
	env.sdk.Tokens().Set(expiredToken(t, "7"))

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, env.server.URL+"/patients", nil)
	require.NoError(t, err)
	_, err = env.sdk.Do(req)
	require.ErrorIs(t, err, ErrRefreshFailed)
	require.ErrorIs(t, err, ErrExpiredCredential, "the proactive path reports what forced the exchange")

	_, ok := env.sdk.Tokens().Get()
	require.False(t, ok, "failed refresh clears the credential")
	require.Equal(t, []string{RouteLogin}, env.navigator.Routes())
}
