package clinicsdk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/cxxyao2/eclinic-v2/pkg/tokenstore"
)

const defaultTimeout = 10 * time.Second

// Config assembles an SDKClient. Only BaseURL is required; everything else
// has headless-friendly defaults.
type Config struct {
	BaseURL string

	// HTTPClient is the underlying client for all calls. Its transport is
	// wrapped with the authenticating round tripper. Defaults to a client
	// with a 10s timeout.
	HTTPClient *http.Client

	// Tokens defaults to an in-memory store.
	Tokens tokenstore.Store

	Navigator Navigator
	Notifier  Notifier
	Logger    *slog.Logger

	// RefreshPerMinute caps exchange calls to the identity provider.
	// Zero selects a conservative default.
	RefreshPerMinute int
}

// SDKClient is the entry point to the eClinic backend: it owns the token and
// session stores, the refresh coordinator, the authenticated transport, and
// the error normalizer, wired together so callers just issue requests.
type SDKClient struct {
	baseURL string
	http    *http.Client

	tokens     tokenstore.Store
	sessions   *SessionStore
	refresher  *RefreshCoordinator
	normalizer *ErrorNormalizer
	navigator  Navigator
	notifier   Notifier
	log        *slog.Logger
}

// New wires up an SDKClient from cfg.
func New(cfg Config) *SDKClient {
	base := strings.TrimSuffix(cfg.BaseURL, "/")

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}

	tokens := cfg.Tokens
	if tokens == nil {
		tokens = tokenstore.NewMemory()
	}

	nav := cfg.Navigator
	if nav == nil {
		nav = NopNavigator{}
	}
	notify := cfg.Notifier
	if notify == nil {
		notify = NopNotifier{}
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	perMinute := cfg.RefreshPerMinute
	if perMinute <= 0 {
		perMinute = 30
	}
	limiter := rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)

	sessions := NewSessionStore()

	// The refresh coordinator talks to the identity provider with a plain
	// client sharing the caller's transport but not the auth wrapper.
	plain := &http.Client{
		Timeout:   httpClient.Timeout,
		Transport: httpClient.Transport,
	}

	c := &SDKClient{
		baseURL:   base,
		tokens:    tokens,
		sessions:  sessions,
		navigator: nav,
		notifier:  notify,
		log:       log,
	}
	c.refresher = newRefreshCoordinator(base, plain, tokens, sessions, nav, notify, limiter, log)
	c.normalizer = NewErrorNormalizer(sessions, nav, notify, log)

	authed := *httpClient
	authed.Transport = newAuthTransport(httpClient.Transport, tokens, c.refresher, log)
	c.http = &authed

	return c
}

// Sessions exposes the session store for observers (menus, headers).
func (c *SDKClient) Sessions() *SessionStore { return c.sessions }

// Tokens exposes the credential store.
func (c *SDKClient) Tokens() tokenstore.Store { return c.tokens }

// Refresher exposes the refresh coordinator; useful for a proactive refresh
// scheduled ahead of a long-running operation.
func (c *SDKClient) Refresher() *RefreshCoordinator { return c.refresher }

// Do sends an arbitrary authenticated request through the pipeline and
// normalizes the outcome. A non-nil response always has a 2xx status.
func (c *SDKClient) Do(req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if nerr := c.normalizer.Normalize(resp, err); nerr != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return nil, nerr
	}
	return resp, nil
}

// getJSON issues an authenticated GET and decodes the 2xx body into target.
func (c *SDKClient) getJSON(ctx context.Context, path string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return decodeBody(resp.Body, target)
}

// postJSON issues an authenticated POST with a JSON body. When target is
// non-nil the 2xx response body is decoded into it.
func (c *SDKClient) postJSON(ctx context.Context, path string, payload, target any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = strings.NewReader(string(raw))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if target == nil {
		return nil
	}
	return decodeBody(resp.Body, target)
}

func decodeBody(body io.Reader, target any) error {
	if err := json.NewDecoder(body).Decode(target); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
