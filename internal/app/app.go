// Package app assembles the eClinic client from environment configuration.
package app

import (
	"errors"
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/cxxyao2/eclinic-v2/pkg/clinicsdk"
	"github.com/cxxyao2/eclinic-v2/pkg/slogx"
	"github.com/cxxyao2/eclinic-v2/pkg/tokenstore"
)

// Build wires a ready-to-use SDK client from cfg. The returned cleanup func
// releases the storage backend and must be called on shutdown.
func Build(cfg Config, navigator clinicsdk.Navigator, notifier clinicsdk.Notifier) (*clinicsdk.SDKClient, func(), error) {
	if cfg.BaseURL == "" {
		return nil, nil, errors.New("ECLINIC_BASE_URL is required")
	}

	logger := slogx.New(slogx.Config{
		Service: "eclinic-client",
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	})

	cleanup := func() {}
	var tokens tokenstore.Store
	switch cfg.TokenBackend {
	case "redis":
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		tokens = tokenstore.NewRedis(rdb, cfg.RedisKey, logger)
		cleanup = func() { _ = rdb.Close() }
	case "", "memory":
		tokens = tokenstore.NewMemory()
	default:
		return nil, nil, errors.New("unknown token backend: " + cfg.TokenBackend)
	}

	sdk := clinicsdk.New(clinicsdk.Config{
		BaseURL:          cfg.BaseURL,
		HTTPClient:       &http.Client{Timeout: cfg.Timeout},
		Tokens:           tokens,
		Navigator:        navigator,
		Notifier:         notifier,
		Logger:           logger,
		RefreshPerMinute: cfg.RefreshPerMinute,
	})
	return sdk, cleanup, nil
}
