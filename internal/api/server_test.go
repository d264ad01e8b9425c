// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package api_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/chapterhub/internal/api"
	"github.com/taibuivan/chapterhub/internal/core/chapter"
	"github.com/taibuivan/chapterhub/internal/core/ingest"
	"github.com/taibuivan/chapterhub/internal/platform/config"
	"github.com/taibuivan/chapterhub/internal/platform/sec"
)

type rejectAll struct{}

func (rejectAll) VerifyToken(string) (*sec.AuthClaims, error) {
	return nil, errors.New("invalid")
}

func newTestServer(t *testing.T, deps api.HealthDependencies) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	registry := prometheus.NewRegistry()
	ingest.MustNewMetrics(registry)
	chapter.MustNewMetrics(registry)

	liveness, readiness := api.NewHealthHandlers(deps, logger)
	server := api.NewServer(ctx, &config.Config{ServerPort: "0", Environment: "test", RateLimitRPS: 100, RateLimitBurst: 150}, logger, rejectAll{}, api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Metrics:   promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		Chapter:   chapter.NewHandler(nil),
		Ingest:    ingest.NewHandler(nil, nil),
	})
	return server.Handler()
}

func get(handler http.Handler, method, target string) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(method, target, nil))
	return recorder
}

/*
TestServer_Probes reports liveness and degraded readiness.
*/
func TestServer_Probes(t *testing.T) {
	handler := newTestServer(t, api.HealthDependencies{
		DatabaseName:  "sqlite",
		CheckDatabase: func(context.Context) error { return nil },
		CheckCache:    func(context.Context) error { return errors.New("connection refused") },
	})

	assert.Equal(t, http.StatusOK, get(handler, http.MethodGet, "/health").Code)

	ready := get(handler, http.MethodGet, "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, ready.Code)
	assert.Contains(t, ready.Body.String(), `"status":"degraded"`)
	assert.Contains(t, ready.Body.String(), `"name":"sqlite","ok":true`)
}

/*
TestServer_Routes reaches each route group through the full middleware chain.
*/
func TestServer_Routes(t *testing.T) {
	handler := newTestServer(t, api.HealthDependencies{})

	assert.Equal(t, http.StatusOK, get(handler, http.MethodGet, "/ready").Code)
	assert.Equal(t, http.StatusBadRequest, get(handler, http.MethodGet, "/api/v1/chapters/not-a-uuid/pages").Code)
	assert.Equal(t, http.StatusUnauthorized, get(handler, http.MethodPost, "/api/v1/chapters/0190f3a2-7c1e-7d4b-9a55-3f2d1c0b9e8a/pages").Code)
	assert.Equal(t, http.StatusUnauthorized, get(handler, http.MethodDelete, "/api/v1/pages/0190f3a2-7c1e-7d4b-9a55-3f2d1c0b9e8a").Code)

	metrics := get(handler, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, metrics.Code)
	assert.Contains(t, metrics.Body.String(), "chapterhub_ingest_normalize_seconds")
}

/*
TestServer_RejectsBadToken refuses a malformed bearer token before routing.
*/
func TestServer_RejectsBadToken(t *testing.T) {
	handler := newTestServer(t, api.HealthDependencies{})

	request := httptest.NewRequest(http.MethodGet, "/api/v1/chapters/0190f3a2-7c1e-7d4b-9a55-3f2d1c0b9e8a", nil)
	request.Header.Set("Authorization", "Bearer nope")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}
