package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/georgemunganga/vendora/internal/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	healthHandler(pingFunc(func(context.Context) error { return nil })).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	healthHandler(pingFunc(func(context.Context) error { return errors.New("dial tcp: refused") })).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"unavailable","error":"store unreachable"}`, rec.Body.String())
}

func TestOpenStore_Memory(t *testing.T) {
	st, err := openStore(context.Background(), config.App{StoreDriver: config.StoreMemory}, zerolog.Nop())
	require.NoError(t, err)
	assert.NoError(t, st.pinger.Ping(context.Background()))
	assert.NoError(t, st.close(context.Background()))
}

func TestOpenStore_Unknown(t *testing.T) {
	_, err := openStore(context.Background(), config.App{StoreDriver: "sqlite"}, zerolog.Nop())
	assert.Error(t, err)
}
