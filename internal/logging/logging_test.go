package logging

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter_Level(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "warn")
	l.Info().Msg("hidden")
	l.Warn().Msg("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestNewWithWriter_UnknownLevel(t *testing.T) {
	l := NewWithWriter(&bytes.Buffer{}, "loud")
	assert.Equal(t, zerolog.InfoLevel, l.GetLevel())
}

func TestMiddleware(t *testing.T) {
	var buf bytes.Buffer
	base := NewWithWriter(&buf, "debug")

	h := middleware.RequestID(Middleware(base)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		FromRequest(r).Debug().Msg("inside")
		w.WriteHeader(http.StatusTeapot)
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/vendors", nil))

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var inside, access map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &inside))
	require.NoError(t, json.Unmarshal(lines[1], &access))

	assert.Equal(t, "inside", inside["message"])
	assert.NotEmpty(t, inside[RequestID])
	assert.Equal(t, "/vendors", access["path"])
	assert.EqualValues(t, http.StatusTeapot, access["status"])
	assert.Equal(t, inside[RequestID], access[RequestID])
}

func TestFromRequest_WithoutMiddleware(t *testing.T) {
	l := FromRequest(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotNil(t, l)
	l.Info().Msg("does not panic")
}
