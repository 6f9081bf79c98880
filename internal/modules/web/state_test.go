package web

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViewState(t *testing.T) {
	assert.Equal(t, stateReady, stateLoading.resolve(nil))
	assert.Equal(t, stateFailed, stateLoading.resolve(errors.New("x")))
	assert.Equal(t, stateReady, stateReady.resolve(errors.New("x")))
	assert.Equal(t, stateFailed, stateFailed.resolve(nil))
	assert.Equal(t, "loading", stateLoading.String())
}

func TestFlash(t *testing.T) {
	h := &Handler{}

	rec := httptest.NewRecorder()
	h.setFlash(rec, flashSuccess, "Vendor created successfully")
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)

	req := httptest.NewRequest(http.MethodGet, "/vendors", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	f := h.popFlash(rec, req)
	require.NotNil(t, f)
	assert.Equal(t, flash{Kind: flashSuccess, Message: "Vendor created successfully"}, *f)

	cleared := rec.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Equal(t, -1, cleared[0].MaxAge)
}

func TestFlash_Tampered(t *testing.T) {
	h := &Handler{}
	for _, value := range []string{"%%%", "aW5mbwpoaQ"} { // second is "info\nhi"
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: flashCookie, Value: value})
		assert.Nil(t, h.popFlash(httptest.NewRecorder(), req))
	}
}

func TestMaskAccount(t *testing.T) {
	assert.Equal(t, "*****6789", maskAccount("123456789"))
	assert.Equal(t, "1234", maskAccount("1234"))
	assert.Equal(t, "", maskAccount(""))
}
