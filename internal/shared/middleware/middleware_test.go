package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"vendor-tracking/internal/shared/util"

	"github.com/stretchr/testify/assert"
)

func TestRequestIDPropagates(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, "abc", seen)
	assert.Equal(t, "abc", rr.Header().Get("X-Request-ID"))

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Len(t, seen, 36)
	assert.Equal(t, seen, rr.Header().Get("X-Request-ID"))
}

func TestRequestIDReplacesUnusableIDs(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	for name, id := range map[string]string{
		"oversized": strings.Repeat("a", maxRequestIDLen+1),
		"newline":   "abc\nforged line",
		"space":     "a b",
	} {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set(HeaderRequestID, id)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		assert.Len(t, seen, 36, name)
		assert.Equal(t, seen, rr.Header().Get(HeaderRequestID), name)
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(HeaderRequestID, strings.Repeat("b", maxRequestIDLen))
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Len(t, seen, maxRequestIDLen)

	assert.Empty(t, GetRequestID(req.Context()))
}

func TestLoggingTagsRequestID(t *testing.T) {
	var buf bytes.Buffer
	h := RequestID(Logging(util.NewWithWriter(&buf))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(HeaderRequestID, "trace-42")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Contains(t, buf.String(), "[req=trace-42]")
}

func TestLoggingRecordsStatus(t *testing.T) {
	var buf bytes.Buffer
	h := Logging(util.NewWithWriter(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/assignments", nil))
	assert.Contains(t, buf.String(), "418")
	assert.Contains(t, buf.String(), "/assignments")
}
