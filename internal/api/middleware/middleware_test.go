package middleware

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dvloznov/paypal-ledger/internal/logger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestRequestID(t *testing.T) {
	t.Run("generates uuid", func(t *testing.T) {
		var seen string
		h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = RequestIDFromContext(r.Context())
		}))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		_, err := uuid.Parse(seen)
		require.NoError(t, err)
		assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))
	})

	t.Run("keeps caller id", func(t *testing.T) {
		var seen string
		h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = RequestIDFromContext(r.Context())
		}))

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set(RequestIDHeader, "abc-123")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, "abc-123", seen)
		assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
	})
}

func TestLogger_AttachesRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(&buf)

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l := logger.FromContext(r.Context())
		l.Info().Msg("inside handler")
		w.WriteHeader(http.StatusAccepted)
	})
	h := Chain(inner, RequestID, Logger(log))

	req := httptest.NewRequest(http.MethodPost, "/webhook/incoming-email", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	h.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	assert.Contains(t, out, "inside handler")
	assert.Contains(t, out, `"request_id":"req-1"`)
	assert.Contains(t, out, `"status":202`)
	assert.Contains(t, out, `"path":"/webhook/incoming-email"`)
}

func TestRecovery(t *testing.T) {
	var buf bytes.Buffer
	h := Recovery(logger.NewWithWriter(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, rec.Body.String())
	assert.Contains(t, buf.String(), "Panic recovered")
}

func TestRecovery_LogsRequestID(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(&buf)
	panicking := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})
	h := Chain(panicking, RequestID, Recovery(log), Logger(log))

	req := httptest.NewRequest(http.MethodPost, "/webhook/incoming-email", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
	assert.Contains(t, buf.String(), "Panic recovered")
	assert.Contains(t, buf.String(), `"request_id":"abc-123"`)
	assert.NotContains(t, buf.String(), `"request_id":""`)
}

func TestBasicAuth(t *testing.T) {
	tests := []struct {
		name       string
		username   string
		setAuth    func(r *http.Request)
		wantStatus int
	}{
		{
			name:       "disabled when no username configured",
			username:   "",
			setAuth:    func(r *http.Request) {},
			wantStatus: http.StatusOK,
		},
		{
			name:       "valid credentials",
			username:   "cloudmailin",
			setAuth:    func(r *http.Request) { r.SetBasicAuth("cloudmailin", "s3cret") },
			wantStatus: http.StatusOK,
		},
		{
			name:       "wrong password",
			username:   "cloudmailin",
			setAuth:    func(r *http.Request) { r.SetBasicAuth("cloudmailin", "nope") },
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "wrong user",
			username:   "cloudmailin",
			setAuth:    func(r *http.Request) { r.SetBasicAuth("someone", "s3cret") },
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "missing header",
			username:   "cloudmailin",
			setAuth:    func(r *http.Request) {},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "bearer token",
			username:   "cloudmailin",
			setAuth:    func(r *http.Request) { r.Header.Set("Authorization", "Bearer abc") },
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := BasicAuth(tt.username, "s3cret", "paypal-ledger")(okHandler)

			req := httptest.NewRequest(http.MethodPost, "/webhook/incoming-email", nil)
			tt.setAuth(req)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusUnauthorized {
				assert.Equal(t, `Basic realm="paypal-ledger"`, rec.Header().Get("WWW-Authenticate"))
			}
		})
	}
}

func TestMaxBytes(t *testing.T) {
	var readErr error
	h := MaxBytes(8)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, readErr = io.ReadAll(r.Body)
	}))

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 9)))
	h.ServeHTTP(httptest.NewRecorder(), req)

	var maxErr *http.MaxBytesError
	assert.ErrorAs(t, readErr, &maxErr)
}

func TestChain_Order(t *testing.T) {
	var order []string
	mark := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	Chain(okHandler, mark("outer"), mark("inner")).
		ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, []string{"outer", "inner"}, order)
}
