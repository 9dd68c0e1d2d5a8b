package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	apierrors "exportcheck/internal/errors"
	"exportcheck/internal/infrastructure"
	"exportcheck/internal/shared/testutil"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestRequestID(t *testing.T) {
	var seen, chiSeen, traceSeen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		chiSeen = chimw.GetReqID(r.Context())
		traceSeen = infrastructure.GetTraceID(r.Context())
	}))

	t.Run("generated", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.NotEmpty(t, seen)
		assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))
		assert.Equal(t, seen, chiSeen)
		assert.Equal(t, seen, traceSeen)
	})

	t.Run("propagated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", "abc-123")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, "abc-123", seen)
		assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
	})
}

func TestStructuredLogger(t *testing.T) {
	logger, handler := testutil.NewTestLogger(t)
	h := RequestID(StructuredLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/validations", nil))

	assert.True(t, handler.ContainsMessage("request completed"))
	assert.True(t, handler.ContainsAttr("status", int64(http.StatusTeapot)))
	assert.True(t, handler.ContainsAttr("path", "/api/validations"))
}

func TestRecoverer(t *testing.T) {
	logger, handler := testutil.NewTestLogger(t)
	h := Recoverer(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(500), body["status"])
	assert.True(t, handler.ContainsMessage("panic recovered"))
}

func TestRecoverer_AbortHandlerRepanics(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	h := Recoverer(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	}))
	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}

func TestRateLimiter(t *testing.T) {
	logger, handler := testutil.NewTestLogger(t)
	h := NewRateLimiter(0.0001, 2, logger).Handler(okHandler)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		codes = append(codes, rec.Code)
		if rec.Code == http.StatusTooManyRequests {
			assert.Equal(t, "60", rec.Header().Get("Retry-After"))
		}
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
	assert.True(t, handler.ContainsMessage("rate limit exceeded"))
}

func TestCORS(t *testing.T) {
	h := CORS(CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}})(okHandler)

	tests := []struct {
		name       string
		method     string
		origin     string
		wantStatus int
		wantAllow  string
	}{
		{"allowed origin", http.MethodGet, "http://localhost:3000", http.StatusOK, "http://localhost:3000"},
		{"foreign origin", http.MethodGet, "http://evil.example", http.StatusOK, ""},
		{"preflight", http.MethodOptions, "http://localhost:3000", http.StatusNoContent, "http://localhost:3000"},
		{"no origin", http.MethodGet, "", http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/validations", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantAllow, rec.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	SecurityHeaders(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))
}

func TestTelemetry_RecordsRoutePattern(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	r := chi.NewRouter()
	r.Use(Telemetry(tp.Tracer("test"), nil))
	r.Get("/api/validations/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/validations/r1", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /api/validations/{id}", spans[0].Name())
}

type createRun struct {
	Customer    string `json:"customer" validate:"required,max=5"`
	Environment string `json:"environment" validate:"required,oneof=CERT PROD"`
	RunID       string `json:"run_id,omitempty" validate:"omitempty,uuid"`
}

func newValidation(t *testing.T) *ValidationMiddleware {
	logger, _ := testutil.NewTestLogger(t)
	return NewValidationMiddleware(logger, apierrors.NewErrorHandler(logger, false))
}

func TestValidateStruct(t *testing.T) {
	v := newValidation(t)

	require.NoError(t, v.ValidateStruct(&createRun{Customer: "Acme", Environment: "CERT"}))

	err := v.ValidateStruct(&createRun{Customer: "Acme Health", Environment: "DEV", RunID: "run-1"})
	require.Error(t, err)
	apiErr, ok := err.(*apierrors.APIError)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)

	details := apiErr.Details.(apierrors.ValidationErrors)
	byField := map[string]string{}
	for _, fe := range details.Errors {
		byField[fe.Field] = fe.Message
	}
	assert.Equal(t, "customer must be at most 5", byField["customer"])
	assert.Equal(t, "environment must be one of: CERT, PROD", byField["environment"])
	assert.Equal(t, "run_id must be a valid UUID", byField["run_id"])
}

func TestDecodeAndValidate(t *testing.T) {
	v := newValidation(t)

	var dst createRun
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"customer":"Acme","environment":"PROD"}`))
	require.NoError(t, v.DecodeAndValidate(req, &dst))
	assert.Equal(t, "PROD", dst.Environment)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"customer":`))
	err := v.DecodeAndValidate(req, &dst)
	require.Error(t, err)
	assert.Equal(t, "INVALID_REQUEST", err.(*apierrors.APIError).ErrorCode)
}

func TestValidateRequest(t *testing.T) {
	v := newValidation(t)
	h := v.ValidateRequest(okHandler)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"ok":true}`)))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{not json`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_JSON")

	big := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{}"))
	big.ContentLength = 2 << 20
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, big)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestContentTypeValidator(t *testing.T) {
	h := ContentTypeValidator("application/json")(okHandler)

	tests := []struct {
		name        string
		method      string
		contentType string
		want        int
	}{
		{"json", http.MethodPost, "application/json; charset=utf-8", http.StatusOK},
		{"missing", http.MethodPost, "", http.StatusBadRequest},
		{"form", http.MethodPost, "application/x-www-form-urlencoded", http.StatusUnsupportedMediaType},
		{"get skipped", http.MethodGet, "", http.StatusOK},
		{"delete skipped", http.MethodDelete, "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/", strings.NewReader("{}"))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestQueryParamValidator(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	v := NewQueryParamValidator(logger, apierrors.NewErrorHandler(logger, false))

	rec := httptest.NewRecorder()
	n, ok := v.ValidateInt(rec, httptest.NewRequest(http.MethodGet, "/?limit=20", nil), "limit", 1, 100, 50)
	assert.True(t, ok)
	assert.Equal(t, 20, n)

	n, ok = v.ValidateInt(rec, httptest.NewRequest(http.MethodGet, "/", nil), "limit", 1, 100, 50)
	assert.True(t, ok)
	assert.Equal(t, 50, n)

	rec = httptest.NewRecorder()
	_, ok = v.ValidateInt(rec, httptest.NewRequest(http.MethodGet, "/?limit=500", nil), "limit", 1, 100, 50)
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	s, ok := v.ValidateEnum(rec, httptest.NewRequest(http.MethodGet, "/?status=running", nil), "status", []string{"running", "failed"}, "")
	assert.True(t, ok)
	assert.Equal(t, "running", s)

	rec = httptest.NewRecorder()
	_, ok = v.ValidateEnum(rec, httptest.NewRequest(http.MethodGet, "/?status=bogus", nil), "status", []string{"running"}, "")
	assert.False(t, ok)
	assert.Contains(t, rec.Body.String(), "status must be one of")
}
