package middleware_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuanvumaihuynh/stockroom/internal/apperr"
	"github.com/tuanvumaihuynh/stockroom/internal/auth"
	"github.com/tuanvumaihuynh/stockroom/internal/http/apierr"
	"github.com/tuanvumaihuynh/stockroom/internal/http/metric"
	"github.com/tuanvumaihuynh/stockroom/internal/http/middleware"
	"github.com/tuanvumaihuynh/stockroom/internal/model"
	"github.com/tuanvumaihuynh/stockroom/pkg/correlationid"
)

type authenticatorFunc func(ctx context.Context, token string) (auth.Principal, error)

func (f authenticatorFunc) Authenticate(ctx context.Context, token string) (auth.Principal, error) {
	return f(ctx, token)
}

func writeError(w http.ResponseWriter, _ *http.Request, err error) {
	res := apierr.New(err)
	w.WriteHeader(res.StatusCode)
	_, _ = w.Write([]byte(res.Code))
}

func TestAuthenticate(t *testing.T) {
	authn := authenticatorFunc(func(_ context.Context, token string) (auth.Principal, error) {
		switch token {
		case "admin-token":
			return auth.Principal{UserID: 1, Username: "root", Role: model.RoleAdmin}, nil
		case "common-token":
			return auth.Principal{UserID: 2, Username: "clerk", Role: model.RoleCommon}, nil
		default:
			return auth.Principal{}, apperr.InvalidTokenErr
		}
	})

	r := chi.NewRouter()
	r.Use(middleware.Authenticate(authn, writeError))
	r.Get("/me", func(w http.ResponseWriter, r *http.Request) {
		p, ok := auth.PrincipalFromContext(r.Context())
		require.True(t, ok)
		_, _ = w.Write([]byte(p.Username))
	})
	r.With(middleware.RequireAdmin(writeError)).Get("/admin", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	testCases := []struct {
		name   string
		path   string
		header string
		status int
		body   string
	}{
		{name: "missing token", path: "/me", status: http.StatusUnauthorized, body: "MISSING_TOKEN"},
		{name: "invalid token", path: "/me", header: "Bearer nope", status: http.StatusUnauthorized, body: "INVALID_TOKEN"},
		{name: "bearer token", path: "/me", header: "Bearer common-token", status: http.StatusOK, body: "clerk"},
		{name: "lowercase scheme", path: "/me", header: "bearer admin-token", status: http.StatusOK, body: "root"},
		{name: "bare token", path: "/me", header: "common-token", status: http.StatusOK, body: "clerk"},
		{name: "admin route as common", path: "/admin", header: "Bearer common-token", status: http.StatusForbidden, body: "PERMISSION_DENIED"},
		{name: "admin route as admin", path: "/admin", header: "Bearer admin-token", status: http.StatusNoContent},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.body, rec.Body.String())
		})
	}
}

func TestCorrelationID(t *testing.T) {
	var seen string
	h := middleware.CorrelationID()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen, _ = correlationid.FromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(correlationid.Header, "req-42")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "req-42", seen)
	assert.Equal(t, "req-42", rec.Header().Get(correlationid.Header))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.NotEqual(t, "req-42", seen)
	assert.Equal(t, seen, rec.Header().Get(correlationid.Header))
}

func TestRecoverer(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))

	h := middleware.Recoverer(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(errors.New("boom"))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"code":"INTERNAL_SERVER_ERROR","message":"an unknown error occurred"}`, rec.Body.String())
	assert.Contains(t, logs.String(), "boom")
}

func TestMetrics(t *testing.T) {
	m := metric.NewWithRegisterer(prometheus.NewRegistry())

	r := chi.NewRouter()
	r.Use(middleware.Metrics(m))
	r.Get("/products/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, id := range []string{"1", "2", "3"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/products/"+id, nil))
	}

	assert.Equal(t, 3.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues(http.MethodGet, "/products/{id}", "404")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.InflightRequests))
}
