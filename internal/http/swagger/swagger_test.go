package swagger_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/tuanvumaihuynh/stockroom/internal/http/swagger"
)

func TestRegister(t *testing.T) {
	r := chi.NewRouter()
	swagger.Register(r)

	testCases := []struct {
		name        string
		path        string
		status      int
		contentType string
		contains    string
	}{
		{name: "ui page", path: swagger.DocsPath, status: http.StatusOK, contentType: "text/html", contains: swagger.SpecPath},
		{name: "contract", path: swagger.SpecPath, status: http.StatusOK, contentType: "application/yaml", contains: "/products/import:"},
		{name: "trailing slash", path: swagger.DocsPath + "/", status: http.StatusMovedPermanently},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.path, nil))

			assert.Equal(t, tc.status, rec.Code)
			if tc.contentType != "" {
				assert.Contains(t, rec.Header().Get("Content-Type"), tc.contentType)
			}
			if tc.contains != "" {
				assert.Contains(t, rec.Body.String(), tc.contains)
			}
		})
	}
}
