package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/legacy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	apicontract "github.com/tuanvumaihuynh/stockroom/api-contract"
	"github.com/tuanvumaihuynh/stockroom/internal/allocator"
	"github.com/tuanvumaihuynh/stockroom/internal/auth"
	"github.com/tuanvumaihuynh/stockroom/internal/config"
	stockhttp "github.com/tuanvumaihuynh/stockroom/internal/http"
	"github.com/tuanvumaihuynh/stockroom/internal/importer"
	"github.com/tuanvumaihuynh/stockroom/internal/model"
	"github.com/tuanvumaihuynh/stockroom/internal/repository/repotest"
	"github.com/tuanvumaihuynh/stockroom/internal/service"
	"github.com/tuanvumaihuynh/stockroom/internal/undo"
	"github.com/tuanvumaihuynh/stockroom/pkg/correlationid"
	"github.com/tuanvumaihuynh/stockroom/pkg/validator"
)

const (
	adminUser     = "root"
	adminPassword = "root-secret"
)

type healthFunc func(ctx context.Context) (bool, error)

func (f healthFunc) IsHealthy(ctx context.Context) (bool, error) { return f(ctx) }

type testServer struct {
	t       *testing.T
	handler http.Handler
	router  routers.Router
	repos   repotest.Repositories
	imports service.ImportService
	healthy error
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repos := repotest.New()
	hasher := auth.NewPasswordHasher(bcrypt.MinCost)

	codes, err := allocator.New(ctx, config.AllocatorSequence, repos.Products, repos.CodeSequence)
	require.NoError(t, err)

	users := service.NewUserService(logger, repos.Users, hasher, auth.NewTokenManager("test-secret", 30*time.Minute))
	require.NoError(t, users.EnsureAdmin(ctx, adminUser, adminPassword))

	imports := service.NewImportService(
		logger, repos.DB, repos.Products, repos.OutboxMsgs, codes, importer.NewTracker(), model.ImportModeUpsert,
	)

	v, err := validator.NewDefaultValidator()
	require.NoError(t, err)

	ts := &testServer{t: t, repos: repos, imports: imports}

	svc := stockhttp.New(
		config.HTTP{Swagger: true, AllowedOrigins: []string{"*"}},
		config.Catalog{ImportMaxUploadBytes: 1 << 20},
		logger,
		v,
		stockhttp.Services{
			User: users,
			Product: service.NewProductService(
				logger, repos.DB, repos.Products, repos.Users, repos.OutboxMsgs, codes, undo.NewBuffer(undo.DefaultCapacity), hasher,
			),
			Import:   imports,
			Supplier: service.NewSupplierService(repos.Suppliers),
			Health: healthFunc(func(context.Context) (bool, error) {
				return ts.healthy == nil, ts.healthy
			}),
		},
	)
	ts.handler = svc.Handler()

	doc, err := openapi3.NewLoader().LoadFromData(apicontract.GetSpecBytes())
	require.NoError(t, err)
	require.NoError(t, doc.Validate(ctx))

	ts.router, err = legacy.NewRouter(doc)
	require.NoError(t, err)

	return ts
}

// do serves the request and checks JSON responses against the API contract.
func (ts *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	ts.t.Helper()

	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	if !strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		return rec
	}

	route, pathParams, err := ts.router.FindRoute(req)
	if err != nil {
		return rec
	}

	err = openapi3filter.ValidateResponse(req.Context(), &openapi3filter.ResponseValidationInput{
		RequestValidationInput: &openapi3filter.RequestValidationInput{
			Request:    req,
			PathParams: pathParams,
			Route:      route,
		},
		Status: rec.Code,
		Header: rec.Header(),
		Body:   io.NopCloser(bytes.NewReader(rec.Body.Bytes())),
	})
	assert.NoError(ts.t, err, "%s %s violates the contract: %s", req.Method, req.URL.Path, rec.Body.String())

	return rec
}

func (ts *testServer) json(method, path, token string, body any) *httptest.ResponseRecorder {
	ts.t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(ts.t, err)
		r = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return ts.do(req)
}

func (ts *testServer) login(username, password string) string {
	ts.t.Helper()

	rec := ts.json(http.MethodPost, "/auth/login", "", map[string]string{"username": username, "password": password})
	require.Equal(ts.t, http.StatusOK, rec.Code, rec.Body.String())

	var res struct {
		Token string `json:"token"`
	}
	decode(ts.t, rec, &res)
	require.NotEmpty(ts.t, res.Token)
	return res.Token
}

func (ts *testServer) registerAndLogin(username string) string {
	ts.t.Helper()

	rec := ts.json(http.MethodPost, "/auth/register", "", map[string]string{"username": username, "password": "secret1"})
	require.Equal(ts.t, http.StatusCreated, rec.Code, rec.Body.String())
	return ts.login(username, "secret1")
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()

	var res struct {
		Code string `json:"code"`
	}
	decode(t, rec, &res)
	return res.Code
}

type productBody struct {
	ID        int64  `json:"id"`
	Code      string `json:"code"`
	Name      string `json:"name"`
	Stock     int    `json:"stock"`
	CostPrice string `json:"cost_price"`
	SalePrice string `json:"sale_price"`
	Markup    string `json:"markup"`
}

func TestAuthRoutes(t *testing.T) {
	ts := newTestServer(t)

	t.Run("register login and profile", func(t *testing.T) {
		token := ts.registerAndLogin("maria")

		rec := ts.json(http.MethodGet, "/auth/profile", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var user struct {
			Username string `json:"username"`
			Role     string `json:"role"`
		}
		decode(t, rec, &user)
		assert.Equal(t, "maria", user.Username)
		assert.Equal(t, "common", user.Role)
	})

	t.Run("duplicate username", func(t *testing.T) {
		rec := ts.json(http.MethodPost, "/auth/register", "", map[string]string{"username": adminUser, "password": "secret1"})
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "USERNAME_TAKEN", errorCode(t, rec))
	})

	t.Run("invalid register body", func(t *testing.T) {
		rec := ts.json(http.MethodPost, "/auth/register", "", map[string]string{"username": "a b", "password": "1"})
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var res struct {
			Code    string `json:"code"`
			Details []struct {
				Field string `json:"field"`
			} `json:"details"`
		}
		decode(t, rec, &res)
		assert.Equal(t, "VALIDATION_FAILED", res.Code)
		assert.Len(t, res.Details, 2)
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader("{"))
		rec := ts.do(req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "VALIDATION_FAILED", errorCode(t, rec))
	})

	t.Run("wrong password", func(t *testing.T) {
		rec := ts.json(http.MethodPost, "/auth/login", "", map[string]string{"username": adminUser, "password": "nope"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "INVALID_CREDENTIALS", errorCode(t, rec))
	})

	t.Run("missing and invalid token", func(t *testing.T) {
		rec := ts.json(http.MethodGet, "/products", "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "MISSING_TOKEN", errorCode(t, rec))

		rec = ts.json(http.MethodGet, "/products", "garbage", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "INVALID_TOKEN", errorCode(t, rec))
	})

	t.Run("users list is admin only", func(t *testing.T) {
		rec := ts.json(http.MethodGet, "/users", ts.login("maria", "secret1"), nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "PERMISSION_DENIED", errorCode(t, rec))

		rec = ts.json(http.MethodGet, "/users", ts.login(adminUser, adminPassword), nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var users []map[string]any
		decode(t, rec, &users)
		assert.Len(t, users, 2)
		for _, u := range users {
			assert.NotContains(t, u, "password_hash")
		}
	})
}

func TestProductRoutes(t *testing.T) {
	ts := newTestServer(t)
	token := ts.registerAndLogin("clerk")
	admin := ts.login(adminUser, adminPassword)

	rec := ts.json(http.MethodGet, "/products/next-code", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"code":"0001"}`, rec.Body.String())

	rec = ts.json(http.MethodPost, "/products", token, map[string]any{
		"name":       "Camiseta Azul",
		"stock":      3,
		"cost_price": "10.50",
		"sale_price": 20,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created productBody
	decode(t, rec, &created)
	assert.Equal(t, "0001", created.Code)
	assert.Equal(t, "90.48%", created.Markup)

	t.Run("common user cannot choose a code", func(t *testing.T) {
		rec := ts.json(http.MethodPost, "/products", token, map[string]any{"code": "9999", "name": "X"})
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = ts.json(http.MethodPost, "/products", admin, map[string]any{"code": "9999", "name": "Boné"})
		assert.Equal(t, http.StatusCreated, rec.Code)

		rec = ts.json(http.MethodPost, "/products", admin, map[string]any{"code": "9999", "name": "Boné 2"})
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "PRODUCT_CODE_DUPLICATE", errorCode(t, rec))
	})

	t.Run("list and filter", func(t *testing.T) {
		rec := ts.json(http.MethodGet, "/products", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var all []productBody
		decode(t, rec, &all)
		assert.Len(t, all, 2)

		rec = ts.json(http.MethodGet, "/products?name=camiseta", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var filtered []productBody
		decode(t, rec, &filtered)
		require.Len(t, filtered, 1)
		assert.Equal(t, created.ID, filtered[0].ID)
	})

	t.Run("get", func(t *testing.T) {
		rec := ts.json(http.MethodGet, "/products/"+itoa(created.ID), token, nil)
		assert.Equal(t, http.StatusOK, rec.Code)

		rec = ts.json(http.MethodGet, "/products/424242", token, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "PRODUCT_NOT_FOUND", errorCode(t, rec))

		rec = ts.json(http.MethodGet, "/products/abc", token, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("patch field", func(t *testing.T) {
		rec := ts.json(http.MethodPatch, "/products/"+itoa(created.ID), token, map[string]any{"field": "estoque", "value": "7"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var updated productBody
		decode(t, rec, &updated)
		assert.Equal(t, 7, updated.Stock)

		rec = ts.json(http.MethodPatch, "/products/"+itoa(created.ID), token, map[string]any{"field": "cost_price", "value": "1"})
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = ts.json(http.MethodPatch, "/products/"+itoa(created.ID), token, map[string]any{"field": "colour-ish", "value": "x"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "PRODUCT_FIELD_UNKNOWN", errorCode(t, rec))
	})

	t.Run("delete undo and deleted list", func(t *testing.T) {
		rec := ts.json(http.MethodPost, "/products/undo", token, nil)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "NOTHING_TO_RESTORE", errorCode(t, rec))

		rec = ts.json(http.MethodDelete, "/products/"+itoa(created.ID), token, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = ts.json(http.MethodGet, "/products/deleted", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var deleted []productBody
		decode(t, rec, &deleted)
		require.Len(t, deleted, 1)
		assert.Equal(t, created.ID, deleted[0].ID)

		rec = ts.json(http.MethodPost, "/products/undo", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var restored productBody
		decode(t, rec, &restored)
		assert.Equal(t, created.ID, restored.ID)
		assert.Equal(t, created.Code, restored.Code)
	})

	t.Run("delete all requires admin credentials", func(t *testing.T) {
		rec := ts.json(http.MethodPost, "/products/delete-all", admin, map[string]string{"username": "clerk", "password": "secret1"})
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = ts.json(http.MethodPost, "/products/delete-all", token, map[string]string{"username": adminUser, "password": "wrong"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		rec = ts.json(http.MethodPost, "/products/delete-all", token, map[string]string{"username": adminUser, "password": adminPassword})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"deleted":2}`, rec.Body.String())

		rec = ts.json(http.MethodGet, "/products/next-code", token, nil)
		assert.JSONEq(t, `{"code":"0001"}`, rec.Body.String())
	})
}

func multipartUpload(t *testing.T, filename, mode string, content []byte) (io.Reader, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if mode != "" {
		require.NoError(t, mw.WriteField("mode", mode))
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	return &buf, mw.FormDataContentType()
}

func TestImportRoutes(t *testing.T) {
	ts := newTestServer(t)
	token := ts.registerAndLogin("clerk")

	t.Run("upload runs in the background", func(t *testing.T) {
		csv := "CODIGO;NOME;ESTOQUE;CUSTO;VENDA\n0001;Camiseta;5;10,50;20,00\n0002;Calça;2;30;45\n;Sem código;1;1;2\n"
		body, contentType := multipartUpload(t, "produtos.csv", "upsert", []byte(csv))

		req := httptest.NewRequest(http.MethodPost, "/products/import", body)
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := ts.do(req)
		require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

		ts.imports.Wait()

		rec = ts.json(http.MethodGet, "/products/import/progress", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var progress model.ImportProgress
		decode(t, rec, &progress)
		assert.Equal(t, model.ImportStatusDone, progress.Status)
		assert.Equal(t, 3, progress.Total)
		assert.Equal(t, 3, progress.Processed)
		assert.Equal(t, 2, progress.Inserted)
		assert.Equal(t, 1, progress.Skipped)
		assert.Len(t, ts.repos.Store.Products(), 2)
	})

	t.Run("missing file", func(t *testing.T) {
		body, contentType := multipartUpload(t, "", "insert", nil)

		req := httptest.NewRequest(http.MethodPost, "/products/import", body)
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := ts.do(req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "UPLOAD_INVALID", errorCode(t, rec))

		rec = ts.json(http.MethodGet, "/products/import/progress", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var progress model.ImportProgress
		decode(t, rec, &progress)
		assert.Equal(t, model.ImportStatusError, progress.Status)
		assert.Equal(t, model.ImportModeInsert, progress.Mode)
	})

	t.Run("bad mode", func(t *testing.T) {
		body, contentType := multipartUpload(t, "produtos.csv", "merge", []byte("NOME\nX\n"))

		req := httptest.NewRequest(http.MethodPost, "/products/import", body)
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := ts.do(req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "VALIDATION_FAILED", errorCode(t, rec))
	})

	t.Run("template download", func(t *testing.T) {
		rec := ts.json(http.MethodGet, "/products/import/template", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Header().Get("Content-Disposition"), ".xlsx")

		rows, err := importer.ReadRows(rec.Body, "template.xlsx")
		require.NoError(t, err)
		assert.Len(t, rows, 1)
	})
}

func TestSupplierRoutes(t *testing.T) {
	ts := newTestServer(t)
	token := ts.registerAndLogin("clerk")
	admin := ts.login(adminUser, adminPassword)

	rec := ts.json(http.MethodPost, "/suppliers", token, map[string]string{"name": "Malharia Sul"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var supplier model.Supplier
	decode(t, rec, &supplier)

	rec = ts.json(http.MethodPost, "/suppliers", token, map[string]string{"name": "Malharia Sul"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.json(http.MethodGet, "/suppliers", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var suppliers []model.Supplier
	decode(t, rec, &suppliers)
	assert.Len(t, suppliers, 1)

	rec = ts.json(http.MethodDelete, "/suppliers/"+itoa(supplier.ID), token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.json(http.MethodDelete, "/suppliers/"+itoa(supplier.ID), admin, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.json(http.MethodDelete, "/suppliers/"+itoa(supplier.ID), admin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOpsRoutes(t *testing.T) {
	ts := newTestServer(t)

	t.Run("healthz", func(t *testing.T) {
		rec := ts.json(http.MethodGet, "/healthz", "", nil)
		assert.Equal(t, http.StatusOK, rec.Code)

		ts.healthy = errors.New("connection refused")
		rec = ts.json(http.MethodGet, "/healthz", "", nil)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, "STORAGE_UNAVAILABLE", errorCode(t, rec))
		ts.healthy = nil
	})

	t.Run("metrics", func(t *testing.T) {
		ts.json(http.MethodGet, "/healthz", "", nil)

		rec := ts.json(http.MethodGet, "/metrics", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `stockroom_http_requests_total{method="GET",route="/healthz",status="200"}`)
	})

	t.Run("correlation id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.Header.Set(correlationid.Header, "abc-123")
		rec := ts.do(req)
		assert.Equal(t, "abc-123", rec.Header().Get(correlationid.Header))

		rec = ts.json(http.MethodGet, "/healthz", "", nil)
		assert.NotEmpty(t, rec.Header().Get(correlationid.Header))
	})

	t.Run("docs", func(t *testing.T) {
		rec := ts.json(http.MethodGet, "/docs/openapi.yml", "", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "openapi: 3.0.3")
	})
}
