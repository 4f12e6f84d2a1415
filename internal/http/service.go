package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"

	"github.com/tuanvumaihuynh/stockroom/internal/apperr"
	"github.com/tuanvumaihuynh/stockroom/internal/config"
	"github.com/tuanvumaihuynh/stockroom/internal/http/apierr"
	"github.com/tuanvumaihuynh/stockroom/internal/http/metric"
	"github.com/tuanvumaihuynh/stockroom/internal/http/middleware"
	"github.com/tuanvumaihuynh/stockroom/internal/http/swagger"
	"github.com/tuanvumaihuynh/stockroom/internal/service"
	"github.com/tuanvumaihuynh/stockroom/internal/storage/db"
	"github.com/tuanvumaihuynh/stockroom/pkg/validator"
)

var tracer = otel.Tracer("internal/http")

// Services groups the application services served over HTTP.
type Services struct {
	User     service.UserService
	Product  service.ProductService
	Import   service.ImportService
	Supplier service.SupplierService
	Health   db.HealthChecker
}

// Service represents the HTTP service.
type Service struct {
	cfg            config.HTTP
	maxUploadBytes int64
	logger         *slog.Logger
	metrics        *metric.Metrics
	validator      validator.Validator

	svc Services
}

type CleanupFunc func(ctx context.Context) error

func New(
	cfg config.HTTP,
	catalogCfg config.Catalog,
	log *slog.Logger,
	v validator.Validator,
	svc Services,
) *Service {
	return &Service{
		cfg:            cfg,
		maxUploadBytes: catalogCfg.ImportMaxUploadBytes,
		logger:         log.With(slog.String("service", "http")),
		metrics:        metric.New(),
		validator:      v,
		svc:            svc,
	}
}

func (s *Service) Run(ctx context.Context) (CleanupFunc, error) {
	return s.RunWithServer(ctx, s.Handler())
}

// Handler returns the fully routed HTTP handler.
func (s *Service) Handler() http.Handler {
	r := chi.NewRouter()
	s.RegisterMiddlewares(r)

	if s.cfg.Swagger {
		swagger.Register(r)
	}

	s.RegisterHandlers(r)

	return r
}

func (s *Service) RunWithServer(ctx context.Context, handler http.Handler) (CleanupFunc, error) {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.cfg.Port))
	if err != nil {
		return nil, fmt.Errorf("listen on port %d: %w", s.cfg.Port, err)
	}

	srv := &http.Server{
		Handler:           handler,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 16, // 64 KB
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.ErrorContext(ctx, "http server stopped", slog.Any("error", err))
		}
	}()

	s.logger.InfoContext(ctx, "http server listening", slog.String("addr", ln.Addr().String()))

	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}, nil
}

func (s *Service) RegisterMiddlewares(r chi.Router) {
	r.Use(
		middleware.Recoverer(s.logger),
		middleware.Trace(tracer),
		middleware.Metrics(s.metrics),
		middleware.CorrelationID(),
		middleware.Cors(s.cfg.AllowedOrigins),
		middleware.Logging(s.logger),
	)
}

func (s *Service) RegisterHandlers(r chi.Router) {
	authn := middleware.Authenticate(s.svc.User, s.handleResponseError)
	adminOnly := middleware.RequireAdmin(s.handleResponseError)

	users := newUserHandler(s.svc.User)
	products := newProductHandler(s.svc.Product)
	imports := newImportHandler(s.svc.Import, s.maxUploadBytes)
	suppliers := newSupplierHandler(s.svc.Supplier)

	r.Post("/auth/register", s.handle(users.register))
	r.Post("/auth/login", s.handle(users.login))

	r.Group(func(r chi.Router) {
		r.Use(authn)

		r.Get("/auth/profile", s.handle(users.profile))
		r.With(adminOnly).Get("/users", s.handle(users.listUsers))

		r.Route("/products", func(r chi.Router) {
			r.Get("/", s.handle(products.listProducts))
			r.Post("/", s.handle(products.createProduct))
			r.Get("/next-code", s.handle(products.nextCode))
			r.Post("/undo", s.handle(products.undoDelete))
			r.Get("/deleted", s.handle(products.listDeleted))
			r.Post("/delete-all", s.handle(products.deleteAllProducts))

			r.Post("/import", s.handle(imports.startImport))
			r.Get("/import/progress", s.handle(imports.progress))
			r.Get("/import/template", s.handle(imports.template))

			r.Get("/{id}", s.handle(products.getProduct))
			r.Patch("/{id}", s.handle(products.updateProductField))
			r.Delete("/{id}", s.handle(products.deleteProduct))
		})

		r.Get("/suppliers", s.handle(suppliers.listSuppliers))
		r.Post("/suppliers", s.handle(suppliers.createSupplier))
		r.With(adminOnly).Delete("/suppliers/{id}", s.handle(suppliers.deleteSupplier))
	})

	r.Get("/healthz", s.handle(s.healthz))

	r.Handle(middleware.MetricsPath, promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{
		ErrorLog: log.Default(),
	}))
}

// handlerFunc is an HTTP handler that reports failures as errors so they are
// rendered in one place.
type handlerFunc func(w http.ResponseWriter, r *http.Request, req request) error

func (s *Service) handle(fn handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := request{r: r, validator: s.validator}
		err := fn(w, r, req)
		if err == nil {
			return
		}

		var written writtenError
		if errors.As(err, &written) {
			s.logger.WarnContext(r.Context(), "error writing response", slog.Any("error", err))
			return
		}
		s.handleResponseError(w, r, err)
	}
}

func (s *Service) healthz(w http.ResponseWriter, r *http.Request, _ request) error {
	ok, err := s.svc.Health.IsHealthy(r.Context())
	if err != nil || !ok {
		return apperr.StorageUnavailableErr.WrapParent(err)
	}
	return writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Service) handleResponseError(w http.ResponseWriter, r *http.Request, err error) {
	res := apierr.New(err)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(res.StatusCode)

	logLevel := slog.LevelInfo
	if res.StatusCode >= 500 {
		logLevel = slog.LevelError
	} else if res.StatusCode >= 400 {
		logLevel = slog.LevelWarn
	}
	s.logger.Log(r.Context(), logLevel, "http response error", slog.Any("error", err))

	if err := json.NewEncoder(w).Encode(res); err != nil {
		s.logger.ErrorContext(r.Context(), "error encoding error response",
			slog.Any("error", err))
	}
}
