package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"ledger/internal/core"
	"ledger/internal/log"
	"ledger/internal/middleware/security"
	"ledger/internal/middleware/trace"
	"ledger/internal/validation"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Ledger is the application surface the handlers call; services.TransactionService implements it.
type Ledger interface {
	CreateTransaction(ctx context.Context, in core.TransactionInput) (core.Transaction, error)
	ListTransactions(ctx context.Context, page core.Page) ([]core.TransactionView, error)
	GetTransaction(ctx context.Context, id string) (core.TransactionView, error)
	UpdateTransaction(ctx context.Context, id string, upd core.TransactionUpdate) error
	DeleteTransaction(ctx context.Context, id string) error
	Summary(ctx context.Context, f core.SummaryFilter) (core.Summary, error)
	Categories(ctx context.Context) ([]core.Category, error)
	Ping(ctx context.Context) error
}

type Options struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// Registry receives the HTTP metrics; a fresh one is created when nil.
	Registry *prometheus.Registry
	// TrustedProxies are CIDRs, beyond loopback and private ranges, allowed to set X-Forwarded-For.
	TrustedProxies []string
}

const (
	maxBodyBytes = 1 << 20
	readyTimeout = 2 * time.Second
)

type Server struct {
	http.Server
	ledger    Ledger
	validator *validation.Validator
	logger    *log.Logger
	startedAt time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, ledger Ledger, logger *log.Logger, opts Options) *Server {
	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadTimeout:       opts.ReadTimeout,
			ReadHeaderTimeout: opts.ReadTimeout,
			WriteTimeout:      opts.WriteTimeout,
		},
		ledger:    ledger,
		validator: validation.New(),
		logger:    logger.WithComponent(log.ComponentHTTP),
		startedAt: time.Now(),
	}

	ips := security.NewIPExtractor()
	for _, cidr := range opts.TrustedProxies {
		if err := ips.AddTrustedProxy(cidr); err != nil {
			s.logger.Warn("Ignoring trusted proxy", log.FieldError, err)
		}
	}
	tracer := trace.NewMiddleware(logger, ips.ClientIP, trace.NewMetrics(reg))

	r := chi.NewRouter()
	r.Use(security.Headers(security.DefaultHeadersConfig()))
	r.Use(tracer.Handler)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("Not found").Write(w, r)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusMethodNotAllowed, "Method not allowed").Write(w, r)
	})

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	r.Post("/transactions", s.handleCreateTransaction)
	r.Get("/transactions", s.handleListTransactions)
	r.Get("/transactions/{id}", s.handleGetTransaction)
	r.Put("/transactions/{id}", s.handleUpdateTransaction)
	r.Delete("/transactions/{id}", s.handleDeleteTransaction)
	r.Get("/summary", s.handleSummary)
	r.Get("/categories", s.handleCategories)

	s.Handler = r
	return s
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.logger.InfoContext(ctx, "HTTP server shutting down", log.FieldOperation, log.OpShutdown)
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.startedAt).Round(time.Second).String(),
	}).Write(w, r)
}

// handleReady reports 503 until the store answers a ping.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	status, code := "ready", http.StatusOK
	checks := map[string]string{"store": "ok"}
	if err := s.ledger.Ping(ctx); err != nil {
		status, code = "not_ready", http.StatusServiceUnavailable
		checks["store"] = "failed: " + err.Error()
		log.FromContext(ctx).WarnContext(ctx, "Readiness check failed", log.FieldError, err)
	}

	NewJSONResponse().Status(code).Body(map[string]any{
		"status": status,
		"checks": checks,
	}).Write(w, r)
}

// logFailure records the detail of an unexpected error; clients only see the fixed message.
func logFailure(r *http.Request, msg string, err error, op string, args ...any) {
	ctx := r.Context()
	log.FromContext(ctx).ErrorContext(ctx, msg,
		append([]any{log.FieldError, err, log.FieldOperation, op}, args...)...)
}
