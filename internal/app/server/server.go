package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"staffledger/internal/domain/accrual"
	"staffledger/internal/domain/attendance"
	"staffledger/internal/domain/audit"
	"staffledger/internal/domain/auth"
	"staffledger/internal/domain/employee"
	"staffledger/internal/domain/ledger"
	"staffledger/internal/domain/payslip"
	"staffledger/internal/domain/report"
	"staffledger/internal/platform/config"
	cryptoutil "staffledger/internal/platform/crypto"
	"staffledger/internal/platform/db"
	"staffledger/internal/platform/email"
	"staffledger/internal/platform/jobs"
	"staffledger/internal/platform/metrics"
	"staffledger/internal/transport/http/api"
	attendancehandler "staffledger/internal/transport/http/handlers/attendance"
	audithandler "staffledger/internal/transport/http/handlers/audit"
	authhandler "staffledger/internal/transport/http/handlers/auth"
	employeehandler "staffledger/internal/transport/http/handlers/employees"
	ledgerhandler "staffledger/internal/transport/http/handlers/ledger"
	mehandler "staffledger/internal/transport/http/handlers/me"
	reporthandler "staffledger/internal/transport/http/handlers/reports"
	"staffledger/internal/transport/http/middleware"
)

type App struct {
	Config  config.Config
	DB      *pgxpool.Pool
	Router  http.Handler
	Reports *report.Service
	Jobs    *jobs.Service
	Metrics *metrics.Collector
	Logger  *slog.Logger
}

// Registrar is implemented by every handler package.
type Registrar interface {
	RegisterRoutes(r chi.Router)
}

// Pinger reports database readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// New connects to the database, applies migrations and seed data, and wires
// every service behind the HTTP router.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	crypto, err := cryptoutil.New(cfg.DataEncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("encryption key: %w", err)
	}

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, cfg.MigrationsDir); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrations: %w", err)
		}
	}
	if cfg.RunSeed {
		if err := db.Seed(ctx, pool, cfg); err != nil {
			pool.Close()
			return nil, fmt.Errorf("seed: %w", err)
		}
	}

	policy := accrual.DefaultPolicy()
	policy.PerDiemDivisor = decimal.NewFromInt(int64(cfg.PerDiemDivisor))
	policy.Location = loc
	engine, err := accrual.NewEngine(policy)
	if err != nil {
		pool.Close()
		return nil, err
	}

	collector := metrics.New()
	auditSvc := audit.New(pool)
	authSvc := auth.NewService(auth.NewStore(pool), crypto, cfg.JWTSecret, cfg.TokenTTL)
	reportSvc := report.NewService(report.NewStore(pool), engine, cfg.ReportFetchConcurrency, collector)
	employeeSvc := employee.NewService(employee.NewStore(pool, crypto), reportSvc, auditSvc)
	attendanceSvc := attendance.NewService(attendance.NewStore(pool), employeeSvc, authSvc, reportSvc, loc)
	notifier := email.NewNotifier(email.New(cfg), cfg.EmailFrom)
	ledgerSvc := ledger.NewService(ledger.NewStore(pool), employeeSvc, reportSvc, notifier, auditSvc, loc)
	payslipSvc := payslip.NewService(reportSvc)
	jobsSvc := jobs.New(pool, reportSvc, cfg.ReportWarmInterval, loc)
	jobsSvc.HousekeepingSchedule = cfg.HousekeepingSchedule

	router := NewRouter(cfg, logger, collector, pool,
		authhandler.NewHandler(authSvc),
		employeehandler.NewHandler(employeeSvc),
		attendancehandler.NewHandler(attendanceSvc, loc),
		ledgerhandler.NewHandler(ledgerSvc, middleware.NewIdempotencyStore(pool)),
		reporthandler.NewHandler(reportSvc, payslipSvc, jobsSvc, loc),
		audithandler.NewHandler(auditSvc),
		&mehandler.Handler{
			Users:        authSvc,
			Employees:    employeeSvc,
			Reports:      reportSvc,
			Transactions: ledgerSvc,
			Calendars:    attendanceSvc,
			Location:     loc,
		},
	)

	return &App{
		Config:  cfg,
		DB:      pool,
		Router:  router,
		Reports: reportSvc,
		Jobs:    jobsSvc,
		Metrics: collector,
		Logger:  logger,
	}, nil
}

func NewRouter(cfg config.Config, logger *slog.Logger, collector *metrics.Collector, pinger Pinger, handlers ...Registrar) http.Handler {
	router := chi.NewRouter()
	router.Use(chimw.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID", middleware.IdempotencyHeader},
		ExposedHeaders:   []string{"X-Request-ID", "X-Total-Count", "Idempotent-Replayed"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	router.Use(middleware.RequestID)
	router.Use(middleware.SecureHeaders(cfg.Environment == "production"))
	router.Use(middleware.Logger(logger, collector))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.Auth(cfg.JWTSecret))
	router.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute))
	router.Use(middleware.SensitiveMutationRateLimit(cfg.RateLimitPerMinute, time.Minute))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if pinger == nil || pinger.Ping(ctx) != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if cfg.MetricsEnabled && collector != nil {
		router.Method(http.MethodGet, "/metrics", collector.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		for _, h := range handlers {
			h.RegisterRoutes(r)
		}
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			api.Fail(w, http.StatusNotFound, "not_found", "route not found", middleware.GetRequestID(r.Context()))
		})
	})

	return router
}

// Run starts the background jobs and serves HTTP until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if err := a.Jobs.Start(ctx); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              a.Config.Addr,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("server listening", "addr", a.Config.Addr, "env", a.Config.Environment)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	a.Logger.Info("server shutting down")
	return srv.Shutdown(shutdownCtx)
}

func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
	}
}
