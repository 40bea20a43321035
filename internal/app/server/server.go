package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"

	"workforce/internal/domain/attendance"
	"workforce/internal/domain/audit"
	"workforce/internal/domain/core"
	"workforce/internal/domain/leave"
	"workforce/internal/domain/notifications"
	"workforce/internal/platform/clock"
	"workforce/internal/platform/config"
	"workforce/internal/platform/db"
	"workforce/internal/platform/email"
	"workforce/internal/platform/jobs"
	"workforce/internal/platform/metrics"
	attendancehandler "workforce/internal/transport/http/handlers/attendance"
	audithandler "workforce/internal/transport/http/handlers/audit"
	leavehandler "workforce/internal/transport/http/handlers/leave"
	notificationshandler "workforce/internal/transport/http/handlers/notifications"
	"workforce/internal/transport/http/middleware"
)

// AuditStore is both halves of the audit trail: handlers record into it and
// the audit endpoint reads from it.
type AuditStore interface {
	audit.Recorder
	audithandler.Lister
}

// Stores are the persistence ports. PostgresStores backs them with pgx; tests
// use internal/storage/memory.
type Stores struct {
	Directory     core.Directory
	Leave         leave.Store
	Attendance    attendance.Store
	Notifications notifications.StoreAPI
	Runs          jobs.RunStore
	Audit         AuditStore
	Idempotency   middleware.IdempotencyStore
}

func PostgresStores(pool *pgxpool.Pool) Stores {
	return Stores{
		Directory:     core.NewStore(pool),
		Leave:         leave.NewStore(pool),
		Attendance:    attendance.NewStore(pool),
		Notifications: notifications.NewStore(pool),
		Runs:          jobs.NewStore(pool),
		Audit:         audit.New(pool),
		Idempotency:   middleware.NewIdempotencyStore(pool),
	}
}

type Services struct {
	Leave         *leave.Service
	Accrual       *leave.AccrualRunner
	Attendance    *attendance.Service
	Notifications *notifications.Service
	Jobs          *jobs.Service
	Audit         AuditStore
	Idempotency   middleware.IdempotencyStore
	Metrics       *metrics.Collector
	// Ready reports whether dependencies can serve traffic.
	Ready func(ctx context.Context) error
}

// NewServices assembles the domain services over stores. Leave workflow
// events fan out to notifications and metrics; accrual batches and imports
// are counted when a collector is given.
func NewServices(cfg config.Config, stores Stores, clk clock.Clock, loc *time.Location, mailer notifications.Mailer, collector *metrics.Collector) Services {
	rates := leave.RateTable{Managerial: cfg.LeaveRateManagerial, Standard: cfg.LeaveRateStandard}
	engine := leave.NewEngine(stores.Leave, clk, rates, loc)
	notify := notifications.New(stores.Notifications, stores.Directory, mailer, cfg.EmailFrom)

	publishers := leave.Publishers{notify}
	if collector != nil {
		publishers = append(publishers, leave.PublisherFunc(func(_ context.Context, event leave.Event) {
			collector.RecordLeaveEvent(string(event.Type))
		}))
	}

	runner := leave.NewAccrualRunner(engine, stores.Directory, cfg.LeaveAccrualWorkers)
	jobsSvc := jobs.New(stores.Runs, runner, cfg.LeaveAccrualInterval)
	attendanceSvc := attendance.NewService(stores.Attendance, stores.Directory, clk, loc)
	if collector != nil {
		jobsSvc.OnAccrual = func(s leave.AccrualSummary) {
			collector.RecordAccrual(s.Created, s.Existing, s.Skipped, s.Failed)
		}
		attendanceSvc.OnImport = func(u attendance.Upload) {
			collector.RecordImport(string(u.Status), u.MatchedRecords, u.UnmatchedRecords, u.SkippedRecords)
		}
	}

	return Services{
		Leave:         leave.NewService(stores.Leave, stores.Directory, engine, publishers),
		Accrual:       runner,
		Attendance:    attendanceSvc,
		Notifications: notify,
		Jobs:          jobsSvc,
		Audit:         stores.Audit,
		Idempotency:   stores.Idempotency,
		Metrics:       collector,
	}
}

func NewRouter(cfg config.Config, svc Services) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Logger)
	if cfg.MetricsEnabled && svc.Metrics != nil {
		router.Use(middleware.Metrics(svc.Metrics))
	}
	router.Use(middleware.SecureHeaders(cfg.IsProduction()))
	if len(cfg.CORSAllowedOrigins) > 0 {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSAllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Authorization", "Content-Type", "Idempotency-Key", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID", "X-Total-Count"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}
	router.Use(middleware.Auth(cfg.JWTSecret))
	router.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute))
	router.Use(middleware.SensitiveMutationRateLimit(cfg.RateLimitPerMinute, time.Minute))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := svc.Ready(ctx); err != nil {
				http.Error(w, "not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if cfg.MetricsEnabled && svc.Metrics != nil {
		router.Handle("/metrics", svc.Metrics.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RequireAuth)

		// Uploads carry their own, larger limit.
		attendancehandler.NewHandler(svc.Attendance, svc.Audit, cfg.MaxUploadBytes).RegisterRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
			leavehandler.NewHandler(svc.Leave, svc.Jobs, svc.Audit, svc.Idempotency).RegisterRoutes(r)
			notificationshandler.NewHandler(svc.Notifications).RegisterRoutes(r)
			if svc.Audit != nil {
				audithandler.NewHandler(svc.Audit).RegisterRoutes(r)
			}
		})
	})

	return router
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func Run(ctx context.Context, cfg config.Config) error {
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	defer pool.Close()

	if cfg.RunMigrations {
		applied, err := db.Migrate(ctx, pool, db.MigrationSource(cfg.MigrationsDir))
		if err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		slog.Info("migrations applied", "count", len(applied), "versions", applied)
	}

	var collector *metrics.Collector
	if cfg.MetricsEnabled {
		collector = metrics.New()
	}
	svc := NewServices(cfg, PostgresStores(pool), clock.System{}, loc, email.New(cfg), collector)
	svc.Ready = pool.Ping
	svc.Jobs.Start(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           NewRouter(cfg, svc),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("workforce server listening", "addr", cfg.Addr, "env", cfg.Environment)
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
	slog.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
