package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/ehr/frontdesk/internal/config"
	"github.com/ehr/frontdesk/internal/domain/checkin"
	"github.com/ehr/frontdesk/internal/domain/journal"
	"github.com/ehr/frontdesk/internal/domain/patient"
	"github.com/ehr/frontdesk/internal/domain/visitflow"
	"github.com/ehr/frontdesk/internal/platform/auth"
	"github.com/ehr/frontdesk/internal/platform/db"
	"github.com/ehr/frontdesk/internal/platform/events"
	"github.com/ehr/frontdesk/internal/platform/logging"
	"github.com/ehr/frontdesk/internal/platform/metrics"
	"github.com/ehr/frontdesk/internal/platform/middleware"
	"github.com/ehr/frontdesk/internal/platform/supabase"
)

const (
	requestTimeout = 30 * time.Second
	bodyLimit      = "1M"
)

// stores is the persistence chosen by STORE_BACKEND.
type stores struct {
	patients   patient.Repository
	additional patient.AdditionalDataRepository
	notes      journal.Repository
	logs       journal.Repository
	health     echo.HandlerFunc
	// clinic selects the per-clinic schema; nil when the backend has none.
	clinic echo.MiddlewareFunc
	close  func()
}

func openStores(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*stores, error) {
	switch cfg.StoreBackend {
	case config.StoreSupabase:
		client, err := supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseServiceKey)
		if err != nil {
			return nil, err
		}
		logger.Info().Str("url", cfg.SupabaseURL).Msg("using supabase store")
		return &stores{
			patients:   patient.NewRepoSupabase(client),
			additional: patient.NewAdditionalDataRepoSupabase(client),
			notes:      journal.NewRepoSupabase(client, journal.KindNote),
			logs:       journal.NewRepoSupabase(client, journal.KindLog),
			health:     supabase.HealthHandler(client, "patients"),
			close:      func() {},
		}, nil
	default:
		pool, err := db.NewPool(ctx, db.PoolOptions{URL: cfg.DatabaseURL, MaxConns: cfg.DBMaxConns, MinConns: cfg.DBMinConns})
		if err != nil {
			return nil, err
		}
		logger.Info().Msg("connected to database")
		return postgresStores(pool, cfg.DefaultClinic), nil
	}
}

func postgresStores(pool *pgxpool.Pool, defaultClinic string) *stores {
	return &stores{
		patients:   patient.NewRepoPG(pool),
		additional: patient.NewAdditionalDataRepoPG(pool),
		notes:      journal.NewRepoPG(pool, journal.KindNote),
		logs:       journal.NewRepoPG(pool, journal.KindLog),
		health:     db.PoolHealthHandler(pool),
		clinic:     db.ClinicMiddleware(pool, defaultClinic),
		close:      pool.Close,
	}
}

func newPublisher(cfg *config.Config, logger zerolog.Logger) (events.Publisher, error) {
	if !cfg.KafkaEnabled() {
		return events.Nop{}, nil
	}
	pub, err := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaCheckInTopic)
	if err != nil {
		return nil, err
	}
	logger.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.KafkaCheckInTopic).Msg("publishing check-in events")
	return pub, nil
}

// newServer builds the echo instance with every route and middleware.
func newServer(cfg *config.Config, logger zerolog.Logger, st *stores, m *metrics.Metrics, pub events.Publisher) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.RequestTimeout(requestTimeout))
	if cfg.MetricsEnabled {
		e.Use(m.Middleware())
	}
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader, db.ClinicHeader},
	}))
	e.Use(echomw.RateLimiterWithConfig(echomw.RateLimiterConfig{
		Skipper: func(c echo.Context) bool { return auth.IsPublicPath(c.Path()) },
		Store: echomw.NewRateLimiterMemoryStoreWithConfig(echomw.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(cfg.RateLimitRPS),
			Burst:     cfg.RateLimitBurst,
			ExpiresIn: 3 * time.Minute,
		}),
	}))
	e.Use(echomw.BodyLimit(bodyLimit))

	// Auth middleware
	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware())
	} else {
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			Secret:  []byte(cfg.JWTSecret),
			Skipper: auth.AuthSkipper,
		}))
	}

	// Clinic schema selection
	if st.clinic != nil {
		e.Use(st.clinic)
	}

	// Audit middleware
	e.Use(middleware.Audit(logger))

	// Services
	filter := patient.NewFilter(logger, m)
	patientSvc := patient.NewService(st.patients, st.additional, filter)
	journalSvc := journal.NewService(st.notes, st.logs, patientSvc)
	checkinSvc := checkin.NewService(st.patients, st.additional, journalSvc, pub, m, logger)

	// Routes
	apiV1 := e.Group("/api/v1")
	patient.NewHandler(patientSvc).RegisterRoutes(apiV1)
	journal.NewHandler(journalSvc).RegisterRoutes(apiV1)
	checkin.NewHandler(checkinSvc).RegisterRoutes(apiV1)
	visitflow.NewHandler().RegisterRoutes(apiV1)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/health/db", st.health)
	if cfg.MetricsEnabled {
		e.GET("/metrics", echo.WrapHandler(m.Handler()))
	}

	return e
}

func runServer() error {
	// Config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Logger
	logger, err := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Service: "frontdesk"})
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		logger.Error().Err(err).Msg("invalid configuration")
		return err
	}

	ctx := context.Background()
	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to open store")
		return err
	}
	defer st.close()

	m := metrics.New()
	if err := m.RegisterSystemGauges(); err != nil {
		logger.Warn().Err(err).Msg("system gauges unavailable")
	}

	pub, err := newPublisher(cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to create event publisher")
		return err
	}
	defer pub.Close()

	e := newServer(cfg, logger, st, m, pub)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("store", cfg.StoreBackend).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
