package entrypoint

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/mrlokans/readersforest/internal/auth"
	"github.com/mrlokans/readersforest/internal/config"
	"github.com/mrlokans/readersforest/internal/database"
	"github.com/mrlokans/readersforest/internal/database/books"
	"github.com/mrlokans/readersforest/internal/database/reviews"
	"github.com/mrlokans/readersforest/internal/database/users"
	http_controllers "github.com/mrlokans/readersforest/internal/http"
	"github.com/mrlokans/readersforest/internal/logging"
	"github.com/mrlokans/readersforest/internal/metrics"
	"github.com/mrlokans/readersforest/internal/ratings"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Dur("timeout", timeout).Msg("Shutdown Server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server Shutdown")
	}

	if onShutdown != nil {
		onShutdown(ctx)
	}

	log.Info().Msg("Server exiting")
}

func Run(cfg *config.Config, version string) {
	logging.Setup(cfg.Logging)
	log.Info().Str("version", version).Msg("Starting Reader's Forest")

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Refusing to start")
	}

	db, err := database.NewDatabase(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}

	// SQLite keeps sessions next to the catalog; Postgres deployments keep
	// them in memory.
	var sessionDB *sql.DB
	if db.Driver == database.DriverSQLite {
		sessionDB, err = db.SQLDB()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to get SQL DB for sessions")
		}
	}
	sessionManager, err := auth.NewSessionManager(sessionDB, cfg.Session)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create session manager")
	}

	csrfSecret, err := csrfSecretFrom(cfg.Session.Secret)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to generate CSRF secret")
	}

	ratingsClient, closeCache := newRatingsClient(cfg)

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	reviewRepo := reviews.NewRepository(db.DB)
	bookRepo := books.NewRepository(db.DB, reviewRepo)

	if count, err := bookRepo.CountBooks(context.Background()); err == nil && count == 0 {
		log.Warn().Msg("Catalog is empty. Run the init-db command to load books.")
	}

	router, stopRouter := http_controllers.NewRouter(http_controllers.RouterConfig{
		Database:       db,
		Books:          bookRepo,
		Reviews:        reviewRepo,
		Ratings:        ratingsClient,
		AuthService:    auth.NewService(users.NewRepository(db.DB), cfg.Auth),
		SessionManager: sessionManager,
		AuthConfig:     cfg.Auth,
		CSRFSecret:     csrfSecret,
		SecureCookies:  cfg.Session.SecureCookies,
		Metrics:        m,
		Version:        version,
	})

	Serve(router, cfg, func(ctx context.Context) {
		stopRouter()
		if closeCache != nil {
			if err := closeCache(); err != nil {
				log.Error().Err(err).Msg("Error closing ratings cache")
			}
		}
		if err := db.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing database")
		}
	})
}

// csrfSecretFrom decodes a hex secret, falls back to the raw bytes, and
// generates a fresh one when none is configured.
func csrfSecretFrom(secret string) ([]byte, error) {
	if secret != "" {
		if decoded, err := hex.DecodeString(secret); err == nil {
			return decoded, nil
		}
		return []byte(secret), nil
	}

	generated, err := auth.GenerateSessionSecret()
	if err != nil {
		return nil, err
	}
	log.Warn().Msg("Generated session secret (set SESSION_SECRET to persist)")
	return hex.DecodeString(generated)
}

// newRatingsClient picks the cache backing the external ratings client.
// A Redis that cannot be reached is logged and replaced by the in-process cache.
func newRatingsClient(cfg *config.Config) (ratings.Client, func() error) {
	if !cfg.Ratings.Enabled {
		log.Info().Msg("External ratings disabled")
		return ratings.DisabledClient{}, nil
	}

	if cfg.Redis.URL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		cache, err := ratings.NewRedisCache(ctx, cfg.Redis.URL)
		if err == nil {
			log.Info().Msg("Ratings cache: redis")
			return ratings.NewClient(cfg.Ratings, cache), cache.Close
		}
		log.Warn().Err(err).Msg("Redis unavailable, using in-process ratings cache")
	}

	return ratings.NewClient(cfg.Ratings, ratings.NewMemoryCache()), nil
}
