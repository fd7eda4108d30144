package http

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/mrlokans/readersforest/internal/auth"
	"github.com/mrlokans/readersforest/internal/logging"
)

// NewRouter creates and configures the HTTP router with all endpoints. The
// returned stop function ends the router's background workers and must be
// called once the router is no longer serving.
func NewRouter(cfg RouterConfig) (*gin.Engine, func()) {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logging.Middleware())
	if cfg.Metrics != nil {
		router.Use(cfg.Metrics.Middleware())
	}

	// Apply security headers to all responses
	router.Use(auth.SecurityHeadersMiddleware())

	// CSRF must run before session so that session context is preserved
	if len(cfg.CSRFSecret) > 0 {
		router.Use(auth.CSRFMiddleware(cfg.CSRFSecret, cfg.SecureCookies))
	}

	router.Use(cfg.SessionManager.SessionLoadSave())

	authMiddleware := auth.NewMiddleware(cfg.SessionManager)
	router.Use(authMiddleware.Handler())

	renderer, err := NewHTMLRenderer()
	if err != nil {
		log.Error().Err(err).Msg("Failed to load templates, pages will be served as JSON")
	}

	authController := auth.NewAuthController(cfg.AuthService, cfg.SessionManager, renderer, cfg.AuthConfig)
	if cfg.Metrics != nil {
		authController.OnLoginFailure(cfg.Metrics.LoginFailure)
	}
	authController.RegisterRoutes(router)

	var health *HealthController
	if cfg.Database != nil {
		health = NewHealthController(cfg.Database, cfg.Version)
	} else {
		health = NewHealthController(nil, cfg.Version)
	}
	router.GET("/health", health.Status)
	router.GET("/ping", health.Ping)

	if cfg.Metrics != nil {
		router.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	// Read-only lookup API, public
	NewAPIController(cfg.Books).RegisterRoutes(router)

	books := NewBooksController(cfg.Books, cfg.Reviews, cfg.Ratings, cfg.SessionManager, renderer, cfg.Metrics)
	router.GET("/", books.Home)

	protected := router.Group("/", authMiddleware.RequireAuth())
	protected.GET("/search", books.SearchPage)
	protected.POST("/search", books.Search)
	protected.POST("/book-search/", books.FindByISBN)
	protected.GET("/book/:isbn", books.BookPage)
	protected.POST("/book-review", books.SubmitReview)

	return router, authController.Stop
}
