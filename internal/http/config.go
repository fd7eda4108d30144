package http

import (
	"github.com/mrlokans/readersforest/internal/auth"
	"github.com/mrlokans/readersforest/internal/config"
	"github.com/mrlokans/readersforest/internal/database"
	"github.com/mrlokans/readersforest/internal/metrics"
	"github.com/mrlokans/readersforest/internal/ratings"
)

// RouterConfig contains all dependencies needed to create the HTTP router.
type RouterConfig struct {
	// Core dependencies
	Database *database.Database
	Books    BookFinder
	Reviews  ReviewStore
	Ratings  ratings.Client

	// Authentication
	AuthService    *auth.Service
	SessionManager *auth.SessionManager
	AuthConfig     config.Auth
	CSRFSecret     []byte
	SecureCookies  bool

	// Observability; nil disables /metrics
	Metrics *metrics.Metrics

	// Application info
	Version string
}
