package interfaces

// Compile-time interface implementation checks.
//
// To verify all checks pass: go build ./internal/interfaces/...

import (
	"github.com/mrlokans/readersforest/internal/auth"
	"github.com/mrlokans/readersforest/internal/catalog"
	"github.com/mrlokans/readersforest/internal/database"
	"github.com/mrlokans/readersforest/internal/database/books"
	"github.com/mrlokans/readersforest/internal/database/reviews"
	"github.com/mrlokans/readersforest/internal/database/users"
	"github.com/mrlokans/readersforest/internal/http"
	"github.com/mrlokans/readersforest/internal/ratings"
)

// =============================================================================
// Data Access Layer
// =============================================================================

var _ http.BookFinder = (*books.Repository)(nil)
var _ http.ReviewStore = (*reviews.Repository)(nil)
var _ books.StatsProvider = (*reviews.Repository)(nil)
var _ auth.UserRepository = (*users.Repository)(nil)

var _ catalog.BookInserter = (*books.Repository)(nil)
var _ catalog.Migrator = (*database.Database)(nil)
var _ http.Pinger = (*database.Database)(nil)

// =============================================================================
// Sessions and rendering
// =============================================================================

var _ http.Flasher = (*auth.SessionManager)(nil)
var _ auth.Renderer = (*http.HTMLRenderer)(nil)

// =============================================================================
// External Services
// =============================================================================

var _ ratings.Client = (*ratings.GoodreadsClient)(nil)
var _ ratings.Client = (*ratings.CachedClient)(nil)
var _ ratings.Client = ratings.DisabledClient{}

var _ ratings.Cache = (*ratings.MemoryCache)(nil)
var _ ratings.Cache = (*ratings.RedisCache)(nil)
