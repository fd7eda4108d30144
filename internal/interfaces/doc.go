// Package interfaces documents the core abstractions used throughout the application.
//
// # Interface Categories
//
// ## Data Access Interfaces
//
//   - BookFinder: catalog lookups with review aggregates (internal/http/stores.go)
//   - ReviewStore: review reads and writes (internal/http/stores.go)
//   - StatsProvider: review aggregates used to hydrate books (internal/database/books)
//   - UserRepository: account storage behind auth.Service (internal/auth/service.go)
//   - BookInserter, Migrator: catalog loading (internal/catalog/loader.go)
//
// ## External Service Interfaces
//
//   - ratings.Client: external rating lookup (internal/ratings/client.go)
//   - ratings.Cache: storage for looked-up ratings (internal/ratings/cache.go)
//
// ## Rendering
//
//   - auth.Renderer: page rendering for auth and catalog pages (internal/auth/handlers.go)
//
// # Adding a New Rating Source
//
//  1. Implement ratings.Client in internal/ratings/
//
//     type OpenLibraryClient struct {
//         httpClient *http.Client
//     }
//
//     func (c *OpenLibraryClient) Lookup(ctx context.Context, isbn string) (*Rating, error)
//
//     var _ Client = (*OpenLibraryClient)(nil)
//
//  2. Select it in ratings.NewClient and wrap it with NewCachedClient.
//
// # Compile-Time Interface Checks
//
// All implementations should include compile-time checks to ensure they satisfy
// their interfaces:
//
//	var _ SomeInterface = (*MyImplementation)(nil)
//
// See checks.go for the full list.
package interfaces
