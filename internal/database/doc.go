// Package database provides the data access layer for the application.
//
// # Architecture
//
// The database layer is organized into domain-specific sub-packages:
//
//	database/
//	├── database.go      # Connection setup (SQLite or PostgreSQL), migrations
//	├── errors.go        # ErrNotFound, ErrConflict, unique-violation detection
//	├── users/           # Accounts and credential lookups
//	├── books/           # Catalog lookups, search, bulk inserts
//	└── reviews/         # Reviews and per-book rating aggregates
//
// # Using Sub-packages
//
// One Database is constructed at startup and its *gorm.DB handed to each
// repository. Every call acquires a pooled connection for its own duration:
//
//	db, err := database.NewDatabase(cfg.Database)
//
//	userRepo := users.NewRepository(db.DB)
//	reviewRepo := reviews.NewRepository(db.DB)
//	bookRepo := books.NewRepository(db.DB, reviewRepo)
//
//	book, err := bookRepo.FindByISBN(ctx, "0000000001")
//
// # Errors
//
// Repositories return errors wrapping ErrNotFound or ErrConflict so callers
// can branch with errors.Is without knowing which driver is in use.
package database
