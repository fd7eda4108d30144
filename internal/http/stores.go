package http

import (
	"context"

	"github.com/mrlokans/readersforest/internal/entities"
)

// Store interfaces consumed by the controllers. The database repositories
// implement them; tests substitute fakes where a real database adds nothing.

// BookFinder provides catalog lookups hydrated with review aggregates.
type BookFinder interface {
	FindByISBN(ctx context.Context, isbn string) (*entities.BookWithStats, error)
	Search(ctx context.Context, term string) ([]entities.BookWithStats, error)
}

// ReviewStore reads and writes reviews.
type ReviewStore interface {
	AlreadyReviewed(ctx context.Context, bookID, userID uint) (bool, error)
	AddReview(ctx context.Context, bookID, userID uint, rating int, text string) (*entities.Review, error)
	ListReviews(ctx context.Context, bookID uint) ([]entities.ReviewView, error)
}
