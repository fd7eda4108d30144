// Package reviews provides database operations for book reviews and the
// rating aggregates derived from them.
//
// # Usage
//
//	repo := reviews.NewRepository(db)
//	review, err := repo.AddReview(ctx, bookID, userID, 4, "Loved it")
//	avg, err := repo.AverageRating(ctx, bookID)
package reviews

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/readersforest/internal/database"
	"github.com/mrlokans/readersforest/internal/entities"
)

const (
	MinRating = 1
	MaxRating = 5
)

var (
	ErrAlreadyReviewed = fmt.Errorf("book already reviewed by this user: %w", database.ErrConflict)
	ErrInvalidRating   = errors.New("rating must be between 1 and 5")
)

// Repository handles all review database operations.
type Repository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewRepository creates a new reviews repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

// AlreadyReviewed reports whether userID has a review for bookID.
func (r *Repository) AlreadyReviewed(ctx context.Context, bookID, userID uint) (bool, error) {
	return alreadyReviewed(r.db.WithContext(ctx), bookID, userID)
}

func alreadyReviewed(db *gorm.DB, bookID, userID uint) (bool, error) {
	var count int64
	err := db.Model(&entities.Review{}).
		Where("book_id = ? AND user_id = ?", bookID, userID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check existing review: %w", err)
	}
	return count > 0, nil
}

// AddReview stores a review stamped with the current time. The existence check
// and the insert share one transaction; the (book_id, user_id) unique index
// rejects whatever slips past the check under concurrency.
func (r *Repository) AddReview(ctx context.Context, bookID, userID uint, rating int, text string) (*entities.Review, error) {
	if rating < MinRating || rating > MaxRating {
		return nil, ErrInvalidRating
	}

	review := &entities.Review{
		BookID:      bookID,
		UserID:      userID,
		DateCreated: r.now().UTC(),
		Rating:      rating,
		Review:      text,
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exists, err := alreadyReviewed(tx, bookID, userID)
		if err != nil {
			return err
		}
		if exists {
			return ErrAlreadyReviewed
		}

		if err := tx.Create(review).Error; err != nil {
			if database.IsUniqueViolation(err) {
				return ErrAlreadyReviewed
			}
			return fmt.Errorf("failed to create review: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return review, nil
}

// AverageRating returns the mean rating of bookID, or 0 when it has no reviews.
func (r *Repository) AverageRating(ctx context.Context, bookID uint) (float64, error) {
	var avg float64
	err := r.db.WithContext(ctx).Model(&entities.Review{}).
		Select("COALESCE(AVG(rating), 0)").
		Where("book_id = ?", bookID).
		Scan(&avg).Error
	if err != nil {
		return 0, fmt.Errorf("failed to compute average rating: %w", err)
	}
	return avg, nil
}

// ReviewCount returns the number of reviews for bookID.
func (r *Repository) ReviewCount(ctx context.Context, bookID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.Review{}).
		Where("book_id = ?", bookID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count reviews: %w", err)
	}
	return count, nil
}

// Stats returns both aggregates for a single book.
func (r *Repository) Stats(ctx context.Context, bookID uint) (entities.BookStats, error) {
	stats, err := r.StatsForBooks(ctx, []uint{bookID})
	if err != nil {
		return entities.BookStats{}, err
	}
	return stats[bookID], nil
}

// StatsForBooks computes aggregates for many books in one query. Books
// without reviews are absent from the map; the zero value is correct for them.
func (r *Repository) StatsForBooks(ctx context.Context, bookIDs []uint) (map[uint]entities.BookStats, error) {
	result := make(map[uint]entities.BookStats, len(bookIDs))
	if len(bookIDs) == 0 {
		return result, nil
	}

	var rows []struct {
		BookID        uint
		ReviewCount   int64
		AverageRating float64
	}
	err := r.db.WithContext(ctx).Model(&entities.Review{}).
		Select("book_id, COUNT(*) AS review_count, AVG(rating) AS average_rating").
		Where("book_id IN ?", bookIDs).
		Group("book_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to compute review stats: %w", err)
	}

	for _, row := range rows {
		result[row.BookID] = entities.BookStats{
			AverageRating: row.AverageRating,
			ReviewCount:   row.ReviewCount,
		}
	}
	return result, nil
}

// ListReviews returns the reviews of bookID with their authors' usernames,
// newest first.
func (r *Repository) ListReviews(ctx context.Context, bookID uint) ([]entities.ReviewView, error) {
	var views []entities.ReviewView
	err := r.db.WithContext(ctx).Table("book_reviews").
		Select("book_reviews.id, users.username, book_reviews.date_created, book_reviews.rating, book_reviews.review").
		Joins("JOIN users ON users.id = book_reviews.user_id").
		Where("book_reviews.book_id = ?", bookID).
		Order("book_reviews.date_created DESC, book_reviews.id DESC").
		Scan(&views).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	return views, nil
}
