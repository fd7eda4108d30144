// Package books provides database operations for the book catalog.
//
// Lookups return books hydrated with their review aggregates, which come from
// a StatsProvider (normally the reviews repository).
//
// # Usage
//
//	repo := books.NewRepository(db, reviewRepo)
//	book, err := repo.FindByISBN(ctx, "0000000001")
//	results, err := repo.Search(ctx, "tolkien")
package books

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/readersforest/internal/database"
	"github.com/mrlokans/readersforest/internal/entities"
)

// StatsProvider computes per-book review aggregates.
type StatsProvider interface {
	StatsForBooks(ctx context.Context, bookIDs []uint) (map[uint]entities.BookStats, error)
}

// InsertMode selects how InsertBooks treats rows that cannot be stored.
type InsertMode int

const (
	// BestEffort stores every row it can and skips ISBNs already present.
	BestEffort InsertMode = iota
	// AllOrNothing stores every row in one transaction or none at all.
	AllOrNothing
)

// InsertResult reports what InsertBooks did.
type InsertResult struct {
	Inserted int
	Skipped  []string // ISBNs that already existed
}

// Repository handles all book database operations.
type Repository struct {
	db    *gorm.DB
	stats StatsProvider
}

// NewRepository creates a new books repository.
func NewRepository(db *gorm.DB, stats StatsProvider) *Repository {
	return &Repository{db: db, stats: stats}
}

// GetBookByID retrieves a book by ID without aggregates.
func (r *Repository) GetBookByID(ctx context.Context, id uint) (*entities.Book, error) {
	var book entities.Book
	if err := r.db.WithContext(ctx).First(&book, id).Error; err != nil {
		return nil, mapLookupError(err)
	}
	return &book, nil
}

// FindByISBN returns the book with an exact ISBN match and its review aggregates.
func (r *Repository) FindByISBN(ctx context.Context, isbn string) (*entities.BookWithStats, error) {
	var book entities.Book
	err := r.db.WithContext(ctx).Where("isbn = ?", isbn).First(&book).Error
	if err != nil {
		return nil, mapLookupError(err)
	}

	hydrated, err := r.hydrate(ctx, []entities.Book{book})
	if err != nil {
		return nil, err
	}
	return &hydrated[0], nil
}

// Search returns books whose ISBN, title or author contains term, ordered by
// title. LIKE wildcards in term match literally. Postgres ignores case with
// ILIKE; SQLite's LIKE ignores ASCII case only and matches other letters
// exactly as written.
func (r *Repository) Search(ctx context.Context, term string) ([]entities.BookWithStats, error) {
	pattern := "%" + escapeLike(term) + "%"

	op := "LIKE"
	if r.db.Dialector.Name() == "postgres" {
		op = "ILIKE"
	}

	var books []entities.Book
	err := r.db.WithContext(ctx).
		Where("isbn "+op+` ? ESCAPE '\'`, pattern).
		Or("title "+op+` ? ESCAPE '\'`, pattern).
		Or("author "+op+` ? ESCAPE '\'`, pattern).
		Order("title ASC, id ASC").
		Find(&books).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search books: %w", err)
	}

	return r.hydrate(ctx, books)
}

// InsertBooks stores books according to mode. In AllOrNothing mode a
// duplicate ISBN aborts the whole batch with an error wrapping
// database.ErrConflict.
func (r *Repository) InsertBooks(ctx context.Context, books []entities.Book, mode InsertMode) (*InsertResult, error) {
	result := &InsertResult{}
	db := r.db.WithContext(ctx)

	if mode == AllOrNothing {
		err := db.Transaction(func(tx *gorm.DB) error {
			for i := range books {
				if err := tx.Create(&books[i]).Error; err != nil {
					if database.IsUniqueViolation(err) {
						return fmt.Errorf("isbn %q: %w", books[i].ISBN, database.ErrConflict)
					}
					return fmt.Errorf("failed to insert book %q: %w", books[i].ISBN, err)
				}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		result.Inserted = len(books)
		return result, nil
	}

	for i := range books {
		res := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "isbn"}},
			DoNothing: true,
		}).Create(&books[i])
		if res.Error != nil {
			return result, fmt.Errorf("failed to insert book %q: %w", books[i].ISBN, res.Error)
		}
		if res.RowsAffected == 0 {
			result.Skipped = append(result.Skipped, books[i].ISBN)
			continue
		}
		result.Inserted++
	}
	return result, nil
}

// CountBooks returns the catalog size.
func (r *Repository) CountBooks(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.Book{}).Count(&count).Error
	return count, err
}

func (r *Repository) hydrate(ctx context.Context, books []entities.Book) ([]entities.BookWithStats, error) {
	result := make([]entities.BookWithStats, len(books))
	if len(books) == 0 {
		return result, nil
	}

	ids := make([]uint, len(books))
	for i, b := range books {
		ids[i] = b.ID
	}

	stats, err := r.stats.StatsForBooks(ctx, ids)
	if err != nil {
		return nil, err
	}

	for i, b := range books {
		result[i] = entities.BookWithStats{Book: b, BookStats: stats[b.ID]}
	}
	return result, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func mapLookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("book: %w", database.ErrNotFound)
	}
	return fmt.Errorf("failed to get book: %w", err)
}
