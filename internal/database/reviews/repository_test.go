package reviews

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mrlokans/readersforest/internal/config"
	"github.com/mrlokans/readersforest/internal/database"
	"github.com/mrlokans/readersforest/internal/entities"
)

func setupTestDB(t *testing.T) (*Repository, *gorm.DB, func()) {
	dbPath := "./test_reviews_" + t.Name() + ".db"

	db, err := database.NewDatabase(config.Database{URL: dbPath})
	require.NoError(t, err)

	cleanup := func() {
		db.Close()
		os.Remove(dbPath)
		os.Remove(dbPath + "-wal")
		os.Remove(dbPath + "-shm")
	}

	return NewRepository(db.DB), db.DB, cleanup
}

func seedBook(t *testing.T, db *gorm.DB, isbn, title string) *entities.Book {
	t.Helper()
	book := &entities.Book{ISBN: isbn, Title: title, Author: "J.R.R. Tolkien", Year: 1954}
	require.NoError(t, db.Create(book).Error)
	return book
}

func seedUser(t *testing.T, db *gorm.DB, username string) *entities.User {
	t.Helper()
	user := &entities.User{FirstName: "Sam", LastName: "Gamgee", Username: username, PasswordHash: "x"}
	require.NoError(t, db.Create(user).Error)
	return user
}

func TestRepository_AverageRating(t *testing.T) {
	repo, db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	book := seedBook(t, db, "0000000001", "The Hobbit")
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")

	avg, err := repo.AverageRating(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, avg)

	_, err = repo.AddReview(ctx, book.ID, alice.ID, 4, "good")
	require.NoError(t, err)
	avg, err = repo.AverageRating(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 4.0, avg)

	_, err = repo.AddReview(ctx, book.ID, bob.ID, 2, "meh")
	require.NoError(t, err)
	avg, err = repo.AverageRating(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 3.0, avg)

	count, err := repo.ReviewCount(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestRepository_AddReview_OncePerUserAndBook(t *testing.T) {
	repo, db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	book := seedBook(t, db, "0000000001", "The Hobbit")
	user := seedUser(t, db, "alice")

	reviewed, err := repo.AlreadyReviewed(ctx, book.ID, user.ID)
	require.NoError(t, err)
	assert.False(t, reviewed)

	review, err := repo.AddReview(ctx, book.ID, user.ID, 5, "")
	require.NoError(t, err)
	assert.NotZero(t, review.ID)
	assert.False(t, review.DateCreated.IsZero())

	reviewed, err = repo.AlreadyReviewed(ctx, book.ID, user.ID)
	require.NoError(t, err)
	assert.True(t, reviewed)

	_, err = repo.AddReview(ctx, book.ID, user.ID, 1, "changed my mind")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAlreadyReviewed))
	assert.True(t, errors.Is(err, database.ErrConflict))

	count, err := repo.ReviewCount(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestRepository_AddReview_ConcurrentDuplicates(t *testing.T) {
	repo, db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	book := seedBook(t, db, "0000000001", "The Hobbit")
	user := seedUser(t, db, "alice")

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.AddReview(ctx, book.ID, user.ID, 3, "race")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, database.ErrConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, workers-1, conflicts)
}

func TestRepository_AddReview_InvalidRating(t *testing.T) {
	repo, db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	book := seedBook(t, db, "0000000001", "The Hobbit")
	user := seedUser(t, db, "alice")

	for _, rating := range []int{0, 6, -1} {
		_, err := repo.AddReview(ctx, book.ID, user.ID, rating, "")
		assert.ErrorIs(t, err, ErrInvalidRating)
	}
}

func TestRepository_StatsForBooks(t *testing.T) {
	repo, db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	hobbit := seedBook(t, db, "0000000001", "The Hobbit")
	rings := seedBook(t, db, "0000000002", "The Fellowship of the Ring")
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")

	_, err := repo.AddReview(ctx, hobbit.ID, alice.ID, 5, "")
	require.NoError(t, err)
	_, err = repo.AddReview(ctx, hobbit.ID, bob.ID, 4, "")
	require.NoError(t, err)

	stats, err := repo.StatsForBooks(ctx, []uint{hobbit.ID, rings.ID})
	require.NoError(t, err)

	assert.Equal(t, int64(2), stats[hobbit.ID].ReviewCount)
	assert.Equal(t, 4.5, stats[hobbit.ID].AverageRating)
	assert.Equal(t, entities.BookStats{}, stats[rings.ID])

	empty, err := repo.StatsForBooks(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestRepository_ListReviews(t *testing.T) {
	repo, db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	book := seedBook(t, db, "0000000001", "The Hobbit")
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")

	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return base }
	_, err := repo.AddReview(ctx, book.ID, alice.ID, 5, "first")
	require.NoError(t, err)

	repo.now = func() time.Time { return base.Add(time.Hour) }
	_, err = repo.AddReview(ctx, book.ID, bob.ID, 3, "second")
	require.NoError(t, err)

	views, err := repo.ListReviews(ctx, book.ID)
	require.NoError(t, err)
	require.Len(t, views, 2)

	assert.Equal(t, "bob", views[0].Username)
	assert.Equal(t, "second", views[0].Review)
	assert.Equal(t, 3, views[0].Rating)
	assert.Equal(t, "alice", views[1].Username)
	assert.True(t, views[1].DateCreated.Equal(base))
}
