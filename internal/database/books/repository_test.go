package books

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mrlokans/readersforest/internal/config"
	"github.com/mrlokans/readersforest/internal/database"
	"github.com/mrlokans/readersforest/internal/database/reviews"
	"github.com/mrlokans/readersforest/internal/entities"
)

func setupTestDB(t *testing.T) (*Repository, *reviews.Repository, *gorm.DB, func()) {
	dbPath := "./test_books_" + t.Name() + ".db"

	db, err := database.NewDatabase(config.Database{URL: dbPath})
	require.NoError(t, err)

	reviewRepo := reviews.NewRepository(db.DB)
	repo := NewRepository(db.DB, reviewRepo)

	cleanup := func() {
		db.Close()
		os.Remove(dbPath)
		os.Remove(dbPath + "-wal")
		os.Remove(dbPath + "-shm")
	}

	return repo, reviewRepo, db.DB, cleanup
}

func catalog() []entities.Book {
	return []entities.Book{
		{ISBN: "0000000001", Title: "Dune", Author: "Frank Herbert", Year: 1965},
		{ISBN: "0261103342", Title: "The Hobbit", Author: "J.R.R. Tolkien", Year: 1937},
		{ISBN: "0261103571", Title: "The Fellowship of the Ring", Author: "J.R.R. Tolkien", Year: 1954},
		{ISBN: "0441013597", Title: "100% Pure Fantasy", Author: "Anon_ymous", Year: 2001},
		{ISBN: "9780007117116", Title: "Tolkien: A Biography", Author: "Humphrey Carpenter", Year: 1977},
	}
}

func TestRepository_FindByISBN(t *testing.T) {
	repo, _, _, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	_, err := repo.InsertBooks(ctx, catalog(), BestEffort)
	require.NoError(t, err)

	book, err := repo.FindByISBN(ctx, "0000000001")
	require.NoError(t, err)
	assert.Equal(t, "Dune", book.Title)
	assert.Equal(t, "Frank Herbert", book.Author)
	assert.Equal(t, 1965, book.Year)
	assert.Equal(t, int64(0), book.ReviewCount)
	assert.Equal(t, 0.0, book.AverageRating)
}

func TestRepository_FindByISBN_NotFound(t *testing.T) {
	repo, _, _, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := repo.FindByISBN(context.Background(), "does-not-exist")
	require.Error(t, err)
	assert.True(t, errors.Is(err, database.ErrNotFound))
}

func TestRepository_FindByISBN_IncludesStats(t *testing.T) {
	repo, reviewRepo, db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	_, err := repo.InsertBooks(ctx, catalog(), BestEffort)
	require.NoError(t, err)
	book, err := repo.FindByISBN(ctx, "0261103342")
	require.NoError(t, err)

	user := &entities.User{FirstName: "A", LastName: "B", Username: "ab", PasswordHash: "x"}
	require.NoError(t, db.Create(user).Error)
	_, err = reviewRepo.AddReview(ctx, book.ID, user.ID, 5, "")
	require.NoError(t, err)

	book, err = repo.FindByISBN(ctx, "0261103342")
	require.NoError(t, err)
	assert.Equal(t, int64(1), book.ReviewCount)
	assert.Equal(t, 5.0, book.AverageRating)
}

func TestRepository_Search(t *testing.T) {
	repo, _, _, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	_, err := repo.InsertBooks(ctx, catalog(), BestEffort)
	require.NoError(t, err)

	tests := []struct {
		name  string
		term  string
		isbns []string
	}{
		{
			name:  "author or title match",
			term:  "Tolkien",
			isbns: []string{"0261103571", "0261103342", "9780007117116"},
		},
		{
			name:  "case-insensitive",
			term:  "tOLKIEN",
			isbns: []string{"0261103571", "0261103342", "9780007117116"},
		},
		{
			name:  "isbn substring",
			term:  "0261",
			isbns: []string{"0261103571", "0261103342"},
		},
		{
			name:  "percent is literal",
			term:  "100%",
			isbns: []string{"0441013597"},
		},
		{
			name:  "underscore is literal",
			term:  "n_y",
			isbns: []string{"0441013597"},
		},
		{
			name:  "no match",
			term:  "Pratchett",
			isbns: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := repo.Search(ctx, tt.term)
			require.NoError(t, err)

			got := make([]string, 0, len(results))
			for _, b := range results {
				got = append(got, b.ISBN)
			}
			assert.Equal(t, tt.isbns, got)
		})
	}
}

func TestRepository_Search_NonASCII(t *testing.T) {
	repo, _, _, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	_, err := repo.InsertBooks(ctx, []entities.Book{
		{ISBN: "2070360024", Title: "Émile, ou De l'éducation", Author: "Jean-Jacques Rousseau", Year: 1762},
		{ISBN: "5170908459", Title: "Мастер и Маргарита", Author: "Михаил Булгаков", Year: 1967},
	}, BestEffort)
	require.NoError(t, err)

	for _, term := range []string{"Émile", "ÉMILE", "l'éducation", "Маргарита", "Булгаков"} {
		results, err := repo.Search(ctx, term)
		require.NoError(t, err, term)
		assert.Len(t, results, 1, term)
	}
}

func TestRepository_InsertBooks_BestEffortSkipsDuplicates(t *testing.T) {
	repo, _, _, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	res, err := repo.InsertBooks(ctx, catalog(), BestEffort)
	require.NoError(t, err)
	assert.Equal(t, 5, res.Inserted)
	assert.Empty(t, res.Skipped)

	again := append(catalog(), entities.Book{ISBN: "1111111111", Title: "New", Author: "Someone", Year: 2020})
	res, err = repo.InsertBooks(ctx, again, BestEffort)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Inserted)
	assert.Len(t, res.Skipped, 5)

	count, err := repo.CountBooks(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(6), count)
}

func TestRepository_InsertBooks_AllOrNothingRollsBack(t *testing.T) {
	repo, _, _, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	_, err := repo.InsertBooks(ctx, catalog()[:1], AllOrNothing)
	require.NoError(t, err)

	batch := []entities.Book{
		{ISBN: "2222222222", Title: "Fresh", Author: "Someone", Year: 2020},
		{ISBN: "0000000001", Title: "Dune", Author: "Frank Herbert", Year: 1965},
	}
	_, err = repo.InsertBooks(ctx, batch, AllOrNothing)
	require.Error(t, err)
	assert.True(t, errors.Is(err, database.ErrConflict))

	count, err := repo.CountBooks(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	_, err = repo.FindByISBN(ctx, "2222222222")
	assert.True(t, errors.Is(err, database.ErrNotFound))
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `50\%\_off\\`, escapeLike(`50%_off\`))
	assert.Equal(t, "plain", escapeLike("plain"))
}
