package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mrlokans/readersforest/internal/config"
	"github.com/mrlokans/readersforest/internal/entities"
)

// setupTestDB creates a fresh test database
func setupTestDB(t *testing.T) (*Database, func()) {
	t.Helper()
	dbPath := "./test_" + t.Name() + ".db"
	db, err := NewDatabase(config.Database{URL: "sqlite://" + dbPath})
	require.NoError(t, err)

	cleanup := func() {
		db.Close()
		os.Remove(dbPath)
		os.Remove(dbPath + "-wal")
		os.Remove(dbPath + "-shm")
	}
	return db, cleanup
}

func TestNewDatabase_MigratesSchema(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	assert.Equal(t, DriverSQLite, db.Driver)
	assert.True(t, db.DB.Migrator().HasTable(&entities.User{}))
	assert.True(t, db.DB.Migrator().HasTable(&entities.Book{}))
	assert.True(t, db.DB.Migrator().HasTable("book_reviews"))
	assert.True(t, db.DB.Migrator().HasIndex(&entities.Review{}, "idx_book_reviews_book_user"))
}

func TestDatabase_MigrateIsIdempotent(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	require.NoError(t, db.Migrate())
	require.NoError(t, db.Migrate())
}

func TestDatabase_Ping(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	assert.NoError(t, db.Ping(context.Background()))
}

func TestOpen_EmptyURL(t *testing.T) {
	_, err := Open(config.Database{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, config.ErrConfiguration))
}

func TestDialectorFor(t *testing.T) {
	tests := []struct {
		url    string
		driver Driver
	}{
		{"postgres://u:p@localhost:5432/books", DriverPostgres},
		{"postgresql://localhost/books", DriverPostgres},
		{"sqlite://./books.db", DriverSQLite},
		{"./books.db", DriverSQLite},
		{"file:books.db?cache=shared", DriverSQLite},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			dialector, driver, err := dialectorFor(tt.url)
			require.NoError(t, err)
			assert.NotNil(t, dialector)
			assert.Equal(t, tt.driver, driver)
		})
	}
}

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"gorm duplicated key", gorm.ErrDuplicatedKey, true},
		{"wrapped gorm duplicated key", fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey), true},
		{"sqlite unique", sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique}, true},
		{"sqlite foreign key", sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintForeignKey}, false},
		{"message only", errors.New("UNIQUE constraint failed: users.username"), true},
		{"unrelated", errors.New("connection refused"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsUniqueViolation(tt.err))
		})
	}
}

func TestUniqueIndex_RejectsDuplicateISBN(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	require.NoError(t, db.DB.Create(&entities.Book{ISBN: "1", Title: "Dune", Author: "Frank Herbert", Year: 1965}).Error)
	err := db.DB.Create(&entities.Book{ISBN: "1", Title: "Dune", Author: "Frank Herbert", Year: 1965}).Error

	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(gorm.ErrRecordNotFound))
	assert.True(t, IsNotFound(fmt.Errorf("book: %w", ErrNotFound)))
	assert.False(t, IsNotFound(ErrConflict))
}
