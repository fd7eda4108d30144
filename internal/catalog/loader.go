package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/mrlokans/readersforest/internal/database/books"
	"github.com/mrlokans/readersforest/internal/entities"
)

// ErrInvalidRows is returned in strict mode when the file has unparsable rows.
var ErrInvalidRows = errors.New("catalog contains invalid rows")

// Migrator creates the schema. Implemented by *database.Database.
type Migrator interface {
	Migrate() error
}

// BookInserter stores parsed books.
type BookInserter interface {
	InsertBooks(ctx context.Context, books []entities.Book, mode books.InsertMode) (*books.InsertResult, error)
}

// LoadResult summarizes a load.
type LoadResult struct {
	Inserted int
	Skipped  []string   // ISBNs already present
	Invalid  []RowError // rows that could not be parsed
}

// Loader performs the one-time catalog import.
type Loader struct {
	migrator Migrator
	books    BookInserter
	strict   bool
}

// NewLoader creates a loader. In strict mode any invalid or duplicate row
// aborts the load and nothing is inserted; otherwise such rows are skipped
// and reported.
func NewLoader(migrator Migrator, inserter BookInserter, strict bool) *Loader {
	return &Loader{migrator: migrator, books: inserter, strict: strict}
}

// Initialize creates the schema (a no-op when it exists) and loads the
// catalog at path. A failing step stops the rest; earlier steps stay done.
func (l *Loader) Initialize(ctx context.Context, path string) (*LoadResult, error) {
	if err := l.migrator.Migrate(); err != nil {
		return nil, err
	}
	return l.LoadFile(ctx, path)
}

// LoadFile loads the catalog stored at path.
func (l *Loader) LoadFile(ctx context.Context, path string) (*LoadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	defer f.Close()

	return l.Load(ctx, f)
}

// Load parses r (with a header row) and inserts its books.
func (l *Loader) Load(ctx context.Context, r io.Reader) (*LoadResult, error) {
	records, invalid, err := Parse(r, true)
	if err != nil {
		return nil, err
	}

	for _, rowErr := range invalid {
		log.Warn().Int("line", rowErr.Line).Str("reason", rowErr.Reason).Msg("Skipping invalid catalog row")
	}
	if l.strict && len(invalid) > 0 {
		return &LoadResult{Invalid: invalid}, fmt.Errorf("%w: %d rows, first at %s", ErrInvalidRows, len(invalid), invalid[0].Error())
	}

	batch := make([]entities.Book, len(records))
	for i, rec := range records {
		batch[i] = rec.Book()
	}

	mode := books.BestEffort
	if l.strict {
		mode = books.AllOrNothing
	}

	inserted, err := l.books.InsertBooks(ctx, batch, mode)
	result := &LoadResult{Invalid: invalid}
	if inserted != nil {
		result.Inserted = inserted.Inserted
		result.Skipped = inserted.Skipped
	}
	if err != nil {
		return result, fmt.Errorf("failed to load catalog: %w", err)
	}

	log.Info().
		Int("inserted", result.Inserted).
		Int("skipped", len(result.Skipped)).
		Int("invalid", len(result.Invalid)).
		Msg("Catalog loaded")

	return result, nil
}
