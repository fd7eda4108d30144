package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/mrlokans/readersforest/internal/catalog"
	"github.com/mrlokans/readersforest/internal/config"
	"github.com/mrlokans/readersforest/internal/database"
	"github.com/mrlokans/readersforest/internal/database/books"
	"github.com/mrlokans/readersforest/internal/database/reviews"
)

// InitDBCommand creates the schema and loads the book catalog.
type InitDBCommand struct {
	File   string
	Strict bool

	cfg *config.Config
}

func NewInitDBCommand(cfg *config.Config) *InitDBCommand {
	return &InitDBCommand{cfg: cfg}
}

func (cmd *InitDBCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("init-db", flag.ContinueOnError)

	fs.StringVar(&cmd.File, "file", cmd.cfg.Catalog.File, "Path to the catalog CSV (isbn,title,author,year)")
	fs.BoolVar(&cmd.Strict, "strict", false, "Abort without inserting anything if any row is invalid or already present")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s init-db [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Create the database schema and load the book catalog.\n")
		fmt.Fprintf(os.Stderr, "The database is taken from DATABASE_URL.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  DATABASE_URL=sqlite://./books.db %s init-db -file books.csv\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  DATABASE_URL=postgres://localhost/books %s init-db -strict\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.File == "" {
		fs.Usage()
		return fmt.Errorf("catalog file is required")
	}

	return nil
}

func (cmd *InitDBCommand) Run(ctx context.Context) error {
	if cmd.cfg.Database.URL == "" {
		return fmt.Errorf("%w: DATABASE_URL is not set", config.ErrConfiguration)
	}

	db, err := database.Open(cmd.cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	repo := books.NewRepository(db.DB, reviews.NewRepository(db.DB))
	loader := catalog.NewLoader(db, repo, cmd.Strict)

	fmt.Printf("Loading catalog from %s\n", cmd.File)
	result, err := loader.Initialize(ctx, cmd.File)
	if result != nil {
		printLoadResult(result)
	}
	if err != nil {
		return err
	}

	return nil
}

func printLoadResult(result *catalog.LoadResult) {
	fmt.Printf("\n=== Catalog Load ===\n")
	fmt.Printf("Books inserted: %d\n", result.Inserted)
	fmt.Printf("Already present: %d\n", len(result.Skipped))
	fmt.Printf("Invalid rows: %d\n", len(result.Invalid))
	for _, rowErr := range result.Invalid {
		fmt.Printf("  %s\n", rowErr.Error())
	}
}
