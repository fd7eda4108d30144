package config

const (
	// DefaultCatalogFile is the catalog CSV loaded by the init-db command
	DefaultCatalogFile = "./books.csv"

	// DefaultGoodreadsBaseURL is the upstream for external book ratings
	DefaultGoodreadsBaseURL = "https://www.goodreads.com"
)
