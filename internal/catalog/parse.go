// Package catalog reads book catalog files and loads them into the database.
//
// A catalog file is CSV with the columns isbn,title,author,year and a
// header row:
//
//	isbn,title,author,year
//	0380795272,Krondor: The Betrayal,Raymond E. Feist,1998
package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mrlokans/readersforest/internal/entities"
)

const columns = 4

// Record is one parsed catalog row.
type Record struct {
	Line   int
	ISBN   string
	Title  string
	Author string
	Year   int
}

// Book converts the record into a storable entity.
func (r Record) Book() entities.Book {
	return entities.Book{ISBN: r.ISBN, Title: r.Title, Author: r.Author, Year: r.Year}
}

// RowError describes a row that could not be parsed.
type RowError struct {
	Line   int
	Reason string
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

// Parse reads catalog rows from r. Malformed rows are returned as RowErrors
// and do not stop parsing; only I/O failures produce an error.
func Parse(r io.Reader, skipHeader bool) ([]Record, []RowError, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var (
		records []Record
		invalid []RowError
		first   = true
	)

	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				invalid = append(invalid, RowError{Line: parseErr.StartLine, Reason: parseErr.Err.Error()})
				first = false
				continue
			}
			return nil, nil, fmt.Errorf("failed to read catalog: %w", err)
		}

		line, _ := reader.FieldPos(0)
		if first {
			first = false
			if skipHeader {
				continue
			}
		}

		rec, rowErr := parseRow(fields, line)
		if rowErr != nil {
			invalid = append(invalid, *rowErr)
			continue
		}
		records = append(records, rec)
	}

	return records, invalid, nil
}

func parseRow(fields []string, line int) (Record, *RowError) {
	if len(fields) != columns {
		return Record{}, &RowError{Line: line, Reason: fmt.Sprintf("expected %d columns, got %d", columns, len(fields))}
	}

	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	rec := Record{Line: line, ISBN: fields[0], Title: fields[1], Author: fields[2]}
	switch {
	case rec.ISBN == "":
		return Record{}, &RowError{Line: line, Reason: "isbn is empty"}
	case rec.Title == "":
		return Record{}, &RowError{Line: line, Reason: "title is empty"}
	}

	year, err := strconv.Atoi(fields[3])
	if err != nil {
		return Record{}, &RowError{Line: line, Reason: fmt.Sprintf("year %q is not an integer", fields[3])}
	}
	rec.Year = year

	return rec, nil
}
