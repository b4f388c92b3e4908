package importer

import (
	"encoding/csv"
	"errors"
	"io"
	"strings"
)

var errNoHeader = errors.New("file is empty, expected a header row")

// ReadCSV reads an uploaded sheet into rows. source names the upload in errors.
func ReadCSV(r io.Reader, source string) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, &ImportError{Source: source, Err: err}
	}
	if len(records) == 0 {
		return nil, &ImportError{Source: source, Err: errNoHeader}
	}

	// Spreadsheet exports often start with a UTF-8 byte order mark.
	if len(records[0]) > 0 {
		records[0][0] = strings.TrimPrefix(records[0][0], "\ufeff")
	}

	rows := make([]Row, len(records))
	for i, rec := range records {
		row := make(Row, len(rec))
		for j, v := range rec {
			row[j] = v
		}
		rows[i] = row
	}
	return rows, nil
}
