package importer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mcdev12/staffraffle/go/internal/models"
)

// Row is one spreadsheet row. Cells may be nil, strings or numbers.
type Row []any

// Staff sheet columns.
const (
	colID = iota
	colName
	colDepartment
	colPosition
	colPhoto
)

// ImportError reports an upload that could not be read at all.
type ImportError struct {
	Source string
	Err    error
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("import %s: %v", e.Source, e.Err)
}

func (e *ImportError) Unwrap() error {
	return e.Err
}

// ParseCandidates turns staff rows into candidates. The first row is the
// header. Rows with an empty name are dropped; cells are kept as written.
func ParseCandidates(rows []Row) []models.Candidate {
	var out []models.Candidate
	for _, row := range skipHeader(rows) {
		name := cell(row, colName)
		if name == "" {
			continue
		}

		photo := cell(row, colPhoto)
		if photo == "" {
			photo = models.DefaultPhotoRef
		}

		out = append(out, models.Candidate{
			ID:         cell(row, colID),
			Name:       name,
			Department: cell(row, colDepartment),
			Position:   cell(row, colPosition),
			PhotoRef:   photo,
		})
	}
	return out
}

// ParsePrizes turns prize rows into labels. The first row is the header.
// Labels are trimmed and blank ones are dropped.
func ParsePrizes(rows []Row) []models.Prize {
	var out []models.Prize
	for _, row := range skipHeader(rows) {
		if label := strings.TrimSpace(cell(row, 0)); label != "" {
			out = append(out, label)
		}
	}
	return out
}

func skipHeader(rows []Row) []Row {
	if len(rows) == 0 {
		return nil
	}
	return rows[1:]
}

// cell returns the string form of row[i], or "" when missing.
func cell(row Row, i int) string {
	if i >= len(row) || row[i] == nil {
		return ""
	}

	switch v := row[i].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}
