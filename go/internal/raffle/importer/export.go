package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/mcdev12/staffraffle/go/internal/models"
)

// ExportHeader is the header row of the winners export.
var ExportHeader = []string{"#", "ID", "Name", "Department", "Position", "Prize"}

// ExportRow is one line of the winners export.
type ExportRow struct {
	Number     int
	ID         string
	Name       string
	Department string
	Position   string
	Prize      string
}

// ExportRows numbers the winners from 1 in draw order.
func ExportRows(winners models.Winners) []ExportRow {
	rows := make([]ExportRow, len(winners))
	for i, w := range winners {
		rows[i] = ExportRow{
			Number:     i + 1,
			ID:         w.ID,
			Name:       w.Name,
			Department: w.Department,
			Position:   w.Position,
			Prize:      w.Prize,
		}
	}
	return rows
}

// Filename is the download name for an export made at now.
func Filename(now time.Time) string {
	return fmt.Sprintf("Raffle_Winners_Auto_%s.csv", now.Format("2006-01-02"))
}

// WriteCSV writes the header and rows.
func WriteCSV(w io.Writer, rows []ExportRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ExportHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range rows {
		record := []string{strconv.Itoa(r.Number), r.ID, r.Name, r.Department, r.Position, r.Prize}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row %d: %w", r.Number, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
