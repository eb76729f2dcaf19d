package ledger

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

// ProcessedDocuments returns the distinct document names recorded in the
// detail sheet of the given year's workbook under dir. It is a derived view
// for annotating listings; any read failure yields an empty set rather than
// an error.
func ProcessedDocuments(dir string, year int) map[string]struct{} {
	processed := make(map[string]struct{})

	path := filepath.Join(dir, WorkbookName(year))
	if _, err := os.Stat(path); err != nil {
		return processed
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		slog.Warn("Could not open ledger workbook for processed scan", "workbook", path, "error", err)
		return processed
	}
	defer f.Close()

	rows, err := f.GetRows(detailSheet)
	if err != nil {
		slog.Warn("Could not read detail sheet for processed scan", "workbook", path, "error", err)
		return processed
	}

	// Skip the header row; document names are in the second column.
	for i, row := range rows {
		if i == 0 || len(row) < 2 {
			continue
		}
		if name := row[1]; name != "" {
			processed[name] = struct{}{}
		}
	}
	return processed
}
