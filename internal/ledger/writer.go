package ledger

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/xuri/excelize/v2"
)

const (
	summarySheet = "Calculo"
	detailSheet  = "Detalle"

	summarySeqHeader   = "Numero de Peajes"
	summaryTotalHeader = "Total en BS"

	timestampLayout = "2006-01-02 15:04:05"
)

// detailHeaders is the Detalle header row: the sequence column followed by
// the record fields.
var detailHeaders = []string{"No.", "PDF Name", "Page Number", "Total Amount", "Timestamp"}

// WorkbookName returns the workbook filename for a ledger year.
func WorkbookName(year int) string {
	return fmt.Sprintf("Peajes %d Calculo.xlsx", year)
}

// Confirmation reports a successful append.
type Confirmation struct {
	Sequence int    `json:"sequence"`
	Workbook string `json:"workbook"`
}

// Writer appends reconciled records to per-year ledger workbooks. Each
// workbook holds a Calculo summary sheet (title row, header row, then one
// row per record) and a Detalle detail sheet (header row, then one row per
// record), both keyed by the same sequence number.
//
// A workbook is mutated entirely in memory and flushed with a
// write-to-temp-then-rename, so a failed append leaves the file untouched
// and the two sheets can never disagree on their maximum sequence.
type Writer struct {
	mu sync.Mutex
}

// NewWriter creates a Writer.
func NewWriter() *Writer {
	return &Writer{}
}

// Append durably appends record to the workbook for its timestamp's year
// under dir, creating the workbook and sheets as needed.
func (w *Writer) Append(dir string, record Record) (Confirmation, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	year := record.Timestamp.Year()
	name := WorkbookName(year)
	path := filepath.Join(dir, name)

	if err := os.MkdirAll(dir, 0755); err != nil {
		return Confirmation{}, &WriteError{Workbook: name, Err: err}
	}

	var f *excelize.File
	if _, err := os.Stat(path); err == nil {
		f, err = excelize.OpenFile(path)
		if err != nil {
			return Confirmation{}, &WriteError{Workbook: name, Err: fmt.Errorf("opening workbook: %w", err)}
		}
	} else if os.IsNotExist(err) {
		f = newWorkbook(year)
	} else {
		return Confirmation{}, &WriteError{Workbook: name, Err: err}
	}
	defer f.Close()

	if err := ensureSheets(f, year); err != nil {
		return Confirmation{}, &WriteError{Workbook: name, Err: err}
	}

	sequence := nextSequence(f, name)

	if err := appendRows(f, sequence, record); err != nil {
		return Confirmation{}, &WriteError{Workbook: name, Err: err}
	}

	if err := applyStyles(f); err != nil {
		return Confirmation{}, &WriteError{Workbook: name, Err: err}
	}

	if err := flush(f, path); err != nil {
		return Confirmation{}, &WriteError{Workbook: name, Err: err}
	}

	slog.Info("Appended ledger record",
		"workbook", name,
		"sequence", sequence,
		"document", record.DocumentName,
		"page", record.PageNumber,
	)
	return Confirmation{Sequence: sequence, Workbook: name}, nil
}

// newWorkbook builds a fresh workbook with empty summary and detail sheets.
func newWorkbook(year int) *excelize.File {
	f := excelize.NewFile()
	f.SetSheetName("Sheet1", summarySheet)
	writeSummaryScaffold(f, year)
	f.NewSheet(detailSheet)
	writeDetailScaffold(f)
	return f
}

// ensureSheets recreates any sheet missing from an existing workbook. The
// presence check is explicit; a missing sheet is an expected condition, not
// an error.
func ensureSheets(f *excelize.File, year int) error {
	if idx, err := f.GetSheetIndex(summarySheet); err != nil {
		return fmt.Errorf("checking %s sheet: %w", summarySheet, err)
	} else if idx == -1 {
		slog.Warn("Summary sheet missing from existing workbook, recreating", "sheet", summarySheet)
		if _, err := f.NewSheet(summarySheet); err != nil {
			return fmt.Errorf("recreating %s sheet: %w", summarySheet, err)
		}
		writeSummaryScaffold(f, year)
	}

	if idx, err := f.GetSheetIndex(detailSheet); err != nil {
		return fmt.Errorf("checking %s sheet: %w", detailSheet, err)
	} else if idx == -1 {
		slog.Warn("Detail sheet missing from existing workbook, recreating", "sheet", detailSheet)
		if _, err := f.NewSheet(detailSheet); err != nil {
			return fmt.Errorf("recreating %s sheet: %w", detailSheet, err)
		}
		writeDetailScaffold(f)
	}

	return nil
}

func writeSummaryScaffold(f *excelize.File, year int) {
	f.SetCellValue(summarySheet, "A1", fmt.Sprintf("Calculo peajes %d", year))
	f.SetCellValue(summarySheet, "A2", summarySeqHeader)
	f.SetCellValue(summarySheet, "B2", summaryTotalHeader)
}

func writeDetailScaffold(f *excelize.File) {
	for i, header := range detailHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(detailSheet, cell, header)
	}
}

// nextSequence scans the summary sheet for the highest assigned sequence
// number and returns the next one. A read failure degrades to 1 so the
// append still goes through; the degradation is logged so it can be told
// apart from a clean first write.
func nextSequence(f *excelize.File, workbook string) int {
	rows, err := f.GetRows(summarySheet)
	if err != nil {
		slog.Warn("Could not read summary sheet, falling back to sequence 1",
			"workbook", workbook, "error", err)
		return 1
	}

	max := 0
	// Row 1 is the title, row 2 the headers. Non-numeric first cells are
	// skipped rather than trusted, in case either row is missing.
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		n, err := strconv.ParseFloat(strings.TrimSpace(row[0]), 64)
		if err != nil {
			continue
		}
		if int(n) > max {
			max = int(n)
		}
	}
	return max + 1
}

// appendRows adds the summary and detail rows for one record. Both rows are
// added to the in-memory workbook; nothing touches disk until flush.
func appendRows(f *excelize.File, sequence int, record Record) error {
	summaryRows, err := f.GetRows(summarySheet)
	if err != nil {
		return fmt.Errorf("reading summary rows: %w", err)
	}
	row := len(summaryRows) + 1
	if row < 3 {
		row = 3 // below the title and header rows
	}
	total := record.TotalAmount.Round(2).InexactFloat64()
	if err := f.SetCellInt(summarySheet, fmt.Sprintf("A%d", row), int64(sequence)); err != nil {
		return fmt.Errorf("writing summary sequence: %w", err)
	}
	if err := f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), total); err != nil {
		return fmt.Errorf("writing summary total: %w", err)
	}

	detailRows, err := f.GetRows(detailSheet)
	if err != nil {
		return fmt.Errorf("reading detail rows: %w", err)
	}
	row = len(detailRows) + 1
	if row < 2 {
		row = 2 // below the header row
	}
	values := []interface{}{
		sequence,
		record.DocumentName,
		record.PageNumber,
		total,
		record.Timestamp.Format(timestampLayout),
	}
	for i, value := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return fmt.Errorf("resolving detail cell: %w", err)
		}
		if err := f.SetCellValue(detailSheet, cell, value); err != nil {
			return fmt.Errorf("writing detail cell %s: %w", cell, err)
		}
	}

	return nil
}

// applyStyles centers and borders the header and data regions of both
// sheets. Styling the whole region on every write keeps rows appended by
// earlier versions consistent too.
func applyStyles(f *excelize.File) error {
	style, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "center"},
		Border: []excelize.Border{
			{Type: "left", Style: 1, Color: "000000"},
			{Type: "right", Style: 1, Color: "000000"},
			{Type: "top", Style: 1, Color: "000000"},
			{Type: "bottom", Style: 1, Color: "000000"},
		},
	})
	if err != nil {
		return fmt.Errorf("creating cell style: %w", err)
	}

	summaryRows, err := f.GetRows(summarySheet)
	if err != nil {
		return fmt.Errorf("reading summary rows: %w", err)
	}
	if len(summaryRows) >= 2 {
		// Headers on row 2, data below; the title row keeps its default look.
		if err := f.SetCellStyle(summarySheet, "A2", fmt.Sprintf("B%d", len(summaryRows)), style); err != nil {
			return fmt.Errorf("styling summary sheet: %w", err)
		}
	}

	detailRows, err := f.GetRows(detailSheet)
	if err != nil {
		return fmt.Errorf("reading detail rows: %w", err)
	}
	if len(detailRows) >= 1 {
		last, err := excelize.CoordinatesToCellName(len(detailHeaders), len(detailRows))
		if err != nil {
			return fmt.Errorf("resolving detail range: %w", err)
		}
		if err := f.SetCellStyle(detailSheet, "A1", last, style); err != nil {
			return fmt.Errorf("styling detail sheet: %w", err)
		}
	}

	return nil
}

// flush saves the workbook to a temporary file in the target directory and
// renames it into place. The temporary name keeps the .xlsx extension;
// excelize refuses to save under any other one.
func flush(f *excelize.File, path string) error {
	tmp := path + ".tmp.xlsx"
	if err := f.SaveAs(tmp); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("saving workbook: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing workbook: %w", err)
	}
	return nil
}
