package excel

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gozunis/domain/integration"

	"github.com/xuri/excelize/v2"
)

// HistoryReader reads an integration history back from an exported xlsx
// workbook (History sheet) or from a CSV file with the same columns.
type HistoryReader struct {
	filePath string
	fileType string // "xlsx" or "csv"
}

// NewHistoryReader picks the file type from the extension
func NewHistoryReader(filePath string) *HistoryReader {
	ext := strings.ToLower(filepath.Ext(filePath))
	fileType := "xlsx"
	if ext == ".csv" {
		fileType = "csv"
	}
	return &HistoryReader{filePath: filePath, fileType: fileType}
}

// ReadHistory returns the records in file order
func (r *HistoryReader) ReadHistory() ([]integration.Record, error) {
	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s file not found: %s", strings.ToUpper(r.fileType), r.filePath)
	}

	var rows [][]string
	var err error
	switch r.fileType {
	case "csv":
		rows, err = r.readCSV()
	default:
		rows, err = r.readWorkbook()
	}
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("%s file must have a header row and at least one record", strings.ToUpper(r.fileType))
	}
	return r.processRows(rows)
}

func (r *HistoryReader) readWorkbook() ([][]string, error) {
	start := time.Now()
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(SheetHistory)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s sheet: %w", SheetHistory, err)
	}
	log.Printf("[HistoryReader] %s sheet read in %.2fms (%d rows)", SheetHistory, float64(time.Since(start).Nanoseconds())/1e6, len(rows))
	return rows, nil
}

func (r *HistoryReader) readCSV() ([][]string, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	return rows, nil
}

// processRows converts string rows into records, locating columns by header name
func (r *HistoryReader) processRows(rows [][]string) ([]integration.Record, error) {
	index := make(map[string]int)
	for i, header := range rows[0] {
		index[strings.ToLower(strings.TrimSpace(header))] = i
	}
	var missing []string
	for _, required := range []string{"phase", "integral", "error", "n_points"} {
		if _, ok := index[required]; !ok {
			missing = append(missing, strconv.Quote(required))
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing columns %s", strings.Join(missing, ", "))
	}

	field := func(row []string, name string) string {
		i, ok := index[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	history := integration.NewHistory()
	for line, row := range rows[1:] {
		integral, err := strconv.ParseFloat(field(row, "integral"), 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid integral: %w", line+2, err)
		}
		stdErr, err := strconv.ParseFloat(field(row, "error"), 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid error: %w", line+2, err)
		}
		n, err := strconv.Atoi(field(row, "n_points"))
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid n_points: %w", line+2, err)
		}
		rec := integration.Record{
			Phase:    integration.Phase(strings.ToLower(field(row, "phase"))),
			Integral: integral,
			Error:    stdErr,
			NPoints:  n,
		}
		if err := history.Append(rec); err != nil {
			return nil, fmt.Errorf("row %d: %w", line+2, err)
		}
	}

	log.Printf("[HistoryReader] %s file processed (%d records)", strings.ToUpper(r.fileType), history.Len())
	return history.Records(), nil
}
