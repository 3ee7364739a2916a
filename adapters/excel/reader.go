package excel

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"sempower/domain/core"
	"sempower/internal"
	"sempower/ports"
)

// DefaultGroupName labels observations when no group column is used
const DefaultGroupName = "all"

// DataReader handles reading Excel and CSV files of raw observations
type DataReader struct {
	filePath string
	fileType string // "xlsx" or "csv"
	logger   *internal.Logger
}

// NewDataReader creates a new data reader that handles both Excel and CSV files
func NewDataReader(filePath string, logger *internal.Logger) *DataReader {
	ext := strings.ToLower(filepath.Ext(filePath))
	fileType := "xlsx"
	if ext == ".csv" {
		fileType = "csv"
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &DataReader{filePath: filePath, fileType: fileType, logger: logger}
}

var _ ports.ObservationReader = (*DataReader)(nil)

// ReadData reads the file into a header + rows table
func (r *DataReader) ReadData() (*Table, error) {
	r.logger.Debug("[DataReader] Starting to read %s file: %s", r.fileType, r.filePath)

	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, core.NewInvalidArgumentError("file", "%s file not found: %s", strings.ToUpper(r.fileType), r.filePath)
	}

	switch r.fileType {
	case "csv":
		return r.readCSVData()
	case "xlsx":
		return r.readExcelData()
	default:
		return nil, fmt.Errorf("unsupported file type: %s", r.fileType)
	}
}

// readExcelData reads the first sheet of the workbook
func (r *DataReader) readExcelData() (*Table, error) {
	startTime := time.Now()
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, core.NewInvalidArgumentError("file", "workbook %s has no sheets", r.filePath)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	r.logger.Debug("[DataReader] %s read in %.2fms (%d rows)", sheets[0], float64(time.Since(startTime).Nanoseconds())/1e6, len(rows))

	return r.processRows(rows)
}

// readCSVData reads CSV data into a table
func (r *DataReader) readCSVData() (*Table, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	return r.processRows(rows)
}

// processRows trims cells and pads short rows (excelize drops trailing empty cells)
func (r *DataReader) processRows(rows [][]string) (*Table, error) {
	if len(rows) < 2 {
		return nil, core.NewInvalidArgumentError("file", "%s must have a header row and at least one data row", r.filePath)
	}

	headers := make([]string, len(rows[0]))
	for i, header := range rows[0] {
		headers[i] = strings.TrimSpace(header)
	}

	data := make([][]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		cells := make([]string, len(headers))
		for j := 0; j < len(headers) && j < len(row); j++ {
			cells[j] = strings.TrimSpace(row[j])
		}
		data = append(data, cells)
	}

	r.logger.Debug("[DataReader] %s file processed (%d columns, %d rows)", strings.ToUpper(r.fileType), len(headers), len(data))
	return &Table{Headers: headers, Rows: data}, nil
}

// ReadGroups splits observations by groupColumn (all rows form one group when
// it is empty) and returns one column per variable. Rows with a missing or
// non-numeric value in any requested variable are dropped (listwise deletion).
func (r *DataReader) ReadGroups(variables []string, groupColumn string) ([]ports.ObservationGroup, error) {
	if len(variables) == 0 {
		return nil, core.NewInvalidArgumentError("variables", "no variables requested")
	}
	table, err := r.ReadData()
	if err != nil {
		return nil, err
	}

	varIdx := make([]int, len(variables))
	for i, v := range variables {
		varIdx[i] = table.columnIndex(v)
		if varIdx[i] < 0 {
			return nil, core.NewInvalidArgumentError("variables", "column %q not found in %s", v, r.filePath)
		}
	}
	groupIdx := -1
	if groupColumn != "" {
		groupIdx = table.columnIndex(groupColumn)
		if groupIdx < 0 {
			return nil, core.NewInvalidArgumentError("group", "column %q not found in %s", groupColumn, r.filePath)
		}
	}

	byGroup := make(map[string][][]float64)
	var order []string
	dropped := 0

rows:
	for _, row := range table.Rows {
		values := make([]float64, len(varIdx))
		for i, idx := range varIdx {
			v, err := strconv.ParseFloat(row[idx], 64)
			if err != nil {
				dropped++
				continue rows
			}
			values[i] = v
		}

		name := DefaultGroupName
		if groupIdx >= 0 {
			name = row[groupIdx]
			if name == "" {
				dropped++
				continue
			}
		}
		cols, ok := byGroup[name]
		if !ok {
			cols = make([][]float64, len(varIdx))
			order = append(order, name)
		}
		for i, v := range values {
			cols[i] = append(cols[i], v)
		}
		byGroup[name] = cols
	}

	if dropped > 0 {
		r.logger.Warn("[DataReader] dropped %d incomplete rows from %s", dropped, r.filePath)
	}
	if len(order) == 0 {
		return nil, core.NewInvalidArgumentError("file", "%s has no complete observations", r.filePath)
	}

	// Group order follows first appearance unless every label is numeric
	if allNumeric(order) {
		sort.Slice(order, func(i, j int) bool {
			a, _ := strconv.ParseFloat(order[i], 64)
			b, _ := strconv.ParseFloat(order[j], 64)
			return a < b
		})
	}

	groups := make([]ports.ObservationGroup, 0, len(order))
	for _, name := range order {
		groups = append(groups, ports.ObservationGroup{Name: name, Columns: byGroup[name]})
	}
	return groups, nil
}

func allNumeric(labels []string) bool {
	for _, l := range labels {
		if _, err := strconv.ParseFloat(l, 64); err != nil {
			return false
		}
	}
	return true
}
