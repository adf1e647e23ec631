package excel

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"school-admin-core/internal/model"
	"school-admin-core/pkg/errors"

	"github.com/xuri/excelize/v2"
)

const (
	colStudentID = "student_id"
	colUIN       = "uin"
	colFirstCA   = "first_ca"
	colSecondCA  = "second_ca"
	colThirdCA   = "third_ca"
	colExam      = "exam"
)

// Columns is the header row expected on a score sheet.
var Columns = []string{colStudentID, colUIN, colFirstCA, colSecondCA, colThirdCA, colExam}

type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// Parse reads the first worksheet. Blank score cells read as zero; rows
// without a student are skipped.
func (p *Parser) Parse(ctx context.Context, data []byte) ([]model.SheetRow, error) {
	file, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer file.Close()

	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.ErrInvalidFileFormat
	}

	rows, err := file.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}

	if len(rows) < 2 { // Header + at least one data row
		return nil, errors.ErrInvalidFileFormat
	}

	columnMap := make(map[string]int)
	for i, col := range rows[0] {
		columnMap[strings.ToLower(strings.TrimSpace(col))] = i
	}

	for _, col := range Columns {
		if _, exists := columnMap[col]; !exists {
			return nil, fmt.Errorf("%w: missing required column %s", errors.ErrInvalidFileFormat, col)
		}
	}

	var out []model.SheetRow
	for i, row := range rows[1:] {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		parsed, ok, err := p.parseRow(row, columnMap)
		if err != nil {
			return nil, fmt.Errorf("error parsing row %d: %w", i+2, err)
		}
		if ok {
			out = append(out, parsed)
		}
	}

	return out, nil
}

func (p *Parser) parseRow(row []string, columnMap map[string]int) (model.SheetRow, bool, error) {
	getValue := func(colName string) string {
		if idx, exists := columnMap[colName]; exists && idx < len(row) {
			return strings.TrimSpace(row[idx])
		}
		return ""
	}

	studentID := getValue(colStudentID)
	uin := getValue(colUIN)
	if studentID == "" && uin == "" {
		return model.SheetRow{}, false, nil
	}
	if studentID == "" {
		return model.SheetRow{}, false, fmt.Errorf("student_id is required")
	}
	if uin == "" {
		return model.SheetRow{}, false, fmt.Errorf("uin is required")
	}

	var scores model.Scores
	fields := []struct {
		col string
		dst *int
	}{
		{colFirstCA, &scores.FirstCA},
		{colSecondCA, &scores.SecondCA},
		{colThirdCA, &scores.ThirdCA},
		{colExam, &scores.Exam},
	}
	for _, f := range fields {
		v, err := parseScore(getValue(f.col))
		if err != nil {
			return model.SheetRow{}, false, fmt.Errorf("%s: %w", f.col, err)
		}
		*f.dst = v
	}

	return model.SheetRow{StudentID: studentID, UIN: strings.ToUpper(uin), Scores: scores}, true, nil
}

// parseScore accepts whole numbers, including spreadsheet renderings like "7.0".
func parseScore(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int(f)) {
		return 0, fmt.Errorf("invalid score value: %s", s)
	}
	return int(f), nil
}
