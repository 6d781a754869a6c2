package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/soltixdb/enrollwatch/internal/dataset"
	"github.com/soltixdb/enrollwatch/internal/utils"
)

// SheetName is the worksheet holding the exported row.
const SheetName = "Forecast"

// WriteXLSX writes the header and one row to a single-sheet workbook.
func WriteXLSX(w io.Writer, row Row) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	values := []any{
		row.District,
		row.LatestEnrollment,
		row.PredictedEnrollment,
		row.ChangePct.String(),
		row.ConfidenceLower,
		row.ConfidenceUpper,
		row.ForecastDate.Format(dataset.DateFormat),
	}
	if row.ChangePct.Defined {
		values[3] = utils.RoundTo(row.ChangePct.Value, 2)
	}

	for i, header := range Columns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(SheetName, cell, header); err != nil {
			return err
		}
		col, _, err := excelize.SplitCellName(cell)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(SheetName, col, col, 20); err != nil {
			return err
		}

		cell, err = excelize.CoordinatesToCellName(i+1, 2)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(SheetName, cell, values[i]); err != nil {
			return err
		}
	}

	return f.Write(w)
}

// ParseXLSX reads back what WriteXLSX produced.
func ParseXLSX(r io.Reader) (Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return Row{}, fmt.Errorf("%w: %v", ErrMalformedRow, err)
	}
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(SheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return Row{}, fmt.Errorf("%w: %v", ErrMalformedRow, err)
	}
	if len(rows) != 2 {
		return Row{}, fmt.Errorf("%w: %d rows, want header and one row", ErrMalformedRow, len(rows))
	}
	if err := checkHeader(rows[0]); err != nil {
		return Row{}, err
	}
	return parseStrings(rows[1])
}
