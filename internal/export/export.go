// Package export flattens a forecast into the single-row table offered for
// download, as CSV or as an xlsx workbook.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/soltixdb/enrollwatch/internal/analytics/forecast"
	"github.com/soltixdb/enrollwatch/internal/dataset"
	"github.com/soltixdb/enrollwatch/internal/utils"
)

// Columns is the fixed header of an export, in order.
var Columns = []string{
	"District",
	"Latest Enrollment",
	"Predicted Enrollment",
	"Change (%)",
	"Confidence Lower",
	"Confidence Upper",
	"Forecast Date",
}

// Format names an export encoding
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat validates a format name; empty means csv.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("unsupported export format: %s (supported: csv, xlsx)", s)
	}
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// ErrMalformedRow is returned when parsing an export that does not match Columns.
var ErrMalformedRow = errors.New("malformed export row")

// Row is one flattened forecast.
type Row struct {
	District            string
	LatestEnrollment    int64
	PredictedEnrollment int64
	ChangePct           forecast.Percent
	ConfidenceLower     int64
	ConfidenceUpper     int64
	ForecastDate        time.Time
}

// FormatResult flattens a forecast. Enrollment figures are rounded to the
// nearest integer.
func FormatResult(res *forecast.Result) Row {
	return Row{
		District:            res.District,
		LatestEnrollment:    utils.RoundToInt64(res.LatestValue),
		PredictedEnrollment: utils.RoundToInt64(res.Predicted),
		ChangePct:           res.Change,
		ConfidenceLower:     utils.RoundToInt64(res.Lower),
		ConfidenceUpper:     utils.RoundToInt64(res.Upper),
		ForecastDate:        res.ForecastDate,
	}
}

// Strings renders the row in Columns order.
func (r Row) Strings() []string {
	return []string{
		r.District,
		strconv.FormatInt(r.LatestEnrollment, 10),
		strconv.FormatInt(r.PredictedEnrollment, 10),
		r.ChangePct.String(),
		strconv.FormatInt(r.ConfidenceLower, 10),
		strconv.FormatInt(r.ConfidenceUpper, 10),
		r.ForecastDate.Format(dataset.DateFormat),
	}
}

// parseStrings is the inverse of Strings.
func parseStrings(fields []string) (Row, error) {
	if len(fields) != len(Columns) {
		return Row{}, fmt.Errorf("%w: %d fields, want %d", ErrMalformedRow, len(fields), len(Columns))
	}

	var (
		row Row
		err error
	)
	row.District = fields[0]
	ints := []*int64{&row.LatestEnrollment, &row.PredictedEnrollment, nil, &row.ConfidenceLower, &row.ConfidenceUpper}
	for i, dst := range ints {
		if dst == nil {
			continue
		}
		if *dst, err = strconv.ParseInt(strings.TrimSpace(fields[i+1]), 10, 64); err != nil {
			return Row{}, fmt.Errorf("%w: %s: %v", ErrMalformedRow, Columns[i+1], err)
		}
	}

	if pct := strings.TrimSpace(fields[3]); pct != forecast.Undefined {
		v, err := strconv.ParseFloat(pct, 64)
		if err != nil {
			return Row{}, fmt.Errorf("%w: %s: %v", ErrMalformedRow, Columns[3], err)
		}
		row.ChangePct = forecast.Percent{Value: v, Defined: true}
	}

	if row.ForecastDate, err = time.Parse(dataset.DateFormat, strings.TrimSpace(fields[6])); err != nil {
		return Row{}, fmt.Errorf("%w: %s: %v", ErrMalformedRow, Columns[6], err)
	}
	return row, nil
}

func checkHeader(header []string) error {
	if len(header) != len(Columns) {
		return fmt.Errorf("%w: header has %d columns, want %d", ErrMalformedRow, len(header), len(Columns))
	}
	for i, h := range header {
		if strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")) != Columns[i] {
			return fmt.Errorf("%w: column %d is %q, want %q", ErrMalformedRow, i+1, h, Columns[i])
		}
	}
	return nil
}

// WriteCSV writes the header and one row.
func WriteCSV(w io.Writer, row Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	if err := cw.Write(row.Strings()); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

// ParseCSV reads back what WriteCSV produced.
func ParseCSV(r io.Reader) (Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(Columns)

	lines, err := cr.ReadAll()
	if err != nil {
		return Row{}, fmt.Errorf("%w: %v", ErrMalformedRow, err)
	}
	if len(lines) != 2 {
		return Row{}, fmt.Errorf("%w: %d lines, want header and one row", ErrMalformedRow, len(lines))
	}
	if err := checkHeader(lines[0]); err != nil {
		return Row{}, err
	}
	return parseStrings(lines[1])
}

// Filename returns forecast_{district}_{YYYYMMDD}.{ext} for the forecast date.
func Filename(district string, date time.Time, format Format) string {
	return fmt.Sprintf("forecast_%s_%s.%s", slug(district), date.Format("20060102"), format)
}

// slug replaces whitespace with underscores and drops characters that are
// unsafe in a file name.
func slug(s string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(s) {
		switch {
		case r == ' ' || r == '\t':
			b.WriteByte('_')
		case r == '/' || r == '\\' || r == ':' || r == '"' || r == '*' || r == '?' ||
			r == '<' || r == '>' || r == '|' || r < 0x20:
		default:
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "district"
	}
	return b.String()
}
