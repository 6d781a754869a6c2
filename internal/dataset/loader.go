package dataset

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

// Required column names, matched case-insensitively.
const (
	ColumnDate            = "date"
	ColumnState           = "state"
	ColumnDistrict        = "district"
	ColumnTotalEnrollment = "total_enrollment"
)

// DefaultDateLayouts are tried in order when parsing the date column.
var DefaultDateLayouts = []string{
	"2006-01-02",
	"02-01-2006",
	"02/01/2006",
	"2006/01/02",
	time.RFC3339,
}

// Options controls how a dataset file is parsed.
type Options struct {
	// DateLayouts overrides DefaultDateLayouts when non-empty.
	DateLayouts []string
	// Comma is the field delimiter; 0 means ','.
	Comma rune
}

func (o Options) layouts() []string {
	if len(o.DateLayouts) > 0 {
		return o.DateLayouts
	}
	return DefaultDateLayouts
}

// Load reads an enrollment CSV file into a Table.
func Load(path string, opts Options) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataLoad, err)
	}
	defer func() { _ = f.Close() }()

	table, err := Read(f, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return table, nil
}

// Read parses enrollment CSV from r.
func Read(r io.Reader, opts Options) (*Table, error) {
	reader := csv.NewReader(bufio.NewReader(r))
	if opts.Comma != 0 {
		reader.Comma = opts.Comma
	}
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty file", ErrDataLoad)
		}
		return nil, fmt.Errorf("%w: header: %v", ErrDataLoad, err)
	}

	cols, err := columnIndex(header)
	if err != nil {
		return nil, err
	}

	layouts := opts.layouts()
	var records []EnrollmentRecord
	line := 1
	for {
		row, err := reader.Read()
		line++
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrDataLoad, line, err)
		}

		rec, err := parseRow(row, cols, layouts)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrDataLoad, line, err)
		}
		records = append(records, rec)
	}

	return NewTable(records)
}

type columns struct {
	date, state, district, total int
}

func columnIndex(header []string) (columns, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		idx[name] = i
	}

	var missing []string
	lookup := func(name string) int {
		i, ok := idx[name]
		if !ok {
			missing = append(missing, name)
			return -1
		}
		return i
	}

	c := columns{
		date:     lookup(ColumnDate),
		state:    lookup(ColumnState),
		district: lookup(ColumnDistrict),
		total:    lookup(ColumnTotalEnrollment),
	}
	if len(missing) > 0 {
		return c, fmt.Errorf("%w: missing columns: %s", ErrDataLoad, strings.Join(missing, ", "))
	}
	return c, nil
}

func parseRow(row []string, c columns, layouts []string) (EnrollmentRecord, error) {
	field := func(i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	date, err := ParseDate(field(c.date), layouts)
	if err != nil {
		return EnrollmentRecord{}, err
	}

	district := field(c.district)
	if district == "" {
		return EnrollmentRecord{}, fmt.Errorf("empty district")
	}

	total, err := parseEnrollment(field(c.total))
	if err != nil {
		return EnrollmentRecord{}, err
	}

	return EnrollmentRecord{
		Date:            date,
		State:           field(c.state),
		District:        district,
		TotalEnrollment: total,
	}, nil
}

// ParseDate parses s with the first matching layout and normalizes it to UTC midnight.
func ParseDate(s string, layouts []string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparsable date %q", s)
}

func parseEnrollment(s string) (int64, error) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("negative total_enrollment %d", n)
		}
		return n, nil
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, fmt.Errorf("invalid total_enrollment %q", s)
	}
	if f < 0 {
		return 0, fmt.Errorf("negative total_enrollment %q", s)
	}
	return int64(f), nil
}
