package aggregation

import (
	"fmt"
	"strings"
	"time"

	"github.com/soltixdb/enrollwatch/internal/dataset"
)

// GroupKey names a record attribute to group on
type GroupKey string

const (
	KeyState    GroupKey = "state"
	KeyDistrict GroupKey = "district"
	KeyDate     GroupKey = "date"  // YYYY-MM-DD
	KeyMonth    GroupKey = "month" // YYYY-MM
)

// MonthFormat is the rendering of KeyMonth values.
const MonthFormat = "2006-01"

// ParseGroupKeys parses a comma separated key list such as "state,month".
func ParseGroupKeys(s string) ([]GroupKey, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	keys := make([]GroupKey, 0, len(parts))
	for _, p := range parts {
		k := GroupKey(strings.ToLower(strings.TrimSpace(p)))
		switch k {
		case KeyState, KeyDistrict, KeyDate, KeyMonth:
			keys = append(keys, k)
		default:
			return nil, fmt.Errorf("unknown group key: %s (supported: state, district, date, month)", p)
		}
	}
	return keys, nil
}

// value extracts the grouping value of one record.
func (k GroupKey) value(r dataset.EnrollmentRecord) string {
	switch k {
	case KeyState:
		return r.State
	case KeyDistrict:
		return r.District
	case KeyDate:
		return r.Date.Format(dataset.DateFormat)
	case KeyMonth:
		return TruncateToMonth(r.Date).Format(MonthFormat)
	default:
		return ""
	}
}

// TruncateToMonth truncates time to the start of the month
func TruncateToMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}
