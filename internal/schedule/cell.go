package schedule

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// dateLayouts are the text forms accepted for start and end cells.
var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006/01/02 15:04:05",
	"2006/01/02 15:04",
	"2006/1/2 15:04:05",
	"2006/1/2 15:04",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
	"2006/01/02",
	"2006/1/2",
}

// serialEpoch is day zero of spreadsheet serial dates.
var serialEpoch = struct{ year, month, day int }{1899, 12, 30}

// SerialDate is a spreadsheet serial date: days since 1899-12-30, the
// fraction being the time of day. Row stores produce it only for cells
// formatted as a date, so a plain number in a date column stays a float64
// and is rejected.
type SerialDate float64

// ParseRow converts raw cell values into a Row. Dates without an explicit
// zone are interpreted in loc; a nil loc means UTC. Company and status keep
// their exact cell text, so " ES" is not the phase "ES".
func ParseRow(number int, raw RawRow, loc *time.Location) Row {
	if loc == nil {
		loc = time.UTC
	}
	return Row{
		Number:      number,
		Company:     CellText(raw[FieldCompany]),
		Start:       ParseDate(raw[FieldStart], loc),
		End:         ParseDate(raw[FieldEnd], loc),
		Location:    CellText(raw[FieldLocation]),
		Description: CellText(raw[FieldDescription]),
		Status:      CellText(raw[FieldStatus]),
		EventID:     strings.TrimSpace(CellText(raw[FieldEventID])),
		PrevStatus:  CellText(raw[FieldPrevStatus]),
	}
}

// CellText renders a cell value as text. Empty cells become "".
func CellText(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case SerialDate:
		return strconv.FormatFloat(float64(val), 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case bool:
		return strconv.FormatBool(val)
	case time.Time:
		return val.Format(time.RFC3339)
	default:
		return fmt.Sprint(val)
	}
}

// ParseDate interprets a start/end cell. A SerialDate is converted, strings
// must match one of the accepted layouts and any other value is invalid.
func ParseDate(v any, loc *time.Location) Date {
	switch val := v.(type) {
	case nil:
		return Date{}
	case time.Time:
		if val.IsZero() {
			return Date{}
		}
		return Date{Time: val.In(loc), Set: true, Valid: true, Raw: val.Format(time.RFC3339)}
	case SerialDate:
		raw := strconv.FormatFloat(float64(val), 'f', -1, 64)
		t, ok := fromSerial(float64(val), loc)
		return Date{Time: t, Set: true, Valid: ok, Raw: raw}
	case string:
		text := strings.TrimSpace(val)
		if text == "" {
			return Date{}
		}
		for _, layout := range dateLayouts {
			if t, err := time.ParseInLocation(layout, text, loc); err == nil {
				return Date{Time: t, Set: true, Valid: true, Raw: text}
			}
		}
		return Date{Set: true, Raw: text}
	default:
		return Date{Set: true, Raw: fmt.Sprint(val)}
	}
}

// fromSerial converts a spreadsheet serial date (days since 1899-12-30, the
// fraction being the time of day) into a time in loc.
func fromSerial(serial float64, loc *time.Location) (time.Time, bool) {
	if math.IsNaN(serial) || math.IsInf(serial, 0) || serial < 0 {
		return time.Time{}, false
	}
	days := math.Floor(serial)
	secs := math.Round((serial - days) * 86400)
	base := time.Date(serialEpoch.year, time.Month(serialEpoch.month), serialEpoch.day, 0, 0, 0, 0, loc)
	return base.AddDate(0, 0, int(days)).Add(time.Duration(secs) * time.Second), true
}
