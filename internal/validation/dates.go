package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// ISODate is the layout every date is formatted to.
const ISODate = "2006-01-02"

// ErrInvalidDate is wrapped by every date parsing failure.
var ErrInvalidDate = errors.New("invalid date")

// DateFormat selects how date strings are read.
type DateFormat string

const (
	DateAuto DateFormat = "auto"
	DateUS   DateFormat = "US"
	DateISO  DateFormat = "ISO"
	DateEU   DateFormat = "EU"
)

// ParseDateFormat accepts auto, US, ISO or EU in any case. Empty is auto.
func ParseDateFormat(s string) (DateFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return DateAuto, nil
	case "us":
		return DateUS, nil
	case "iso":
		return DateISO, nil
	case "eu":
		return DateEU, nil
	default:
		return "", fmt.Errorf("unknown date format %q (expected auto, US, ISO or EU)", s)
	}
}

// Expected returns the shape shown to users when a date is rejected.
func (f DateFormat) Expected() string {
	switch f {
	case DateUS:
		return "MM/DD/YYYY"
	case DateISO:
		return "YYYY-MM-DD"
	case DateEU:
		return "DD/MM/YYYY"
	default:
		return "MM/DD/YYYY, DD/MM/YYYY or YYYY-MM-DD"
	}
}

var (
	isoDateRegex   = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)
	slashDateRegex = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
)

// Layouts tried last in auto mode, in order. Slash dates with a time are
// tried month first, matching the date-only passes.
var fallbackLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006/01/02",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006 3:04:05 PM",
	"1/2/2006 3:04 PM",
	"2/1/2006 15:04:05",
	"2/1/2006 15:04",
	"Jan 2, 2006",
	"January 2, 2006",
	"Jan 2 2006",
	"January 2 2006",
	"2 Jan 2006",
	"2-Jan-2006",
	"20060102",
}

// ValidateAndFormatDate normalizes a cell value to YYYY-MM-DD.
//
// VALUE HANDLING:
//   - float64/int : spreadsheet date serial (1900 system)
//   - time.Time   : used directly
//   - string      : ISO first (ISO and auto), then slash dates as US and EU
//                   as allowed by format, then fallback layouts (auto only)
//
// A slash date is only accepted when its day and month form a real calendar
// date, so "13/05/2024" is rejected as US and read as EU in auto mode.
// Ambiguous input such as "03/04/2024" reads as US in auto mode.
func ValidateAndFormatDate(value any, format DateFormat) (string, error) {
	if format == "" {
		format = DateAuto
	}

	switch v := value.(type) {
	case time.Time:
		return v.Format(ISODate), nil
	case float64:
		return serialToDate(v, format)
	case int:
		return serialToDate(float64(v), format)
	case int64:
		return serialToDate(float64(v), format)
	case string:
		return parseDateString(strings.TrimSpace(v), format)
	default:
		return "", fmt.Errorf("%w: %v: expected %s", ErrInvalidDate, value, format.Expected())
	}
}

func serialToDate(serial float64, format DateFormat) (string, error) {
	if serial <= 0 {
		return "", fmt.Errorf("%w: %v: expected %s", ErrInvalidDate, serial, format.Expected())
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return "", fmt.Errorf("%w: %v: %v", ErrInvalidDate, serial, err)
	}
	return t.Format(ISODate), nil
}

func parseDateString(s string, format DateFormat) (string, error) {
	if s == "" {
		return "", fmt.Errorf("%w: empty value: expected %s", ErrInvalidDate, format.Expected())
	}

	if format == DateISO || format == DateAuto {
		if m := isoDateRegex.FindStringSubmatch(s); m != nil {
			if d, ok := calendarDate(m[1], m[2], m[3]); ok {
				return d, nil
			}
		}
	}

	if m := slashDateRegex.FindStringSubmatch(s); m != nil {
		if format == DateUS || format == DateAuto {
			if d, ok := calendarDate(m[3], m[1], m[2]); ok {
				return d, nil
			}
		}
		if format == DateEU || format == DateAuto {
			if d, ok := calendarDate(m[3], m[2], m[1]); ok {
				return d, nil
			}
		}
	}

	if format == DateAuto {
		for _, layout := range fallbackLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.Format(ISODate), nil
			}
		}
	}

	return "", fmt.Errorf("%w: %q: expected %s", ErrInvalidDate, s, format.Expected())
}

// calendarDate builds a date and rejects components that time.Date would
// normalize, such as month 13 or February 30.
func calendarDate(year, month, day string) (string, bool) {
	y, errY := strconv.Atoi(year)
	m, errM := strconv.Atoi(month)
	d, errD := strconv.Atoi(day)
	if errY != nil || errM != nil || errD != nil {
		return "", false
	}

	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Year() != y || int(t.Month()) != m || t.Day() != d {
		return "", false
	}
	return t.Format(ISODate), true
}
