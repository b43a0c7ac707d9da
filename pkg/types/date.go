package types

/*
 * Calendar date, serialized as an ISO string
 * "2025-12-24"
 */

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Date is a calendar date without time of day or timezone.
type Date struct {
	Year  int
	Month int
	Day   int
}

var (
	ErrBadDate         = errors.New("date: invalid ISO date")
	ErrYearOutOfRange  = errors.New("date: year out of range (1..9999)")
	ErrMonthOutOfRange = errors.New("date: month out of range (1..12)")
	ErrDayOutOfRange   = errors.New("date: day out of range for month")
)

func NewDate(year, month, day int) (Date, error) {
	d := Date{Year: year, Month: month, Day: day}
	if err := d.Validate(); err != nil {
		return Date{}, err
	}
	return d, nil
}

// MustDate is NewDate for dates known to be valid. It panics otherwise.
func MustDate(year, month, day int) Date {
	d, err := NewDate(year, month, day)
	if err != nil {
		panic(err)
	}
	return d
}

func DateFromTime(t time.Time) Date {
	return Date{Year: t.Year(), Month: int(t.Month()), Day: t.Day()}
}

func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

func (d Date) Validate() error {
	if d.Year < 1 || d.Year > 9999 {
		return fmt.Errorf("%w: %d", ErrYearOutOfRange, d.Year)
	}
	if d.Month < 1 || d.Month > 12 {
		return fmt.Errorf("%w: %d", ErrMonthOutOfRange, d.Month)
	}
	dim := daysInMonth(d.Year, d.Month)
	if d.Day < 1 || d.Day > dim {
		return fmt.Errorf("%w: got %d, max %d (year=%d month=%d)", ErrDayOutOfRange, d.Day, dim, d.Year, d.Month)
	}
	return nil
}

func (d Date) Time() time.Time {
	return time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Date) Before(other Date) bool {
	return d.Time().Before(other.Time())
}

// ISO returns YYYY-MM-DD, or an empty string for the zero date.
func (d Date) ISO() string {
	if d.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

func (d Date) String() string {
	return d.ISO()
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return []byte(`"` + d.ISO() + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	trim := strings.TrimSpace(string(data))
	if trim == "null" || trim == `""` {
		*d = Date{}
		return nil
	}
	s, err := strconv.Unquote(trim)
	if err != nil {
		return fmt.Errorf("%w: expected JSON string, got %s", ErrBadDate, trim)
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// StripQuotes removes any run of stray quote characters around s.
func StripQuotes(s string) string {
	return strings.Trim(strings.TrimSpace(s), `'"`)
}

// ParseDate accepts YYYY-MM-DD or an RFC3339 timestamp (date portion),
// optionally wrapped in stray quote characters. An empty string is the
// zero date.
func ParseDate(s string) (Date, error) {
	s = StripQuotes(s)
	if s == "" {
		return Date{}, nil
	}
	if len(s) > 10 && (s[10] == 'T' || s[10] == 't' || s[10] == ' ') {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return DateFromTime(t), nil
		}
		s = s[:10]
	}
	parts := strings.Split(s, "-")
	if len(parts) != 3 {
		return Date{}, fmt.Errorf("%w: %q", ErrBadDate, s)
	}
	y, err := strconv.Atoi(parts[0])
	if err != nil {
		return Date{}, fmt.Errorf("%w: bad year: %w", ErrBadDate, err)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return Date{}, fmt.Errorf("%w: bad month: %w", ErrBadDate, err)
	}
	day, err := strconv.Atoi(parts[2])
	if err != nil {
		return Date{}, fmt.Errorf("%w: bad day: %w", ErrBadDate, err)
	}
	return NewDate(y, m, day)
}

func daysInMonth(year, month int) int {
	t := time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC)
	return t.Day()
}

type DateRange struct {
	Start Date `json:"start"`
	End   Date `json:"end"`
}

func (r DateRange) IsZero() bool {
	return r.Start.IsZero() && r.End.IsZero()
}

// Complete reports whether both ends are set.
func (r DateRange) Complete() bool {
	return !r.Start.IsZero() && !r.End.IsZero()
}
