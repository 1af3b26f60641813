package calendar_date

import (
	"fmt"
	"time"

	"github.com/klokku/workout-planner/internal/utils"
)

const layout = "2006-01-02"

var ErrFormat = fmt.Errorf("date must be in YYYY-MM-DD format")
var ErrInvalidInput = fmt.Errorf("invalid calendar date")

// CalendarDate is a day on the calendar with no time of day and no time zone.
// Two dates are equal when their fields are equal, so values can be compared with ==
// and used as map keys.
type CalendarDate struct {
	Year  int
	Month int
	Day   int
}

// New validates the triple. 2026-02-30 and month 13 are rejected with ErrInvalidInput.
func New(year, month, day int) (CalendarDate, error) {
	if year < 1 || year > 9999 || month < 1 || month > 12 || day < 1 {
		return CalendarDate{}, fmt.Errorf("%w: %04d-%02d-%02d", ErrInvalidInput, year, month, day)
	}
	if day > daysIn(year, month) {
		return CalendarDate{}, fmt.Errorf("%w: %04d-%02d-%02d", ErrInvalidInput, year, month, day)
	}
	return CalendarDate{Year: year, Month: month, Day: day}, nil
}

// MustNew is New for literals known to be valid. It panics otherwise.
func MustNew(year, month, day int) CalendarDate {
	d, err := New(year, month, day)
	if err != nil {
		panic(err)
	}
	return d
}

// Parse accepts exactly YYYY-MM-DD. Any other shape is ErrFormat; a well-formed
// string naming a day that does not exist is ErrInvalidInput.
func Parse(value string) (CalendarDate, error) {
	if len(value) != len(layout) || value[4] != '-' || value[7] != '-' {
		return CalendarDate{}, fmt.Errorf("%w: %q", ErrFormat, value)
	}
	year, ok := digits(value[0:4])
	if !ok {
		return CalendarDate{}, fmt.Errorf("%w: %q", ErrFormat, value)
	}
	month, ok := digits(value[5:7])
	if !ok {
		return CalendarDate{}, fmt.Errorf("%w: %q", ErrFormat, value)
	}
	day, ok := digits(value[8:10])
	if !ok {
		return CalendarDate{}, fmt.Errorf("%w: %q", ErrFormat, value)
	}
	return New(year, month, day)
}

func digits(s string) (int, bool) {
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}

// FromTime takes the local calendar fields of t, whatever location t carries.
func FromTime(t time.Time) (CalendarDate, error) {
	if t.IsZero() {
		return CalendarDate{}, fmt.Errorf("%w: zero time", ErrInvalidInput)
	}
	y, m, d := t.Local().Date()
	return New(y, int(m), d)
}

// Today is the local calendar day of clock.Now().
func Today(clock utils.Clock) CalendarDate {
	y, m, d := clock.Now().Local().Date()
	return CalendarDate{Year: y, Month: int(m), Day: d}
}

// ToTime returns local midnight of the day.
func (d CalendarDate) ToTime() time.Time {
	return time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, time.Local)
}

// utc is used for arithmetic so that DST transitions never shift the day.
func (d CalendarDate) utc() time.Time {
	return time.Date(d.Year, time.Month(d.Month), d.Day, 12, 0, 0, 0, time.UTC)
}

func fromUTC(t time.Time) CalendarDate {
	y, m, day := t.Date()
	return CalendarDate{Year: y, Month: int(m), Day: day}
}

func (d CalendarDate) IsZero() bool {
	return d == CalendarDate{}
}

func (d CalendarDate) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// Format renders the date with a time layout, e.g. "January 2006".
func (d CalendarDate) Format(layout string) string {
	return d.utc().Format(layout)
}

// Compare returns -1, 0 or 1.
func (d CalendarDate) Compare(other CalendarDate) int {
	switch {
	case d.Year != other.Year:
		return sign(d.Year - other.Year)
	case d.Month != other.Month:
		return sign(d.Month - other.Month)
	default:
		return sign(d.Day - other.Day)
	}
}

func sign(n int) int {
	if n < 0 {
		return -1
	}
	if n > 0 {
		return 1
	}
	return 0
}

func (d CalendarDate) Equal(other CalendarDate) bool {
	return d == other
}

func (d CalendarDate) Before(other CalendarDate) bool {
	return d.Compare(other) < 0
}

func (d CalendarDate) After(other CalendarDate) bool {
	return d.Compare(other) > 0
}

// IsWithin reports whether start <= d <= end.
func (d CalendarDate) IsWithin(start, end CalendarDate) bool {
	return d.Compare(start) >= 0 && d.Compare(end) <= 0
}

func (d CalendarDate) AddDays(n int) CalendarDate {
	return fromUTC(d.utc().AddDate(0, 0, n))
}

// AddMonths moves by whole months, clamping the day to the target month's length
// (2026-01-31 + 1 month = 2026-02-28).
func (d CalendarDate) AddMonths(n int) CalendarDate {
	first := time.Date(d.Year, time.Month(d.Month)+time.Month(n), 1, 12, 0, 0, 0, time.UTC)
	target := fromUTC(first)
	target.Day = min(d.Day, daysIn(target.Year, target.Month))
	return target
}

func (d CalendarDate) Weekday() time.Weekday {
	return d.utc().Weekday()
}

// FirstOfMonth returns the 1st of d's month.
func (d CalendarDate) FirstOfMonth() CalendarDate {
	return CalendarDate{Year: d.Year, Month: d.Month, Day: 1}
}

func (d CalendarDate) DaysInMonth() int {
	return daysIn(d.Year, d.Month)
}

func daysIn(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 12, 0, 0, 0, time.UTC).Day()
}

// DaysBetween returns the number of days from d to other (negative when other is earlier).
func (d CalendarDate) DaysBetween(other CalendarDate) int {
	return int(other.utc().Sub(d.utc()).Hours() / 24)
}

// MarshalText renders the YYYY-MM-DD form. The zero date renders as "".
func (d CalendarDate) MarshalText() ([]byte, error) {
	if d.IsZero() {
		return []byte{}, nil
	}
	return []byte(d.String()), nil
}

// UnmarshalText parses YYYY-MM-DD. An empty string yields the zero date.
func (d *CalendarDate) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*d = CalendarDate{}
		return nil
	}
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
