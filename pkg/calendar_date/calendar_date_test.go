package calendar_date

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/klokku/workout-planner/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Run("should parse a well formed date", func(t *testing.T) {
		d, err := Parse("2026-01-15")

		require.NoError(t, err)
		assert.Equal(t, CalendarDate{Year: 2026, Month: 1, Day: 15}, d)
	})

	t.Run("should reject malformed strings with ErrFormat", func(t *testing.T) {
		for _, value := range []string{"", "2026-1-15", "2026/01/15", "15-01-2026", "2026-01-15T00:00:00Z", "abcd-ef-gh", " 2026-01-15"} {
			_, err := Parse(value)
			assert.ErrorIs(t, err, ErrFormat, value)
		}
	})

	t.Run("should reject days that do not exist with ErrInvalidInput", func(t *testing.T) {
		for _, value := range []string{"2026-02-29", "2026-02-30", "2026-13-01", "2026-00-10", "2026-04-31", "0000-01-01"} {
			_, err := Parse(value)
			assert.ErrorIs(t, err, ErrInvalidInput, value)
			assert.NotErrorIs(t, err, ErrFormat, value)
		}
	})

	t.Run("should accept leap day in a leap year", func(t *testing.T) {
		d, err := Parse("2028-02-29")

		require.NoError(t, err)
		assert.Equal(t, 29, d.Day)
	})
}

func TestRoundTrips(t *testing.T) {
	t.Run("should survive format and parse for every day of two years", func(t *testing.T) {
		d := MustNew(2027, 1, 1)
		for i := 0; i < 366*2; i++ {
			parsed, err := Parse(d.String())
			require.NoError(t, err)
			assert.Equal(t, d, parsed)
			d = d.AddDays(1)
		}
	})

	t.Run("should survive conversion to native time and back", func(t *testing.T) {
		d := MustNew(2025, 12, 28)
		for i := 0; i < 400; i++ {
			back, err := FromTime(d.ToTime())
			require.NoError(t, err)
			assert.Equal(t, d, back)
			d = d.AddDays(1)
		}
	})

	t.Run("should read the local day of an instant in another zone", func(t *testing.T) {
		// given
		instant := time.Date(2026, 1, 15, 23, 30, 0, 0, time.FixedZone("UTC+14", 14*60*60))
		y, m, d := instant.Local().Date()

		// when
		got, err := FromTime(instant)

		// then
		require.NoError(t, err)
		assert.Equal(t, MustNew(y, int(m), d), got)
	})

	t.Run("should reject the zero time", func(t *testing.T) {
		_, err := FromTime(time.Time{})

		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestCompare(t *testing.T) {
	a := MustNew(2026, 1, 10)
	b := MustNew(2026, 1, 20)

	t.Run("should order dates", func(t *testing.T) {
		assert.Equal(t, -1, a.Compare(b))
		assert.Equal(t, 1, b.Compare(a))
		assert.Equal(t, 0, a.Compare(MustNew(2026, 1, 10)))
		assert.True(t, MustNew(2025, 12, 31).Before(a))
		assert.True(t, MustNew(2026, 2, 1).After(b))
	})

	t.Run("should agree with IsWithin", func(t *testing.T) {
		d := MustNew(2026, 1, 1)
		for i := 0; i < 40; i++ {
			expected := d.Compare(a) >= 0 && d.Compare(b) <= 0
			assert.Equal(t, expected, d.IsWithin(a, b), d.String())
			d = d.AddDays(1)
		}
		assert.True(t, a.IsWithin(a, b))
		assert.True(t, b.IsWithin(a, b))
	})
}

func TestArithmetic(t *testing.T) {
	t.Run("should cross year boundaries when adding days", func(t *testing.T) {
		assert.Equal(t, MustNew(2026, 1, 1), MustNew(2025, 12, 31).AddDays(1))
		assert.Equal(t, MustNew(2025, 12, 29), MustNew(2026, 1, 1).AddDays(-3))
	})

	t.Run("should clamp the day when adding months", func(t *testing.T) {
		assert.Equal(t, MustNew(2026, 2, 28), MustNew(2026, 1, 31).AddMonths(1))
		assert.Equal(t, MustNew(2028, 2, 29), MustNew(2028, 3, 31).AddMonths(-1))
		assert.Equal(t, MustNew(2025, 12, 15), MustNew(2026, 1, 15).AddMonths(-1))
	})

	t.Run("should report weekday and month length", func(t *testing.T) {
		assert.Equal(t, time.Thursday, MustNew(2026, 1, 1).Weekday())
		assert.Equal(t, 28, MustNew(2026, 2, 10).DaysInMonth())
		assert.Equal(t, 29, MustNew(2028, 2, 10).DaysInMonth())
		assert.Equal(t, 3, MustNew(2026, 1, 30).DaysBetween(MustNew(2026, 2, 2)))
	})

	t.Run("should take today from the clock", func(t *testing.T) {
		clock := utils.NewMockClock(time.Date(2026, 1, 15, 10, 0, 0, 0, time.Local))

		assert.Equal(t, MustNew(2026, 1, 15), Today(clock))
	})
}

func TestJSON(t *testing.T) {
	type payload struct {
		Date    CalendarDate  `json:"date"`
		Current *CalendarDate `json:"current"`
	}

	t.Run("should encode as a YYYY-MM-DD string", func(t *testing.T) {
		body, err := json.Marshal(payload{Date: MustNew(2026, 3, 7)})

		require.NoError(t, err)
		assert.JSONEq(t, `{"date":"2026-03-07","current":null}`, string(body))
	})

	t.Run("should decode strings and nulls", func(t *testing.T) {
		var p payload
		err := json.Unmarshal([]byte(`{"date":"2026-03-07","current":null}`), &p)

		require.NoError(t, err)
		assert.Equal(t, MustNew(2026, 3, 7), p.Date)
		assert.Nil(t, p.Current)
	})

	t.Run("should fail on malformed dates", func(t *testing.T) {
		var p payload
		err := json.Unmarshal([]byte(`{"date":"07.03.2026"}`), &p)

		assert.ErrorIs(t, err, ErrFormat)
	})
}
