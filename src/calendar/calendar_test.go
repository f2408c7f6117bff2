package calendar

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestIsTradingDay(t *testing.T) {
	cases := []struct {
		day  time.Time
		want bool
		name string
	}{
		{date(2016, time.January, 6), true, "ordinary Wednesday"},
		{date(2016, time.January, 2), false, "Saturday"},
		{date(2016, time.January, 3), false, "Sunday"},
		{date(2016, time.January, 1), false, "New Year's Day"},
		{date(2016, time.January, 18), false, "MLK Day"},
		{date(2016, time.February, 15), false, "Presidents' Day"},
		{date(2016, time.May, 30), false, "Memorial Day"},
		{date(2016, time.March, 25), false, "Good Friday"},
		{date(2015, time.April, 3), false, "Good Friday 2015"},
		{date(2016, time.March, 24), true, "Maundy Thursday trades"},
		{date(2016, time.July, 4), false, "Independence Day"},
		{date(2016, time.September, 5), false, "Labor Day"},
		{date(2016, time.November, 24), false, "Thanksgiving"},
		{date(2015, time.December, 25), false, "Christmas"},
		{date(2017, time.January, 2), false, "New Year's observed Monday"},
	}

	for _, tc := range cases {
		if got := IsTradingDay(tc.day); got != tc.want {
			t.Errorf("%s (%s): expected %v, got %v", tc.name, tc.day.Format("2006-01-02"), tc.want, got)
		}
	}
}

func TestTradingDays(t *testing.T) {
	days := TradingDays(date(2016, time.July, 1), date(2016, time.July, 8))

	// Fri 1st, then Tue 5th through Fri 8th; the 4th is a holiday.
	if len(days) != 5 {
		t.Fatalf("expected 5 trading days, got %d: %v", len(days), days)
	}
	if !days[1].Equal(date(2016, time.July, 5)) {
		t.Fatalf("expected the week to resume on the 5th, got %s", days[1].Format("2006-01-02"))
	}
}

func TestNextAndPrevious(t *testing.T) {
	if got := Next(date(2016, time.July, 1)); !got.Equal(date(2016, time.July, 5)) {
		t.Fatalf("expected next trading day 2016-07-05, got %s", got.Format("2006-01-02"))
	}
	if got := Previous(date(2016, time.July, 5)); !got.Equal(date(2016, time.July, 1)) {
		t.Fatalf("expected previous trading day 2016-07-01, got %s", got.Format("2006-01-02"))
	}
}
