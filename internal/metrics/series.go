package metrics

import (
	"time"

	"github.com/shopspring/decimal"
)

// SeriesPoint is one step of a cumulative realized-P&L series. Period is a
// UTC day ("2006-01-02") or month ("2006-01") key; Realized is that period's
// bucket and Cumulative the running total since the window start.
type SeriesPoint struct {
	Period     string          `json:"period"`
	Realized   decimal.Decimal `json:"realized"`
	Cumulative decimal.Decimal `json:"cumulative"`
}

const (
	dayKeyFormat   = "2006-01-02"
	monthKeyFormat = "2006-01"
)

// utcDay truncates t to UTC midnight. All calendar bucketing keys off this
// so a close at 23:30 in one zone and 00:30 in another land on the same day.
func utcDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func monthStart(t time.Time) time.Time {
	y, m, _ := t.UTC().Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

func yearStart(t time.Time) time.Time {
	return time.Date(t.UTC().Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
}

// dailySeries walks every calendar day from start through end inclusive,
// adding that day's bucket (zero if empty) to a running sum. Every day
// appears even when nothing closed on it.
func dailySeries(buckets map[time.Time]decimal.Decimal, start, end time.Time) []SeriesPoint {
	start, end = utcDay(start), utcDay(end)
	var out []SeriesPoint
	running := decimal.Zero
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		v := buckets[day]
		running = running.Add(v)
		out = append(out, SeriesPoint{
			Period:     day.Format(dayKeyFormat),
			Realized:   v,
			Cumulative: running,
		})
	}
	return out
}

// monthlySeries reduces day buckets to months and walks every month from
// start's month through end's month inclusive, one point per elapsed month.
func monthlySeries(buckets map[time.Time]decimal.Decimal, start, end time.Time) []SeriesPoint {
	monthly := make(map[time.Time]decimal.Decimal)
	for day, v := range buckets {
		k := monthStart(day)
		monthly[k] = monthly[k].Add(v)
	}
	first, last := monthStart(start), monthStart(end)
	var out []SeriesPoint
	running := decimal.Zero
	for m := first; !m.After(last); m = m.AddDate(0, 1, 0) {
		v := monthly[m]
		running = running.Add(v)
		out = append(out, SeriesPoint{
			Period:     m.Format(monthKeyFormat),
			Realized:   v,
			Cumulative: running,
		})
	}
	return out
}

// windowTotal sums buckets with keys in [start, end] (UTC days, inclusive).
func windowTotal(buckets map[time.Time]decimal.Decimal, start, end time.Time) decimal.Decimal {
	start, end = utcDay(start), utcDay(end)
	total := decimal.Zero
	for day, v := range buckets {
		if !day.Before(start) && !day.After(end) {
			total = total.Add(v)
		}
	}
	return total
}
