package metrics

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	d, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		panic(err)
	}
	return d
}

func TestUtcDay(t *testing.T) {
	est := time.FixedZone("EST", -5*3600)
	// 23:30 EST is already the next UTC day
	late := time.Date(2026, 3, 10, 23, 30, 0, 0, est)
	assert.Equal(t, day("2026-03-11"), utcDay(late))
	assert.Equal(t, day("2026-03-10"), utcDay(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)))
}

func TestDailySeries_EmitsEveryDay(t *testing.T) {
	buckets := map[time.Time]decimal.Decimal{
		day("2026-07-01"): decimal.NewFromInt(100),
		day("2026-07-03"): decimal.NewFromInt(-40),
	}
	points := dailySeries(buckets, day("2026-07-01"), day("2026-07-04"))
	require.Len(t, points, 4)

	assert.Equal(t, "2026-07-01", points[0].Period)
	assert.True(t, decimal.NewFromInt(100).Equal(points[0].Cumulative))

	// empty day still appears, carrying the running total
	assert.Equal(t, "2026-07-02", points[1].Period)
	assert.True(t, points[1].Realized.IsZero())
	assert.True(t, decimal.NewFromInt(100).Equal(points[1].Cumulative))

	assert.True(t, decimal.NewFromInt(60).Equal(points[2].Cumulative))
	assert.True(t, decimal.NewFromInt(60).Equal(points[3].Cumulative))
}

func TestMonthlySeries_GroupsDays(t *testing.T) {
	buckets := map[time.Time]decimal.Decimal{
		day("2026-01-05"): decimal.NewFromInt(100),
		day("2026-01-20"): decimal.NewFromInt(50),
		day("2026-03-02"): decimal.NewFromInt(25),
	}
	points := monthlySeries(buckets, day("2026-01-01"), day("2026-03-31"))
	require.Len(t, points, 3)

	assert.Equal(t, "2026-01", points[0].Period)
	assert.True(t, decimal.NewFromInt(150).Equal(points[0].Realized))

	assert.Equal(t, "2026-02", points[1].Period)
	assert.True(t, points[1].Realized.IsZero())
	assert.True(t, decimal.NewFromInt(150).Equal(points[1].Cumulative))

	assert.Equal(t, "2026-03", points[2].Period)
	assert.True(t, decimal.NewFromInt(175).Equal(points[2].Cumulative))
}

func TestWindowTotal(t *testing.T) {
	buckets := map[time.Time]decimal.Decimal{
		day("2026-06-30"): decimal.NewFromInt(1),
		day("2026-07-01"): decimal.NewFromInt(2),
		day("2026-07-15"): decimal.NewFromInt(4),
		day("2026-07-16"): decimal.NewFromInt(8),
	}
	total := windowTotal(buckets, day("2026-07-01"), day("2026-07-15"))
	assert.True(t, decimal.NewFromInt(6).Equal(total))
}
