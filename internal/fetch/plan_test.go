package fetch

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResolution(t *testing.T) {
	for _, s := range []string{"0p25", "0p50", "1p00"} {
		r, err := ParseResolution(s)
		require.NoError(t, err)
		assert.Equal(t, Resolution(s), r)
	}
	_, err := ParseResolution("0p10")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "0p10")
}

func TestResolution_Steps(t *testing.T) {
	tests := []struct {
		res       Resolution
		maxHour   int
		wantLen   int
		wantFirst []int
		wantLast  int
	}{
		{Res0p50, DefaultMaxForecastHour, 129, []int{0, 3, 6, 9}, 384},
		{Res1p00, DefaultMaxForecastHour, 129, []int{0, 3, 6, 9}, 384},
		{Res0p25, DefaultMaxForecastHour, 209, []int{0, 1, 2, 3}, 384},
		{Res0p25, 24, 25, []int{0, 1, 2, 3}, 24},
		{Res0p50, 10, 4, []int{0, 3, 6, 9}, 9},
	}
	for _, tt := range tests {
		t.Run(string(tt.res), func(t *testing.T) {
			steps := tt.res.Steps(tt.maxHour)
			assert.Len(t, steps, tt.wantLen)
			assert.Equal(t, tt.wantFirst, steps[:4])
			assert.Equal(t, tt.wantLast, steps[len(steps)-1])
		})
	}

	steps := Res0p25.Steps(DefaultMaxForecastHour)
	assert.Equal(t, []int{119, 120, 123, 126}, steps[119:123])
}

func TestNewRun(t *testing.T) {
	r, err := NewRun(2018, 10, 1, 6)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2018, 10, 1, 0, 0, 0, 0, time.UTC), r.Date)
	assert.Equal(t, "2018100106", r.ID())
	assert.Equal(t, "gfs.20181001/06/atmos", r.Dir())

	for _, bad := range [][4]int{
		{2018, 10, 1, 3},
		{2018, 10, 1, 24},
		{2018, 10, 1, -6},
		{2018, 2, 30, 0},
		{2018, 13, 1, 0},
	} {
		_, err := NewRun(bad[0], bad[1], bad[2], bad[3])
		assert.Error(t, err, "%v", bad)
	}
}

func TestPlan(t *testing.T) {
	run, err := NewRun(2018, 10, 1, 12)
	require.NoError(t, err)

	files, err := Plan(run, Res0p50, 6)
	require.NoError(t, err)

	assert.Equal(t, []File{
		{Step: 0, Name: "gfs.t12z.pgrb2.0p50.f000", Remote: "gfs.20181001/12/atmos/gfs.t12z.pgrb2.0p50.f000"},
		{Step: 3, Name: "gfs.t12z.pgrb2.0p50.f003", Remote: "gfs.20181001/12/atmos/gfs.t12z.pgrb2.0p50.f003"},
		{Step: 6, Name: "gfs.t12z.pgrb2.0p50.f006", Remote: "gfs.20181001/12/atmos/gfs.t12z.pgrb2.0p50.f006"},
	}, files)

	_, err = Plan(run, "2p00", 6)
	require.Error(t, err)
	_, err = Plan(run, Res0p50, -1)
	require.Error(t, err)
}

func TestToday_UsesClock(t *testing.T) {
	SetClock(clockwork.NewFakeClockAt(time.Date(2018, 10, 1, 23, 30, 0, 0, time.UTC)))
	t.Cleanup(func() { SetClock(nil) })

	y, m, d := Today()
	assert.Equal(t, [3]int{2018, 10, 1}, [3]int{y, m, d})
}
