package fetch

import (
	"errors"
	"fmt"
	"path"
	"time"
)

// Resolution is a GFS grid spacing as spelled in NOMADS file names.
type Resolution string

const (
	Res0p25 Resolution = "0p25"
	Res0p50 Resolution = "0p50"
	Res1p00 Resolution = "1p00"
)

// DefaultMaxForecastHour is the last forecast hour GFS publishes.
const DefaultMaxForecastHour = 384

// hourlyUntil is the last forecast hour published hourly on the 0p25 grid.
const hourlyUntil = 120

// ParseResolution validates a resolution name.
func ParseResolution(s string) (Resolution, error) {
	switch r := Resolution(s); r {
	case Res0p25, Res0p50, Res1p00:
		return r, nil
	default:
		return "", fmt.Errorf("unknown resolution %q (want 0p25, 0p50 or 1p00)", s)
	}
}

// Steps lists the forecast hours published for r up to maxHour. The 0p25
// grid is hourly for the first five days and 3-hourly after; coarser grids
// are 3-hourly throughout.
func (r Resolution) Steps(maxHour int) []int {
	var steps []int
	for h := 0; h <= maxHour; {
		steps = append(steps, h)
		if r == Res0p25 && h < hourlyUntil {
			h++
		} else {
			h += 3
		}
	}
	return steps
}

// Run identifies one GFS cycle.
type Run struct {
	Date time.Time // UTC midnight
	Hour int
}

// NewRun validates a cycle date and hour. GFS runs at 00, 06, 12 and 18 UTC.
func NewRun(year, month, day, hour int) (Run, error) {
	if hour < 0 || hour > 18 || hour%6 != 0 {
		return Run{}, fmt.Errorf("invalid cycle hour %d (want 0, 6, 12 or 18)", hour)
	}
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if d.Year() != year || int(d.Month()) != month || d.Day() != day {
		return Run{}, fmt.Errorf("invalid date %04d-%02d-%02d", year, month, day)
	}
	return Run{Date: d, Hour: hour}, nil
}

// ID is the conventional cycle identifier, YYYYMMDDHH.
func (r Run) ID() string {
	return fmt.Sprintf("%s%02d", r.Date.Format("20060102"), r.Hour)
}

// Dir is the cycle directory relative to the NOMADS GFS root.
func (r Run) Dir() string {
	return path.Join("gfs."+r.Date.Format("20060102"), fmt.Sprintf("%02d", r.Hour), "atmos")
}

// File is one GRIB2 file of a run.
type File struct {
	Step   int
	Name   string
	Remote string
}

var errNoSteps = errors.New("max forecast hour must not be negative")

// Plan lists the files to download for a run at a resolution.
func Plan(run Run, res Resolution, maxHour int) ([]File, error) {
	if _, err := ParseResolution(string(res)); err != nil {
		return nil, err
	}
	if maxHour < 0 {
		return nil, errNoSteps
	}
	steps := res.Steps(maxHour)
	files := make([]File, len(steps))
	for i, h := range steps {
		name := fmt.Sprintf("gfs.t%02dz.pgrb2.%s.f%03d", run.Hour, res, h)
		files[i] = File{Step: h, Name: name, Remote: path.Join(run.Dir(), name)}
	}
	return files, nil
}
