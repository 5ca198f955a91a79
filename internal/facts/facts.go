// Package facts computes the deterministic numeric facts a decision rests
// on. Both the prompt builder and the consistency guard consume the same
// Facts value, so the two can never disagree about what was derived.
package facts

import (
	"math"
	"strings"
	"time"

	"github.com/plantops/watering-advisor/internal/model"
)

// Facts is the derived summary for one decision request. Nil pointers mean
// "unknown"; substitution rules for unknowns belong to the consumers.
type Facts struct {
	DaysSinceLastWatering *int     `json:"days_since_last_watering"`
	LastWateringAmountML  *int     `json:"last_watering_amount_ml"`
	RainNext12hMM         float64  `json:"rain_next_12h_mm"`
	NowTempC              float64  `json:"now_temp_c"`
	NowHumidityPct        *float64 `json:"now_rh_pct"`
}

// Derive computes the facts for req as of now. windowHours is the forward
// span rainfall is summed over.
func Derive(req *model.DecisionRequest, now time.Time, loc *time.Location, windowHours int) Facts {
	return Facts{
		DaysSinceLastWatering: DaysSince(req.LastWateringDate, now, loc),
		LastWateringAmountML:  req.LastWateringAmountML,
		RainNext12hMM:         round1(RainInWindow(req.WeatherForecast, now, windowHours, loc)),
		NowTempC:              req.WeatherNow.TempC,
		NowHumidityPct:        req.WeatherNow.HumidityPct,
	}
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// DaysSince returns the number of whole days between the given ISO date and
// now, both taken in loc. Absent or unparseable input degrades to nil, never
// to an error: a broken history entry must not abort the pipeline.
func DaysSince(dateStr *string, now time.Time, loc *time.Location) *int {
	if dateStr == nil || strings.TrimSpace(*dateStr) == "" {
		return nil
	}
	s := strings.Replace(strings.TrimSpace(*dateStr), "Z", "+00:00", 1)
	var then time.Time
	ok := false
	if t, err := time.Parse("2006-01-02T15:04:05-07:00", s); err == nil {
		then = t.In(loc)
		ok = true
	} else {
		for _, layout := range dateLayouts {
			if t, err := time.ParseInLocation(layout, strings.TrimSpace(*dateStr), loc); err == nil {
				then = t
				ok = true
				break
			}
		}
	}
	if !ok {
		return nil
	}
	y1, m1, d1 := then.Date()
	y2, m2, d2 := now.In(loc).Date()
	days := int(time.Date(y2, m2, d2, 0, 0, 0, 0, time.UTC).Sub(time.Date(y1, m1, d1, 0, 0, 0, 0, time.UTC)).Hours() / 24)
	return &days
}

// RainInWindow sums expected precipitation over the forecast items whose
// timestamp falls inside the closed window [now, now+hours]. Items without
// a precipitation value contribute zero.
func RainInWindow(f model.Forecast, now time.Time, hours int, loc *time.Location) float64 {
	end := now.Add(time.Duration(hours) * time.Hour)
	total := 0.0
	for _, it := range f.Items {
		t := it.Time.In(loc)
		if t.Before(now) || t.After(end) {
			continue
		}
		if it.ExpectedPrecipMM != nil {
			total += *it.ExpectedPrecipMM
		}
	}
	return total
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
