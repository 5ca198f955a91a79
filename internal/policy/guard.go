// Package policy holds the watering decision thresholds and the consistency
// guard built on them. The prompt text and the guard must agree on the
// numbers, so both read them from here and nowhere else.
package policy

import (
	"fmt"

	"github.com/plantops/watering-advisor/internal/facts"
	"github.com/plantops/watering-advisor/internal/model"
)

const (
	// HotTempC and DryHumidityPct describe the hot-dry condition under
	// which skipping a watering needs an explicit countervailing reason.
	HotTempC       = 30.0
	DryHumidityPct = 40.0

	// RainSoonMM within RainWindowHours counts as imminent significant rain.
	RainSoonMM      = 2.0
	RainWindowHours = 12

	// MinDaysSince is the minimum gap since the last watering before the
	// guard may fire.
	MinDaysSince = 1

	// Substitutions for unknown facts. Unknown humidity must never read as
	// "dry", so it substitutes as fully humid. Unknown watering history
	// reads as long overdue.
	unknownHumidityPct = 100.0
	unknownDays        = 999
)

// Guard reconciles the inference service's answer with the hard facts. If
// it is hot, dry, at least a day since the last watering, no significant
// rain is coming, and the candidate still says "don't water", the verdict
// flips to "water" with a deterministic justification. In every other case
// the candidate passes through untouched. Pure function; never fails.
func Guard(f facts.Facts, candidate model.DecisionResponse) model.DecisionResponse {
	if candidate.Water {
		return candidate
	}

	days := unknownDays
	if f.DaysSinceLastWatering != nil {
		days = *f.DaysSinceLastWatering
	}
	rh := unknownHumidityPct
	if f.NowHumidityPct != nil {
		rh = *f.NowHumidityPct
	}

	hot := f.NowTempC >= HotTempC
	dry := rh <= DryHumidityPct
	overdue := days >= MinDaysSince
	rainSoon := f.RainNext12hMM >= RainSoonMM

	if hot && dry && overdue && !rainSoon {
		return model.DecisionResponse{
			Water: true,
			Reason: fmt.Sprintf("%d d since last watering, %.0f°C/%d%% RH, rain <%.0f mm/%dh ahead: water anyway.",
				days, f.NowTempC, int(rh), RainSoonMM, RainWindowHours),
		}
	}
	return candidate
}
