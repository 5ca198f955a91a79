package policy

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/plantops/watering-advisor/internal/facts"
	"github.com/plantops/watering-advisor/internal/model"
)

func ip(n int) *int         { return &n }
func fp(f float64) *float64 { return &f }

func TestGuard_OverridesHotDryOverdueNoRain(t *testing.T) {
	f := facts.Facts{
		DaysSinceLastWatering: ip(3),
		RainNext12hMM:         0.5,
		NowTempC:              32,
		NowHumidityPct:        fp(25),
	}
	candidate := model.DecisionResponse{Water: false, Reason: "looks fine"}

	out := Guard(f, candidate)

	assert.True(t, out.Water)
	assert.Contains(t, out.Reason, "3 d")
	assert.Contains(t, out.Reason, "32°C")
	assert.Contains(t, out.Reason, "25% RH")
	assert.Contains(t, out.Reason, "<2 mm/12h")
	// The candidate itself must not have been touched.
	assert.False(t, candidate.Water)
}

func TestGuard_NoOpWhenConditionsFail(t *testing.T) {
	mild := facts.Facts{
		DaysSinceLastWatering: ip(5),
		RainNext12hMM:         0,
		NowTempC:              22,
		NowHumidityPct:        fp(60),
	}
	for _, candidate := range []model.DecisionResponse{
		{Water: false, Reason: "soil still moist"},
		{Water: true, Reason: "dry topsoil"},
	} {
		assert.Equal(t, candidate, Guard(mild, candidate))
	}
}

func TestGuard_UnknownHumidityNeverTriggers(t *testing.T) {
	f := facts.Facts{
		DaysSinceLastWatering: ip(5),
		RainNext12hMM:         0,
		NowTempC:              35,
		NowHumidityPct:        nil,
	}
	candidate := model.DecisionResponse{Water: false, Reason: "model said no"}
	assert.Equal(t, candidate, Guard(f, candidate))
}

func TestGuard_UnknownHistoryCountsAsOverdue(t *testing.T) {
	f := facts.Facts{
		DaysSinceLastWatering: nil,
		RainNext12hMM:         0,
		NowTempC:              33,
		NowHumidityPct:        fp(30),
	}
	out := Guard(f, model.DecisionResponse{Water: false, Reason: "no"})
	assert.True(t, out.Water)
	assert.Contains(t, out.Reason, "999 d")
}

func TestGuard_NeverOverridesAffirmative(t *testing.T) {
	f := facts.Facts{
		DaysSinceLastWatering: ip(3),
		RainNext12hMM:         0,
		NowTempC:              40,
		NowHumidityPct:        fp(10),
	}
	candidate := model.DecisionResponse{Water: true, Reason: "parched"}
	assert.Equal(t, candidate, Guard(f, candidate))
}

func TestGuard_RainThresholdBoundary(t *testing.T) {
	for _, tc := range []struct {
		rain     float64
		override bool
	}{
		{1.9, true},
		{2.0, false},
		{2.1, false},
	} {
		t.Run(fmt.Sprintf("rain=%.1f", tc.rain), func(t *testing.T) {
			f := facts.Facts{
				DaysSinceLastWatering: ip(2),
				RainNext12hMM:         tc.rain,
				NowTempC:              31,
				NowHumidityPct:        fp(35),
			}
			out := Guard(f, model.DecisionResponse{Water: false, Reason: "n"})
			assert.Equal(t, tc.override, out.Water)
		})
	}
}

func TestGuard_IsDeterministic(t *testing.T) {
	f := facts.Facts{
		DaysSinceLastWatering: ip(3),
		RainNext12hMM:         0.5,
		NowTempC:              32,
		NowHumidityPct:        fp(25),
	}
	candidate := model.DecisionResponse{Water: false, Reason: "x"}
	first := Guard(f, candidate)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Guard(f, candidate))
	}
}
