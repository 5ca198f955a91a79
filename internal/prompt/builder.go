// Package prompt renders a decision request into the payload sent to the
// inference service. The numeric facts embedded in the prompt are the same
// Facts value the consistency guard later evaluates.
package prompt

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/plantops/watering-advisor/internal/facts"
	"github.com/plantops/watering-advisor/internal/model"
	"github.com/plantops/watering-advisor/internal/policy"
)

// maxForecastItems bounds prompt size. Truncation keeps the source order of
// the forecast, not a time-sorted one.
const maxForecastItems = 12

// Payload is the prompt handed to the inference adapter: a fixed policy
// instruction, the user message with facts and context, and the image.
type Payload struct {
	System   string
	UserText string
	ImageURL string
}

// Build renders the payload for req using the already-derived facts.
func Build(req *model.DecisionRequest, f facts.Facts, now time.Time) Payload {
	system := fmt.Sprintf(
		"Today is %s, morning. Decide whether to water the plant TODAY. Mandatory checklist: "+
			"(1) the photo: signs of over- or under-watering, "+
			"(2) DAYS SINCE LAST WATERING and the LAST AMOUNT (use exactly these FACTS), "+
			"(3) today's temperature and humidity (evaporation), "+
			"(4) forecast rainfall over the next %d hours. "+
			"If the facts show heat (>=%.0f °C) and dry air (<=%.0f %% RH) and the last watering was >=%d day ago and rain is <%.0f mm/%dh, "+
			"then skipping the watering is allowed only with a CLEAR reason (e.g. a very large dose yesterday, significant rain imminent). "+
			"Otherwise choose to water. "+
			`Answer ONLY as JSON: {"water": <true|false>, "reason": "<short, concrete>"} `+
			"You must not contradict yourself (e.g. hot and dry with no rain coming, yet no watering and no reason).",
		now.Format("2006-01-02"),
		policy.RainWindowHours,
		policy.HotTempC, policy.DryHumidityPct, policy.MinDaysSince,
		policy.RainSoonMM, policy.RainWindowHours,
	)

	items := req.WeatherForecast.Items
	if len(items) > maxForecastItems {
		items = items[:maxForecastItems]
	}

	user := fmt.Sprintf(
		"FACTS: %s\n\n"+
			"Last watering (ISO): %s (%s ml)\n\n"+
			"Plant context: %s\n\n"+
			"Current weather: %s\n\n"+
			"Forecast (first %d): %s",
		mustJSON(f),
		strOrUnknown(req.LastWateringDate), intOrUnknown(req.LastWateringAmountML),
		plantOrUnknown(req.Plant),
		mustJSON(req.WeatherNow),
		maxForecastItems, mustJSON(items),
	)

	return Payload{System: system, UserText: user, ImageURL: req.ImageURL}
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%+v", v)
	}
	return string(b)
}

func strOrUnknown(s *string) string {
	if s == nil || *s == "" {
		return "unknown"
	}
	return *s
}

func intOrUnknown(n *int) string {
	if n == nil {
		return "unknown"
	}
	return fmt.Sprintf("%d", *n)
}

func plantOrUnknown(p *model.PlantContext) string {
	if p == nil {
		return "unknown"
	}
	return mustJSON(p)
}
