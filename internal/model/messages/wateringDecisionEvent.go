package messages

import "time"

// WateringDecisionEvent is published after a run to record WHAT was decided
// and WHY, together with the derived facts the decision rested on.
type WateringDecisionEvent struct {
	RunID         string    `json:"run_id"`
	Plant         string    `json:"plant"`
	Water         bool      `json:"water"`
	Reason        string    `json:"reason"`
	DaysSince     *int      `json:"days_since,omitempty"`
	LastAmountML  *int      `json:"last_amount_ml,omitempty"`
	RainNext12hMM float64   `json:"rain_next_12h_mm"`
	TempC         float64   `json:"temp_c"`
	HumidityPct   *float64  `json:"humidity_pct,omitempty"`
	GuardFired    bool      `json:"guard_fired"`
	Timestamp     time.Time `json:"timestamp"`
}
