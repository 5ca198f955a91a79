package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Timestamp accepts both zoned (RFC 3339) and naive ISO timestamps. A naive
// timestamp keeps its wall-clock reading and is pinned to a concrete zone
// only when a caller resolves it with In.
type Timestamp struct {
	time.Time
	Naive bool
}

var naiveLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		return fmt.Errorf("timestamp is required")
	}
	if parsed, err := time.Parse(time.RFC3339, s); err == nil {
		t.Time = parsed
		t.Naive = false
		return nil
	}
	for _, layout := range naiveLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			t.Naive = true
			return nil
		}
	}
	return fmt.Errorf("unparseable timestamp %q", s)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.Naive {
		return []byte(`"` + t.Format("2006-01-02T15:04:05") + `"`), nil
	}
	return []byte(`"` + t.Format(time.RFC3339) + `"`), nil
}

// In resolves the timestamp into loc: naive readings are taken as wall-clock
// time in loc, zoned readings are converted.
func (t Timestamp) In(loc *time.Location) time.Time {
	if t.Naive {
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc)
	}
	return t.Time.In(loc)
}

// WeatherNow is a point-in-time reading. Only the temperature is mandatory;
// every other field may be missing from the source.
type WeatherNow struct {
	TempC           float64  `json:"temp_c"`
	HumidityPct     *float64 `json:"humidity_pct,omitempty"`
	PrecipitationMM *float64 `json:"precipitation_mm,omitempty"`
	CloudCoverPct   *float64 `json:"cloudcover_pct,omitempty"`
	Description     *string  `json:"description,omitempty"`
}

// UnmarshalJSON rejects readings without a temperature; every other field
// stays optional.
func (w *WeatherNow) UnmarshalJSON(b []byte) error {
	type alias WeatherNow
	aux := struct {
		TempC *float64 `json:"temp_c"`
		*alias
	}{alias: (*alias)(w)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	if aux.TempC == nil {
		return fmt.Errorf("weather reading is missing temp_c")
	}
	w.TempC = *aux.TempC
	return nil
}

// ForecastItem is a single forecast slot.
type ForecastItem struct {
	Time             Timestamp `json:"time"`
	PrecipProbPct    *float64  `json:"precip_prob_pct,omitempty"`
	ExpectedPrecipMM *float64  `json:"expected_precip_mm,omitempty"`
	TempC            *float64  `json:"temp_c,omitempty"`
	HumidityPct      *float64  `json:"humidity_pct,omitempty"`
}

// Forecast preserves the source order of its items; consumers filter by
// time window, not by position.
type Forecast struct {
	Items []ForecastItem `json:"items"`
}
