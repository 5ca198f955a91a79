package model

import (
	"errors"
	"strings"
)

// DecisionRequest bundles everything submitted for one watering judgment.
// Entities are built once per run and not mutated afterwards.
type DecisionRequest struct {
	ImageURL             string        `json:"image_url"`
	LastWateringDate     *string       `json:"last_watering_date,omitempty"`
	LastWateringAmountML *int          `json:"last_watering_amount_ml,omitempty"`
	WeatherNow           WeatherNow    `json:"weather_now"`
	WeatherForecast      Forecast      `json:"weather_forecast"`
	Plant                *PlantContext `json:"plant,omitempty"`
}

// Validate checks the well-formedness invariant: image and both weather
// blocks must be present; everything else may be absent.
func (r *DecisionRequest) Validate() error {
	if strings.TrimSpace(r.ImageURL) == "" {
		return errors.New("decision request: image reference is required")
	}
	if r.WeatherForecast.Items == nil {
		return errors.New("decision request: forecast item list is required (may be empty)")
	}
	return nil
}

// DecisionResponse is the output contract: the verdict plus a non-empty
// justification. The consistency guard returns a new value rather than
// mutating one produced by the inference service.
type DecisionResponse struct {
	Water  bool   `json:"water"`
	Reason string `json:"reason"`
}

func (r *DecisionResponse) Validate() error {
	if strings.TrimSpace(r.Reason) == "" {
		return errors.New("decision response: justification must not be empty")
	}
	return nil
}
