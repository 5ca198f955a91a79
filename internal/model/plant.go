package model

import "fmt"

// PlantContext is free-form metadata about the monitored plant. A missing
// context means "unknown plant" and never blocks a decision.
type PlantContext struct {
	Species *string `json:"species,omitempty"`
	Notes   *string `json:"notes,omitempty"`
}

// WateringEvent is one historical watering record. The date stays a string:
// history sources order events lexicographically, which matches chronology
// only while every record uses the same fixed-width ISO format.
type WateringEvent struct {
	Date     string `json:"date"`
	AmountML *int   `json:"amount_ml,omitempty"`
}

// LastWatering returns the most recent event, picked by lexicographically
// maximal date string. Histories mixing date-string widths are rejected
// because lexicographic order stops being chronological there.
func LastWatering(events []WateringEvent) (*WateringEvent, error) {
	if len(events) == 0 {
		return nil, nil
	}
	width := len(events[0].Date)
	last := events[0]
	for _, e := range events[1:] {
		if len(e.Date) != width {
			return nil, fmt.Errorf("watering history mixes date formats (%q vs %q)", events[0].Date, e.Date)
		}
		if e.Date > last.Date {
			last = e
		}
	}
	return &last, nil
}
