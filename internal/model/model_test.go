package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeatherNow_RequiresTemperature(t *testing.T) {
	var w WeatherNow
	err := json.Unmarshal([]byte(`{"humidity_pct": 40}`), &w)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "temp_c")
}

func TestWeatherNow_OptionalFieldsStayNil(t *testing.T) {
	var w WeatherNow
	require.NoError(t, json.Unmarshal([]byte(`{"temp_c": 21.5}`), &w))
	assert.Equal(t, 21.5, w.TempC)
	assert.Nil(t, w.HumidityPct)
	assert.Nil(t, w.PrecipitationMM)
	assert.Nil(t, w.Description)
}

func TestTimestamp_ZonedAndNaive(t *testing.T) {
	var zoned Timestamp
	require.NoError(t, json.Unmarshal([]byte(`"2025-07-10T08:00:00+02:00"`), &zoned))
	assert.False(t, zoned.Naive)

	var naive Timestamp
	require.NoError(t, json.Unmarshal([]byte(`"2025-07-10T08:00:00"`), &naive))
	assert.True(t, naive.Naive)

	prague, err := time.LoadLocation("Europe/Prague")
	require.NoError(t, err)
	resolved := naive.In(prague)
	assert.Equal(t, prague, resolved.Location())
	assert.Equal(t, 8, resolved.Hour())

	var bad Timestamp
	assert.Error(t, json.Unmarshal([]byte(`"yesterday"`), &bad))
}

func TestLastWatering_LexicographicMax(t *testing.T) {
	ml := 200
	events := []WateringEvent{
		{Date: "2025-07-01"},
		{Date: "2025-07-09", AmountML: &ml},
		{Date: "2025-07-05"},
	}
	last, err := LastWatering(events)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, "2025-07-09", last.Date)
	assert.Equal(t, 200, *last.AmountML)
}

func TestLastWatering_EmptyHistory(t *testing.T) {
	last, err := LastWatering(nil)
	require.NoError(t, err)
	assert.Nil(t, last)
}

func TestLastWatering_RejectsMixedDateWidths(t *testing.T) {
	events := []WateringEvent{
		{Date: "2025-07-01"},
		{Date: "2025-07-02T10:00:00Z"},
	}
	_, err := LastWatering(events)
	assert.Error(t, err)
}

func TestDecisionRequest_Validate(t *testing.T) {
	req := DecisionRequest{
		ImageURL:        "data:image/jpeg;base64,abc",
		WeatherNow:      WeatherNow{TempC: 20},
		WeatherForecast: Forecast{Items: []ForecastItem{}},
	}
	assert.NoError(t, req.Validate())

	req.ImageURL = ""
	assert.Error(t, req.Validate())

	req.ImageURL = "data:image/jpeg;base64,abc"
	req.WeatherForecast.Items = nil
	assert.Error(t, req.Validate())
}

func TestDecisionResponse_Validate(t *testing.T) {
	assert.NoError(t, (&DecisionResponse{Water: true, Reason: "dry"}).Validate())
	assert.Error(t, (&DecisionResponse{Water: true, Reason: "  "}).Validate())
}
