package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/plantops/watering-advisor/internal/faults"
	"github.com/plantops/watering-advisor/internal/model"
)

type owmCurrent struct {
	Temp     float64 `json:"temp"`
	Humidity float64 `json:"humidity"`
	Clouds   float64 `json:"clouds"`
	Rain     struct {
		OneH float64 `json:"1h"`
	} `json:"rain"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
}

type owmHourly struct {
	Dt       int64    `json:"dt"`
	Temp     *float64 `json:"temp"`
	Humidity *float64 `json:"humidity"`
	Pop      *float64 `json:"pop"`
	Rain     *struct {
		OneH float64 `json:"1h"`
	} `json:"rain"`
}

type owmResp struct {
	Current owmCurrent  `json:"current"`
	Hourly  []owmHourly `json:"hourly"`
}

// OWMClient fetches current conditions and the hourly forecast from the
// OpenWeatherMap one-call API. It is used only when the weather files are
// absent and a key is configured; file inputs always win.
type OWMClient struct {
	apiKey     string
	httpClient *http.Client
}

func NewOWMClient(key string, timeout time.Duration) *OWMClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &OWMClient{apiKey: key, httpClient: &http.Client{Timeout: timeout}}
}

// Fetch maps one API call onto the WeatherNow/Forecast pair.
func (c *OWMClient) Fetch(ctx context.Context, lat, lon float64) (model.WeatherNow, model.Forecast, error) {
	if c.apiKey == "" {
		return model.WeatherNow{}, model.Forecast{}, faults.Configuration("missing OWM api key")
	}
	url := fmt.Sprintf("https://api.openweathermap.org/data/3.0/onecall?lat=%f&lon=%f&exclude=minutely,daily,alerts&units=metric&appid=%s", lat, lon, c.apiKey)
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.WeatherNow{}, model.Forecast{}, faults.Input("owm request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return model.WeatherNow{}, model.Forecast{}, faults.Input("owm status %d: %s", resp.StatusCode, string(b))
	}
	var out owmResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return model.WeatherNow{}, model.Forecast{}, faults.Input("owm decode: %v", err)
	}

	now := model.WeatherNow{
		TempC:         out.Current.Temp,
		HumidityPct:   fptr(out.Current.Humidity),
		CloudCoverPct: fptr(out.Current.Clouds),
	}
	if out.Current.Rain.OneH > 0 {
		now.PrecipitationMM = fptr(out.Current.Rain.OneH)
	}
	if len(out.Current.Weather) > 0 {
		d := out.Current.Weather[0].Description
		now.Description = &d
	}

	items := make([]model.ForecastItem, 0, len(out.Hourly))
	for _, h := range out.Hourly {
		it := model.ForecastItem{
			Time:        model.Timestamp{Time: time.Unix(h.Dt, 0).UTC()},
			TempC:       h.Temp,
			HumidityPct: h.Humidity,
		}
		if h.Pop != nil {
			it.PrecipProbPct = fptr(*h.Pop * 100)
		}
		if h.Rain != nil {
			it.ExpectedPrecipMM = fptr(h.Rain.OneH)
		}
		items = append(items, it)
	}
	return now, model.Forecast{Items: items}, nil
}

func fptr(v float64) *float64 { return &v }
