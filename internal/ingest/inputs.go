// Package ingest acquires the raw inputs of a run: the plant image, the
// weather JSON files and the watering history. Required inputs fail the run
// when missing; optional ones degrade to their absence value.
package ingest

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/plantops/watering-advisor/internal/faults"
	"github.com/plantops/watering-advisor/internal/model"
)

// ImageDataURL reads the plant photo and embeds it as a data URL. Anything
// that is not an image/* file is an input error.
func ImageDataURL(path string) (string, error) {
	mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if !strings.HasPrefix(mimeType, "image/") {
		return "", faults.Input("file %s must be an image (image/*)", path)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", faults.Input("read image %s: %v", path, err)
	}
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(raw)), nil
}

// LoadWeatherNow reads the required current-weather file.
func LoadWeatherNow(path string) (model.WeatherNow, error) {
	var w model.WeatherNow
	if err := loadJSON(path, &w, true); err != nil {
		return model.WeatherNow{}, err
	}
	return w, nil
}

// LoadForecast reads the required forecast file.
func LoadForecast(path string) (model.Forecast, error) {
	var f model.Forecast
	if err := loadJSON(path, &f, true); err != nil {
		return model.Forecast{}, err
	}
	if f.Items == nil {
		return model.Forecast{}, faults.Input("forecast %s has no items list", path)
	}
	return f, nil
}

// LoadPlant reads the optional plant-context file; a missing file means an
// unknown plant, not an error.
func LoadPlant(path string) (*model.PlantContext, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}
	var p model.PlantContext
	if err := loadJSON(path, &p, false); err != nil {
		return nil, err
	}
	return &p, nil
}

func loadJSON(path string, out any, required bool) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && required {
			return faults.Input("required file %s does not exist", path)
		}
		return faults.Input("read %s: %v", path, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return faults.Input("invalid data in %s: %v", path, err)
	}
	return nil
}

// HistorySource yields the recorded watering events. Implementations: the
// JSON file and the InfluxDB bucket.
type HistorySource interface {
	Events(ctx context.Context) ([]model.WateringEvent, error)
}

// FileHistory reads watering events from a JSON file. An absent file means
// no history.
type FileHistory struct {
	Path string
}

func (h FileHistory) Events(_ context.Context) ([]model.WateringEvent, error) {
	if _, err := os.Stat(h.Path); os.IsNotExist(err) {
		return nil, nil
	}
	var events []model.WateringEvent
	if err := loadJSON(h.Path, &events, false); err != nil {
		return nil, err
	}
	return events, nil
}
