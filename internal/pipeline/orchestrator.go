// Package pipeline sequences one decision run: validate inputs, derive
// facts, build the prompt, call the inference service, apply the
// consistency guard, emit the result.
package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/plantops/watering-advisor/internal/config"
	"github.com/plantops/watering-advisor/internal/facts"
	"github.com/plantops/watering-advisor/internal/faults"
	"github.com/plantops/watering-advisor/internal/inference"
	"github.com/plantops/watering-advisor/internal/ingest"
	"github.com/plantops/watering-advisor/internal/model"
	"github.com/plantops/watering-advisor/internal/model/messages"
	"github.com/plantops/watering-advisor/internal/policy"
	"github.com/plantops/watering-advisor/internal/prompt"
	pkgmqtt "github.com/plantops/watering-advisor/pkg/mqtt"
)

// Orchestrator runs the decision pipeline against an explicit Config; no
// ambient globals, so differently configured instances can coexist in tests.
type Orchestrator struct {
	cfg     config.Config
	judge   inference.Judge
	history ingest.HistorySource
	log     *zap.Logger
	audit   *zap.Logger
	metrics *metrics

	// Weather is the optional API fallback for absent weather files.
	Weather *ingest.OWMClient
	// Publisher is the optional decision-event sink.
	Publisher pkgmqtt.IPublisher
	// RunID correlates audit entries and events of this run.
	RunID string
	// Now is the clock; overridable in tests.
	Now func() time.Time
}

func New(cfg config.Config, judge inference.Judge, history ingest.HistorySource, log, audit *zap.Logger) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	if audit == nil {
		audit = zap.NewNop()
	}
	return &Orchestrator{
		cfg:     cfg,
		judge:   judge,
		history: history,
		log:     log,
		audit:   audit,
		metrics: newMetrics(),
		Now:     time.Now,
	}
}

// Run executes one decision. Every failure is terminal; there is no local
// fallback decision synthesis.
func (o *Orchestrator) Run(ctx context.Context) (model.DecisionResponse, error) {
	outcome := "error"
	defer func() {
		o.metrics.runs.WithLabelValues(outcome).Inc()
		if err := o.metrics.pushTo(o.cfg.PushgatewayURL, o.cfg.PushJob, o.cfg.PlantID); err != nil {
			o.log.Warn("metrics push failed", zap.Error(err))
		}
	}()

	if err := o.cfg.Validate(); err != nil {
		outcome = "config_error"
		return model.DecisionResponse{}, err
	}

	req, err := o.buildRequest(ctx)
	if err != nil {
		outcome = "input_error"
		return model.DecisionResponse{}, err
	}

	loc := o.cfg.Location()
	now := o.Now().In(loc)
	f := facts.Derive(req, now, loc, policy.RainWindowHours)
	o.log.Info("derived facts",
		zap.Any("days_since", f.DaysSinceLastWatering),
		zap.Float64("rain_next_12h_mm", f.RainNext12hMM),
		zap.Float64("temp_c", f.NowTempC),
		zap.Any("humidity_pct", f.NowHumidityPct))

	payload := prompt.Build(req, f, now)

	start := o.Now()
	candidate, err := o.judge.Infer(ctx, payload)
	o.metrics.observeInference(o.Now().Sub(start))
	if err != nil {
		outcome = "inference_error"
		return model.DecisionResponse{}, err
	}
	if err := candidate.Validate(); err != nil {
		outcome = "inference_error"
		return model.DecisionResponse{}, faults.Inference("%v", err)
	}

	final := candidate
	guardFired := false
	if o.cfg.GuardEnabled {
		final = policy.Guard(f, candidate)
		guardFired = final != candidate
		if guardFired {
			o.metrics.guardOverrides.Inc()
			o.log.Warn("consistency guard overrode the decision",
				zap.String("candidate_reason", candidate.Reason),
				zap.String("reason", final.Reason))
		}
	}

	o.audit.Info("decision",
		zap.String("run_id", o.RunID),
		zap.Bool("water", final.Water),
		zap.String("reason", final.Reason),
		zap.Bool("guard_fired", guardFired))

	o.publishEvent(f, final, guardFired)

	outcome = "ok"
	return final, nil
}

// buildRequest acquires and validates every input of the run.
func (o *Orchestrator) buildRequest(ctx context.Context) (*model.DecisionRequest, error) {
	imageURL, err := ingest.ImageDataURL(o.cfg.ImagePath)
	if err != nil {
		return nil, err
	}

	wn, fc, err := o.loadWeather(ctx)
	if err != nil {
		return nil, err
	}

	plant, err := ingest.LoadPlant(o.cfg.PlantPath)
	if err != nil {
		return nil, err
	}

	events, err := o.history.Events(ctx)
	if err != nil {
		return nil, err
	}
	last, err := model.LastWatering(events)
	if err != nil {
		return nil, faults.Input("%v", err)
	}

	req := &model.DecisionRequest{
		ImageURL:        imageURL,
		WeatherNow:      wn,
		WeatherForecast: fc,
		Plant:           plant,
	}
	if last != nil {
		req.LastWateringDate = &last.Date
		req.LastWateringAmountML = last.AmountML
	}
	if err := req.Validate(); err != nil {
		return nil, faults.Input("%v", err)
	}
	return req, nil
}

// loadWeather prefers the weather files; when both are absent and an API
// client is configured, it falls back to fetching them.
func (o *Orchestrator) loadWeather(ctx context.Context) (model.WeatherNow, model.Forecast, error) {
	_, nowErr := os.Stat(o.cfg.WeatherNowPath)
	_, fcErr := os.Stat(o.cfg.ForecastPath)
	if os.IsNotExist(nowErr) && os.IsNotExist(fcErr) && o.Weather != nil {
		o.log.Info("weather files absent, fetching from OpenWeatherMap",
			zap.Float64("lat", o.cfg.Latitude), zap.Float64("lon", o.cfg.Longitude))
		return o.Weather.Fetch(ctx, o.cfg.Latitude, o.cfg.Longitude)
	}

	wn, err := ingest.LoadWeatherNow(o.cfg.WeatherNowPath)
	if err != nil {
		return model.WeatherNow{}, model.Forecast{}, err
	}
	fc, err := ingest.LoadForecast(o.cfg.ForecastPath)
	if err != nil {
		return model.WeatherNow{}, model.Forecast{}, err
	}
	return wn, fc, nil
}

// publishEvent mirrors the decision to the MQTT sink. Failures are logged,
// not fatal: the stdout artifact already exists by the time we get here.
func (o *Orchestrator) publishEvent(f facts.Facts, res model.DecisionResponse, guardFired bool) {
	if o.Publisher == nil {
		return
	}
	evt := messages.WateringDecisionEvent{
		RunID:         o.RunID,
		Plant:         o.cfg.PlantID,
		Water:         res.Water,
		Reason:        res.Reason,
		DaysSince:     f.DaysSinceLastWatering,
		LastAmountML:  f.LastWateringAmountML,
		RainNext12hMM: f.RainNext12hMM,
		TempC:         f.NowTempC,
		HumidityPct:   f.NowHumidityPct,
		GuardFired:    guardFired,
		Timestamp:     o.Now().UTC(),
	}
	b, err := json.Marshal(evt)
	if err != nil {
		o.log.Error("marshal decision event", zap.Error(err))
		return
	}
	topic := strings.ReplaceAll(o.cfg.DecisionTopicTmpl, "{plant}", o.cfg.PlantID)
	if err := o.Publisher.PublishQoS(topic, 1, b); err != nil {
		o.log.Error("publish decision event", zap.String("topic", topic), zap.Error(err))
		return
	}
	o.log.Info("decision event published", zap.String("topic", topic))
}
