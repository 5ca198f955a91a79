// Package config assembles the explicit configuration object the pipeline
// is constructed with. Values come from defaults, then an optional YAML
// file, then environment variables, in that order of increasing precedence.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/plantops/watering-advisor/internal/faults"
)

type Config struct {
	// Input files.
	ImagePath       string `yaml:"image_path"`
	WeatherNowPath  string `yaml:"weather_now_path"`
	ForecastPath    string `yaml:"weather_forecast_path"`
	HistoryPath     string `yaml:"watering_history_path"`
	PlantPath       string `yaml:"plant_path"`

	// Observability.
	AuditLogPath        string `yaml:"audit_log_path"`
	IncludeImageInAudit bool   `yaml:"include_image_in_audit"`

	// Inference service.
	Model              string        `yaml:"model"`
	OpenAIBaseURL      string        `yaml:"openai_base_url"`
	OpenAIKey          string        `yaml:"-"`
	InferenceTimeout   time.Duration `yaml:"-"`
	InferenceTimeoutMs int           `yaml:"inference_timeout_ms"`

	// Decision policy.
	GuardEnabled bool   `yaml:"guard_enabled"`
	Timezone     string `yaml:"timezone"`
	PlantID      string `yaml:"plant_id"`

	// Optional watering-history source (replaces the JSON file when set).
	InfluxURL         string `yaml:"influx_url"`
	InfluxToken       string `yaml:"-"`
	InfluxOrg         string `yaml:"influx_org"`
	InfluxBucket      string `yaml:"influx_bucket"`
	InfluxMeasurement string `yaml:"influx_measurement"`

	// Optional weather source when the weather files are absent.
	OWMAPIKey string  `yaml:"-"`
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`

	// Optional decision-event sink.
	MQTTHost          string `yaml:"mqtt_host"`
	MQTTPort          int    `yaml:"mqtt_port"`
	MQTTUser          string `yaml:"mqtt_user"`
	MQTTPassword      string `yaml:"-"`
	DecisionTopicTmpl string `yaml:"decision_topic"`

	// Optional metrics push target for this one-shot job.
	PushgatewayURL string `yaml:"pushgateway_url"`
	PushJob        string `yaml:"push_job"`
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func getenvInt(k string, d int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return d
}

func getenvFloat(k string, d float64) float64 {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		if f, err := strconv.ParseFloat(strings.ReplaceAll(v, ",", "."), 64); err == nil {
			return f
		}
	}
	return d
}

func getenvBool(k string, d bool) bool {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return d
}

// Load builds the configuration from defaults, the given YAML file (empty
// path skips the overlay) and the environment.
func Load(file string) (Config, error) {
	cfg := Config{
		ImagePath:      "./plant.jpg",
		WeatherNowPath: "./weather_now.json",
		ForecastPath:   "./weather_forecast.json",
		HistoryPath:    "./watering_history.json",
		PlantPath:      "./plant.json",

		AuditLogPath: "./watering.log",

		Model:              "gpt-4o-mini",
		InferenceTimeoutMs: 30000,

		GuardEnabled: true,
		Timezone:     "Europe/Prague",
		PlantID:      "plant",

		InfluxMeasurement: "watering",
		MQTTPort:          1883,
		DecisionTopicTmpl: "event/wateringDecision/{plant}",
		PushJob:           "watering_advisor",
	}

	if file != "" {
		raw, err := os.ReadFile(file)
		if err != nil {
			return cfg, faults.Configuration("read config file %s: %v", file, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, faults.Configuration("parse config file %s: %v", file, err)
		}
	}

	cfg.ImagePath = getenv("IMAGE_PATH", cfg.ImagePath)
	cfg.WeatherNowPath = getenv("WEATHER_NOW_PATH", cfg.WeatherNowPath)
	cfg.ForecastPath = getenv("WEATHER_FORECAST_PATH", cfg.ForecastPath)
	cfg.HistoryPath = getenv("HISTORY_PATH", cfg.HistoryPath)
	cfg.PlantPath = getenv("PLANT_PATH", cfg.PlantPath)
	cfg.AuditLogPath = getenv("AUDIT_LOG_PATH", cfg.AuditLogPath)
	cfg.IncludeImageInAudit = getenvBool("LOG_PROMPT_INCLUDE_IMAGE", cfg.IncludeImageInAudit)

	cfg.Model = getenv("MODEL", cfg.Model)
	cfg.OpenAIBaseURL = getenv("OPENAI_BASE_URL", cfg.OpenAIBaseURL)
	cfg.OpenAIKey = os.Getenv("OPENAI_API_KEY")
	cfg.InferenceTimeoutMs = getenvInt("INFERENCE_TIMEOUT_MS", cfg.InferenceTimeoutMs)
	cfg.InferenceTimeout = time.Duration(cfg.InferenceTimeoutMs) * time.Millisecond

	cfg.GuardEnabled = getenvBool("GUARD_ENABLED", cfg.GuardEnabled)
	cfg.Timezone = getenv("TZ_NAME", cfg.Timezone)
	cfg.PlantID = getenv("PLANT_ID", cfg.PlantID)

	cfg.InfluxURL = getenv("INFLUX_URL", cfg.InfluxURL)
	cfg.InfluxToken = os.Getenv("INFLUX_TOKEN")
	cfg.InfluxOrg = getenv("INFLUX_ORG", cfg.InfluxOrg)
	cfg.InfluxBucket = getenv("INFLUX_BUCKET", cfg.InfluxBucket)
	cfg.InfluxMeasurement = getenv("INFLUX_MEASUREMENT", cfg.InfluxMeasurement)

	cfg.OWMAPIKey = os.Getenv("OWM_API_KEY")
	cfg.Latitude = getenvFloat("PLANT_LAT", cfg.Latitude)
	cfg.Longitude = getenvFloat("PLANT_LON", cfg.Longitude)

	cfg.MQTTHost = getenv("MQTT_HOST", cfg.MQTTHost)
	cfg.MQTTPort = getenvInt("MQTT_PORT", cfg.MQTTPort)
	cfg.MQTTUser = getenv("MQTT_USER", cfg.MQTTUser)
	cfg.MQTTPassword = os.Getenv("MQTT_PASSWORD")
	cfg.DecisionTopicTmpl = getenv("DECISION_TOPIC", cfg.DecisionTopicTmpl)

	cfg.PushgatewayURL = getenv("PUSHGATEWAY_URL", cfg.PushgatewayURL)
	cfg.PushJob = getenv("PUSH_JOB", cfg.PushJob)

	return cfg, nil
}

// Validate runs the pre-flight checks that must pass before any processing.
func (c Config) Validate() error {
	if c.OpenAIKey == "" {
		return faults.Configuration("OPENAI_API_KEY is not set")
	}
	return nil
}

// Location resolves the configured time zone, falling back to the system
// local zone when the name does not resolve.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}
