// Command advisor decides, once per invocation, whether the monitored plant
// should be watered today and prints the verdict as JSON.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/plantops/watering-advisor/internal/config"
	"github.com/plantops/watering-advisor/internal/inference"
	"github.com/plantops/watering-advisor/internal/ingest"
	"github.com/plantops/watering-advisor/internal/pipeline"
	pkgmqtt "github.com/plantops/watering-advisor/pkg/mqtt"
)

var (
	cfgFile      string
	verbose      bool
	includeImage bool
	noGuard      bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "advisor",
	Short: "Decide whether to water the plant today",
	Long: `advisor fuses a photo of the plant, current weather, a short-term
forecast and the watering history into one request, asks a vision-capable
inference service for a verdict, and applies a deterministic consistency
guard so the answer cannot contradict hard physical facts.

One invocation produces exactly one decision.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		zcfg.OutputPaths = []string{"stderr"}
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runDecision,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file overlaying the defaults")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.Flags().BoolVar(&includeImage, "include-image-in-audit", false, "write the image data URL into the audit log")
	rootCmd.Flags().BoolVar(&noGuard, "no-guard", false, "emit the raw inference verdict without the consistency guard")
}

func runDecision(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		logger.Error("configuration failed", zap.Error(err))
		return err
	}
	if cmd.Flags().Changed("include-image-in-audit") {
		cfg.IncludeImageInAudit = includeImage
	}
	if noGuard {
		cfg.GuardEnabled = false
	}

	// Pre-flight: a missing credential fails before any input is touched.
	if err := cfg.Validate(); err != nil {
		logger.Error("configuration failed", zap.Error(err))
		return err
	}

	audit, closeAudit, err := newAuditLogger(cfg.AuditLogPath)
	if err != nil {
		logger.Error("audit log unavailable", zap.Error(err))
		return err
	}
	defer closeAudit()

	runID := uuid.NewString()
	audit = audit.With(zap.String("run_id", runID))

	judge := inference.NewOpenAIClient(inference.OpenAIConfig{
		APIKey:              cfg.OpenAIKey,
		BaseURL:             cfg.OpenAIBaseURL,
		Model:               cfg.Model,
		Timeout:             cfg.InferenceTimeout,
		IncludeImageInAudit: cfg.IncludeImageInAudit,
	}, audit)

	var history ingest.HistorySource = ingest.FileHistory{Path: cfg.HistoryPath}
	if cfg.InfluxURL != "" {
		ih, err := ingest.NewInfluxHistory(cfg.InfluxURL, cfg.InfluxToken, cfg.InfluxOrg,
			cfg.InfluxBucket, cfg.InfluxMeasurement, cfg.PlantID)
		if err != nil {
			logger.Error("influx history source", zap.Error(err))
			return err
		}
		history = ih
	}

	orch := pipeline.New(cfg, judge, history, logger, audit)
	orch.RunID = runID
	if cfg.OWMAPIKey != "" {
		orch.Weather = ingest.NewOWMClient(cfg.OWMAPIKey, 10*time.Second)
	}
	if cfg.MQTTHost != "" {
		client, err := pkgmqtt.Connect(pkgmqtt.BrokerConfig{
			Host:     cfg.MQTTHost,
			Port:     cfg.MQTTPort,
			User:     cfg.MQTTUser,
			Password: cfg.MQTTPassword,
			ClientID: "WateringAdvisor-" + runID[:8],
		})
		if err != nil {
			// The event sink is optional; the stdout artifact must not
			// depend on broker availability.
			logger.Warn("MQTT connect failed, decision event will not be published", zap.Error(err))
		} else {
			pub := pkgmqtt.NewPublisher(client)
			defer pub.Close()
			orch.Publisher = pub
		}
	}

	res, err := orch.Run(cmd.Context())
	if err != nil {
		logger.Error("run failed", zap.Error(err))
		return err
	}

	out, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

// newAuditLogger opens the append-only observability sink the prompt and
// the decision are mirrored to.
func newAuditLogger(path string) (*zap.Logger, func(), error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open audit log %s: %w", path, err)
	}
	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "ts"
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(enc), zapcore.AddSync(f), zapcore.InfoLevel)
	return zap.New(core), func() { _ = f.Close() }, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
