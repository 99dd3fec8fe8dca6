package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Artifacts  ArtifactsConfig  `yaml:"artifacts" mapstructure:"artifacts"`
	Generate   GenerateConfig   `yaml:"generate" mapstructure:"generate"`
	Predict    PredictConfig    `yaml:"predict" mapstructure:"predict"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the run history backend. Driver is sqlite,
// postgres, or none.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ArtifactsConfig locates the trained model artifacts.
type ArtifactsConfig struct {
	Dir            string `yaml:"dir" mapstructure:"dir"`
	ClassifierFile string `yaml:"classifier_file" mapstructure:"classifier_file"`
	RegressorFile  string `yaml:"regressor_file" mapstructure:"regressor_file"`
	MetadataFile   string `yaml:"metadata_file" mapstructure:"metadata_file"`
	SourceURL      string `yaml:"source_url" mapstructure:"source_url"`
}

// GenerateConfig configures the synthetic dataset generator.
type GenerateConfig struct {
	Rows   int    `yaml:"rows" mapstructure:"rows"`
	Output string `yaml:"output" mapstructure:"output"`
	Seed   uint64 `yaml:"seed" mapstructure:"seed"`
}

// PredictConfig configures local prediction runs.
type PredictConfig struct {
	PreviewRows int    `yaml:"preview_rows" mapstructure:"preview_rows"`
	Encoding    string `yaml:"encoding" mapstructure:"encoding"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	MaxUploadMB    int      `yaml:"max_upload_mb" mapstructure:"max_upload_mb"`
}

// MonitoringConfig configures failure-rate alerting for the server.
// Alerting is off when WebhookURL is empty.
type MonitoringConfig struct {
	WebhookURL           string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	FailureRateThreshold float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	LookbackWindowHours  int     `yaml:"lookback_window_hours" mapstructure:"lookback_window_hours"`
	CheckIntervalSecs    int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("AGRI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "agri.db")
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("store.min_conns", 1)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.max_upload_mb", 32)
	v.SetDefault("artifacts.dir", "models")
	v.SetDefault("artifacts.classifier_file", "suitability_model.json")
	v.SetDefault("artifacts.regressor_file", "yield_model.json")
	v.SetDefault("artifacts.metadata_file", "metadata.json")
	v.SetDefault("artifacts.source_url", "")
	v.SetDefault("generate.rows", 200)
	v.SetDefault("generate.output", "data/agriculture_suitability.csv")
	v.SetDefault("generate.seed", 0)
	v.SetDefault("predict.preview_rows", 20)
	v.SetDefault("predict.encoding", "utf-8")
	v.SetDefault("monitoring.webhook_url", "")
	v.SetDefault("monitoring.failure_rate_threshold", 0.25)
	v.SetDefault("monitoring.lookback_window_hours", 24)
	v.SetDefault("monitoring.check_interval_secs", 300)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command mode depends on. Modes are
// generate, predict, serve, artifacts, and runs.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "generate":
		if c.Generate.Rows < 0 {
			errs = append(errs, "generate.rows must be >= 0")
		}
		if c.Generate.Output == "" {
			errs = append(errs, "generate.output is required")
		}
	case "predict":
		errs = append(errs, c.validateArtifacts()...)
		errs = append(errs, c.validateStore()...)
	case "serve":
		errs = append(errs, c.validateArtifacts()...)
		errs = append(errs, c.validateStore()...)
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be > 0 and <= 65535")
		}
		if c.Server.MaxUploadMB <= 0 {
			errs = append(errs, "server.max_upload_mb must be > 0")
		}
		if c.Monitoring.WebhookURL != "" {
			if c.Store.Driver == "none" {
				errs = append(errs, "monitoring.webhook_url requires run history (store.driver)")
			}
			if c.Monitoring.FailureRateThreshold <= 0 || c.Monitoring.FailureRateThreshold > 1 {
				errs = append(errs, "monitoring.failure_rate_threshold must be in (0, 1]")
			}
		}
	case "artifacts":
		errs = append(errs, c.validateArtifacts()...)
	case "runs":
		errs = append(errs, c.validateStore()...)
		if c.Store.Driver == "none" {
			errs = append(errs, "store.driver none keeps no run history")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateArtifacts() []string {
	var errs []string
	if c.Artifacts.Dir == "" {
		errs = append(errs, "artifacts.dir is required")
	}
	if c.Artifacts.ClassifierFile == "" || c.Artifacts.RegressorFile == "" || c.Artifacts.MetadataFile == "" {
		errs = append(errs, "artifacts file names are required")
	}
	return errs
}

func (c *Config) validateStore() []string {
	switch c.Store.Driver {
	case "none":
		return nil
	case "sqlite", "postgres":
		if c.Store.DatabaseURL == "" {
			return []string{"store.database_url is required"}
		}
		return nil
	default:
		return []string{fmt.Sprintf("store.driver %q must be sqlite, postgres, or none", c.Store.Driver)}
	}
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
