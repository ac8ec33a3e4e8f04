// Package config loads application configuration from file and environment
// and owns global logger setup.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Input    InputConfig    `yaml:"input" mapstructure:"input"`
	Chron    ChronConfig    `yaml:"chron" mapstructure:"chron"`
	Rotation RotationConfig `yaml:"rotation" mapstructure:"rotation"`
	Grid     GridConfig     `yaml:"grid" mapstructure:"grid"`
	Filter   FilterConfig   `yaml:"filter" mapstructure:"filter"`
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Output   OutputConfig   `yaml:"output" mapstructure:"output"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// InputConfig locates the collaborator-provided input files.
type InputConfig struct {
	Occurrences string `yaml:"occurrences" mapstructure:"occurrences"`
	Regions     string `yaml:"regions" mapstructure:"regions"`
	NameField   string `yaml:"name_field" mapstructure:"name_field"`
	MapIDField  string `yaml:"map_id_field" mapstructure:"map_id_field"`
}

// ChronConfig configures the stage table.
type ChronConfig struct {
	StagesPath string `yaml:"stages_path" mapstructure:"stages_path"`
}

// RotationConfig configures the plate-rotation service client.
type RotationConfig struct {
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	Model       string  `yaml:"model" mapstructure:"model"`
	RPS         float64 `yaml:"rps" mapstructure:"rps"`
	Concurrency int     `yaml:"concurrency" mapstructure:"concurrency"`
	Skip        bool    `yaml:"skip" mapstructure:"skip"`
}

// GridConfig configures grid generation.
type GridConfig struct {
	CellDegrees float64 `yaml:"cell_degrees" mapstructure:"cell_degrees"`
}

// FilterConfig configures the sampling-sufficiency filter.
type FilterConfig struct {
	MinSpecies int `yaml:"min_species" mapstructure:"min_species"`
}

// StoreConfig configures the run store backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// OutputConfig locates the run artifacts.
type OutputConfig struct {
	Cleaned string `yaml:"cleaned" mapstructure:"cleaned"`
	Summary string `yaml:"summary" mapstructure:"summary"`
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
	v.SetEnvPrefix("NOWCLEAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("input.name_field", "REGION")
	v.SetDefault("input.map_id_field", "MAP_ID")
	v.SetDefault("rotation.base_url", "https://gws.gplates.org")
	v.SetDefault("rotation.model", "MULLER2022")
	v.SetDefault("rotation.rps", 2.0)
	v.SetDefault("rotation.concurrency", 3)
	v.SetDefault("grid.cell_degrees", 5.0)
	v.SetDefault("filter.min_species", 5)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "nowclean.db")
	v.SetDefault("output.cleaned", "cleaned_occurrences.csv")
	v.SetDefault("output.summary", "summary.xlsx")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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

// Validate checks configuration consistency for the given command mode.
func (c *Config) Validate(mode string) error {
	var problems []string

	check := func(ok bool, msg string) {
		if !ok {
			problems = append(problems, msg)
		}
	}

	switch mode {
	case "clean":
		check(c.Grid.CellDegrees > 0, "grid.cell_degrees must be > 0")
		check(c.Filter.MinSpecies >= 0, "filter.min_species must be >= 0")
		if !c.Rotation.Skip {
			check(c.Rotation.BaseURL != "", "rotation.base_url is required unless rotation.skip is set")
			check(c.Rotation.RPS > 0, "rotation.rps must be > 0")
			check(c.Rotation.Concurrency > 0, "rotation.concurrency must be > 0")
		}
		fallthrough
	case "store":
		switch c.Store.Driver {
		case "sqlite", "":
			check(c.Store.Path != "", "store.path is required for the sqlite driver")
		case "postgres":
			check(c.Store.DatabaseURL != "", "store.database_url is required for the postgres driver")
		default:
			check(false, "store.driver must be sqlite or postgres")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
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
