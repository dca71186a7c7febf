package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Settings is the analytics core's process configuration: where the
// catalog database lives, where partition objects are stored, and how
// aggressively the scheduler (C11) runs. Precedence follows the
// teacher's own config.yaml layering (internal/config/yaml_config.go):
// environment variables win over a config file, which wins over the
// defaults set here.
type Settings struct {
	CatalogDSN      string        `mapstructure:"catalog_dsn"`
	ObjectStoreKind string        `mapstructure:"object_store_kind"`
	ObjectStoreDir  string        `mapstructure:"object_store_dir"`
	S3Bucket        string        `mapstructure:"s3_bucket"`
	S3Endpoint      string        `mapstructure:"s3_endpoint"`
	ScratchDir      string        `mapstructure:"scratch_dir"`

	SchedulerInterval time.Duration `mapstructure:"scheduler_interval"`
	SafetyLag         time.Duration `mapstructure:"safety_lag"`
	Lookback          time.Duration `mapstructure:"lookback"`
	MergeTargetRows   int64         `mapstructure:"merge_target_rows"`
	Concurrency       int           `mapstructure:"concurrency"`

	EnableCPUTracing bool `mapstructure:"enable_cpu_tracing"`
}

const envPrefix = "MICROMEGAS"

// Load builds Settings from, in ascending precedence: the defaults
// below, an optional TOML file at configPath (skipped silently if
// configPath is empty or the file doesn't exist), then
// MICROMEGAS_*-prefixed environment variables.
func Load(configPath string) (Settings, error) {
	v := viper.New()
	v.SetConfigType("toml")

	v.SetDefault("object_store_kind", "local")
	v.SetDefault("object_store_dir", "./data/objects")
	v.SetDefault("scratch_dir", "./data/scratch")
	v.SetDefault("scheduler_interval", "1m")
	v.SetDefault("safety_lag", "2m")
	v.SetDefault("lookback", "24h")
	v.SetDefault("merge_target_rows", 1_000_000)
	v.SetDefault("concurrency", 4)
	v.SetDefault("enable_cpu_tracing", false)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return Settings{}, fmt.Errorf("config: reading %s: %w", configPath, err)
			}
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, key := range []string{
		"catalog_dsn", "object_store_kind", "object_store_dir", "s3_bucket",
		"s3_endpoint", "scratch_dir", "scheduler_interval", "safety_lag",
		"lookback", "merge_target_rows", "concurrency", "enable_cpu_tracing",
	} {
		if err := v.BindEnv(key); err != nil {
			return Settings{}, fmt.Errorf("config: binding env for %s: %w", key, err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("config: unmarshaling settings: %w", err)
	}
	if s.CatalogDSN == "" {
		return Settings{}, fmt.Errorf("config: catalog_dsn is required (set MICROMEGAS_CATALOG_DSN or catalog_dsn in %s)", configPath)
	}
	return s, nil
}
