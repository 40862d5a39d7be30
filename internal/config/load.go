package config

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/runbookhq/opsagent/internal/errors"
)

// envPrefix namespaces opsagent environment variables.
const envPrefix = "OPSAGENT"

// configFileName is the base name of the YAML config file.
const configFileName = "config"

// dotEnvPaths are searched in order for a .env file; the first hit wins.
var dotEnvPaths = []string{ //nolint:gochecknoglobals // Search order, not state
	".env",
	"../.env",
}

// newViperInstance creates a Viper instance with the standard opsagent
// setup: defaults, OPSAGENT_ env prefix, and key replacer so that
// OPSAGENT_LLM_MODEL maps to llm.model.
func newViperInstance() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// setDefaults registers DefaultConfig values as the base viper layer.
func setDefaults(v *viper.Viper) {
	def := DefaultConfig()
	v.SetDefault("llm.model", def.LLM.Model)
	v.SetDefault("llm.base_url", def.LLM.BaseURL)
	v.SetDefault("llm.embedding_model", def.LLM.EmbeddingModel)
	v.SetDefault("llm.timeout", def.LLM.Timeout)
	v.SetDefault("store.host", def.Store.Host)
	v.SetDefault("store.port", def.Store.Port)
	v.SetDefault("store.index", def.Store.Index)
	v.SetDefault("store.key_prefix", def.Store.KeyPrefix)
	v.SetDefault("agent.framework", def.Agent.Framework)
	v.SetDefault("agent.max_tool_iterations", def.Agent.MaxToolIterations)
	v.SetDefault("agent.retrieve_results", def.Agent.RetrieveResults)
	v.SetDefault("executor.policy", def.Executor.Policy)
	v.SetDefault("executor.timeout", def.Executor.Timeout)
	v.SetDefault("executor.environment", def.Executor.Environment)
	v.SetDefault("executor.cloud_region", def.Executor.CloudRegion)
	v.SetDefault("executor.cloud_profile", def.Executor.CloudProfile)
	v.SetDefault("server.host", def.Server.Host)
	v.SetDefault("server.port", def.Server.Port)
	v.SetDefault("server.shutdown_timeout", def.Server.ShutdownTimeout)
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.format", def.Log.Format)
	v.SetDefault("log.file", def.Log.File)
}

// viperDecoderOption configures the mapstructure decoder used when
// unmarshaling into Config, enabling duration strings like "30s".
func viperDecoderOption() viper.DecoderConfigOption {
	return viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
}

// isConfigNotFoundError returns true if err is viper's config-file-not-found
// error, which is expected and non-fatal.
func isConfigNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	var notFound viper.ConfigFileNotFoundError
	return stderrors.As(err, &notFound)
}

// LoadDotEnv loads the first .env file found into the process environment.
// Existing environment variables are never overwritten. Returns the loaded
// path, or empty string when no file was found.
func LoadDotEnv() string {
	for _, p := range dotEnvPaths {
		if err := godotenv.Load(p); err == nil {
			return p
		}
	}
	return ""
}

// Load reads configuration from all available sources with proper
// precedence. A missing config file is not an error; an unreadable or
// invalid one is.
//
// The LLM API key additionally falls back to the conventional
// OPENAI_API_KEY variable so operators do not have to duplicate it.
func Load(ctx context.Context) (*Config, error) {
	LoadDotEnv()

	v := newViperInstance()
	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	cfg, err := unmarshalAndValidate(v)
	if err != nil {
		return nil, err
	}

	logger := zerolog.Ctx(ctx).With().Str("component", "config").Logger()
	logger.Debug().
		Str("llm.model", cfg.LLM.Model).
		Str("store.index", cfg.Store.Index).
		Str("agent.framework", cfg.Agent.Framework).
		Str("executor.policy", cfg.Executor.Policy).
		Msg("configuration loaded")

	return cfg, nil
}

// LoadWithOverrides is Load plus explicit key overrides from CLI flags.
// Overrides take precedence over every other source.
func LoadWithOverrides(ctx context.Context, overrides map[string]any) (*Config, error) {
	LoadDotEnv()

	v := newViperInstance()
	if err := readConfigFile(v); err != nil {
		return nil, err
	}
	for key, value := range overrides {
		v.Set(key, value)
	}

	cfg, err := unmarshalAndValidate(v)
	if err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Debug().
		Int("overrides", len(overrides)).
		Msg("configuration loaded with overrides")

	return cfg, nil
}

// readConfigFile looks for config.yaml in the working directory first,
// then in ~/.opsagent/. Missing files are skipped silently.
func readConfigFile(v *viper.Viper) error {
	v.SetConfigName(configFileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".opsagent"))
	}

	if err := v.ReadInConfig(); err != nil && !isConfigNotFoundError(err) {
		return errors.Wrap(err, "failed to read config file")
	}
	return nil
}

// unmarshalAndValidate unmarshals viper state into Config, applies the
// OPENAI_API_KEY fallback, and validates the result.
func unmarshalAndValidate(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg, viperDecoderOption()); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	if err := Validate(&cfg); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return &cfg, nil
}
