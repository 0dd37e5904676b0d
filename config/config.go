package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const EnvPrefix = "BREADS"

type Config struct {
	Datadump Datadump `mapstructure:"datadump"`
	Datastax Datastax `mapstructure:"datastax"`
	Store    Store    `mapstructure:"store"`
	Log      Log      `mapstructure:"log"`
	Tracing  Tracing  `mapstructure:"tracing"`
}

type Datadump struct {
	Location Locations `mapstructure:"location"`
}

// Locations are the dump files read by the import commands.
type Locations struct {
	Author string `mapstructure:"author"`
	Works  string `mapstructure:"works"`
}

type Datastax struct {
	Astra Astra `mapstructure:"astra"`
}

type Astra struct {
	// zip archive holding ca.crt, cert and key for the store transport
	SecureConnectBundle string `mapstructure:"secure-connect-bundle"`
}

type Store struct {
	Driver       string `mapstructure:"driver" validate:"required,oneof=sqlite postgres badger"`
	DatabaseFile string `mapstructure:"database-file" validate:"required_if=Driver sqlite"`
	DSN          string `mapstructure:"dsn"`
	Directory    string `mapstructure:"directory" validate:"required_if=Driver badger"`
}

type Log struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=human json"`
}

type Tracing struct {
	Endpoint string `mapstructure:"endpoint"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("datadump.location.author", "")
	v.SetDefault("datadump.location.works", "")
	v.SetDefault("datastax.astra.secure-connect-bundle", "")

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database-file", "breads.sqlite")
	v.SetDefault("store.dsn", "")
	v.SetDefault("store.directory", "breads.badger")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "human")

	v.SetDefault("tracing.endpoint", "")
}

// Load builds the configuration from defaults, an optional yaml file and
// BREADS_* environment variables, in increasing order of precedence.
// A .env file in the working directory is loaded first but never overrides
// variables already set.
func Load(file string) (*Config, error) {
	_ = godotenv.Load(".env")

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", file, err)
		}
	} else {
		v.SetConfigName("breads")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")

		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config: %w", err)
			}
		}
	}

	cfg := &Config{}
	hooks := viper.DecodeHook(expandHomeHook())
	if err := v.Unmarshal(cfg, hooks); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())

	if err := v.Struct(c); err != nil {
		var invalid validator.ValidationErrors
		if errors.As(err, &invalid) {
			fields := make([]string, len(invalid))
			for i, fe := range invalid {
				fields[i] = fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag())
			}
			return fmt.Errorf("invalid config: %s", strings.Join(fields, ", "))
		}
		return err
	}

	return nil
}

func expandHomeHook() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if from.Kind() != reflect.String || to.Kind() != reflect.String {
			return data, nil
		}

		value := data.(string)
		if value != "~" && !strings.HasPrefix(value, "~/") {
			return data, nil
		}

		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}

		return filepath.Join(home, strings.TrimPrefix(value, "~")), nil
	}
}
