// Package config provides configuration loading, defaults, and validation for
// the CTS broker.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// envPrefix is the environment variable prefix used by all broker settings.
const envPrefix = "CTS"

// Sentinel errors returned (wrapped) by Load.
var (
	ErrConfigFileNotFound = errors.New("config file not found")
	ErrConfigParseError   = errors.New("config parse error")
	ErrConfigValidation   = errors.New("config validation failed")
)

// legacyEnv maps config keys to the environment names the CTS deployment
// scripts already export. They are consulted after the CTS_<KEY> form.
var legacyEnv = map[string]string{
	"jchem.url":     "CTS_JCHEM_SERVER",
	"jchem.efs_url": "CTS_EFS_SERVER",
	"test.url":      "CTS_TEST_SERVER",
	"epi.url":       "CTS_EPI_SERVER",
	"sparc.url":     "CTS_SPARC_SERVER",
	"measured.url":  "CTS_MEASURED_SERVER",
	"redis.addr":    "REDIS_HOSTNAME",
}

// LoadOption customises Load.
type LoadOption func(*loadOptions)

type loadOptions struct {
	configPath string
	envFiles   []string
}

// WithConfigPath reads the YAML file at path before applying env overrides.
func WithConfigPath(path string) LoadOption {
	return func(o *loadOptions) { o.configPath = path }
}

// WithEnvFile loads KEY=VALUE pairs from a dotenv file into the process
// environment before resolving overrides. Missing files are ignored.
// Variables already present in the environment are not overwritten.
func WithEnvFile(paths ...string) LoadOption {
	return func(o *loadOptions) { o.envFiles = append(o.envFiles, paths...) }
}

// newViper builds a Viper instance with YAML file type, the CTS_ env prefix,
// automatic env binding and a "." → "_" key replacer so that "jchem.url"
// resolves to "CTS_JCHEM_URL".
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	bindEnvKeys(v, reflect.TypeOf(Config{}), "")

	v.SetDefault("cache.enabled", true)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("grpc.enabled", true)
	return v
}

// bindEnvKeys registers every leaf key of t with viper so that Unmarshal sees
// env-only values even when no config file defines the key.
func bindEnvKeys(v *viper.Viper, t reflect.Type, prefix string) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := f.Tag.Get("mapstructure")
		if tag == "" || tag == "-" {
			continue
		}
		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}
		if f.Type.Kind() == reflect.Struct && f.Type.PkgPath() != "time" {
			bindEnvKeys(v, f.Type, key)
			continue
		}
		envName := envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if legacy, ok := legacyEnv[key]; ok {
			_ = v.BindEnv(key, envName, legacy)
		} else {
			_ = v.BindEnv(key, envName)
		}
	}
}

func loadEnvFiles(paths []string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("config: failed to load env file %q: %w", p, err)
		}
	}
	return nil
}

// Load builds a Config from an optional YAML file, optional dotenv files and
// CTS_* environment variables, applies defaults for unset fields and
// validates the result.
//
// Environment variable naming convention:
//
//	CTS_<SECTION>_<FIELD>   e.g.  CTS_JCHEM_URL, CTS_REDIS_ADDR
func Load(opts ...LoadOption) (*Config, error) {
	o := &loadOptions{}
	for _, opt := range opts {
		opt(o)
	}

	if err := loadEnvFiles(o.envFiles); err != nil {
		return nil, err
	}

	v := newViper()
	if o.configPath != "" {
		if _, err := os.Stat(o.configPath); err != nil {
			return nil, fmt.Errorf("config: %q: %w", o.configPath, ErrConfigFileNotFound)
		}
		v.SetConfigFile(o.configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: failed to read %q: %v: %w", o.configPath, err, ErrConfigParseError)
		}
	}

	return unmarshalAndFinalize(v)
}

// LoadFromEnv builds a Config entirely from CTS_* environment variables.
func LoadFromEnv() (*Config, error) {
	return Load()
}

// unmarshalAndFinalize unmarshals viper state into a Config struct, applies
// defaults, and validates the result.
func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal configuration: %v: %w", err, ErrConfigParseError)
	}

	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrConfigValidation)
	}

	return cfg, nil
}

// Watch monitors configPath and invokes onChange with the newly parsed Config
// whenever the file is written. Callers apply only the safe subset of changes
// at runtime (the log level). A change that fails to parse or validate is
// reported through onError, when non-nil, and onChange is not called.
//
// Watch is non-blocking; viper owns the watcher goroutine.
func Watch(configPath string, onChange func(*Config), onError func(error)) error {
	v := newViper()
	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("config: failed to read %q: %v: %w", configPath, err, ErrConfigParseError)
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := unmarshalAndFinalize(v)
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
	return nil
}

// MustLoad is a convenience wrapper around Load that panics on any error.
func MustLoad(opts ...LoadOption) *Config {
	cfg, err := Load(opts...)
	if err != nil {
		panic(fmt.Sprintf("config: MustLoad failed: %v", err))
	}
	return cfg
}
