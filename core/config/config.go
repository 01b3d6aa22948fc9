package config

import (
	_ "embed"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/asikorin/kara/core/logger"
	"github.com/asikorin/kara/core/pipeline"
	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"
)

var (
	//go:embed default/config.yaml
	defaultConfigData []byte
)

const (
	ConfigurationName = "config.yaml"

	// EnvPrefix prefixes the environment variables overriding the file.
	EnvPrefix = "kara"
)

const (
	ColorAlways = "always"
	ColorAuto   = "auto"
	ColorNever  = "never"
)

type Configuration struct {
	configFs  afero.Fs
	configDir string

	RedirectPolicy   string `json:"redirect_policy" envconfig:"REDIRECT_POLICY" validate:"redirect_policy"`
	RegistryCapacity int    `json:"registry_capacity" envconfig:"REGISTRY_CAPACITY" validate:"gte=1"`
	Color            string `json:"color" envconfig:"COLOR" validate:"oneof=auto always never"`
	LogFile          string `json:"log_file" envconfig:"LOG_FILE"`
	LogLevel         string `json:"log_level" envconfig:"LOG_LEVEL" validate:"log_level"`
}

// Validate the configuration for basic semantic errors.
func (c *Configuration) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		return name
	})
	validate.RegisterValidation("redirect_policy", oneOf(pipeline.RedirectPolicies))
	validate.RegisterValidation("log_level", oneOf(logger.Levels))

	return validate.Struct(c)
}

// oneOf accepts string fields holding one of names.
func oneOf(names []string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		for _, name := range names {
			if value == name {
				return true
			}
		}
		return false
	}
}

// LogPath returns the debug log location, or "" when logging is off.
// Relative paths are resolved against the configuration directory.
func (c *Configuration) LogPath() string {
	if c.LogFile == "" || filepath.IsAbs(c.LogFile) || c.configDir == "" {
		return c.LogFile
	}
	return filepath.Join(c.configDir, c.LogFile)
}

func (c *Configuration) fs() afero.Fs {
	if c.configFs == nil {
		return afero.NewOsFs()
	}
	return c.configFs
}

// OpenLog opens the debug log in an append only state.
func (c *Configuration) OpenLog() (afero.File, error) {
	return c.fs().OpenFile(c.LogPath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
}

// ShouldColor decides whether output is colorized given whether it goes to
// a terminal.
func (c *Configuration) ShouldColor(isTerminal bool) bool {
	switch c.Color {
	case ColorNever:
		return false
	case ColorAlways:
		return true
	default:
		return isTerminal
	}
}

// applyEnv overrides fields with KARA_* environment variables.
func (c *Configuration) applyEnv() error {
	return envconfig.Process(EnvPrefix, c)
}

func defaultConfig() *Configuration {
	var out Configuration
	if err := yaml.UnmarshalStrict(defaultConfigData, &out); err != nil {
		panic(err)
	}
	return &out
}
