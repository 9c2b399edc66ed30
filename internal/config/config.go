// Package config assembles the settings of a calibration run from the
// measurement folder's config.yaml, PWBCALIB_* environment variables and
// command-line flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

const (
	// EnvPrefix prefixes every environment variable.
	EnvPrefix = "PWBCALIB"

	// FileName is looked up in the base path when no file is given.
	FileName = "config.yaml"

	// DateLayout is the accepted measurement date format.
	DateLayout = "2006-01-02"
)

// Config is the validated configuration of one run.
type Config struct {
	BasePath      string  `validate:"required"`
	ReferenceFile string  `validate:"required"`
	ChipName      string  `validate:"required"`
	Date          string  `validate:"required,datetime=2006-01-02"`
	Process       string  `validate:"required"`
	Wavelength    float64 `validate:"required,gt=0"`
	Channel       string  `validate:"required"`
	FolderMatch   string
	FitMethod     string `validate:"omitempty,oneof=qr lm"`
	Workers       int    `validate:"gte=0"`
	Verbose       bool
}

// MeasurementDate parses Date.
func (c Config) MeasurementDate() (time.Time, error) {
	return time.Parse(DateLayout, c.Date)
}

// Device is one entry of the devices list in config.yaml.
type Device struct {
	Wavelength float64 `yaml:"wavelength"`
	Channel    string  `yaml:"channel"`
}

// File mirrors config.yaml.
type File struct {
	Devices     []Device `yaml:"devices"`
	FolderMatch string   `yaml:"folder_match"`
	FitMethod   string   `yaml:"fit_method"`
	Workers     int      `yaml:"workers"`
	Report      struct {
		ChipName string `yaml:"chip_name"`
		Date     string `yaml:"date"`
		Process  string `yaml:"process"`
	} `yaml:"report"`
}

// Env mirrors the PWBCALIB_* environment variables.
type Env struct {
	BasePath      string  `envconfig:"BASE_PATH"`
	ReferenceFile string  `envconfig:"REFERENCE_FILE"`
	ChipName      string  `envconfig:"CHIP_NAME"`
	Date          string  `envconfig:"DATE"`
	Process       string  `envconfig:"PROCESS"`
	Wavelength    float64 `envconfig:"WAVELENGTH"`
	Channel       string  `envconfig:"CHANNEL"`
	FolderMatch   string  `envconfig:"FOLDER_MATCH"`
	FitMethod     string  `envconfig:"FIT_METHOD"`
	Workers       int     `envconfig:"WORKERS"`
}

// Flags holds command-line values; zero values mean "not given".
type Flags struct {
	ConfigFile    string
	BasePath      string
	ReferenceFile string
	ChipName      string
	Date          string
	Process       string
	Wavelength    float64
	Channel       string
	FolderMatch   string
	FitMethod     string
	Workers       int
	Verbose       bool
}

// MissingConfigurationError names every required setting that was not
// provided by any source.
type MissingConfigurationError struct {
	Fields []string
}

func (e *MissingConfigurationError) Error() string {
	return fmt.Sprintf(
		"missing configuration: %s (set them in %s, as %s_* environment variables or with flags)",
		strings.Join(e.Fields, ", "), FileName, EnvPrefix,
	)
}

// Warnings collects non-fatal remarks made while loading.
type Warnings []string

// Load merges the sources and validates the result.
func Load(flags Flags) (Config, Warnings, error) {
	var warn Warnings

	var env Env
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return Config{}, nil, fmt.Errorf("reading %s_* environment: %w", EnvPrefix, err)
	}

	cfg := Config{}
	cfg.BasePath = first(flags.BasePath, env.BasePath)

	path := flags.ConfigFile
	if path == "" && cfg.BasePath != "" {
		path = filepath.Join(cfg.BasePath, FileName)
	}
	if path != "" {
		file, err := ReadFile(path)
		switch {
		case err == nil:
			if len(file.Devices) > 1 {
				warn = append(warn, fmt.Sprintf("%s lists %d devices, only the first is analysed", path, len(file.Devices)))
			}
			cfg.applyFile(file)
		case errors.Is(err, os.ErrNotExist) && flags.ConfigFile == "":
			warn = append(warn, fmt.Sprintf("no %s in %s", FileName, cfg.BasePath))
		default:
			return Config{}, warn, err
		}
	}

	cfg.applyEnv(env)
	cfg.applyFlags(flags)

	if err := cfg.Validate(); err != nil {
		return Config{}, warn, err
	}
	return cfg, warn, nil
}

// ReadFile parses a config.yaml.
func ReadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &f, nil
}

func (c *Config) applyFile(f *File) {
	if len(f.Devices) > 0 {
		c.Wavelength = f.Devices[0].Wavelength
		c.Channel = f.Devices[0].Channel
	}
	c.FolderMatch = f.FolderMatch
	c.FitMethod = f.FitMethod
	c.Workers = f.Workers
	c.ChipName = f.Report.ChipName
	c.Date = f.Report.Date
	c.Process = f.Report.Process
}

func (c *Config) applyEnv(e Env) {
	c.ReferenceFile = first(e.ReferenceFile, c.ReferenceFile)
	c.ChipName = first(e.ChipName, c.ChipName)
	c.Date = first(e.Date, c.Date)
	c.Process = first(e.Process, c.Process)
	c.Channel = first(e.Channel, c.Channel)
	c.FolderMatch = first(e.FolderMatch, c.FolderMatch)
	c.FitMethod = first(e.FitMethod, c.FitMethod)
	if e.Wavelength != 0 {
		c.Wavelength = e.Wavelength
	}
	if e.Workers != 0 {
		c.Workers = e.Workers
	}
}

func (c *Config) applyFlags(f Flags) {
	c.ReferenceFile = first(f.ReferenceFile, c.ReferenceFile)
	c.ChipName = first(f.ChipName, c.ChipName)
	c.Date = first(f.Date, c.Date)
	c.Process = first(f.Process, c.Process)
	c.Channel = first(f.Channel, c.Channel)
	c.FolderMatch = first(f.FolderMatch, c.FolderMatch)
	c.FitMethod = first(f.FitMethod, c.FitMethod)
	if f.Wavelength != 0 {
		c.Wavelength = f.Wavelength
	}
	if f.Workers != 0 {
		c.Workers = f.Workers
	}
	c.Verbose = c.Verbose || f.Verbose
}

// first returns the first non-blank value.
func first(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

var validate = validator.New()

// Validate reports missing required settings as a MissingConfigurationError
// and any other violation as a descriptive error.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	var missing, invalid []string
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			missing = append(missing, fe.Field())
			continue
		}
		invalid = append(invalid, describe(fe))
	}
	sort.Strings(missing)

	if len(missing) > 0 {
		return &MissingConfigurationError{Fields: missing}
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(invalid, "; "))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "datetime":
		return fmt.Sprintf("%s %q is not a YYYY-MM-DD date", fe.Field(), fe.Value())
	case "oneof":
		return fmt.Sprintf("%s %q must be one of %s", fe.Field(), fe.Value(), fe.Param())
	case "gt", "gte":
		return fmt.Sprintf("%s %v must be %s %s", fe.Field(), fe.Value(), fe.Tag(), fe.Param())
	}
	return fmt.Sprintf("%s fails %q", fe.Field(), fe.Tag())
}
