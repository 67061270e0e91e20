package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/hydrotools/lfcoords/export"
	"github.com/hydrotools/lfcoords/flowdir"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Units of the upstream area rasters
const (
	UnitsKM2 = "km2"
	UnitsM2  = "m2"
)

// Config is the run configuration. It is not modified after Load.
type Config struct {
	Input         InputConfig      `yaml:"input"`
	OutputFolder  string           `yaml:"output_folder"`
	OutputFormats []string         `yaml:"output_formats"`
	Conditions    ConditionsConfig `yaml:"conditions"`
	Reservoirs    bool             `yaml:"reservoirs"`

	Kafka *KafkaConfig `yaml:"-"`
}

// InputConfig locates the station table and the four rasters
type InputConfig struct {
	Points         string `yaml:"points"`
	LDDFine        string `yaml:"ldd_fine"`
	UpstreamFine   string `yaml:"upstream_fine"`
	LDDCoarse      string `yaml:"ldd_coarse"`
	UpstreamCoarse string `yaml:"upstream_coarse"`

	LDDFineType         string `yaml:"ldd_fine_type"`
	LDDCoarseType       string `yaml:"ldd_coarse_type"`
	UpstreamFineUnits   string `yaml:"upstream_fine_units"`
	UpstreamCoarseUnits string `yaml:"upstream_coarse_units"`
}

// ConditionsConfig holds the coarse-grid thresholds
type ConditionsConfig struct {
	MinArea  float64 `yaml:"min_area"`  // km2
	AbsError float64 `yaml:"abs_error"` // km2
	PctError float64 `yaml:"pct_error"` // %
}

// Default returns the configuration used for anything the file leaves out
func Default() Config {
	return Config{
		OutputFolder:  "./shapefiles",
		OutputFormats: []string{export.FormatShapefile},
		Conditions: ConditionsConfig{
			MinArea:  10,
			AbsError: 50,
			PctError: 1,
		},
		Input: InputConfig{
			LDDFineType:         string(flowdir.D8),
			LDDCoarseType:       string(flowdir.LDD),
			UpstreamFineUnits:   UnitsKM2,
			UpstreamCoarseUnits: UnitsM2,
		},
	}
}

// Load reads the YAML file at path, applies environment overrides (optionally
// from .env) and validates the result. Relative input paths are resolved
// against the directory of the file.
func Load(path string) (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	cfg.resolve(filepath.Dir(path))

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.Kafka = NewKafkaConfig()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes a YAML document over the defaults
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) resolve(dir string) {
	for _, p := range []*string{
		&c.Input.Points,
		&c.Input.LDDFine,
		&c.Input.UpstreamFine,
		&c.Input.LDDCoarse,
		&c.Input.UpstreamCoarse,
	} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
	if c.OutputFolder != "" && !filepath.IsAbs(c.OutputFolder) {
		c.OutputFolder = filepath.Join(dir, c.OutputFolder)
	}
}

func (c *Config) applyEnv() error {
	c.OutputFolder = getEnv("LFCOORDS_OUTPUT_FOLDER", c.OutputFolder)

	for key, dst := range map[string]*float64{
		"LFCOORDS_MIN_AREA":  &c.Conditions.MinArea,
		"LFCOORDS_ABS_ERROR": &c.Conditions.AbsError,
		"LFCOORDS_PCT_ERROR": &c.Conditions.PctError,
	} {
		v, err := getEnvFloat(key, *dst)
		if err != nil {
			return err
		}
		*dst = v
	}

	if v := strings.TrimSpace(os.Getenv("LFCOORDS_RESERVOIRS")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid LFCOORDS_RESERVOIRS: %w", err)
		}
		c.Reservoirs = b
	}
	return nil
}

// Validate checks the inputs and thresholds
func (c *Config) Validate() error {
	var errs []error
	for _, req := range []struct{ key, value string }{
		{"input.points", c.Input.Points},
		{"input.ldd_fine", c.Input.LDDFine},
		{"input.upstream_fine", c.Input.UpstreamFine},
		{"input.ldd_coarse", c.Input.LDDCoarse},
		{"input.upstream_coarse", c.Input.UpstreamCoarse},
		{"output_folder", c.OutputFolder},
	} {
		if req.value == "" {
			errs = append(errs, fmt.Errorf("%s is required", req.key))
		}
	}

	for _, t := range []string{c.Input.LDDFineType, c.Input.LDDCoarseType} {
		if _, err := flowdir.ParseType(t); err != nil {
			errs = append(errs, err)
		}
	}
	for _, u := range []string{c.Input.UpstreamFineUnits, c.Input.UpstreamCoarseUnits} {
		if u != UnitsKM2 && u != UnitsM2 {
			errs = append(errs, fmt.Errorf("unknown upstream units %q (expected %s or %s)", u, UnitsKM2, UnitsM2))
		}
	}
	for _, f := range c.OutputFormats {
		if !slices.Contains(export.Formats, f) {
			errs = append(errs, fmt.Errorf("unknown output format %q (expected one of %v)", f, export.Formats))
		}
	}

	if c.Conditions.MinArea < 0 || c.Conditions.AbsError < 0 || c.Conditions.PctError < 0 {
		errs = append(errs, errors.New("conditions must not be negative"))
	}
	return errors.Join(errs...)
}

// FineType returns the flow direction encoding of the fine LDD
func (c *Config) FineType() flowdir.Type {
	t, _ := flowdir.ParseType(c.Input.LDDFineType)
	return t
}

// CoarseType returns the flow direction encoding of the coarse LDD
func (c *Config) CoarseType() flowdir.Type {
	t, _ := flowdir.ParseType(c.Input.LDDCoarseType)
	return t
}

// UnitFactor converts upstream raster values to km2
func UnitFactor(units string) float64 {
	if units == UnitsM2 {
		return 1e-6
	}
	return 1
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}
