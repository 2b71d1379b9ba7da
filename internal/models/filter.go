package models

import (
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// FilterConfiguration holds the parameters of one detection purpose
// (microsaccades inside fixations, or regular saccades between them).
// Times are in milliseconds, amplitudes in degrees and velocities in
// degrees per second. Optional bounds only apply when their Use flag is set.
type FilterConfiguration struct {
	FromInputFile        bool    `mapstructure:"from_input_file" yaml:"from_input_file" json:"fromInputFile"`
	VelocityThreshold    float64 `mapstructure:"velocity_threshold" yaml:"velocity_threshold" json:"velocityThreshold"`
	MinDuration          float64 `mapstructure:"min_duration" yaml:"min_duration" json:"minDuration"`
	MaxDuration          float64 `mapstructure:"max_duration" yaml:"max_duration" json:"maxDuration"`
	Binocular            bool    `mapstructure:"binocular" yaml:"binocular" json:"binocular"`
	MinAmplitude         float64 `mapstructure:"min_amplitude" yaml:"min_amplitude" json:"minAmplitude"`
	MaxAmplitude         float64 `mapstructure:"max_amplitude" yaml:"max_amplitude" json:"maxAmplitude"`
	MinVelocity          float64 `mapstructure:"min_velocity" yaml:"min_velocity" json:"minVelocity"`
	MaxVelocity          float64 `mapstructure:"max_velocity" yaml:"max_velocity" json:"maxVelocity"`
	MinIntersaccInterval float64 `mapstructure:"min_intersacc_interval" yaml:"min_intersacc_interval" json:"minIntersaccInterval"`
	IgnoreAtStart        float64 `mapstructure:"ignore_at_start" yaml:"ignore_at_start" json:"ignoreAtStart"`
	IgnoreAtEnd          float64 `mapstructure:"ignore_at_end" yaml:"ignore_at_end" json:"ignoreAtEnd"`
	VelocityWindowSize   int     `mapstructure:"velocity_window_size" yaml:"velocity_window_size" json:"velocityWindowSize"`
	IgnoreBeforeMissing  float64 `mapstructure:"ignore_before_missing_data" yaml:"ignore_before_missing_data" json:"ignoreBeforeMissingData"`
	IgnoreAfterMissing   float64 `mapstructure:"ignore_after_missing_data" yaml:"ignore_after_missing_data" json:"ignoreAfterMissingData"`

	UseMaxDuration          bool `mapstructure:"use_max_duration" yaml:"use_max_duration" json:"useMaxDuration"`
	UseMinAmplitude         bool `mapstructure:"use_min_amplitude" yaml:"use_min_amplitude" json:"useMinAmplitude"`
	UseMaxAmplitude         bool `mapstructure:"use_max_amplitude" yaml:"use_max_amplitude" json:"useMaxAmplitude"`
	UseMinVelocity          bool `mapstructure:"use_min_velocity" yaml:"use_min_velocity" json:"useMinVelocity"`
	UseMaxVelocity          bool `mapstructure:"use_max_velocity" yaml:"use_max_velocity" json:"useMaxVelocity"`
	UseMinIntersaccInterval bool `mapstructure:"use_min_intersacc_interval" yaml:"use_min_intersacc_interval" json:"useMinIntersaccInterval"`
	UseIgnoreAtStart        bool `mapstructure:"use_ignore_at_start" yaml:"use_ignore_at_start" json:"useIgnoreAtStart"`
	UseIgnoreAtEnd          bool `mapstructure:"use_ignore_at_end" yaml:"use_ignore_at_end" json:"useIgnoreAtEnd"`
	UseIgnoreBeforeMissing  bool `mapstructure:"use_ignore_before_missing_data" yaml:"use_ignore_before_missing_data" json:"useIgnoreBeforeMissingData"`
	UseIgnoreAfterMissing   bool `mapstructure:"use_ignore_after_missing_data" yaml:"use_ignore_after_missing_data" json:"useIgnoreAfterMissingData"`
}

// DefaultMicrosaccadeConfiguration returns the settings used to find
// microsaccades inside fixations.
func DefaultMicrosaccadeConfiguration() FilterConfiguration {
	return FilterConfiguration{
		FromInputFile:        true,
		VelocityThreshold:    5,
		MinDuration:          6,
		Binocular:            true,
		MaxDuration:          100,
		MaxAmplitude:         1,
		MinAmplitude:         0,
		MinIntersaccInterval: 20,
		MinVelocity:          0,
		MaxVelocity:          300,
		IgnoreAtStart:        20,
		IgnoreAtEnd:          0,
		VelocityWindowSize:   5,
		IgnoreBeforeMissing:  200,
		IgnoreAfterMissing:   200,

		UseMaxAmplitude:         true,
		UseMinIntersaccInterval: true,
		UseIgnoreAtStart:        true,
	}
}

// DefaultSaccadeConfiguration returns the settings used to find regular
// saccades that delimit fixations.
func DefaultSaccadeConfiguration() FilterConfiguration {
	return FilterConfiguration{
		FromInputFile:        true,
		VelocityThreshold:    8,
		MinDuration:          3,
		Binocular:            false,
		MaxDuration:          100,
		MaxAmplitude:         100000,
		MinAmplitude:         1,
		MinIntersaccInterval: 50,
		MinVelocity:          0,
		MaxVelocity:          1000,
		VelocityWindowSize:   9,

		UseMinAmplitude:         true,
		UseMinIntersaccInterval: true,
	}
}

// TimeToSamples converts milliseconds into a sample count, rounding up.
func TimeToSamples(ms, frequency float64) int {
	return int(math.Ceil(ms / 1000.0 * frequency))
}

// SamplesToTime converts a sample count into milliseconds.
func SamplesToTime(samples int, frequency float64) float64 {
	return float64(samples) * 1000.0 / frequency
}

// Margins are the exclusion windows of a configuration converted to samples.
// Disabled windows are zero.
type Margins struct {
	AtStart       int
	AtEnd         int
	BeforeMissing int
	AfterMissing  int
	Intersacc     int
}

// Margins converts the enabled exclusion windows to samples at the given frequency.
func (c FilterConfiguration) Margins(frequency float64) Margins {
	var m Margins
	if c.UseIgnoreAtStart {
		m.AtStart = TimeToSamples(c.IgnoreAtStart, frequency)
	}
	if c.UseIgnoreAtEnd {
		m.AtEnd = TimeToSamples(c.IgnoreAtEnd, frequency)
	}
	if c.UseIgnoreBeforeMissing {
		m.BeforeMissing = TimeToSamples(c.IgnoreBeforeMissing, frequency)
	}
	if c.UseIgnoreAfterMissing {
		m.AfterMissing = TimeToSamples(c.IgnoreAfterMissing, frequency)
	}
	if c.UseMinIntersaccInterval {
		m.Intersacc = TimeToSamples(c.MinIntersaccInterval, frequency)
	}
	return m
}

var ErrInvalidConfiguration = errors.New("invalid filter configuration")

// Validate checks the parameters that detection cannot recover from.
func (c FilterConfiguration) Validate() error {
	if c.VelocityWindowSize < 3 || c.VelocityWindowSize%2 == 0 {
		return fmt.Errorf("%w: velocity window size must be odd and at least 3, got %d", ErrInvalidConfiguration, c.VelocityWindowSize)
	}
	if c.VelocityThreshold <= 0 {
		return fmt.Errorf("%w: velocity threshold must be positive", ErrInvalidConfiguration)
	}
	if c.MinDuration < 0 || c.MaxDuration < 0 || c.MinIntersaccInterval < 0 ||
		c.IgnoreAtStart < 0 || c.IgnoreAtEnd < 0 || c.IgnoreBeforeMissing < 0 || c.IgnoreAfterMissing < 0 {
		return fmt.Errorf("%w: times must not be negative", ErrInvalidConfiguration)
	}
	return nil
}

// FilterProfiles is a named set of filter configurations, e.g. one per lab setup.
type FilterProfiles struct {
	Profiles map[string]FilterConfiguration `yaml:"profiles"`
}

// LoadFilterProfiles reads a YAML profiles file. Every profile starts from
// the microsaccade defaults so a file only has to list what it changes.
func LoadFilterProfiles(path string) (*FilterProfiles, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profiles file: %w", err)
	}

	var raw struct {
		Profiles map[string]yaml.Node `yaml:"profiles"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal profiles YAML: %w", err)
	}

	profiles := &FilterProfiles{Profiles: make(map[string]FilterConfiguration, len(raw.Profiles))}
	for name, node := range raw.Profiles {
		cfg := DefaultMicrosaccadeConfiguration()
		if err := node.Decode(&cfg); err != nil {
			return nil, fmt.Errorf("profile %q: %w", name, err)
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("profile %q: %w", name, err)
		}
		profiles.Profiles[name] = cfg
	}
	return profiles, nil
}

// Get returns the named profile.
func (p *FilterProfiles) Get(name string) (FilterConfiguration, bool) {
	cfg, ok := p.Profiles[name]
	return cfg, ok
}
