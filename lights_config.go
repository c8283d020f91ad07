package gekko

import (
	"errors"
	"fmt"
	"os"

	"github.com/gekko3d/gekko-lights/lightrt/frame"
	"github.com/gekko3d/gekko-lights/lightrt/lightset"
	"github.com/gekko3d/gekko-lights/lightrt/visibility"
	"gopkg.in/yaml.v3"
)

var ErrInvalidLightsConfig = errors.New("invalid lights config")

// LightsConfig configures the light culling pipeline. Zero fields in a
// YAML file keep their defaults.
type LightsConfig struct {
	DirectionalCapacity int    `yaml:"directional_capacity"`
	PointSpotCapacity   int    `yaml:"point_spot_capacity"`
	DefaultPollEvery    int    `yaml:"default_poll_every"` // frames between visibility checks
	DirectionalPolicy   string `yaml:"directional_policy"` // always, frustum
	StatsLogInterval    int    `yaml:"stats_log_interval"` // frames between stats lines, 0 disables
	DebugChecks         bool   `yaml:"debug_checks"`       // verify set invariants after every change
}

func DefaultLightsConfig() LightsConfig {
	return LightsConfig{
		DirectionalCapacity: lightset.DefaultDirectionalCapacity,
		PointSpotCapacity:   lightset.DefaultPointSpotCapacity,
		DefaultPollEvery:    int(frame.Every1),
		DirectionalPolicy:   visibility.DirectionalAlwaysVisible.String(),
		StatsLogInterval:    60,
	}
}

// LoadLightsConfig reads a YAML file over the defaults and validates it.
func LoadLightsConfig(path string) (LightsConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return LightsConfig{}, fmt.Errorf("failed to read lights config: %w", err)
	}
	return ParseLightsConfig(data)
}

func ParseLightsConfig(data []byte) (LightsConfig, error) {
	cfg := DefaultLightsConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return LightsConfig{}, fmt.Errorf("failed to parse lights config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return LightsConfig{}, err
	}
	return cfg, nil
}

func (c LightsConfig) Validate() error {
	if err := c.setConfig().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidLightsConfig, err)
	}
	if _, err := frame.ParseCadence(c.DefaultPollEvery); err != nil {
		return fmt.Errorf("%w: default_poll_every: %w", ErrInvalidLightsConfig, err)
	}
	if _, err := visibility.ParseDirectionalPolicy(c.DirectionalPolicy); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidLightsConfig, err)
	}
	if c.StatsLogInterval < 0 {
		return fmt.Errorf("%w: stats_log_interval %d is negative", ErrInvalidLightsConfig, c.StatsLogInterval)
	}
	return nil
}

func (c LightsConfig) setConfig() lightset.Config {
	return lightset.Config{
		DirectionalCapacity: c.DirectionalCapacity,
		PointSpotCapacity:   c.PointSpotCapacity,
		VerifyInvariants:    c.DebugChecks,
	}
}

// cadence and policy assume a validated config.
func (c LightsConfig) cadence() frame.Cadence {
	return frame.Cadence(c.DefaultPollEvery)
}

func (c LightsConfig) policy() visibility.DirectionalPolicy {
	p, _ := visibility.ParseDirectionalPolicy(c.DirectionalPolicy)
	return p
}
