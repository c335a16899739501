// Package scenario computes land-value-tax policy shifts over joined parcel tables.
package scenario

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rotisserie/eris"
)

// Config parameterizes a single LVT run. Exactly one of three modes applies:
// revenue-neutral (land rate solved so total revenue is preserved), explicit
// target revenue (land rate solved for that total), or an explicit land rate.
type Config struct {
	RevenueNeutral  bool     `yaml:"revenue_neutral" json:"revenue_neutral"`
	LandRate        float64  `yaml:"land_rate" json:"land_rate"`
	ImprovementRate float64  `yaml:"improvement_rate" json:"improvement_rate"`
	TargetRevenue   float64  `yaml:"target_revenue" json:"target_revenue"`
	GroupBy         []string `yaml:"group_by" json:"group_by"`
}

// InvalidScenarioConfigError reports a malformed or contradictory Config.
type InvalidScenarioConfigError struct {
	Reason string
}

func (e *InvalidScenarioConfigError) Error() string {
	return fmt.Sprintf("scenario: invalid config: %s", e.Reason)
}

// InfeasibleScenarioError reports that no valid land rate satisfies the
// revenue constraint.
type InfeasibleScenarioError struct {
	Reason string
}

func (e *InfeasibleScenarioError) Error() string {
	return fmt.Sprintf("scenario: infeasible: %s", e.Reason)
}

// Validate checks the config for malformed or contradictory values.
func (c Config) Validate() error {
	if c.LandRate < 0 {
		return &InvalidScenarioConfigError{Reason: fmt.Sprintf("negative land_rate %f", c.LandRate)}
	}
	if c.ImprovementRate < 0 {
		return &InvalidScenarioConfigError{Reason: fmt.Sprintf("negative improvement_rate %f", c.ImprovementRate)}
	}
	if c.TargetRevenue < 0 {
		return &InvalidScenarioConfigError{Reason: fmt.Sprintf("negative target_revenue %f", c.TargetRevenue)}
	}
	if c.RevenueNeutral && c.LandRate > 0 {
		return &InvalidScenarioConfigError{Reason: "revenue_neutral and land_rate are mutually exclusive"}
	}
	if c.RevenueNeutral && c.TargetRevenue > 0 {
		return &InvalidScenarioConfigError{Reason: "target_revenue is ignored when revenue_neutral; set one or the other"}
	}
	if !c.RevenueNeutral && c.LandRate == 0 && c.TargetRevenue == 0 {
		return &InvalidScenarioConfigError{Reason: "one of revenue_neutral, land_rate, or target_revenue is required"}
	}
	if c.LandRate > 0 && c.TargetRevenue > 0 {
		return &InvalidScenarioConfigError{Reason: "land_rate and target_revenue are mutually exclusive"}
	}
	return nil
}

// LoadConfig reads a scenario config from a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "scenario: read config %s", path)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, eris.Wrapf(err, "scenario: parse config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
