package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/YashMmodi-7504/National-Logistics-Control-Tower-sub000/pkg/analytics"
)

// DeploymentProfile is a jurisdiction-specific operational profile: snapshot
// cadence, rollup schedule, SLA thresholds, alert rules, and the regulator
// snapshot allow-list.
type DeploymentProfile struct {
	Name       string                `yaml:"name" json:"name"`
	Code       string                `yaml:"code" json:"code"`
	Snapshots  SnapshotConfig        `yaml:"snapshots" json:"snapshots"`
	SLA        SLAConfig             `yaml:"sla" json:"sla"`
	AlertRules []analytics.AlertRule `yaml:"alert_rules" json:"alert_rules"`
	Regulator  RegulatorConfig       `yaml:"regulator" json:"regulator"`
}

// SnapshotConfig controls the snapshot scheduler.
type SnapshotConfig struct {
	IntervalMinutes int      `yaml:"interval_minutes" json:"interval_minutes"`
	RollupHour      int      `yaml:"rollup_hour" json:"rollup_hour"`
	Timezone        string   `yaml:"timezone" json:"timezone"`
	Families        []string `yaml:"families" json:"families"`
}

// SLAConfig holds analytics thresholds.
type SLAConfig struct {
	CorridorAlertThreshold float64 `yaml:"corridor_alert_threshold" json:"corridor_alert_threshold"`
	DelayedAckUtilization  float64 `yaml:"delayed_ack_utilization" json:"delayed_ack_utilization"`
}

// RegulatorConfig scopes external auditor access.
type RegulatorConfig struct {
	SnapshotAllowList []string `yaml:"snapshot_allow_list,omitempty" json:"snapshot_allow_list,omitempty"`
	AllowAllSnapshots bool     `yaml:"allow_all_snapshots" json:"allow_all_snapshots"`
	TokenTTLHours     int      `yaml:"token_ttl_hours" json:"token_ttl_hours"`
}

// Interval returns the snapshot cadence as a duration.
func (c SnapshotConfig) Interval() time.Duration {
	if c.IntervalMinutes <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(c.IntervalMinutes) * time.Minute
}

// Location resolves the profile timezone. The timezone must be explicit;
// falling back to the process-local zone would make the daily rollup drift
// between deployments.
func (c SnapshotConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return nil, fmt.Errorf("profile timezone is required")
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("resolve profile timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// LoadProfile loads a deployment profile YAML by jurisdiction code. It
// searches the profiles directory for profile_<code>.yaml.
func LoadProfile(profilesDir, code string) (*DeploymentProfile, error) {
	code = strings.ToLower(code)
	path := filepath.Join(profilesDir, fmt.Sprintf("profile_%s.yaml", code))

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load profile %q: %w", code, err)
	}

	var profile DeploymentProfile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("parse profile %q: %w", code, err)
	}

	if profile.Code == "" {
		profile.Code = code
	}
	if err := profile.validate(); err != nil {
		return nil, fmt.Errorf("profile %q: %w", code, err)
	}
	return &profile, nil
}

// LoadAllProfiles loads all profile_*.yaml files from the profiles directory.
func LoadAllProfiles(profilesDir string) (map[string]*DeploymentProfile, error) {
	matches, err := filepath.Glob(filepath.Join(profilesDir, "profile_*.yaml"))
	if err != nil {
		return nil, err
	}

	profiles := make(map[string]*DeploymentProfile, len(matches))
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}

		var profile DeploymentProfile
		if err := yaml.Unmarshal(data, &profile); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}

		if profile.Code == "" {
			// Extract code from filename: profile_in.yaml -> in
			base := filepath.Base(path)
			profile.Code = strings.TrimSuffix(strings.TrimPrefix(base, "profile_"), ".yaml")
		}
		if err := profile.validate(); err != nil {
			return nil, fmt.Errorf("profile %s: %w", path, err)
		}

		profiles[profile.Code] = &profile
	}

	return profiles, nil
}

func (p *DeploymentProfile) validate() error {
	if p.Snapshots.RollupHour < 0 || p.Snapshots.RollupHour > 23 {
		return fmt.Errorf("rollup_hour %d out of range", p.Snapshots.RollupHour)
	}
	if _, err := p.Snapshots.Location(); err != nil {
		return err
	}
	if p.SLA.CorridorAlertThreshold < 0 || p.SLA.CorridorAlertThreshold > 1 {
		return fmt.Errorf("corridor_alert_threshold %v out of range", p.SLA.CorridorAlertThreshold)
	}
	return nil
}
