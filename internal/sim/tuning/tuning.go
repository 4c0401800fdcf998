package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	// DeployDuration is the timer a team starts with on entering Deployed.
	// It moves to Cooldown after DeployDuration+1 turn ends.
	DeployDuration       int  `yaml:"deploy_duration"`
	MaxTeamsPerNode      int  `yaml:"max_teams_per_node"`
	PickerMax            int  `yaml:"picker_max"`
	PreferredBiasPercent int  `yaml:"preferred_bias_percent"`
	StrictInvariants     bool `yaml:"strict_invariants"`

	TurnIntervalMs     int   `yaml:"turn_interval_ms"`
	SnapshotEveryTurns int   `yaml:"snapshot_every_turns"`
	Seed               int64 `yaml:"seed"`

	Policy PolicyTuning `yaml:"policy"`
}

// PolicyTuning drives the scripted actors in the campaign runner.
type PolicyTuning struct {
	DeployChancePercent     int `yaml:"deploy_chance_percent"`
	NeutraliseChancePercent int `yaml:"neutralise_chance_percent"`
	RecallSecurityThreshold int `yaml:"recall_security_threshold"`
}

func Defaults() Tuning {
	return Tuning{
		ProtocolVersion:      "1.0",
		DeployDuration:       5,
		MaxTeamsPerNode:      3,
		PickerMax:            3,
		PreferredBiasPercent: 50,
		StrictInvariants:     true,
		TurnIntervalMs:       1000,
		SnapshotEveryTurns:   25,
		Seed:                 1337,
		Policy: PolicyTuning{
			DeployChancePercent:     60,
			NeutraliseChancePercent: 25,
			RecallSecurityThreshold: 3,
		},
	}
}

// Load reads path over Defaults so a partial file only overrides what it names.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	if t.DeployDuration < 0 {
		return fmt.Errorf("deploy_duration must be >= 0, got %d", t.DeployDuration)
	}
	if t.MaxTeamsPerNode <= 0 {
		return fmt.Errorf("max_teams_per_node must be > 0, got %d", t.MaxTeamsPerNode)
	}
	if t.PickerMax <= 0 {
		return fmt.Errorf("picker_max must be > 0, got %d", t.PickerMax)
	}
	if t.PreferredBiasPercent < 0 || t.PreferredBiasPercent > 100 {
		return fmt.Errorf("preferred_bias_percent must be within 0..100, got %d", t.PreferredBiasPercent)
	}
	if t.TurnIntervalMs <= 0 {
		return fmt.Errorf("turn_interval_ms must be > 0, got %d", t.TurnIntervalMs)
	}
	for name, p := range map[string]int{
		"deploy_chance_percent":     t.Policy.DeployChancePercent,
		"neutralise_chance_percent": t.Policy.NeutraliseChancePercent,
	} {
		if p < 0 || p > 100 {
			return fmt.Errorf("policy.%s must be within 0..100, got %d", name, p)
		}
	}
	return nil
}
