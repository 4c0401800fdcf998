// Package runtimecfg reads server runtime settings from the environment. The
// values become flag defaults, so an explicit flag still wins.
package runtimecfg

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

type ServerEnv struct {
	Addr        string `env:"FIELDOPS_ADDR" envDefault:":8080"`
	DataDir     string `env:"FIELDOPS_DATA_DIR" envDefault:"./data"`
	ConfigDir   string `env:"FIELDOPS_CONFIG_DIR" envDefault:"./configs"`
	TuningPath  string `env:"FIELDOPS_TUNING_PATH"`
	WorldPath   string `env:"FIELDOPS_WORLD_PATH"`
	CampaignID  string `env:"FIELDOPS_CAMPAIGN_ID" envDefault:"default"`
	Seed        int64  `env:"FIELDOPS_SEED"`
	DisableDB   bool   `env:"FIELDOPS_DISABLE_DB"`
	LoadLatest  bool   `env:"FIELDOPS_LOAD_LATEST_SNAPSHOT" envDefault:"true"`
	AllowRemote bool   `env:"FIELDOPS_OBSERVER_ALLOW_REMOTE"`
	// EnableAdmin turns on the loopback-only debug endpoints.
	EnableAdmin bool `env:"FIELDOPS_ENABLE_ADMIN_HTTP"`
	// Turns stops the server after this many turns; 0 runs until signalled.
	Turns int `env:"FIELDOPS_TURNS"`
}

// ParseEnv parses environment variables into the provided struct.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func LoadServerEnv() (ServerEnv, error) {
	var cfg ServerEnv
	if err := ParseEnv(&cfg); err != nil {
		return ServerEnv{}, err
	}
	return cfg, nil
}
