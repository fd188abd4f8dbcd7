package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type RentConfig struct {
	LamportsPerByteYear uint64  `yaml:"lamports_per_byte_year"`
	ExemptionThreshold  float64 `yaml:"exemption_threshold"`
	BurnPercent         uint8   `yaml:"burn_percent"`
}

// Config holds the settings for running the settlement program against a
// local ledger.
type Config struct {
	ProgramId      string     `yaml:"program_id"`
	TransferHookId string     `yaml:"transfer_hook_id"`
	LedgerPath     string     `yaml:"ledger_path"`
	ComputeBudget  uint64     `yaml:"compute_budget"`
	Unmetered      bool       `yaml:"unmetered"`
	MetricsAddr    string     `yaml:"metrics_addr"`
	Rent           RentConfig `yaml:"rent"`
}

const (
	DefaultProgramId      = "SecTok1111111111111111111111111111111111111"
	DefaultTransferHookId = "SecHook111111111111111111111111111111111111"
)

func Default() Config {
	return Config{
		ProgramId:      DefaultProgramId,
		TransferHookId: DefaultTransferHookId,
		LedgerPath:     "sectoken.db",
		ComputeBudget:  1_400_000,
		Rent: RentConfig{
			LamportsPerByteYear: 3480,
			ExemptionThreshold:  2.0,
			BurnPercent:         50,
		},
	}
}

// Load reads a YAML file over the defaults. Keys absent from the file keep
// their default values.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if cfg.Rent.ExemptionThreshold < 0 {
		return cfg, fmt.Errorf("invalid config %s: negative exemption threshold", path)
	}

	return cfg, nil
}
