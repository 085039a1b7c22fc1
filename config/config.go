package config

import (
	"os"
	"path/filepath"
	"time"
)

// Governance parameters. Height-keyed so a future parameter change can be
// scheduled without a migration.

// VotingWindow is the number of heights a proposal accepts votes for after
// creation.
func VotingWindow(height uint64) uint64 {
	return 1440
}

const (
	ReputationCreditPropose int64 = 1
	ReputationCreditVote    int64 = 1
	ReputationCreditExecute int64 = 5
)

type DAOAppConfig struct {
	Home           string        `mapstructure:"-"`
	ChainID        string        `mapstructure:"chain_id"`
	ListenAddr     string        `mapstructure:"listen_addr"`
	CommitInterval time.Duration `mapstructure:"commit_interval"`
	LogLevel       string        `mapstructure:"log_level"`
}

func DefaultDAOAppConfig(home string) *DAOAppConfig {
	return &DAOAppConfig{
		Home:           home,
		ChainID:        "bitcoin-dao",
		ListenAddr:     "0.0.0.0:8547",
		CommitInterval: time.Second * 5,
		LogLevel:       "info",
	}
}

type Config struct {
	RootDir string `mapstructure:"-"`

	App *DAOAppConfig `mapstructure:"app"`
}

func DefaultConfig(home string) *Config {
	if len(home) == 0 {
		home = os.ExpandEnv("$HOME/.dao")
	}
	config := &Config{
		RootDir: home,
		App:     DefaultDAOAppConfig(home),
	}
	_ = os.MkdirAll(home+"/config", 0o755)
	return config
}

func (cfg *Config) ConfigFile() string {
	return filepath.Join(cfg.RootDir, "config", "config.toml")
}

func (cfg *Config) GenesisFile() string {
	return filepath.Join(cfg.RootDir, "config", "genesis.json")
}

func (cfg *Config) DataDir() string {
	return filepath.Join(cfg.RootDir, "data")
}
