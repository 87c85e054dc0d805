package wraprun

import (
	"fmt"
	"os"
	"strconv"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/olcf/wraprun/types"
)

// EnvPrefix is the prefix of the environment variables recognized by
// FromEnv. A field tagged RANK_FILE is read from SPLIT_RANK_FILE.
const EnvPrefix = "split"

// PreloadEnv is the environment variable that injects the interposition
// layer into child processes. ScrubExecEnv removes it.
const PreloadEnv = "LD_PRELOAD"

// Config defines the configuration of a partition Manager.
type Config struct {
	// RankFile is the path of the shared rank-indexed configuration file.
	// Required unless BypassInit is set.
	RankFile string `yaml:"rankFile" envconfig:"RANK_FILE"`

	// RankOverride, when non-empty, is the decimal logical rank used to
	// resolve the partition record instead of the process's own global
	// rank. Intended for helper processes that must adopt the
	// configuration of another rank.
	RankOverride string `yaml:"rankOverride" envconfig:"RANK_FROM_ENV"`

	// JobID names the per-partition redirect files. When empty a random
	// identifier is generated at Init.
	JobID string `yaml:"jobId" envconfig:"JOB_ID"`

	// RedirectOutput enables per-partition stdout/stderr redirection.
	RedirectOutput bool `yaml:"redirectOutput" envconfig:"REDIRECT_OUTERR"`

	// RedirectDir is the directory where redirect files are created.
	// Empty means the working directory the partition record selected.
	RedirectDir string `yaml:"redirectDir" envconfig:"REDIRECT_DIR"`

	// BypassInit forwards initialization straight to the underlying
	// runtime without partitioning. The manager stays inert.
	BypassInit bool `yaml:"bypassInit" envconfig:"BYPASS_INIT"`

	// BypassFinalize turns finalization requests from the hosted
	// application into no-ops. The manager still finalizes the runtime
	// itself on shutdown.
	BypassFinalize bool `yaml:"bypassFinalize" envconfig:"BYPASS_FINALIZE"`

	// UnsetPreload removes PreloadEnv from the process environment during
	// Init so that binaries spawned by the hosted application are not
	// interposed themselves.
	UnsetPreload bool `yaml:"unsetPreload" envconfig:"UNSET_PRELOAD"`

	// Policy controls handling of fatal signals and exit codes.
	Policy types.FailurePolicy `yaml:"policy"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Policy: types.DefaultFailurePolicy(),
	}
}

// FromEnv builds a Config from SPLIT_* environment variables on top of
// the defaults.
//
// Returns:
//   - *Config: the resolved configuration.
//   - error: an error if a variable could not be parsed.
func FromEnv() (*Config, error) {
	cfg := DefaultConfig()
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	// The policy is processed on its own so its variables sit directly
	// under the prefix (SPLIT_HANDLE_SEGV, not SPLIT_POLICY_HANDLE_SEGV).
	if err := envconfig.Process(EnvPrefix, &cfg.Policy); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return cfg, nil
}

// LoadConfig reads a YAML configuration file.
//
// Parameters:
//   - path: path of the YAML file.
//
// Returns:
//   - *Config: the parsed configuration on top of the defaults.
//   - error: an error if the file could not be read or parsed.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return cfg, nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.BypassInit {
		return nil
	}
	if c.RankFile == "" {
		return fmt.Errorf("%w: rank file path is required", ErrInvalidConfig)
	}
	if _, _, err := c.rankOverride(); err != nil {
		return err
	}
	return nil
}

// rankOverride parses RankOverride. The second return value reports
// whether an override is present.
func (c *Config) rankOverride() (int, bool, error) {
	if c.RankOverride == "" {
		return 0, false, nil
	}
	rank, err := strconv.Atoi(c.RankOverride)
	if err != nil || rank < 0 {
		return 0, false, fmt.Errorf("%w: rank override %q is not a non-negative integer", ErrInvalidConfig, c.RankOverride)
	}
	return rank, true, nil
}

// ScrubExecEnv removes the interposition preload variable from the
// current process environment so that exec'd children run uninterposed.
func ScrubExecEnv() error {
	return os.Unsetenv(PreloadEnv)
}
