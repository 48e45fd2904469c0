// Package config models the Configuration surface from spec.md §6 and its
// YAML loading, grounded on gopkg.in/yaml.v3 (an indirect dependency of
// sixafter-nanoid/go.mod). The teacher's main.go (std/compiler/main.go)
// threads equivalent knobs as package-level globals populated by a hand
// rolled flag loop; here they are collected into one struct so the
// compiler is usable as a library independent of any particular front end.
package config

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// OpaqueLevel gates which opaque-predicate kinds are eligible (spec §6).
type OpaqueLevel string

const (
	OpaqueLow    OpaqueLevel = "low"
	OpaqueMedium OpaqueLevel = "medium"
	OpaqueHigh   OpaqueLevel = "high"
)

// Dispatcher selects one of the four dispatcher shapes (spec §4.5, §6).
type Dispatcher string

const (
	DispatcherSwitch  Dispatcher = "switch"
	DispatcherBST     Dispatcher = "bst"
	DispatcherCluster Dispatcher = "cluster"
	DispatcherChaos   Dispatcher = "chaos"
)

// Config is the full set of recognized compiler options from spec.md §6.
type Config struct {
	NoEncryption       bool        `yaml:"noEncryption"`
	OpaquePredicates   bool        `yaml:"opaquePredicates"`
	OpaqueLevel        OpaqueLevel `yaml:"opaqueLevel"`
	OpaqueProb         float64     `yaml:"opaqueProb"`
	StateRandomization bool        `yaml:"stateRandomization"`
	Dispatcher         Dispatcher  `yaml:"dispatcher"`
	MaxSuperblockSize  int         `yaml:"maxSuperblockSize"`

	// Seed pins every random choice in the pipeline (spec §8 property 4,
	// spec §9 "RNG as an explicit resource"). Zero means "draw a fresh
	// seed from the OS CSPRNG", i.e. non-reproducible.
	Seed uint32 `yaml:"seed"`

	// BuildID is a stable identifier for one compilation run, generated
	// with google/uuid when left empty. No other pipeline stage reads it.
	BuildID string `yaml:"buildID"`
}

// Default returns the Configuration the spec describes as the baseline: no
// encryption disabled (encryption on), no opaque predicates, switch
// dispatcher, a conservative superblock bound.
func Default() Config {
	return Config{
		NoEncryption:       false,
		OpaquePredicates:   false,
		OpaqueLevel:        OpaqueLow,
		OpaqueProb:         0.15,
		StateRandomization: false,
		Dispatcher:         DispatcherSwitch,
		MaxSuperblockSize:  32,
	}
}

// Validate checks invariants the rest of the pipeline assumes hold.
func (c *Config) Validate() error {
	if c.OpaqueProb < 0 || c.OpaqueProb > 1 {
		return fmt.Errorf("config: opaqueProb must be in [0,1], got %v", c.OpaqueProb)
	}
	if c.MaxSuperblockSize < 2 {
		return fmt.Errorf("config: maxSuperblockSize must be >= 2, got %d", c.MaxSuperblockSize)
	}
	switch c.Dispatcher {
	case DispatcherSwitch, DispatcherBST, DispatcherCluster, DispatcherChaos:
	default:
		return fmt.Errorf("config: unknown dispatcher %q", c.Dispatcher)
	}
	switch c.OpaqueLevel {
	case OpaqueLow, OpaqueMedium, OpaqueHigh:
	default:
		return fmt.Errorf("config: unknown opaqueLevel %q", c.OpaqueLevel)
	}
	return nil
}

// EnsureBuildID fills in a random build id if one was not configured.
func (c *Config) EnsureBuildID() {
	if c.BuildID == "" {
		c.BuildID = uuid.New().String()
	}
}

// Load reads a Configuration from a YAML file, starting from Default() so
// unset fields keep sane defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	cfg.EnsureBuildID()
	return cfg, nil
}
