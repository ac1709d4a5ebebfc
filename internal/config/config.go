// Package config loads the engine's tunable limits ): call
// stack depth, bound-function chain sanity, the interrupt-hook step budget,
// and the verbose/terse internal-error toggle. These are exactly the knobs
// a host embedding the engine needs to adjust without recompiling, so they
// are read from the process environment and, optionally, a YAML file laid
// on top of the environment-derived defaults.
package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v6"
	"github.com/remoe/duktape/lang/machine"
	"gopkg.in/yaml.v3"
)

// EngineLimits mirrors machine.Limits plus the ambient knobs the engine
// leaves to "the embedding host": the interrupt hook's step count and
// whether internal errors are reported verbosely. BoundChainSanity and
// VerboseInternalErrors are loaded but nothing reads them: bound-chain
// walks use values.BoundChainSanity, and internal errors always carry
// their detailed message.
type EngineLimits struct {
	MaxCallStackDepth     int  `env:"DUK_MAX_CALL_STACK_DEPTH" yaml:"max_call_stack_depth"`
	BoundChainSanity      int  `env:"DUK_BOUND_CHAIN_SANITY" yaml:"bound_chain_sanity"`
	MaxSteps              int  `env:"DUK_MAX_STEPS" yaml:"max_steps"`
	InterruptInit         int  `env:"DUK_INTERRUPT_INIT" yaml:"interrupt_init"`
	VerboseInternalErrors bool `env:"DUK_VERBOSE_INTERNAL_ERRORS" yaml:"verbose_internal_errors"`
}

// Default returns the engine's out-of-the-box limits, equivalent to
// machine.DefaultLimits() plus a conservative step budget.
func Default() EngineLimits {
	ml := machine.DefaultLimits()
	return EngineLimits{
		MaxCallStackDepth:     ml.MaxCallStackDepth,
		BoundChainSanity:      ml.BoundChainSanity,
		MaxSteps:              10_000_000,
		InterruptInit:         1000,
		VerboseInternalErrors: false,
	}
}

// Load builds EngineLimits starting from Default, overridden by whatever
// DUK_* environment variables are set, then overridden again by yamlPath's
// contents if yamlPath is non-empty. Env vars take the lowest precedence of
// the two overrides deliberately: a YAML file checked into a deployment is
// expected to be the source of truth, with env vars as the quick one-off
// override during local development.
func Load(yamlPath string) (EngineLimits, error) {
	limits := Default()
	if err := env.Parse(&limits); err != nil {
		return EngineLimits{}, fmt.Errorf("config: parsing environment: %w", err)
	}

	if yamlPath == "" {
		return limits, nil
	}
	b, err := os.ReadFile(yamlPath)
	if err != nil {
		return EngineLimits{}, fmt.Errorf("config: reading %s: %w", yamlPath, err)
	}
	if err := yaml.Unmarshal(b, &limits); err != nil {
		return EngineLimits{}, fmt.Errorf("config: parsing %s: %w", yamlPath, err)
	}
	return limits, nil
}

// MachineLimits projects the subset of EngineLimits machine.NewHeap accepts.
func (l EngineLimits) MachineLimits() machine.Limits {
	return machine.Limits{
		MaxCallStackDepth: l.MaxCallStackDepth,
		BoundChainSanity:  l.BoundChainSanity,
	}
}
