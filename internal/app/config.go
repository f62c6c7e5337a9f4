package app

import (
	"errors"
	"fmt"
)

// Commands understood by the application.
const (
	CmdResolve  = "resolve"
	CmdValidate = "validate"
	CmdLint     = "lint"
	CmdDiff     = "diff"
	CmdSweep    = "sweep"
	CmdWatch    = "watch"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	Command string

	// ConfigPath is the manifest file or config tree the command operates
	// on (resolve, validate, lint, watch).
	ConfigPath string
	// OutPath receives the resolved document instead of stdout (resolve).
	OutPath string

	// DiffA and DiffB are the two manifests to compare (diff).
	DiffA string
	DiffB string

	// PlanPath is the HCL sweep plan and OutDir the variant output
	// directory (sweep).
	PlanPath string
	OutDir   string

	LogFormat string
	LogLevel  string
}

// NewConfig validates the per-command required fields.
func NewConfig(cfg Config) (*Config, error) {
	switch cfg.Command {
	case CmdResolve, CmdValidate, CmdLint, CmdWatch:
		if cfg.ConfigPath == "" {
			return nil, fmt.Errorf("%s: a manifest path is required", cfg.Command)
		}
	case CmdDiff:
		if cfg.DiffA == "" || cfg.DiffB == "" {
			return nil, errors.New("diff: two manifest paths are required")
		}
	case CmdSweep:
		if cfg.PlanPath == "" {
			return nil, errors.New("sweep: a plan file is required")
		}
		if cfg.OutDir == "" {
			return nil, errors.New("sweep: an output directory is required")
		}
	default:
		return nil, fmt.Errorf("unknown command %q", cfg.Command)
	}

	return &cfg, nil
}
