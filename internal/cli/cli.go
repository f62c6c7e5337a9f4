package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/reapbench/hparams/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

const usageText = `
hparams - a toolkit for declarative training-config manifests.

Usage:
  hparams <command> [options] [arguments]

Commands:
  resolve   MANIFEST        Merge the _BASE_ chain and print the full config.
  validate  MANIFEST|DIR    Check manifests against the schema and registry.
  lint      MANIFEST|DIR    Check cross-key invariants of resolved manifests.
  diff      MANIFEST_A MANIFEST_B
                            Compare two manifests after resolution.
  sweep     -out DIR PLAN   Expand an HCL sweep plan into manifest variants.
  watch     DIR             Re-check the config tree on every change.

Run 'hparams <command> -h' for command-specific options.
`

// Parse processes command-line arguments. It returns a populated app.Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")

	if len(args) == 0 {
		fmt.Fprint(output, usageText)
		return nil, true, nil
	}
	command := args[0]
	switch command {
	case "help", "-h", "--help":
		fmt.Fprint(output, usageText)
		return nil, true, nil
	}

	flagSet := flag.NewFlagSet("hparams "+command, flag.ContinueOnError)
	flagSet.SetOutput(output)

	outPathFlag := flagSet.String("o", "", "Write the resolved config to this file instead of stdout.")
	outDirFlag := flagSet.String("out", "", "Directory the sweep variants are written to.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args[1:]); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.", "command", command)

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	cfg := app.Config{
		Command:   command,
		LogFormat: logFormat,
		LogLevel:  logLevel,
	}

	switch command {
	case app.CmdResolve:
		cfg.ConfigPath = flagSet.Arg(0)
		cfg.OutPath = *outPathFlag
	case app.CmdValidate, app.CmdLint, app.CmdWatch:
		cfg.ConfigPath = flagSet.Arg(0)
	case app.CmdDiff:
		if flagSet.NArg() != 2 {
			return nil, false, &ExitError{Code: 2, Message: "diff: expected exactly two manifest paths"}
		}
		cfg.DiffA = flagSet.Arg(0)
		cfg.DiffB = flagSet.Arg(1)
	case app.CmdSweep:
		cfg.PlanPath = flagSet.Arg(0)
		cfg.OutDir = *outDirFlag
	default:
		fmt.Fprint(output, usageText)
		return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("unknown command %q", command)}
	}

	config, err := app.NewConfig(cfg)
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
