package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"

	"github.com/reapbench/hparams/internal/ctxlog"
	"github.com/reapbench/hparams/internal/diffcfg"
	"github.com/reapbench/hparams/internal/lint"
	"github.com/reapbench/hparams/internal/registry"
	"github.com/reapbench/hparams/internal/resolve"
	"github.com/reapbench/hparams/internal/sweep"
	"github.com/reapbench/hparams/internal/watch"
)

// App holds the application's dependencies.
type App struct {
	outW io.Writer
	reg  *registry.Registry
	cfg  *Config
}

// NewApp creates a new App instance with its dependencies injected.
func NewApp(outW io.Writer, cfg *Config) *App {
	return &App{
		outW: outW,
		reg:  registry.New(),
		cfg:  cfg,
	}
}

// Run executes the configured command. The logger travels on the context so
// every layer below logs through the same handler.
func (a *App) Run(ctx context.Context) error {
	logger := newLogger(a.cfg.LogLevel, a.cfg.LogFormat, os.Stderr)
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Debug("Starting command.", "command", a.cfg.Command)

	switch a.cfg.Command {
	case CmdResolve:
		return a.runResolve(ctx)
	case CmdValidate:
		return a.runValidate(ctx)
	case CmdLint:
		return a.runLint(ctx)
	case CmdDiff:
		return a.runDiff(ctx)
	case CmdSweep:
		return a.runSweep(ctx)
	case CmdWatch:
		return a.runWatch(ctx)
	default:
		return fmt.Errorf("unknown command %q", a.cfg.Command)
	}
}

// runResolve merges the manifest's _BASE_ chain and emits the flattened
// document, either to stdout or atomically to -o.
func (a *App) runResolve(ctx context.Context) error {
	res, err := resolve.File(ctx, a.cfg.ConfigPath)
	if err != nil {
		return err
	}
	data, err := res.Encode()
	if err != nil {
		return err
	}

	if a.cfg.OutPath != "" {
		if err := renameio.WriteFile(a.cfg.OutPath, data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", a.cfg.OutPath, err)
		}
		ctxlog.FromContext(ctx).Info("Resolved manifest written.",
			"manifest", a.cfg.ConfigPath, "out", a.cfg.OutPath, "chain_depth", len(res.Chain))
		return nil
	}

	_, err = a.outW.Write(data)
	return err
}

// runValidate resolves each target manifest and checks it against the schema
// and the experiment registry. Directory targets additionally get a
// corpus-wide inheritance graph check.
func (a *App) runValidate(ctx context.Context) error {
	files, err := a.targets(ctx, a.cfg.ConfigPath)
	if err != nil {
		return err
	}

	var failed int
	for _, file := range files {
		if err := a.validateOne(ctx, file); err != nil {
			failed++
			fmt.Fprintf(a.outW, "FAIL %s\n%s\n", file, indent(err.Error()))
			continue
		}
		fmt.Fprintf(a.outW, "OK   %s\n", file)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d manifests failed validation", failed, len(files))
	}
	return nil
}

func (a *App) validateOne(ctx context.Context, file string) error {
	res, err := resolve.File(ctx, file)
	if err != nil {
		return err
	}
	return a.reg.Validate(ctx, res)
}

// runLint resolves each target manifest and reports rule findings. Warnings
// alone keep the exit status clean; error findings fail the run.
func (a *App) runLint(ctx context.Context) error {
	files, err := a.targets(ctx, a.cfg.ConfigPath)
	if err != nil {
		return err
	}

	var errFiles int
	for _, file := range files {
		res, err := resolve.File(ctx, file)
		if err != nil {
			return err
		}
		findings, err := lint.Run(ctx, res)
		if err != nil {
			return err
		}
		for _, f := range findings {
			fmt.Fprintf(a.outW, "%s: %s\n", file, f)
		}
		if lint.HasErrors(findings) {
			errFiles++
		}
	}

	if errFiles > 0 {
		return fmt.Errorf("lint found errors in %d of %d manifests", errFiles, len(files))
	}
	return nil
}

func (a *App) runDiff(ctx context.Context) error {
	resA, err := resolve.File(ctx, a.cfg.DiffA)
	if err != nil {
		return err
	}
	resB, err := resolve.File(ctx, a.cfg.DiffB)
	if err != nil {
		return err
	}

	entries, err := diffcfg.Diff(resA, resB)
	if err != nil {
		return err
	}
	diffcfg.Format(a.outW, entries)
	ctxlog.FromContext(ctx).Info("Manifests compared.",
		"a", a.cfg.DiffA, "b", a.cfg.DiffB, "differences", len(entries))
	return nil
}

func (a *App) runSweep(ctx context.Context) error {
	plan, err := sweep.LoadPlan(a.cfg.PlanPath)
	if err != nil {
		return err
	}
	written, err := plan.Write(ctx, a.reg, a.cfg.OutDir)
	if err != nil {
		return err
	}
	for _, path := range written {
		fmt.Fprintln(a.outW, path)
	}
	return nil
}

// runWatch re-runs validation and lint over the config tree on every settled
// burst of manifest edits, until the context is canceled.
func (a *App) runWatch(ctx context.Context) error {
	return watch.Watch(ctx, a.cfg.ConfigPath, func(ctx context.Context) {
		logger := ctxlog.FromContext(ctx)
		files, err := a.targets(ctx, a.cfg.ConfigPath)
		if err != nil {
			fmt.Fprintf(a.outW, "FAIL %s\n%s\n", a.cfg.ConfigPath, indent(err.Error()))
			return
		}
		for _, file := range files {
			if err := a.checkOne(ctx, file); err != nil {
				fmt.Fprintf(a.outW, "FAIL %s\n%s\n", file, indent(err.Error()))
				continue
			}
			fmt.Fprintf(a.outW, "OK   %s\n", file)
		}
		logger.Info("Check pass finished.", "manifests", len(files))
	})
}

// checkOne runs the full per-file pipeline: resolve, registry validation,
// then lint with error-severity findings promoted to failures.
func (a *App) checkOne(ctx context.Context, file string) error {
	res, err := resolve.File(ctx, file)
	if err != nil {
		return err
	}
	if err := a.reg.Validate(ctx, res); err != nil {
		return err
	}
	findings, err := lint.Run(ctx, res)
	if err != nil {
		return err
	}
	if lint.HasErrors(findings) {
		msgs := make([]string, 0, len(findings))
		for _, f := range findings {
			msgs = append(msgs, f.String())
		}
		return fmt.Errorf("lint failed:\n- %s", strings.Join(msgs, "\n- "))
	}
	return nil
}

// targets expands a path argument into the manifests to operate on: a file
// is taken as is, a directory is scanned and its inheritance graph checked.
func (a *App) targets(ctx context.Context, path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if !info.IsDir() {
		return []string{filepath.Clean(path)}, nil
	}
	return resolve.CheckTree(ctx, path)
}

func indent(s string) string {
	return "  " + strings.ReplaceAll(strings.TrimRight(s, "\n"), "\n", "\n  ")
}
