// Command aspis is the hardening pipeline's CLI driver: it builds a
// Config from flags (§6.2), selects one of internal/fixtures' IR
// programs in place of a front-end this toolchain doesn't have (§1),
// and runs it through the named sequence of registered passes (§6.5).
package main

import (
	"context"
	goerrors "errors"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"aspis/internal/annotation"
	"aspis/internal/config"
	"aspis/internal/diag"
	"aspis/internal/errors"
	"aspis/internal/fixtures"
	"aspis/internal/idempotence"
	"aspis/internal/ir"
	"aspis/internal/logging"
	"aspis/internal/oracle"
	"aspis/internal/pipeline"
)

var defaultPasses = []string{"func-ret-to-ref", "eddi-verify", "rasm-verify"}

func main() {
	cmd := &cli.Command{
		Name:  "aspis",
		Usage: "fault-hardening transformation pipeline for SSA-form IR modules",
		Commands: []*cli.Command{
			runCommand(),
			inspectCommand(),
			diffCommand(),
		},
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		color.Red("aspis: %v", err)
		os.Exit(1)
	}
}

func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "fixture", Value: "fact", Usage: "fixture program to harden (one of: " + strings.Join(fixtures.Names(), ", ") + ")"},
		&cli.StringSliceFlag{Name: "pass", Usage: "pipeline pass to run, repeatable and order-sensitive (default: " + strings.Join(defaultPasses, ",") + ")"},
		&cli.BoolFlag{Name: "alternate-memmap", Usage: "alternating instead of sequential duplicate layout"},
		&cli.StringFlag{Name: "duplicate-sec", Value: ".dup_data", Usage: "section for duplicated uninitialized globals"},
		&cli.BoolFlag{Name: "enable-profiling", Usage: "emit aspis-insert-check-profile instrumentation"},
		&cli.BoolFlag{Name: "debug-enabled", Usage: "preserve input debug locations on synthesized instructions"},
		&cli.StringFlag{Name: "cfc", Value: "rasm", Usage: "control-flow discipline when rasm-verify/racfed-verify isn't named explicitly (rasm|racfed)"},
		&cli.StringFlag{Name: "compiled-set-dir", Value: ".", Usage: "directory holding the persisted compiled-function-set CSVs"},
		&cli.StringFlag{Name: "profile-path", Value: "aspis.profile.pb.gz", Usage: "path for the recorded check-site profile"},
		&cli.StringFlag{Name: "log-level", Value: "info", Usage: "error|warn|info|debug"},
	}
}

func buildConfig(cmd *cli.Command) *config.Config {
	cfg := config.Default()
	cfg.AlternateMemmap = cmd.Bool("alternate-memmap")
	cfg.DuplicateSec = cmd.String("duplicate-sec")
	cfg.EnableProfiling = cmd.Bool("enable-profiling")
	cfg.DebugEnabled = cmd.Bool("debug-enabled")
	if cmd.String("cfc") == string(config.CFCRacfed) {
		cfg.CFCAlgorithm = config.CFCRacfed
	}
	cfg.CompiledSetDir = cmd.String("compiled-set-dir")
	cfg.ProfilePath = cmd.String("profile-path")
	cfg.LogLevel = config.LogLevel(cmd.String("log-level"))
	return cfg
}

func passNames(cmd *cli.Command) []string {
	names := cmd.StringSlice("pass")
	if len(names) == 0 {
		return defaultPasses
	}
	return names
}

func buildContext(fixtureName string, cfg *config.Config) (*pipeline.Context, error) {
	m, err := fixtures.Build(fixtureName)
	if err != nil {
		return nil, err
	}
	idx := annotation.Build(m)
	for _, raw := range idx.UnknownAnnotations() {
		d := errors.UnknownAnnotation("annotation", raw)
		fmt.Fprint(os.Stderr, errors.NewReporter().Format(d))
	}
	return &pipeline.Context{
		Module: m,
		Oracle: oracle.New(idx),
		Index:  idx,
		Config: cfg,
	}, nil
}

func runPipeline(ctx *pipeline.Context, names []string) error {
	pl, err := pipeline.New(names...)
	if err != nil {
		return err
	}
	return pl.Run(ctx)
}

func reportPipelineError(pass string, err error) {
	var fatal *diag.FatalError
	if goerrors.As(err, &fatal) {
		d := errors.FromFatal(errors.ErrorMalformedFunction, fatal)
		fmt.Fprint(os.Stderr, errors.NewReporter().Format(d))
		return
	}
	color.Red("%s: %v", pass, err)
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "harden a fixture module and print the result",
		Flags: commonFlags(),
		Action: func(_ context.Context, cmd *cli.Command) error {
			logging.SetVerbosity(config.LogLevel(cmd.String("log-level")))
			cfg := buildConfig(cmd)
			pctx, err := buildContext(cmd.String("fixture"), cfg)
			if err != nil {
				return err
			}
			names := passNames(cmd)
			if err := runPipeline(pctx, names); err != nil {
				reportPipelineError(strings.Join(names, ","), err)
				return err
			}
			fmt.Print(ir.Print(pctx.Module))
			color.Green("hardened %q with %s", cmd.String("fixture"), strings.Join(names, ", "))
			return nil
		},
	}
}

func inspectCommand() *cli.Command {
	return &cli.Command{
		Name:  "inspect",
		Usage: "print a fixture module as IR text without transforming it",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "fixture", Value: "fact", Usage: "fixture program to print"},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			m, err := fixtures.Build(cmd.String("fixture"))
			if err != nil {
				return err
			}
			fmt.Print(ir.Print(m))
			return nil
		},
	}
}

func diffCommand() *cli.Command {
	return &cli.Command{
		Name:  "diff",
		Usage: "show what the pipeline changes, and optionally check idempotence",
		Flags: append(commonFlags(),
			&cli.BoolFlag{Name: "check-idempotent", Usage: "also re-run the pipeline over its own output and report whether it's a no-op"},
		),
		Action: func(_ context.Context, cmd *cli.Command) error {
			cfg := buildConfig(cmd)
			names := passNames(cmd)

			before, err := fixtures.Build(cmd.String("fixture"))
			if err != nil {
				return err
			}
			beforeText := ir.Print(before)

			pctx, err := buildContext(cmd.String("fixture"), cfg)
			if err != nil {
				return err
			}
			if err := runPipeline(pctx, names); err != nil {
				reportPipelineError(strings.Join(names, ","), err)
				return err
			}

			printDiff(beforeText, ir.Print(pctx.Module))

			if cmd.Bool("check-idempotent") {
				rerunBeforeText := ir.Print(pctx.Module)
				rerunIdx := annotation.Build(pctx.Module)
				rerunCtx := &pipeline.Context{
					Module: pctx.Module,
					Oracle: oracle.New(rerunIdx),
					Index:  rerunIdx,
					Config: cfg,
				}
				if err := runPipeline(rerunCtx, names); err != nil {
					reportPipelineError(strings.Join(names, ","), err)
					return err
				}
				report := idempotence.CompareText(rerunBeforeText, ir.Print(rerunCtx.Module))
				if report.Identical {
					color.Green(report.Summary())
				} else {
					color.Yellow(report.Summary())
					fmt.Println(report.Diff)
				}
			}
			return nil
		},
	}
}

// printDiff renders a line-wrapped, insert/delete-colored go-diff
// comparison between a fixture's pre- and post-hardening text, the same
// diffmatchpatch configuration internal/idempotence uses for its
// metadata-stripped re-run comparison, but over the full printed text
// since a run/inspect diff wants to see everything that changed.
func printDiff(before, after string) {
	width := 100
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		width = w
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(before, after, false)
	diffs = dmp.DiffCleanupSemantic(diffs)

	var out strings.Builder
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			out.WriteString(color.GreenString(d.Text))
		case diffmatchpatch.DiffDelete:
			out.WriteString(color.RedString(d.Text))
		default:
			out.WriteString(d.Text)
		}
	}
	for _, line := range strings.Split(out.String(), "\n") {
		for len(line) > width {
			fmt.Println(line[:width])
			line = line[width:]
		}
		fmt.Println(line)
	}
}
