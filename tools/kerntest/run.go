package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/google/subcommands"
	"kestrel/tools/kerntest/runner"
)

// runCmd implements subcommands.Command for the "run" command.
type runCmd struct {
	logDir   string
	parallel int
	stream   bool
	report   string
}

// Name implements subcommands.Command.Name.
func (*runCmd) Name() string {
	return "run"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*runCmd) Synopsis() string {
	return "boot test images and check their outcome"
}

// Usage implements subcommands.Command.Usage.
func (*runCmd) Usage() string {
	return `run [flags] [target...] - boots the named targets (default: all) and
compares the outcome each one reports with the expected one.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (c *runCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.logDir, "log-dir", "", "save serial logs to this directory; overrides log_dir from the config.")
	f.IntVar(&c.parallel, "parallel", 0, "number of emulators to run at the same time; overrides parallel from the config.")
	f.BoolVar(&c.stream, "stream", false, "copy serial output to stdout while the targets run.")
	f.StringVar(&c.report, "report", "", "write a YAML report of the results to this file.")
}

// Execute implements subcommands.Command.Execute.
func (c *runCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	g := args[0].(*globals)

	cfg, err := runner.LoadConfig(g.configPath)
	if err != nil {
		g.log.WithError(err).Error("loading config")
		return subcommands.ExitFailure
	}
	if c.logDir != "" {
		cfg.LogDir = c.logDir
	}
	if c.parallel > 0 {
		cfg.Parallel = c.parallel
	}

	names := f.Args()
	if len(names) == 0 {
		names = cfg.TargetNames()
	}

	r := runner.New(cfg, g.log)
	if c.stream {
		r.Stream = os.Stdout
	}

	results, err := r.RunAll(ctx, names)
	printSummary(os.Stdout, cfg, names, results)
	if c.report != "" {
		if rerr := writeReport(c.report, runner.NewReport(cfg, names, results)); rerr != nil {
			g.log.WithError(rerr).Error("writing report")
			return subcommands.ExitFailure
		}
	}

	switch {
	case err == nil:
		return subcommands.ExitSuccess
	case errors.Is(err, runner.ErrUnexpectedOutcome):
		g.log.Error(err)
	default:
		g.log.WithError(err).Error("running targets")
	}
	return subcommands.ExitFailure
}

func printSummary(w io.Writer, cfg *runner.Config, names []string, results []*runner.Result) {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "TARGET\tEXPECTED\tGOT\tEXIT\tDURATION\tRESULT")

	for i, name := range names {
		if i >= len(results) || results[i] == nil {
			fmt.Fprintf(tw, "%s\t-\t-\t-\t-\tNOT RUN\n", name)
			continue
		}

		res := results[i]
		t, _ := cfg.Target(name)
		verdict := "PASS"
		if !res.Passed(t) {
			verdict = "FAIL"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n", name, t.Expect, res.Outcome, res.ExitStatus, res.Duration.Round(1e6), verdict)
	}
	tw.Flush()
}

func writeReport(path string, rep *runner.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := rep.Write(f); err != nil {
		return err
	}
	return f.Close()
}
