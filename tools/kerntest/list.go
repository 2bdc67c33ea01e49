package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/google/subcommands"
	"kestrel/tools/kerntest/runner"
)

// listCmd implements subcommands.Command for the "list" command.
type listCmd struct{}

// Name implements subcommands.Command.Name.
func (*listCmd) Name() string {
	return "list"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*listCmd) Synopsis() string {
	return "list the targets defined in the config file"
}

// Usage implements subcommands.Command.Usage.
func (*listCmd) Usage() string {
	return "list - prints every target with its image, expected outcome and timeout.\n"
}

// SetFlags implements subcommands.Command.SetFlags.
func (*listCmd) SetFlags(*flag.FlagSet) {}

// Execute implements subcommands.Command.Execute.
func (*listCmd) Execute(_ context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	g := args[0].(*globals)

	cfg, err := runner.LoadConfig(g.configPath)
	if err != nil {
		g.log.WithError(err).Error("loading config")
		return subcommands.ExitFailure
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "TARGET\tEXPECT\tTIMEOUT\tIMAGE")
	for _, name := range cfg.TargetNames() {
		t := cfg.Targets[name]
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", name, t.Expect, t.Timeout.Duration, t.Image)
	}
	tw.Flush()
	return subcommands.ExitSuccess
}
