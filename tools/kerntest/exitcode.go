package main

import (
	"context"
	"flag"
	"fmt"
	"strconv"

	"github.com/google/subcommands"
	"kestrel/tools/kerntest/runner"
)

// exitCodeCmd implements subcommands.Command for the "exitcode" command.
type exitCodeCmd struct {
	successCode uint
	guest       bool
}

// Name implements subcommands.Command.Name.
func (*exitCodeCmd) Name() string {
	return "exitcode"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*exitCodeCmd) Synopsis() string {
	return "translate between emulator exit statuses and guest exit codes"
}

// Usage implements subcommands.Command.Usage.
func (*exitCodeCmd) Usage() string {
	return `exitcode [flags] <value> - decodes an emulator exit status into the code
the kernel wrote to the exit device and the resulting outcome. With -guest the
value is treated as a guest code and the matching exit status is printed.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (c *exitCodeCmd) SetFlags(f *flag.FlagSet) {
	f.UintVar(&c.successCode, "success-code", runner.DefaultSuccessCode, "value the kernel writes on success.")
	f.BoolVar(&c.guest, "guest", false, "treat the value as a guest exit code.")
}

// Execute implements subcommands.Command.Execute.
func (c *exitCodeCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}

	out, err := c.describe(f.Arg(0))
	if err != nil {
		fmt.Println(err)
		return subcommands.ExitUsageError
	}
	fmt.Println(out)
	return subcommands.ExitSuccess
}

func (c *exitCodeCmd) describe(arg string) (string, error) {
	v, err := strconv.ParseUint(arg, 0, 32)
	if err != nil {
		return "", fmt.Errorf("invalid value %q: %w", arg, err)
	}
	success := uint32(c.successCode)

	if c.guest {
		status := runner.HostStatus(uint32(v))
		return fmt.Sprintf("guest code 0x%x: exit status %d, outcome %s", v, status, runner.DecodeExitStatus(status, success)), nil
	}

	code, ok := runner.GuestCode(int(v))
	if !ok {
		return fmt.Sprintf("exit status %d: not produced by the exit device, outcome %s", v, runner.OutcomeUnknown), nil
	}
	return fmt.Sprintf("exit status %d: guest code 0x%x, outcome %s", v, code, runner.DecodeExitStatus(int(v), success)), nil
}
