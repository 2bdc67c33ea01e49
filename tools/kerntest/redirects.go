package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"
	"kestrel/tools/kerntest/redirects"
)

// redirectsCmd implements subcommands.Command for the "redirects" command.
type redirectsCmd struct {
	root   string
	subdir string
}

// Name implements subcommands.Command.Name.
func (*redirectsCmd) Name() string {
	return "redirects"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*redirectsCmd) Synopsis() string {
	return "count or populate the runtime redirect table of a kernel image"
}

// Usage implements subcommands.Command.Usage.
func (*redirectsCmd) Usage() string {
	return `redirects [flags] count
redirects [flags] populate <kernel-image>

count prints the number of //go:redirect-from directives so the linker
script can reserve room for the table. populate resolves their addresses in
the linked image and writes the table.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (c *redirectsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.root, "root", ".", "module root containing go.mod.")
	f.StringVar(&c.subdir, "dir", "kernel", "directory below the module root to scan.")
}

// Execute implements subcommands.Command.Execute.
func (c *redirectsCmd) Execute(_ context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	g := args[0].(*globals)

	list, err := redirects.Find(c.root, c.subdir)
	if err != nil {
		g.log.WithError(err).Error("scanning for redirects")
		return subcommands.ExitFailure
	}

	switch f.Arg(0) {
	case "count":
		fmt.Println(len(list))
	case "populate":
		if f.NArg() != 2 {
			f.Usage()
			return subcommands.ExitUsageError
		}
		img := f.Arg(1)
		if err := redirects.ResolveSymbols(list, img); err != nil {
			g.log.WithError(err).Error("resolving redirect symbols")
			return subcommands.ExitFailure
		}
		if err := redirects.WriteTable(list, img); err != nil {
			g.log.WithError(err).Error("writing redirect table")
			return subcommands.ExitFailure
		}
		for _, r := range list {
			g.log.WithField("image", img).Debugf("redirect %s (0x%x) -> %s (0x%x)", r.Src, r.SrcVMA, r.Dst, r.DstVMA)
		}
		g.log.WithField("image", img).Infof("wrote %d redirects", len(list))
	default:
		f.Usage()
		return subcommands.ExitUsageError
	}
	return subcommands.ExitSuccess
}
