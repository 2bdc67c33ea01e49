// Command kerntest boots kernel test images under an emulator and checks the
// outcome they report through the emulator's debug exit device.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"
	"github.com/sirupsen/logrus"
)

var (
	configPath = flag.String("config", "kerntest.toml", "path to the kerntest config file.")
	debug      = flag.Bool("debug", false, "enable debug logging.")
	logFormat  = flag.String("log-format", "text", "log format: text or json.")
)

// globals is passed to every command's Execute method.
type globals struct {
	configPath string
	log        *logrus.Logger
}

func newLogger(format string, debug bool) (*logrus.Logger, error) {
	log := logrus.New()
	log.SetOutput(os.Stderr)

	switch format {
	case "text":
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, errUnknownLogFormat(format)
	}

	if debug {
		log.SetLevel(logrus.DebugLevel)
	}
	return log, nil
}

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(&runCmd{}, "")
	subcommands.Register(&listCmd{}, "")
	subcommands.Register(&exitCodeCmd{}, "")
	subcommands.Register(&redirectsCmd{}, "")

	flag.Parse()

	log, err := newLogger(*logFormat, *debug)
	if err != nil {
		logrus.Fatal(err)
	}

	g := &globals{configPath: *configPath, log: log}
	os.Exit(int(subcommands.Execute(context.Background(), g)))
}
