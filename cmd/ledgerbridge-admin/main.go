// Command ledgerbridge-admin manages the credentials and state of a
// ledgerbridge installation.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"

	"ledgerbridge/internal/cli"
)

func main() {
	cli.LoadEnvFile()
	cli.SetupLogger("admin")

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")

	for _, c := range commands {
		commander.Register(c, "")
	}
	commander.Register(&syncCmd{}, "operations")
	commander.Register(&budgetsCmd{}, "operations")
	commander.Register(&showCmd{}, "operations")

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
