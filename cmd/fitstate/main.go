package main

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/fitstate/cmd/fitstate/commands"
	"git.home.luguber.info/inful/fitstate/internal/foundation/errors"
	"git.home.luguber.info/inful/fitstate/internal/version"
)

func main() {
	cli := &commands.CLI{}
	parser := kong.Parse(cli,
		kong.Name("fitstate"),
		kong.Description("Process-local state store with history and synchronous subscriptions."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)

	err := parser.Run(&commands.Global{Logger: slog.Default(), Out: os.Stdout}, cli)
	errors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
}
