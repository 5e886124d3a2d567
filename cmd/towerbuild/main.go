package main

import (
	"log/slog"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/towerbuild/cmd/towerbuild/commands"
	ferrors "git.home.luguber.info/inful/towerbuild/internal/foundation/errors"
	"git.home.luguber.info/inful/towerbuild/internal/version"
)

func main() {
	var cli commands.CLI
	global := &commands.Global{}
	ctx := kong.Parse(&cli,
		kong.Name("towerbuild"),
		kong.Description("Simulate the construction of an apartment tower floor by floor."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
		kong.Bind(global),
	)

	if err := ctx.Run(global, &cli); err != nil {
		ferrors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
	}
}
