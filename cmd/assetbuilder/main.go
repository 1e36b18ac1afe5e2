package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/assetbuilder/cmd/assetbuilder/commands"
	foundationerrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/assetbuilder/internal/version"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	var cli commands.CLI
	parser, err := kong.New(&cli,
		kong.Name("assetbuilder"),
		kong.Description("Incremental tools, data and project build orchestrator"),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)
	if err != nil {
		slog.Error("Failed to create CLI parser", "error", err)
		return 1
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		parser.FatalIfErrorf(err)
		return 1
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	err = kctx.Run(&commands.Global{Ctx: ctx, Logger: slog.Default()}, &cli)
	return foundationerrors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
}
