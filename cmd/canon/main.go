// Package main is the entry of the application.
package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/arxiv/canonical-go/pkg/cmdhelper"
	"github.com/arxiv/canonical-go/pkg/commands"
	"github.com/arxiv/canonical-go/pkg/commands/server"
)

func main() {
	app := cli.Command{
		Name:                  "canon",
		Usage:                 "canon maintains the canonical record of announced e-prints",
		Suggest:               true,
		EnableShellCompletion: true,
		HideVersion:           true,
		HideHelpCommand:       true,
		Commands: []*cli.Command{
			commands.NewVersionCommand().ToCLI(),
			commands.NewBackfillCommand().ToCLI(),
			commands.NewValidateCommand().ToCLI(),
			server.New().ToCLI(),
		},
		ExitErrHandler: func(ctx context.Context, c *cli.Command, err error) {
			cli.HandleExitCoder(err)
			cmdhelper.Fprintf(c.ErrWriter, "Error: %+v\n", err)
			os.Exit(1)
		},
	}
	//nolint:errcheck // already checked in root command ExitErrHandler
	_ = app.Run(context.Background(), os.Args)
}
