// Package server implements the read-only repository service.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/urfave/cli/v3"

	"github.com/arxiv/canonical-go/pkg/canonical/register"
	"github.com/arxiv/canonical-go/pkg/canonical/roles"
	"github.com/arxiv/canonical-go/pkg/cmdhelper"
	"github.com/arxiv/canonical-go/pkg/commands/internal/options"
	"github.com/arxiv/canonical-go/pkg/xlog"
)

// New creates a new serve command.
func New() *Command {
	return NewCommand()
}

// NewCommand returns a command with default values.
func NewCommand() *Command {
	return &Command{
		Common: options.NewCommonOptions(),
		Record: options.NewRecordOptions(),
		Server: options.NewServerOptions(),
	}
}

// Command starts the read-only repository service.
type Command struct {
	Common *options.CommonOptions
	Record *options.RecordOptions
	Server *options.ServerOptions
}

// ToCLI transforms to a *cli.Command.
func (c *Command) ToCLI() *cli.Command {
	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"server"},
		Usage:   "Serve the record over a read-only HTTP API",
		UsageText: `canon serve --record /data/record [OPTIONS]

# Serve with default port 8080
$ canon serve --record /data/record

# Serve with custom port
$ canon serve --record /data/record --port 9000
`,
		Flags:  c.Flags(),
		Before: cmdhelper.BeforeFunc(cmdhelper.NoArgs()),
		Action: c.Run,
	}
}

// Flags defines the flags related to the current command.
func (c *Command) Flags() []cli.Flag {
	flags := []cli.Flag{}
	flags = append(flags, c.Common.Flags()...)
	flags = append(flags, c.Record.Flags()...)
	flags = append(flags, c.Server.Flags()...)
	return flags
}

// Run is the main function for the current command.
func (c *Command) Run(ctx context.Context, cmd *cli.Command) error {
	if err := options.LoadConfig(c.Common.Config, c); err != nil {
		return err
	}
	c.Common.SetupLogger()

	storage, err := c.Record.Storage()
	if err != nil {
		return err
	}
	reg, err := register.Open(ctx, storage, c.Record.Sources()...)
	if err != nil {
		return err
	}
	repository := roles.NewRepository(reg)

	address := c.Server.Address()
	xlog.C(ctx).Infof("Starting repository service %s", address)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	NewHandler(repository, storage).Register(router)

	srv := &http.Server{
		Addr:              address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			xlog.C(ctx).Error("Server error", "error", err)
		}
	}()

	cmdhelper.Fprintf(cmd.Writer, "Repository service started at http://%s\n", address)
	cmdhelper.Fprintf(cmd.Writer, "Press Ctrl+C to stop the server\n")

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second) //nolint:gomnd // disable magic number lint error
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		xlog.C(ctx).Error("Server shutdown failed", "error", err)
		return err
	}

	xlog.C(ctx).Info("Server stopped")
	return nil
}
