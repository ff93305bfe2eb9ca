package cmdhelper

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/arxiv/canonical-go/pkg/cmd"
)

// BeforeFunc adapts an ActionFunc into a *cli.Command Before hook. The
// hook leaves the context untouched.
func BeforeFunc(fn cmd.ActionFunc) cli.BeforeFunc {
	return func(ctx context.Context, c *cli.Command) (context.Context, error) {
		return ctx, fn(ctx, c)
	}
}

// NoArgs returns an error if any args are included.
func NoArgs() cmd.ActionFunc {
	return cmd.NoArgs()
}

// ExactArgs returns an error if there are not exactly n args.
func ExactArgs(n int) cmd.ActionFunc {
	return cmd.ExactArgs(n)
}
