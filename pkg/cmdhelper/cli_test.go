package cmdhelper

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/arxiv/canonical-go/pkg/cmd"
)

func TestBeforeFunc(t *testing.T) {
	sentinel := errors.New("boom")
	var got *cli.Command
	hook := BeforeFunc(func(_ context.Context, c *cli.Command) error {
		got = c
		return sentinel
	})

	ctx := context.Background()
	command := &cli.Command{Name: "test"}
	returned, err := hook(ctx, command)
	require.ErrorIs(t, err, sentinel)
	assert.Equal(t, ctx, returned)
	assert.Same(t, command, got)
}

func TestBeforeFuncPassThrough(t *testing.T) {
	hook := BeforeFunc(func(context.Context, *cli.Command) error { return nil })
	returned, err := hook(context.Background(), &cli.Command{Name: "test"})
	require.NoError(t, err)
	assert.NotNil(t, returned)
}

var _ cmd.ActionFunc = NoArgs()
