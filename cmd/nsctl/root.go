package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/fedfs/internal/infrastructure/config"
	"github.com/GriffinCanCode/fedfs/internal/infrastructure/logging"
	"github.com/GriffinCanCode/fedfs/internal/namespace"
)

var errUsage = errors.New("invalid usage")

// app holds what every subcommand runs against
type app struct {
	client *namespace.Client
	cfg    *config.ClientConfig
	log    *logging.Logger
	in     io.Reader
	out    io.Writer
	errOut io.Writer
}

// rootCmd builds a fresh command tree bound to a
func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "nsctl",
		Short: "Command line client for a namespace server",
		Long: `nsctl drives a namespace server over JSON-RPC.

The server address and credentials come from NS_URL and NS_API_KEY.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(a.in)
	root.SetOut(a.out)
	root.SetErr(a.errOut)
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageError(cmd, err)
	})

	root.AddCommand(
		a.lsCmd(),
		a.catCmd(),
		a.putCmd(),
		a.rmCmd(),
		a.mkdirCmd(),
		a.rmdirCmd(),
		a.mvCmd(),
		a.mountsCmd(),
		a.savedCmd(),
		a.saveCmd(),
		a.applyCmd(),
		a.loadCmd(),
		a.unmountCmd(),
		a.forgetCmd(),
		a.syncCmd(),
		a.globCmd(),
		a.grepCmd(),
		a.watchCmd(),
	)
	return root
}

// execute runs the command line args, without the program name
func (a *app) execute(ctx context.Context, args []string) error {
	root := a.rootCmd()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// positional wraps an argument check so a miscount prints the command's
// usage line and reports errUsage.
func positional(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			return usageError(cmd, err)
		}
		return nil
	}
}

func usageError(cmd *cobra.Command, err error) error {
	fmt.Fprintf(cmd.ErrOrStderr(), "Usage: %s\n", cmd.UseLine())
	return fmt.Errorf("%w: %v", errUsage, err)
}
