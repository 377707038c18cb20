// Package cli implements the license command-line client.
package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/gophlicense/internal/client/config"
	"github.com/dmitrijs2005/gophlicense/internal/client/license"
	"github.com/dmitrijs2005/gophlicense/internal/common"
	"github.com/spf13/cobra"
)

// ErrRejected means the server answered with a failure outcome. The outcome
// itself has already been printed.
var ErrRejected = errors.New("request rejected")

type App struct {
	cfg    *config.Config
	client *license.Client
	in     *bufio.Reader
	out    io.Writer
}

// NewRootCommand builds the command tree reading prompts from in and
// printing to out.
func NewRootCommand(in io.Reader, out io.Writer) *cobra.Command {
	app := &App{in: bufio.NewReader(in), out: out}

	var (
		configPath string
		addr       string
		timeout    time.Duration
	)

	cmd := &cobra.Command{
		Use:           "gophlicense",
		Short:         "Client for the license server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.ServerAddr = addr
			}
			if cmd.Flags().Changed("timeout") {
				cfg.ReplyTimeout = timeout
			}
			app.cfg = cfg
			app.client = license.NewClient(cfg.ServerAddr, cfg.DialTimeout, cfg.ReplyTimeout)
			return nil
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "", "Path to a JSON config file")
	pf.StringVarP(&addr, "addr", "a", "", "Server address (host:port)")
	pf.DurationVarP(&timeout, "timeout", "t", 0, "Reply timeout, e.g. 30s")

	cmd.AddCommand(app.newRegisterCommand())
	cmd.AddCommand(app.newLoginCommand())
	cmd.AddCommand(app.newAddKeyCommand())
	cmd.AddCommand(app.newValidateCommand())
	return cmd
}

// report prints the outcome and maps anything but want to ErrRejected.
func (a *App) report(o common.Outcome, want common.Outcome) error {
	fmt.Fprintln(a.out, string(o))
	if o != want {
		return ErrRejected
	}
	return nil
}
