// Command billctl is the terminal client for the bill tracking API.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/billtrack/billtrack/internal/client"
	"github.com/billtrack/billtrack/internal/session"
)

var errNotLoggedIn = errors.New("not logged in: run `billctl login` first")

// cli holds the state shared by every subcommand.
type cli struct {
	server      string
	sessionPath string
	verbose     bool

	// httpClient is nil unless a custom transport is needed.
	httpClient *http.Client
	store      *session.Store
	logger     *slog.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(&cli{}).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:          "billctl",
		Short:        "Track bills, payment references and paid status",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			path := c.sessionPath
			if path == "" {
				path = session.DefaultPath()
			}
			c.store = session.NewStore(path)

			level := slog.LevelWarn
			if c.verbose {
				level = slog.LevelDebug
			}
			c.logger = slog.New(tint.NewHandler(cmd.ErrOrStderr(), &tint.Options{
				Level:      level,
				TimeFormat: time.Kitchen,
			}))
			return nil
		},
	}

	root.PersistentFlags().StringVar(&c.server, "server", "", "API server URL (overrides the stored session)")
	root.PersistentFlags().StringVar(&c.sessionPath, "session", "", "session file path")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "log debug output to stderr")

	root.AddCommand(
		newLoginCmd(c),
		newLogoutCmd(c),
		newWhoamiCmd(c),
		newDashboardCmd(c),
		newBillsCmd(c),
		newReceiversCmd(c),
		newUsersCmd(c),
	)
	return root
}

// loadSession reads the stored session and applies the --server override.
func (c *cli) loadSession() (session.Session, error) {
	sess, err := c.store.Load()
	if err != nil {
		return session.Session{}, err
	}
	if c.server != "" {
		sess.ServerURL = c.server
	}
	return sess, nil
}

// requireSession is loadSession for commands that need an identity.
func (c *cli) requireSession() (session.Session, error) {
	sess, err := c.loadSession()
	if err != nil {
		return session.Session{}, err
	}
	if !sess.LoggedIn() {
		return session.Session{}, errNotLoggedIn
	}
	return sess, nil
}

func (c *cli) client(sess session.Session) *client.Client {
	return client.New(sess.Server(), c.httpClient)
}

// discardLogger is used while the TUI owns the terminal.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func printf(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}
