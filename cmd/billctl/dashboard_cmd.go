package main

import (
	"fmt"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/billtrack/billtrack/internal/dashboard"
	"github.com/billtrack/billtrack/internal/tui"
)

func newDashboardCmd(c *cli) *cobra.Command {
	var logFile string

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Open the interactive bill dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := c.loadSession()
			if err != nil {
				return err
			}

			// The TUI owns the terminal, so logs only go to a file.
			logger := discardLogger()
			if logFile != "" {
				f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
				if err != nil {
					return fmt.Errorf("open log file: %w", err)
				}
				defer f.Close()
				logger = slog.New(slog.NewJSONHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug}))
			}

			d := dashboard.New(sess)
			app := tui.NewApp(d, c.client(sess), logger, c.loadSession)
			p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
			if _, err := p.Run(); err != nil {
				return fmt.Errorf("TUI error: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&logFile, "log-file", "", "write debug logs to this file")
	return cmd
}
