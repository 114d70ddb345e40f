// Command prompter listens to a conversation, picks out technical questions
// and fetches short answers for them.
package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/jwulff/prompter/internal/app"
	"github.com/jwulff/prompter/internal/config"
	"github.com/jwulff/prompter/internal/logging"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "prompter",
		Short: "Live technical question detection with instant answers",
		Long: `Prompter transcribes a conversation through a speech recognizer, detects
technical questions and answers them on request.

Environment variables (a .env file is read first):
  OPENAI_API_KEY            API key for answers (or PROMPTER_OPENAI_API_KEY)
  PROMPTER_MODEL            Model name (default: gpt-4o-mini)
  PROMPTER_SOCKET_PATH      Recognizer daemon socket
  PROMPTER_CAPTURE_URL      Websocket recognizer URL (overrides the socket)
  PROMPTER_DB_PATH          History database path
  PROMPTER_LOG_DIR          Write rotated logs to this directory
  PROMPTER_LOG_LEVEL        debug, info, warn or error (default: info)`,
		Version:      version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI()
		},
	}

	rootCmd.AddCommand(askCmd())
	rootCmd.AddCommand(classifyCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(mcpCmd())

	return rootCmd
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runTUI() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// The terminal belongs to the TUI; logs go to a file or nowhere.
	logger, err := logging.NewLogger(cfg.Log, nil)
	if err != nil {
		return err
	}
	config.LogEnvStatus(cfg, logger)

	p := tea.NewProgram(app.New(app.Options{Config: cfg, Logger: logger}), tea.WithAltScreen())
	final, err := p.Run()
	if m, ok := final.(app.Model); ok {
		if cerr := m.Close(); cerr != nil {
			logger.Warn("shutdown_failed", "err", cerr)
		}
	}
	if err != nil {
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}
