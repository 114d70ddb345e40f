package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jwulff/prompter/internal/answer"
	"github.com/jwulff/prompter/internal/logging"
)

type answerer interface {
	GetAnswer(ctx context.Context, question string, notify func(answer.Update)) (answer.Result, error)
}

func askCmd() *cobra.Command {
	var noStream bool

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question and print it to stdout",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if noStream {
				cfg.Stream = false
			}

			logger, err := logging.NewLogger(cfg.Log, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			if cfg.RequestTimeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, cfg.RequestTimeout)
				defer cancel()
			}

			client := answer.NewClient(cfg.AnswerConfig(), answer.WithLogger(logger))
			return runAsk(ctx, client, strings.Join(args, " "), cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&noStream, "no-stream", false, "Wait for the whole answer instead of streaming")

	return cmd
}

// runAsk prints streamed text as it grows, then whatever the final answer
// adds.
func runAsk(ctx context.Context, a answerer, question string, w io.Writer) error {
	printed := 0
	res, err := a.GetAnswer(ctx, question, func(u answer.Update) {
		if u.State == answer.Streaming && len(u.Text) > printed {
			fmt.Fprint(w, u.Text[printed:])
			printed = len(u.Text)
		}
	})
	if err != nil {
		if printed > 0 {
			fmt.Fprintln(w)
		}
		return fmt.Errorf("ask: %w", err)
	}

	if len(res.Answer) > printed {
		fmt.Fprint(w, res.Answer[printed:])
	}
	fmt.Fprintln(w)
	return nil
}
