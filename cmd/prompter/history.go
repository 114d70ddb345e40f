package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jwulff/prompter/internal/db"
)

type historyStore interface {
	RecentQuestions(ctx context.Context, limit int) ([]db.Question, error)
	AnswerForQuestion(ctx context.Context, questionID string) (*db.Answer, error)
}

func historyCmd() *cobra.Command {
	var (
		limit   int
		answers bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recently detected questions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			path := cfg.DBPath
			if path == "" {
				path = db.DefaultDBPath()
			}
			if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
				fmt.Fprintln(cmd.OutOrStdout(), "No history yet.")
				return nil
			}

			store, err := db.OpenReadOnly(path)
			if err != nil {
				return err
			}
			defer store.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			return runHistory(ctx, store, cmd.OutOrStdout(), limit, answers)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of questions")
	cmd.Flags().BoolVarP(&answers, "answers", "a", false, "Include stored answers")

	return cmd
}

func runHistory(ctx context.Context, store historyStore, w io.Writer, limit int, withAnswers bool) error {
	questions, err := store.RecentQuestions(ctx, limit)
	if err != nil {
		return fmt.Errorf("list questions: %w", err)
	}
	if len(questions) == 0 {
		fmt.Fprintln(w, "No history yet.")
		return nil
	}

	for _, q := range questions {
		fmt.Fprintf(w, "[%s] %s", q.CapturedAt.Local().Format("2006-01-02 15:04:05"), q.Text)
		if q.Category != "" {
			fmt.Fprintf(w, " (%s, %.0f%%)", q.Category, q.Confidence*100)
		}
		fmt.Fprintln(w)

		if !withAnswers {
			continue
		}
		a, err := store.AnswerForQuestion(ctx, q.ID)
		if err != nil {
			return fmt.Errorf("load answer: %w", err)
		}
		if a != nil {
			fmt.Fprintf(w, "    %s\n", a.Text)
		}
	}
	return nil
}
