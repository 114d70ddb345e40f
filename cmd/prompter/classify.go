package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/jwulff/prompter/internal/classify"
	"github.com/jwulff/prompter/internal/question"
)

type candidateResult struct {
	Text        string   `json:"text"`
	IsTechnical bool     `json:"is_technical"`
	Confidence  float64  `json:"confidence"`
	Category    string   `json:"category,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`
}

func classifyCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "classify <text>",
		Short: "Extract candidate questions from text and classify them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClassify(cmd.OutOrStdout(), strings.Join(args, " "), asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")

	return cmd
}

func runClassify(w io.Writer, text string, asJSON bool) error {
	extractor := question.New()
	classifier := classify.New()

	var results []candidateResult
	for _, c := range extractor.Extract(text) {
		res := classifier.Classify(c)
		results = append(results, candidateResult{
			Text:        c,
			IsTechnical: res.IsTechnical,
			Confidence:  res.Confidence,
			Category:    string(res.Category),
			Keywords:    res.MatchedKeywords,
		})
	}

	if asJSON {
		if results == nil {
			results = []candidateResult{}
		}
		data, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal results: %w", err)
		}
		fmt.Fprintln(w, string(data))
		return nil
	}

	if len(results) == 0 {
		fmt.Fprintln(w, "No candidate questions found.")
		return nil
	}

	for _, r := range results {
		verdict := "not technical"
		if r.IsTechnical {
			verdict = "technical"
		}
		fmt.Fprintf(w, "%s\n  %s (%.2f)", r.Text, verdict, r.Confidence)
		if r.Category != "" {
			fmt.Fprintf(w, " category=%s", r.Category)
		}
		if len(r.Keywords) > 0 {
			fmt.Fprintf(w, " keywords=%s", strings.Join(r.Keywords, ","))
		}
		fmt.Fprintln(w)
	}
	return nil
}
