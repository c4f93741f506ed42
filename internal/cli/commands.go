package cli

import (
	"github.com/spf13/cobra"

	"github.com/dshills/codecheck/internal/analysis"
)

// Mode-specific flags
var (
	flagEngine      string
	flagIndent      string
	flagBrace       string
	flagComma       string
	flagSummaryOnly bool
	flagGPTFeedback bool
)

var formatCmd = &cobra.Command{
	Use:   "format [files...]",
	Short: "Format files with the rule engine or GPT",
	Long: "Format files with the rule-based formatter (java, sql, jsp, py, js, html) " +
		"or, with --engine gpt, the GPT formatter. Other file types are skipped.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBatch(analysis.ModeFormat, args)
	},
}

var reviewCmd = &cobra.Command{
	Use:   "review [files...]",
	Short: "Review and refactor files with GPT",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBatch(analysis.ModeReview, args)
	},
}

var scanCmd = &cobra.Command{
	Use:   "scan [files...]",
	Short: "Run static analysis on files",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBatch(analysis.ModeScan, args)
	},
}

func init() {
	for _, cmd := range []*cobra.Command{formatCmd, reviewCmd, scanCmd} {
		addRunFlags(cmd)
		cmd.Flags().StringVar(&flagModel, "model", "", "GPT model name")
	}

	formatCmd.Flags().StringVar(&flagEngine, "engine", "", "Formatter engine (rule, gpt)")
	formatCmd.Flags().StringVar(&flagIndent, "indent", "", "Indentation (2, 4, 8, tab)")
	formatCmd.Flags().StringVar(&flagBrace, "brace", "", "Brace style (same-line, next-line)")
	formatCmd.Flags().StringVar(&flagComma, "comma", "", "Comma placement (leading, trailing)")

	reviewCmd.Flags().BoolVar(&flagSummaryOnly, "summary-only", false, "Only return the review summary")

	scanCmd.Flags().BoolVar(&flagGPTFeedback, "gpt-feedback", false, "Ask GPT to comment on the findings")
}
