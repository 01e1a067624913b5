package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MrWong99/typeassist/internal/app"
	"github.com/MrWong99/typeassist/pkg/types"
)

var (
	correctMode     string
	correctSeverity string
	correctLanguage string
	correctDomain   string
	correctJSON     bool

	suggestContext string
	suggestDomain  string

	predictN int
)

var correctCmd = &cobra.Command{
	Use:   "correct [text]",
	Short: "Correct a text once and print the result",
	Long: `Correct the given text, or standard input when no argument is given, and
print the corrected text. With --json the full result is printed instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.Join(args, " ")
		if len(args) == 0 {
			b, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("read stdin: %w", err)
			}
			text = strings.TrimRight(string(b), "\n")
		}
		mode, err := types.ParseMode(correctMode)
		if err != nil {
			return err
		}
		sev, err := types.ParseSeverity(correctSeverity)
		if err != nil {
			return err
		}

		return withApp(cmd, func(a *app.App) error {
			res, cerr := a.Orchestrator().CorrectText(cmd.Context(), types.Request{
				Text:     text,
				Mode:     mode,
				Severity: sev,
				Language: correctLanguage,
				Domain:   correctDomain,
			})
			if res == nil {
				return cerr
			}
			if correctJSON {
				if err := printJSON(cmd, res); err != nil {
					return err
				}
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), res.CorrectedText)
				for _, n := range res.Notes {
					fmt.Fprintln(cmd.ErrOrStderr(), "note:", n)
				}
			}
			return cerr
		})
	},
}

var suggestCmd = &cobra.Command{
	Use:   "suggest <word>",
	Short: "List ranked suggestions for a word",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app.App) error {
			sugg := a.Orchestrator().GetSuggestions(args[0], suggestContext, suggestDomain)
			if len(sugg) == 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), "no suggestions")
				return nil
			}
			for _, s := range sugg {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%.2f\t%s\n", s.Word, s.Confidence, s.Source)
			}
			return nil
		})
	},
}

var predictCmd = &cobra.Command{
	Use:   "predict <prefix>",
	Short: "Complete a word prefix",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if predictN < 0 {
			return errors.New("-n must not be negative")
		}
		return withApp(cmd, func(a *app.App) error {
			for _, p := range a.Orchestrator().Predict(args[0], predictN) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\n", p.Word, p.Frequency)
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(correctCmd, suggestCmd, predictCmd)

	correctCmd.Flags().StringVarP(&correctMode, "mode", "m", "comprehensive", "spelling, grammar, clarity or comprehensive")
	correctCmd.Flags().StringVarP(&correctSeverity, "severity", "s", "medium", "low, medium, high or maximum")
	correctCmd.Flags().StringVarP(&correctLanguage, "language", "l", "", "language hint passed to the remote backend")
	correctCmd.Flags().StringVarP(&correctDomain, "domain", "d", "", "dictionary domain to boost (e.g. medical)")
	correctCmd.Flags().BoolVar(&correctJSON, "json", false, "print the full result as JSON")

	suggestCmd.Flags().StringVar(&suggestContext, "context", "", "surrounding text used to rank suggestions")
	suggestCmd.Flags().StringVarP(&suggestDomain, "domain", "d", "", "dictionary domain to boost")

	predictCmd.Flags().IntVarP(&predictN, "n", "n", 0, "number of completions (0 uses max_suggestions)")
}

// withApp builds the application, runs fn and shuts it down so learned words
// are saved.
func withApp(cmd *cobra.Command, fn func(*app.App) error) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	runErr := fn(a)
	return errors.Join(runErr, shutdown(a))
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
