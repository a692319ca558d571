package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"jobtally/internal/model"
	"jobtally/internal/query"
)

var (
	queryDays   int
	queryPhrase string
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Print the Gmail search queries a run would send",
	Long: `Print the per-phrase queries and the combined query without contacting
Gmail. The output can be pasted into the Gmail search box to check a phrase.

Examples:
  jobtally query
  jobtally query --phrase "thank you for applying"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		loc, err := cfg.Location()
		if err != nil {
			return err
		}
		window := cfg.Search.WindowDays
		if cmd.Flags().Changed("days") {
			window = queryDays
		}
		b := query.NewBuilder(loc)
		out := cmd.OutOrStdout()

		taxonomy := cfg.Taxonomy()
		if queryPhrase != "" {
			p, ok := findPhrase(taxonomy, queryPhrase)
			if !ok {
				p = model.Phrase{Text: queryPhrase}
			}
			fmt.Fprintln(out, b.ForPhrase(p, window))
			return nil
		}

		for _, p := range taxonomy {
			fmt.Fprintf(out, "%-8s %s\n", p.Scope, b.ForPhrase(p, window))
		}
		fmt.Fprintf(out, "\ncombined %s\n", b.ForTaxonomy(taxonomy, window))
		return nil
	},
}

func findPhrase(t model.Taxonomy, text string) (model.Phrase, bool) {
	for _, p := range t {
		if strings.EqualFold(p.Text, text) {
			return p, true
		}
	}
	return model.Phrase{}, false
}

func init() {
	queryCmd.Flags().IntVar(&queryDays, "days", 0, "look-back window in days (default from config)")
	queryCmd.Flags().StringVar(&queryPhrase, "phrase", "", "print the query for one phrase only")
	rootCmd.AddCommand(queryCmd)
}
