package cmd

import (
	"fmt"
	"text/tabwriter"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"jobtally/internal/store"
	"jobtally/internal/tui"
)

var historyNoTUI bool

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse archived runs",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived runs, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := store.NewSQLiteStore(cfg.DatabasePath())
		if err != nil {
			return fmt.Errorf("open archive: %w", err)
		}
		defer s.Close()

		runs, err := s.ListRuns(cmd.Context())
		if err != nil {
			return fmt.Errorf("list runs: %w", err)
		}
		out := cmd.OutOrStdout()
		if len(runs) == 0 {
			fmt.Fprintln(out, "No archived runs. Use 'jobtally run' to create one.")
			return nil
		}

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tGENERATED\tDAYS\tTOTAL\tDATED\tSKIPPED\tFAILED")
		fmt.Fprintln(w, "──\t─────────\t────\t─────\t─────\t───────\t──────")
		for _, r := range runs {
			fmt.Fprintf(w, "%s\t%s (%s)\t%d\t%s\t%s\t%d\t%d\n",
				r.ID, r.GeneratedAt.Local().Format("2006-01-02 15:04"), humanize.Time(r.GeneratedAt),
				r.WindowDays, humanize.Comma(int64(r.Total)), humanize.Comma(int64(r.Resolved)),
				r.Skipped, r.Failed)
		}
		w.Flush()
		fmt.Fprintf(out, "\n%d run(s)\n", len(runs))
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show an archived run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := store.NewSQLiteStore(cfg.DatabasePath())
		if err != nil {
			return fmt.Errorf("open archive: %w", err)
		}
		defer s.Close()

		r, err := s.LoadReport(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if historyNoTUI {
			printSummary(cmd.OutOrStdout(), r)
			return nil
		}
		appModel := tui.NewReportModel(r)
		p := tea.NewProgram(&appModel, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
		appModel.SetProgram(p)
		_, err = p.Run()
		return err
	},
}

var historyRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete an archived run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := store.NewSQLiteStore(cfg.DatabasePath())
		if err != nil {
			return fmt.Errorf("open archive: %w", err)
		}
		defer s.Close()

		if err := s.DeleteRun(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted run %s\n", args[0])
		return nil
	},
}

func init() {
	historyShowCmd.Flags().BoolVar(&historyNoTUI, "no-tui", false, "print the report instead of opening the terminal view")
	historyCmd.AddCommand(historyListCmd, historyShowCmd, historyRmCmd)
	rootCmd.AddCommand(historyCmd)
}
