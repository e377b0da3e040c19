package main

import (
	"github.com/spf13/cobra"

	"github.com/czczc/inspire-papers-viewer/internal/papersources/inspire"
	"github.com/czczc/inspire-papers-viewer/internal/resolver"
)

var inspireCmd = &cobra.Command{
	Use:   "inspire",
	Short: "Query the INSPIRE literature database",
}

var searchParams inspire.SearchParams

var inspireSearchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search collaboration papers",
	Long: `Search INSPIRE for a collaboration's papers, optionally for one year.

--query replaces the collaboration and year filters with a raw INSPIRE query.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		result, err := newInspireClient().Search(cmd.Context(), searchParams)
		if err != nil {
			return err
		}
		rendered := resolver.RenderAll(result.Records)

		if !humanOutput {
			return outputJSON(map[string]interface{}{
				"query":       result.Query,
				"total_count": result.Total,
				"records":     rendered,
			})
		}
		outputHuman("%s: %d of %d records\n\n", result.Query, len(rendered), result.Total)
		for _, r := range rendered {
			printRendered(r)
		}
		return nil
	},
}

var inspireShowCmd = &cobra.Command{
	Use:   "show <record-id>",
	Short: "Show one literature record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rec, err := newInspireClient().GetByID(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		rendered := resolver.Render(rec)
		if !humanOutput {
			return outputJSON(rendered)
		}
		printRendered(rendered)
		return nil
	},
}

func init() {
	f := inspireSearchCmd.Flags()
	f.StringVar(&searchParams.Collaboration, "collaboration", "", "Collaboration name (default from inspire.default_collaboration)")
	f.IntVar(&searchParams.Year, "year", 0, "Only records dated in this year")
	f.StringVar(&searchParams.Query, "query", "", "Raw INSPIRE search expression")
	f.IntVar(&searchParams.Size, "size", 0, "Number of records (default from inspire.page_size)")
	f.StringVar(&searchParams.Sort, "sort", "", "Sort order: mostrecent or mostcited")

	inspireCmd.AddCommand(inspireSearchCmd, inspireShowCmd)
	rootCmd.AddCommand(inspireCmd)
}
