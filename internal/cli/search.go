package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	searchText string
	searchJSON bool
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search ingested content by meaning",
	Long: `Embed the query and list the closest stored chunks, closest first.

Examples:
  portal search -q "refund policy"
  portal search -q "refund policy" --json`,
	Args: cobra.NoArgs,
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().StringVarP(&searchText, "query", "q", "", "search query (required)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output as JSON")
	searchCmd.MarkFlagRequired("query")
}

func runSearch(cmd *cobra.Command, args []string) error {
	a, err := newApp(GetConfig(), GetRootDir())
	if err != nil {
		return err
	}
	defer a.Close()

	results, err := a.search.Search(cmd.Context(), searchText)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		output, _ := json.MarshalIndent(results, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}
	fmt.Printf("Found %d results for: %s\n\n", len(results), searchText)
	for i, r := range results {
		fmt.Printf("--- [%d] distance: %.4f ---\n", i+1, r.Score)
		fmt.Println(strings.TrimSpace(r.Preview))
		fmt.Println()
	}
	return nil
}
