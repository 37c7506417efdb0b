package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var suggestText string

var suggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "Fuzzy autocomplete over stored previews",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(GetConfig(), GetRootDir())
		if err != nil {
			return err
		}
		defer a.Close()

		suggestions, err := a.suggest.Suggest(cmd.Context(), suggestText)
		if err != nil {
			return fmt.Errorf("autocomplete failed: %w", err)
		}
		if len(suggestions) == 0 {
			fmt.Println("No suggestions.")
			return nil
		}
		for _, s := range suggestions {
			fmt.Println(s)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(suggestCmd)
	suggestCmd.Flags().StringVarP(&suggestText, "query", "q", "", "partial query (required)")
	suggestCmd.MarkFlagRequired("query")
}
