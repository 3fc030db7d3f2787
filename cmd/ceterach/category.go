// Category commands for the ceterach CLI.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Riamse/ceterach/mediawiki"
)

var flagLimit int

var categoryCmd = &cobra.Command{
	Use:   "category",
	Short: "Inspect wiki categories",
}

func init() {
	categoryMembersCmd.Flags().IntVar(&flagLimit, "limit", 0, "maximum members to list (0 = all)")
	categoryCmd.AddCommand(categoryMembersCmd)
}

var categoryMembersCmd = &cobra.Command{
	Use:   "members <category>",
	Short: "List the pages and subcategories in a category",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cat, err := client.Category(mediawiki.PageRef{Title: args[0]})
		if err != nil {
			return err
		}
		if err := cat.Populate(ctx, flagLimit); err != nil {
			return err
		}
		members, err := cat.Members(ctx)
		if err != nil {
			return err
		}
		subcats, err := cat.Subcategories(ctx)
		if err != nil {
			return err
		}

		if flagJSON {
			out := map[string]any{
				"category":      cat.Title(),
				"members":       titles(members),
				"subcategories": categoryTitles(subcats),
			}
			return printJSON(out)
		}
		for _, s := range subcats {
			fmt.Printf("[subcategory] %s\n", s.Title())
		}
		for _, m := range members {
			fmt.Println(m.Title())
		}
		return nil
	},
}

func titles(pages []*mediawiki.Page) []string {
	out := make([]string, 0, len(pages))
	for _, p := range pages {
		out = append(out, p.Title())
	}
	return out
}

func categoryTitles(cats []*mediawiki.Category) []string {
	out := make([]string, 0, len(cats))
	for _, c := range cats {
		out = append(out, c.Title())
	}
	return out
}
