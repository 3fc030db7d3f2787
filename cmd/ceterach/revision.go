// Revision commands for the ceterach CLI.
package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

var flagShowContent bool

var revisionCmd = &cobra.Command{
	Use:   "revision <id>",
	Short: "Show one revision of a page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("revision id must be a number: %q", args[0])
		}
		rev := client.Revision(id)
		summary, err := rev.Summary(ctx)
		if err != nil {
			return err
		}

		info := map[string]any{
			"revision_id": rev.ID(),
			"summary":     summary,
		}
		if ts, err := rev.Timestamp(ctx); err == nil {
			info["timestamp"] = ts.Format(time.RFC3339)
		}
		if editor, err := rev.Editor(ctx); err == nil && editor != nil {
			info["editor"] = editor.Name()
		}
		if minor, err := rev.IsMinor(ctx); err == nil {
			info["minor"] = minor
		}
		if deleted, err := rev.IsDeleted(ctx); err == nil {
			info["deleted"] = deleted
		}
		if flagShowContent {
			if content, err := rev.Content(ctx); err == nil {
				info["content"] = content
			}
		}

		if flagJSON {
			return printJSON(info)
		}
		fmt.Printf("Revision:  %v\n", info["revision_id"])
		fmt.Printf("Summary:   %v\n", info["summary"])
		fmt.Printf("Timestamp: %v\n", info["timestamp"])
		fmt.Printf("Editor:    %v\n", info["editor"])
		fmt.Printf("Minor:     %v\n", info["minor"])
		fmt.Printf("Deleted:   %v\n", info["deleted"])
		if content, ok := info["content"]; ok {
			fmt.Println()
			fmt.Println(content)
		}
		return nil
	},
}

func init() {
	revisionCmd.Flags().BoolVar(&flagShowContent, "content", false, "print the revision's wikitext")
}
