// Page commands for the ceterach CLI.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Riamse/ceterach/mediawiki"
)

var (
	flagFollowRedirects bool
	flagSummary         string
	flagMinor           bool
	flagBot             bool
	flagCreate          bool
	flagContentFile     string
	flagReason          string
	flagNoRedirect      bool
)

var pageCmd = &cobra.Command{
	Use:   "page",
	Short: "Read and edit wiki pages",
}

func init() {
	pageGetCmd.Flags().BoolVar(&flagFollowRedirects, "follow-redirects", false, "follow a redirect to its target")
	pageInfoCmd.Flags().BoolVar(&flagFollowRedirects, "follow-redirects", false, "follow a redirect to its target")

	pageEditCmd.Flags().StringVar(&flagSummary, "summary", "", "edit summary")
	pageEditCmd.Flags().BoolVar(&flagMinor, "minor", false, "mark the edit as minor")
	pageEditCmd.Flags().BoolVar(&flagBot, "bot", false, "mark the edit as a bot edit")
	pageEditCmd.Flags().BoolVar(&flagCreate, "create", false, "create the page; fail if it already exists")
	pageEditCmd.Flags().StringVar(&flagContentFile, "file", "", "read content from file instead of stdin")

	pageMoveCmd.Flags().StringVar(&flagReason, "reason", "", "reason for the move")
	pageMoveCmd.Flags().BoolVar(&flagNoRedirect, "no-redirect", false, "do not leave a redirect behind")
	pageDeleteCmd.Flags().StringVar(&flagReason, "reason", "", "reason for the deletion")

	pageCmd.AddCommand(pageGetCmd)
	pageCmd.AddCommand(pageInfoCmd)
	pageCmd.AddCommand(pageEditCmd)
	pageCmd.AddCommand(pageMoveCmd)
	pageCmd.AddCommand(pageDeleteCmd)
}

var pageGetCmd = &cobra.Command{
	Use:   "get <title>",
	Short: "Print a page's wikitext",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		page, err := client.Page(mediawiki.PageRef{Title: args[0], FollowRedirects: flagFollowRedirects})
		if err != nil {
			return err
		}
		content, err := page.Content(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Println(content)
		return nil
	},
}

var pageInfoCmd = &cobra.Command{
	Use:   "info <title>",
	Short: "Show a page's metadata",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		page, err := client.Page(mediawiki.PageRef{Title: args[0], FollowRedirects: flagFollowRedirects})
		if err != nil {
			return err
		}
		exists, err := page.Exists(ctx)
		if err != nil {
			return err
		}

		info := map[string]any{
			"title":  page.Title(),
			"exists": exists,
		}
		if exists {
			info["page_id"] = page.ID()
			if ns, err := page.Namespace(ctx); err == nil {
				info["namespace"] = ns
			}
			if revID, err := page.RevID(ctx); err == nil {
				info["revision_id"] = revID
			}
			if redirect, err := page.IsRedirect(ctx); err == nil {
				info["is_redirect"] = redirect
			}
			if editor, err := page.LastEditor(ctx); err == nil && editor != nil {
				info["last_editor"] = editor.Name()
			}
		}

		if flagJSON {
			return printJSON(info)
		}
		fmt.Printf("Title:     %s\n", info["title"])
		fmt.Printf("Exists:    %v\n", info["exists"])
		if exists {
			fmt.Printf("Page ID:   %v\n", info["page_id"])
			fmt.Printf("Namespace: %v\n", info["namespace"])
			fmt.Printf("Revision:  %v\n", info["revision_id"])
			fmt.Printf("Redirect:  %v\n", info["is_redirect"])
			if editor, ok := info["last_editor"]; ok {
				fmt.Printf("Last edit: %v\n", editor)
			}
		}
		return nil
	},
}

var pageEditCmd = &cobra.Command{
	Use:   "edit <title>",
	Short: "Replace a page's content from stdin or a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var content []byte
		var err error
		if flagContentFile != "" {
			content, err = os.ReadFile(flagContentFile)
		} else {
			content, err = io.ReadAll(os.Stdin)
		}
		if err != nil {
			return fmt.Errorf("read content: %w", err)
		}

		page, err := client.Page(mediawiki.PageRef{Title: args[0]})
		if err != nil {
			return err
		}
		opts := mediawiki.EditOptions{Summary: flagSummary, Minor: flagMinor, Bot: flagBot}
		if flagCreate {
			err = page.Create(cmd.Context(), string(content), opts)
		} else {
			err = page.Edit(cmd.Context(), string(content), opts)
		}
		if err != nil {
			return err
		}
		fmt.Printf("Saved %s\n", page.Title())
		return nil
	},
}

var pageMoveCmd = &cobra.Command{
	Use:   "move <from> <to>",
	Short: "Rename a page",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		page, err := client.Page(mediawiki.PageRef{Title: args[0]})
		if err != nil {
			return err
		}
		opts := mediawiki.MoveOptions{NoRedirect: flagNoRedirect}
		if err := page.Move(cmd.Context(), args[1], flagReason, opts); err != nil {
			return err
		}
		fmt.Printf("Moved %s to %s\n", args[0], page.Title())
		return nil
	},
}

var pageDeleteCmd = &cobra.Command{
	Use:   "delete <title>",
	Short: "Delete a page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		page, err := client.Page(mediawiki.PageRef{Title: args[0]})
		if err != nil {
			return err
		}
		if err := page.Delete(cmd.Context(), flagReason); err != nil {
			return err
		}
		fmt.Printf("Deleted %s\n", args[0])
		return nil
	},
}

func printJSON(v any) error {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	fmt.Println(string(output))
	return nil
}
