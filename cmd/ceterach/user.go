// User commands for the ceterach CLI.
package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Inspect wiki users",
}

func init() {
	userCmd.AddCommand(userInfoCmd)
}

var userInfoCmd = &cobra.Command{
	Use:   "info <name>",
	Short: "Show a user's groups, edit count, and block status",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		user := client.User(args[0])
		exists, err := user.Exists(ctx)
		if err != nil {
			return err
		}

		info := map[string]any{
			"name":   user.Name(),
			"exists": exists,
			"is_ip":  user.IsIP(),
		}
		if exists {
			if id, err := user.ID(ctx); err == nil {
				info["user_id"] = id
			}
			if count, err := user.EditCount(ctx); err == nil {
				info["edit_count"] = count
			}
			if groups, err := user.Groups(ctx); err == nil {
				info["groups"] = groups
			}
			if reg, err := user.Registration(ctx); err == nil && !reg.IsZero() {
				info["registration"] = reg.Format(time.RFC3339)
			}
			if block, err := user.Block(ctx); err == nil && block != nil {
				info["blocked_by"] = block.By
				info["block_reason"] = block.Reason
			}
		}

		if flagJSON {
			return printJSON(info)
		}
		fmt.Printf("Name:       %s\n", info["name"])
		fmt.Printf("Exists:     %v\n", info["exists"])
		fmt.Printf("Anonymous:  %v\n", info["is_ip"])
		if exists {
			fmt.Printf("User ID:    %v\n", info["user_id"])
			fmt.Printf("Edits:      %v\n", info["edit_count"])
			if groups, ok := info["groups"].([]string); ok {
				fmt.Printf("Groups:     %s\n", strings.Join(groups, ", "))
			}
			if reg, ok := info["registration"]; ok {
				fmt.Printf("Registered: %v\n", reg)
			}
			if by, ok := info["blocked_by"]; ok {
				fmt.Printf("Blocked by: %v (%v)\n", by, info["block_reason"])
			}
		}
		return nil
	},
}
