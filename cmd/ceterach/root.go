// Root command for the ceterach CLI.
package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Riamse/ceterach/mediawiki"
)

// Global flag values.
var (
	flagConfigFile string
	flagURL        string
	flagJSON       bool
)

// client is the shared wiki client, initialized by PersistentPreRunE so
// every subcommand can use it.
var client *mediawiki.Client

var rootCmd = &cobra.Command{
	Use:   "ceterach",
	Short: "Ceterach is a MediaWiki command-line client",
	Long: `Ceterach talks to a MediaWiki wiki through its web API. It can read
and edit pages, inspect categories and users, and look up revisions.

The wiki URL comes from the --url flag, the MEDIAWIKI_URL environment
variable, or a config file.`,
	SilenceUsage:      true,
	PersistentPreRunE: initClient,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigFile, "config", "", "config file (default: $HOME/.ceterach.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagURL, "url", "", "wiki API URL (e.g. https://wiki.example.com/api.php)")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output as JSON")

	rootCmd.AddCommand(pageCmd)
	rootCmd.AddCommand(categoryCmd)
	rootCmd.AddCommand(userCmd)
	rootCmd.AddCommand(revisionCmd)
}

func initClient(cmd *cobra.Command, args []string) error {
	config, err := loadConfig(flagConfigFile, flagURL)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
	client = mediawiki.NewClient(config, logger)
	if config.HasCredentials() {
		ok, err := client.Login(cmd.Context(), config.Username, config.Password)
		if err != nil {
			return err
		}
		if !ok {
			logger.Warn("login rejected, continuing anonymously", "username", config.Username)
		}
	}
	return nil
}
