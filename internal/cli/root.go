// Package cli implements the skyportal command-line interface.
package cli

import (
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/time/rate"

	"github.com/helioscope/skyportal/pkg/portalsdk"
	"github.com/helioscope/skyportal/pkg/querycache"
	"github.com/helioscope/skyportal/pkg/slogx"
)

var rootDescription = `
skyportal is a client for the Helioscope user portal API. It manages access
tokens (create, list, delete), shows the authenticated user's identity and
change history, and discovers which platform services are available.

Configuration flags can also be supplied as SKYPORTAL_* environment
variables, e.g. SKYPORTAL_BASE_URL.
`

var rootCmd = &cobra.Command{
	Use:               "skyportal <command> [flags]",
	Short:             "client for the Helioscope user portal",
	Long:              rootDescription,
	SilenceUsage:      true,
	DisableAutoGenTag: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger = slogx.New(slogx.Options{
			Level:  viper.GetString("log-level"),
			Format: viper.GetString("log-format"),
		})
		slog.SetDefault(logger)

		client = portalsdk.NewClient(viper.GetString("base-url")).WithLogger(logger)
		if rps := viper.GetFloat64("rate-limit"); rps > 0 {
			client.WithLimiter(rate.NewLimiter(rate.Limit(rps), int(rps)+1))
		}
		cache = querycache.New()
	},
}

var (
	logger *slog.Logger
	client *portalsdk.Client
	cache  *querycache.Cache
)

// Execute runs the root command. This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("base-url", "https://data.helioscope.io/auth/api/v1", "portal API base URL")
	flags.String("repertoire-url", "https://data.helioscope.io/repertoire", "service discovery base URL")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "text", "log format (text, json)")
	flags.Float64("rate-limit", 0, "client-side request rate limit in requests/second (0 disables)")
	flags.String("history-db", defaultHistoryDB(), "path to the local history mirror database")

	if err := viper.BindPFlags(flags); err != nil {
		panic(err)
	}
	viper.SetEnvPrefix("SKYPORTAL")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(discoveryCmd)
}

func defaultHistoryDB() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "skyportal-history.db"
	}
	return home + "/.skyportal/history.db"
}
