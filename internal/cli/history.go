package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/helioscope/skyportal/internal/histstore"
	"github.com/helioscope/skyportal/pkg/portalsdk"
	"github.com/helioscope/skyportal/pkg/tokenflow"
)

var (
	historyType  string
	historyToken string
	historyIP    string
	historyLimit int
	historyPages int
	historySync  bool
	historyLocal bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "show the token change history",
	Long: `Show the append-only token change history for the authenticated user.

By default pages are fetched from the portal. With --sync, new entries are
also mirrored into the local history database; with --local, entries are
read from the mirror without contacting the portal.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if historyLocal && historySync {
			return fmt.Errorf("--local and --sync are mutually exclusive")
		}
		login, err := fetchLoginInfo(cmd.Context())
		if err != nil {
			return err
		}

		if historyLocal {
			return listLocalHistory(cmd, login.Username)
		}
		if historySync {
			return syncHistory(cmd, login.Username)
		}
		return listRemoteHistory(cmd, login.Username)
	},
}

func listRemoteHistory(cmd *cobra.Command, username string) error {
	pager := tokenflow.NewHistoryPager(client, cache, username, portalsdk.HistoryFilters{
		TokenType: portalsdk.TokenType(historyType),
		Token:     historyToken,
		IPAddress: historyIP,
		Limit:     historyLimit,
	})

	for i := 0; pager.HasMore() && i < historyPages; i++ {
		if err := pager.LoadMore(cmd.Context()); err != nil {
			return err
		}
	}

	entries := pager.Entries()
	printHistoryEntries(entries)
	if total := pager.TotalCount(); total >= 0 {
		fmt.Printf("Showing %d of %d entries.\n", len(entries), total)
	}
	if pager.HasMore() {
		fmt.Println("More entries available; raise --pages to fetch them.")
	}
	return nil
}

func syncHistory(cmd *cobra.Command, username string) error {
	store, err := openHistoryStore()
	if err != nil {
		return err
	}
	defer store.Close()

	added, err := histstore.Sync(cmd.Context(), client, store, username, logger)
	if err != nil {
		return err
	}
	fmt.Printf("Mirrored %d new history entries.\n", added)
	return nil
}

func listLocalHistory(cmd *cobra.Command, username string) error {
	store, err := openHistoryStore()
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.List(cmd.Context(), username, histstore.ListFilters{
		TokenType: portalsdk.TokenType(historyType),
		Token:     historyToken,
		IPAddress: historyIP,
		Limit:     historyLimit,
	})
	if err != nil {
		return err
	}
	printHistoryEntries(entries)
	return nil
}

func openHistoryStore() (*histstore.Store, error) {
	path := viper.GetString("history-db")
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}

	store, err := histstore.NewStore(path)
	if err != nil {
		return nil, err
	}
	if err := store.ApplyMigrations(); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

func printHistoryEntries(entries []portalsdk.TokenChangeHistoryEntry) {
	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tACTION\tKEY\tNAME\tACTOR\tSCOPES\tIP")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			time.Unix(e.EventTime, 0).UTC().Format(time.RFC3339),
			e.Action,
			e.Token,
			strValue(e.TokenName),
			e.Actor,
			strings.Join(e.Scopes, ","),
			strValue(e.IPAddress),
		)
	}
	_ = w.Flush()
}

func init() {
	flags := historyCmd.Flags()
	flags.StringVar(&historyType, "type", "", "filter by token type")
	flags.StringVar(&historyToken, "token", "", "filter by token key")
	flags.StringVar(&historyIP, "ip", "", "filter by source IP address")
	flags.IntVar(&historyLimit, "limit", 50, "page size")
	flags.IntVar(&historyPages, "pages", 1, "number of pages to fetch")
	flags.BoolVar(&historySync, "sync", false, "mirror new entries into the local history database")
	flags.BoolVar(&historyLocal, "local", false, "read from the local mirror instead of the portal")
}
