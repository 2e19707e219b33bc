package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/helioscope/skyportal/pkg/portalsdk"
	"github.com/helioscope/skyportal/pkg/querycache"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "show the current session and its granted scopes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		info, err := fetchLoginInfo(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("Logged in as %s\n", info.Username)
		fmt.Println("Granted scopes:")
		for _, name := range info.Scopes {
			desc := ""
			for _, s := range info.Config.Scopes {
				if s.Name == name {
					desc = s.Description
					break
				}
			}
			fmt.Printf("  %-24s %s\n", name, desc)
		}
		return nil
	},
}

// fetchLoginInfo loads the session bundle through the cache layer. The
// result carries the CSRF token consumed by mutating commands.
func fetchLoginInfo(ctx context.Context) (*portalsdk.LoginInfo, error) {
	return querycache.FetchAs[*portalsdk.LoginInfo](ctx, cache, querycache.LoginInfoQuery(client))
}
