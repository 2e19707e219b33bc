package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/helioscope/skyportal/pkg/portalsdk"
	"github.com/helioscope/skyportal/pkg/querycache"
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "show the authenticated user's identity record",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		info, err := querycache.FetchAs[*portalsdk.UserInfo](
			cmd.Context(), cache, querycache.UserInfoQuery(client))
		if err != nil {
			return err
		}

		fmt.Printf("Username: %s\n", info.Username)
		if info.Name != nil {
			fmt.Printf("Name:     %s\n", *info.Name)
		}
		if info.Email != nil {
			fmt.Printf("Email:    %s\n", *info.Email)
		}
		if info.UID != nil {
			fmt.Printf("UID:      %d\n", *info.UID)
		}
		if len(info.Groups) > 0 {
			names := make([]string, 0, len(info.Groups))
			for _, g := range info.Groups {
				names = append(names, fmt.Sprintf("%s(%d)", g.Name, g.ID))
			}
			fmt.Printf("Groups:   %s\n", strings.Join(names, ", "))
		}
		if q := info.Quota; q != nil {
			if q.Notebook != nil {
				fmt.Printf("Notebook quota: %.1f CPU, %.1f GiB, spawn=%t\n",
					q.Notebook.CPU, q.Notebook.Memory, q.Notebook.Spawn)
			}
			for svc, limit := range q.API {
				fmt.Printf("API quota:      %s = %d req/15min\n", svc, limit)
			}
			for svc, tap := range q.TAP {
				fmt.Printf("TAP quota:      %s = %d concurrent\n", svc, tap.Concurrent)
			}
		}
		return nil
	},
}
