package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/helioscope/skyportal/pkg/portalsdk"
	"github.com/helioscope/skyportal/pkg/querycache"
)

var discoveryCmd = &cobra.Command{
	Use:   "discovery",
	Short: "show which platform services are available",
	Long: `Show the platform service directory from the repertoire service.

Discovery is best-effort: when the repertoire service is unreachable or
returns something unexpected, the directory is reported as empty rather
than failing.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := querycache.FetchAs[*portalsdk.ServiceDiscovery](
			cmd.Context(), cache,
			querycache.DiscoveryQuery(client, viper.GetString("repertoire-url")))
		if err != nil {
			return err
		}

		if d.IsEmpty() {
			fmt.Println("No services reported (none configured, or discovery is unavailable).")
			return nil
		}

		if len(d.Applications) > 0 {
			fmt.Printf("Applications: %s\n", strings.Join(d.Applications, ", "))
		}
		for name, svc := range d.Internal {
			fmt.Printf("internal  %-20s %s\n", name, svc.URL)
		}
		for name, svc := range d.UI {
			fmt.Printf("ui        %-20s %s\n", name, svc.URL)
		}
		for name, ds := range d.Datasets {
			fmt.Printf("dataset   %s\n", name)
			for svcName, svc := range ds.DataServices {
				fmt.Printf("          %-20s %s\n", svcName, svc.URL)
			}
		}
		for name, db := range d.InfluxDatabases {
			fmt.Printf("influxdb  %-20s %s (%s)\n", name, db.URL, db.Database)
		}
		return nil
	},
}
