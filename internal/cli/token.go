package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/helioscope/skyportal/pkg/portalsdk"
	"github.com/helioscope/skyportal/pkg/querycache"
	"github.com/helioscope/skyportal/pkg/tokenflow"
)

var tokenCmd = &cobra.Command{
	Use:   "token <command>",
	Short: "manage access tokens",
}

var tokenListCmd = &cobra.Command{
	Use:   "list",
	Short: "list active tokens",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		login, err := fetchLoginInfo(cmd.Context())
		if err != nil {
			return err
		}

		tokens, err := querycache.FetchAs[[]portalsdk.TokenInfo](
			cmd.Context(), cache, querycache.TokenListQuery(client, login.Username))
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
		fmt.Fprintln(w, "KEY\tNAME\tTYPE\tSCOPES\tEXPIRES")
		for _, t := range tokens {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				t.Token,
				strValue(t.TokenName),
				t.TokenType,
				strings.Join(t.Scopes, ","),
				epochValue(t.Expires),
			)
		}
		return w.Flush()
	},
}

var tokenGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "show one token's detail record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		login, err := fetchLoginInfo(cmd.Context())
		if err != nil {
			return err
		}

		token, err := querycache.FetchAs[*portalsdk.TokenInfo](
			cmd.Context(), cache, querycache.TokenDetailQuery(client, login.Username, args[0]))
		if err != nil {
			return err
		}

		fmt.Printf("Key:       %s\n", token.Token)
		fmt.Printf("Name:      %s\n", strValue(token.TokenName))
		fmt.Printf("Type:      %s\n", token.TokenType)
		fmt.Printf("Scopes:    %s\n", strings.Join(token.Scopes, ", "))
		fmt.Printf("Created:   %s\n", time.Unix(token.Created, 0).UTC().Format(time.RFC3339))
		fmt.Printf("Expires:   %s\n", epochValue(token.Expires))
		fmt.Printf("Last used: %s\n", epochValue(token.LastUsed))
		if token.Parent != nil {
			fmt.Printf("Parent:    %s\n", *token.Parent)
		}
		return nil
	},
}

var (
	createName    string
	createScopes  []string
	createExpires string
)

var tokenCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "create a new user token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		login, err := fetchLoginInfo(cmd.Context())
		if err != nil {
			return err
		}

		choice, ok := portalsdk.ParseExpirationChoice(createExpires)
		if !ok {
			return fmt.Errorf("invalid --expires %q: must be one of 1d, 7d, 30d, 90d, never", createExpires)
		}

		// Pre-flight the name against existing tokens the same way the
		// portal UI does; the server remains the final authority.
		tokens, err := querycache.FetchAs[[]portalsdk.TokenInfo](
			cmd.Context(), cache, querycache.TokenListQuery(client, login.Username))
		if err != nil {
			return err
		}
		existing := make([]string, 0, len(tokens))
		for _, t := range tokens {
			if t.TokenName != nil {
				existing = append(existing, *t.TokenName)
			}
		}
		if verdict := tokenflow.ValidateTokenName(createName, existing); !verdict.Valid {
			return fmt.Errorf("%s", verdict.Message)
		}

		creator := tokenflow.NewCreator(client, cache, logger)
		resp, err := creator.Create(cmd.Context(), login.Username, login.CSRF, portalsdk.CreateTokenRequest{
			TokenName: createName,
			Scopes:    createScopes,
			Expires:   choice.Epoch(time.Now()),
		})
		if err != nil {
			return err
		}

		fmt.Println("Token created. The secret below is shown exactly once; store it now.")
		fmt.Println(resp.Token)
		return nil
	},
}

var tokenDeleteCmd = &cobra.Command{
	Use:   "delete <key>",
	Short: "delete a token (irreversible)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		login, err := fetchLoginInfo(cmd.Context())
		if err != nil {
			return err
		}

		deleter := tokenflow.NewDeleter(client, cache, logger)
		if err := deleter.Delete(cmd.Context(), login.Username, login.CSRF, args[0]); err != nil {
			return err
		}

		fmt.Printf("Token %s deleted.\n", args[0])
		return nil
	},
}

var tokenInspectCmd = &cobra.Command{
	Use:   "inspect <raw-token>",
	Short: "decode the claims of a JWT-shaped (oidc) token without verification",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		claims, err := portalsdk.DecodeOIDCClaims(args[0])
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(claims, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	tokenCreateCmd.Flags().StringVar(&createName, "name", "", "token name (unique per user)")
	tokenCreateCmd.Flags().StringSliceVar(&createScopes, "scope", nil, "scope to grant (repeatable)")
	tokenCreateCmd.Flags().StringVar(&createExpires, "expires", "never", "lifetime: 1d, 7d, 30d, 90d, or never")
	_ = tokenCreateCmd.MarkFlagRequired("name")

	tokenCmd.AddCommand(tokenListCmd)
	tokenCmd.AddCommand(tokenGetCmd)
	tokenCmd.AddCommand(tokenCreateCmd)
	tokenCmd.AddCommand(tokenDeleteCmd)
	tokenCmd.AddCommand(tokenInspectCmd)
}

func strValue(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

func epochValue(n *int64) string {
	if n == nil {
		return "never"
	}
	return time.Unix(*n, 0).UTC().Format(time.RFC3339)
}
