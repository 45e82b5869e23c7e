package cmd

import (
	"fmt"
	"time"

	"github.com/shopmonkeyus/mds/internal/salesforce"
	"github.com/shopmonkeyus/mds/internal/store"
	"github.com/shopmonkeyus/mds/internal/tracker"
	"github.com/shopmonkeyus/mds/internal/util"
	"github.com/spf13/cobra"
)

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Connect an org and store its credentials under an alias",
	Long: util.GenerateHelpSection("Connect", `Registers a CRM org under a local alias and makes it the active org.

Authenticate headlessly with a pre-authorized connected app certificate:

  mds connect --alias prod --client-id <consumer key> --username me@org.com --jwt-key server.key

or supply a session token you already have:

  mds connect --alias prod --token <access token> --instance-url https://myorg.my.example.com`),
	Run: func(cmd *cobra.Command, args []string) {
		log := newLogger(cmd)
		alias := mustFlagString(cmd, "alias", true)
		token := mustFlagString(cmd, "token", false)

		var creds tracker.Credentials
		var username string
		if token != "" {
			creds.AccessToken = token
			creds.InstanceURL = mustFlagString(cmd, "instance-url", false)
			if creds.InstanceURL == "" {
				// JWT-format access tokens carry the issuing host
				instanceURL, err := util.InstanceURLFromJWT(token)
				if err != nil {
					log.Fatal("--instance-url is required when the token is not a JWT")
				}
				creds.InstanceURL = instanceURL
			}
		} else {
			keyfile := mustFlagString(cmd, "jwt-key", true)
			if !util.Exists(keyfile) {
				log.Fatal("key file not found: %s", keyfile)
			}
			key, err := salesforce.LoadPrivateKey(keyfile)
			if err != nil {
				log.Fatal("%s", err)
			}
			username = mustFlagString(cmd, "username", true)
			auth := salesforce.JWTAuth{
				ClientID:   mustFlagString(cmd, "client-id", true),
				Username:   username,
				LoginURL:   mustFlagString(cmd, "login-url", false),
				PrivateKey: key,
				Logger:     log,
			}
			if auth.LoginURL == "" {
				auth.LoginURL = "https://login.salesforce.com"
			}
			response, err := auth.Authenticate(cmd.Context())
			if err != nil {
				log.Fatal("%s", err)
			}
			creds.AccessToken = response.AccessToken
			creds.InstanceURL = response.InstanceURL
			creds.IdentityURL = response.ID
			creds.OrgID = response.OrgID()
		}

		client := newAPIClient(log, cmd, &creds)
		if creds.OrgID == "" {
			records, err := client.Query(cmd.Context(), "SELECT Id, Name FROM Organization")
			if err != nil {
				log.Fatal("unable to verify session: %s", err)
			}
			if len(records) == 0 {
				log.Fatal("unable to verify session: empty organization result")
			}
			creds.OrgID = records[0].GetString("Id")
		}

		st := openStore(log, cmd)
		defer st.Close()
		tr := openTracker(log, cmd)
		defer tr.Close()

		if err := tr.SaveCredentials(alias, creds); err != nil {
			log.Fatal("error storing credentials: %s", err)
		}
		org := store.Org{
			Alias:       alias,
			OrgID:       creds.OrgID,
			InstanceURL: creds.InstanceURL,
			Username:    username,
			ConnectedAt: time.Now(),
		}
		if err := st.SaveOrg(cmd.Context(), org); err != nil {
			log.Fatal("error saving org: %s", err)
		}
		if err := st.SetActiveOrg(cmd.Context(), alias); err != nil {
			log.Fatal("%s", err)
		}
		fmt.Printf("connected %s (%s) as the active org\n", alias, creds.OrgID)
	},
}

func init() {
	rootCmd.AddCommand(connectCmd)
	connectCmd.Flags().String("alias", "", "local alias for the org")
	connectCmd.Flags().String("token", "", "an existing access token")
	connectCmd.Flags().String("instance-url", "", "the instance url for --token")
	connectCmd.Flags().String("jwt-key", "", "path to the connected app RSA private key")
	connectCmd.Flags().String("client-id", "", "the connected app consumer key")
	connectCmd.Flags().String("username", "", "the username to authenticate as")
	connectCmd.Flags().String("login-url", "", "the login endpoint (default https://login.salesforce.com)")
}
