package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var orgsCmd = &cobra.Command{
	Use:   "orgs",
	Short: "List connected orgs or switch the active one",
	Run: func(cmd *cobra.Command, args []string) {
		log := newLogger(cmd)
		st := openStore(log, cmd)
		defer st.Close()

		if alias := mustFlagString(cmd, "switch", false); alias != "" {
			if err := st.SetActiveOrg(cmd.Context(), alias); err != nil {
				log.Fatal("%s", err)
			}
			fmt.Printf("switched active org to %s\n", alias)
			return
		}

		orgs, err := st.ListOrgs(cmd.Context())
		if err != nil {
			log.Fatal("%s", err)
		}
		if len(orgs) == 0 {
			fmt.Println("no orgs connected. run `mds connect` first")
			return
		}
		for _, org := range orgs {
			marker := " "
			if org.Active {
				marker = "*"
			}
			fmt.Printf("%s %-20s %-20s %s\n", marker, org.Alias, org.OrgID, org.InstanceURL)
		}
	},
}

func init() {
	rootCmd.AddCommand(orgsCmd)
	orgsCmd.Flags().String("switch", "", "make this alias the active org")
}
