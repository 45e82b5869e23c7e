package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

const timeRounding = 10 * time.Millisecond

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show what the local cache holds for the active org",
	Run: func(cmd *cobra.Command, args []string) {
		log := newLogger(cmd)
		st := openStore(log, cmd)
		defer st.Close()

		org, err := st.ActiveOrg(cmd.Context())
		if err != nil {
			log.Fatal("%s", err)
		}
		if org == nil {
			log.Fatal("no active org. run `mds connect` first")
		}
		stats, err := st.Stats(cmd.Context(), org.OrgID, org.Alias)
		if err != nil {
			log.Fatal("%s", err)
		}
		fmt.Printf("org:           %s (%s)\n", org.Alias, org.OrgID)
		fmt.Printf("objects:       %d (%d custom)\n", stats.Objects, stats.CustomObjects)
		fmt.Printf("fields:        %d (%d custom)\n", stats.Fields, stats.CustomFields)
		fmt.Printf("flows:         %d\n", stats.Flows)
		fmt.Printf("triggers:      %d\n", stats.Triggers)
		fmt.Printf("relationships: %d\n", stats.Relationships)
		if stats.LastSync.IsZero() {
			fmt.Println("last sync:     never")
		} else {
			fmt.Printf("last sync:     %s\n", stats.LastSync.Local().Format(time.RFC1123))
		}
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
