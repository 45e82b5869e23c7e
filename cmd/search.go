package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Fuzzy search cached objects and fields",
	Args:  cobra.ExactArgs(1),
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

		term := args[0]
		limit := 25
		objectsOnly := mustFlagBool(cmd, "objects", false)
		fieldsOnly := mustFlagBool(cmd, "fields", false)

		custom := color.CyanString("custom")
		if !fieldsOnly {
			results, err := st.SearchObjects(cmd.Context(), org.OrgID, term, limit)
			if err != nil {
				log.Fatal("%s", err)
			}
			for _, result := range results {
				suffix := ""
				if result.Custom {
					suffix = " " + custom
				}
				fmt.Printf("%-40s %s%s\n", result.ObjectName, result.Label, suffix)
			}
		}
		if !objectsOnly {
			results, err := st.SearchFields(cmd.Context(), org.OrgID, term, limit)
			if err != nil {
				log.Fatal("%s", err)
			}
			for _, result := range results {
				suffix := ""
				if result.Custom {
					suffix = " " + custom
				}
				fmt.Printf("%-40s %s (%s)%s\n", result.ObjectName+"."+result.FieldName, result.Label, result.FieldType, suffix)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().Bool("objects", false, "search objects only")
	searchCmd.Flags().Bool("fields", false, "search fields only")
}
