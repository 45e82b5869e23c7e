package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:   "graph [Object]",
	Short: "Show the relationship graph around an object",
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

		object := args[0]
		rels, err := st.ObjectGraph(cmd.Context(), org.Alias, object)
		if err != nil {
			log.Fatal("%s", err)
		}
		if len(rels) == 0 {
			fmt.Printf("no relationships involve %s\n", object)
			return
		}
		for _, rel := range rels {
			if rel.ChildObject == object {
				fmt.Printf("%s.%s -> %s (%s)\n", rel.ChildObject, rel.FieldName, rel.ParentObject, rel.RelationshipType)
			} else {
				fmt.Printf("%s <- %s.%s (%s)\n", rel.ParentObject, rel.ChildObject, rel.FieldName, rel.RelationshipType)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
