package cmd

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var depsCmd = &cobra.Command{
	Use:   "deps [Object.Field]",
	Short: "Show which automation touches a field",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		log := newLogger(cmd)
		object, field, ok := strings.Cut(args[0], ".")
		if !ok || object == "" || field == "" {
			log.Fatal("expected Object.Field, got %s", args[0])
		}

		st := openStore(log, cmd)
		defer st.Close()
		org, err := st.ActiveOrg(cmd.Context())
		if err != nil {
			log.Fatal("%s", err)
		}
		if org == nil {
			log.Fatal("no active org. run `mds connect` first")
		}

		deps, err := st.Dependencies(cmd.Context(), org.Alias, object, field)
		if err != nil {
			log.Fatal("%s", err)
		}
		if len(deps) == 0 {
			fmt.Printf("nothing touches %s.%s\n", object, field)
			return
		}
		for _, dep := range deps {
			kind := dep.ReferenceType
			switch kind {
			case "write":
				kind = color.RedString(kind)
			case "read":
				kind = color.GreenString(kind)
			}
			fmt.Printf("%-8s %-50s %s\n", dep.DependentType, dep.DependentName, kind)
		}
	},
}

func init() {
	rootCmd.AddCommand(depsCmd)
}
