package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/shopmonkeyus/mds/internal/sync"
	"github.com/shopmonkeyus/mds/internal/util"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync metadata from the active org into the local cache",
	Long: util.GenerateHelpSection("Sync", `Runs the sync pipeline against the active org: objects, fields, flows,
triggers and relationships, in that order. Each stage commits on its own, so
an interrupted sync resumes safely on the next run.

Stage flags restrict the run; with no flags every stage runs.`),
	Run: func(cmd *cobra.Command, args []string) {
		log := newLogger(cmd)
		defer util.RecoverPanic(log)

		st := openStore(log, cmd)
		defer st.Close()
		tr := openTracker(log, cmd)
		defer tr.Close()

		org, creds := activeConnection(log, cmd, st, tr)
		client := newAPIClient(log, cmd, creds)

		pipeline := sync.New(sync.Config{
			Logger:  log,
			Client:  client,
			Store:   st,
			Tracker: tr,
			OrgID:   org.OrgID,
			Alias:   org.Alias,
		})
		stages := sync.Stages{
			Objects:       mustFlagBool(cmd, "objects", false),
			Flows:         mustFlagBool(cmd, "flows", false),
			Triggers:      mustFlagBool(cmd, "triggers", false),
			Relationships: mustFlagBool(cmd, "relationships", false),
		}

		var summary *sync.Summary
		var err error
		util.RunTaskWithSpinner(fmt.Sprintf("Syncing %s...", org.Alias), func() {
			summary, err = pipeline.Run(cmd.Context(), stages)
		})
		if err != nil {
			log.Fatal("sync failed: %s", err)
		}

		check := color.GreenString("✓")
		fmt.Printf("%s %d objects\n", check, summary.Objects)
		fmt.Printf("%s %d fields\n", check, summary.Fields)
		fmt.Printf("%s %d flows\n", check, summary.Flows)
		fmt.Printf("%s %d triggers\n", check, summary.Triggers)
		fmt.Printf("%s %d relationships\n", check, summary.Relationships)
		if len(summary.Skipped) > 0 {
			fmt.Printf("%s %d skipped:\n", color.YellowString("!"), len(summary.Skipped))
			for _, skip := range summary.Skipped {
				fmt.Printf("  %s: %s\n", skip.Item, skip.Reason)
			}
		}
		fmt.Printf("completed in %s\n", summary.CompletedAt.Sub(summary.StartedAt).Round(timeRounding))
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
	syncCmd.Flags().Bool("objects", false, "sync objects and fields only")
	syncCmd.Flags().Bool("flows", false, "sync flows only")
	syncCmd.Flags().Bool("triggers", false, "sync triggers only")
	syncCmd.Flags().Bool("relationships", false, "extract relationships only")
}
