package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	glogger "github.com/shopmonkeyus/go-common/logger"
	"github.com/shopmonkeyus/mds/internal/salesforce"
	"github.com/shopmonkeyus/mds/internal/store"
	"github.com/shopmonkeyus/mds/internal/tracker"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Version is set by main from the build environment.
var Version = "dev"

func mustFlagBool(cmd *cobra.Command, name string, required bool) bool {
	val, err := cmd.Flags().GetBool(name)
	if required && err != nil {
		fmt.Printf("error: %s\n", err)
		os.Exit(1)
	}
	return val
}

func mustFlagString(cmd *cobra.Command, name string, required bool) string {
	val, err := cmd.Flags().GetString(name)
	if err != nil {
		fmt.Printf("error: %s\n", err)
		os.Exit(1)
	}
	if val == "" {
		val = viper.GetString(name)
	}
	if required && val == "" {
		fmt.Printf("error: required flag --%s missing\n", name)
		os.Exit(1)
	}
	return val
}

func newLogger(cmd *cobra.Command) glogger.Logger {
	if mustFlagBool(cmd, "verbose", false) {
		return glogger.NewConsoleLogger(glogger.LevelTrace)
	}
	if mustFlagBool(cmd, "silent", false) {
		return glogger.NewConsoleLogger(glogger.LevelError)
	}
	return glogger.NewConsoleLogger(glogger.LevelInfo)
}

// dataDir resolves the local data directory, creating it when missing.
func dataDir(cmd *cobra.Command) string {
	dir := mustFlagString(cmd, "data-dir", false)
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Printf("error: %s\n", err)
			os.Exit(1)
		}
		dir = filepath.Join(home, ".mds")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		fmt.Printf("error: creating data directory: %s\n", err)
		os.Exit(1)
	}
	return dir
}

// databaseURL resolves the store url, defaulting to a sqlite file inside the
// data directory.
func databaseURL(cmd *cobra.Command) string {
	if dbURL := mustFlagString(cmd, "db-url", false); dbURL != "" {
		return dbURL
	}
	return "sqlite://" + filepath.Join(dataDir(cmd), "mds.db")
}

func openStore(log glogger.Logger, cmd *cobra.Command) *store.Store {
	st, err := store.New(log, databaseURL(cmd))
	if err != nil {
		log.Fatal("%s", err)
	}
	if err := st.Migrate(cmd.Context()); err != nil {
		st.Close()
		log.Fatal("%s", err)
	}
	return st
}

func openTracker(log glogger.Logger, cmd *cobra.Command) *tracker.Tracker {
	tr, err := tracker.NewTracker(tracker.TrackerConfig{
		Context: cmd.Context(),
		Logger:  log,
		Dir:     dataDir(cmd),
	})
	if err != nil {
		log.Fatal("%s", err)
	}
	return tr
}

// activeConnection loads the active org and its stored credentials. Both
// must exist; commands that need a session call this first.
func activeConnection(log glogger.Logger, cmd *cobra.Command, st *store.Store, tr *tracker.Tracker) (*store.Org, *tracker.Credentials) {
	org, err := st.ActiveOrg(cmd.Context())
	if err != nil {
		log.Fatal("%s", err)
	}
	if org == nil {
		log.Fatal("no active org. run `mds connect` first")
	}
	creds, err := tr.GetCredentials(org.Alias)
	if err != nil {
		log.Fatal("%s", err)
	}
	if creds == nil {
		log.Fatal("no stored credentials for %s. run `mds connect --alias %s` again", org.Alias, org.Alias)
	}
	return org, creds
}

func newAPIClient(log glogger.Logger, cmd *cobra.Command, creds *tracker.Credentials) *salesforce.HTTPClient {
	return salesforce.NewHTTPClient(salesforce.HTTPClientConfig{
		InstanceURL: creds.InstanceURL,
		AccessToken: creds.AccessToken,
		APIVersion:  mustFlagString(cmd, "api-version", false),
		Logger:      log,
	})
}

var rootCmd = &cobra.Command{
	Use:   "mds",
	Short: "Local CRM metadata cache and dependency analyzer",
	Long: `mds syncs object, field, flow and trigger metadata from a CRM org
into a local relational cache and answers offline questions about it:
fuzzy search, field dependency lookups and relationship graphs.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func initConfig() {
	if cfg := os.Getenv("MDS_CONFIG"); cfg != "" {
		viper.SetConfigFile(cfg)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".mds"))
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
	}
	viper.SetEnvPrefix("MDS")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	viper.ReadInConfig() // missing config file is fine
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().String("data-dir", "", "the local data directory (default ~/.mds)")
	rootCmd.PersistentFlags().String("db-url", "", "the metadata cache database url (sqlite://, postgres:// or mysql://)")
	rootCmd.PersistentFlags().String("api-version", "", "override the platform REST API version")
	rootCmd.PersistentFlags().Bool("verbose", false, "turn on verbose logging")
	rootCmd.PersistentFlags().Bool("silent", false, "turn off all logging except errors")
}
