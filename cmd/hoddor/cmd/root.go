package cmd

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	rootDir string
	verbose bool
	noColor bool

	// Color functions
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "hoddor",
	Short: "hoddor - client-side encrypted personal data vault",
	Long: `hoddor is a local, content-encrypted key-value store organized as named
vaults. Each vault holds named namespaces whose payloads are readable only by
an identity derived from a passphrase, plus an optional encrypted knowledge
graph searchable by vector similarity.`,
	Version: "0.1.0",
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./hoddor.yaml)")
	rootCmd.PersistentFlags().StringVar(&rootDir, "root", "", "vault storage root directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("storage.root_dir", rootCmd.PersistentFlags().Lookup("root"))

	rootCmd.AddCommand(
		newVaultCmd(),
		newNamespaceCmd(),
		newGraphCmd(),
		newVersionCmd(),
	)
}

func initConfig() {
	if noColor {
		color.NoColor = true
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("hoddor")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}

	viper.SetEnvPrefix("HODDOR")
	viper.AutomaticEnv()

	// Missing config files are fine; flags and env cover everything.
	_ = viper.ReadInConfig()
}
