package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Surjit27/Clairvox/internal/model"
)

// Version is set at build time with -ldflags "-X ...cli.Version=..."
var Version = "v0.3.0"

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "clairvox",
	Short: "Clairvox - Evidence verification and confidence scoring for claims",
	Long: `Clairvox checks a factual claim against the scientific literature.

It rejects claims that contradict established domain knowledge, flags
technical terms no literature database has ever heard of, searches CrossRef,
Europe PMC and arXiv for supporting and refuting evidence, and explains a
0-100 confidence score with the drivers behind it.

Clairvox reports how well a claim is supported. It does not decide what is true.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "clairvox %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.clairvox/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		viper.AddConfigPath(home + "/.clairvox")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// Every default is registered so CLAIRVOX_SECTION_KEY variables override nested keys
	if err := registerDefaults(viper.GetViper(), model.DefaultConfig()); err != nil {
		fmt.Fprintf(os.Stderr, "Error registering defaults: %v\n", err)
	}
	_ = viper.BindEnv("embedding.api_key", "CLAIRVOX_EMBEDDING_API_KEY", "OPENAI_API_KEY")
	_ = viper.BindEnv("embedding.base_url", "CLAIRVOX_EMBEDDING_BASE_URL")
	_ = viper.BindEnv("cache.redis_password", "CLAIRVOX_CACHE_REDIS_PASSWORD")

	viper.SetEnvPrefix("CLAIRVOX")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}
