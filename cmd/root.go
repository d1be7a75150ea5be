package cmd

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "nfosync",
	Short: "nfosync cli",
	Long:  `reconcile sidecar metadata files against a plex server`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "config file")
}

const defaultEditDelay = 400 * time.Millisecond

func initConfig() {
	viper.SetConfigFile(cfgFile)

	viper.SetEnvPrefix("NFOSYNC")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", ""))
	viper.AutomaticEnv()

	viper.SetDefault("plex.scheme", "https")
	viper.SetDefault("plex.host", "")
	viper.SetDefault("plex.token", "")

	viper.SetDefault("sync.scanPath", "")
	viper.SetDefault("sync.delay", defaultEditDelay)

	viper.SetDefault("artwork.update", true)
	viper.SetDefault("artwork.alwaysUpdate", false)
	viper.SetDefault("artwork.extensions", []string{"jpg", "jpeg", "png", "tbn", "mp3", "m4a"})

	viper.SetDefault("storage.filePath", "nfosync.sqlite")
}
