package cmd

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// configValidateCmd represents the config validate command
var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	Long: `Parses the configuration, applies defaults and checks that the app identity is complete.
The private key is read and parsed as well, no request is sent to GitHub.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := f.LoadConfig()
		if err != nil {
			log.Error().Err(err).Msg("Configuration is invalid.")
			return err
		}
		key, err := cfg.App.KeyBytes()
		if err != nil {
			log.Error().Err(err).Msg("Configuration is invalid.")
			return err
		}
		if err := validateKey(cfg.App.AppID, key); err != nil {
			log.Error().Err(err).Msg("Private key is invalid.")
			return err
		}
		log.Info().
			Int64("app_id", cfg.App.AppID).
			Int("max_entries", cfg.Cache.MaxEntries).
			Bool("redis", cfg.Cache.RedisURL != "").
			Dur("timeout", cfg.HTTP.Timeout).
			Msg("Configuration is valid.")
		fmt.Printf("%s Configuration is valid\n", greenCheck)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configValidateCmd)
}
