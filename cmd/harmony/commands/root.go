package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"go-harmony/config"
	"go-harmony/debug"
)

var (
	// Global flags
	verbose    bool
	configFile string

	// Global configuration (loaded at init time)
	globalConfig *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "harmony",
	Short: "Procedural game music over MIDI",
	Long: `harmony - procedural music for games.

A game streams its state as JSON lines over TCP (or WebSocket messages).
A rules file maps mobs, environments and tags to scales, tempo, styles and
themes, and harmony plays a Markov-generated melody with chords, bass and
drums on a MIDI output.

Configuration is read from ~/.config/go-harmony/config.yaml unless
--config names another file.

Examples:
  # Play for the game on the default port
  harmony run --rules game/rules.yaml --monitor

  # Audition the rules without a game, recording to a file
  harmony run --offline --measures 16 --capture out.mid

  # Inspect a training melody
  harmony analyze input/theme.mid`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		debug.SetVerbose(verbose)
		cfg, err := GetConfig()
		if err != nil || !cfg.Debug.Enabled {
			return nil
		}
		path, err := cfg.LogFile()
		if err != nil {
			return err
		}
		return debug.Enable(path)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default ~/.config/go-harmony/config.yaml)")
}

// configLoadErr stores the error from config.Load() for deferred reporting.
var configLoadErr error

func initConfig() {
	globalConfig, configLoadErr = config.Load(configFile)
}

// GetConfig returns the global configuration.
func GetConfig() (*config.Config, error) {
	if globalConfig == nil {
		if configLoadErr != nil {
			return nil, fmt.Errorf("config not available: %w", configLoadErr)
		}
		cfg, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("config not available: %w", err)
		}
		globalConfig = cfg
	}
	return globalConfig, nil
}

// IsVerbose returns whether verbose mode is enabled.
func IsVerbose() bool {
	return verbose
}
