/*
	Copyright 2023 Markus Papenbrock
*/

package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	planCmd "github.com/mpapenbr/racesim/pkg/cmd/plan"
	qualifyCmd "github.com/mpapenbr/racesim/pkg/cmd/qualify"
	raceCmd "github.com/mpapenbr/racesim/pkg/cmd/race"
	trackCmd "github.com/mpapenbr/racesim/pkg/cmd/track"
	"github.com/mpapenbr/racesim/pkg/config"
	"github.com/mpapenbr/racesim/version"
)

const envPrefix = "RSIM"

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "rsim",
	Short:   "Headless motorsport session simulator",
	Long:    ``,
	Version: version.FullVersion,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:funlen // flag definitions
func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is $HOME/.rsim.yml)")

	rootCmd.PersistentFlags().StringVar(&config.LogLevel,
		"log-level",
		"info",
		"controls the log level (debug, info, warn, error, fatal)")
	rootCmd.PersistentFlags().StringVar(&config.LogFormat,
		"log-format",
		"text",
		"controls the log output format (json, text)")
	rootCmd.PersistentFlags().StringVar(&config.LogFilter,
		"log-filter",
		"",
		"zapfilter rules, e.g. \"*:* -debug:session.car*\"")
	rootCmd.PersistentFlags().BoolVar(&config.EnableTelemetry,
		"enable-telemetry",
		false,
		"enables telemetry")
	rootCmd.PersistentFlags().StringVar(&config.TelemetryEndpoint,
		"telemetry-endpoint",
		"localhost:4317",
		"Endpoint that receives open telemetry data (stdout for local output)")
	rootCmd.PersistentFlags().StringVar(&config.TuningFile,
		"tuning",
		"",
		"yaml or json file overriding simulation coefficients")
	rootCmd.PersistentFlags().StringVar(&config.TrackFile,
		"track",
		"",
		"track definition (json)")
	rootCmd.PersistentFlags().StringVar(&config.RosterFile,
		"roster",
		"",
		"teams and drivers (json)")
	rootCmd.PersistentFlags().Uint64Var(&config.Seed,
		"seed",
		0,
		"seed for the random source (0: derived from the roster)")
	rootCmd.PersistentFlags().IntVar(&config.TickRate,
		"tick-rate",
		0,
		"ticks per simulated second (0: value of the tuning)")
	rootCmd.PersistentFlags().Float64Var(&config.Speed,
		"speed",
		1,
		"simulation speed factor (0 means: go as fast as possible)")
	rootCmd.PersistentFlags().IntVar(&config.PrintEvery,
		"print-every",
		0,
		"print the leaderboard every n ticks (0: only the result)")
	rootCmd.PersistentFlags().StringVar(&config.NatsURL,
		"nats-url",
		"",
		"publish snapshots to this NATS server")
	rootCmd.PersistentFlags().StringVar(&config.NatsSubject,
		"nats-subject",
		"rsim",
		"subject prefix for published snapshots")
	rootCmd.PersistentFlags().StringVar(&config.WaitForServices,
		"wait-for-services",
		"15s",
		"Duration to wait for the NATS server to be ready")

	// add commands here
	rootCmd.AddCommand(raceCmd.NewRaceCmd())
	rootCmd.AddCommand(qualifyCmd.NewQualifyCmd())
	rootCmd.AddCommand(planCmd.NewPlanCmd())
	rootCmd.AddCommand(trackCmd.NewTrackCmd())
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory and working directory with name ".rsim" (without extension).
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".rsim")
	}

	viper.SetEnvPrefix(envPrefix)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}

	bindFlags(rootCmd, viper.GetViper())
	for _, cmd := range rootCmd.Commands() {
		bindFlags(cmd, viper.GetViper())
	}
}

// Bind each cobra flag to its associated viper configuration
// (config file and environment variable)
func bindFlags(cmd *cobra.Command, v *viper.Viper) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		// Environment variables can't have dashes in them, so bind them to their
		// equivalent keys with underscores, e.g. --print-every to RSIM_PRINT_EVERY
		if strings.Contains(f.Name, "-") {
			envVarSuffix := strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))
			if err := v.BindEnv(f.Name,
				fmt.Sprintf("%s_%s", envPrefix, envVarSuffix)); err != nil {
				fmt.Fprintf(os.Stderr, "Could not bind env var %s: %v", f.Name, err)
			}
		}
		if !f.Changed && v.IsSet(f.Name) {
			val := v.Get(f.Name)
			if err := cmd.Flags().Set(f.Name, fmt.Sprintf("%v", val)); err != nil {
				fmt.Fprintf(os.Stderr, "Could not set flag value for %s: %v", f.Name, err)
			}
		}
	})
}
