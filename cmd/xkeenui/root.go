package main

import (
	"fmt"
	"os"

	"xkeenui/internal/config"
	"xkeenui/internal/logger"

	"github.com/spf13/cobra"
)

var version = "dev"

var (
	cfgFile string
	verbose bool
	logFile string
)

var rootCmd = &cobra.Command{
	Use:     "xkeenui",
	Short:   "Web panel for xkeen managed xray and mihomo cores",
	Version: version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Init(verbose, logFile)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func loadConfig() *config.Config {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		logger.Log.Fatalf("Error loading config: %v", err)
	}
	return cfg
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Append logs to file instead of stdout")
}
