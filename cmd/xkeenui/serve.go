package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"xkeenui/internal/api"
	"xkeenui/internal/configs"
	"xkeenui/internal/core"
	"xkeenui/internal/db"
	"xkeenui/internal/logger"
	"xkeenui/internal/logs"
	"xkeenui/internal/settings"

	"github.com/spf13/cobra"
)

var (
	flagPort  string
	flagDebug bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web panel",
	PreRun: func(cmd *cobra.Command, args []string) {
		if flagDebug && !verbose {
			verbose = true
			logger.Init(verbose, logFile)
			logger.Log.Debug("Debug mode enabled")
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		if flagPort != "" {
			cfg.Server.Listen = ":" + strings.TrimPrefix(flagPort, ":")
		}
		logger.Log.Infof("XKeen UI %s", version)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		database, err := db.Connect(cfg.Database.Path)
		if err != nil {
			logger.Log.Fatalf("Error connecting to DB: %v", err)
		}
		defer db.Close(database)
		if err := db.Migrate(database); err != nil {
			logger.Log.Fatalf("Error migrating DB: %v", err)
		}

		prefs, err := settings.NewStore(ctx, database)
		if err != nil {
			logger.Log.Fatalf("Error loading settings: %v", err)
		}

		cache := logs.NewCache(cfg.Logs.MaxLines, prefs.TimezoneOffset)
		prefs.OnChange(func(settings.Settings) { cache.Reset() })
		go cache.Run(ctx)

		ctl := core.NewController(cfg.Paths, cfg.Logs.ErrorLog, core.ExecRunner{})
		if name, err := ctl.Detect(); err != nil {
			logger.Log.Warnf("Could not detect active core: %v", err)
		} else {
			logger.Log.Infof("Active core: %s", name)
		}

		store := configs.NewStore(cfg.Paths, database, cfg.Database.Revisions)
		srv := api.NewServer(cfg, store, ctl, prefs, cache, version)
		if err := srv.ListenAndServe(ctx); err != nil {
			logger.Log.Fatalf("Server error: %v", err)
		}
	},
}

func init() {
	serveCmd.Flags().StringVarP(&flagPort, "port", "p", "", "Port to listen on (overrides server.listen)")
	serveCmd.Flags().BoolVarP(&flagDebug, "debug", "d", false, "Enable debug logging")
	rootCmd.AddCommand(serveCmd)
}
