package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"xkeenui/internal/configs"
	"xkeenui/internal/core"
	"xkeenui/internal/db"
	"xkeenui/internal/logger"
	"xkeenui/internal/model"
	"xkeenui/internal/settings"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show core and panel status",
	Long:  `Displays the active core, whether it is running, its config files and the panel database state.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		ctx := context.Background()

		ctl := core.NewController(cfg.Paths, cfg.Logs.ErrorLog, core.ExecRunner{})
		st := ctl.Status(ctx)

		database, err := db.Connect(cfg.Database.Path)
		if err != nil {
			logger.Log.Fatalf("Error connecting to DB: %v", err)
		}
		defer db.Close(database)
		if err := db.Migrate(database); err != nil {
			logger.Log.Fatalf("Error migrating DB: %v", err)
		}

		var revisions int64
		database.Model(&model.Revision{}).Count(&revisions)

		offset := settings.DefaultTimezoneOffset
		if prefs, err := settings.NewStore(ctx, database); err == nil {
			offset = prefs.TimezoneOffset()
		}

		docs, docsErr := configs.NewStore(cfg.Paths, nil, 0).List(st.CurrentCore)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)

		fmt.Println("\n\033[1mXKEEN UI STATUS\033[0m")
		fmt.Println("────────────────────────────────────────")

		fmt.Fprintln(w, "\033[1;36m[ CORE ]\033[0m\t")
		fmt.Fprintf(w, "  Active:\t%s\n", st.CurrentCore)
		fmt.Fprintf(w, "  State:\t%s\n", st.Status)
		if len(st.Cores) == 0 {
			fmt.Fprintf(w, "  Installed:\t(none in %s)\n", cfg.Paths.BinDir)
		} else {
			fmt.Fprintf(w, "  Installed:\t%v\n", st.Cores)
		}
		fmt.Fprintln(w, "\t")

		fmt.Fprintln(w, "\033[1;36m[ CONFIGS ]\033[0m\t")
		if docsErr != nil {
			fmt.Fprintf(w, "  (%v)\n", docsErr)
		}
		for _, d := range docs {
			fmt.Fprintf(w, "  %s:\t%s\n", d.Filename, formatBytes(int64(len(d.Content))))
		}
		fmt.Fprintln(w, "\t")

		fmt.Fprintln(w, "\033[1;36m[ PANEL ]\033[0m\t")
		fmt.Fprintf(w, "  Database Path:\t%s\n", cfg.Database.Path)
		fmt.Fprintf(w, "  DB Size:\t%s\n", formatBytes(getFileSize(cfg.Database.Path)))
		fmt.Fprintf(w, "  Revisions:\t%d\n", revisions)
		fmt.Fprintf(w, "  Timezone:\tUTC%+d\n", offset)
		fmt.Fprintf(w, "  Error Log:\t%s\n", formatBytes(getFileSize(cfg.Logs.ErrorLog)))
		fmt.Fprintf(w, "  Access Log:\t%s\n", formatBytes(getFileSize(cfg.Logs.AccessLog)))

		w.Flush()
		fmt.Println("")
	},
}

func getFileSize(path string) int64 {
	fi, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return fi.Size()
}

func formatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
