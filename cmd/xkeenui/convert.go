package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"xkeenui/internal/logger"
	"xkeenui/internal/subscription"
	"xkeenui/internal/translator"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var (
	flagCore     string
	flagExisting string
	flagFile     string
	flagURL      string
	flagTimeout  time.Duration
)

var convertCmd = &cobra.Command{
	Use:   "convert [links...]",
	Short: "Convert share links into xray outbounds or mihomo proxies",
	Long: `Convert vless, vmess, trojan, shadowsocks and hysteria2 links into a config fragment.
Links come from the arguments, --file, a subscription --url, or stdin.
Use --existing to keep generated names unique against a config file.`,
	Run: func(cmd *cobra.Command, args []string) {
		dialect, err := translator.ParseDialect(flagCore)
		if err != nil {
			logger.Log.Fatalf("%v", err)
		}

		existing := ""
		if flagExisting != "" {
			data, err := os.ReadFile(flagExisting)
			if err != nil {
				logger.Log.Fatalf("Error reading existing config: %v", err)
			}
			existing = string(data)
		}

		links, err := collectLinks(cmd.Context(), args, cmd.InOrStdin())
		if err != nil {
			logger.Log.Fatalf("%v", err)
		}
		if len(links) == 0 {
			logger.Log.Fatal("No links found")
		}

		var bar *progressbar.ProgressBar
		var progress func()
		if len(links) > 1 {
			bar = newBar(len(links))
			progress = func() { bar.Add(1) }
		}

		batch := translator.GenerateLinks(links, dialect, existing, progress)
		if bar != nil {
			bar.Finish()
			fmt.Fprintln(os.Stderr)
		}
		for _, f := range batch.Failures {
			logger.Log.Warnf("Skipped %v", f)
		}
		if batch.Duplicates > 0 {
			logger.Log.Infof("Skipped %d duplicate links", batch.Duplicates)
		}
		if len(batch.Results) == 0 {
			logger.Log.Fatal("Nothing converted")
		}
		fmt.Fprintln(cmd.OutOrStdout(), batch.Content(dialect))
	},
}

func collectLinks(ctx context.Context, args []string, stdin io.Reader) ([]string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	switch {
	case flagURL != "":
		src := &subscription.HTTPSource{Timeout: flagTimeout}
		body, err := src.Fetch(ctx, flagURL)
		if err != nil {
			return nil, err
		}
		return subscription.ExtractLinks(body), nil
	case flagFile != "":
		return subscription.Links(ctx, flagFile)
	case len(args) > 0:
		// Subscription urls passed as arguments are kept as links so mihomo
		// gets a provider block for them.
		var links []string
		for _, a := range args {
			if found := translator.ExtractLinks(a); len(found) > 0 {
				links = append(links, found...)
			} else {
				links = append(links, strings.TrimSpace(a))
			}
		}
		return links, nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return nil, fmt.Errorf("read stdin: %w", err)
	}
	return subscription.ExtractLinks(data), nil
}

func newBar(total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowBytes(false),
		progressbar.OptionSetWidth(15),
		progressbar.OptionSetDescription("[cyan]Converting...[reset]"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

func init() {
	convertCmd.Flags().StringVar(&flagCore, "core", "xray", "Target core: xray or mihomo")
	convertCmd.Flags().StringVar(&flagExisting, "existing", "", "Config file whose names must not be reused")
	convertCmd.Flags().StringVarP(&flagFile, "file", "f", "", "Read links from a file")
	convertCmd.Flags().StringVar(&flagURL, "url", "", "Fetch links from a subscription url")
	convertCmd.Flags().DurationVar(&flagTimeout, "timeout", subscription.DefaultTimeout, "Subscription fetch timeout")
	rootCmd.AddCommand(convertCmd)
}
