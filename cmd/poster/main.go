package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rmc8/shosha-poster/internal/content"
	"github.com/rmc8/shosha-poster/internal/poster"
)

var (
	logger *zap.Logger
	app    *poster.Poster
)

var rootCmd = &cobra.Command{
	Use:           "shosha-poster",
	Short:         "Cross-post transcription sentences to X and Bluesky",
	SilenceUsage:  true,
	SilenceErrors: true, // failures are already logged with context
}

// One subcommand per (language, platform) trigger, plus combined ones.
// An external scheduler invokes these; `schedule` runs cron in-process
// instead.

var xJaCmd = &cobra.Command{
	Use:   "x-ja",
	Short: "Post one Japanese sentence to X",
	RunE: func(cmd *cobra.Command, args []string) error {
		return app.RunX(cmd.Context(), content.Japanese)
	},
}

var xEnCmd = &cobra.Command{
	Use:   "x-en",
	Short: "Post one English sentence to X",
	RunE: func(cmd *cobra.Command, args []string) error {
		return app.RunX(cmd.Context(), content.English)
	},
}

var bskyJaCmd = &cobra.Command{
	Use:   "bsky-ja",
	Short: "Post one Japanese sentence to Bluesky",
	RunE: func(cmd *cobra.Command, args []string) error {
		return app.RunBluesky(cmd.Context(), content.Japanese)
	},
}

var bskyEnCmd = &cobra.Command{
	Use:   "bsky-en",
	Short: "Post one English sentence to Bluesky",
	RunE: func(cmd *cobra.Command, args []string) error {
		return app.RunBluesky(cmd.Context(), content.English)
	},
}

var jaCmd = &cobra.Command{
	Use:   "ja",
	Short: "Post one Japanese sentence to both platforms",
	RunE: func(cmd *cobra.Command, args []string) error {
		return app.Run(cmd.Context(), content.Japanese)
	},
}

var enCmd = &cobra.Command{
	Use:   "en",
	Short: "Post one English sentence to both platforms",
	RunE: func(cmd *cobra.Command, args []string) error {
		return app.Run(cmd.Context(), content.English)
	},
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the posting schedule in-process",
	Long: `Runs both language pipelines on cron expressions.

SCHEDULE_JA and SCHEDULE_EN override the defaults (every six hours,
offset by thirty minutes so the two runs never coincide).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		jaSpec := envOr("SCHEDULE_JA", "0 */6 * * *")
		enSpec := envOr("SCHEDULE_EN", "30 */6 * * *")

		c := cron.New()
		if _, err := c.AddFunc(jaSpec, func() { _ = app.Run(context.Background(), content.Japanese) }); err != nil {
			return fmt.Errorf("bad SCHEDULE_JA %q: %w", jaSpec, err)
		}
		if _, err := c.AddFunc(enSpec, func() { _ = app.Run(context.Background(), content.English) }); err != nil {
			return fmt.Errorf("bad SCHEDULE_EN %q: %w", enSpec, err)
		}
		logger.Info("schedule started", zap.String("ja", jaSpec), zap.String("en", enSpec))
		c.Run()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(xJaCmd, xEnCmd, bskyJaCmd, bskyEnCmd, jaCmd, enCmd, scheduleCmd)
}

func main() {
	_ = godotenv.Load()

	var err error
	logger, err = zap.NewProduction()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	app = poster.New(logger)
	app.DryRun = os.Getenv("DRY_RUN") == "1"

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
