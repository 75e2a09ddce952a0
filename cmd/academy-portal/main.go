package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	_ "github.com/noah-isme/academy-portal/api/swagger"
	"github.com/noah-isme/academy-portal/pkg/config"
	"github.com/noah-isme/academy-portal/pkg/logger"
)

// @title Academy Portal API
// @version 1.0.0
// @description Public course catalogue, registration and back-office for the academy.
// @BasePath /api/v1
// @schemes http https

var version = "dev"

var (
	cfg  *config.Config
	logr *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:     "academy-portal",
	Short:   "Academy marketing site and back-office API",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		loaded, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if url, _ := cmd.Flags().GetString("upstream"); url != "" {
			loaded.Upstream.BaseURL = url
		}
		l, err := logger.New(loaded)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		cfg, logr = loaded, l
		return nil
	},
	PersistentPostRun: func(*cobra.Command, []string) {
		if logr != nil {
			_ = logr.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().String("upstream", "", "academy backend base URL (overrides UPSTREAM_BASE_URL)")
	rootCmd.AddCommand(serveCmd, coursesCmd, registerCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
