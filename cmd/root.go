package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Tilak559/gutter-estimate/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "gutter-estimate",
	Short: "Gutter length estimation from satellite imagery",
	Long:  "Geocodes an address, pulls Google Solar building insights and imagery, classifies the roof, and estimates required gutter length with an uncertainty range.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
