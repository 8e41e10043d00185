package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"go-survey-pipeline/internal/cache"
	"go-survey-pipeline/internal/config"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show survey cache statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		c := cache.New(cfg.CachePath(), cfg.YearColumn)
		stats, err := c.Stats()
		if err != nil {
			return err
		}

		if !stats.Exists {
			fmt.Println("No cache has been built yet.")
			return nil
		}

		fmt.Println("Cache stats:")
		fmt.Printf("  Path:     %s\n", stats.Path)
		fmt.Printf("  Rows:     %d\n", stats.Rows)
		fmt.Printf("  Size:     %.2f MB\n", stats.SizeMB)
		fmt.Printf("  Built at: %s\n", stats.BuiltAt)
		fmt.Printf("  Source:   %s\n", stats.Source)
		fmt.Printf("  Years:    %s\n", stats.Years)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
