package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Reconcile stored bytes against the download index",
	Long:  `Removes stored content without an index entry and index entries without stored content.`,
	Run: func(cmd *cobra.Command, args []string) {
		svc, err := buildServices()
		if err != nil {
			log.Fatalf("Failed to initialize services: %v", err)
		}
		defer svc.close()

		if err := svc.manager.CleanupOrphans(context.Background()); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
		fmt.Println("Cleanup complete.")
	},
}

var exportCmd = &cobra.Command{
	Use:   "export [track-id...]",
	Short: "Export downloaded tracks as media files",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		svc, err := buildServices()
		if err != nil {
			log.Fatalf("Failed to initialize services: %v", err)
		}
		defer svc.close()

		if err := svc.manager.ExportTracks(context.Background(), args); err != nil {
			log.Fatalf("Export failed: %v", err)
		}
		fmt.Printf("Exported to %s.\n", svc.cfg.ExportDir)
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show download statistics",
	Run: func(cmd *cobra.Command, args []string) {
		svc, err := buildServices()
		if err != nil {
			log.Fatalf("Failed to initialize services: %v", err)
		}
		defer svc.close()

		stats, err := svc.manager.GetStats(context.Background())
		if err != nil {
			log.Fatalf("Failed to compute stats: %v", err)
		}
		fmt.Printf("Downloads: %d\n", stats.TotalDownloads)
		fmt.Printf("Total size: %d bytes\n", stats.TotalSize)
		fmt.Printf("Average size: %.0f bytes\n", stats.AverageSize)
		for tier, count := range stats.ByQuality {
			fmt.Printf("  %s: %d\n", tier, count)
		}
	},
}

func init() {
	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(statsCmd)
}
