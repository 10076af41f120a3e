package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/anuragpy07/Sausico/model"
)

var downloadCmd = &cobra.Command{
	Use:   "download [track-id...]",
	Short: "Download tracks for offline playback",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		svc, err := buildServices()
		if err != nil {
			log.Fatalf("Failed to initialize services: %v", err)
		}
		defer svc.close()

		ctx := context.Background()
		for _, id := range args {
			track, err := svc.catalog.GetTrackByID(ctx, id)
			if err != nil {
				log.Fatalf("Track %s not found: %v", id, err)
			}

			fmt.Printf("Downloading %s - %s\n", track.Title, track.ArtistNames())
			record, err := svc.manager.DownloadTrack(ctx, track, func(p model.DownloadProgress) {
				fmt.Printf("\r  %.0f%% (%d/%d bytes)", p.Progress, p.DownloadedBytes, p.TotalBytes)
			})
			if err != nil {
				fmt.Println()
				log.Fatalf("Download failed for %s: %v", id, err)
			}
			fmt.Printf("\nDone: %d bytes at %s quality\n", record.ByteSize, record.Quality)
		}
	},
}

var downloadsCmd = &cobra.Command{
	Use:   "downloads",
	Short: "List downloaded tracks",
	Run: func(cmd *cobra.Command, args []string) {
		svc, err := buildServices()
		if err != nil {
			log.Fatalf("Failed to initialize services: %v", err)
		}
		defer svc.close()

		records, err := svc.manager.Records(context.Background())
		if err != nil {
			log.Fatalf("Failed to read downloads: %v", err)
		}
		if len(records) == 0 {
			fmt.Println("No downloads.")
			return
		}
		for _, r := range records {
			fmt.Printf("%s  %s - %s  %d bytes  %s\n",
				r.ID, r.Track.Title, r.Track.ArtistNames(), r.ByteSize, r.Quality)
		}
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete [track-id]",
	Short: "Delete a downloaded track, or all downloads with --all",
	Run: func(cmd *cobra.Command, args []string) {
		svc, err := buildServices()
		if err != nil {
			log.Fatalf("Failed to initialize services: %v", err)
		}
		defer svc.close()

		ctx := context.Background()
		all, _ := cmd.Flags().GetBool("all")
		if all {
			if err := svc.manager.DeleteAllDownloads(ctx); err != nil {
				log.Fatalf("Failed to delete downloads: %v", err)
			}
			fmt.Println("All downloads deleted.")
			return
		}
		if len(args) != 1 {
			log.Fatal("Provide a track id or --all")
		}
		if err := svc.manager.DeleteDownload(ctx, args[0]); err != nil {
			log.Fatalf("Failed to delete %s: %v", args[0], err)
		}
		fmt.Printf("Deleted %s.\n", args[0])
	},
}

func init() {
	deleteCmd.Flags().Bool("all", false, "delete every download")
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(downloadsCmd)
	rootCmd.AddCommand(deleteCmd)
}
