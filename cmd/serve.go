package cmd

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/anuragpy07/Sausico/logger"
	"github.com/anuragpy07/Sausico/player"
	"github.com/anuragpy07/Sausico/player/mpv"
	"github.com/anuragpy07/Sausico/queue"
	"github.com/anuragpy07/Sausico/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the playback server",
	Long:  `Starts the mpv playback engine and the HTTP control surface.`,
	Run: func(cmd *cobra.Command, args []string) {
		svc, err := buildServices()
		if err != nil {
			log.Fatalf("Failed to initialize services: %v", err)
		}
		defer svc.close()

		device, err := mpv.NewDevice(svc.cfg.MPVPath, svc.cfg.MPVSocket)
		if err != nil {
			log.Fatalf("Failed to start playback device: %v", err)
		}

		queueSvc := queue.NewService(svc.catalog)
		controller := player.NewController(device, svc.resolver, queueSvc, player.NopControls{}, svc.settings)

		hub := server.NewStateHub(controller)
		handler := server.NewAPIHandler(controller, svc.manager, svc.resolver, svc.catalog, svc.settings, svc.cfg)

		if err := server.Start(svc.cfg, handler, hub); err != nil {
			logger.Error("server exited with error", logger.ErrorField(err))
		}

		hub.Close()
		// Controller.Close also shuts the playback device down.
		if err := controller.Close(); err != nil {
			logger.Warn("failed to close controller", logger.ErrorField(err))
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
