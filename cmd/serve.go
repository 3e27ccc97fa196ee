package cmd

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"triago/internal/webui"
)

var (
	serveAddr string
	servePort int
)

// serveCmd runs the web UI: the upload form plus the JSON API.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web form and HTTP API",
	Long: `Starts an HTTP server with a browser upload form and a small JSON API
(/api/v1/analyze, /api/v1/types, /api/v1/history). Uploaded files run through
the same pipeline as 'triago analyze' and come back as a download.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}

		addr := serveAddr
		if addr == "" {
			addr = appInstance.Config.Server.Addr
		}
		port := servePort
		if port == 0 {
			port = appInstance.Config.Server.Port
		}
		listenAddr := fmt.Sprintf("%s:%d", addr, port)

		router := webui.NewServer(appInstance).Router()
		log.Infof("Starting web UI on http://%s", listenAddr)

		// router.Run blocks unless an error occurs
		if err := router.Run(listenAddr); err != nil {
			return fmt.Errorf("failed to run web server: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Address to listen on (default from config, localhost)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (default from config, 8080)")
}
