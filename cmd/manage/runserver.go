package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"atb-backend/internal/server"
)

var (
	runServerHost string
	runServerPort string
)

var runServerCmd = &cobra.Command{
	Use:   "runserver",
	Short: "Run the API server",
	Run: func(cmd *cobra.Command, args []string) {
		opts := server.Options{
			Host: runServerHost,
			Port: runServerPort,
		}
		if err := server.Run(context.Background(), opts); err != nil {
			os.Exit(1)
		}
	},
}

func init() {
	runServerCmd.Flags().StringVar(&runServerHost, "host", "", "Host to bind to")
	runServerCmd.Flags().StringVar(&runServerPort, "port", "", "Port to bind to (default: PORT env)")
}
