package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/landmarkfp/fpengine/pkg/fpapi"
	"github.com/landmarkfp/fpengine/pkg/fplog"
)

var (
	servePort    int
	serveOrigins string
)

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "HTTP server port")
	serveCmd.Flags().StringVar(&serveOrigins, "origins", "*", "comma-separated list of allowed CORS origins")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP matching and ingestion API",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService()
		if err != nil {
			return err
		}
		defer svc.Close()

		var origins []string
		if serveOrigins == "*" {
			origins = []string{"*"}
		} else {
			for _, o := range strings.Split(serveOrigins, ",") {
				origins = append(origins, strings.TrimSpace(o))
			}
		}

		server := fpapi.NewServer(svc, &fpapi.ServerConfig{
			Port:           servePort,
			TempDir:        tempDir(),
			SampleRate:     sampleRate(),
			AllowedOrigins: origins,
		})
		fplog.Infof("fpctl serve: listening on :%d", servePort)
		return server.Start()
	},
}
