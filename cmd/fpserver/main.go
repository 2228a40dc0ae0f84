//go:build !js && !wasm
// +build !js,!wasm

package main

import (
	"flag"
	"os"
	"strings"

	"github.com/landmarkfp/fpengine/pkg/fpapi"
	"github.com/landmarkfp/fpengine/pkg/fpcore"
	"github.com/landmarkfp/fpengine/pkg/fpengine"
	"github.com/landmarkfp/fpengine/pkg/fplog"
)

var (
	port           int
	dbPath         string
	tempDir        string
	sampleRate     int
	allowedOrigins string
)

func init() {
	flag.IntVar(&port, "port", 8080, "HTTP server port")
	flag.StringVar(&dbPath, "db", getEnvOrDefault("FPENGINE_DB_PATH", "fpengine.sqlite3"), "path to the SQLite fingerprint index")
	flag.StringVar(&tempDir, "temp", getEnvOrDefault("FPENGINE_TEMP_DIR", os.TempDir()), "temporary directory for uploads")
	flag.IntVar(&sampleRate, "rate", fpcore.SampleRate, "audio sample rate")
	flag.StringVar(&allowedOrigins, "origins", "*", "comma-separated list of allowed CORS origins")
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func main() {
	flag.Parse()

	var origins []string
	if allowedOrigins == "*" {
		origins = []string{"*"}
	} else {
		for _, o := range strings.Split(allowedOrigins, ",") {
			origins = append(origins, strings.TrimSpace(o))
		}
	}

	svc, err := fpengine.NewService(
		fpengine.WithDBPath(dbPath),
		fpengine.WithTempDir(tempDir),
		fpengine.WithSampleRate(sampleRate),
	)
	if err != nil {
		fplog.Fatal("failed to create engine: %v", err)
	}
	defer svc.Close()

	server := fpapi.NewServer(svc, &fpapi.ServerConfig{
		Port: port, TempDir: tempDir, SampleRate: sampleRate, AllowedOrigins: origins,
	})
	if err := server.Start(); err != nil {
		fplog.Fatal("server failed: %v", err)
	}
}
