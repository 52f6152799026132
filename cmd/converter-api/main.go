package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/joho/godotenv"

	"github.com/saad688/pdftoword/internal/api"
	"github.com/saad688/pdftoword/internal/config"
	"github.com/saad688/pdftoword/internal/services"
)

var (
	server  *api.Server
	once    sync.Once
	initErr error
)

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// A missing .env is fine; deployed functions get their settings from
	// the environment.
	_ = godotenv.Load()

	functions.HTTP("ConverterAPI", handleRequest)
}

// main is required by the Go Functions Framework.
func main() {}

func setup() (*api.Server, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	rt, err := services.NewRuntime(context.Background(), cfg)
	if err != nil {
		return nil, err
	}
	// Jobs and their output directories live on this instance only, so the
	// instance purges its own idle jobs.
	go rt.Converter.RunJanitor(context.Background(), cfg.JobPurgeInterval, cfg.JobMaxAge)
	return api.NewServer(rt.Converter, cfg.MaxUploadBytes()), nil
}

func handleRequest(w http.ResponseWriter, r *http.Request) {
	// The runtime is built once, on the first request.
	once.Do(func() {
		server, initErr = setup()
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}
	server.ServeHTTP(w, r)
}
