package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/saad688/pdftoword/internal/config"
	"github.com/saad688/pdftoword/internal/services"
)

var (
	trigger *services.GCSTrigger
	once    sync.Once
	initErr error
)

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	functions.CloudEvent("ConvertUploadedPDF", convertUploadedPDF)
}

// main is required by the Go Functions Framework.
func main() {}

func setup() (*services.GCSTrigger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	rt, err := services.NewRuntime(context.Background(), cfg)
	if err != nil {
		return nil, err
	}
	return services.NewGCSTrigger(rt)
}

// convertUploadedPDF handles GCS object finalize events.
func convertUploadedPDF(ctx context.Context, e cloudevents.Event) error {
	once.Do(func() {
		trigger, initErr = setup()
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		return initErr
	}

	var gcsEvent services.GCSEvent
	if err := e.DataAs(&gcsEvent); err != nil {
		slog.Error("Failed to unmarshal event data", "error", err, "data", string(e.Data()))
		return fmt.Errorf("event.DataAs: %w", err)
	}
	return trigger.Process(ctx, gcsEvent)
}
