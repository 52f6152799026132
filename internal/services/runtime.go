package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"cloud.google.com/go/storage"

	"github.com/saad688/pdftoword/internal/cache"
	"github.com/saad688/pdftoword/internal/config"
	"github.com/saad688/pdftoword/internal/gcp"
	"github.com/saad688/pdftoword/internal/jobs"
	"github.com/saad688/pdftoword/internal/ratelimit"
)

// Runtime holds a Converter together with the cloud clients it was built
// from.
type Runtime struct {
	Config    *config.Config
	Converter *Converter

	storageClient *storage.Client
	jobStore      *gcp.FirestoreJobStore
	closers       []func() error
}

// NewRuntime creates every client the configuration asks for and wires
// them into a Converter.
func NewRuntime(ctx context.Context, cfg *config.Config) (rt *Runtime, err error) {
	rt = &Runtime{Config: cfg}
	defer func() {
		if err != nil {
			_ = rt.Close()
		}
	}()

	// Vertex stages pages through a bucket, so it needs storage even
	// without a cache or output bucket.
	if cfg.Backend == config.BackendVertex || cfg.CacheBucket != "" || cfg.OutputBucket != "" {
		rt.storageClient, err = storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage client: %w", err)
		}
		rt.closers = append(rt.closers, rt.storageClient.Close)
	}

	extractor, err := rt.newExtractor(ctx)
	if err != nil {
		return nil, err
	}

	store, err := rt.newCacheStore()
	if err != nil {
		return nil, err
	}

	var sink jobs.StatusSink
	if cfg.FirestoreCollection != "" {
		client, err := gcp.NewFirestoreClient(ctx, cfg.ProjectID)
		if err != nil {
			return nil, err
		}
		rt.jobStore = gcp.NewFirestoreJobStore(client, cfg.FirestoreCollection)
		rt.closers = append(rt.closers, rt.jobStore.Close)
		sink = rt.jobStore
	}

	policy, err := ratelimit.ParseResetPolicy(cfg.RateLimitReset, cfg.RateLimitTimezone)
	if err != nil {
		return nil, err
	}
	registry, err := ratelimit.NewRegistry(ratelimit.DefaultTiers(), cfg.DefaultMode, ratelimit.WithResetPolicy(policy))
	if err != nil {
		return nil, fmt.Errorf("failed to build rate limits: %w", err)
	}

	rt.Converter, err = NewConverter(ctx, ConverterDeps{
		Splitter:        NewPDFSplitter(cfg.TempDir),
		Extractor:       extractor,
		Limits:          registry,
		Cache:           cache.New(store, slog.Default()),
		JobSink:         sink,
		OutputDir:       cfg.OutputDir,
		DocumentWorkers: cfg.DocumentWorkers,
		PageWorkers:     cfg.PageWorkers,
		QueueSize:       cfg.QueueSize,
		MaxUploadBytes:  cfg.MaxUploadBytes(),
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Converter initialized.",
		"backend", cfg.Backend,
		"defaultMode", registry.Default(),
		"documentWorkers", cfg.DocumentWorkers,
		"pageWorkers", cfg.PageWorkers,
		"resetPolicy", policy.String(),
	)
	return rt, nil
}

func (rt *Runtime) newExtractor(ctx context.Context) (Extractor, error) {
	cfg := rt.Config
	switch cfg.Backend {
	case config.BackendVertex:
		e, err := gcp.NewVertexExtractor(ctx, cfg.ProjectID, cfg.VertexRegion, rt.storageClient, cfg.StagingBucket)
		if err != nil {
			return nil, fmt.Errorf("failed to create vertex extractor: %w", err)
		}
		rt.closers = append(rt.closers, e.Close)
		return e, nil
	case config.BackendGemini:
		e, err := gcp.NewGeminiExtractor(ctx, cfg.GeminiAPIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create gemini extractor: %w", err)
		}
		rt.closers = append(rt.closers, e.Close)
		return e, nil
	}
	return nil, fmt.Errorf("unknown extraction backend %q", cfg.Backend)
}

func (rt *Runtime) newCacheStore() (cache.Store, error) {
	cfg := rt.Config
	switch {
	case cfg.CacheBucket != "":
		return cache.NewGCSStore(rt.storageClient.Bucket(cfg.CacheBucket), "structured"), nil
	case cfg.CacheDir != "":
		store, err := cache.NewFileStore(cfg.CacheDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open cache dir: %w", err)
		}
		return store, nil
	}
	return nil, nil
}

// Close stops the converter and releases every client.
func (rt *Runtime) Close() error {
	if rt.Converter != nil {
		rt.Converter.Close()
	}
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}
