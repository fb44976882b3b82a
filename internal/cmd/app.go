package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/tomasbasham/photo-capture/internal/camera"
	"github.com/tomasbasham/photo-capture/internal/config"
	"github.com/tomasbasham/photo-capture/internal/logging"
	"github.com/tomasbasham/photo-capture/internal/permission"
	"github.com/tomasbasham/photo-capture/internal/session"
	"github.com/tomasbasham/photo-capture/internal/storage"
	"github.com/tomasbasham/photo-capture/internal/upload"
)

// app holds the collaborators every command builds from the config.
type app struct {
	cfg      *config.Config
	log      logging.Logger
	mediaDir string

	bucket   storage.Bucket
	pipeline camera.Pipeline
	uploader *upload.Coordinator
	gate     *permission.Gate
}

func newApp(ctx context.Context, cfg *config.Config, log logging.Logger) (*app, error) {
	mediaDir, err := config.MediaDir()
	if err != nil {
		return nil, err
	}

	bucket, err := newBucket(ctx, cfg)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		log:      log,
		mediaDir: mediaDir,
		bucket:   bucket,
		pipeline: newPipeline(cfg),
		uploader: upload.NewCoordinator(bucket, upload.NewSystemOpener(), log.With("component", "upload")),
		gate:     permission.NewGate(permission.NewDeviceChecker(cfg.DevicePath(), mediaDir), cfg.PlatformVersion),
	}
	log.Debug(ctx, "application wired",
		"backend", cfg.Backend,
		"source", cfg.Source,
		"media_dir", mediaDir,
	)
	return a, nil
}

func newBucket(ctx context.Context, cfg *config.Config) (storage.Bucket, error) {
	switch cfg.Backend {
	case config.BackendGCS:
		b, err := storage.NewGCSBucket(ctx, cfg.Bucket)
		if err != nil {
			return nil, fmt.Errorf("failed to initialise GCS bucket: %w", err)
		}
		return b, nil
	case config.BackendS3:
		b, err := storage.NewS3Bucket(ctx, storage.S3Options{
			Bucket:       cfg.Bucket,
			Region:       cfg.S3Region,
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
			BaseEndpoint: cfg.S3Endpoint,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialise S3 bucket: %w", err)
		}
		return b, nil
	default:
		b, err := storage.NewLocalBucket(cfg.LocalDir)
		if err != nil {
			return nil, fmt.Errorf("failed to initialise local bucket: %w", err)
		}
		return b, nil
	}
}

func newPipeline(cfg *config.Config) camera.Pipeline {
	if cfg.Source == config.SourceBrowser {
		return camera.NewBrowserPipeline(camera.BrowserOptions{
			URL:               cfg.SnapshotURL,
			NavigationTimeout: cfg.NavigationTimeout,
			ViewportWidth:     int64(cfg.Width),
			ViewportHeight:    int64(cfg.Height),
			Quality:           cfg.Quality,
		})
	}
	return camera.NewDevicePipeline(camera.DeviceOptions{
		Device:  cfg.Device,
		Width:   cfg.Width,
		Height:  cfg.Height,
		Quality: cfg.Quality,
	})
}

// controller builds a session controller for one screen or one capture.
// Without a gate no permissions are checked.
func (a *app) controller(gate *permission.Gate) *session.Controller {
	return session.New(session.Options{
		OutputDir: a.mediaDir,
		Pipeline:  a.pipeline,
		Uploader:  a.uploader,
		Gate:      gate,
		Logger:    a.log,
	})
}

// source describes the configured camera for display.
func (a *app) source() string {
	if a.cfg.Source == config.SourceBrowser {
		return a.cfg.SnapshotURL
	}
	if a.cfg.Device == "" {
		return "default camera"
	}
	return a.cfg.Device
}

func (a *app) Close() error {
	errs := []error{a.pipeline.Close()}
	if c, ok := a.bucket.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
