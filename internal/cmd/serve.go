package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tomasbasham/cli-runtime/templates"

	"github.com/tomasbasham/photo-capture/internal/config"
	"github.com/tomasbasham/photo-capture/internal/logging"
	"github.com/tomasbasham/photo-capture/internal/operation"
	"github.com/tomasbasham/photo-capture/internal/permission"
	"github.com/tomasbasham/photo-capture/internal/server"
)

type ServeOptions struct {
	*PhotoOptions
}

var (
	serveLong = templates.LongDesc(`
		Start the remote shutter HTTP server.

		POST /captures takes a photo and uploads it in the background;
		GET /captures/{id} reports its progress and download link.`)

	serveExample = templates.Examples(`
		# Start on the default address
		photo serve

		# Start on a custom address with a specific GCS bucket
		photo serve --addr :9090 --backend gcs --bucket my-photos`)
)

func NewServeOptions(root *PhotoOptions) *ServeOptions {
	return &ServeOptions{PhotoOptions: root}
}

func NewServeCommand(o *ServeOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "serve",
		Short:   "Start the remote shutter HTTP server",
		Long:    serveLong,
		Example: serveExample,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Run(); err != nil {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&o.Config.Addr, config.FlagAddr, o.Config.Addr, "Address to listen on")

	return cmd
}

func (o *ServeOptions) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log, err := logging.New(o.ErrOut, o.Config.LogLevel)
	if err != nil {
		return err
	}

	a, err := newApp(ctx, o.Config, log)
	if err != nil {
		return err
	}
	defer a.Close()

	// Remote captures cannot ask for permissions, so any missing one fails
	// the server, and the camera is started before accepting requests.
	if status, missing := a.gate.Check(); status != permission.Granted {
		return &permission.DeniedError{Denied: missing}
	}
	if err := a.pipeline.Start(ctx); err != nil {
		return fmt.Errorf("failed to start camera: %w", err)
	}

	srv := server.New(ctx, server.Options{
		Store:     operation.NewMemoryStore(),
		OutputDir: a.mediaDir,
		Pipeline:  a.pipeline,
		Uploader:  a.uploader,
		Logger:    log,
	})
	return srv.ListenAndServe(ctx, o.Config.Addr)
}
