package operation

import (
	"context"
	"time"

	"github.com/tomasbasham/photo-capture/internal/camera"
	"github.com/tomasbasham/photo-capture/internal/logging"
	"github.com/tomasbasham/photo-capture/internal/session"
)

// WorkerOptions configures a capture worker invocation.
type WorkerOptions struct {
	OperationID string
	Store       Store
	OutputDir   string
	Pipeline    camera.Pipeline
	Uploader    session.Uploader
	Logger      logging.Logger

	// Clock names photos; defaults to time.Now.
	Clock func() time.Time
}

// Run executes one capture cycle and transitions the operation through
// capturing → uploading → complete | partial | failed.
//
// Run is intended to be called in a separate goroutine; it owns the full
// lifecycle of the operation from the moment it is called. The cycle is
// driven by its own session.Controller, so remote captures follow exactly
// the same sequencing as the interactive screen.
func Run(ctx context.Context, opts WorkerOptions) {
	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}
	log = log.With("operation", opts.OperationID)

	if err := opts.Store.MarkCapturing(opts.OperationID); err != nil {
		// If we cannot even mark it capturing the store is broken; nothing to do.
		log.Error(ctx, "failed to mark operation capturing", "error", err)
		return
	}

	c := session.New(session.Options{
		OutputDir: opts.OutputDir,
		Pipeline:  opts.Pipeline,
		Uploader:  opts.Uploader,
		Logger:    log,
		Clock:     opts.Clock,
	})

	record := func(ev session.Event) {
		var err error
		switch e := ev.(type) {
		case session.CameraFailed:
			err = opts.Store.MarkFailed(opts.OperationID, e.Err)
		case session.CaptureCompleted:
			err = opts.Store.MarkUploading(opts.OperationID, e.Photo.Path)
		case session.CaptureFailed:
			err = opts.Store.MarkFailed(opts.OperationID, e.Err)
		case session.UploadFailedEvent:
			err = opts.Store.MarkFailed(opts.OperationID, e.Err)
		case session.LinkFetched:
			err = opts.Store.MarkComplete(opts.OperationID, e.RemoteID, e.URL)
		case session.LinkFetchFailed:
			err = opts.Store.MarkPartial(opts.OperationID, e.RemoteID, e.Err)
		}
		if err != nil {
			log.Error(ctx, "failed to record operation progress", "error", err)
		}
	}

	c.Drive(ctx, c.Activate(ctx), record)
	if !c.CameraActive() {
		return
	}

	task, err := c.RequestCapture(ctx)
	if err != nil {
		record(session.CaptureFailed{Err: err})
		return
	}
	c.Drive(ctx, task, record)

	if op, err := opts.Store.Get(opts.OperationID); err == nil {
		log.Info(ctx, "operation finished", "status", op.Status, "url", op.PublicURL)
	}
}
