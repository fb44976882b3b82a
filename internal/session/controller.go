// Package session implements the capture/upload/view workflow of the single
// photo screen as an explicit state machine.
//
// The Controller is not safe for concurrent use: every method, including
// Handle, must be called from the one goroutine that owns the screen. Slow
// work (camera start, capture, push, link fetch, opening a URL) is returned
// as a Task for the caller to run elsewhere; its Event comes back through
// Handle, which may in turn return the next Task in the chain.
package session

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tomasbasham/photo-capture/internal/camera"
	"github.com/tomasbasham/photo-capture/internal/logging"
	"github.com/tomasbasham/photo-capture/internal/permission"
	"github.com/tomasbasham/photo-capture/internal/upload"
)

var (
	ErrCaptureFailed  = errors.New("capture failed")
	ErrInvalidState   = errors.New("invalid state")
	ErrCameraInactive = errors.New("camera is not active")
)

// Uploader is the part of the upload coordinator the controller drives.
type Uploader interface {
	Push(ctx context.Context, localPath string) (string, error)
	Link(ctx context.Context, key string) (string, error)
	Open(ctx context.Context, publicURL string) (string, error)
}

// Options wires a Controller to its collaborators.
type Options struct {
	// OutputDir is where captured photos are written.
	OutputDir string

	Pipeline camera.Pipeline
	Uploader Uploader

	// Gate guards camera start. Nil means no permissions are required.
	Gate *permission.Gate

	Logger logging.Logger

	// Clock defaults to time.Now.
	Clock func() time.Time
}

// Controller owns the view state of the photo screen.
type Controller struct {
	opts Options
	log  logging.Logger

	state  State
	cycle  uint64
	active bool

	// prompt holds the permissions awaiting an interactive answer.
	prompt []permission.Permission

	notices []Notice
}

func New(opts Options) *Controller {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}
	return &Controller{opts: opts, log: log, state: Previewing{}}
}

// State returns the current view state.
func (c *Controller) State() State { return c.state }

// Cycle returns the current capture cycle.
func (c *Controller) Cycle() uint64 { return c.cycle }

// CameraActive reports whether the camera pipeline has started.
func (c *Controller) CameraActive() bool { return c.active }

// Surfaces returns which surface is visible. Exactly one field is true.
func (c *Controller) Surfaces() Surfaces {
	if _, ok := c.state.(Captured); ok {
		return Surfaces{Captured: true}
	}
	return Surfaces{Preview: true}
}

// ViewEnabled reports whether the view-uploaded-photo action is available:
// only once the current photo's download link has been fetched.
func (c *Controller) ViewEnabled() bool {
	s, ok := c.state.(Captured)
	return ok && s.PublicURL != ""
}

// Notices drains the notices raised since the last call.
func (c *Controller) Notices() []Notice {
	n := c.notices
	c.notices = nil
	return n
}

// PendingPermissions returns the permissions awaiting an answer, if any.
func (c *Controller) PendingPermissions() []permission.Permission {
	return append([]permission.Permission(nil), c.prompt...)
}

// Activate checks the permission gate. When every permission is held it
// returns the task that starts the camera; otherwise it records the
// missing permissions for the host to ask about and returns nil.
func (c *Controller) Activate(ctx context.Context) Task {
	if c.opts.Gate == nil {
		return c.startCamera()
	}
	status, missing := c.opts.Gate.Check()
	if status == permission.Granted {
		return c.startCamera()
	}
	c.prompt = missing
	c.log.Info(ctx, "requesting permissions", "permissions", missing)
	return nil
}

// AnswerPermissions resolves an outstanding permission request. It returns
// the camera start task when everything required was granted. A denial
// raises a single notice and leaves the camera inactive until Activate is
// called again.
func (c *Controller) AnswerPermissions(ctx context.Context, results map[permission.Permission]bool) Task {
	if c.prompt == nil {
		return nil
	}
	c.prompt = nil

	var err error
	if c.opts.Gate != nil {
		err = c.opts.Gate.Resolve(results)
	}
	if err != nil {
		c.log.Warn(ctx, "permissions denied", "error", err)
		c.notify(NoticeError, "Camera permission is required to use this app")
		return nil
	}
	c.log.Info(ctx, "all permissions granted, starting camera")
	return c.startCamera()
}

func (c *Controller) startCamera() Task {
	pipeline := c.opts.Pipeline
	cycle := c.cycle
	return func(ctx context.Context) Event {
		if err := pipeline.Start(ctx); err != nil {
			return CameraFailed{Cycle: cycle, Err: err}
		}
		return CameraStarted{Cycle: cycle}
	}
}

// RequestCapture starts a new capture cycle. It is only valid while
// previewing with an active camera. A capture requested while another is in
// flight supersedes it.
func (c *Controller) RequestCapture(ctx context.Context) (Task, error) {
	prev, ok := c.state.(Previewing)
	if !ok {
		return nil, fmt.Errorf("session: capture requested while reviewing a photo: %w", ErrInvalidState)
	}
	if !c.active {
		return nil, ErrCameraInactive
	}

	c.cycle++
	prev.Capturing = true
	c.state = prev

	now := c.opts.Clock()
	photo := Photo{
		Path:      filepath.Join(c.opts.OutputDir, FileName(now)),
		CreatedAt: now,
	}
	cycle := c.cycle
	pipeline := c.opts.Pipeline

	c.log.Debug(ctx, "capture requested", "cycle", cycle, "path", photo.Path)

	return func(ctx context.Context) Event {
		path, err := claim(photo.Path)
		if err != nil {
			return CaptureFailed{Cycle: cycle, Err: fmt.Errorf("%w: %w", ErrCaptureFailed, err)}
		}
		if err := pipeline.Capture(ctx, path); err != nil {
			_ = os.Remove(path)
			return CaptureFailed{Cycle: cycle, Err: fmt.Errorf("%w: %w", ErrCaptureFailed, err)}
		}
		return CaptureCompleted{Cycle: cycle, Photo: Photo{Path: path, CreatedAt: photo.CreatedAt}}
	}, nil
}

// ReturnToPreview discards the current photo and any upload result. Uploads
// still in flight are not cancelled; their outcomes are ignored.
func (c *Controller) ReturnToPreview(ctx context.Context) error {
	if _, ok := c.state.(Captured); !ok {
		return fmt.Errorf("session: return to preview while previewing: %w", ErrInvalidState)
	}
	c.cycle++
	c.state = Previewing{}
	c.log.Debug(ctx, "showing camera preview", "cycle", c.cycle)
	return nil
}

// Back handles back navigation. While reviewing a photo it returns to the
// preview and reports true; otherwise it reports false and the host should
// perform its default navigation.
func (c *Controller) Back(ctx context.Context) bool {
	return c.ReturnToPreview(ctx) == nil
}

// CaptureAnother returns to the preview if needed and captures again.
func (c *Controller) CaptureAnother(ctx context.Context) (Task, error) {
	if _, ok := c.state.(Captured); ok {
		if err := c.ReturnToPreview(ctx); err != nil {
			return nil, err
		}
	}
	return c.RequestCapture(ctx)
}

// View returns the task that opens the uploaded photo, or the bucket
// console when no download link is available.
func (c *Controller) View(ctx context.Context) Task {
	var publicURL string
	if s, ok := c.state.(Captured); ok {
		publicURL = s.PublicURL
	}
	uploader := c.opts.Uploader
	cycle := c.cycle
	return func(ctx context.Context) Event {
		target, err := uploader.Open(ctx, publicURL)
		if err != nil {
			return OpenFailed{Cycle: cycle, URL: target, Err: err}
		}
		return Opened{Cycle: cycle, URL: target}
	}
}

// Handle applies the outcome of a task and returns the next task in the
// chain, if any.
func (c *Controller) Handle(ctx context.Context, ev Event) Task {
	switch e := ev.(type) {
	case CameraStarted:
		c.active = true
		c.log.Info(ctx, "camera started")
		return nil
	case CameraFailed:
		c.active = false
		c.log.Error(ctx, "camera start failed", "error", e.Err)
		c.notify(NoticeError, "Camera initialization failed")
		return nil
	case Opened:
		c.log.Info(ctx, "opened URL", "url", e.URL)
		return nil
	case OpenFailed:
		c.log.Error(ctx, "failed to open URL", "url", e.URL, "error", e.Err)
		c.notify(NoticeError, "Could not open image")
		return nil
	}

	if ev.cycle() != c.cycle {
		c.log.Debug(ctx, "dropping superseded result", "event", fmt.Sprintf("%T", ev), "cycle", ev.cycle(), "current", c.cycle)
		return nil
	}

	switch e := ev.(type) {
	case CaptureCompleted:
		return c.onCaptured(ctx, e)
	case CaptureFailed:
		c.state = Previewing{}
		c.log.Error(ctx, "image capture failed", "error", e.Err)
		c.notify(NoticeError, "Capture failed: "+cause(e.Err, ErrCaptureFailed))
	case UploadPushed:
		return c.onPushed(ctx, e)
	case UploadFailedEvent:
		c.updateCaptured(func(s *Captured) { s.Upload = UploadFailed })
		c.log.Error(ctx, "upload failed", "error", e.Err)
		c.notify(NoticeError, "Upload failed: "+cause(e.Err, upload.ErrUploadFailed))
	case LinkFetched:
		c.updateCaptured(func(s *Captured) {
			s.Upload = UploadDone
			s.PublicURL = e.URL
		})
		c.log.Info(ctx, "upload successful", "object", e.RemoteID, "url", e.URL)
		c.notify(NoticeInfo, "Uploaded successfully")
	case LinkFetchFailed:
		c.updateCaptured(func(s *Captured) { s.Upload = UploadPartial })
		c.log.Error(ctx, "failed to get download URL", "object", e.RemoteID, "error", e.Err)
		c.notify(NoticeError, "Failed to get download URL: "+cause(e.Err, upload.ErrLinkFetchFailed))
	}
	return nil
}

func (c *Controller) onCaptured(ctx context.Context, e CaptureCompleted) Task {
	if _, ok := c.state.(Previewing); !ok {
		return nil
	}
	c.state = Captured{Photo: e.Photo, Upload: UploadPushing}
	c.log.Info(ctx, "photo captured", "path", e.Photo.Path, "cycle", e.Cycle)
	c.notify(NoticeInfo, "Photo captured successfully")
	c.notify(NoticeInfo, "Uploading...")

	uploader := c.opts.Uploader
	cycle := e.Cycle
	path := e.Photo.Path
	return func(ctx context.Context) Event {
		key, err := uploader.Push(ctx, path)
		if err != nil {
			return UploadFailedEvent{Cycle: cycle, Err: err}
		}
		return UploadPushed{Cycle: cycle, RemoteID: key}
	}
}

func (c *Controller) onPushed(ctx context.Context, e UploadPushed) Task {
	if _, ok := c.state.(Captured); !ok {
		return nil
	}
	c.updateCaptured(func(s *Captured) {
		s.Upload = UploadLinking
		s.RemoteID = e.RemoteID
	})
	c.log.Debug(ctx, "upload pushed, fetching link", "object", e.RemoteID)

	uploader := c.opts.Uploader
	cycle := e.Cycle
	key := e.RemoteID
	return func(ctx context.Context) Event {
		u, err := uploader.Link(ctx, key)
		if err != nil {
			return LinkFetchFailed{Cycle: cycle, RemoteID: key, Err: err}
		}
		return LinkFetched{Cycle: cycle, RemoteID: key, URL: u}
	}
}

func (c *Controller) updateCaptured(fn func(*Captured)) {
	s, ok := c.state.(Captured)
	if !ok {
		return
	}
	fn(&s)
	c.state = s
}

func (c *Controller) notify(kind NoticeKind, text string) {
	c.notices = append(c.notices, Notice{Kind: kind, Text: text})
}

// Drive runs task and every follow-up task on the calling goroutine until
// the chain ends. observe, if not nil, sees every event after it has been
// handled.
func (c *Controller) Drive(ctx context.Context, task Task, observe func(Event)) {
	for task != nil {
		ev := task(ctx)
		task = c.Handle(ctx, ev)
		if observe != nil {
			observe(ev)
		}
	}
}

// FileName formats t as yyyy-MM-dd-HH-mm-ss-SSS.jpg. Names sort in capture
// order.
func FileName(t time.Time) string {
	return fmt.Sprintf("%s-%03d.jpg", t.Format("2006-01-02-15-04-05"), t.Nanosecond()/int(time.Millisecond))
}

// maxClaimAttempts bounds the numeric suffixes tried for one file name.
const maxClaimAttempts = 100

// claim creates the photo file exclusively and returns its path. Controllers
// sharing an output directory can request the same millisecond name; the
// later ones get a numeric suffix before the extension instead of
// overwriting the earlier photo.
func claim(path string) (string, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("session: failed to create output directory: %w", err)
	}

	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	for i := 0; i < maxClaimAttempts; i++ {
		candidate := path
		if i > 0 {
			candidate = fmt.Sprintf("%s-%d%s", stem, i, ext)
		}
		f, err := os.OpenFile(candidate, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			return candidate, f.Close()
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("session: failed to create %q: %w", candidate, err)
		}
	}
	return "", fmt.Errorf("session: no free file name for %q", path)
}

// cause strips the sentinel prefix from err's message.
func cause(err, sentinel error) string {
	return strings.TrimPrefix(err.Error(), sentinel.Error()+": ")
}
