package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomasbasham/photo-capture/internal/permission"
	"github.com/tomasbasham/photo-capture/internal/upload"
)

type fakePipeline struct {
	startErr   error
	captureErr error
	started    int
	captured   []string
}

func (p *fakePipeline) Start(context.Context) error {
	p.started++
	return p.startErr
}

func (p *fakePipeline) Capture(_ context.Context, path string) error {
	p.captured = append(p.captured, path)
	return p.captureErr
}

func (p *fakePipeline) Close() error { return nil }

type fakeUploader struct {
	pushErr error
	linkErr error
	pushes  []string
	links   []string
	opened  []string
	openErr error
}

func (u *fakeUploader) Push(_ context.Context, path string) (string, error) {
	u.pushes = append(u.pushes, path)
	if u.pushErr != nil {
		return "", fmt.Errorf("%w: %w", upload.ErrUploadFailed, u.pushErr)
	}
	return upload.Key(path), nil
}

func (u *fakeUploader) Link(_ context.Context, key string) (string, error) {
	u.links = append(u.links, key)
	if u.linkErr != nil {
		return "", fmt.Errorf("%w: %w", upload.ErrLinkFetchFailed, u.linkErr)
	}
	return "https://cdn.example/" + key, nil
}

func (u *fakeUploader) Open(_ context.Context, publicURL string) (string, error) {
	target := publicURL
	if target == "" {
		target = "https://console.example"
	}
	u.opened = append(u.opened, target)
	if u.openErr != nil {
		return target, fmt.Errorf("%w: %w", upload.ErrOpenFailed, u.openErr)
	}
	return target, nil
}

type mapChecker map[permission.Permission]bool

func (m mapChecker) Granted(p permission.Permission) bool { return m[p] }

var fixedTime = time.Date(2024, 3, 9, 14, 5, 7, 42*int(time.Millisecond), time.UTC)

type fixture struct {
	ctx      context.Context
	dir      string
	pipeline *fakePipeline
	uploader *fakeUploader
	c        *Controller
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		ctx:      context.Background(),
		dir:      t.TempDir(),
		pipeline: &fakePipeline{},
		uploader: &fakeUploader{},
	}
	f.c = New(Options{
		OutputDir: f.dir,
		Pipeline:  f.pipeline,
		Uploader:  f.uploader,
		Clock:     func() time.Time { return fixedTime },
	})
	f.c.Drive(f.ctx, f.c.Activate(f.ctx), nil)
	require.True(t, f.c.CameraActive())
	return f
}

func (f *fixture) capture(t *testing.T) Task {
	t.Helper()
	task, err := f.c.RequestCapture(f.ctx)
	require.NoError(t, err)
	return task
}

func assertExclusiveSurfaces(t *testing.T, c *Controller) {
	t.Helper()
	s := c.Surfaces()
	assert.True(t, s.Preview != s.Captured, "exactly one surface must be visible: %+v", s)
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "2024-03-09-14-05-07-042.jpg", FileName(fixedTime))
	assert.Equal(t, "2024-03-09-14-05-07-000.jpg", FileName(fixedTime.Truncate(time.Second)))
}

func TestController_InitialState(t *testing.T) {
	c := New(Options{Pipeline: &fakePipeline{}})

	assert.Equal(t, Previewing{}, c.State())
	assert.Equal(t, Surfaces{Preview: true}, c.Surfaces())
	assert.False(t, c.ViewEnabled())
	assert.False(t, c.CameraActive())
}

func TestController_FullSuccess(t *testing.T) {
	f := newFixture(t)

	var seen []string
	f.c.Drive(f.ctx, f.capture(t), func(ev Event) {
		seen = append(seen, fmt.Sprintf("%T", ev))
		assertExclusiveSurfaces(t, f.c)
	})

	assert.Equal(t, []string{"session.CaptureCompleted", "session.UploadPushed", "session.LinkFetched"}, seen)

	wantPath := filepath.Join(f.dir, "2024-03-09-14-05-07-042.jpg")
	assert.Equal(t, []string{wantPath}, f.pipeline.captured)

	s, ok := f.c.State().(Captured)
	require.True(t, ok)
	assert.Equal(t, Photo{Path: wantPath, CreatedAt: fixedTime}, s.Photo)
	assert.Equal(t, UploadDone, s.Upload)
	assert.Equal(t, "images/2024-03-09-14-05-07-042.jpg", s.RemoteID)
	assert.Equal(t, "https://cdn.example/images/2024-03-09-14-05-07-042.jpg", s.PublicURL)
	assert.True(t, f.c.ViewEnabled())
	assert.Equal(t, Surfaces{Captured: true}, f.c.Surfaces())

	assert.Equal(t, []Notice{
		{NoticeInfo, "Photo captured successfully"},
		{NoticeInfo, "Uploading..."},
		{NoticeInfo, "Uploaded successfully"},
	}, f.c.Notices())
	assert.Empty(t, f.c.Notices(), "notices are drained")
}

func TestController_CapturedImmediatelyAfterCaptureCallback(t *testing.T) {
	f := newFixture(t)
	task := f.capture(t)

	assert.Equal(t, Previewing{Capturing: true}, f.c.State())
	assertExclusiveSurfaces(t, f.c)

	next := f.c.Handle(f.ctx, task(f.ctx))
	require.NotNil(t, next, "upload starts after capture")

	s, ok := f.c.State().(Captured)
	require.True(t, ok)
	assert.Equal(t, UploadPushing, s.Upload)
	assert.Equal(t, Surfaces{Captured: true}, f.c.Surfaces())
	assert.False(t, f.c.ViewEnabled())
	assert.Empty(t, f.uploader.pushes, "push only runs when the task runs")
}

func TestController_CaptureFailure(t *testing.T) {
	f := newFixture(t)
	f.pipeline.captureErr = errors.New("lens cap on")

	f.c.Drive(f.ctx, f.capture(t), nil)

	assert.Equal(t, Previewing{}, f.c.State())
	assert.Empty(t, f.uploader.pushes)
	assert.Equal(t, []Notice{{NoticeError, "Capture failed: lens cap on"}}, f.c.Notices())
}

func TestController_PushFailure(t *testing.T) {
	f := newFixture(t)
	f.uploader.pushErr = errors.New("network down")

	f.c.Drive(f.ctx, f.capture(t), nil)

	s, ok := f.c.State().(Captured)
	require.True(t, ok, "stays captured")
	assert.Equal(t, UploadFailed, s.Upload)
	assert.False(t, f.c.ViewEnabled())
	assert.Len(t, f.uploader.pushes, 1, "no retry")
	assert.Empty(t, f.uploader.links, "link fetch never starts")

	notices := f.c.Notices()
	require.NotEmpty(t, notices)
	assert.Equal(t, Notice{NoticeError, "Upload failed: network down"}, notices[len(notices)-1])
}

func TestController_LinkFetchFailure(t *testing.T) {
	f := newFixture(t)
	f.uploader.linkErr = errors.New("forbidden")

	f.c.Drive(f.ctx, f.capture(t), nil)

	s, ok := f.c.State().(Captured)
	require.True(t, ok)
	assert.Equal(t, UploadPartial, s.Upload)
	assert.Equal(t, "images/2024-03-09-14-05-07-042.jpg", s.RemoteID)
	assert.Empty(t, s.PublicURL)
	assert.False(t, f.c.ViewEnabled())

	notices := f.c.Notices()
	assert.Equal(t, Notice{NoticeError, "Failed to get download URL: forbidden"}, notices[len(notices)-1])
}

func TestController_ReturnToPreviewClearsEverything(t *testing.T) {
	for name, setup := range map[string]func(*fixture){
		"success":    func(*fixture) {},
		"push fails": func(f *fixture) { f.uploader.pushErr = errors.New("x") },
		"link fails": func(f *fixture) { f.uploader.linkErr = errors.New("x") },
	} {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			setup(f)
			f.c.Drive(f.ctx, f.capture(t), nil)

			require.NoError(t, f.c.ReturnToPreview(f.ctx))
			assert.Equal(t, Previewing{}, f.c.State())
			assert.Equal(t, Surfaces{Preview: true}, f.c.Surfaces())
			assert.False(t, f.c.ViewEnabled())
		})
	}
}

func TestController_InvalidTransitions(t *testing.T) {
	f := newFixture(t)

	assert.ErrorIs(t, f.c.ReturnToPreview(f.ctx), ErrInvalidState)

	f.c.Drive(f.ctx, f.capture(t), nil)
	_, err := f.c.RequestCapture(f.ctx)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestController_SameMillisecondCapturesGetDistinctFiles(t *testing.T) {
	dir := t.TempDir()
	uploader := &fakeUploader{}
	newController := func() *Controller {
		c := New(Options{
			OutputDir: dir,
			Pipeline:  &fakePipeline{},
			Uploader:  uploader,
			Clock:     func() time.Time { return fixedTime },
		})
		c.Drive(context.Background(), c.Activate(context.Background()), nil)
		return c
	}

	var photos []Photo
	for _, c := range []*Controller{newController(), newController()} {
		task, err := c.RequestCapture(context.Background())
		require.NoError(t, err)
		c.Drive(context.Background(), task, nil)
		s, ok := c.State().(Captured)
		require.True(t, ok)
		photos = append(photos, s.Photo)
	}

	assert.Equal(t, filepath.Join(dir, "2024-03-09-14-05-07-042.jpg"), photos[0].Path)
	assert.Equal(t, filepath.Join(dir, "2024-03-09-14-05-07-042-1.jpg"), photos[1].Path)
	assert.Equal(t, []string{
		"images/2024-03-09-14-05-07-042.jpg",
		"images/2024-03-09-14-05-07-042-1.jpg",
	}, uploader.links)
}

func TestController_CaptureFailureReleasesFile(t *testing.T) {
	f := newFixture(t)
	f.pipeline.captureErr = errors.New("sensor busy")

	f.c.Drive(f.ctx, f.capture(t), nil)

	entries, err := os.ReadDir(f.dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestController_CaptureRequiresActiveCamera(t *testing.T) {
	c := New(Options{Pipeline: &fakePipeline{}})

	_, err := c.RequestCapture(context.Background())
	assert.ErrorIs(t, err, ErrCameraInactive)
}

func TestController_Back(t *testing.T) {
	f := newFixture(t)

	assert.False(t, f.c.Back(f.ctx), "previewing propagates default navigation")

	f.c.Drive(f.ctx, f.capture(t), nil)
	assert.True(t, f.c.Back(f.ctx), "captured intercepts back")
	assert.Equal(t, Previewing{}, f.c.State())
}

func TestController_CaptureAnother(t *testing.T) {
	f := newFixture(t)
	f.c.Drive(f.ctx, f.capture(t), nil)
	first := f.c.Cycle()

	task, err := f.c.CaptureAnother(f.ctx)
	require.NoError(t, err)
	assert.Greater(t, f.c.Cycle(), first)
	assert.Equal(t, Previewing{Capturing: true}, f.c.State())

	f.c.Drive(f.ctx, task, nil)
	assert.True(t, f.c.ViewEnabled())
	assert.Len(t, f.pipeline.captured, 2)
}

func TestController_SupersededUploadIsIgnored(t *testing.T) {
	f := newFixture(t)

	// First cycle: capture completes, push is in flight.
	push := f.c.Handle(f.ctx, f.capture(t)(f.ctx))
	require.NotNil(t, push)

	// User goes back and captures a second photo before the push resolves.
	require.NoError(t, f.c.ReturnToPreview(f.ctx))
	second := f.capture(t)
	secondPush := f.c.Handle(f.ctx, second(f.ctx))
	require.NotNil(t, secondPush)
	before := f.c.State()

	// The first push now resolves; its result must not touch the new cycle.
	assert.Nil(t, f.c.Handle(f.ctx, push(f.ctx)))
	assert.Equal(t, before, f.c.State())

	// A stale link result is ignored as well.
	assert.Nil(t, f.c.Handle(f.ctx, LinkFetched{Cycle: 1, RemoteID: "images/old.jpg", URL: "https://old"}))
	assert.Equal(t, before, f.c.State())
	assert.False(t, f.c.ViewEnabled())

	// The current cycle still completes normally.
	f.c.Drive(f.ctx, secondPush, nil)
	s := f.c.State().(Captured)
	assert.Equal(t, UploadDone, s.Upload)
	assert.NotEqual(t, "https://old", s.PublicURL)
}

func TestController_ResultAfterReturnToPreviewIsIgnored(t *testing.T) {
	f := newFixture(t)
	push := f.c.Handle(f.ctx, f.capture(t)(f.ctx))
	require.NoError(t, f.c.ReturnToPreview(f.ctx))
	f.c.Notices()

	assert.Nil(t, f.c.Handle(f.ctx, push(f.ctx)), "no link fetch for a discarded photo")
	assert.Equal(t, Previewing{}, f.c.State())
	assert.Empty(t, f.c.Notices())
}

func TestController_SecondCaptureWhileCapturingSupersedesFirst(t *testing.T) {
	f := newFixture(t)
	first := f.capture(t)
	second := f.capture(t)

	assert.Nil(t, f.c.Handle(f.ctx, first(f.ctx)))
	assert.Equal(t, Previewing{Capturing: true}, f.c.State())

	assert.NotNil(t, f.c.Handle(f.ctx, second(f.ctx)))
	assert.IsType(t, Captured{}, f.c.State())
}

func TestController_View(t *testing.T) {
	f := newFixture(t)

	f.c.Drive(f.ctx, f.c.View(f.ctx), nil)
	assert.Equal(t, []string{"https://console.example"}, f.uploader.opened, "falls back to the console")

	f.c.Drive(f.ctx, f.capture(t), nil)
	f.c.Drive(f.ctx, f.c.View(f.ctx), nil)
	assert.Equal(t, "https://cdn.example/images/2024-03-09-14-05-07-042.jpg", f.uploader.opened[1])
}

func TestController_ViewFailureIsNonFatal(t *testing.T) {
	f := newFixture(t)
	f.c.Drive(f.ctx, f.capture(t), nil)
	f.c.Notices()
	f.uploader.openErr = errors.New("no browser")

	f.c.Drive(f.ctx, f.c.View(f.ctx), nil)

	assert.Equal(t, []Notice{{NoticeError, "Could not open image"}}, f.c.Notices())
	assert.True(t, f.c.ViewEnabled())
}

func TestController_CameraStartFailure(t *testing.T) {
	c := New(Options{Pipeline: &fakePipeline{startErr: errors.New("busy")}})
	ctx := context.Background()

	c.Drive(ctx, c.Activate(ctx), nil)

	assert.False(t, c.CameraActive())
	assert.Equal(t, []Notice{{NoticeError, "Camera initialization failed"}}, c.Notices())
}

func TestController_PermissionDenied(t *testing.T) {
	pipeline := &fakePipeline{}
	c := New(Options{
		Pipeline: pipeline,
		Gate:     permission.NewGate(mapChecker{}, 34),
	})
	ctx := context.Background()

	assert.Nil(t, c.Activate(ctx))
	assert.Equal(t, []permission.Permission{permission.Camera}, c.PendingPermissions())

	assert.Nil(t, c.AnswerPermissions(ctx, map[permission.Permission]bool{permission.Camera: false}))
	// A stray second answer for the same request is ignored.
	assert.Nil(t, c.AnswerPermissions(ctx, map[permission.Permission]bool{permission.Camera: false}))

	assert.Equal(t, 0, pipeline.started, "camera pipeline never starts")
	assert.False(t, c.CameraActive())
	assert.Equal(t, Previewing{}, c.State())
	assert.Equal(t, []Notice{{NoticeError, "Camera permission is required to use this app"}}, c.Notices())
	assert.Empty(t, c.PendingPermissions())
}

func TestController_PermissionGrantedInteractively(t *testing.T) {
	pipeline := &fakePipeline{}
	c := New(Options{
		Pipeline: pipeline,
		Gate:     permission.NewGate(mapChecker{}, 30),
	})
	ctx := context.Background()

	require.Nil(t, c.Activate(ctx))
	pending := c.PendingPermissions()
	assert.ElementsMatch(t, []permission.Permission{permission.Camera, permission.ReadExternalStorage}, pending)

	c.Drive(ctx, c.AnswerPermissions(ctx, permission.GrantAll(pending)), nil)

	assert.Equal(t, 1, pipeline.started)
	assert.True(t, c.CameraActive())
	assert.Empty(t, c.Notices())
}

func TestController_PartialGrantStartsCamera(t *testing.T) {
	pipeline := &fakePipeline{}
	c := New(Options{
		Pipeline: pipeline,
		Gate:     permission.NewGate(mapChecker{permission.Camera: true}, 30),
	})
	ctx := context.Background()

	require.Nil(t, c.Activate(ctx))
	pending := c.PendingPermissions()
	require.Equal(t, []permission.Permission{permission.ReadExternalStorage}, pending)

	c.Drive(ctx, c.AnswerPermissions(ctx, permission.GrantAll(pending)), nil)

	assert.Equal(t, 1, pipeline.started)
	assert.True(t, c.CameraActive())
	assert.Empty(t, c.PendingPermissions())
	assert.Empty(t, c.Notices())
}

func TestController_PermissionsAlreadyHeld(t *testing.T) {
	pipeline := &fakePipeline{}
	c := New(Options{
		Pipeline: pipeline,
		Gate:     permission.NewGate(mapChecker{permission.Camera: true}, 34),
	})
	ctx := context.Background()

	task := c.Activate(ctx)
	require.NotNil(t, task)
	c.Drive(ctx, task, nil)
	assert.True(t, c.CameraActive())
	assert.Empty(t, c.PendingPermissions())
}
