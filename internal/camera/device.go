package camera

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/pion/mediadevices"
	"github.com/pion/mediadevices/pkg/io/video"
	"github.com/pion/mediadevices/pkg/prop"

	// Registers the platform camera driver (V4L2, AVFoundation, ...).
	_ "github.com/pion/mediadevices/pkg/driver/camera"
)

var errNotStarted = errors.New("camera: pipeline not started")

// DeviceOptions selects and sizes the camera. Device may be a device ID or a
// substring of the device label, e.g. "/dev/video0"; empty picks the default
// camera. The driver picks the nearest supported resolution.
type DeviceOptions struct {
	Device  string
	Width   int
	Height  int
	Quality int
}

// DevicePipeline reads frames from a local camera through mediadevices.
type DevicePipeline struct {
	opts DeviceOptions

	mu     sync.Mutex
	track  *mediadevices.VideoTrack
	reader video.Reader
}

func NewDevicePipeline(opts DeviceOptions) *DevicePipeline {
	if opts.Width == 0 || opts.Height == 0 {
		opts.Width, opts.Height = 1280, 720
	}
	return &DevicePipeline{opts: opts}
}

// Start opens the video track. Calling Start on a started pipeline is a
// no-op.
func (p *DevicePipeline) Start(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.track != nil {
		return nil
	}

	deviceID, err := p.resolveDevice()
	if err != nil {
		return err
	}

	stream, err := mediadevices.GetUserMedia(mediadevices.MediaStreamConstraints{
		Video: func(c *mediadevices.MediaTrackConstraints) {
			c.Width = prop.Int(p.opts.Width)
			c.Height = prop.Int(p.opts.Height)
			if deviceID != "" {
				c.DeviceID = prop.String(deviceID)
			}
		},
	})
	if err != nil {
		return fmt.Errorf("camera: failed to open video stream: %w", err)
	}

	tracks := stream.GetVideoTracks()
	if len(tracks) == 0 {
		return fmt.Errorf("camera: stream has no video tracks")
	}
	track, ok := tracks[0].(*mediadevices.VideoTrack)
	if !ok {
		_ = tracks[0].Close()
		return fmt.Errorf("camera: unexpected track type %T", tracks[0])
	}

	p.track = track
	p.reader = track.NewReader(false)
	return nil
}

func (p *DevicePipeline) resolveDevice() (string, error) {
	if p.opts.Device == "" {
		return "", nil
	}
	for _, d := range mediadevices.EnumerateDevices() {
		if d.Kind != mediadevices.VideoInput {
			continue
		}
		if d.DeviceID == p.opts.Device || strings.Contains(d.Label, p.opts.Device) {
			return d.DeviceID, nil
		}
	}
	return "", fmt.Errorf("camera: no video device matches %q", p.opts.Device)
}

// Capture reads the next frame and writes it to path as a JPEG.
func (p *DevicePipeline) Capture(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.reader == nil {
		return errNotStarted
	}

	img, release, err := p.reader.Read()
	if err != nil {
		return fmt.Errorf("camera: failed to read frame: %w", err)
	}
	defer release()

	return writeJPEG(path, img, p.opts.Quality)
}

func (p *DevicePipeline) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.track == nil {
		return nil
	}
	err := p.track.Close()
	p.track, p.reader = nil, nil
	return err
}
