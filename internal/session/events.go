package session

import "context"

// Task is a deferred asynchronous operation. It runs off the controller's
// goroutine and reports exactly one Event, which must be passed back to
// Controller.Handle.
type Task func(ctx context.Context) Event

// Event is the terminal outcome of a Task. Cycle identifies the capture
// cycle the task was started in; outcomes of superseded cycles are dropped.
type Event interface {
	cycle() uint64
}

type (
	CameraStarted struct{ Cycle uint64 }
	CameraFailed  struct {
		Cycle uint64
		Err   error
	}

	CaptureCompleted struct {
		Cycle uint64
		Photo Photo
	}
	CaptureFailed struct {
		Cycle uint64
		Err   error
	}

	UploadPushed struct {
		Cycle    uint64
		RemoteID string
	}
	UploadFailedEvent struct {
		Cycle uint64
		Err   error
	}

	LinkFetched struct {
		Cycle    uint64
		RemoteID string
		URL      string
	}
	LinkFetchFailed struct {
		Cycle    uint64
		RemoteID string
		Err      error
	}

	Opened struct {
		Cycle uint64
		URL   string
	}
	OpenFailed struct {
		Cycle uint64
		URL   string
		Err   error
	}
)

func (e CameraStarted) cycle() uint64     { return e.Cycle }
func (e CameraFailed) cycle() uint64      { return e.Cycle }
func (e CaptureCompleted) cycle() uint64  { return e.Cycle }
func (e CaptureFailed) cycle() uint64     { return e.Cycle }
func (e UploadPushed) cycle() uint64      { return e.Cycle }
func (e UploadFailedEvent) cycle() uint64 { return e.Cycle }
func (e LinkFetched) cycle() uint64       { return e.Cycle }
func (e LinkFetchFailed) cycle() uint64   { return e.Cycle }
func (e Opened) cycle() uint64            { return e.Cycle }
func (e OpenFailed) cycle() uint64        { return e.Cycle }
