package session

import "time"

// State is the controller's view mode. It is either Previewing or Captured;
// the visible surface is derived from it, so the camera preview and the
// captured photo can never be shown together.
type State interface {
	isState()
}

// Previewing shows the live camera preview. Capturing is set while a capture
// requested from this state is in flight.
type Previewing struct {
	Capturing bool
}

// Captured shows the photo taken in the current cycle.
type Captured struct {
	Photo  Photo
	Upload UploadStatus

	// RemoteID is the object key, set once the push has succeeded.
	RemoteID string

	// PublicURL is set once the download link has been fetched.
	PublicURL string
}

func (Previewing) isState() {}
func (Captured) isState()   {}

// Photo is a JPEG written by the camera pipeline. It is never modified after
// capture.
type Photo struct {
	Path      string
	CreatedAt time.Time
}

// UploadStatus tracks the two-phase upload of the current photo.
type UploadStatus int

const (
	UploadPushing UploadStatus = iota
	UploadLinking
	UploadDone
	UploadPartial
	UploadFailed
)

func (s UploadStatus) String() string {
	switch s {
	case UploadPushing:
		return "uploading"
	case UploadLinking:
		return "fetching link"
	case UploadDone:
		return "uploaded"
	case UploadPartial:
		return "uploaded (no link)"
	case UploadFailed:
		return "upload failed"
	}
	return "unknown"
}

// InFlight reports whether a remote call for the photo is outstanding.
func (s UploadStatus) InFlight() bool {
	return s == UploadPushing || s == UploadLinking
}

// Surfaces says which of the two view surfaces is visible.
type Surfaces struct {
	Preview  bool
	Captured bool
}

// NoticeKind distinguishes informational notices from errors.
type NoticeKind int

const (
	NoticeInfo NoticeKind = iota
	NoticeError
)

// Notice is a transient, user-facing message.
type Notice struct {
	Kind NoticeKind
	Text string
}
