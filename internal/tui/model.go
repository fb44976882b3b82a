// Package tui renders the single photo screen in the terminal and feeds key
// presses and task results into a session.Controller.
package tui

import (
	"context"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tomasbasham/photo-capture/internal/session"
)

// DefaultNoticeTTL is how long a notice stays on screen.
const DefaultNoticeTTL = 3 * time.Second

// Msg types
type (
	// eventMsg carries the result of a controller task back into Update.
	eventMsg struct{ ev session.Event }

	noticeExpiredMsg int
)

type notice struct {
	id int
	session.Notice
}

// Options configures a Model.
type Options struct {
	Controller *session.Controller

	// Source describes the camera for the preview panel, e.g. "/dev/video0".
	Source string

	// NoticeTTL defaults to DefaultNoticeTTL.
	NoticeTTL time.Duration
}

// Model holds the screen state. Everything about the photo workflow lives in
// the controller; the model only keeps what is needed to draw it.
type Model struct {
	ctx context.Context
	c   *session.Controller

	source    string
	noticeTTL time.Duration

	width  int
	height int

	spinner  spinner.Model
	spinning bool

	// photoSize is the size in bytes of the captured photo, -1 if unknown.
	photoSize int64

	notices    []notice
	nextNotice int
}

// New returns a Model bound to ctx. Tasks started by the model run under ctx.
func New(ctx context.Context, opts Options) Model {
	ttl := opts.NoticeTTL
	if ttl <= 0 {
		ttl = DefaultNoticeTTL
	}
	return Model{
		ctx:       ctx,
		c:         opts.Controller,
		source:    opts.Source,
		noticeTTL: ttl,
		spinner:   spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(spinnerStyle)),
		photoSize: -1,
	}
}

// Init checks permissions and starts the camera.
func (m Model) Init() tea.Cmd {
	return m.run(m.c.Activate(m.ctx))
}

// run adapts a controller task to a command.
func (m Model) run(task session.Task) tea.Cmd {
	if task == nil {
		return nil
	}
	ctx := m.ctx
	return func() tea.Msg {
		return eventMsg{ev: task(ctx)}
	}
}

// absorb moves the controller's pending notices onto the screen and
// schedules their expiry.
func (m *Model) absorb() tea.Cmd {
	var cmds []tea.Cmd
	for _, n := range m.c.Notices() {
		m.nextNotice++
		id := m.nextNotice
		m.notices = append(m.notices, notice{id: id, Notice: n})
		cmds = append(cmds, tea.Tick(m.noticeTTL, func(time.Time) tea.Msg {
			return noticeExpiredMsg(id)
		}))
	}
	return tea.Batch(cmds...)
}

func (m *Model) expire(id int) {
	for i, n := range m.notices {
		if n.id == id {
			m.notices = append(m.notices[:i:i], m.notices[i+1:]...)
			return
		}
	}
}

// uploading reports whether the captured photo has a remote call in flight.
func (m Model) uploading() bool {
	s, ok := m.c.State().(session.Captured)
	return ok && s.Upload.InFlight()
}

func fileSize(path string) int64 {
	fi, err := os.Stat(path)
	if err != nil {
		return -1
	}
	return fi.Size()
}
