package tui

import (
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tomasbasham/photo-capture/internal/permission"
	"github.com/tomasbasham/photo-capture/internal/session"
)

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case eventMsg:
		cmd = m.run(m.c.Handle(m.ctx, msg.ev))
		if e, ok := msg.ev.(session.CaptureCompleted); ok {
			if s, ok := m.c.State().(session.Captured); ok && s.Photo == e.Photo {
				m.photoSize = fileSize(e.Photo.Path)
			}
		}

	case noticeExpiredMsg:
		m.expire(int(msg))
		return m, nil

	case spinner.TickMsg:
		if !m.uploading() {
			m.spinning = false
			return m, nil
		}
		var tick tea.Cmd
		m.spinner, tick = m.spinner.Update(msg)
		return m, tick

	case tea.KeyMsg:
		var quit bool
		cmd, quit = m.handleKey(msg)
		if quit {
			return m, tea.Quit
		}
	}

	return m, tea.Batch(cmd, m.absorb(), m.startSpinner())
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	key := msg.String()
	if key == "ctrl+c" || key == "q" {
		return nil, true
	}

	if pending := m.c.PendingPermissions(); len(pending) > 0 {
		switch key {
		case "y", "n":
			results := make(map[permission.Permission]bool, len(pending))
			for _, p := range pending {
				results[p] = key == "y"
			}
			return m.run(m.c.AnswerPermissions(m.ctx, results)), false
		}
		return nil, false
	}

	switch key {
	case " ", "c":
		task, err := m.c.CaptureAnother(m.ctx)
		if err != nil {
			if errors.Is(err, session.ErrCameraInactive) {
				return m.flash(session.NoticeError, "Camera is not active"), false
			}
			return nil, false
		}
		m.photoSize = -1
		return m.run(task), false

	case "b", "esc", "backspace":
		if !m.c.Back(m.ctx) {
			return nil, true
		}
		m.photoSize = -1

	case "v":
		if m.c.ViewEnabled() {
			return m.run(m.c.View(m.ctx)), false
		}
	}
	return nil, false
}

// flash shows a notice raised by the screen itself rather than the
// controller.
func (m *Model) flash(kind session.NoticeKind, text string) tea.Cmd {
	m.nextNotice++
	id := m.nextNotice
	m.notices = append(m.notices, notice{id: id, Notice: session.Notice{Kind: kind, Text: text}})
	return tea.Tick(m.noticeTTL, func(time.Time) tea.Msg {
		return noticeExpiredMsg(id)
	})
}

// startSpinner begins the spinner tick loop when an upload is in flight and
// the loop is not already running.
func (m *Model) startSpinner() tea.Cmd {
	if m.spinning || !m.uploading() {
		return nil
	}
	m.spinning = true
	return m.spinner.Tick
}
