package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/tomasbasham/photo-capture/internal/permission"
	"github.com/tomasbasham/photo-capture/internal/session"
)

// Style definitions
var (
	headerStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("62")).
			Foreground(lipgloss.Color("0")).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2)

	actionBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("237")).
			Foreground(lipgloss.Color("250")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Width(10)

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("62"))
)

// View renders the UI
func (m Model) View() string {
	header := headerStyle.Width(m.width).Render("Photo Capture")

	var body string
	surfaces := m.c.Surfaces()
	switch {
	case len(m.c.PendingPermissions()) > 0:
		body = m.renderPrompt()
	case surfaces.Captured:
		body = m.renderCaptured()
	default:
		body = m.renderPreview()
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		panelStyle.Render(body),
		actionBarStyle.Width(m.width).Render(m.actions()),
		m.renderNotices(),
	)
}

func (m Model) renderPrompt() string {
	names := make([]string, 0, len(m.c.PendingPermissions()))
	for _, p := range m.c.PendingPermissions() {
		names = append(names, describe(p))
	}
	return promptStyle.Render("Photo Capture needs access to: "+strings.Join(names, ", ")) +
		"\n\nAllow? [y/n]"
}

func describe(p permission.Permission) string {
	switch p {
	case permission.Camera:
		return "the camera"
	case permission.ReadExternalStorage:
		return "your photos"
	}
	return string(p)
}

func (m Model) renderPreview() string {
	var status string
	switch {
	case !m.c.CameraActive():
		status = errorStyle.Render("camera inactive")
	case m.c.State() == session.Previewing{Capturing: true}:
		status = m.spinner.View() + " capturing"
	default:
		status = infoStyle.Render("live")
	}

	lines := []string{
		"[ viewfinder ]",
		"",
		field("source", m.source),
		field("camera", status),
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderCaptured() string {
	s, ok := m.c.State().(session.Captured)
	if !ok {
		return ""
	}

	size := "unknown"
	if m.photoSize >= 0 {
		size = humanSize(m.photoSize)
	}

	upload := s.Upload.String()
	switch s.Upload {
	case session.UploadPushing, session.UploadLinking:
		upload = m.spinner.View() + " " + upload
	case session.UploadDone:
		upload = infoStyle.Render(upload)
	case session.UploadPartial, session.UploadFailed:
		upload = errorStyle.Render(upload)
	}

	lines := []string{
		field("photo", filepath.Base(s.Photo.Path)),
		field("saved to", filepath.Dir(s.Photo.Path)),
		field("taken", s.Photo.CreatedAt.Format("2006-01-02 15:04:05")),
		field("size", size),
		field("upload", upload),
	}
	if s.RemoteID != "" {
		lines = append(lines, field("object", s.RemoteID))
	}
	if s.PublicURL != "" {
		lines = append(lines, field("url", s.PublicURL))
	}
	return strings.Join(lines, "\n")
}

func (m Model) actions() string {
	if len(m.c.PendingPermissions()) > 0 {
		return "y: allow • n: deny • q: quit"
	}
	if m.c.Surfaces().Captured {
		actions := []string{"space: capture another", "b: back"}
		if m.c.ViewEnabled() {
			actions = append(actions, "v: view")
		}
		return strings.Join(append(actions, "q: quit"), " • ")
	}
	return "space: capture • b: exit • q: quit"
}

func (m Model) renderNotices() string {
	lines := make([]string, 0, len(m.notices))
	for _, n := range m.notices {
		style := infoStyle
		if n.Kind == session.NoticeError {
			style = errorStyle
		}
		lines = append(lines, style.Render(n.Text))
	}
	return strings.Join(lines, "\n")
}

func field(label, value string) string {
	return labelStyle.Render(label) + value
}

func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
