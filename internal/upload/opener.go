package upload

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
)

// SystemOpener opens URLs with the platform's default handler.
type SystemOpener struct {
	goos string
}

func NewSystemOpener() *SystemOpener {
	return &SystemOpener{goos: runtime.GOOS}
}

func (o *SystemOpener) Open(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name, args := o.command(url)
	// Not bound to ctx: the handler must survive the caller.
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", name, err)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

func (o *SystemOpener) command(url string) (string, []string) {
	switch o.goos {
	case "darwin":
		return "open", []string{url}
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", url}
	default:
		return "xdg-open", []string{url}
	}
}
