package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/tomasbasham/cli-runtime/templates"

	"github.com/tomasbasham/photo-capture/internal/config"
	"github.com/tomasbasham/photo-capture/internal/logging"
	"github.com/tomasbasham/photo-capture/internal/tui"
)

type UIOptions struct {
	*PhotoOptions
}

var (
	uiLong = templates.LongDesc(`
		Open the interactive camera screen.

		The screen shows the camera preview until a photo is taken, then the
		photo and its upload progress. Logs are written to
		$XDG_STATE_HOME/photo-capture/photo.log while the screen is open.`)

	uiExample = templates.Examples(`
		# Use the default camera and the local bucket
		photo ui

		# Use a specific camera and upload to GCS
		photo ui --device /dev/video2 --backend gcs --bucket my-photos`)
)

func NewUIOptions(root *PhotoOptions) *UIOptions {
	return &UIOptions{PhotoOptions: root}
}

func NewUICommand(o *UIOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "ui",
		Short:   "Open the interactive camera screen",
		Long:    uiLong,
		Example: uiExample,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Validate(); err != nil {
				return err
			}
			if err := o.Run(); err != nil {
				return err
			}
			return nil
		},
	}

	return cmd
}

func (o *UIOptions) Validate() error {
	in, ok := o.In.(*os.File)
	if !ok || !term.IsTerminal(int(in.Fd())) {
		return fmt.Errorf("ui requires an interactive terminal; use `photo snap` instead")
	}
	return nil
}

func (o *UIOptions) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The screen owns stdout, so logs go to a file.
	path, err := config.LogFile()
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer f.Close()

	log, err := logging.New(f, o.Config.LogLevel)
	if err != nil {
		return err
	}

	a, err := newApp(ctx, o.Config, log)
	if err != nil {
		return err
	}
	defer a.Close()

	model := tui.New(ctx, tui.Options{
		Controller: a.controller(a.gate),
		Source:     a.source(),
	})

	p := tea.NewProgram(model,
		tea.WithContext(ctx),
		tea.WithAltScreen(),
		tea.WithInput(o.In),
		tea.WithOutput(o.Out),
	)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("screen failed: %w", err)
	}
	return nil
}
