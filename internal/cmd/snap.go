package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tomasbasham/cli-runtime/templates"

	"github.com/tomasbasham/photo-capture/internal/logging"
	"github.com/tomasbasham/photo-capture/internal/permission"
	"github.com/tomasbasham/photo-capture/internal/session"
	"github.com/tomasbasham/photo-capture/internal/upload"
)

var (
	errCameraInactive = errors.New("camera could not be started")
	errNoLink         = errors.New("photo uploaded but no download link is available")
)

type SnapOptions struct {
	*PhotoOptions

	Open bool
	Yes  bool
}

var (
	snapLong = templates.LongDesc(`
		Take one photo, upload it and print its download link.

		Progress is reported on stderr; only the link is written to stdout.`)

	snapExample = templates.Examples(`
		# Take a photo and open it in the browser once uploaded
		photo snap --open

		# Run unattended, granting camera access without asking
		photo snap --yes --backend s3 --bucket my-photos`)
)

func NewSnapOptions(root *PhotoOptions) *SnapOptions {
	return &SnapOptions{PhotoOptions: root}
}

func NewSnapCommand(o *SnapOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "snap",
		Short:   "Take one photo and upload it",
		Long:    snapLong,
		Example: snapExample,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Run(); err != nil {
				return err
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&o.Open, "open", false, "Open the photo in the browser once uploaded")
	cmd.Flags().BoolVarP(&o.Yes, "yes", "y", false, "Grant camera access without asking")

	return cmd
}

func (o *SnapOptions) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log, err := logging.New(o.ErrOut, o.Config.LogLevel)
	if err != nil {
		return err
	}

	a, err := newApp(ctx, o.Config, log)
	if err != nil {
		return err
	}
	defer a.Close()

	return o.snap(ctx, a.controller(a.gate))
}

// snap drives one capture cycle on c to completion.
func (o *SnapOptions) snap(ctx context.Context, c *session.Controller) error {
	c.Drive(ctx, c.Activate(ctx), nil)
	if pending := c.PendingPermissions(); len(pending) > 0 {
		results := permission.GrantAll(pending)
		if !o.Yes {
			results = o.ask(pending)
		}
		c.Drive(ctx, c.AnswerPermissions(ctx, results), nil)
	}
	o.printNotices(c)
	if !c.CameraActive() {
		return errCameraInactive
	}

	task, err := c.RequestCapture(ctx)
	if err != nil {
		return err
	}
	c.Drive(ctx, task, func(session.Event) { o.printNotices(c) })

	s, ok := c.State().(session.Captured)
	if !ok {
		return session.ErrCaptureFailed
	}

	switch s.Upload {
	case session.UploadDone:
		fmt.Fprintln(o.Out, s.PublicURL)
	case session.UploadPartial:
		fmt.Fprintf(o.ErrOut, "Saved %s as %s\n", s.Photo.Path, s.RemoteID)
		if o.Open {
			c.Drive(ctx, c.View(ctx), nil)
			o.printNotices(c)
		}
		return errNoLink
	default:
		fmt.Fprintf(o.ErrOut, "Photo kept at %s\n", s.Photo.Path)
		return upload.ErrUploadFailed
	}

	if o.Open {
		c.Drive(ctx, c.View(ctx), nil)
		o.printNotices(c)
	}
	return nil
}

// ask prompts for each permission on the input stream. Anything other than
// y or yes is a denial.
func (o *SnapOptions) ask(pending []permission.Permission) map[permission.Permission]bool {
	results := make(map[permission.Permission]bool, len(pending))
	scanner := bufio.NewScanner(o.In)
	for _, p := range pending {
		fmt.Fprintf(o.ErrOut, "Allow access to %s? [y/N] ", p)
		var answer string
		if scanner.Scan() {
			answer = strings.ToLower(strings.TrimSpace(scanner.Text()))
		}
		results[p] = answer == "y" || answer == "yes"
	}
	return results
}

func (o *SnapOptions) printNotices(c *session.Controller) {
	for _, n := range c.Notices() {
		fmt.Fprintln(o.ErrOut, n.Text)
	}
}
