package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	cliflag "github.com/tomasbasham/cli-runtime/flag"
	"github.com/tomasbasham/cli-runtime/iooption"
	"github.com/tomasbasham/cli-runtime/printer"
	"github.com/tomasbasham/cli-runtime/templates"

	"github.com/tomasbasham/photo-capture/internal/config"
)

var (
	rootLong = templates.LongDesc(`
		Capture a photo, keep it locally and upload it to cloud storage.

		Settings are read from built-in defaults, then the JSON config file,
		then flags. The config file defaults to
		$XDG_CONFIG_HOME/photo-capture/config.json.`)

	rootExamples = templates.Examples(`
		# Open the interactive camera screen
		photo ui

		# Take one photo with the browser source and upload it to S3
		photo snap --source browser --snapshot-url http://camera.local/snapshot \
			--backend s3 --bucket my-photos`)

	// Injected at build time using ldflags.
	version = ""
	commit  = ""
)

// PhotoOptions defines the options for the `photo` command.
type PhotoOptions struct {
	// ConfigPath overrides config.DefaultPath. A file given explicitly must
	// exist.
	ConfigPath string

	Config *config.Config

	iooption.IOStreams
}

// NewPhotoOptions provides an initialised PhotoOptions instance.
func NewPhotoOptions(streams iooption.IOStreams) *PhotoOptions {
	return &PhotoOptions{
		Config:    config.Default(),
		IOStreams: streams,
	}
}

// NewRootCommand creates the `photo` command with default arguments.
func NewRootCommand() *cobra.Command {
	options := NewPhotoOptions(iooption.IOStreams{
		In:     os.Stdin,
		Out:    os.Stdout,
		ErrOut: os.Stderr,
	})

	return NewRootCommandWithArgs(options)
}

// NewRootCommandWithArgs creates the `photo` command and its nested
// children.
func NewRootCommandWithArgs(o *PhotoOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:                   "photo [command]",
		Version:               versionInfo(),
		DisableFlagsInUseLine: true,
		Short:                 "Capture photos and upload them to cloud storage",
		Long:                  rootLong,
		Example:               rootExamples,
		SilenceErrors:         true,
		SilenceUsage:          true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return o.Complete(cmd)
		},
	}

	printerOpts := printer.WarningPrinterOptions{Color: true}
	printer := printer.NewWarningPrinter(o.ErrOut, printerOpts)
	cmd.SetGlobalNormalizationFunc(cliflag.WarnWordSepNormalizeFunc(printer))

	// Add persistent config flags.
	pflags := cmd.PersistentFlags()
	pflags.StringVar(&o.ConfigPath, "config", "", "Path to the JSON config file")
	o.Config.AddFlags(pflags)

	cmd.AddCommand(NewUICommand(NewUIOptions(o)))
	cmd.AddCommand(NewSnapCommand(NewSnapOptions(o)))
	cmd.AddCommand(NewServeCommand(NewServeOptions(o)))

	// The globlal normalisation function ensures that all flags specified meet
	// the desired format, changing users' input if necessary.
	cmd.SetGlobalNormalizationFunc(cliflag.WordSepNormalizeFunc())

	return cmd
}

// Complete overlays the config file onto the defaults without overriding
// flags given on the command line, then validates the result.
func (o *PhotoOptions) Complete(cmd *cobra.Command) error {
	path, required := o.ConfigPath, true
	if path == "" {
		path, required = config.DefaultPath(), false
	}
	if err := o.Config.LoadFile(path, required, cmd.Flags()); err != nil {
		return err
	}
	return o.Config.Validate()
}

func versionInfo() string {
	if version == "" {
		return ""
	}
	return fmt.Sprintf("%s (commit: %s)", version, commit)
}
