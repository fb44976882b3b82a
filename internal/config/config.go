// Package config holds the runtime settings shared by every command.
//
// Values are layered: built-in defaults, then an optional JSON file, then
// command-line flags. A flag given explicitly always wins over the file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

const appName = "photo-capture"

// mediaFolder is the folder created inside the user's pictures directory.
const mediaFolder = "CameraFirebase"

const (
	BackendGCS   = "gcs"
	BackendS3    = "s3"
	BackendLocal = "local"

	SourceDevice  = "device"
	SourceBrowser = "browser"
)

// Config holds runtime settings.
//
// Bucket names the deployment's bucket for the gcs and s3 backends; objects
// are always written under images/. S3* fields configure S3-compatible
// stores. LocalDir is the base directory of the local backend.
type Config struct {
	Backend     string
	Bucket      string
	S3Region    string
	S3AccessKey string
	S3SecretKey string
	S3Endpoint  string
	LocalDir    string

	Source            string
	Device            string
	Width             int
	Height            int
	Quality           int
	SnapshotURL       string
	NavigationTimeout time.Duration

	// PlatformVersion is the host API level used to decide whether shared
	// storage read access must be granted before the camera starts.
	PlatformVersion int

	LogLevel string
	Addr     string
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Backend:           BackendLocal,
		S3Region:          "us-east-1",
		LocalDir:          filepath.Join(xdg.DataHome, appName, "bucket"),
		Source:            SourceDevice,
		Width:             1280,
		Height:            720,
		Quality:           90,
		NavigationTimeout: 10 * time.Second,
		PlatformVersion:   34,
		LogLevel:          "info",
		Addr:              ":8080",
	}
}

// DefaultPath is where the JSON config file is looked up when none is given.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, appName, "config.json")
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendGCS, BackendS3:
		if c.Bucket == "" {
			return fmt.Errorf("config: bucket is required for the %s backend", c.Backend)
		}
	case BackendLocal:
		if c.LocalDir == "" {
			return fmt.Errorf("config: local directory is required for the local backend")
		}
	default:
		return fmt.Errorf("config: unknown backend %q (want gcs, s3 or local)", c.Backend)
	}

	switch c.Source {
	case SourceDevice:
	case SourceBrowser:
		if c.SnapshotURL == "" {
			return fmt.Errorf("config: snapshot URL is required for the browser source")
		}
	default:
		return fmt.Errorf("config: unknown source %q (want device or browser)", c.Source)
	}

	if c.Quality < 1 || c.Quality > 100 {
		return fmt.Errorf("config: JPEG quality %d out of range 1-100", c.Quality)
	}
	return nil
}

// DevicePath returns the device node guarded by the camera permission, or
// "" when the source has none.
func (c *Config) DevicePath() string {
	if c.Source != SourceDevice || c.Device == "" {
		return ""
	}
	if filepath.IsAbs(c.Device) {
		return c.Device
	}
	return ""
}

// MediaDir returns the directory photos are written to, creating it. The
// app folder inside the user's pictures directory is preferred; the app's
// own data directory is the fallback.
func MediaDir() (string, error) {
	return mediaDir(xdg.UserDirs.Pictures, xdg.DataHome)
}

func mediaDir(pictures, dataHome string) (string, error) {
	if pictures != "" {
		dir := filepath.Join(pictures, mediaFolder)
		if err := os.MkdirAll(dir, 0o755); err == nil {
			return dir, nil
		}
	}

	dir := filepath.Join(dataHome, appName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("config: failed to create media directory %q: %w", dir, err)
	}
	return dir, nil
}

// LogFile returns the path of the log file used while the terminal UI owns
// the screen, creating its directory.
func LogFile() (string, error) {
	p, err := xdg.StateFile(filepath.Join(appName, "photo.log"))
	if err != nil {
		return "", fmt.Errorf("config: failed to resolve log file: %w", err)
	}
	return p, nil
}
