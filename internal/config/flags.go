package config

import "github.com/spf13/pflag"

const (
	FlagBackend           = "backend"
	FlagBucket            = "bucket"
	FlagS3Region          = "s3-region"
	FlagS3Endpoint        = "s3-endpoint"
	FlagLocalDir          = "local-dir"
	FlagSource            = "source"
	FlagDevice            = "device"
	FlagWidth             = "width"
	FlagHeight            = "height"
	FlagQuality           = "quality"
	FlagSnapshotURL       = "snapshot-url"
	FlagNavigationTimeout = "navigation-timeout"
	FlagPlatformVersion   = "platform-version"
	FlagLogLevel          = "log-level"
	FlagAddr              = "addr"
)

// AddFlags registers the shared settings on fs, defaulting to c's current
// values. S3 credentials are deliberately file-only.
func (c *Config) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.Backend, FlagBackend, c.Backend, "Storage backend: gcs, s3 or local")
	fs.StringVarP(&c.Bucket, FlagBucket, "b", c.Bucket, "Bucket name for the gcs and s3 backends")
	fs.StringVar(&c.S3Region, FlagS3Region, c.S3Region, "S3 region")
	fs.StringVar(&c.S3Endpoint, FlagS3Endpoint, c.S3Endpoint, "S3-compatible base endpoint, e.g. http://127.0.0.1:9000")
	fs.StringVar(&c.LocalDir, FlagLocalDir, c.LocalDir, "Base directory of the local backend")
	fs.StringVar(&c.Source, FlagSource, c.Source, "Camera source: device or browser")
	fs.StringVarP(&c.Device, FlagDevice, "d", c.Device, "Camera device ID or node, e.g. /dev/video0 (default: first camera)")
	fs.IntVar(&c.Width, FlagWidth, c.Width, "Requested frame width")
	fs.IntVar(&c.Height, FlagHeight, c.Height, "Requested frame height")
	fs.IntVar(&c.Quality, FlagQuality, c.Quality, "JPEG quality (1-100)")
	fs.StringVar(&c.SnapshotURL, FlagSnapshotURL, c.SnapshotURL, "Page photographed by the browser source")
	fs.DurationVar(&c.NavigationTimeout, FlagNavigationTimeout, c.NavigationTimeout, "Page load timeout for the browser source")
	fs.IntVar(&c.PlatformVersion, FlagPlatformVersion, c.PlatformVersion, "Host API level; below 33 shared storage read access is also required")
	fs.StringVar(&c.LogLevel, FlagLogLevel, c.LogLevel, "Log level: debug, info, warn or error")
}
