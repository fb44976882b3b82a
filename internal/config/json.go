package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"
)

// fileConfig is the JSON shape of the config file. Pointer fields tell an
// absent key apart from a zero value.
type fileConfig struct {
	Backend     *string `json:"backend"`
	Bucket      *string `json:"bucket"`
	S3Region    *string `json:"s3_region"`
	S3AccessKey *string `json:"s3_access_key"`
	S3SecretKey *string `json:"s3_secret_key"`
	S3Endpoint  *string `json:"s3_endpoint"`
	LocalDir    *string `json:"local_dir"`

	Source            *string `json:"source"`
	Device            *string `json:"device"`
	Width             *int    `json:"width"`
	Height            *int    `json:"height"`
	Quality           *int    `json:"quality"`
	SnapshotURL       *string `json:"snapshot_url"`
	NavigationTimeout *string `json:"navigation_timeout"`

	PlatformVersion *int `json:"platform_version"`

	LogLevel *string `json:"log_level"`
	Addr     *string `json:"addr"`
}

// LoadFile overlays the JSON file at path onto c. Keys whose flag was set
// explicitly on fs are skipped. A missing file is not an error unless
// required is true.
func (c *Config) LoadFile(path string, required bool, fs *pflag.FlagSet) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return nil
		}
		return fmt.Errorf("config: failed to read %q: %w", path, err)
	}

	var f fileConfig
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("config: failed to parse %q: %w", path, err)
	}

	changed := func(name string) bool {
		return fs != nil && fs.Changed(name)
	}

	setString(&c.Backend, f.Backend, changed(FlagBackend))
	setString(&c.Bucket, f.Bucket, changed(FlagBucket))
	setString(&c.S3Region, f.S3Region, changed(FlagS3Region))
	setString(&c.S3AccessKey, f.S3AccessKey, false)
	setString(&c.S3SecretKey, f.S3SecretKey, false)
	setString(&c.S3Endpoint, f.S3Endpoint, changed(FlagS3Endpoint))
	setString(&c.LocalDir, f.LocalDir, changed(FlagLocalDir))
	setString(&c.Source, f.Source, changed(FlagSource))
	setString(&c.Device, f.Device, changed(FlagDevice))
	setInt(&c.Width, f.Width, changed(FlagWidth))
	setInt(&c.Height, f.Height, changed(FlagHeight))
	setInt(&c.Quality, f.Quality, changed(FlagQuality))
	setString(&c.SnapshotURL, f.SnapshotURL, changed(FlagSnapshotURL))
	setInt(&c.PlatformVersion, f.PlatformVersion, changed(FlagPlatformVersion))
	setString(&c.LogLevel, f.LogLevel, changed(FlagLogLevel))
	setString(&c.Addr, f.Addr, changed(FlagAddr))

	if f.NavigationTimeout != nil && !changed(FlagNavigationTimeout) {
		d, err := time.ParseDuration(*f.NavigationTimeout)
		if err != nil {
			return fmt.Errorf("config: invalid navigation_timeout %q: %w", *f.NavigationTimeout, err)
		}
		c.NavigationTimeout = d
	}

	return nil
}

func setString(dst *string, v *string, skip bool) {
	if v != nil && !skip {
		*dst = *v
	}
}

func setInt(dst *int, v *int, skip bool) {
	if v != nil && !skip {
		*dst = *v
	}
}
