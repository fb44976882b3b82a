package permission

// DeviceChecker checks permissions against the host filesystem. Camera is
// held when the device node can be opened for reading and writing;
// ReadExternalStorage when the media directory is readable. An empty device
// path means the camera source needs no device node.
type DeviceChecker struct {
	DevicePath string
	MediaDir   string

	access func(path string, mode uint32) error
}

func NewDeviceChecker(devicePath, mediaDir string) *DeviceChecker {
	return &DeviceChecker{DevicePath: devicePath, MediaDir: mediaDir, access: access}
}

func (c *DeviceChecker) Granted(p Permission) bool {
	switch p {
	case Camera:
		if c.DevicePath == "" {
			return true
		}
		return c.access(c.DevicePath, modeReadWrite) == nil
	case ReadExternalStorage:
		return c.access(c.MediaDir, modeList) == nil
	}
	return false
}
