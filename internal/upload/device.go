package upload

import (
	"regexp"
	"time"
)

// DeviceClass bounds a single upload attempt for a kind of client.
type DeviceClass struct {
	Name     string
	Timeout  time.Duration
	MaxBytes int64
}

var (
	Desktop = DeviceClass{Name: "desktop", Timeout: 60 * time.Second, MaxBytes: 50 << 20}
	Mobile  = DeviceClass{Name: "mobile", Timeout: 120 * time.Second, MaxBytes: 10 << 20}
)

var reMobileUA = regexp.MustCompile(`(?i)android|iphone|ipad|ipod|mobile|opera mini|iemobile`)

// ClassifyUserAgent picks the device class for a User-Agent string.
func ClassifyUserAgent(ua string) DeviceClass {
	if reMobileUA.MatchString(ua) {
		return Mobile
	}
	return Desktop
}
