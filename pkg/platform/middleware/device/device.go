// Package device derives a short human-readable client label from a User-Agent.
package device

import (
	"strings"

	"github.com/mssola/useragent"
)

const unknownDevice = "Unknown Device"

// ParseUserAgent returns a label such as "Chrome on Mac OS X".
func ParseUserAgent(userAgent string) string {
	userAgent = strings.TrimSpace(userAgent)
	if userAgent == "" {
		return unknownDevice
	}
	ua := useragent.New(userAgent)

	browser, _ := ua.Browser()
	if ua.Bot() {
		browser = "Bot " + browser
	}
	if strings.TrimSpace(browser) == "" {
		browser = "Unknown Browser"
	}

	os := ua.OSInfo().Name
	if platform := ua.Platform(); ua.Mobile() && platform != "" && !strings.Contains(os, platform) {
		os = platform
	}
	if strings.TrimSpace(os) == "" {
		os = ua.Platform()
	}
	if strings.TrimSpace(os) == "" {
		os = "Unknown OS"
	}
	return strings.Join(strings.Fields(browser+" on "+os), " ")
}
