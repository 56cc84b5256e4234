package auth

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	mobileUserAgent = regexp.MustCompile(`(?i)Android|webOS|iPhone|iPad|iPod|BlackBerry|IEMobile|Opera Mini`)
	macPlatform     = regexp.MustCompile(`MacIntel`)
)

// Environment describes the client a session runs in.
type Environment struct {
	URL            string `json:"url"`
	UserAgent      string `json:"userAgent"`
	Platform       string `json:"platform"`
	MaxTouchPoints int    `json:"maxTouchPoints"`
}

// IsMobile reports whether the client should use the redirect flow.
func (e Environment) IsMobile() bool {
	return IsMobileDevice(e.UserAgent, e.Platform, e.MaxTouchPoints)
}

// IsMobileDevice matches mobile user agents, plus iPads that report a
// desktop platform but have a touch screen.
func IsMobileDevice(userAgent, platform string, maxTouchPoints int) bool {
	if mobileUserAgent.MatchString(userAgent) {
		return true
	}
	return maxTouchPoints > 2 && macPlatform.MatchString(platform)
}

// HasRedirectMarkers reports whether rawURL carries the parameters the
// provider appends when returning from a redirect sign-in.
func HasRedirectMarkers(rawURL string) bool {
	if rawURL == "" {
		return false
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	q := u.Query()
	if q.Has("state") || q.Has("code") {
		return true
	}
	return strings.Contains(u.RawQuery, "authuser") || strings.Contains(u.Fragment, "access_token")
}
