package fetch

import (
	"net/url"
	"strings"
)

// Upstream service names used for breaker and throttle scoping.
const (
	ServiceMOLIT   = "molit"
	ServiceOnbid   = "onbid"
	ServiceOdcloud = "odcloud"
)

// ServiceFor maps an upstream URL to the service whose breaker guards it.
// Unknown hosts get their own breaker keyed by hostname.
func ServiceFor(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	host := strings.ToLower(u.Hostname())

	switch {
	case host == "apis.data.go.kr" && strings.Contains(u.Path, "/RTMSDataSvc"):
		return ServiceMOLIT
	case host == "apis.data.go.kr" && strings.HasPrefix(u.Path, "/1613000/"):
		return ServiceMOLIT
	case strings.HasSuffix(host, "onbid.co.kr"):
		return ServiceOnbid
	case host == "apis.data.go.kr" && strings.HasPrefix(u.Path, "/B010003/"):
		return ServiceOnbid
	case host == "api.odcloud.kr":
		return ServiceOdcloud
	default:
		return host
	}
}
