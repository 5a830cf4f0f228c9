package profile

import (
	"os"
	"path/filepath"

	"github.com/arjunmehra/streamfetch/internal/extract"
)

const (
	browserUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	// Forwarding-IP header presented to upstreams that gate on client region.
	spoofedForwardIP = "103.208.220.12"
)

// Options builds the extraction gateway configuration for a profile. The
// cookie file is attached only when one exists for the tag under cookiesDir.
func Options(tag, cookiesDir string) extract.Options {
	opts := extract.Options{
		HTTPHeaders: map[string]string{"X-Forwarded-For": spoofedForwardIP},
	}

	switch tag {
	case "hotstar":
		opts.HTTPHeaders["User-Agent"] = browserUA
		opts.HTTPHeaders["Referer"] = "https://www.hotstar.com/"
		opts.HTTPHeaders["Origin"] = "https://www.hotstar.com"
		// Hotstar rate-limits aggressive fragment fetching.
		opts.ConcurrentFragments = 1
		opts.ExtractorArgs = []string{"hotstar:min_timestamp=0"}
	case "zee5":
		opts.HTTPHeaders["User-Agent"] = browserUA
		opts.HTTPHeaders["Referer"] = "https://www.zee5.com/"
		opts.HTTPHeaders["Origin"] = "https://www.zee5.com"
	case "ytdownload", Generic:
		// The web player client trips geo blocks on server IPs; android and
		// ios do not.
		opts.PlayerClients = []string{"android", "ios"}
		opts.GeoBypass = true
		opts.GeoBypassCountry = "IN"
	}

	if cookiesDir != "" {
		cookiePath := filepath.Join(cookiesDir, tag+".txt")
		if _, err := os.Stat(cookiePath); err == nil {
			opts.CookieFile = cookiePath
		}
	}
	return opts
}
