// Package urlutil provides address helpers built on string manipulation
// rather than url.ResolveReference, which re-encodes characters that some
// player CDNs use verbatim in their paths.
package urlutil

import (
	"net/url"
	"strings"
)

// ResolveURL resolves a possibly relative address against the playlist it
// was found in, preserving the original encoding of both.
func ResolveURL(urlStr string, baseURL string) string {
	if strings.HasPrefix(urlStr, "http://") || strings.HasPrefix(urlStr, "https://") {
		return urlStr
	}

	base := GetBaseDirectory(baseURL)

	if strings.HasPrefix(urlStr, "/") {
		parsed, err := url.Parse(baseURL)
		if err != nil {
			return base + urlStr
		}
		return parsed.Scheme + "://" + parsed.Host + urlStr
	}

	for strings.HasPrefix(urlStr, "../") {
		urlStr = urlStr[3:]
		base = strings.TrimSuffix(base, "/")
		if lastSlash := strings.LastIndex(base, "/"); lastSlash > 0 {
			base = base[:lastSlash+1]
		}
	}

	return base + urlStr
}

// GetBaseDirectory strips the query string and the final path segment,
// leaving the enclosing directory with its trailing slash.
func GetBaseDirectory(urlStr string) string {
	if idx := strings.Index(urlStr, "?"); idx > 0 {
		urlStr = urlStr[:idx]
	}
	if lastSlash := strings.LastIndex(urlStr, "/"); lastSlash > 0 {
		return urlStr[:lastSlash+1]
	}
	return urlStr
}

// GetSchemeHost reduces an address to scheme://host, or "" when it cannot
// be parsed.
func GetSchemeHost(urlStr string) string {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return ""
	}
	return parsed.Scheme + "://" + parsed.Host
}
