package httpclient

import (
	"io"
	"net/url"
	"testing"

	"aniweek-resolver-go/pkg/config"
	"aniweek-resolver-go/pkg/logging"
)

func TestParseHeaderParams(t *testing.T) {
	tests := []struct {
		name     string
		query    url.Values
		expected map[string]string
	}{
		{
			name:     "empty query",
			query:    url.Values{},
			expected: map[string]string{},
		},
		{
			name: "simple header",
			query: url.Values{
				"h_Referer": []string{"https://aniweek.com/"},
			},
			expected: map[string]string{
				"Referer": "https://aniweek.com/",
			},
		},
		{
			name: "underscore to hyphen conversion",
			query: url.Values{
				"h_User_Agent": []string{"Mozilla/5.0"},
			},
			expected: map[string]string{
				"User-Agent": "Mozilla/5.0",
			},
		},
		{
			name: "ignores non-header params",
			query: url.Values{
				"url":          []string{"https://aniweek.com/watch/1"},
				"quality":      []string{"1080"},
				"h_Cookie":     []string{"session=abc"},
				"api_password": []string{"secret"},
			},
			expected: map[string]string{
				"Cookie": "session=abc",
			},
		},
		{
			name: "only first value used",
			query: url.Values{
				"h_Multi": []string{"first", "second"},
			},
			expected: map[string]string{
				"Multi": "first",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ParseHeaderParams(tt.query)

			if len(result) != len(tt.expected) {
				t.Errorf("got %d headers, want %d", len(result), len(tt.expected))
			}
			for key, expectedValue := range tt.expected {
				if result[key] != expectedValue {
					t.Errorf("header %q = %q, want %q", key, result[key], expectedValue)
				}
			}
		})
	}
}

func TestGetClientForURL(t *testing.T) {
	log := logging.New("error", false, io.Discard)

	tests := []struct {
		name       string
		cfg        *config.Config
		targetURL  string
		wantClient string
	}{
		{
			name:       "default client when nothing configured",
			cfg:        &config.Config{},
			targetURL:  "https://cdn.example.com/chunks/720p_000.html",
			wantClient: "default",
		},
		{
			name: "fingerprint host routes through utls",
			cfg: &config.Config{
				FingerprintHosts: []string{"player.example.com"},
			},
			targetURL:  "https://player.example.com/video/abc",
			wantClient: "utls",
		},
		{
			name: "fingerprint match is case insensitive",
			cfg: &config.Config{
				FingerprintHosts: []string{"Player.Example.Com"},
			},
			targetURL:  "https://PLAYER.EXAMPLE.COM/video/abc",
			wantClient: "utls",
		},
		{
			name: "global proxy when no route matches",
			cfg: &config.Config{
				GlobalProxies: []string{"socks5://proxy.example.com:1080"},
			},
			targetURL:  "https://cdn.example.com/master.m3u8",
			wantClient: "proxy",
		},
		{
			name: "transport route takes precedence over global proxy",
			cfg: &config.Config{
				GlobalProxies: []string{"socks5://global.example.com:1080"},
				TransportRoutes: []config.TransportRoute{
					{URLPattern: "cdn.specific.com", Proxy: "socks5://specific.example.com:1080"},
				},
			},
			targetURL:  "https://cdn.specific.com/master.m3u8",
			wantClient: "proxy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := New(tt.cfg, log)
			got := client.getClientForURL(tt.targetURL)

			switch tt.wantClient {
			case "default":
				if got != client.defaultClient {
					t.Error("expected the default client")
				}
			case "utls":
				if got != client.utlsClient {
					t.Error("expected the utls client")
				}
			case "proxy":
				if got == client.defaultClient || got == client.utlsClient {
					t.Error("expected a proxy client")
				}
			}
		})
	}
}
