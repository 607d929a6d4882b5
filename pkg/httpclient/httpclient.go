package httpclient

import (
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// UserAgent is sent with every request.
var UserAgent = "subst-installer"

// NewClient creates an HTTP client whose requests are bounded by timeout
// and carry the GitHub token from GITHUB_TOKEN when they go to GitHub.
func NewClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &transport{
			Base: http.DefaultTransport,
		},
	}
}

// transport is a RoundTripper that adds the User-Agent and GitHub authentication
type transport struct {
	Base http.RoundTripper
}

// RoundTrip implements the http.RoundTripper interface
func (t *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	// Clone the request to avoid modifying the original
	req2 := req.Clone(req.Context())

	if req2.Header.Get("User-Agent") == "" {
		req2.Header.Set("User-Agent", UserAgent)
	}
	// Redirects from github.com to its CDN are sent through here again;
	// the token only goes to GitHub hosts
	if IsGitHubURL(req2.URL) {
		if token := os.Getenv("GITHUB_TOKEN"); token != "" {
			req2.Header.Set("Authorization", "Bearer "+token)
		}
	} else {
		req2.Header.Del("Authorization")
	}

	return t.Base.RoundTrip(req2)
}

// IsGitHubURL reports whether u points at github.com or one of its subdomains.
func IsGitHubURL(u *url.URL) bool {
	if u == nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	return host == "github.com" || strings.HasSuffix(host, ".github.com") || host == "githubusercontent.com" || strings.HasSuffix(host, ".githubusercontent.com")
}
